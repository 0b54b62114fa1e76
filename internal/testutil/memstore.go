package testutil

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// MemStore is an in-memory instance store for tests.
//
// It implements engine.InstanceStore, counts every read so tests can assert
// that rejected queries never touch data, and can inject failures per
// method.
//
// Thread-safety: all methods are safe for concurrent use.
type MemStore struct {
	mu        sync.RWMutex
	model     model.Model
	instances map[int64][]int64
	values    map[instanceKey]map[string]value.Value
	links     map[linkKey][]int64
	failures  map[string]error

	calls atomic.Int64
}

type instanceKey struct {
	element, id int64
}

type linkKey struct {
	element, id int64
	relation    string
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		instances: make(map[int64][]int64),
		values:    make(map[instanceKey]map[string]value.Value),
		links:     make(map[linkKey][]int64),
		failures:  make(map[string]error),
	}
}

// AddElement registers an element.
func (s *MemStore) AddElement(e *model.Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Elements = append(s.model.Elements, e)
}

// AddEnumeration registers an enumeration.
func (s *MemStore) AddEnumeration(e *model.Enumeration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Enumerations = append(s.model.Enumerations, e)
}

// Put adds an instance with the given attribute values. Attributes not in
// values have no value.
func (s *MemStore) Put(elementID, id int64, values map[string]value.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := instanceKey{elementID, id}
	if _, ok := s.values[key]; !ok {
		s.instances[elementID] = append(s.instances[elementID], id)
	}
	s.values[key] = values
}

// Link appends targets to an instance's relation and mirrors each link on
// the inverse relation, if the target element declares it.
func (s *MemStore) Link(elementID, id int64, relation string, targets ...int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem := s.model.ElementByID(elementID)
	if elem == nil {
		return fmt.Errorf("link: unknown element %d", elementID)
	}
	rel := elem.Relation(relation)
	if rel == nil {
		return fmt.Errorf("link: element %s has no relation %q", elem.Name, relation)
	}
	key := linkKey{elementID, id, relation}
	s.links[key] = append(s.links[key], targets...)

	target := s.model.ElementByID(rel.Target)
	if target == nil || rel.InverseName == "" || target.Relation(rel.InverseName) == nil {
		return nil
	}
	for _, t := range targets {
		inv := linkKey{rel.Target, t, rel.InverseName}
		s.links[inv] = append(s.links[inv], id)
	}
	return nil
}

// MustLink is Link for fixtures; it panics on error.
func (s *MemStore) MustLink(elementID, id int64, relation string, targets ...int64) {
	if err := s.Link(elementID, id, relation, targets...); err != nil {
		panic(err)
	}
}

// Load adds a dataset the way the SQLite store does: instances in order, a
// missing id attribute value filled from the instance id, links in relation
// declaration order.
func (s *MemStore) Load(data *model.Dataset) error {
	for _, ed := range data.Elements {
		s.mu.RLock()
		elem := s.model.Element(ed.Element)
		s.mu.RUnlock()
		if elem == nil {
			return fmt.Errorf("load: unknown element %q", ed.Element)
		}

		for _, inst := range ed.Instances {
			values := make(map[string]value.Value, len(inst.Values)+1)
			maps.Copy(values, inst.Values)
			if idAttr := elem.IDAttribute(); idAttr != nil {
				if _, ok := values[idAttr.Name]; !ok {
					v, err := value.FromString(idAttr.DataType, strconv.FormatInt(inst.ID, 10))
					if err != nil {
						return err
					}
					values[idAttr.Name] = v
				}
			}
			s.Put(elem.ID, inst.ID, values)

			for _, rel := range elem.Relations {
				if targets, ok := inst.Links[rel.Name]; ok {
					if err := s.Link(elem.ID, inst.ID, rel.Name, targets...); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// MustLoad is Load for fixtures; it panics on error.
func (s *MemStore) MustLoad(data *model.Dataset) {
	if err := s.Load(data); err != nil {
		panic(err)
	}
}

// FailOn makes every later call of method ("Element", "ElementByID",
// "Instances", "RelatedIDs", "Values") return err.
func (s *MemStore) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

// Calls returns the number of store reads so far.
func (s *MemStore) Calls() int64 {
	return s.calls.Load()
}

// Model returns the registered meta-model.
func (s *MemStore) Model() *model.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.model
	return &m
}

func (s *MemStore) enter(method string) error {
	s.calls.Add(1)
	return s.failures[method]
}

// Element implements engine.InstanceStore.
func (s *MemStore) Element(_ context.Context, name string) (*model.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.enter("Element"); err != nil {
		return nil, err
	}
	if e := s.model.Element(name); e != nil {
		return e, nil
	}
	return nil, queryerr.NotFound("element %q not found", name)
}

// ElementByID implements engine.InstanceStore.
func (s *MemStore) ElementByID(_ context.Context, id int64) (*model.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.enter("ElementByID"); err != nil {
		return nil, err
	}
	if e := s.model.ElementByID(id); e != nil {
		return e, nil
	}
	return nil, queryerr.NotFound("element %d not found", id)
}

// Instances implements engine.InstanceStore.
func (s *MemStore) Instances(_ context.Context, elementID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.enter("Instances"); err != nil {
		return nil, err
	}
	return slices.Clone(s.instances[elementID]), nil
}

// RelatedIDs implements engine.InstanceStore.
func (s *MemStore) RelatedIDs(_ context.Context, elementID, instanceID int64, rel *model.Relation) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.enter("RelatedIDs"); err != nil {
		return nil, err
	}
	return slices.Clone(s.links[linkKey{elementID, instanceID, rel.Name}]), nil
}

// Values implements engine.InstanceStore.
func (s *MemStore) Values(_ context.Context, elementID int64, attribute string, ids []int64) ([]value.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.enter("Values"); err != nil {
		return nil, err
	}
	elem := s.model.ElementByID(elementID)
	if elem == nil {
		return nil, queryerr.NotFound("element %d not found", elementID)
	}
	attr := elem.Attribute(attribute)
	if attr == nil {
		return nil, queryerr.NotFound("attribute %q not found", attribute).WithColumn(elem.Name, attribute)
	}

	out := make([]value.Value, len(ids))
	for i, id := range ids {
		v, ok := s.values[instanceKey{elementID, id}][attribute]
		if !ok {
			v = value.Absent(attr.DataType)
		}
		out[i] = v
	}
	return out, nil
}
