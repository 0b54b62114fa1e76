package schema

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// dataFile is the YAML layout of instance data:
//
//	elements:
//	  - element: TestStep
//	    instances:
//	      - id: 10
//	        values: {Name: T1, Status: running}
//	        links: {parameters: [20, 21]}
type dataFile struct {
	Elements []elementDoc `yaml:"elements"`
}

type elementDoc struct {
	Element   string        `yaml:"element"`
	Instances []instanceDoc `yaml:"instances"`
}

type instanceDoc struct {
	ID     int64                `yaml:"id"`
	Values map[string]yaml.Node `yaml:"values,omitempty"`
	Links  map[string][]int64   `yaml:"links,omitempty"`
}

// ReadDataset reads a YAML data file; see DecodeDataset.
func ReadDataset(path string, m *model.Model) (*model.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	defer f.Close()

	ds, err := DecodeDataset(f, m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// DecodeDataset decodes YAML instance data, typing every value by its
// attribute in m. Unknown fields, elements and attributes are rejected;
// relation names are checked by the store on load.
func DecodeDataset(r io.Reader, m *model.Model) (*model.Dataset, error) {
	var doc dataFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // Reject unknown fields
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	ds := &model.Dataset{}
	for _, ed := range doc.Elements {
		elem := m.Element(ed.Element)
		if elem == nil {
			return nil, queryerr.NotFound("element %q not found", ed.Element)
		}

		out := model.ElementData{Element: elem.Name}
		for _, inst := range ed.Instances {
			values := make(map[string]value.Value, len(inst.Values))
			for _, name := range slices.Sorted(maps.Keys(inst.Values)) {
				node := inst.Values[name]
				attr := elem.Attribute(name)
				if attr == nil {
					return nil, queryerr.NotFound("attribute %q not found", name).WithColumn(elem.Name, name)
				}
				v, err := nodeValue(attr.DataType, m.Enumeration(attr.Enumeration), &node)
				if err != nil {
					return nil, fmt.Errorf("%s %d: %w", elem.Name, inst.ID, annotate(err, elem.Name, name))
				}
				values[name] = v
			}
			out.Instances = append(out.Instances, model.Instance{ID: inst.ID, Values: values, Links: inst.Links})
		}
		ds.Elements = append(ds.Elements, out)
	}
	return ds, nil
}

// annotate attaches element and column to a *queryerr.Error that has none.
func annotate(err error, element, column string) error {
	var qe *queryerr.Error
	if errors.As(err, &qe) && qe.Element == "" && qe.Column == "" {
		return qe.WithColumn(element, column)
	}
	return err
}
