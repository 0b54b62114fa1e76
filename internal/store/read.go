package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// maxBindVars bounds the ids bound into one IN list.
const maxBindVars = 500

// Element resolves an element by name. Unknown names are NOT_FOUND.
func (s *Store) Element(_ context.Context, name string) (*model.Element, error) {
	if e := s.Model().Element(name); e != nil {
		return e, nil
	}
	return nil, queryerr.NotFound("element %q not found", name)
}

// ElementByID resolves an element by id. Unknown ids are NOT_FOUND.
func (s *Store) ElementByID(_ context.Context, id int64) (*model.Element, error) {
	if e := s.Model().ElementByID(id); e != nil {
		return e, nil
	}
	return nil, queryerr.NotFound("element %d not found", id)
}

// Instances returns the instance ids of an element in insertion order.
//
// Returns an empty slice (not nil) if the element has no instances.
func (s *Store) Instances(ctx context.Context, elementID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id
		FROM instances
		WHERE element_id = ?
		ORDER BY seq ASC
	`, elementID)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	return scanIDs(rows, "instances")
}

// RelatedIDs returns the target ids linked from one instance over rel, in
// insertion order.
func (s *Store) RelatedIDs(ctx context.Context, elementID, instanceID int64, rel *model.Relation) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT target_id
		FROM links
		WHERE element_id = ? AND instance_id = ? AND relation = ?
		ORDER BY seq ASC
	`, elementID, instanceID, rel.Name)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	return scanIDs(rows, "links")
}

// Values returns the values of one attribute for ids, aligned with ids.
// Ids without a stored value yield an absent value of the attribute's type.
func (s *Store) Values(ctx context.Context, elementID int64, attribute string, ids []int64) ([]value.Value, error) {
	elem, err := s.ElementByID(ctx, elementID)
	if err != nil {
		return nil, err
	}
	attr := elem.Attribute(attribute)
	if attr == nil {
		return nil, queryerr.NotFound("attribute %q not found", attribute).WithColumn(elem.Name, attribute)
	}

	stored := make(map[int64]value.Value, len(ids))
	for start := 0; start < len(ids); start += maxBindVars {
		end := min(start+maxBindVars, len(ids))
		if err := s.readValues(ctx, elem, attr, ids[start:end], stored); err != nil {
			return nil, err
		}
	}

	out := make([]value.Value, len(ids))
	for i, id := range ids {
		v, ok := stored[id]
		if !ok {
			v = value.Absent(attr.DataType)
		}
		out[i] = v
	}
	return out, nil
}

// readValues reads one chunk of ids into stored.
func (s *Store) readValues(ctx context.Context, elem *model.Element, attr *model.Attribute, ids []int64, stored map[int64]value.Value) error {
	in, params := inList(ids)
	args := append([]any{elem.ID, attr.Name}, params...)

	rows, err := s.db.QueryContext(ctx, `
		SELECT instance_id, data_type, value
		FROM attribute_values
		WHERE element_id = ? AND attribute = ? AND instance_id IN (`+in+`)
		ORDER BY instance_id ASC
	`, args...)
	if err != nil {
		return fmt.Errorf("query values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       int64
			typeName string
			text     string
		)
		if err := rows.Scan(&id, &typeName, &text); err != nil {
			return fmt.Errorf("scan value: %w", err)
		}
		dt, err := value.ParseDataType(typeName)
		if err != nil {
			return fmt.Errorf("value of instance %d: %w", id, err)
		}
		if dt != attr.DataType {
			return queryerr.Invariant("stored %s value for instance %d, attribute is %s", dt, id, attr.DataType).
				WithColumn(elem.Name, attr.Name)
		}
		v, err := unmarshalValue(dt, text)
		if err != nil {
			return fmt.Errorf("value of instance %d: %w", id, err)
		}
		stored[id] = v
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate values: %w", err)
	}
	return nil
}

// inList returns "?, ?, ?" for ids and the matching parameters.
// Values are always bound, never interpolated.
func inList(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	params := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		params[i] = id
	}
	return strings.Join(marks, ", "), params
}

func scanIDs(rows *sql.Rows, what string) ([]int64, error) {
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return ids, nil
}

// reloadModel reads the meta-model from the database and swaps it in.
func (s *Store) reloadModel(ctx context.Context) error {
	elements, err := s.definitions(ctx, `SELECT definition FROM elements ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("read elements: %w", err)
	}
	enums, err := s.definitions(ctx, `SELECT definition FROM enumerations ORDER BY name COLLATE BINARY ASC`)
	if err != nil {
		return fmt.Errorf("read enumerations: %w", err)
	}

	m := &model.Model{}
	for _, def := range elements {
		e, err := unmarshalElement(def)
		if err != nil {
			return err
		}
		m.Elements = append(m.Elements, e)
	}
	for _, def := range enums {
		e, err := unmarshalEnumeration(def)
		if err != nil {
			return err
		}
		m.Enumerations = append(m.Enumerations, e)
	}

	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
	return nil
}

// definitions runs a single-column TEXT query. Rows are fully read before
// returning so the connection is free for the next query.
func (s *Store) definitions(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []string
	for rows.Next() {
		var def string
		if err := rows.Scan(&def); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}
