package store

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// Load writes a meta-model and a dataset in one transaction.
//
// A nil m loads data against the model already in the store. Elements and
// enumerations are upserted by id and name. Instances and links use
// ON CONFLICT DO NOTHING, so loading the same dataset twice is a no-op;
// attribute values are overwritten.
//
// Every link is mirrored on the inverse relation when the target element
// declares it. An instance without a value for its element's id attribute
// gets its instance id as that value.
//
// Unknown elements, attributes and relations are NOT_FOUND; a value whose
// kind differs from its attribute's is TYPE_MISMATCH. Nothing is written
// when Load fails.
func (s *Store) Load(ctx context.Context, m *model.Model, data *model.Dataset) error {
	if m == nil {
		m = s.Model()
	}
	if err := checkModel(m); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := writeModel(ctx, tx, m); err != nil {
		return err
	}
	if data != nil {
		for _, ed := range data.Elements {
			if err := writeElementData(ctx, tx, m, ed); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("load: commit: %w", err)
	}
	return s.reloadModel(ctx)
}

// checkModel rejects models the reads could not serve consistently.
func checkModel(m *model.Model) error {
	ids := make(map[int64]bool, len(m.Elements))
	names := make(map[string]bool, len(m.Elements))
	for _, e := range m.Elements {
		if ids[e.ID] {
			return queryerr.BadParameter("duplicate element id %d", e.ID).WithElement(e.Name)
		}
		if names[e.Name] {
			return queryerr.BadParameter("duplicate element name").WithElement(e.Name)
		}
		ids[e.ID], names[e.Name] = true, true
	}
	for _, e := range m.Elements {
		for _, r := range e.Relations {
			if r.Source != e.ID {
				return queryerr.BadParameter("relation %q has source %d", r.Name, r.Source).WithElement(e.Name)
			}
			if !ids[r.Target] {
				return queryerr.NotFound("relation %q targets unknown element %d", r.Name, r.Target).WithElement(e.Name)
			}
		}
	}
	return nil
}

func writeModel(ctx context.Context, tx *sql.Tx, m *model.Model) error {
	for _, e := range m.Elements {
		def, err := marshalJSON(e)
		if err != nil {
			return fmt.Errorf("write element %s: %w", e.Name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO elements (id, name, base_type, definition)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				base_type = excluded.base_type,
				definition = excluded.definition
		`, e.ID, e.Name, e.BaseType, def)
		if err != nil {
			return fmt.Errorf("write element %s: %w", e.Name, err)
		}
	}

	for _, e := range m.Enumerations {
		def, err := marshalJSON(e)
		if err != nil {
			return fmt.Errorf("write enumeration %s: %w", e.Name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO enumerations (name, definition)
			VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET definition = excluded.definition
		`, e.Name, def)
		if err != nil {
			return fmt.Errorf("write enumeration %s: %w", e.Name, err)
		}
	}
	return nil
}

func writeElementData(ctx context.Context, tx *sql.Tx, m *model.Model, ed model.ElementData) error {
	elem := m.Element(ed.Element)
	if elem == nil {
		return queryerr.NotFound("element %q not found", ed.Element)
	}

	for _, inst := range ed.Instances {
		if err := writeInstance(ctx, tx, m, elem, inst); err != nil {
			return err
		}
	}
	return nil
}

func writeInstance(ctx context.Context, tx *sql.Tx, m *model.Model, elem *model.Element, inst model.Instance) error {
	for _, name := range slices.Sorted(maps.Keys(inst.Values)) {
		if elem.Attribute(name) == nil {
			return queryerr.NotFound("attribute %q not found", name).WithColumn(elem.Name, name)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(inst.Links)) {
		if elem.Relation(name) == nil {
			return queryerr.NotFound("relation %q not found", name).WithColumn(elem.Name, name)
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO instances (element_id, id)
		VALUES (?, ?)
		ON CONFLICT(element_id, id) DO NOTHING
	`, elem.ID, inst.ID)
	if err != nil {
		return fmt.Errorf("write instance %s %d: %w", elem.Name, inst.ID, err)
	}

	values := inst.Values
	if idAttr := elem.IDAttribute(); idAttr != nil {
		if _, ok := values[idAttr.Name]; !ok {
			v, err := value.FromString(idAttr.DataType, strconv.FormatInt(inst.ID, 10))
			if err != nil {
				return fmt.Errorf("id of %s %d: %w", elem.Name, inst.ID, err)
			}
			values = withValue(values, idAttr.Name, v)
		}
	}

	// Declaration order keeps writes deterministic.
	for _, attr := range elem.Attributes {
		v, ok := values[attr.Name]
		if !ok {
			continue
		}
		if err := writeValue(ctx, tx, elem, attr, inst.ID, v); err != nil {
			return err
		}
	}

	for _, rel := range elem.Relations {
		targets, ok := inst.Links[rel.Name]
		if !ok {
			continue
		}
		if err := writeLinks(ctx, tx, m, rel, inst.ID, targets); err != nil {
			return err
		}
	}
	return nil
}

func withValue(values map[string]value.Value, name string, v value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(values)+1)
	maps.Copy(out, values)
	out[name] = v
	return out
}

func writeValue(ctx context.Context, tx *sql.Tx, elem *model.Element, attr *model.Attribute, id int64, v value.Value) error {
	if v.Type != attr.DataType {
		return queryerr.TypeMismatch("%s value for %s attribute", v.Type, attr.DataType).WithColumn(elem.Name, attr.Name)
	}
	if !v.Present() {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM attribute_values
			WHERE element_id = ? AND instance_id = ? AND attribute = ?
		`, elem.ID, id, attr.Name)
		if err != nil {
			return fmt.Errorf("clear value %s.%s of %d: %w", elem.Name, attr.Name, id, err)
		}
		return nil
	}

	text, err := marshalValue(v)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO attribute_values (element_id, instance_id, attribute, data_type, value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(element_id, instance_id, attribute) DO UPDATE SET
			data_type = excluded.data_type,
			value = excluded.value
	`, elem.ID, id, attr.Name, v.Type.String(), text)
	if err != nil {
		return fmt.Errorf("write value %s.%s of %d: %w", elem.Name, attr.Name, id, err)
	}
	return nil
}

func writeLinks(ctx context.Context, tx *sql.Tx, m *model.Model, rel *model.Relation, id int64, targets []int64) error {
	var inverse *model.Relation
	if target := m.ElementByID(rel.Target); target != nil && rel.InverseName != "" {
		inverse = target.Relation(rel.InverseName)
	}

	for _, t := range targets {
		if err := insertLink(ctx, tx, rel.Source, id, rel.Name, t); err != nil {
			return err
		}
		if inverse != nil {
			if err := insertLink(ctx, tx, rel.Target, t, inverse.Name, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertLink(ctx context.Context, tx *sql.Tx, elementID, id int64, relation string, target int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO links (element_id, instance_id, relation, target_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(element_id, instance_id, relation, target_id) DO NOTHING
	`, elementID, id, relation, target)
	if err != nil {
		return fmt.Errorf("write link %d.%s → %d: %w", id, relation, target, err)
	}
	return nil
}

// Counts reports how many rows each table holds. Used by `odsq load` to
// summarize what was written.
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, table := range []string{"elements", "enumerations", "instances", "attribute_values", "links"} {
		var n int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
