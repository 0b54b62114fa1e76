package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// CompileError represents a model compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadModelDir loads every .cue file of dir as one CUE package and compiles
// the result.
func LoadModelDir(dir string) (*model.Model, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("model directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("model directory: not a directory: %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	v := cuecontext.New().BuildInstance(inst)
	return CompileModel(v)
}

// CompileModelString compiles CUE source text. filename is used in error
// positions.
func CompileModelString(src, filename string) (*model.Model, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	return CompileModel(v)
}

// CompileModel compiles a CUE value of the form
//
//	element: Measurement: {
//		id:        4
//		base_type: "AoMeasurement"
//		attributes: {
//			Id:   {base_name: "id", type: "DT_LONGLONG"}
//			Name: {base_name: "name", type: "DT_STRING"}
//		}
//		relations: {
//			step: {target: "TestStep", min: 1, max: 1, inverse: "results"}
//		}
//	}
//	enumeration: step_status: {running: 1, done: 2}
//
// into a model. Attributes and relations keep declaration order. A relation
// max of "many" (or -1) is unbounded. When the target element declares the
// inverse relation, the inverse range is taken from it; otherwise
// inverse_min and inverse_max give it.
func CompileModel(v cue.Value) (*model.Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &model.Model{}
	if err := compileEnumerations(v, m); err != nil {
		return nil, err
	}

	elemVal := v.LookupPath(cue.ParsePath("element"))
	if !elemVal.Exists() {
		return nil, &CompileError{Field: "element", Message: "at least one element is required", Pos: v.Pos()}
	}
	iter, err := elemVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	// Relation targets are names until every element id is known.
	var pending []pendingRelation
	ids := make(map[int64]string)
	for iter.Next() {
		e, rels, err := compileElement(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		if other, dup := ids[e.ID]; dup {
			return nil, &CompileError{
				Field:   "element." + e.Name + ".id",
				Message: fmt.Sprintf("id %d already used by %s", e.ID, other),
				Pos:     iter.Value().Pos(),
			}
		}
		ids[e.ID] = e.Name
		m.Elements = append(m.Elements, e)
		pending = append(pending, rels...)
	}

	if err := resolveRelations(m, pending); err != nil {
		return nil, err
	}
	if err := checkEnumerationRefs(m); err != nil {
		return nil, err
	}
	return m, nil
}

type pendingRelation struct {
	rel        *model.Relation
	element    *model.Element
	target     string
	hasInverse bool // inverse range given explicitly
	pos        token.Pos
}

func compileElement(name string, v cue.Value) (*model.Element, []pendingRelation, error) {
	field := "element." + name
	e := &model.Element{Name: name}

	idVal := v.LookupPath(cue.ParsePath("id"))
	if !idVal.Exists() {
		return nil, nil, &CompileError{Field: field + ".id", Message: "id is required", Pos: v.Pos()}
	}
	id, err := idVal.Int64()
	if err != nil {
		return nil, nil, formatCUEError(err)
	}
	if id <= 0 {
		return nil, nil, &CompileError{Field: field + ".id", Message: "id must be positive", Pos: idVal.Pos()}
	}
	e.ID = id

	if bt := v.LookupPath(cue.ParsePath("base_type")); bt.Exists() {
		if e.BaseType, err = bt.String(); err != nil {
			return nil, nil, formatCUEError(err)
		}
	}

	if e.Attributes, err = compileAttributes(field, v); err != nil {
		return nil, nil, err
	}

	var pending []pendingRelation
	relVal := v.LookupPath(cue.ParsePath("relations"))
	if relVal.Exists() {
		iter, err := relVal.Fields()
		if err != nil {
			return nil, nil, formatCUEError(err)
		}
		for iter.Next() {
			p, err := compileRelation(field, iter.Label(), iter.Value())
			if err != nil {
				return nil, nil, err
			}
			p.element = e
			p.rel.Source = e.ID
			e.Relations = append(e.Relations, p.rel)
			pending = append(pending, p)
		}
	}

	return e, pending, nil
}

func compileAttributes(field string, v cue.Value) ([]*model.Attribute, error) {
	attrVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrVal.Exists() {
		return nil, nil
	}
	iter, err := attrVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var attrs []*model.Attribute
	for iter.Next() {
		av := iter.Value()
		a := &model.Attribute{Name: iter.Label()}

		typeVal := av.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return nil, &CompileError{Field: field + ".attributes." + a.Name, Message: "type is required", Pos: av.Pos()}
		}
		typeName, err := typeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if a.DataType, err = value.ParseDataType(typeName); err != nil {
			return nil, &CompileError{Field: field + ".attributes." + a.Name + ".type", Message: err.Error(), Pos: typeVal.Pos()}
		}

		if a.BaseName, err = optionalString(av, "base_name"); err != nil {
			return nil, err
		}
		if a.Enumeration, err = optionalString(av, "enumeration"); err != nil {
			return nil, err
		}
		if u := av.LookupPath(cue.ParsePath("unit")); u.Exists() {
			if a.Unit, err = u.Int64(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

func compileRelation(field, name string, v cue.Value) (pendingRelation, error) {
	field += ".relations." + name
	p := pendingRelation{rel: &model.Relation{Name: name}, pos: v.Pos()}

	target, err := optionalString(v, "target")
	if err != nil {
		return p, err
	}
	if target == "" {
		return p, &CompileError{Field: field + ".target", Message: "target is required", Pos: v.Pos()}
	}
	p.target = target

	if p.rel.Range, err = compileRange(field, v, "min", "max"); err != nil {
		return p, err
	}
	if p.rel.InverseName, err = optionalString(v, "inverse"); err != nil {
		return p, err
	}
	if v.LookupPath(cue.ParsePath("inverse_max")).Exists() {
		if p.rel.InverseRange, err = compileRange(field, v, "inverse_min", "inverse_max"); err != nil {
			return p, err
		}
		p.hasInverse = true
	}
	return p, nil
}

// compileRange reads a {min, max} pair. min defaults to 0, max to 1.
func compileRange(field string, v cue.Value, minField, maxField string) (model.Range, error) {
	r := model.Range{Min: 0, Max: 1}

	if mv := v.LookupPath(cue.ParsePath(minField)); mv.Exists() {
		n, err := mv.Int64()
		if err != nil {
			return r, formatCUEError(err)
		}
		r.Min = int(n)
	}

	mv := v.LookupPath(cue.ParsePath(maxField))
	if !mv.Exists() {
		return r, nil
	}
	if s, err := mv.String(); err == nil {
		if s != "many" {
			return r, &CompileError{Field: field + "." + maxField, Message: fmt.Sprintf("%q is not a count or \"many\"", s), Pos: mv.Pos()}
		}
		r.Max = model.Many
		return r, nil
	}
	n, err := mv.Int64()
	if err != nil {
		return r, formatCUEError(err)
	}
	r.Max = int(n)
	if r.Max != model.Many && r.Max < r.Min {
		return r, &CompileError{Field: field + "." + maxField, Message: fmt.Sprintf("max %d below min %d", r.Max, r.Min), Pos: mv.Pos()}
	}
	return r, nil
}

func resolveRelations(m *model.Model, pending []pendingRelation) error {
	for _, p := range pending {
		target := m.Element(p.target)
		if target == nil {
			return &CompileError{
				Field:   "element." + p.element.Name + ".relations." + p.rel.Name + ".target",
				Message: fmt.Sprintf("unknown element %q", p.target),
				Pos:     p.pos,
			}
		}
		p.rel.Target = target.ID
	}

	for _, p := range pending {
		if p.rel.InverseName == "" || p.hasInverse {
			continue
		}
		field := "element." + p.element.Name + ".relations." + p.rel.Name
		target := m.ElementByID(p.rel.Target)
		inverse := target.Relation(p.rel.InverseName)
		if inverse == nil {
			return &CompileError{
				Field:   field + ".inverse",
				Message: fmt.Sprintf("%s declares no relation %q; give inverse_max", target.Name, p.rel.InverseName),
				Pos:     p.pos,
			}
		}
		if inverse.Target != p.element.ID {
			return &CompileError{
				Field:   field + ".inverse",
				Message: fmt.Sprintf("%s.%s does not point back to %s", target.Name, inverse.Name, p.element.Name),
				Pos:     p.pos,
			}
		}
		p.rel.InverseRange = inverse.Range
	}
	return nil
}

func compileEnumerations(v cue.Value, m *model.Model) error {
	enumVal := v.LookupPath(cue.ParsePath("enumeration"))
	if !enumVal.Exists() {
		return nil
	}
	iter, err := enumVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		e := &model.Enumeration{Name: iter.Label()}
		items, err := iter.Value().Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for items.Next() {
			code, err := items.Value().Int64()
			if err != nil {
				return formatCUEError(err)
			}
			e.Items = append(e.Items, model.EnumItem{Name: items.Label(), Code: int32(code)})
		}
		m.Enumerations = append(m.Enumerations, e)
	}
	return nil
}

func checkEnumerationRefs(m *model.Model) error {
	for _, e := range m.Elements {
		for _, a := range e.Attributes {
			if a.Enumeration == "" {
				continue
			}
			if a.DataType != value.DTEnum && a.DataType != value.DSEnum {
				return &CompileError{
					Field:   "element." + e.Name + ".attributes." + a.Name + ".enumeration",
					Message: fmt.Sprintf("%s attribute cannot reference an enumeration", a.DataType),
				}
			}
			if m.Enumeration(a.Enumeration) == nil {
				return &CompileError{
					Field:   "element." + e.Name + ".attributes." + a.Name + ".enumeration",
					Message: fmt.Sprintf("unknown enumeration %q", a.Enumeration),
				}
			}
		}
	}
	return nil
}

func optionalString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
