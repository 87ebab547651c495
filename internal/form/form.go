// Package form validates submitted form values against declarative schemas.
//
// A schema lists fields in order; each field carries an ordered list of rules.
// Validation reports the first failing rule's message per field and omits
// fields that pass. Rules see every value of the form, so cross-field checks
// attach to the field that depends on another one.
package form

// Values holds the raw string value of every field of a form.
type Values map[string]string

// Get returns the value of name, or "" when absent.
func (v Values) Get(name string) string {
	return v[name]
}

// Clone returns a copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Errors maps a field name to its error message. A field absent from Errors
// is valid.
type Errors map[string]string

// Any reports whether at least one field has a non-empty message.
func (e Errors) Any() bool {
	for _, msg := range e {
		if msg != "" {
			return true
		}
	}
	return false
}

// Rule is a single predicate with the message reported when it fails. Test
// receives the value of the field the rule is attached to and the whole form.
type Rule struct {
	Test    func(value string, all Values) bool
	Message string
}

// FieldSpec binds rules to a field name.
type FieldSpec struct {
	Name  string
	Rules []Rule
}

// Field declares the rules of one field, evaluated in order.
func Field(name string, rules ...Rule) FieldSpec {
	return FieldSpec{Name: name, Rules: rules}
}

// Schema is an ordered set of field specs.
type Schema struct {
	fields []FieldSpec
	index  map[string]int
}

// NewSchema builds a schema from fields.
func NewSchema(fields ...FieldSpec) *Schema {
	s := &Schema{fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		s.index[f.Name] = i
	}
	return s
}

// Fields returns the field names in declaration order.
func (s *Schema) Fields() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Validate runs every field's rules against values.
func (s *Schema) Validate(values Values) Errors {
	errs := Errors{}
	for _, f := range s.fields {
		if msg, ok := firstFailure(f, values); !ok {
			errs[f.Name] = msg
		}
	}
	return errs
}

// ValidateField runs the rules of one field. ok is true when the field
// passes or is not part of the schema.
func (s *Schema) ValidateField(name string, values Values) (msg string, ok bool) {
	i, found := s.index[name]
	if !found {
		return "", true
	}
	return firstFailure(s.fields[i], values)
}

func firstFailure(f FieldSpec, values Values) (string, bool) {
	v := values[f.Name]
	for _, r := range f.Rules {
		if !r.Test(v, values) {
			return r.Message, false
		}
	}
	return "", true
}
