package form

// State is the lifecycle of one form instance: values, errors and which
// fields the visitor has already left.
type State struct {
	schema  *Schema
	initial Values

	Values  Values
	Errors  Errors
	Touched map[string]bool
}

// NewState creates a form instance with initial values, e.g. identity fields
// pre-filled from the session.
func NewState(schema *Schema, initial Values) *State {
	if initial == nil {
		initial = Values{}
	}
	return &State{
		schema:  schema,
		initial: initial.Clone(),
		Values:  initial.Clone(),
		Errors:  Errors{},
		Touched: map[string]bool{},
	}
}

// Change sets a field value and revalidates the fields already touched, so
// dependent fields such as a password confirmation stay current.
func (s *State) Change(name, value string) {
	s.Values[name] = value
	for field := range s.Touched {
		s.revalidate(field)
	}
}

// Blur marks a field touched and validates it.
func (s *State) Blur(name string) {
	s.Touched[name] = true
	s.revalidate(name)
}

// Submit validates every field and reports whether the form may be sent.
func (s *State) Submit() bool {
	for _, name := range s.schema.Fields() {
		s.Touched[name] = true
	}
	s.Errors = s.schema.Validate(s.Values)
	return !s.Errors.Any()
}

// SetErrors merges errors reported from outside the schema, e.g. by the
// backend.
func (s *State) SetErrors(errs Errors) {
	for k, v := range errs {
		s.Errors[k] = v
	}
}

// Reset restores the initial values and clears errors.
func (s *State) Reset() {
	s.Values = s.initial.Clone()
	s.Errors = Errors{}
	s.Touched = map[string]bool{}
}

func (s *State) revalidate(name string) {
	if msg, ok := s.schema.ValidateField(name, s.Values); ok {
		delete(s.Errors, name)
	} else {
		s.Errors[name] = msg
	}
}
