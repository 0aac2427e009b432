package tavolo

// Field is a named, typed column of a relation.
type Field struct {
	Name string
	Type Type
}

// Schema is the ordered field list of a relation.
type Schema struct {
	fields []Field
	byName map[string]int
}

func NewSchema(fields ...Field) *Schema {
	byName := make(map[string]int, len(fields))
	for i, f := range fields {
		byName[f.Name] = i
	}
	return &Schema{fields: fields, byName: byName}
}

func (s *Schema) Fields() []Field { return s.fields }

func (s *Schema) Len() int { return len(s.fields) }

func (s *Schema) Field(i int) Field { return s.fields[i] }

// LookupField returns the field with the given name and its position.
func (s *Schema) LookupField(name string) (Field, int, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, -1, false
	}
	return s.fields[i], i, true
}

// Relation is an input to field resolution: anything that exposes a name and
// an ordered schema, typically the operation whose expressions are being
// analyzed.
type Relation interface {
	Name() string
	Schema() *Schema
}

// NamedRelation is a minimal Relation backed by a schema, handy for tests and
// for callers that do not carry their own operation types.
type NamedRelation struct {
	name   string
	schema *Schema
}

func NewNamedRelation(name string, schema *Schema) *NamedRelation {
	return &NamedRelation{name: name, schema: schema}
}

func (r *NamedRelation) Name() string    { return r.name }
func (r *NamedRelation) Schema() *Schema { return r.schema }
