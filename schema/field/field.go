package field

// A Descriptor carries the per-field options a model declares on top of
// what the struct type itself already says: storage name, indexing,
// requiredness, default value, and, for related fields, a custom
// relationship token.
type Descriptor struct {
	Name     string // struct field name in snake form
	Label    string // storage property name override; empty means Name
	Indexed  bool   // index this property for lookups
	Required bool   // property must be present on decode
	Default  any    // fallback value when the stored property is absent
	Token    string // custom relationship token for related fields
	Kind     Kind   // declared kind, cross-checked against the Go type
}

// Kind is the declared shape of a field, cross-checked against the field's
// Go type at registration time. KindAuto defers entirely to classification.
type Kind int

const (
	// KindAuto lets classification decide the storage shape.
	KindAuto Kind = iota
	// KindSimple asserts the field stores as a direct property.
	KindSimple
	// KindEmbedded asserts the field stores as an embedded text blob.
	KindEmbedded
	// KindRelated asserts the field stores as satellite nodes behind
	// private relationships.
	KindRelated
)

// A Builder accumulates options for one field and is consumed by
// schema.Node / schema.Relationship through WithField.
type Builder struct {
	desc Descriptor
}

// Auto declares a field whose storage shape is decided by classification.
func Auto(name string) *Builder {
	return &Builder{desc: Descriptor{Name: name, Kind: KindAuto}}
}

// Simple declares a field that must classify as a direct property.
func Simple(name string) *Builder {
	return &Builder{desc: Descriptor{Name: name, Kind: KindSimple}}
}

// Embedded declares a field that must store as an embedded text blob.
func Embedded(name string) *Builder {
	return &Builder{desc: Descriptor{Name: name, Kind: KindEmbedded}}
}

// Related declares a field that must store as satellite nodes behind
// private relationships.
func Related(name string) *Builder {
	return &Builder{desc: Descriptor{Name: name, Kind: KindRelated}}
}

// Label overrides the storage property name.
func (b *Builder) Label(label string) *Builder {
	b.desc.Label = label
	return b
}

// Index marks the property as indexed.
func (b *Builder) Index() *Builder {
	b.desc.Indexed = true
	return b
}

// Required marks the property as required on decode.
func (b *Builder) Required() *Builder {
	b.desc.Required = true
	return b
}

// Default sets the fallback value used when the stored property is absent.
func (b *Builder) Default(v any) *Builder {
	b.desc.Default = v
	return b
}

// Token sets a custom relationship token for a related field. The token is
// validated at registration: it must be a legal relationship type name and
// must not collide with the private storage grammar.
func (b *Builder) Token(token string) *Builder {
	b.desc.Token = token
	return b
}

// Descriptor returns the accumulated field descriptor.
func (b *Builder) Descriptor() Descriptor {
	return b.desc
}
