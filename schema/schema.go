// Package schema turns annotated Go struct types into declarative graph
// models. Registration inspects a type once, classifies every declared
// field, derives storage names and private relationship tokens, and caches
// the resulting model per type. Query building and the wire codec operate
// on models only; live values are touched nowhere in this package.
package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-openapi/inflect"
	"golang.org/x/sync/singleflight"

	"github.com/syssam/neogm"
	"github.com/syssam/neogm/schema/field"
)

// Storage is the shape a field takes on the wire.
type Storage int

const (
	// StorageSimple stores the value as a direct property.
	StorageSimple Storage = iota
	// StorageEmbedded stores the value as one canonical text blob.
	StorageEmbedded
	// StorageRelated stores the value as satellite nodes behind private
	// relationships.
	StorageRelated
)

// String returns the storage shape name.
func (s Storage) String() string {
	switch s {
	case StorageSimple:
		return "simple"
	case StorageEmbedded:
		return "embedded"
	case StorageRelated:
		return "related"
	default:
		return "unknown"
	}
}

// A Field is one declared field of a model, resolved to its storage shape.
type Field struct {
	Name     string         // storage property name
	GoName   string         // struct field name
	Index    []int          // reflect field index into the struct
	Type     reflect.Type   // declared Go type
	Class    Classification // structural category of the type
	Storage  Storage        // wire shape
	Indexed  bool
	Required bool
	Default  any
	Token    string       // private relationship token for related fields
	Ordinal  bool         // related collection with per-element ordinals
	Elem     reflect.Type // element type for related collections
}

// A Model is the declarative description of one registered entity type.
type Model struct {
	Type      reflect.Type // underlying struct type
	Label     string       // node label or relationship type name
	Node      bool         // node model, as opposed to relationship model
	Satellite bool         // satellite model for a complex value type
	Fields    []Field      // declaration order
	byName    map[string]int
}

// Field returns the declared field with the given storage name.
func (m *Model) Field(name string) (*Field, bool) {
	i, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return &m.Fields[i], true
}

// RelatedFields returns the fields stored as satellite nodes, in
// declaration order.
func (m *Model) RelatedFields() []*Field {
	var out []*Field
	for i := range m.Fields {
		if m.Fields[i].Storage == StorageRelated {
			out = append(out, &m.Fields[i])
		}
	}
	return out
}

type config struct {
	label  string
	fields map[string]field.Descriptor
}

// An Option configures model registration.
type Option func(*config)

// WithLabel overrides the node label or relationship type name.
func WithLabel(label string) Option {
	return func(c *config) { c.label = label }
}

// WithField attaches per-field options. The builder's field name must match
// the storage name the struct field derives, snake form of the Go name
// unless a tag overrides it.
func WithField(b *field.Builder) Option {
	return func(c *config) {
		d := b.Descriptor()
		c.fields[d.Name] = d
	}
}

var (
	registryMu sync.RWMutex
	registry   = map[reflect.Type]*Model{}
	group      singleflight.Group
)

// Node registers v's type as a node model, or returns the cached model if
// the type was registered before. Options on a repeat call are ignored.
func Node(v any, opts ...Option) (*Model, error) {
	return register(v, true, opts)
}

// Relationship registers v's type as a relationship model. Every declared
// field must classify as Simple or EmbeddedComplex; relationship models
// never carry satellite nodes.
func Relationship(v any, opts ...Option) (*Model, error) {
	return register(v, false, opts)
}

// Lookup returns the registered model for t, if any.
func Lookup(t reflect.Type) (*Model, bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	registryMu.RLock()
	m, ok := registry[t]
	registryMu.RUnlock()
	return m, ok
}

// Reset discards every registered model and the classification cache.
// Reserved for test isolation.
func Reset() {
	registryMu.Lock()
	registry = map[reflect.Type]*Model{}
	registryMu.Unlock()
	ResetClassifier(DefaultEmbedDepth)
}

func register(v any, node bool, opts []Option) (*Model, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &neogm.ConfigurationError{
			Type: fmt.Sprintf("%T", v),
			Msg:  "models must be struct types",
		}
	}
	if node && !implementsNode(t) {
		return nil, &neogm.ConfigurationError{
			Type: t.String(),
			Msg:  "node models must embed neogm.NodeBase",
		}
	}
	if !node && !implementsRelationship(t) {
		return nil, &neogm.ConfigurationError{
			Type: t.String(),
			Msg:  "relationship models must embed neogm.RelationshipBase",
		}
	}

	registryMu.RLock()
	if m, ok := registry[t]; ok {
		registryMu.RUnlock()
		return m, nil
	}
	registryMu.RUnlock()

	m, err, _ := group.Do(typeKey(t), func() (any, error) {
		m, err := build(t, node, false, opts)
		if err != nil {
			return nil, err
		}
		registryMu.Lock()
		registry[t] = m
		registryMu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return m.(*Model), nil
}

// SatelliteOf returns the model describing a complex value type stored as
// a satellite node. Satellite models are registered on demand and cached
// alongside entity models.
func SatelliteOf(t reflect.Type) (*Model, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if m, ok := Lookup(t); ok {
		return m, nil
	}
	if t.Kind() != reflect.Struct || implementsNode(t) || implementsRelationship(t) {
		return nil, &neogm.ConfigurationError{
			Type: t.String(),
			Msg:  "satellite values must be plain struct types",
		}
	}
	m, err, _ := group.Do(typeKey(t), func() (any, error) {
		m, err := build(t, false, true, nil)
		if err != nil {
			return nil, err
		}
		registryMu.Lock()
		registry[t] = m
		registryMu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return m.(*Model), nil
}

func build(t reflect.Type, node, satellite bool, opts []Option) (*Model, error) {
	cfg := config{fields: map[string]field.Descriptor{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	label := cfg.label
	switch {
	case label != "":
	case node || satellite:
		label = t.Name()
	default:
		label = strings.ToUpper(inflect.Underscore(t.Name()))
	}
	if node || satellite {
		if !fieldNameRe.MatchString(label) {
			return nil, &neogm.NamingError{Token: label, Msg: "illegal node label"}
		}
	} else {
		if !ValidToken(label) {
			return nil, &neogm.NamingError{Token: label, Msg: "illegal relationship type name"}
		}
		if IsPrivateToken(label) {
			return nil, &neogm.NamingError{Token: label, Msg: "relationship type name collides with the private storage grammar"}
		}
	}

	m := &Model{
		Type:      t,
		Label:     label,
		Node:      node,
		Satellite: satellite,
		byName:    map[string]int{},
	}
	if err := collectFields(m, t, node, satellite, cfg.fields); err != nil {
		return nil, err
	}
	for name := range cfg.fields {
		return nil, &neogm.ConfigurationError{
			Type:  t.String(),
			Field: name,
			Msg:   "field option names no declared field",
		}
	}
	return m, nil
}

func collectFields(m *Model, t reflect.Type, node, satellite bool, descs map[string]field.Descriptor) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if sf.Anonymous && isBaseType(sf.Type) {
			continue
		}
		tag, tagOpts, skip := parseTag(sf.Tag.Get("graph"))
		if skip {
			continue
		}
		name := tag
		if name == "" {
			name = inflect.Underscore(sf.Name)
		}
		if !fieldNameRe.MatchString(name) {
			return &neogm.NamingError{Token: name, Msg: "illegal property name"}
		}

		f := Field{
			Name:   name,
			GoName: sf.Name,
			Index:  sf.Index,
			Type:   sf.Type,
		}
		desc, hasDesc := descs[name]
		if hasDesc {
			delete(descs, name)
			if desc.Label != "" {
				if !fieldNameRe.MatchString(desc.Label) {
					return &neogm.NamingError{Token: desc.Label, Msg: "illegal property name"}
				}
				f.Name = desc.Label
			}
			f.Indexed = desc.Indexed
			f.Required = desc.Required
			f.Default = desc.Default
		}
		for _, o := range tagOpts {
			switch o {
			case "index":
				f.Indexed = true
			case "required":
				f.Required = true
			default:
				return &neogm.ConfigurationError{
					Type:  t.String(),
					Field: sf.Name,
					Msg:   fmt.Sprintf("unknown tag option %q", o),
				}
			}
		}

		cl, err := Classify(sf.Type)
		if err != nil {
			return err
		}
		f.Class = cl
		if err := resolveStorage(&f, t, node, satellite, desc, hasDesc); err != nil {
			return err
		}
		if f.Storage == StorageRelated {
			if desc.Token != "" {
				if !ValidToken(desc.Token) {
					return &neogm.NamingError{Token: desc.Token, Msg: "illegal relationship token"}
				}
				if IsPrivateToken(desc.Token) {
					return &neogm.NamingError{Token: desc.Token, Msg: "custom token collides with the private storage grammar"}
				}
				f.Token = desc.Token
			} else {
				f.Token = EncodeToken(f.Name)
			}
		}

		if _, dup := m.byName[f.Name]; dup {
			return &neogm.ConfigurationError{
				Type:  t.String(),
				Field: f.Name,
				Msg:   "duplicate storage name",
			}
		}
		m.byName[f.Name] = len(m.Fields)
		m.Fields = append(m.Fields, f)
	}
	return nil
}

// resolveStorage maps a field's classification and declared kind onto its
// wire shape, rejecting combinations the wire format cannot express.
func resolveStorage(f *Field, owner reflect.Type, node, satellite bool, desc field.Descriptor, hasDesc bool) error {
	fail := func(msg string) error {
		return &neogm.ConfigurationError{Type: owner.String(), Field: f.GoName, Msg: msg}
	}
	kind := field.KindAuto
	if hasDesc {
		kind = desc.Kind
	}
	switch f.Class {
	case RelatedNode:
		return fail("node types are not legal as fields; relate entities through a declared relationship type")
	case Simple:
		switch kind {
		case field.KindAuto, field.KindSimple:
			f.Storage = StorageSimple
		case field.KindEmbedded:
			f.Storage = StorageEmbedded
		case field.KindRelated:
			return fail("simple values cannot be stored as satellite nodes")
		}
	case EmbeddedComplex:
		switch kind {
		case field.KindSimple:
			return fail("complex values cannot be stored as direct properties")
		case field.KindEmbedded:
			f.Storage = StorageEmbedded
		case field.KindRelated:
			if !node {
				return fail("satellite nodes are only legal on node models")
			}
			f.Storage = StorageRelated
		case field.KindAuto:
			// Nodes hang complex values off private relationships;
			// relationships and satellites fold them into a blob.
			if node {
				f.Storage = StorageRelated
			} else {
				f.Storage = StorageEmbedded
			}
		}
	case RelatedCollection:
		elem := f.Type
		for elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		elem = elem.Elem()
		for elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if implementsNode(elem) {
			return fail("node types are not legal as fields; relate entities through a declared relationship type")
		}
		if kind == field.KindEmbedded || kind == field.KindSimple {
			return fail("collections of complex elements always store as satellite nodes")
		}
		if !node {
			return fail("satellite nodes are only legal on node models")
		}
		f.Storage = StorageRelated
		f.Ordinal = true
		f.Elem = elem
	}
	return nil
}

var (
	nodeBaseType         = reflect.TypeOf(neogm.NodeBase{})
	relationshipBaseType = reflect.TypeOf(neogm.RelationshipBase{})
)

func isBaseType(t reflect.Type) bool {
	return t == nodeBaseType || t == relationshipBaseType
}

// parseTag splits a `graph` struct tag into its name and option list.
// A tag of "-" skips the field.
func parseTag(tag string) (name string, opts []string, skip bool) {
	if tag == "" {
		return "", nil, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] == "-" && len(parts) == 1 {
		return "", nil, true
	}
	name = parts[0]
	for _, o := range parts[1:] {
		if o = strings.TrimSpace(o); o != "" {
			opts = append(opts, o)
		}
	}
	return name, opts, false
}
