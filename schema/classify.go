package schema

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/syssam/neogm"
)

// Classification is the structural category assigned to a declared field's
// type. It is a pure function of the type shape.
type Classification int

const (
	// Simple types store directly as graph properties: primitives,
	// date/time, UUID, decimal, enums, and homogeneous collections or
	// mappings of the above.
	Simple Classification = iota

	// EmbeddedComplex types are non-Node structures whose own fields
	// resolve within the configured nesting ceiling.
	EmbeddedComplex

	// RelatedNode marks a type satisfying the Node contract. Node types
	// are never legal as inline fields; they relate through declared
	// relationship entities.
	RelatedNode

	// RelatedCollection marks a homogeneous collection of complex
	// elements, stored as one satellite node per element with an ordinal
	// attribute on its private relationship.
	RelatedCollection
)

// String returns the classification name.
func (c Classification) String() string {
	switch c {
	case Simple:
		return "simple"
	case EmbeddedComplex:
		return "embedded_complex"
	case RelatedNode:
		return "related_node"
	case RelatedCollection:
		return "related_collection"
	default:
		return "unknown"
	}
}

// DefaultEmbedDepth is the default nesting ceiling for EmbeddedComplex
// classification. A complex type whose fields require deeper resolution
// fails registration with ConfigurationError.
const DefaultEmbedDepth = 2

var (
	nodeIface         = reflect.TypeOf((*neogm.Node)(nil)).Elem()
	relationshipIface = reflect.TypeOf((*neogm.Relationship)(nil)).Elem()

	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// Classifier memoizes type classification. The zero value is not usable;
// use NewClassifier or the package-level Classify.
type Classifier struct {
	embedDepth int
	cache      sync.Map // reflect.Type -> Classification
	group      singleflight.Group
}

// NewClassifier returns a classifier with the given nesting ceiling.
// A ceiling below 1 falls back to DefaultEmbedDepth.
func NewClassifier(embedDepth int) *Classifier {
	if embedDepth < 1 {
		embedDepth = DefaultEmbedDepth
	}
	return &Classifier{embedDepth: embedDepth}
}

// defaultClassifier is the process-wide classifier behind the package-level
// functions. Replaced only by ResetClassifier, a hook reserved for tests.
var (
	classifierMu      sync.RWMutex
	defaultClassifier = NewClassifier(DefaultEmbedDepth)
)

// Classify classifies a type using the process-wide classifier.
func Classify(t reflect.Type) (Classification, error) {
	classifierMu.RLock()
	c := defaultClassifier
	classifierMu.RUnlock()
	return c.Classify(t)
}

// ResetClassifier discards the process-wide classification cache and
// installs a fresh classifier with the given nesting ceiling. Reserved for
// test isolation; production code never invalidates the cache.
func ResetClassifier(embedDepth int) {
	classifierMu.Lock()
	defaultClassifier = NewClassifier(embedDepth)
	classifierMu.Unlock()
}

// Classify returns the classification of t. Results are cached per type;
// cache hits take no lock, and concurrent misses for the same type collapse
// into a single computation.
func (c *Classifier) Classify(t reflect.Type) (Classification, error) {
	if v, ok := c.cache.Load(t); ok {
		return v.(Classification), nil
	}
	key := typeKey(t)
	v, err, _ := c.group.Do(key, func() (any, error) {
		cl, err := c.classify(t, 0)
		if err != nil {
			return Simple, err
		}
		c.cache.Store(t, cl)
		return cl, nil
	})
	if err != nil {
		return Simple, err
	}
	return v.(Classification), nil
}

// typeKey builds a stable singleflight key for a type.
func typeKey(t reflect.Type) string {
	return t.PkgPath() + "." + t.String()
}

func (c *Classifier) classify(t reflect.Type, depth int) (Classification, error) {
	// Optional analog: a pointer classifies as its element.
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if implementsNode(t) {
		return RelatedNode, nil
	}
	if implementsRelationship(t) {
		return Simple, &neogm.ConfigurationError{
			Type: t.String(),
			Msg:  "relationship types cannot be used as fields",
		}
	}
	if isSimple(t) {
		return Simple, nil
	}

	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		elem := t.Elem()
		for elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if implementsNode(elem) {
			return RelatedCollection, nil
		}
		if isSimple(elem) {
			return Simple, nil
		}
		// Complex elements: verify each element resolves as embeddable,
		// then explode into ordinal-tagged satellites.
		if _, err := c.classify(elem, depth); err != nil {
			return Simple, err
		}
		return RelatedCollection, nil
	case reflect.Map:
		if isSimple(t.Key()) && isSimple(t.Elem()) {
			return Simple, nil
		}
		return c.classifyStruct(t.Elem(), depth+1, t)
	case reflect.Struct:
		return c.classifyStruct(t, depth, t)
	default:
		return Simple, &neogm.ConfigurationError{
			Type: t.String(),
			Msg:  fmt.Sprintf("unsupported field kind %s", t.Kind()),
		}
	}
}

// classifyStruct resolves a complex type's own fields within the nesting
// ceiling. reported is the type named in errors, which for maps is the map
// type rather than its value type.
func (c *Classifier) classifyStruct(t reflect.Type, depth int, reported reflect.Type) (Classification, error) {
	if depth >= c.embedDepth {
		return Simple, &neogm.ConfigurationError{
			Type: reported.String(),
			Msg:  fmt.Sprintf("embedded nesting exceeds ceiling %d", c.embedDepth),
		}
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		if isSimple(t) {
			return EmbeddedComplex, nil
		}
		return c.classify(t, depth)
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if implementsNode(ft) || implementsRelationship(ft) {
			return Simple, &neogm.ConfigurationError{
				Type:  reported.String(),
				Field: f.Name,
				Msg:   "entity types cannot appear inside embedded values",
			}
		}
		if isSimple(ft) {
			continue
		}
		switch ft.Kind() {
		case reflect.Slice, reflect.Array:
			elem := ft.Elem()
			if isSimple(elem) {
				continue
			}
			if _, err := c.classifyStruct(elem, depth+1, reported); err != nil {
				return Simple, err
			}
		case reflect.Map:
			if isSimple(ft.Key()) && isSimple(ft.Elem()) {
				continue
			}
			if _, err := c.classifyStruct(ft.Elem(), depth+1, reported); err != nil {
				return Simple, err
			}
		case reflect.Struct:
			if _, err := c.classifyStruct(ft, depth+1, reported); err != nil {
				return Simple, err
			}
		default:
			return Simple, &neogm.ConfigurationError{
				Type:  reported.String(),
				Field: f.Name,
				Msg:   fmt.Sprintf("unsupported field kind %s", ft.Kind()),
			}
		}
	}
	return EmbeddedComplex, nil
}

// isSimple reports whether t stores directly as a graph property. Named
// string and integer types cover enums.
func isSimple(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case timeType, uuidType, decimalType:
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	// []byte stores as a byte-array property.
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return true
	}
	return false
}

func implementsNode(t reflect.Type) bool {
	return t.Implements(nodeIface) || reflect.PointerTo(t).Implements(nodeIface)
}

func implementsRelationship(t reflect.Type) bool {
	return t.Implements(relationshipIface) || reflect.PointerTo(t).Implements(relationshipIface)
}
