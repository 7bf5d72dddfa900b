package expr

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Typed fields give models a type-safe predicate surface. A field is its
// own dotted path, so one declaration covers both direct properties and
// members of related values:
//
//	var (
//		Name   = expr.StringField("name")
//		Age    = expr.IntField("age")
//		Street = expr.StringField("home.street")
//	)
//	q.Where(expr.And(Name.HasPrefix("Al"), Age.GTE(18)))

func cmp(path string, op Op, v any) Expr {
	return Comparison{Path: ParsePath(path), Op: op, Value: v}
}

// StringField is a string-valued field path.
type StringField string

// EQ checks if the field equals the given value.
func (f StringField) EQ(v string) Expr { return cmp(string(f), OpEQ, v) }

// NEQ checks if the field does not equal the given value.
func (f StringField) NEQ(v string) Expr { return cmp(string(f), OpNEQ, v) }

// GT checks if the field is greater than the given value.
func (f StringField) GT(v string) Expr { return cmp(string(f), OpGT, v) }

// GTE checks if the field is greater than or equal to the given value.
func (f StringField) GTE(v string) Expr { return cmp(string(f), OpGTE, v) }

// LT checks if the field is less than the given value.
func (f StringField) LT(v string) Expr { return cmp(string(f), OpLT, v) }

// LTE checks if the field is less than or equal to the given value.
func (f StringField) LTE(v string) Expr { return cmp(string(f), OpLTE, v) }

// Contains checks if the field contains the given substring.
func (f StringField) Contains(v string) Expr { return cmp(string(f), OpContains, v) }

// HasPrefix checks if the field starts with the given prefix.
func (f StringField) HasPrefix(v string) Expr { return cmp(string(f), OpHasPrefix, v) }

// HasSuffix checks if the field ends with the given suffix.
func (f StringField) HasSuffix(v string) Expr { return cmp(string(f), OpHasSuffix, v) }

// In checks if the field value is in the given list.
func (f StringField) In(vs ...string) Expr { return cmp(string(f), OpIn, vs) }

// IsNull checks if the field is absent.
func (f StringField) IsNull() Expr { return cmp(string(f), OpIsNull, nil) }

// NotNull checks if the field is present.
func (f StringField) NotNull() Expr { return cmp(string(f), OpNotNull, nil) }

// Numeric is the constraint for NumberField value types.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// NumberField is a numeric field path, generic over the Go number type.
type NumberField[T Numeric] string

// EQ checks if the field equals the given value.
func (f NumberField[T]) EQ(v T) Expr { return cmp(string(f), OpEQ, v) }

// NEQ checks if the field does not equal the given value.
func (f NumberField[T]) NEQ(v T) Expr { return cmp(string(f), OpNEQ, v) }

// GT checks if the field is greater than the given value.
func (f NumberField[T]) GT(v T) Expr { return cmp(string(f), OpGT, v) }

// GTE checks if the field is greater than or equal to the given value.
func (f NumberField[T]) GTE(v T) Expr { return cmp(string(f), OpGTE, v) }

// LT checks if the field is less than the given value.
func (f NumberField[T]) LT(v T) Expr { return cmp(string(f), OpLT, v) }

// LTE checks if the field is less than or equal to the given value.
func (f NumberField[T]) LTE(v T) Expr { return cmp(string(f), OpLTE, v) }

// In checks if the field value is in the given list.
func (f NumberField[T]) In(vs ...T) Expr { return cmp(string(f), OpIn, vs) }

// IsNull checks if the field is absent.
func (f NumberField[T]) IsNull() Expr { return cmp(string(f), OpIsNull, nil) }

// NotNull checks if the field is present.
func (f NumberField[T]) NotNull() Expr { return cmp(string(f), OpNotNull, nil) }

// IntField is NumberField[int].
type IntField = NumberField[int]

// Int64Field is NumberField[int64].
type Int64Field = NumberField[int64]

// FloatField is NumberField[float64].
type FloatField = NumberField[float64]

// BoolField is a boolean field path.
type BoolField string

// EQ checks if the field equals the given value.
func (f BoolField) EQ(v bool) Expr { return cmp(string(f), OpEQ, v) }

// NEQ checks if the field does not equal the given value.
func (f BoolField) NEQ(v bool) Expr { return cmp(string(f), OpNEQ, v) }

// IsNull checks if the field is absent.
func (f BoolField) IsNull() Expr { return cmp(string(f), OpIsNull, nil) }

// NotNull checks if the field is present.
func (f BoolField) NotNull() Expr { return cmp(string(f), OpNotNull, nil) }

// TimeField is a time-valued field path.
type TimeField string

// EQ checks if the field equals the given instant.
func (f TimeField) EQ(v time.Time) Expr { return cmp(string(f), OpEQ, v) }

// NEQ checks if the field does not equal the given instant.
func (f TimeField) NEQ(v time.Time) Expr { return cmp(string(f), OpNEQ, v) }

// Before checks if the field is strictly before the given instant.
func (f TimeField) Before(v time.Time) Expr { return cmp(string(f), OpLT, v) }

// After checks if the field is strictly after the given instant.
func (f TimeField) After(v time.Time) Expr { return cmp(string(f), OpGT, v) }

// NotBefore checks if the field is at or after the given instant.
func (f TimeField) NotBefore(v time.Time) Expr { return cmp(string(f), OpGTE, v) }

// NotAfter checks if the field is at or before the given instant.
func (f TimeField) NotAfter(v time.Time) Expr { return cmp(string(f), OpLTE, v) }

// IsNull checks if the field is absent.
func (f TimeField) IsNull() Expr { return cmp(string(f), OpIsNull, nil) }

// NotNull checks if the field is present.
func (f TimeField) NotNull() Expr { return cmp(string(f), OpNotNull, nil) }

// UUIDField is a UUID-valued field path. Values compare by their canonical
// string form.
type UUIDField string

// EQ checks if the field equals the given UUID.
func (f UUIDField) EQ(v uuid.UUID) Expr { return cmp(string(f), OpEQ, v.String()) }

// NEQ checks if the field does not equal the given UUID.
func (f UUIDField) NEQ(v uuid.UUID) Expr { return cmp(string(f), OpNEQ, v.String()) }

// In checks if the field value is in the given list.
func (f UUIDField) In(vs ...uuid.UUID) Expr {
	ss := make([]string, len(vs))
	for i, v := range vs {
		ss[i] = v.String()
	}
	return cmp(string(f), OpIn, ss)
}

// DecimalField is a decimal-valued field path. Values compare by their
// canonical string form to avoid float drift on the wire.
type DecimalField string

// EQ checks if the field equals the given decimal.
func (f DecimalField) EQ(v decimal.Decimal) Expr { return cmp(string(f), OpEQ, v.String()) }

// NEQ checks if the field does not equal the given decimal.
func (f DecimalField) NEQ(v decimal.Decimal) Expr { return cmp(string(f), OpNEQ, v.String()) }

// GT checks if the field is greater than the given decimal.
func (f DecimalField) GT(v decimal.Decimal) Expr { return cmp(string(f), OpGT, v.String()) }

// LT checks if the field is less than the given decimal.
func (f DecimalField) LT(v decimal.Decimal) Expr { return cmp(string(f), OpLT, v.String()) }

// CollectionField is a field path holding a homogeneous collection of
// simple values.
type CollectionField[T comparable] string

// Contains checks if any element of the collection equals the given value.
func (f CollectionField[T]) Contains(v T) Expr { return cmp(string(f), OpContains, v) }

// IsNull checks if the field is absent.
func (f CollectionField[T]) IsNull() Expr { return cmp(string(f), OpIsNull, nil) }

// NotNull checks if the field is present.
func (f CollectionField[T]) NotNull() Expr { return cmp(string(f), OpNotNull, nil) }
