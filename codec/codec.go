package codec

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/syssam/neogm"
	"github.com/syssam/neogm/schema"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// EntityInfo is the wire shape of one encoded entity: its identity, label,
// direct properties, embedded blobs, and satellite nodes.
type EntityInfo struct {
	ID       string
	Label    string
	Props    map[string]any    // direct properties, excluding id
	Embedded map[string]string // canonical blobs keyed by field name
	Related  []RelatedEntity   // satellites in declaration order

	// Relationship endpoints; empty for nodes and satellites.
	StartID string
	EndID   string
}

// A RelatedEntity is one satellite node hanging off a private relationship.
type RelatedEntity struct {
	Field   string
	Token   string
	Ordinal int // element position, -1 for single values
	Target  EntityInfo
}

// A RelatedRow is one satellite row read back from storage: the private
// relationship's properties and the satellite node's properties.
type RelatedRow struct {
	Token     string
	RelProps  map[string]any
	NodeProps map[string]any
}

// idSetter is satisfied by pointers to NodeBase and RelationshipBase.
type idSetter interface {
	SetEntityID(string)
}

// EncodeNode converts a node entity into its wire shape. The node's type
// is registered on demand with default options. A node without an identity
// is assigned one when it is addressable.
func EncodeNode(n neogm.Node) (*EntityInfo, error) {
	m, err := schema.Node(n)
	if err != nil {
		return nil, err
	}
	id := n.EntityID()
	if id == "" {
		s, ok := n.(idSetter)
		if !ok {
			return nil, &neogm.ValidationError{
				Name: "id",
				Err:  fmt.Errorf("%s has no identity and is not addressable", m.Label),
			}
		}
		id = neogm.NewID()
		s.SetEntityID(id)
	}
	info := &EntityInfo{ID: id, Label: m.Label}
	if err := encodeFields(m, structValue(n), id, info); err != nil {
		return nil, err
	}
	return info, nil
}

// EncodeRelationship converts a relationship entity into its wire shape.
// Both endpoints must carry identities.
func EncodeRelationship(r neogm.Relationship) (*EntityInfo, error) {
	m, err := schema.Relationship(r)
	if err != nil {
		return nil, err
	}
	if r.StartID() == "" || r.EndID() == "" {
		return nil, &neogm.ValidationError{
			Name: "endpoints",
			Err:  fmt.Errorf("%s requires start and end node identities", m.Label),
		}
	}
	id := r.EntityID()
	if id == "" {
		s, ok := r.(idSetter)
		if !ok {
			return nil, &neogm.ValidationError{
				Name: "id",
				Err:  fmt.Errorf("%s has no identity and is not addressable", m.Label),
			}
		}
		id = neogm.NewID()
		s.SetEntityID(id)
	}
	info := &EntityInfo{ID: id, Label: m.Label, StartID: r.StartID(), EndID: r.EndID()}
	if err := encodeFields(m, structValue(r), id, info); err != nil {
		return nil, err
	}
	return info, nil
}

func structValue(v any) reflect.Value {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	return rv
}

func encodeFields(m *schema.Model, v reflect.Value, parentID string, info *EntityInfo) error {
	info.Props = map[string]any{}
	for i := range m.Fields {
		f := &m.Fields[i]
		fv := v.FieldByIndex(f.Index)
		switch fv.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map:
			// Absent values stay absent; a nil collection must not come
			// back as an empty one.
			if fv.IsNil() {
				continue
			}
		}
		switch f.Storage {
		case schema.StorageSimple:
			info.Props[f.Name] = encodeSimple(fv)
		case schema.StorageEmbedded:
			blob, err := MarshalCanonical(fv.Interface())
			if err != nil {
				return err
			}
			if info.Embedded == nil {
				info.Embedded = map[string]string{}
			}
			info.Embedded[f.Name] = blob
		case schema.StorageRelated:
			if err := encodeRelated(f, fv, parentID, info); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeRelated(f *schema.Field, fv reflect.Value, parentID string, info *EntityInfo) error {
	encodeOne := func(ev reflect.Value, ordinal int) error {
		for ev.Kind() == reflect.Pointer {
			if ev.IsNil() {
				return nil
			}
			ev = ev.Elem()
		}
		sat, err := schema.SatelliteOf(ev.Type())
		if err != nil {
			return err
		}
		idx := ordinal
		if idx < 0 {
			idx = 0
		}
		target := EntityInfo{
			// Satellite identities derive from the parent so rewrites
			// replace rather than accumulate.
			ID:    fmt.Sprintf("%s_%s_%d", parentID, f.Name, idx),
			Label: sat.Label,
		}
		if err := encodeFields(sat, ev, target.ID, &target); err != nil {
			return err
		}
		info.Related = append(info.Related, RelatedEntity{
			Field:   f.Name,
			Token:   f.Token,
			Ordinal: ordinal,
			Target:  target,
		})
		return nil
	}

	if !f.Ordinal {
		return encodeOne(fv, -1)
	}
	for fv.Kind() == reflect.Pointer {
		fv = fv.Elem()
	}
	for i := 0; i < fv.Len(); i++ {
		if err := encodeOne(fv.Index(i), i); err != nil {
			return err
		}
	}
	return nil
}

// encodeSimple lowers a simple value into a driver-storable one: UUIDs and
// decimals to their canonical strings, enums to their underlying kind,
// collections element-wise. Times pass through for the driver to encode
// natively.
func encodeSimple(v reflect.Value) any {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Type() {
	case timeType:
		return v.Interface()
	case uuidType:
		return v.Interface().(uuid.UUID).String()
	case decimalType:
		return v.Interface().(decimal.Decimal).String()
	}
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Bytes()
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = encodeSimple(v.Index(i))
		}
		return out
	case reflect.Map:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = encodeSimple(iter.Value())
		}
		return out
	default:
		return v.Interface()
	}
}

// DecodeNode rehydrates a node entity from its stored properties and
// satellite rows. dst must be a pointer to a registered node type.
func DecodeNode(dst neogm.Node, props map[string]any, related []RelatedRow) error {
	m, err := schema.Node(dst)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &neogm.ValidationError{Name: m.Label, Err: fmt.Errorf("decode target must be a non-nil pointer")}
	}
	if id, ok := props["id"].(string); ok {
		if s, ok := dst.(idSetter); ok {
			s.SetEntityID(id)
		}
	}
	return decodeFields(m, rv.Elem(), props, nil, related)
}

// DecodeRelationship rehydrates a relationship entity from its stored
// properties and endpoint identities.
func DecodeRelationship(dst neogm.Relationship, props map[string]any, startID, endID string) error {
	m, err := schema.Relationship(dst)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &neogm.ValidationError{Name: m.Label, Err: fmt.Errorf("decode target must be a non-nil pointer")}
	}
	if id, ok := props["id"].(string); ok {
		if s, ok := dst.(idSetter); ok {
			s.SetEntityID(id)
		}
	}
	type endpointSetter interface {
		SetStartID(string)
		SetEndID(string)
	}
	if s, ok := dst.(endpointSetter); ok {
		s.SetStartID(startID)
		s.SetEndID(endID)
	}
	return decodeFields(m, rv.Elem(), props, nil, nil)
}

func decodeFields(m *schema.Model, v reflect.Value, props map[string]any, embedded map[string]string, related []RelatedRow) error {
	for i := range m.Fields {
		f := &m.Fields[i]
		fv := v.FieldByIndex(f.Index)
		switch f.Storage {
		case schema.StorageSimple:
			raw, ok := props[f.Name]
			if !ok || raw == nil {
				if err := applyAbsent(m, f, fv); err != nil {
					return err
				}
				continue
			}
			if err := decodeSimple(fv, raw); err != nil {
				return &neogm.ValidationError{Name: f.Name, Err: err}
			}
		case schema.StorageEmbedded:
			blob, ok := embedded[f.Name]
			if !ok {
				// Embedded blobs land in the property bag on the wire.
				if s, sok := props[f.Name].(string); sok {
					blob, ok = s, true
				}
			}
			if !ok {
				if err := applyAbsent(m, f, fv); err != nil {
					return err
				}
				continue
			}
			if err := UnmarshalCanonical(blob, fv.Addr().Interface()); err != nil {
				return &neogm.ValidationError{Name: f.Name, Err: err}
			}
		case schema.StorageRelated:
			rows := rowsForToken(related, f.Token)
			if len(rows) == 0 {
				if err := applyAbsent(m, f, fv); err != nil {
					return err
				}
				continue
			}
			if err := decodeRelated(f, fv, rows); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyAbsent(m *schema.Model, f *schema.Field, fv reflect.Value) error {
	if f.Default != nil {
		dv := reflect.ValueOf(f.Default)
		target := fv
		for target.Kind() == reflect.Pointer {
			if target.IsNil() {
				target.Set(reflect.New(target.Type().Elem()))
			}
			target = target.Elem()
		}
		if dv.Type().AssignableTo(target.Type()) {
			target.Set(dv)
			return nil
		}
		if dv.Type().ConvertibleTo(target.Type()) {
			target.Set(dv.Convert(target.Type()))
			return nil
		}
		return decodeSimple(fv, f.Default)
	}
	if f.Required {
		return &neogm.ValidationError{
			Name: f.Name,
			Err:  fmt.Errorf("required by %s but absent", m.Label),
		}
	}
	return nil
}

func rowsForToken(rows []RelatedRow, token string) []RelatedRow {
	var out []RelatedRow
	for _, r := range rows {
		if r.Token == token {
			out = append(out, r)
		}
	}
	return out
}

func decodeRelated(f *schema.Field, fv reflect.Value, rows []RelatedRow) error {
	decodeTarget := func(tv reflect.Value, props map[string]any) error {
		for tv.Kind() == reflect.Pointer {
			if tv.IsNil() {
				tv.Set(reflect.New(tv.Type().Elem()))
			}
			tv = tv.Elem()
		}
		sat, err := schema.SatelliteOf(tv.Type())
		if err != nil {
			return err
		}
		return decodeFields(sat, tv, props, nil, nil)
	}

	if !f.Ordinal {
		return decodeTarget(fv, rows[0].NodeProps)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return ordinalOf(rows[i]) < ordinalOf(rows[j])
	})
	t := fv.Type()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	slice := reflect.MakeSlice(t, len(rows), len(rows))
	for i, row := range rows {
		if err := decodeTarget(slice.Index(i), row.NodeProps); err != nil {
			return err
		}
	}
	target := fv
	for target.Kind() == reflect.Pointer {
		if target.IsNil() {
			target.Set(reflect.New(target.Type().Elem()))
		}
		target = target.Elem()
	}
	target.Set(slice)
	return nil
}

func ordinalOf(r RelatedRow) int64 {
	switch v := r.RelProps[schema.OrdinalProperty].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// decodeSimple assigns a stored value onto a declared field, converting
// between the driver's value set and the field's Go type.
func decodeSimple(fv reflect.Value, raw any) error {
	for fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		fv = fv.Elem()
	}
	t := fv.Type()
	switch t {
	case timeType:
		switch v := raw.(type) {
		case time.Time:
			fv.Set(reflect.ValueOf(v))
			return nil
		case string:
			ts, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return err
			}
			fv.Set(reflect.ValueOf(ts))
			return nil
		}
		return fmt.Errorf("cannot decode %T into time.Time", raw)
	case uuidType:
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("cannot decode %T into uuid.UUID", raw)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(id))
		return nil
	case decimalType:
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("cannot decode %T into decimal.Decimal", raw)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(d))
		return nil
	}
	switch fv.Kind() {
	case reflect.Bool:
		v, ok := raw.(bool)
		if !ok {
			return fmt.Errorf("cannot decode %T into bool", raw)
		}
		fv.SetBool(v)
	case reflect.String:
		v, ok := raw.(string)
		if !ok {
			return fmt.Errorf("cannot decode %T into string", raw)
		}
		fv.SetString(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := asInt64(raw)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := asInt64(raw)
		if err != nil {
			return err
		}
		fv.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		switch v := raw.(type) {
		case float64:
			fv.SetFloat(v)
		case int64:
			fv.SetFloat(float64(v))
		default:
			return fmt.Errorf("cannot decode %T into float", raw)
		}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			v, ok := raw.([]byte)
			if !ok {
				return fmt.Errorf("cannot decode %T into bytes", raw)
			}
			fv.SetBytes(v)
			return nil
		}
		items, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("cannot decode %T into slice", raw)
		}
		slice := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			if err := decodeSimple(slice.Index(i), item); err != nil {
				return err
			}
		}
		fv.Set(slice)
	case reflect.Map:
		items, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot decode %T into map", raw)
		}
		mv := reflect.MakeMapWithSize(t, len(items))
		for _, k := range sortedKeys(items) {
			ev := reflect.New(t.Elem()).Elem()
			if err := decodeSimple(ev, items[k]); err != nil {
				return err
			}
			kv := reflect.New(t.Key()).Elem()
			if err := decodeSimple(kv, k); err != nil {
				return err
			}
			mv.SetMapIndex(kv, ev)
		}
		fv.Set(mv)
	default:
		return fmt.Errorf("cannot decode into %s", t)
	}
	return nil
}

func asInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		// Map keys are stringified on encode.
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("cannot decode %T into integer", raw)
	}
}
