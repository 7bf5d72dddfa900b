package schema_test

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/neogm"
	"github.com/syssam/neogm/schema"
)

type color int

type status string

type geo struct {
	Lat float64
	Lng float64
}

type address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	Geo    geo    `json:"geo"`
}

type tower struct {
	Addr address
}

type person struct {
	neogm.NodeBase
	Name string `graph:"name"`
}

type knows struct {
	neogm.RelationshipBase
	Since time.Time `graph:"since"`
}

func TestClassifySimple(t *testing.T) {
	schema.Reset()
	for _, tt := range []struct {
		name string
		v    any
	}{
		{"bool", true},
		{"string", "x"},
		{"int", 1},
		{"int64", int64(1)},
		{"uint16", uint16(1)},
		{"float", 1.5},
		{"bytes", []byte("x")},
		{"time", time.Time{}},
		{"uuid", uuid.UUID{}},
		{"decimal", decimal.Decimal{}},
		{"enum int", color(1)},
		{"enum string", status("on")},
		{"string slice", []string{"a"}},
		{"int array", [3]int{}},
		{"simple map", map[string]int{}},
		{"pointer", new(string)},
		{"enum slice", []color{1}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cl, err := schema.Classify(reflect.TypeOf(tt.v))
			require.NoError(t, err)
			assert.Equal(t, schema.Simple, cl)
		})
	}
}

func TestClassifyComplex(t *testing.T) {
	schema.Reset()

	t.Run("Embedded", func(t *testing.T) {
		cl, err := schema.Classify(reflect.TypeOf(address{}))
		require.NoError(t, err)
		assert.Equal(t, schema.EmbeddedComplex, cl)
	})

	t.Run("NestingBeyondCeiling", func(t *testing.T) {
		// tower -> address -> geo is one level past the default ceiling.
		_, err := schema.Classify(reflect.TypeOf(tower{}))
		require.Error(t, err)
		assert.True(t, neogm.IsConfigurationError(err))
	})

	t.Run("CollectionOfComplex", func(t *testing.T) {
		cl, err := schema.Classify(reflect.TypeOf([]address{}))
		require.NoError(t, err)
		assert.Equal(t, schema.RelatedCollection, cl)
	})

	t.Run("NodeContract", func(t *testing.T) {
		cl, err := schema.Classify(reflect.TypeOf(person{}))
		require.NoError(t, err)
		assert.Equal(t, schema.RelatedNode, cl)
	})

	t.Run("NodeCollection", func(t *testing.T) {
		cl, err := schema.Classify(reflect.TypeOf([]person{}))
		require.NoError(t, err)
		assert.Equal(t, schema.RelatedCollection, cl)
	})

	t.Run("RelationshipContract", func(t *testing.T) {
		_, err := schema.Classify(reflect.TypeOf(knows{}))
		assert.True(t, neogm.IsConfigurationError(err))
	})

	t.Run("UnsupportedKind", func(t *testing.T) {
		_, err := schema.Classify(reflect.TypeOf(make(chan int)))
		assert.True(t, neogm.IsConfigurationError(err))
	})
}

func TestClassifyDepthCeiling(t *testing.T) {
	// tower -> address -> geo resolves at the default ceiling of 2 but
	// not under a ceiling of 1.
	schema.ResetClassifier(1)
	defer schema.Reset()

	cl, err := schema.Classify(reflect.TypeOf(geo{}))
	require.NoError(t, err)
	assert.Equal(t, schema.EmbeddedComplex, cl)

	_, err = schema.Classify(reflect.TypeOf(address{}))
	require.Error(t, err)
	assert.True(t, neogm.IsConfigurationError(err))
}

func TestClassifyConcurrent(t *testing.T) {
	schema.Reset()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cl, err := schema.Classify(reflect.TypeOf(address{}))
			assert.NoError(t, err)
			assert.Equal(t, schema.EmbeddedComplex, cl)
		}()
	}
	wg.Wait()
}

func TestClassificationString(t *testing.T) {
	assert.Equal(t, "simple", schema.Simple.String())
	assert.Equal(t, "embedded_complex", schema.EmbeddedComplex.String())
	assert.Equal(t, "related_node", schema.RelatedNode.String())
	assert.Equal(t, "related_collection", schema.RelatedCollection.String())
}
