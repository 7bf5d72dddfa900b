package schema_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/neogm"
	"github.com/syssam/neogm/schema"
	"github.com/syssam/neogm/schema/field"
)

type Employee struct {
	neogm.NodeBase
	Name      string    `graph:"name,index"`
	Age       int       `graph:"age"`
	Tags      []string  `graph:"tags"`
	Home      address   `graph:"home"`
	Offices   []address `graph:"offices"`
	CreatedAt time.Time
	Secret    string `graph:"-"`
}

type WorksAt struct {
	neogm.RelationshipBase
	Since time.Time `graph:"since"`
	Badge address   `graph:"badge"`
}

func TestNodeRegistration(t *testing.T) {
	schema.Reset()
	m, err := schema.Node(Employee{})
	require.NoError(t, err)

	assert.Equal(t, "Employee", m.Label)
	assert.True(t, m.Node)
	assert.False(t, m.Satellite)

	t.Run("FieldOrder", func(t *testing.T) {
		var names []string
		for _, f := range m.Fields {
			names = append(names, f.Name)
		}
		assert.Equal(t, []string{"name", "age", "tags", "home", "offices", "created_at"}, names)
	})

	t.Run("TagOptions", func(t *testing.T) {
		name, ok := m.Field("name")
		require.True(t, ok)
		assert.True(t, name.Indexed)
		assert.Equal(t, schema.StorageSimple, name.Storage)

		_, hidden := m.Field("secret")
		assert.False(t, hidden)
	})

	t.Run("DerivedNames", func(t *testing.T) {
		created, ok := m.Field("created_at")
		require.True(t, ok)
		assert.Equal(t, "CreatedAt", created.GoName)
		assert.Equal(t, schema.StorageSimple, created.Storage)
	})

	t.Run("SimpleCollection", func(t *testing.T) {
		tags, ok := m.Field("tags")
		require.True(t, ok)
		assert.Equal(t, schema.Simple, tags.Class)
		assert.Equal(t, schema.StorageSimple, tags.Storage)
	})

	t.Run("ComplexSingle", func(t *testing.T) {
		home, ok := m.Field("home")
		require.True(t, ok)
		assert.Equal(t, schema.EmbeddedComplex, home.Class)
		assert.Equal(t, schema.StorageRelated, home.Storage)
		assert.Equal(t, "__PROPERTY__home__", home.Token)
		assert.False(t, home.Ordinal)
	})

	t.Run("ComplexCollection", func(t *testing.T) {
		offices, ok := m.Field("offices")
		require.True(t, ok)
		assert.Equal(t, schema.RelatedCollection, offices.Class)
		assert.Equal(t, schema.StorageRelated, offices.Storage)
		assert.Equal(t, "__PROPERTY__offices__", offices.Token)
		assert.True(t, offices.Ordinal)
		assert.Equal(t, reflect.TypeOf(address{}), offices.Elem)
	})

	t.Run("RelatedFields", func(t *testing.T) {
		related := m.RelatedFields()
		require.Len(t, related, 2)
		assert.Equal(t, "home", related[0].Name)
		assert.Equal(t, "offices", related[1].Name)
	})
}

func TestNodeRegistrationMemoized(t *testing.T) {
	schema.Reset()
	m1, err := schema.Node(Employee{})
	require.NoError(t, err)
	m2, err := schema.Node(&Employee{})
	require.NoError(t, err)
	assert.Same(t, m1, m2)

	got, ok := schema.Lookup(reflect.TypeOf(&Employee{}))
	require.True(t, ok)
	assert.Same(t, m1, got)
}

func TestNodeOptions(t *testing.T) {
	type Tagged struct {
		neogm.NodeBase
		Name string
		Home address
	}

	t.Run("Label", func(t *testing.T) {
		schema.Reset()
		m, err := schema.Node(Tagged{}, schema.WithLabel("Worker"))
		require.NoError(t, err)
		assert.Equal(t, "Worker", m.Label)
	})

	t.Run("LabelOverride", func(t *testing.T) {
		schema.Reset()
		m, err := schema.Node(Tagged{},
			schema.WithField(field.Simple("name").Label("full_name")),
		)
		require.NoError(t, err)
		f, ok := m.Field("full_name")
		require.True(t, ok)
		assert.Equal(t, "Name", f.GoName)
		_, ok = m.Field("name")
		assert.False(t, ok)
	})

	t.Run("IllegalLabelRejected", func(t *testing.T) {
		schema.Reset()
		_, err := schema.Node(Tagged{},
			schema.WithField(field.Simple("name").Label("x: 1}) DETACH DELETE n //")),
		)
		assert.True(t, neogm.IsNamingError(err))
	})

	t.Run("LabelCollision", func(t *testing.T) {
		schema.Reset()
		_, err := schema.Node(Tagged{},
			schema.WithField(field.Simple("name").Label("home")),
		)
		assert.True(t, neogm.IsConfigurationError(err))
	})

	t.Run("FieldBuilder", func(t *testing.T) {
		schema.Reset()
		m, err := schema.Node(Tagged{},
			schema.WithField(field.Simple("name").Index().Required().Default("anon")),
			schema.WithField(field.Embedded("home")),
		)
		require.NoError(t, err)
		name, _ := m.Field("name")
		assert.True(t, name.Indexed)
		assert.True(t, name.Required)
		assert.Equal(t, "anon", name.Default)
		home, _ := m.Field("home")
		assert.Equal(t, schema.StorageEmbedded, home.Storage)
		assert.Empty(t, home.Token)
	})

	t.Run("CustomToken", func(t *testing.T) {
		schema.Reset()
		m, err := schema.Node(Tagged{},
			schema.WithField(field.Related("home").Token("HAS_HOME")),
		)
		require.NoError(t, err)
		home, _ := m.Field("home")
		assert.Equal(t, "HAS_HOME", home.Token)
	})

	t.Run("PrivateTokenRejected", func(t *testing.T) {
		schema.Reset()
		_, err := schema.Node(Tagged{},
			schema.WithField(field.Related("home").Token("__PROPERTY__home__")),
		)
		assert.True(t, neogm.IsNamingError(err))
	})

	t.Run("UnknownFieldOption", func(t *testing.T) {
		schema.Reset()
		_, err := schema.Node(Tagged{},
			schema.WithField(field.Simple("nope")),
		)
		assert.True(t, neogm.IsConfigurationError(err))
	})

	t.Run("RelatedOnSimple", func(t *testing.T) {
		schema.Reset()
		_, err := schema.Node(Tagged{},
			schema.WithField(field.Related("name")),
		)
		assert.True(t, neogm.IsConfigurationError(err))
	})
}

func TestRelationshipRegistration(t *testing.T) {
	schema.Reset()
	m, err := schema.Relationship(WorksAt{})
	require.NoError(t, err)

	assert.Equal(t, "WORKS_AT", m.Label)
	assert.False(t, m.Node)

	since, ok := m.Field("since")
	require.True(t, ok)
	assert.Equal(t, schema.StorageSimple, since.Storage)

	// Complex values on relationships fold into a blob; relationships
	// cannot hang satellites.
	badge, ok := m.Field("badge")
	require.True(t, ok)
	assert.Equal(t, schema.StorageEmbedded, badge.Storage)
}

func TestRelationshipRejectsSatellites(t *testing.T) {
	type Owns struct {
		neogm.RelationshipBase
		Proof address `graph:"proof"`
	}
	schema.Reset()
	_, err := schema.Relationship(Owns{}, schema.WithField(field.Related("proof")))
	assert.True(t, neogm.IsConfigurationError(err))
}

func TestNodeFieldsRejected(t *testing.T) {
	t.Run("NodeTyped", func(t *testing.T) {
		type Team struct {
			neogm.NodeBase
			Lead Employee `graph:"lead"`
		}
		schema.Reset()
		_, err := schema.Node(Team{})
		assert.True(t, neogm.IsConfigurationError(err))
	})

	t.Run("NodeCollection", func(t *testing.T) {
		type Team struct {
			neogm.NodeBase
			Members []Employee `graph:"members"`
		}
		schema.Reset()
		_, err := schema.Node(Team{})
		assert.True(t, neogm.IsConfigurationError(err))
	})

	t.Run("EmbeddedComplexCollection", func(t *testing.T) {
		type Branch struct {
			neogm.NodeBase
			Sites []address `graph:"sites"`
		}
		schema.Reset()
		_, err := schema.Node(Branch{}, schema.WithField(field.Embedded("sites")))
		assert.True(t, neogm.IsConfigurationError(err))
	})
}

func TestRegistrationContractChecks(t *testing.T) {
	t.Run("NotAStruct", func(t *testing.T) {
		schema.Reset()
		_, err := schema.Node(42)
		assert.True(t, neogm.IsConfigurationError(err))
	})

	t.Run("MissingNodeBase", func(t *testing.T) {
		type Plain struct{ Name string }
		schema.Reset()
		_, err := schema.Node(Plain{})
		assert.True(t, neogm.IsConfigurationError(err))
	})

	t.Run("MissingRelationshipBase", func(t *testing.T) {
		schema.Reset()
		_, err := schema.Relationship(Employee{})
		assert.True(t, neogm.IsConfigurationError(err))
	})
}

func TestDuplicateStorageName(t *testing.T) {
	type Clash struct {
		neogm.NodeBase
		A string `graph:"x"`
		B string `graph:"x"`
	}
	schema.Reset()
	_, err := schema.Node(Clash{})
	assert.True(t, neogm.IsConfigurationError(err))
}

func TestSatelliteOf(t *testing.T) {
	schema.Reset()
	m, err := schema.SatelliteOf(reflect.TypeOf(address{}))
	require.NoError(t, err)
	assert.True(t, m.Satellite)
	assert.Equal(t, "address", m.Label)

	street, ok := m.Field("street")
	require.True(t, ok)
	assert.Equal(t, schema.StorageSimple, street.Storage)

	// Nested complex values inside a satellite fold into a blob.
	geoField, ok := m.Field("geo")
	require.True(t, ok)
	assert.Equal(t, schema.StorageEmbedded, geoField.Storage)

	t.Run("RejectsEntities", func(t *testing.T) {
		_, err := schema.SatelliteOf(reflect.TypeOf(Employee{}))
		assert.True(t, neogm.IsConfigurationError(err))
	})
}

func TestStorageString(t *testing.T) {
	assert.Equal(t, "simple", schema.StorageSimple.String())
	assert.Equal(t, "embedded", schema.StorageEmbedded.String())
	assert.Equal(t, "related", schema.StorageRelated.String())
}
