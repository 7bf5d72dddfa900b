package cypher

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/neogm"
	"github.com/syssam/neogm/expr"
)

// snapshot renders a compiled query for golden comparison: the text, a
// separator, then the parameters sorted by name.
func snapshot(q Query) []byte {
	var sb strings.Builder
	sb.WriteString(q.Text)
	sb.WriteString("\n---\n")
	names := make([]string, 0, len(q.Params))
	for k := range q.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(&sb, "%s = %v\n", k, q.Params[k])
	}
	return []byte(sb.String())
}

func TestBuildGolden(t *testing.T) {
	person := personModel(t)
	knows := knowsModel(t)
	g := goldie.New(t)

	for _, tt := range []struct {
		name  string
		b     *Builder
		build func(*Builder) (Query, error)
	}{
		{
			name: "entity_filter_page",
			b: NewBuilder(person).
				Where(expr.And(
					expr.IntField("age").GTE(18),
					expr.StringField("home.city").EQ("Oslo"),
				)).
				OrderBy(expr.Desc("age"), expr.Asc("name")).
				Skip(10).
				Limit(5),
		},
		{
			name: "group_having_order",
			b: NewBuilder(person).
				GroupBy("age").
				Aggregate(expr.Count("headcount"), expr.Avg("age", "mean")).
				Having(expr.Int64Field("headcount").GT(1)).
				OrderBy(expr.Desc("headcount")),
		},
		{
			name: "global_aggregate",
			b: NewBuilder(person).
				Aggregate(expr.Min("age", "youngest"), expr.Max("age", "oldest")),
		},
		{
			name: "projection",
			b: NewBuilder(person).
				Where(expr.CollectionField[string]("tags").Contains("go")).
				Project("name", "age"),
		},
		{
			name: "relationship_entity",
			b: NewBuilder(knows).
				Where(expr.FloatField("weight").GT(0.5)).
				OrderBy(expr.Asc("weight")),
		},
		{
			name:  "count",
			b:     NewBuilder(person).Where(expr.StringField("name").HasPrefix("Al")),
			build: (*Builder).BuildCount,
		},
		{
			name:  "exists",
			b:     NewBuilder(person).Where(expr.StringField("name").EQ("Alice")),
			build: (*Builder).BuildExists,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			build := tt.build
			if build == nil {
				build = (*Builder).Build
			}
			q, err := build(tt.b)
			require.NoError(t, err)
			g.Assert(t, tt.name, snapshot(q))
		})
	}
}

func TestBuildDeterministic(t *testing.T) {
	person := personModel(t)
	b := NewBuilder(person).
		Where(expr.And(
			expr.IntField("age").GTE(18),
			expr.StringField("home.city").EQ("Oslo"),
		)).
		OrderBy(expr.Desc("age")).
		Limit(5)
	q1, err := b.Build()
	require.NoError(t, err)
	q2, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, q1, q2)
}

func TestBuilderImmutable(t *testing.T) {
	person := personModel(t)
	base := NewBuilder(person)
	base.Where(expr.StringField("name").EQ("Alice")).Limit(1)

	q, err := base.Build()
	require.NoError(t, err)
	assert.NotContains(t, q.Text, "WHERE")
	assert.NotContains(t, q.Text, "LIMIT")
}

func TestBuildValidation(t *testing.T) {
	person := personModel(t)

	t.Run("NegativeSkip", func(t *testing.T) {
		_, err := NewBuilder(person).Skip(-1).Build()
		assert.True(t, neogm.IsValidationError(err))
	})

	t.Run("NegativeLimit", func(t *testing.T) {
		_, err := NewBuilder(person).Limit(-1).Build()
		assert.True(t, neogm.IsValidationError(err))
	})

	t.Run("HavingWithoutGroupBy", func(t *testing.T) {
		_, err := NewBuilder(person).
			Aggregate(expr.Count("headcount")).
			Having(expr.Int64Field("headcount").GT(1)).
			Build()
		assert.True(t, neogm.IsHavingWithoutGroupBy(err))
	})

	t.Run("ProjectWithGrouping", func(t *testing.T) {
		_, err := NewBuilder(person).
			GroupBy("age").
			Project("name").
			Build()
		assert.True(t, neogm.IsValidationError(err))
	})

	t.Run("DuplicateAggregateAlias", func(t *testing.T) {
		_, err := NewBuilder(person).
			Aggregate(expr.Count("x"), expr.Sum("age", "x")).
			Build()
		assert.True(t, neogm.IsValidationError(err))
	})

	t.Run("IllegalAggregateAlias", func(t *testing.T) {
		_, err := NewBuilder(person).
			Aggregate(expr.Count("1bad")).
			Build()
		assert.True(t, neogm.IsValidationError(err))
	})

	t.Run("GroupByUnknownField", func(t *testing.T) {
		_, err := NewBuilder(person).
			GroupBy("employer").
			Aggregate(expr.Count("headcount")).
			Build()
		assert.True(t, neogm.IsUnsupportedExpression(err))
	})

	t.Run("GroupByRelatedField", func(t *testing.T) {
		_, err := NewBuilder(person).
			GroupBy("home").
			Aggregate(expr.Count("headcount")).
			Build()
		assert.True(t, neogm.IsUnsupportedExpression(err))
	})

	t.Run("OrderGroupedByNonAlias", func(t *testing.T) {
		_, err := NewBuilder(person).
			GroupBy("age").
			Aggregate(expr.Count("headcount")).
			OrderBy(expr.Asc("name")).
			Build()
		assert.True(t, neogm.IsUnsupportedExpression(err))
	})

	t.Run("OrderByMember", func(t *testing.T) {
		_, err := NewBuilder(person).
			OrderBy(expr.Asc("home.city")).
			Build()
		assert.True(t, neogm.IsUnsupportedExpression(err))
	})

	t.Run("AggregateOverMember", func(t *testing.T) {
		_, err := NewBuilder(person).
			Aggregate(expr.Sum("home.city", "total")).
			Build()
		assert.True(t, neogm.IsUnsupportedExpression(err))
	})
}
