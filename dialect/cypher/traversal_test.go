package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/neogm"
	"github.com/syssam/neogm/expr"
	"github.com/syssam/neogm/schema"
)

func TestNewPattern(t *testing.T) {
	p, err := NewPattern("KNOWS")
	require.NoError(t, err)
	assert.Equal(t, "KNOWS", p.Token())
	assert.Equal(t, neogm.Outgoing, p.Direction())
	min, max := p.Depth()
	assert.Equal(t, 1, min)
	assert.Equal(t, 1, max)

	t.Run("PrivateToken", func(t *testing.T) {
		_, err := NewPattern("__PROPERTY__home__")
		assert.True(t, neogm.IsInvalidTraversal(err))
	})

	t.Run("IllegalToken", func(t *testing.T) {
		_, err := NewPattern("knows")
		assert.True(t, neogm.IsNamingError(err))
	})
}

func TestPatternRender(t *testing.T) {
	base, err := NewPattern("KNOWS")
	require.NoError(t, err)

	for _, tt := range []struct {
		name string
		p    func() Pattern
		want string
	}{
		{
			"SingleHop",
			func() Pattern { return base },
			"-[r:KNOWS]->",
		},
		{
			"Incoming",
			func() Pattern { return base.WithDirection(neogm.Incoming) },
			"<-[r:KNOWS]-",
		},
		{
			"Both",
			func() Pattern { return base.WithDirection(neogm.Both) },
			"-[r:KNOWS]-",
		},
		{
			"ExactDepth",
			func() Pattern {
				p, err := base.WithDepth(3, 3)
				require.NoError(t, err)
				return p
			},
			"-[r:KNOWS*3]->",
		},
		{
			"DepthRange",
			func() Pattern {
				p, err := base.WithDepth(1, 4)
				require.NoError(t, err)
				return p
			},
			"-[r:KNOWS*1..4]->",
		},
		{
			"RangeIncoming",
			func() Pattern {
				p, err := base.WithDepth(2, 5)
				require.NoError(t, err)
				return p.WithDirection(neogm.Incoming)
			},
			"<-[r:KNOWS*2..5]-",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p().Render())
		})
	}
}

func TestPatternDepthValidation(t *testing.T) {
	base, err := NewPattern("KNOWS")
	require.NoError(t, err)

	t.Run("ZeroMin", func(t *testing.T) {
		_, err := base.WithDepth(0, 2)
		assert.True(t, neogm.IsValidationError(err))
	})

	t.Run("DescendingRange", func(t *testing.T) {
		_, err := base.WithDepth(3, 2)
		assert.True(t, neogm.IsValidationError(err))
	})

	t.Run("BeyondCeiling", func(t *testing.T) {
		_, err := base.WithDepth(1, DefaultDepthCeiling+2)
		require.Error(t, err)
		assert.True(t, neogm.IsDepthLimitExceeded(err))
		assert.EqualError(t, err, "neogm: traversal depth 12 exceeds ceiling 10")
	})

	t.Run("RaisedCeiling", func(t *testing.T) {
		p, err := base.WithCeiling(20).WithDepth(1, 12)
		require.NoError(t, err)
		assert.Equal(t, "-[r:KNOWS*1..12]->", p.Render())
	})

	t.Run("CeilingFloor", func(t *testing.T) {
		_, err := base.WithCeiling(0).WithDepth(1, 11)
		assert.True(t, neogm.IsDepthLimitExceeded(err))
	})

	t.Run("OmittedMaxClampsToCeiling", func(t *testing.T) {
		p, err := base.WithDepth(2, 0)
		require.NoError(t, err)
		min, max := p.Depth()
		assert.Equal(t, 2, min)
		assert.Equal(t, DefaultDepthCeiling, max)
		assert.Equal(t, "-[r:KNOWS*2..10]->", p.Render())
	})

	t.Run("OmittedMaxHonorsRaisedCeiling", func(t *testing.T) {
		p, err := base.WithCeiling(20).WithDepth(1, 0)
		require.NoError(t, err)
		_, max := p.Depth()
		assert.Equal(t, 20, max)
	})
}

func TestBuildTraversal(t *testing.T) {
	p, err := NewPattern("KNOWS")
	require.NoError(t, err)
	p, err = p.WithDepth(1, 2)
	require.NoError(t, err)

	person := personModel(t)
	q, err := BuildTraversal(p, "Person", person, []string{"p1", "p2"}, nil)
	require.NoError(t, err)
	assert.Equal(t,
		"MATCH (start:Person)-[r:KNOWS*1..2]->(target:Person)\n"+
			"WHERE start.id IN $start_ids\n"+
			"RETURN start, r, target",
		q.Text)
	assert.Equal(t, map[string]any{"start_ids": []string{"p1", "p2"}}, q.Params)

	t.Run("TargetFilter", func(t *testing.T) {
		q, err := BuildTraversal(p, "Person", person, []string{"p1"},
			expr.IntField("age").GT(21))
		require.NoError(t, err)
		assert.Equal(t,
			"MATCH (start:Person)-[r:KNOWS*1..2]->(target:Person)\n"+
				"WHERE (start.id IN $start_ids) AND (target.age > $age_0)\n"+
				"RETURN start, r, target",
			q.Text)
		assert.Equal(t, map[string]any{
			"start_ids": []string{"p1"},
			"age_0":     21,
		}, q.Params)
	})

	t.Run("FilterError", func(t *testing.T) {
		_, err := BuildTraversal(p, "Person", person, []string{"p1"},
			expr.IntField("no_such").EQ(1))
		assert.True(t, neogm.IsUnsupportedExpression(err))
	})

	t.Run("IllegalLabel", func(t *testing.T) {
		_, err := BuildTraversal(p, "Bad Label", person, nil, nil)
		assert.True(t, neogm.IsNamingError(err))
		_, err = BuildTraversal(p, "Person", &schema.Model{Label: "Bad Label"}, nil, nil)
		assert.True(t, neogm.IsNamingError(err))
	})
}
