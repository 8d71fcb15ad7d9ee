package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restql/sql-data-api/types"
)

func TestBuilderAssemblesOptions(t *testing.T) {
	options, err := New().
		Select("id", "name").
		Where("age", ">", 18).
		BeginGroup(types.Or).
		Where("status", "=", "active").
		Where("status", "=", "pending").
		End().
		JoinAs(types.LeftJoin, "orders", "o").
		On("o.user_id", "=", "users.id").
		End().
		GroupBy("status").
		Having("total", ">", 100).
		OrderBy("age", "DESC").
		Limit(10).
		Offset(5).
		Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, options.Select)
	require.Len(t, options.Where, 2)
	assert.Equal(t, types.Cond("age", ">", 18), options.Where[0])
	require.NotNil(t, options.Where[1].Group)
	assert.Equal(t, types.Or, options.Where[1].Group.Operator)
	assert.Len(t, options.Where[1].Group.Children, 2)

	require.Len(t, options.Joins, 1)
	assert.Equal(t, "orders", options.Joins[0].Table)
	assert.Equal(t, "o", options.Joins[0].Alias)
	assert.Len(t, options.Joins[0].On, 1)

	assert.Equal(t, []string{"status"}, options.GroupBy)
	assert.Len(t, options.Having, 1)
	assert.Equal(t, 10, *options.Limit)
	assert.Equal(t, 5, *options.Offset)
}

func TestBuilderNestsGroups(t *testing.T) {
	options, err := New().
		BeginGroup(types.And).
		Where("a", "=", 1).
		BeginNotGroup(types.Or).
		Where("b", "=", 2).
		Where("c", "=", 3).
		End().
		End().
		Build()
	require.NoError(t, err)

	require.Len(t, options.Where, 1)
	outer := options.Where[0].Group
	require.NotNil(t, outer)
	require.Len(t, outer.Children, 2)

	inner := outer.Children[1].Group
	require.NotNil(t, inner)
	assert.True(t, inner.Negate)
	assert.Equal(t, types.Or, inner.Operator)
	assert.Len(t, inner.Children, 2)
}

func TestBuilderErrors(t *testing.T) {
	_, err := New().BeginGroup(types.And).Where("a", "=", 1).Build()
	assert.Error(t, err)

	_, err = New().End().Build()
	assert.Error(t, err)

	_, err = New().On("a", "=", "b.c").Build()
	assert.Error(t, err)
}
