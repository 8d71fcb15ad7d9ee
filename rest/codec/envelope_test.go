package codec

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	e "github.com/restql/sql-data-api/rest/errors"
	"github.com/restql/sql-data-api/types"
)

func TestQueryRoundTrip(t *testing.T) {
	ten := 10
	original := types.QueryOptions{
		Select: []string{"id", "name"},
		Where: []types.Predicate{
			types.NewGroup(types.And,
				types.Cond("age", ">", float64(18)),
				types.Cond("status", "=", "active")),
		},
		Joins: []types.JoinSpec{{
			Kind:  types.LeftJoin,
			Table: "orders",
			Alias: "o",
			On:    []types.Predicate{types.Cond("o.user_id", "=", "users.id")},
		}},
		OrderBy: []types.ColumnOrder{{Field: "age", Direction: "DESC"}},
		Limit:   &ten,
	}

	encoded, err := EncodeQuery(original)
	require.NoError(t, err)

	decoded, err := DecodeQuery(encoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeQueryErrors(t *testing.T) {
	_, err := DecodeQuery("not base64!!!")
	assert.IsType(t, &e.ValidationError{}, err)

	// Valid base64, invalid descriptor.
	_, err = DecodeQuery("bm90IGpzb24=")
	assert.IsType(t, &e.ValidationError{}, err)
}

func TestDecodeParams(t *testing.T) {
	values := url.Values{}
	values.Set("select", "id,name")
	values.Set("limit", "10")
	values.Set("offset", "5")

	options, err := DecodeParams(values)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, options.Select)
	assert.Equal(t, 10, *options.Limit)
	assert.Equal(t, 5, *options.Offset)
}

func TestDecodeParamsPrefersEnvelope(t *testing.T) {
	encoded, err := EncodeQuery(types.QueryOptions{Select: []string{"id"}})
	require.NoError(t, err)

	values := url.Values{}
	values.Set("q", encoded)
	values.Set("select", "name")

	options, err := DecodeParams(values)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, options.Select)
}

func TestDecodeBody(t *testing.T) {
	body, err := DecodeBody(strings.NewReader(`{"name":"ada"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "ada"}, body)

	body, err = DecodeBody(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, body)

	_, err = DecodeBody(strings.NewReader("{broken"))
	assert.IsType(t, &e.ValidationError{}, err)
}
