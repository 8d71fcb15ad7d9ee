// codec translates between the wire forms of the query descriptor (a
// base64-encoded JSON query-string parameter, plain query parameters, or a
// JSON request body) and the typed QueryOptions/row values.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/mitchellh/mapstructure"

	e "github.com/restql/sql-data-api/rest/errors"
	"github.com/restql/sql-data-api/types"
)

// EncodeQuery encodes a query descriptor for use as the "q" query-string
// parameter.
func EncodeQuery(options types.QueryOptions) (string, error) {
	data, err := json.Marshal(options)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeQuery reverses EncodeQuery. The result is untrusted and must still
// pass validation.
func DecodeQuery(encoded string) (types.QueryOptions, error) {
	var options types.QueryOptions

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return options, e.NewValidationError(e.KindShape,
			fmt.Sprintf("query descriptor is not valid base64: %v", err))
	}
	if err := json.Unmarshal(data, &options); err != nil {
		return options, e.NewValidationError(e.KindShape,
			fmt.Sprintf("query descriptor is not a valid JSON descriptor: %v", err))
	}
	return options, nil
}

// plainParams covers the loose query parameters accepted without the base64
// envelope, e.g. ?select=id,name&limit=10.
type plainParams struct {
	Select []string `mapstructure:"select"`
	Limit  *int     `mapstructure:"limit"`
	Offset *int     `mapstructure:"offset"`
}

// DecodeParams builds a QueryOptions from plain query-string values. A "q"
// parameter, when present, takes precedence and is decoded as the full
// descriptor envelope.
func DecodeParams(values url.Values) (types.QueryOptions, error) {
	if encoded := values.Get("q"); encoded != "" {
		return DecodeQuery(encoded)
	}

	input := map[string]interface{}{}
	if v := values.Get("select"); v != "" {
		input["select"] = strings.Split(v, ",")
	}
	if v := values.Get("limit"); v != "" {
		input["limit"] = v
	}
	if v := values.Get("offset"); v != "" {
		input["offset"] = v
	}

	var params plainParams
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &params,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return types.QueryOptions{}, err
	}
	if err := decoder.Decode(input); err != nil {
		return types.QueryOptions{}, e.NewValidationError(e.KindShape,
			fmt.Sprintf("invalid query parameters: %v", err))
	}

	return types.QueryOptions{
		Select: params.Select,
		Limit:  params.Limit,
		Offset: params.Offset,
	}, nil
}

// DecodeBody decodes a JSON request body into a row map or a sequence of row
// maps. An empty body yields nil.
func DecodeBody(r io.Reader) (interface{}, error) {
	var body interface{}
	err := json.NewDecoder(r).Decode(&body)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, e.NewValidationError(e.KindShape,
			fmt.Sprintf("request body is not valid JSON: %v", err))
	}
	return body, nil
}
