// endpoint is the framework adapter: it extracts {method, path, query, body}
// from incoming requests, runs decode → validate → parse → compile, and hands
// the resulting {sql, params} to a caller-supplied Executor. Connections,
// transactions and result mapping stay on the executor's side of the line.
package endpoint

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/julienschmidt/httprouter"

	"github.com/restql/sql-data-api/config"
	"github.com/restql/sql-data-api/rest/codec"
	e "github.com/restql/sql-data-api/rest/errors"
	"github.com/restql/sql-data-api/rest/parser"
	"github.com/restql/sql-data-api/rest/validation"
	"github.com/restql/sql-data-api/sql"
	"github.com/restql/sql-data-api/types"
)

var (
	inputValidator *validator.Validate
	trans          ut.Translator
)

func init() {
	inputValidator = validator.New()

	uni := ut.New(en.New(), en.New())
	trans, _ = uni.GetTranslator("en")

	_ = enTranslations.RegisterDefaultTranslations(inputValidator, trans)

	_ = inputValidator.RegisterTranslation("required", trans, func(ut ut.Translator) error {
		return ut.Add("required", "{0} is a required field", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("required", fe.Field())
		return t
	})
}

// Executor is the external sink for compiled queries. The endpoint never
// opens a connection or executes anything itself.
type Executor interface {
	Execute(ctx context.Context, query *types.CompiledQuery) (interface{}, error)
}

// operationRequest is the envelope frame validated before any parsing.
type operationRequest struct {
	Table  string `validate:"required"`
	Method string `validate:"required,oneof=GET POST PUT DELETE"`
}

type DataEndpoint struct {
	cfg      *config.Config
	compiler *sql.Compiler
	executor Executor
}

func NewDataEndpoint(cfg *config.Config, executor Executor) (*DataEndpoint, error) {
	dialect, err := sql.ByName(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	return &DataEndpoint{
		cfg:      cfg,
		compiler: sql.NewCompiler(dialect, cfg.Schema),
		executor: executor,
	}, nil
}

// Router returns the CRUD routes over /:table and /:table/:id.
func (s *DataEndpoint) Router() *httprouter.Router {
	router := httprouter.New()
	router.GET("/:table", s.handle)
	router.GET("/:table/:id", s.handle)
	router.POST("/:table", s.handle)
	router.PUT("/:table", s.handle)
	router.PUT("/:table/:id", s.handle)
	router.DELETE("/:table", s.handle)
	router.DELETE("/:table/:id", s.handle)
	return router
}

func (s *DataEndpoint) handle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := s.cfg.Logger

	frame := operationRequest{Table: ps.ByName("table"), Method: r.Method}
	if err := inputValidator.Struct(frame); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, e.TranslateValidatorError(err, trans).Error())
		return
	}

	options, err := codec.DecodeParams(r.URL.Query())
	if err != nil {
		s.respondError(w, err)
		return
	}

	validated, err := validation.Validate(options, s.cfg.Validation)
	if err != nil {
		logger.Debug("query descriptor rejected",
			"table", frame.Table,
			"error", err)
		s.respondError(w, err)
		return
	}

	body, err := codec.DecodeBody(r.Body)
	if err != nil {
		s.respondError(w, err)
		return
	}

	op, err := parser.Parse(parser.Envelope{
		Method: r.Method,
		Path:   requestPath(frame.Table, ps.ByName("id")),
		Query:  validated,
		Body:   body,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}

	applyNaming(op, s.cfg.Naming)

	query, err := s.compiler.Compile(op)
	if err != nil {
		s.respondError(w, err)
		return
	}

	logger.Debug("query compiled",
		"table", op.Table,
		"operation", op.Kind,
		"sql", query.SQL)

	data, err := s.executor.Execute(r.Context(), query)
	if err != nil {
		logger.Error("executor failed",
			"table", op.Table,
			"error", err)
		writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeResponse(w, data)
}

// applyNaming converts every table and column name in the operation to its
// SQL form: fields, predicates, joins, group/order lists and row keys.
func applyNaming(op *types.Operation, naming config.NamingConvention) {
	op.Table = naming.ToSQLTable(op.Table)
	for i, field := range op.Fields {
		if field != "*" {
			op.Fields[i] = naming.ToSQLColumn(field)
		}
	}
	renamePredicates(op.Where, naming, false)
	renamePredicates(op.Having, naming, false)
	for i := range op.Joins {
		op.Joins[i].Table = naming.ToSQLTable(op.Joins[i].Table)
		renamePredicates(op.Joins[i].On, naming, true)
	}
	for i, field := range op.GroupBy {
		op.GroupBy[i] = naming.ToSQLColumn(field)
	}
	for i := range op.OrderBy {
		op.OrderBy[i].Field = naming.ToSQLColumn(op.OrderBy[i].Field)
	}
	for i, row := range op.Rows {
		renamed := make(map[string]interface{}, len(row))
		for column, value := range row {
			renamed[naming.ToSQLColumn(column)] = value
		}
		op.Rows[i] = renamed
	}
}

func renamePredicates(preds []types.Predicate, naming config.NamingConvention, joinScope bool) {
	for i := range preds {
		if cond := preds[i].Condition; cond != nil {
			cond.Field = naming.ToSQLColumn(cond.Field)
			// Column references in ON conditions are identifiers, not data.
			if ref, ok := cond.Value.(string); joinScope && ok && types.IsColumnReference(ref) {
				cond.Value = naming.ToSQLColumn(ref)
			}
			continue
		}
		if group := preds[i].Group; group != nil {
			renamePredicates(group.Children, naming, joinScope)
		}
	}
}

func requestPath(table, resourceID string) string {
	if resourceID != "" {
		return "/" + table + "/" + resourceID
	}
	return "/" + table
}

func (s *DataEndpoint) respondError(w http.ResponseWriter, err error) {
	switch err.(type) {
	case *e.ValidationError, *e.MissingValuesError:
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case *e.UnsupportedOperationError:
		writeErrorResponse(w, http.StatusMethodNotAllowed, err.Error())
	default:
		writeErrorResponse(w, http.StatusInternalServerError, err.Error())
	}
}

// jsonResult provides a basic root object in order to avoid using a scalar at
// root level.
type jsonResult struct {
	Data interface{} `json:"data"`
}

type jsonError struct {
	Error string `json:"error"`
}

func writeResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(&jsonResult{Data: data}); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err.Error())
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&jsonError{Error: msg})
}
