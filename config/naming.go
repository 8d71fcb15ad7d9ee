package config

import "github.com/iancoleman/strcase"

// NamingConvention maps the JSON names exposed by the REST surface to the
// SQL names of the underlying store. Result mapping back to JSON names is the
// executor's concern, not the endpoint's.
type NamingConvention interface {
	ToSQLColumn(name string) string
	ToSQLTable(name string) string
}

type defaultNaming struct {
}

func NewDefaultNaming() *defaultNaming {
	return &defaultNaming{}
}

func (n *defaultNaming) ToSQLColumn(name string) string {
	return strcase.ToSnake(name)
}

func (n *defaultNaming) ToSQLTable(name string) string {
	return strcase.ToSnake(name)
}
