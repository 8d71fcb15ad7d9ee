package config

import (
	"github.com/restql/sql-data-api/log"
	"github.com/restql/sql-data-api/rest/validation"
)

// Config carries everything the endpoint needs beyond the executor: the
// target dialect, an optional schema qualifier, naming convention, the
// validation limits and a logger.
type Config struct {
	Dialect    string
	Schema     string
	Naming     NamingConvention
	Validation validation.Options
	Logger     log.Logger
}

// New returns a Config for the given dialect with defaults for everything
// else.
func New(dialect string) *Config {
	return &Config{
		Dialect:    dialect,
		Naming:     NewDefaultNaming(),
		Validation: validation.DefaultOptions(),
		Logger:     log.NewNopLogger(),
	}
}

func (c *Config) WithSchema(schema string) *Config {
	c.Schema = schema
	return c
}

func (c *Config) WithNaming(naming NamingConvention) *Config {
	c.Naming = naming
	return c
}

func (c *Config) WithValidation(options validation.Options) *Config {
	c.Validation = options
	return c
}

func (c *Config) WithLogger(logger log.Logger) *Config {
	c.Logger = logger
	return c
}
