package cmd

import (
	"context"
	"fmt"
	log2 "log"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/restql/sql-data-api/config"
	"github.com/restql/sql-data-api/log"
	"github.com/restql/sql-data-api/rest/endpoint"
	"github.com/restql/sql-data-api/rest/validation"
	"github.com/restql/sql-data-api/types"
)

// Environment variables prefixed with "DATA_API_" can override settings,
// e.g. "DATA_API_DIALECT".
const envVarPrefix = "data_api"

var cfgFile string
var logger log.Logger

var serverCmd = &cobra.Command{
	Use:   os.Args[0] + " --dialect [mysql|postgres|sqlite] [OPTIONS]",
	Short: "REST CRUD endpoint compiling requests to parameterized SQL",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.New(viper.GetString("dialect")).
			WithSchema(viper.GetString("schema")).
			WithLogger(logger).
			WithValidation(validation.Options{
				MaxQueryDepth:         viper.GetInt("max-query-depth"),
				MaxConditionsPerGroup: viper.GetInt("max-conditions-per-group"),
				MaxSelectFields:       viper.GetInt("max-select-fields"),
				MaxGroupByFields:      viper.GetInt("max-group-by-fields"),
				MaxValueLength:        viper.GetInt("max-value-length"),
				PreventSQLKeywords:    viper.GetBool("prevent-sql-keywords"),
			})

		// The demo executor is a dry-run sink: it logs the compiled query
		// and echoes it back, standing in for a real database client.
		dataEndpoint, err := endpoint.NewDataEndpoint(cfg, &dryRunExecutor{logger: logger})
		if err != nil {
			logger.Fatal("unable to create endpoint",
				"error", err)
		}

		handler := http.Handler(dataEndpoint.Router())
		if viper.GetBool("request-logging") {
			handler = log.NewLoggingHandler(handler, logger)
		}

		listenAndServe(handler, viper.GetInt("port"), logger)
	},
}

type dryRunExecutor struct {
	logger log.Logger
}

func (x *dryRunExecutor) Execute(_ context.Context, query *types.CompiledQuery) (interface{}, error) {
	x.logger.Info("compiled query",
		"sql", query.SQL,
		"params", query.Params)
	return query, nil
}

// Execute starts the REST endpoint command.
func Execute() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log2.Fatalf("unable to initialize logger: %v", err)
	}

	logger = log.NewZapLogger(zapLogger)

	flags := serverCmd.PersistentFlags()

	flags.StringVarP(&cfgFile, "config", "c", "", "config file")
	flags.StringP("dialect", "d", "postgres", "target SQL dialect: mysql, postgres or sqlite")
	flags.String("schema", "", "optional schema used to qualify table names")
	flags.Int("port", 8080, "port to bind the endpoint to")
	flags.Bool("request-logging", false, "enable request logging")

	flags.Int("max-query-depth", validation.DefaultMaxQueryDepth, "maximum predicate nesting depth")
	flags.Int("max-conditions-per-group", validation.DefaultMaxConditionsPerGroup, "maximum conditions per predicate group")
	flags.Int("max-select-fields", validation.DefaultMaxSelectFields, "maximum fields in a select list")
	flags.Int("max-group-by-fields", validation.DefaultMaxGroupByFields, "maximum fields in a group by list")
	flags.Int("max-value-length", validation.DefaultMaxValueLength, "maximum stringified length of a bound value")
	flags.Bool("prevent-sql-keywords", true, "reject values containing reserved SQL keywords")

	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Name != "config" {
			viper.BindPFlag(flag.Name, flags.Lookup(flag.Name))
		}
	})

	cobra.OnInitialize(initialize)

	viper.SetEnvPrefix(envVarPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := serverCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initialize() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err == nil {
			logger.Info("using config file",
				"file", viper.ConfigFileUsed())
		}
	}
}

func listenAndServe(handler http.Handler, port int, logger log.Logger) {
	logger.Info("server listening",
		"port", port)
	err := http.ListenAndServe(fmt.Sprintf(":%d", port), handler)
	if err != nil {
		logger.Fatal("unable to start server",
			"port", port,
			"error", err)
	}
}
