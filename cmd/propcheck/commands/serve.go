package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/propcheck/internal/api"
	"github.com/jmylchreest/propcheck/pkg/propcheck"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the analysis pipeline over HTTP.

Routes:
  POST /api/property      {"query": "<listing URL>"}
  POST /api/area-average  {"query": "<address or postcode>"}
  POST /api/analysis      {"propertyData": <record>}
  GET  /healthz
  GET  /metrics           Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	defaults := api.DefaultConfig()
	flags := serveCmd.Flags()
	flags.String("addr", defaults.Addr, "listen address")
	flags.Float64("rps", defaults.RequestsPerSecond, "API requests per second across all clients (0=unlimited)")
	flags.Int("burst", defaults.Burst, "rate limiter burst size")
	flags.StringSlice("cors-origin", nil, "allowed CORS origins (default: any)")
	flags.Bool("include-blob", false, "include the extraction text in property responses")

	_ = viper.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = viper.BindPFlag("server.rps", flags.Lookup("rps"))
	_ = viper.BindPFlag("server.burst", flags.Lookup("burst"))
	_ = viper.BindPFlag("server.cors_origins", flags.Lookup("cors-origin"))
	_ = viper.BindPFlag("server.include_blob", flags.Lookup("include-blob"))
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := api.DefaultConfig()
	cfg.Addr = viper.GetString("server.addr")
	cfg.RequestsPerSecond = viper.GetFloat64("server.rps")
	cfg.Burst = viper.GetInt("server.burst")
	cfg.AllowedOrigins = viper.GetStringSlice("server.cors_origins")
	cfg.IncludeBlob = viper.GetBool("server.include_blob")

	metrics := api.NewMetrics()
	pc, err := newPropcheck(propcheck.WithObserver(metrics))
	if err != nil {
		logError("%v", err)
		return err
	}
	defer func() { _ = pc.Close() }()

	logInfo("Serving on %s (provider %s, extractor %s)", cfg.Addr, pc.Provider(), pc.Extractor())
	if err := api.ListenAndServe(ctx, api.NewRouter(pc, metrics, cfg), cfg); err != nil {
		logError("server failed: %v", err)
		return err
	}
	return nil
}
