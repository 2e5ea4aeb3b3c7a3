package main

import (
	"fmt"
	"os"

	"github.com/couchcryptid/storm-sos-dispatch/internal/app"
	"github.com/couchcryptid/storm-sos-dispatch/internal/config"
	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
	"github.com/couchcryptid/storm-sos-dispatch/internal/observability"
	"github.com/couchcryptid/storm-sos-dispatch/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sosctl",
		Short: "Storm SOS operator tool",
		Long: `sosctl classifies a pressure reading into a storm risk level and, on request,
sends the SOS alert burst to a list of recipients. It reads the same
environment variables (and .env file) as the sos service; without messaging
credentials every send is simulated.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().Bool("json", false, "print results as JSON")
	root.PersistentFlags().String("log-level", "error", "log level (debug, info, warn, error)")

	root.AddCommand(newClassifyCmd(), newTriggerCmd())
	return root
}

// readingFlags are shared by classify and trigger.
type readingFlags struct {
	city     string
	region   string
	lat, lon float64
	gpsLat   float64
	gpsLon   float64
	pressure float64
}

func (f *readingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.city, "city", "", "city name")
	cmd.Flags().StringVar(&f.region, "region", "", "state or region used to disambiguate the city")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "known latitude of the city")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "known longitude of the city")
	cmd.Flags().Float64Var(&f.gpsLat, "gps-lat", 0, "device latitude (takes precedence over --city)")
	cmd.Flags().Float64Var(&f.gpsLon, "gps-lon", 0, "device longitude")
	cmd.Flags().Float64VarP(&f.pressure, "pressure", "p", 0, "sea-level pressure in hPa")
	cmd.MarkFlagsRequiredTogether("lat", "lon")
	cmd.MarkFlagsRequiredTogether("gps-lat", "gps-lon")
	_ = cmd.MarkFlagRequired("pressure")
}

func (f *readingFlags) request(cmd *cobra.Command) pipeline.ClassifyRequest {
	req := pipeline.ClassifyRequest{
		Location:    domain.LocationQuery{City: f.city, Region: f.region},
		PressureHPa: f.pressure,
	}
	if cmd.Flags().Changed("lat") {
		req.Location.Coords = &domain.GPS{Lat: f.lat, Lon: f.lon}
	}
	if cmd.Flags().Changed("gps-lat") {
		req.Location.GPS = &domain.GPS{Lat: f.gpsLat, Lon: f.gpsLon}
	}
	return req
}

// loadApp wires the pipeline from the environment. Metrics go to a private
// registry because nothing scrapes a CLI. Logs share stdout with results, so
// only errors are logged unless --log-level or LOG_LEVEL asks for more.
func loadApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); cmd.Flags().Changed("log-level") || os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = level
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())
	return app.Build(cfg, logger, metrics)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
