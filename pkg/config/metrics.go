package config

import (
	"github.com/marmos91/dittomount/internal/logger"
	"github.com/marmos91/dittomount/pkg/metrics"
	promMetrics "github.com/marmos91/dittomount/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// ClientMetrics is the collector for the mount client (never nil, uses noop if disabled)
	ClientMetrics metrics.ClientMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed client metrics
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns a no-op implementation (zero overhead)
func InitializeMetrics(cfg *Config, log *logger.Logger) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Server:        nil,
			ClientMetrics: metrics.NewNoopClientMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port:   cfg.Metrics.Port,
		Logger: log,
	})

	return &MetricsResult{
		Server:        server,
		ClientMetrics: promMetrics.NewClientMetrics(),
	}
}
