// Package metrics provides Prometheus metrics collection for the MOUNT client.
//
// Metrics are optional: until InitRegistry is called every constructor in
// pkg/metrics/prometheus returns a no-op implementation, so the client runs
// the same with or without collection.
//
// Usage:
//
//	// Initialize the global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics for the client
//	m := prometheus.NewClientMetrics()
//
//	// Or pass nil for no-op behavior
//	client, err := mountclient.New(cfg) // No metrics
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry, written once by InitRegistry.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// It must be called before creating any metrics instances. Calling it more
// than once has no effect.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry, or nil when
// InitRegistry has not been called (metrics disabled).
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
