/*
Package observability turns runtime lifecycle hooks into Prometheus metrics.

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	c := runtime.New(s, runtime.WithHooks(metrics.Hooks()))
	http.Handle("/metrics", observability.Handler(reg))
*/
package observability
