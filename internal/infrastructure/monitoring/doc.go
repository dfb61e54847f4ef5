/*
Package monitoring provides Prometheus metrics for fsguard.

# Overview

Metrics are kept in a registry owned by each Metrics value and exposed through
Handler. The collector tracks tool calls, batch items, authorization denials,
confirmation outcomes, the metadata engine's circuit breaker and HTTP traffic.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "move-file")
	// ... run the tool ...
	timer.Stop(monitoring.OutcomeSuccess)
*/
package monitoring
