/*
Package monitoring exposes Prometheus metrics for the widget gateway.

Collectors live on a private registry so tests can build as many Metrics
values as they like. The hooks adapt Metrics to the observer shapes the
domain packages already accept: a render.Tracker for views and clicks, a
hostbridge.Recorder for host messages, a session.Observer for bootstrap
transitions and an action.ResolutionObserver for confirmation dialogs.

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	renderer := render.New(logger).WithTracker(metrics.Tracker())
*/
package monitoring
