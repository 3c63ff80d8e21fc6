/*
Package tracing provides lightweight request tracing.

Every HTTP request and websocket upgrade gets a trace id, taken from the
X-Trace-ID header when the caller sent one. The ids travel in the request
context and are forwarded to the agent runtime on outbound calls, so one
user turn can be followed across both services in the logs.

	tracer := tracing.New("widget-gateway", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "agent.postback")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

Finished spans are logged by a single collector goroutine from a buffer of
1000. When the buffer is full spans are dropped with a warning.
*/
package tracing
