// Package observability wires OpenTelemetry tracing and metrics exporters
// for fetchkit processes.
//
//	tel, err := observability.Setup(ctx, cfg, log)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	client, err := fetch.New(fetchCfg,
//	    fetch.WithTracerProvider(tel.TracerProvider()),
//	    fetch.WithMeterProvider(tel.MeterProvider()),
//	)
//
// Both providers export over OTLP/HTTP. When the configuration is disabled
// Setup installs nothing and the providers fall back to the otel globals.
package observability
