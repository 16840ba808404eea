package main

import (
	"context"
	"log/slog"
	"waterbill/lib/restyutil"
	"waterbill/lib/serviceutil"
	"waterbill/lib/telemetry"
)

// InitTelemetry returns the output for http dumps, which is nil unless
// verbose is set.
func InitTelemetry(ctx context.Context, verbose bool) restyutil.InstrumentOutput {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	tel, err := telemetry.SetupFromEnv(ctx, "waterbilld")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		err := tel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("shutdown telemetry", "err", err)
		}
	}()
	telemetry.InstrumentPerfStats(ctx)

	if !verbose {
		return nil
	}

	output, err := restyutil.NewFilesystemOutput(".dev/resty/waterfee")
	if err != nil {
		serviceutil.Fatal("create resty output", err)
	}
	return output
}
