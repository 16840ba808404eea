package main

import (
	"flag"
	"log/slog"
	"waterbill/internal/components/chrono"
	"waterbill/internal/components/telemetry"
	"waterbill/internal/config"
	"waterbill/internal/host"
	"waterbill/internal/poller"
	"waterbill/internal/scrapers/waterfee"
	"waterbill/lib/serviceutil"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "Path to the config file.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	output := InitTelemetry(ctx, *verbose)

	cfg, err := config.Load(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	slog.Info("loaded config", "config", cfg.String())

	tel := telemetry.NewSlogAPI(nil)

	clock, err := chrono.NewStandardTime(cfg.Timezone)
	if err != nil {
		serviceutil.Fatal("load timezone", err)
	}

	client, err := waterfee.NewClient(waterfee.ClientOptions{
		Endpoint:          cfg.Endpoint,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Output:            output,
	}, tel)
	if err != nil {
		serviceutil.Fatal("init waterfee client", err)
	}
	defer client.Close()

	store := host.NewStore()
	gauges := host.NewPrometheusPublisher(cfg.AccountNumber)

	p, err := poller.NewPoller(
		poller.Options{
			Account: cfg.AccountNumber,
			Timeout: cfg.Timeout,
		},
		client,
		host.Publishers{store, gauges},
		clock,
		tel,
	)
	if err != nil {
		serviceutil.Fatal("init poller", err)
	}

	cron := chrono.NewStandardCron(tel, clock.Location())
	defer cron.Stop()

	slog.Info("starting poller", "title", host.Title(cfg.AccountNumber), "interval", cfg.ScanInterval)
	go func() {
		err := p.Start(ctx, cron, cfg.ScanInterval)
		if err != nil {
			serviceutil.Fatal("schedule poller", err)
		}
	}()

	server := serviceutil.NewHttpServer(
		cfg.Listen,
		host.NewRouter(cfg.AccountNumber, store, gauges.Registry()),
	)
	err = serviceutil.ServeUntilDone(ctx, server)
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
}
