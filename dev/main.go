package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"waterbill/internal/components/chrono"
	"waterbill/lib/serviceutil"
)

func create(fake, overwrite bool) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	if !fake {
		err = WriteConfigs("", overwrite)
		if err != nil {
			return err
		}
		PrintConfigLocations()
		return nil
	}

	clock, err := chrono.NewStandardTime(chrono.DefaultLocation)
	if err != nil {
		return err
	}
	site := StartFakeSite(clock.Now())
	defer site.Close()

	// the fake site listens on a random port so the config always points at
	// the current one
	err = WriteConfigs(site.Endpoint(), true)
	if err != nil {
		return err
	}
	PrintConfigLocations()

	slog.Info("serving fake billing site", "endpoint", site.Endpoint())
	<-serviceutil.SignalContext().Done()
	return nil
}

func main() {
	fake := flag.Bool("fake", false, "serve a fake billing site and point the dev config at it")
	overwrite := flag.Bool("overwrite", false, "overwrite existing dev config files")
	flag.Parse()

	err := create(*fake, *overwrite)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created sucessfully!")
}
