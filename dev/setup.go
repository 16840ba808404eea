package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
	devenv "waterbill/dev/env"
	"waterbill/internal/scrapers/waterfee"
	"waterbill/internal/scrapers/waterfee/waterfeetest"
)

const sampleAccount = "0123456"

func writeState(filename string, value any, overwrite bool) error {
	path, err := devenv.ResolvePath(filepath.Join("<dev_state>", filename))
	if err != nil {
		return err
	}
	if !overwrite {
		_, err = os.Stat(path)
		if err == nil {
			fmt.Println("already created", path)
			return nil
		}
	}

	contents, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println("writing", path)
	return os.WriteFile(path, contents, 0666)
}

func WriteConfigs(endpoint string, overwrite bool) error {
	cfg := devenv.DaemonConfig{
		AccountNumber: sampleAccount,
		ScanInterval:  "1m",
		Listen:        "127.0.0.1:8000",
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
		cfg.RequestsPerSecond = -1
	}
	err := writeState("config.json5", cfg, overwrite)
	if err != nil {
		return err
	}
	return writeState("telemetry.json5", devenv.TelemetryConfig{Stdout: true}, overwrite)
}

// StartFakeSite serves the in-memory billing site with sample rows for the
// current and previous month.
func StartFakeSite(now time.Time) *waterfeetest.Site {
	site := waterfeetest.NewSite()
	current := waterfee.WindowOf(now)
	site.SetItems(current.String(), "户号："+sampleAccount, "本期余额：128.35 元", "未缴费笔数：1 笔", "未缴费金额：46.20 元")
	site.SetItems(current.Previous().String(), "户号："+sampleAccount, "本期余额：81.10 元", "未缴费笔数：无")
	return site
}

func PrintConfigLocations() {
	fmt.Println("run the daemon from dev/.state: cd dev/.state && go run ../../cmd/waterbilld -v")
}
