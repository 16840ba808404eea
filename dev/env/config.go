package devenv

import "waterbill/lib/telemetry"

// DaemonConfig mirrors the fields of config.File that the dev environment
// fills in.
type DaemonConfig struct {
	AccountNumber     string  `json:"account_number"`
	ScanInterval      string  `json:"scan_interval"`
	Endpoint          string  `json:"endpoint,omitempty"`
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`
	Listen            string  `json:"listen"`
}

type TelemetryConfig = telemetry.Config
