package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	"waterbill/internal/scrapers/waterfee"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve(File{AccountNumber: " 0123456 "})
	require.NoError(t, err)
	require.Equal(t, Config{
		AccountNumber:     "0123456",
		ScanInterval:      8 * time.Hour,
		Timeout:           10 * time.Second,
		Endpoint:          waterfee.DefaultEndpoint,
		RequestsPerSecond: 2,
		Listen:            ":8000",
		Timezone:          "Asia/Shanghai",
	}, cfg)
}

func TestResolveRequiresAccount(t *testing.T) {
	_, err := Resolve(File{})
	require.ErrorContains(t, err, "account_number is required")
}

func TestResolveRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		file     File
		contains string
	}{
		{file: File{AccountNumber: "1", ScanInterval: "30s"}, contains: "scan_interval"},
		{file: File{AccountNumber: "1", ScanInterval: "soon"}, contains: "scan_interval"},
		{file: File{AccountNumber: "1", Timeout: "-1s"}, contains: "timeout"},
		{file: File{AccountNumber: "1", Endpoint: "not a url"}, contains: "endpoint"},
		{file: File{AccountNumber: "1", Timezone: "Mars/Olympus"}, contains: "timezone"},
	}

	for _, test := range testCases {
		_, err := Resolve(test.file)
		require.ErrorContains(t, err, test.contains, test.file)
	}
}

func TestResolveEnvOverrides(t *testing.T) {
	t.Setenv(EnvAccountNumber, "7654321")
	t.Setenv(EnvScanInterval, "2h")
	t.Setenv(EnvListen, "127.0.0.1:9000")

	cfg, err := Resolve(File{AccountNumber: "0123456", ScanInterval: "8h"})
	require.NoError(t, err)
	require.Equal(t, "7654321", cfg.AccountNumber)
	require.Equal(t, 2*time.Hour, cfg.ScanInterval)
	require.Equal(t, "127.0.0.1:9000", cfg.Listen)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	writeFile(t, path, `{
		// the account on the paper bill
		account_number: "0123456",
		scan_interval: "4h",
		requests_per_second: -1,
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{ listen: ":9100" }`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0123456", cfg.AccountNumber)
	require.Equal(t, 4*time.Hour, cfg.ScanInterval)
	require.Equal(t, -1.0, cfg.RequestsPerSecond)
	require.Equal(t, ":9100", cfg.Listen)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv(EnvAccountNumber, "0123456")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "0123456", cfg.AccountNumber)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	writeFile(t, path, `{ account_number: `)

	_, err := Load(path)
	require.Error(t, err)
}
