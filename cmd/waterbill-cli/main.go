package main

import (
	"context"
	"waterbill/cmd/waterbill-cli/commands"
	"waterbill/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "waterbill-cli")
	commands.ExecuteContext(context.Background())
}
