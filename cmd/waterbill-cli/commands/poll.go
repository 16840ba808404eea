package commands

import (
	"fmt"
	"os"
	"waterbill/internal/components/chrono"
	"waterbill/internal/components/telemetry"
	"waterbill/internal/host"
	"waterbill/internal/poller"
	"waterbill/internal/scrapers/waterfee"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pollCmd)
}

func formatSensorValue(sensor host.Sensor) string {
	if sensor.Key == host.SensorUnpaidCount {
		return fmt.Sprintf("%d", int(sensor.Value))
	}
	return formatAmount(sensor.Value)
}

var pollCmd = &cobra.Command{
	Use:   "poll --account <account>",
	Short: "Runs a single poll over the current and previous month and prints the sensors.",
	RunE: func(cmd *cobra.Command, args []string) error {
		clock, err := chrono.NewStandardTime(chrono.DefaultLocation)
		if err != nil {
			return err
		}
		client, err := createClient()
		if err != nil {
			return err
		}
		defer client.Close()

		store := host.NewStore()
		p, err := poller.NewPoller(
			poller.Options{Account: account},
			client,
			store,
			clock,
			telemetry.NewSlogAPI(nil),
		)
		if err != nil {
			return err
		}

		_, err = p.Poll(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s: %w", waterfee.ErrorCode(err), err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle(host.Title(account))
		t.AppendHeader(table.Row{"Sensor", "Value", "Unit", "Month", "Unique ID"})
		for _, sensor := range host.Sensors(account, store.State()) {
			t.AppendRow(table.Row{
				sensor.Name,
				formatSensorValue(sensor),
				sensor.Unit,
				sensor.Attributes.Month,
				sensor.UniqueId,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
