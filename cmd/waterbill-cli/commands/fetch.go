package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"waterbill/internal/components/chrono"
	"waterbill/internal/scrapers/waterfee"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var month string

func init() {
	fetchCmd.Flags().StringVar(&month, "month", "", "The month to query, ex. 2024/3. Defaults to the current month.")
	rootCmd.AddCommand(fetchCmd)
}

func formatAmount(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch --account <account> [--month <year>/<month>]",
	Short: "Submits the billing form for a single month and prints the result.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var window waterfee.QueryWindow
		if month != "" {
			parsed, err := waterfee.ParseWindow(month)
			if err != nil {
				return err
			}
			window = parsed
		} else {
			clock, err := chrono.NewStandardTime(chrono.DefaultLocation)
			if err != nil {
				return err
			}
			window = waterfee.WindowOf(clock.Now())
		}

		client, err := createClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), waterfee.DefaultTimeout)
		defer cancel()

		snapshot, err := client.Billing(ctx, window, account)
		if err != nil {
			return fmt.Errorf("%s: %w", waterfee.ErrorCode(err), err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle(fmt.Sprintf("%s %s", account, window))
		t.AppendHeader(table.Row{"Field", "Value"})
		t.AppendRows([]table.Row{
			{"余额", formatAmount(snapshot.Balance)},
			{"未缴费笔数", snapshot.UnpaidCount},
			{"未缴费金额", formatAmount(snapshot.UnpaidAmount)},
		})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
