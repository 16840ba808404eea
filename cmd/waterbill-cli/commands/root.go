package commands

import (
	"context"
	"fmt"
	"os"
	"waterbill/internal/components/telemetry"
	"waterbill/internal/scrapers/waterfee"
	"waterbill/lib/restyutil"
	libtelemetry "waterbill/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	account  string
	endpoint string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "waterbill-cli",
	Short: "waterbill-cli queries the Luzhou water billing site from the command line.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		libtelemetry.InitSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&account, "account", "", "The account number (户号) to query.")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", waterfee.DefaultEndpoint, "The url of the billing form.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logs and dump http exchanges to .dev/resty/cli.")
	rootCmd.MarkPersistentFlagRequired("account")
}

func createClient() (*waterfee.Client, error) {
	opts := waterfee.ClientOptions{Endpoint: endpoint}
	if verbose {
		output, err := restyutil.NewFilesystemOutput(".dev/resty/cli")
		if err != nil {
			return nil, err
		}
		opts.Output = output
	}
	return waterfee.NewClient(opts, telemetry.NewSlogAPI(nil))
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
