package waterfee

import (
	"context"
	"log/slog"
	"testing"
	"time"
	"waterbill/internal/components/telemetry"
	"waterbill/lib/testutil"

	"github.com/stretchr/testify/require"
)

// TestLiveBilling hits the real site, it only runs when an account is given.
func TestLiveBilling(t *testing.T) {
	account := testutil.FindEnvOrSkip(t, "TEST_WATERFEE_ACCOUNT")

	client, err := NewClient(ClientOptions{}, telemetry.NewSlogAPI(slog.Default()))
	require.NoError(t, err)
	defer client.Close()

	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	window := WindowOf(time.Now().In(shanghai))

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	snapshot, err := client.Billing(ctx, window, account)
	require.NoError(t, err)
	require.GreaterOrEqual(t, snapshot.Balance, 0.0)
	require.GreaterOrEqual(t, snapshot.UnpaidCount, 0)
	t.Logf("%s: %+v", window, snapshot)
}
