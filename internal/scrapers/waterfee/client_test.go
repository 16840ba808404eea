package waterfee

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
	"waterbill/internal/components/telemetry"
	"waterbill/internal/scrapers/waterfee/waterfeetest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestClient(t testing.TB, site *waterfeetest.Site, opts ClientOptions) (*Client, *telemetry.Recorder) {
	t.Helper()

	rec := telemetry.NewRecorder()
	opts.Endpoint = site.Endpoint()
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = -1
	}
	client, err := NewClient(opts, rec)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client, rec
}

func TestNewClientRejectsRelativeEndpoint(t *testing.T) {
	_, err := NewClient(ClientOptions{Endpoint: "/fee/waterfee.aspx"}, telemetry.NewRecorder())
	require.Error(t, err)
}

func TestFormTokens(t *testing.T) {
	site := waterfeetest.NewSite()
	defer site.Close()
	client, _ := newTestClient(t, site, ClientOptions{})

	tokens, err := client.FormTokens(context.Background())
	require.NoError(t, err)
	require.Equal(t, FormTokens{
		ViewState:          "VS1",
		ViewStateGenerator: "VSG1",
		EventValidation:    "EV1",
	}, tokens)
	require.Equal(t, 1, site.Gets())
	require.Empty(t, site.Submissions())
}

func TestFormTokensMissingField(t *testing.T) {
	for _, field := range []string{fieldViewState, fieldViewStateGenerator, fieldEventValidation} {
		t.Run(field, func(t *testing.T) {
			site := waterfeetest.NewSite()
			defer site.Close()
			site.OmitToken(field)
			client, rec := newTestClient(t, site, ClientOptions{})

			_, err := client.FormTokens(context.Background())
			require.ErrorIs(t, err, ErrTokensUnavailable)
			require.ErrorContains(t, err, field)
			require.True(t, rec.Has(telemetry.KindBroken, report_client_form_tokens))
		})
	}
}

func TestBilling(t *testing.T) {
	site := waterfeetest.NewSite()
	defer site.Close()
	site.SetItems("2024/3", "本期余额:12.50元", "未缴费笔数:2笔", "未缴费金额:30.00元")
	client, _ := newTestClient(t, site, ClientOptions{})

	snapshot, err := client.Billing(context.Background(), QueryWindow{Year: 2024, Month: time.March}, "0123456")
	require.NoError(t, err)
	require.Equal(t, BillingSnapshot{
		Balance:      12.50,
		UnpaidCount:  2,
		UnpaidAmount: 30.00,
	}, snapshot)

	submissions := site.Submissions()
	require.Len(t, submissions, 1)
	sub := submissions[0]

	form := map[string]string{}
	for key := range sub.Form {
		form[key] = sub.Form.Get(key)
	}
	expected := map[string]string{
		"__VIEWSTATE":          "VS1",
		"__VIEWSTATEGENERATOR": "VSG1",
		"__EVENTVALIDATION":    "EV1",
		"startMonth":           "2024/3",
		"endMonth":             "2024/3",
		"userCode":             "0123456",
		"userName":             "",
		"vaCode":               "",
		"btnSender":            "提交",
	}
	if diff := cmp.Diff(expected, form); diff != "" {
		t.Fatalf("submitted form mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, headerUserAgent, sub.Header.Get("User-Agent"))
	require.Equal(t, headerAccept, sub.Header.Get("Accept"))
	require.Equal(t, headerAcceptLanguage, sub.Header.Get("Accept-Language"))
	require.Equal(t, headerFormType, sub.Header.Get("Content-Type"))
	require.Equal(t, site.Server.URL, sub.Header.Get("Origin"))
	require.Equal(t, site.Endpoint(), sub.Header.Get("Referer"))
	require.NotEmpty(t, sub.Session)
}

func TestBillingUnpaidCountWithoutDigits(t *testing.T) {
	site := waterfeetest.NewSite()
	defer site.Close()
	site.SetItems("2024/3", "本期余额:12.50元", "未缴费笔数:无", "未缴费金额:30.00元")
	client, rec := newTestClient(t, site, ClientOptions{})

	snapshot, err := client.Billing(context.Background(), QueryWindow{Year: 2024, Month: time.March}, "0123456")
	require.NoError(t, err)
	require.Equal(t, BillingSnapshot{Balance: 12.50, UnpaidAmount: 30.00}, snapshot)
	require.Empty(t, rec.Reports(telemetry.KindWarning))
}

func TestBillingEmptyList(t *testing.T) {
	site := waterfeetest.NewSite()
	defer site.Close()
	client, _ := newTestClient(t, site, ClientOptions{})

	snapshot, err := client.Billing(context.Background(), QueryWindow{Year: 2023, Month: time.December}, "0123456")
	require.NoError(t, err)
	require.Equal(t, BillingSnapshot{}, snapshot)
	require.Equal(t, "2023/12", site.Submissions()[0].Form.Get("startMonth"))
}

func TestBillingTokensUnavailableSkipsSubmission(t *testing.T) {
	site := waterfeetest.NewSite()
	defer site.Close()
	site.OmitToken(fieldEventValidation)
	client, _ := newTestClient(t, site, ClientOptions{})

	_, err := client.Billing(context.Background(), QueryWindow{Year: 2024, Month: time.March}, "0123456")
	require.ErrorIs(t, err, ErrTokensUnavailable)
	require.Empty(t, site.Submissions())
	require.Equal(t, CodeUnknown, ErrorCode(err))
}

func TestBillingServerError(t *testing.T) {
	site := waterfeetest.NewSite()
	defer site.Close()
	site.FailPosts(http.StatusInternalServerError)
	client, rec := newTestClient(t, site, ClientOptions{})

	_, err := client.Billing(context.Background(), QueryWindow{Year: 2024, Month: time.March}, "0123456")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	require.Equal(t, http.MethodPost, statusErr.Method)
	require.Equal(t, CodeConnection, ErrorCode(err))
	require.True(t, rec.Has(telemetry.KindBroken, report_client_billing))
}

func TestBillingDataListNotFound(t *testing.T) {
	site := waterfeetest.NewSite()
	defer site.Close()
	site.OmitList(true)
	client, _ := newTestClient(t, site, ClientOptions{})

	_, err := client.Billing(context.Background(), QueryWindow{Year: 2024, Month: time.March}, "0123456")
	require.ErrorIs(t, err, ErrDataListNotFound)
	require.Equal(t, CodeUnknown, ErrorCode(err))
}

func TestBillingTimeout(t *testing.T) {
	site := waterfeetest.NewSite()
	defer site.Close()
	site.SetDelay(time.Second)
	client, _ := newTestClient(t, site, ClientOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Billing(ctx, QueryWindow{Year: 2024, Month: time.March}, "0123456")
	require.Error(t, err)
	require.Equal(t, CodeTimeout, ErrorCode(err))
}

func TestBillingClientTimeout(t *testing.T) {
	site := waterfeetest.NewSite()
	defer site.Close()
	site.SetDelay(time.Second)
	client, _ := newTestClient(t, site, ClientOptions{Timeout: 50 * time.Millisecond})

	_, err := client.Billing(context.Background(), QueryWindow{Year: 2024, Month: time.March}, "0123456")
	require.Error(t, err)
	require.Equal(t, CodeTimeout, ErrorCode(err))
}

func TestBillingConnectionRefused(t *testing.T) {
	site := waterfeetest.NewSite()
	client, _ := newTestClient(t, site, ClientOptions{})
	site.Close()

	_, err := client.Billing(context.Background(), QueryWindow{Year: 2024, Month: time.March}, "0123456")
	require.Error(t, err)
	require.Equal(t, CodeConnection, ErrorCode(err))
}

func TestBillingUsesFreshTokensEachCall(t *testing.T) {
	site := waterfeetest.NewSite()
	defer site.Close()
	site.SetItems("2024/3", "本期余额:1.00元")
	site.SetItems("2024/2", "本期余额:2.00元")
	client, _ := newTestClient(t, site, ClientOptions{})

	current, err := client.Billing(context.Background(), QueryWindow{Year: 2024, Month: time.March}, "0123456")
	require.NoError(t, err)
	previous, err := client.Billing(context.Background(), QueryWindow{Year: 2024, Month: time.February}, "0123456")
	require.NoError(t, err)

	require.Equal(t, 1.0, current.Balance)
	require.Equal(t, 2.0, previous.Balance)
	require.Equal(t, 2, site.Gets())

	submissions := site.Submissions()
	require.Len(t, submissions, 2)
	require.Equal(t, "VS1", submissions[0].Form.Get("__VIEWSTATE"))
	require.Equal(t, "VS2", submissions[1].Form.Get("__VIEWSTATE"))
	require.Equal(t, "EV2", submissions[1].Form.Get("__EVENTVALIDATION"))
	require.Equal(t, submissions[0].Session, submissions[1].Session)
}

func TestBillingRateLimited(t *testing.T) {
	site := waterfeetest.NewSite()
	defer site.Close()
	client, _ := newTestClient(t, site, ClientOptions{RequestsPerSecond: 20})

	start := time.Now()
	for range 2 {
		_, err := client.Billing(context.Background(), QueryWindow{Year: 2024, Month: time.March}, "0123456")
		require.NoError(t, err)
	}
	// the burst covers the first two requests, the other two wait 50ms each
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}
