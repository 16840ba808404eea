// client.go contains the session against the billing form, it knows how the form
// has to be submitted but nothing about scheduling or aggregating results.

package waterfee

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"
	"waterbill/internal/components/assert"
	"waterbill/internal/components/telemetry"
	"waterbill/lib/htmlutil"
	"waterbill/lib/restyutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const DefaultEndpoint = "https://wt.lzss.com/fee/waterfee.aspx"

// the site misbehaves when these don't look like a desktop browser
const (
	headerUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	headerAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	headerAcceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"
	headerFormType       = "application/x-www-form-urlencoded"
)

// form field names and fixed values
const (
	fieldViewState          = "__VIEWSTATE"
	fieldViewStateGenerator = "__VIEWSTATEGENERATOR"
	fieldEventValidation    = "__EVENTVALIDATION"
	fieldStartMonth         = "startMonth"
	fieldEndMonth           = "endMonth"
	fieldAccount            = "userCode"
	fieldName               = "userName"
	fieldValidationCode     = "vaCode"
	fieldSubmit             = "btnSender"
	submitLabel             = "提交"

	listSelector = "ul#listview"
)

const (
	DefaultTimeout           = time.Second * 10
	DefaultRequestsPerSecond = 2
)

const (
	report_client_form_tokens = "client.form-tokens"
	report_client_billing     = "client.billing"
)

var tracer = otel.Tracer("waterbill/scrapers/waterfee")

type ClientOptions struct {
	// Endpoint defaults to DefaultEndpoint.
	Endpoint string
	// Timeout bounds a single request, it defaults to DefaultTimeout.
	Timeout time.Duration
	// RequestsPerSecond defaults to DefaultRequestsPerSecond, a negative value
	// disables pacing.
	RequestsPerSecond float64
	// Output receives a dump of every http exchange when debug logging is on,
	// it can be nil.
	Output restyutil.InstrumentOutput
}

// Client is the http session with the billing site, the cookie jar is kept
// for the lifetime of the client.
type Client struct {
	endpoint string
	origin   string
	http     *resty.Client
	tel      telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("waterfee", tel)

	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}

	endpoint, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, err
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("endpoint must be an absolute url: %q", opts.Endpoint)
	}

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.SetHeaders(map[string]string{
		"User-Agent":      headerUserAgent,
		"Accept":          headerAccept,
		"Accept-Language": headerAcceptLanguage,
	})
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(endpoint.Hostname()))
	httpClient.SetTimeout(opts.Timeout)

	if opts.RequestsPerSecond > 0 {
		// burst of 2 so that a token fetch and its submission go out back to back
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 2)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel)
	restyutil.InstrumentClient(httpClient, tracer, opts.Output)

	return &Client{
		endpoint: endpoint.String(),
		origin:   fmt.Sprintf("%s://%s", endpoint.Scheme, endpoint.Host),
		http:     httpClient,
		tel:      tel,
	}, nil
}

// Endpoint returns the url of the billing form.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Close releases the idle connections of the session.
func (c *Client) Close() {
	c.http.GetClient().CloseIdleConnections()
}

func (c *Client) document(res *resty.Response) (*goquery.Document, error) {
	if !res.IsSuccess() {
		return nil, &StatusError{
			Method:     res.Request.Method,
			StatusCode: res.StatusCode(),
			Status:     res.Status(),
		}
	}
	return htmlutil.ParseDocument(res.Body(), res.Header().Get("Content-Type"))
}

// tokensFromDocument reads the hidden inputs of the form, `missing` lists the
// ones that could not be found.
func tokensFromDocument(doc *goquery.Document) (tokens FormTokens, missing []string) {
	read := func(id string) string {
		value, ok := htmlutil.InputValue(doc, id)
		if !ok {
			missing = append(missing, id)
		}
		return value
	}
	tokens = FormTokens{
		ViewState:          read(fieldViewState),
		ViewStateGenerator: read(fieldViewStateGenerator),
		EventValidation:    read(fieldEventValidation),
	}
	return tokens, missing
}

// FormTokens fetches a fresh set of form tokens.
func (c *Client) FormTokens(ctx context.Context) (FormTokens, error) {
	ctx, span := tracer.Start(ctx, "client:FormTokens")
	defer span.End()

	tokensError := func(err error) (FormTokens, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return FormTokens{}, fmt.Errorf("waterfee: fetch form tokens: %w", err)
	}

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.endpoint)
	if err != nil {
		c.tel.ReportBroken(report_client_form_tokens, fmt.Errorf("fetch: %w", err))
		return tokensError(err)
	}
	doc, err := c.document(res)
	if err != nil {
		c.tel.ReportBroken(report_client_form_tokens, fmt.Errorf("parse: %w", err))
		return tokensError(err)
	}

	tokens, missing := tokensFromDocument(doc)
	if len(missing) > 0 {
		err := fmt.Errorf("%w: missing %v", ErrTokensUnavailable, missing)
		c.tel.ReportBroken(report_client_form_tokens, err)
		return tokensError(err)
	}
	return tokens, nil
}

func formData(tokens FormTokens, window QueryWindow, account string) map[string]string {
	month := window.String()
	return map[string]string{
		fieldViewState:          tokens.ViewState,
		fieldViewStateGenerator: tokens.ViewStateGenerator,
		fieldEventValidation:    tokens.EventValidation,
		fieldStartMonth:         month,
		fieldEndMonth:           month,
		fieldAccount:            account,
		fieldName:               "",
		fieldValidationCode:     "",
		fieldSubmit:             submitLabel,
	}
}

// Billing submits the form for one account and month with freshly fetched
// tokens and parses the result.
func (c *Client) Billing(ctx context.Context, window QueryWindow, account string) (BillingSnapshot, error) {
	ctx, span := tracer.Start(ctx, "client:Billing")
	defer span.End()
	span.SetAttributes(attribute.String("window", window.String()))

	billingError := func(err error) (BillingSnapshot, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return BillingSnapshot{}, fmt.Errorf("waterfee: billing %s: %w", window, err)
	}

	tokens, err := c.FormTokens(ctx)
	if err != nil {
		return billingError(err)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(map[string]string{
			"Content-Type": headerFormType,
			"Origin":       c.origin,
			"Referer":      c.endpoint,
		}).
		SetFormData(formData(tokens, window, account)).
		Post(c.endpoint)
	if err != nil {
		c.tel.ReportBroken(report_client_billing, fmt.Errorf("submit: %w", err), window.String())
		return billingError(err)
	}
	doc, err := c.document(res)
	if err != nil {
		c.tel.ReportBroken(report_client_billing, fmt.Errorf("parse: %w", err), window.String())
		return billingError(err)
	}

	list := doc.Find(listSelector).First()
	if list.Length() == 0 {
		c.tel.ReportBroken(report_client_billing, ErrDataListNotFound, window.String())
		return billingError(ErrDataListNotFound)
	}

	items := htmlutil.Texts(list.Find("li"))
	c.tel.ReportDebug("billing items", window.String(), items)
	return SnapshotFromItems(items, c.tel), nil
}
