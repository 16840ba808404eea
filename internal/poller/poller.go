// Package poller runs the billing fetch on a schedule and keeps the last
// reading that was fully aggregated.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"waterbill/internal/components/assert"
	"waterbill/internal/components/chrono"
	"waterbill/internal/components/telemetry"
	"waterbill/internal/scrapers/waterfee"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultTimeout  = time.Second * 10
	DefaultInterval = time.Hour * 8
)

const (
	report_poll          = "poll"
	report_poll_skipped  = "poll.skipped"
	report_first_refresh = "first-refresh"
)

var ErrPollInProgress = errors.New("poll already in progress")

var tracer = otel.Tracer("waterbill/poller")
var meter = otel.Meter("waterbill/poller")
var tickCounter, _ = meter.Int64Counter("poller.ticks")

// AggregatedReading is what gets exposed to the host, it is rebuilt from
// scratch on every successful poll.
type AggregatedReading struct {
	CurrentBalance float64 `json:"current_balance"`
	CurrentMonth   string  `json:"current_month"`
	// LastMonthConsumption is the balance reported for the previous month.
	LastMonthConsumption float64 `json:"last_month_consumption"`
	LastMonth            string  `json:"last_month"`
	UnpaidCount          int     `json:"unpaid_count"`
	UnpaidAmount         float64 `json:"unpaid_amount"`
}

// Update is handed to the Publisher after every tick. When Err is set the
// reading is the last known good one (if HasReading) and should be shown as
// stale.
type Update struct {
	Reading    AggregatedReading
	HasReading bool
	Err        error
	At         time.Time
}

func (u Update) Stale() bool {
	return u.Err != nil
}

// Fetcher is implemented by *waterfee.Client.
type Fetcher interface {
	Billing(ctx context.Context, window waterfee.QueryWindow, account string) (waterfee.BillingSnapshot, error)
}

type Publisher interface {
	Publish(ctx context.Context, update Update)
}

// Scheduler is implemented by chrono.StandardCron.
type Scheduler interface {
	Every(interval time.Duration, callback func()) error
}

type Options struct {
	Account string
	// Timeout bounds a whole tick, it defaults to DefaultTimeout.
	Timeout time.Duration
}

type Poller struct {
	fetcher   Fetcher
	publisher Publisher
	account   string
	timeout   time.Duration
	time      chrono.TimeAPI
	tel       telemetry.API

	running sync.Mutex

	mutex     sync.RWMutex
	latest    AggregatedReading
	hasLatest bool
}

func NewPoller(
	opts Options,
	fetcher Fetcher,
	publisher Publisher,
	time chrono.TimeAPI,
	tel telemetry.API,
) (*Poller, error) {
	assert.NotNil(fetcher)
	assert.NotNil(publisher)
	assert.NotNil(time)
	assert.NotNil(tel)

	if opts.Account == "" {
		return nil, fmt.Errorf("poller: account is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("poller: timeout must be positive, got %s", opts.Timeout)
	}

	return &Poller{
		fetcher:   fetcher,
		publisher: publisher,
		account:   opts.Account,
		timeout:   opts.Timeout,
		time:      time,
		tel:       telemetry.NewScopedAPI("poller", tel),
	}, nil
}

func (p *Poller) Account() string {
	return p.account
}

// Latest returns the last reading that was fully aggregated, false if no
// poll has succeeded yet.
func (p *Poller) Latest() (AggregatedReading, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.latest, p.hasLatest
}

func (p *Poller) aggregate(ctx context.Context, now time.Time) (AggregatedReading, error) {
	current := waterfee.WindowOf(now)
	previous := current.Previous()

	// the site keeps a single form transaction per session, so the windows are
	// fetched one after the other
	currentSnapshot, err := p.fetcher.Billing(ctx, current, p.account)
	if err != nil {
		return AggregatedReading{}, err
	}
	previousSnapshot, err := p.fetcher.Billing(ctx, previous, p.account)
	if err != nil {
		return AggregatedReading{}, err
	}

	return AggregatedReading{
		CurrentBalance:       currentSnapshot.Balance,
		CurrentMonth:         current.String(),
		LastMonthConsumption: previousSnapshot.Balance,
		LastMonth:            previous.String(),
		UnpaidCount:          currentSnapshot.UnpaidCount,
		UnpaidAmount:         currentSnapshot.UnpaidAmount,
	}, nil
}

// Poll runs one tick: both windows are fetched under a single timeout and the
// result is published. On failure nothing new is stored, the publisher
// receives the last known good reading marked as stale.
func (p *Poller) Poll(ctx context.Context) (AggregatedReading, error) {
	if !p.running.TryLock() {
		p.tel.ReportWarning(report_poll_skipped, ErrPollInProgress)
		return AggregatedReading{}, ErrPollInProgress
	}
	defer p.running.Unlock()

	tickId := uuid.NewString()
	ctx, span := tracer.Start(ctx, "poller:Poll")
	defer span.End()
	span.SetAttributes(attribute.String("tick.id", tickId))

	now := p.time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	reading, err := p.aggregate(fetchCtx, now)
	cancel()

	if err != nil {
		code := waterfee.ErrorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		tickCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", "failed"),
			attribute.String("code", code),
		))
		p.tel.ReportBroken(report_poll, err, code, tickId)

		latest, ok := p.Latest()
		p.publisher.Publish(ctx, Update{
			Reading:    latest,
			HasReading: ok,
			Err:        err,
			At:         now,
		})
		return AggregatedReading{}, err
	}

	p.mutex.Lock()
	p.latest = reading
	p.hasLatest = true
	p.mutex.Unlock()

	tickCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	p.tel.ReportDebug("poll ok", tickId, reading)

	p.publisher.Publish(ctx, Update{
		Reading:    reading,
		HasReading: true,
		At:         now,
	})
	return reading, nil
}

// Start does a first refresh right away, then schedules a poll every
// `interval`. A failed first refresh is reported but does not stop the
// schedule from being set up.
func (p *Poller) Start(ctx context.Context, sched Scheduler, interval time.Duration) error {
	assert.NotNil(sched)
	if interval == 0 {
		interval = DefaultInterval
	}

	_, err := p.Poll(ctx)
	if err != nil {
		p.tel.ReportWarning(report_first_refresh, err)
	}

	return sched.Every(interval, func() {
		if ctx.Err() != nil {
			return
		}
		// failures are already reported and published by Poll
		p.Poll(ctx)
	})
}
