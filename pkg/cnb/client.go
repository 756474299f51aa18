// Package cnb resolves Czech National Bank exchange rates and converts
// amounts between currencies through CZK.
//
// A Client is not safe for concurrent use; callers serialize access.
package cnb

import (
	"context"
	"time"

	cnbadapter "cnb-rates/internal/adapter/cnb"
	"cnb-rates/internal/adapter/filecache"
	"cnb-rates/internal/entity"
	"cnb-rates/internal/metrics"
	"cnb-rates/internal/service"
	"cnb-rates/internal/usecase"
	"cnb-rates/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	ErrTransfer      = entity.ErrTransfer
	ErrRateNotFound  = entity.ErrRateNotFound
	ErrMalformedData = entity.ErrMalformedData
)

type (
	RateTuple     = entity.RateTuple
	FallbackEntry = entity.FallbackEntry
	FallbackStore = service.FallbackStore
	Clock         = service.Clock
	ResolveOption = service.ResolveOption
	WorseResult   = usecase.WorseResult
)

var WithValidDaysMax = service.WithValidDaysMax

type options struct {
	store   service.FallbackStore
	clock   service.Clock
	fetcher cnbadapter.Fetcher
	reg     prometheus.Registerer
}

type Option func(*options)

// WithFallbackStore replaces the default file in the OS temp directory.
func WithFallbackStore(store FallbackStore) Option {
	return func(o *options) { o.store = store }
}

func WithClock(clock Clock) Option {
	return func(o *options) { o.clock = clock }
}

func WithFetcher(fetcher cnbadapter.Fetcher) Option {
	return func(o *options) { o.fetcher = fetcher }
}

// WithRegisterer registers the client metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.reg = reg }
}

type Client struct {
	resolver  *service.Resolver
	averages  *service.AverageService
	converter *usecase.Converter
	metrics   *metrics.Metrics
}

func DefaultConfig() config.CNBConfig {
	d := service.DefaultOptions()
	return config.CNBConfig{
		Host:                 d.Host,
		Timeout:              30 * time.Second,
		Charset:              d.Charset,
		DayCount:             d.DayCount,
		CacheYesterdayBefore: d.CacheYesterdayBefore,
		OfflineCache:         d.OfflineCache,
		ValidDaysMax:         d.ValidDaysMax,
		SizeCacheOlder:       d.SizeCacheOlder,
	}
}

// resolverOptions fills zero numeric and string fields with defaults.
// OfflineCache is taken as is, and so is a ValidDaysMax of 0 (only today's
// memory entry is acceptable); a negative ValidDaysMax means the default.
func resolverOptions(cfg config.CNBConfig) service.Options {
	opts := service.DefaultOptions()
	if cfg.Host != "" {
		opts.Host = cfg.Host
	}
	if cfg.Charset != "" {
		opts.Charset = cfg.Charset
	}
	if cfg.DayCount > 0 {
		opts.DayCount = cfg.DayCount
	}
	if cfg.CacheYesterdayBefore != "" {
		opts.CacheYesterdayBefore = cfg.CacheYesterdayBefore
	}
	if cfg.ValidDaysMax >= 0 {
		opts.ValidDaysMax = cfg.ValidDaysMax
	}
	if cfg.SizeCacheOlder > 0 {
		opts.SizeCacheOlder = cfg.SizeCacheOlder
	}
	opts.OfflineCache = cfg.OfflineCache
	return opts
}

// New wires a Client. A nil logger means logrus.StandardLogger().
func New(cfg config.CNBConfig, logger *logrus.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fetcher == nil {
		o.fetcher = cnbadapter.NewClient(cfg.Timeout, logger)
	}
	if o.store == nil {
		o.store = filecache.NewStore(filecache.DefaultPath(), logger)
	}
	if o.clock == nil {
		o.clock = service.NewPragueClock()
	}

	ro := resolverOptions(cfg)
	m := metrics.New(o.reg)
	resolver := service.NewResolver(o.fetcher, o.store, o.clock, ro, m, logger)
	averages := service.NewAverageService(o.fetcher, ro.Host, ro.Charset, logger)

	return &Client{
		resolver:  resolver,
		averages:  averages,
		converter: usecase.NewConverter(resolver, averages, logger),
		metrics:   m,
	}
}

func (c *Client) Metrics() *metrics.Metrics { return c.metrics }

// Rate is the CZK price of one unit of currency on date. A zero date means
// today.
func (c *Client) Rate(ctx context.Context, currency string, date time.Time, opts ...ResolveOption) (float64, error) {
	return c.converter.Rate(ctx, currency, date, opts...)
}

func (c *Client) RateTuple(ctx context.Context, currency string, date time.Time, opts ...ResolveOption) (RateTuple, error) {
	return c.resolver.Resolve(ctx, currency, date, opts...)
}

// ResultInfo returns the tuple of the last resolution for currency.
func (c *Client) ResultInfo(currency string) (RateTuple, bool) {
	return c.resolver.ResultInfo(currency)
}

func (c *Client) Convert(ctx context.Context, amount float64, source, target string, date time.Time, percent float64, opts ...ResolveOption) (float64, error) {
	return c.converter.Convert(ctx, amount, source, target, date, percent, opts...)
}

func (c *Client) ConvertTo(ctx context.Context, target string, amount float64, date time.Time, percent float64, opts ...ResolveOption) (float64, error) {
	return c.converter.ConvertTo(ctx, target, amount, date, percent, opts...)
}

func (c *Client) Worse(ctx context.Context, srcAmount float64, srcCurrency string, obtained float64, targetCurrency string, date time.Time, opts ...ResolveOption) (*WorseResult, error) {
	return c.converter.Worse(ctx, srcAmount, srcCurrency, obtained, targetCurrency, date, opts...)
}

func (c *Client) Modified(number, percent float64) float64 {
	return usecase.Modified(number, percent)
}

func (c *Client) MonthlyRate(ctx context.Context, currency string, year, month int) (float64, error) {
	return c.converter.MonthlyRate(ctx, currency, year, month)
}

func (c *Client) MonthlyCumulativeRate(ctx context.Context, currency string, year, month int) (float64, error) {
	return c.converter.MonthlyCumulativeRate(ctx, currency, year, month)
}

func (c *Client) QuarterlyRate(ctx context.Context, currency string, year, quarter int) (float64, error) {
	return c.converter.QuarterlyRate(ctx, currency, year, quarter)
}

func (c *Client) DailyRate(ctx context.Context, currency string, date time.Time) (float64, error) {
	return c.converter.DailyRate(ctx, currency, date)
}

func (c *Client) Monthly(ctx context.Context, currency string, year, month int) (float64, error) {
	return c.converter.Monthly(ctx, currency, year, month)
}

func (c *Client) MonthlyCumulative(ctx context.Context, currency string, year, month int) (float64, error) {
	return c.converter.MonthlyCumulative(ctx, currency, year, month)
}

func (c *Client) Quarterly(ctx context.Context, currency string, year, quarter int) (float64, error) {
	return c.converter.Quarterly(ctx, currency, year, quarter)
}

func (c *Client) Average(ctx context.Context, kind usecase.AverageKind, currency string, year, period int) (float64, error) {
	return c.converter.Average(ctx, kind, currency, year, period)
}

func (c *Client) Daily(ctx context.Context, currency string, date time.Time, opts ...ResolveOption) (float64, error) {
	return c.converter.Daily(ctx, currency, date, opts...)
}

// SetHost points both the resolver and the averages at another server.
func (c *Client) SetHost(host string) {
	c.resolver.SetHost(host)
	c.averages.SetHost(host)
}

// Reset drops every in-memory cache.
func (c *Client) Reset() {
	c.resolver.Reset()
}
