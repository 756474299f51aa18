package service

import (
	"context"
	"strings"
	"time"

	"cnb-rates/internal/adapter/cnb"
	"cnb-rates/internal/entity"
	"cnb-rates/internal/metrics"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Host    string
	Charset string
	// DayCount is how many days back the daily table is requested; CNB does
	// not publish on weekends and holidays.
	DayCount int
	// CacheYesterdayBefore is an HH:MM Prague time. Before it, a cached rate
	// for yesterday is served instead of asking for today's.
	CacheYesterdayBefore string
	OfflineCache         bool
	ValidDaysMax         int
	SizeCacheOlder       int
}

func DefaultOptions() Options {
	return Options{
		Host:                 cnb.DefaultHost,
		Charset:              "utf-8",
		DayCount:             8,
		CacheYesterdayBefore: "14:00",
		OfflineCache:         true,
		ValidDaysMax:         60,
		SizeCacheOlder:       500,
	}
}

type resolveParams struct {
	validDaysMax int
}

type ResolveOption func(*resolveParams)

// WithValidDaysMax sets how far (in days) a cached rate may be from the
// requested date when the service call has failed.
func WithValidDaysMax(days int) ResolveOption {
	return func(p *resolveParams) {
		p.validDaysMax = days
	}
}

// EffectiveValidDaysMax applies opts over def.
func EffectiveValidDaysMax(def int, opts ...ResolveOption) int {
	p := resolveParams{validDaysMax: def}
	for _, o := range opts {
		o(&p)
	}
	return p.validDaysMax
}

type fetchOutcome int

const (
	fetchOK fetchOutcome = iota
	fetchFailed
)

type fetchResult struct {
	outcome fetchOutcome
	date    time.Time
	rate    float64
	amount  float64
}

// Resolver owns all cache state. It is not safe for concurrent use.
type Resolver struct {
	fetcher cnb.Fetcher
	store   FallbackStore
	clock   Clock
	opts    Options
	metrics *metrics.Metrics
	logger  *logrus.Logger

	cache          *MemoryCache
	fallback       map[string]entity.FallbackEntry
	fallbackLoaded bool
	results        map[string]entity.RateTuple
}

func NewResolver(fetcher cnb.Fetcher, store FallbackStore, clock Clock, opts Options, m *metrics.Metrics, logger *logrus.Logger) *Resolver {
	if clock == nil {
		clock = NewPragueClock()
	}
	return &Resolver{
		fetcher:  fetcher,
		store:    store,
		clock:    clock,
		opts:     opts,
		metrics:  m,
		logger:   logger,
		cache:    NewMemoryCache(opts.SizeCacheOlder),
		fallback: make(map[string]entity.FallbackEntry),
		results:  make(map[string]entity.RateTuple),
	}
}

// Reset drops the memory cache, the fallback shadow and the result info.
func (r *Resolver) Reset() {
	r.cache.Reset()
	r.fallback = make(map[string]entity.FallbackEntry)
	r.fallbackLoaded = false
	r.results = make(map[string]entity.RateTuple)
	r.metrics.SetCacheEntries(0)
}

func (r *Resolver) SetHost(host string) { r.opts.Host = host }

func (r *Resolver) Options() Options { return r.opts }

// ResultInfo returns the tuple of the last resolution for currency.
func (r *Resolver) ResultInfo(currency string) (entity.RateTuple, bool) {
	t, ok := r.results[strings.ToUpper(currency)]
	return t, ok
}

// Today is the current calendar date in Prague.
func (r *Resolver) Today() time.Time {
	return entity.Day(r.clock.Now().In(PragueLocation))
}

// Resolve returns the rate of currency for date (zero date means today).
// The error is an *entity.RateNotFoundError when nothing usable was found
// and an *entity.MalformedDataError when the service answered with
// something unexpected.
func (r *Resolver) Resolve(ctx context.Context, currency string, date time.Time, opts ...ResolveOption) (entity.RateTuple, error) {
	currency = strings.ToUpper(currency)
	validDaysMax := EffectiveValidDaysMax(r.opts.ValidDaysMax, opts...)

	now := r.clock.Now().In(PragueLocation)
	today := entity.Day(now)

	if currency == entity.DomesticCurrency {
		return r.record(currency, entity.RateTuple{Rate: 1, Amount: 1, Date: today}), nil
	}

	log := r.logger.WithField("currency", currency)

	var dateAsk time.Time
	fresh := true
	cacheYesterday := false
	if !date.IsZero() && entity.Day(date).Before(today) {
		dateAsk = entity.Day(date)
		fresh = false
	} else {
		dateAsk = today
		cacheYesterday = now.Format("15:04") < r.opts.CacheYesterdayBefore
	}

	if t, ok := r.fromCache(currency, dateAsk, false); ok {
		log.WithField("date", dateAsk.Format(entity.DateFormat)).Debug("Rate served from memory cache")
		return t, nil
	}

	if cacheYesterday {
		yesterday := dateAsk.AddDate(0, 0, -1)
		if t, ok := r.fromCache(currency, yesterday, false); ok {
			log.WithField("date", yesterday.Format(entity.DateFormat)).Debug("Rate for yesterday served before publication time")
			return t, nil
		}
	}

	res, err := r.fetchWindow(ctx, currency, dateAsk)
	if err != nil {
		log.WithError(err).Error("CNB returned malformed data")
		return entity.RateTuple{}, err
	}
	if res.outcome == fetchFailed {
		return r.degrade(ctx, currency, dateAsk, today, validDaysMax)
	}

	entry := entity.CacheEntry{Rate: res.rate, Amount: res.amount}
	if r.cache.Put(entity.CacheKey(res.date, currency), entry, fresh) {
		r.metrics.SetCacheEntries(r.cache.Len())
	}
	if fresh {
		r.fallback[currency] = entity.FallbackEntry{Rate: res.rate, Amount: res.amount, Date: today}
		r.saveFallback(ctx)
	}

	log.WithFields(logrus.Fields{
		"date":   res.date.Format(entity.DateFormat),
		"rate":   res.rate,
		"amount": res.amount,
	}).Info("Rate fetched from CNB")

	return r.record(currency, entity.RateTuple{Rate: res.rate, Amount: res.amount, Date: res.date}), nil
}

// fetchWindow asks for [dateAsk-DayCount, dateAsk] and picks the newest
// published date. Transfer errors and an empty window yield fetchFailed.
func (r *Resolver) fetchWindow(ctx context.Context, currency string, dateAsk time.Time) (fetchResult, error) {
	url := cnb.DailyURL(r.opts.Host, currency, dateAsk.AddDate(0, 0, -r.opts.DayCount), dateAsk)

	body, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		r.logger.WithError(err).WithField("url", url).Warn("CNB fetch failed")
		r.metrics.ObserveFetch("transfer_error")
		return fetchResult{outcome: fetchFailed}, nil
	}

	table, err := cnb.ReadTable(body, r.opts.Charset, 0)
	if err != nil {
		r.metrics.ObserveFetch("malformed")
		return fetchResult{}, err
	}
	amount, err := cnb.UnitAmount(table, currency)
	if err != nil {
		r.metrics.ObserveFetch("malformed")
		return fetchResult{}, err
	}

	for back := 0; back <= r.opts.DayCount; back++ {
		day := dateAsk.AddDate(0, 0, -back)
		key := day.Format(entity.DateFormat)
		if _, ok := table[key]; !ok {
			continue
		}
		rate, err := cnb.RateCell(table, key, 0)
		if err != nil {
			r.metrics.ObserveFetch("malformed")
			return fetchResult{}, err
		}
		r.metrics.ObserveFetch("ok")
		return fetchResult{outcome: fetchOK, date: day, rate: rate, amount: amount}, nil
	}

	r.logger.WithFields(logrus.Fields{
		"currency": currency,
		"date":     dateAsk.Format(entity.DateFormat),
	}).Warn("No published rate inside the request window")
	r.metrics.ObserveFetch("not_in_window")
	return fetchResult{outcome: fetchFailed}, nil
}

// degrade searches the memory cache around today and then the persisted
// fallback. Memory hits nearest to today win, past before future.
func (r *Resolver) degrade(ctx context.Context, currency string, dateAsk, today time.Time, validDaysMax int) (entity.RateTuple, error) {
	notFound := &entity.RateNotFoundError{Currency: currency, Date: dateAsk}
	if !r.opts.OfflineCache {
		r.metrics.ObserveResolution("not_found")
		return entity.RateTuple{}, notFound
	}

	r.loadFallback(ctx)

	candidate, haveCandidate := r.fallback[currency]
	testDelta := validDaysMax + 1
	if haveCandidate {
		delta := entity.DaysBetween(dateAsk, candidate.Date)
		if delta <= validDaysMax {
			testDelta = delta
		} else {
			haveCandidate = false
		}
	}

	log := r.logger.WithField("currency", currency)

	for delta := 0; delta < testDelta; delta++ {
		past := today.AddDate(0, 0, -delta)
		if t, ok := r.fromCache(currency, past, true); ok {
			log.WithField("date", past.Format(entity.DateFormat)).Warn("Service failed, serving rate from memory cache")
			return t, nil
		}
		if delta == 0 {
			continue
		}
		future := today.AddDate(0, 0, delta)
		if t, ok := r.fromCache(currency, future, true); ok {
			log.WithField("date", future.Format(entity.DateFormat)).Warn("Service failed, serving rate from memory cache")
			return t, nil
		}
	}

	if haveCandidate {
		log.WithField("date", candidate.Date.Format(entity.DateFormat)).Warn("Service failed, serving rate from fallback store")
		return r.record(currency, entity.RateTuple{
			Rate:      candidate.Rate,
			Amount:    candidate.Amount,
			Date:      candidate.Date,
			FromCache: true,
			Degraded:  true,
		}), nil
	}

	log.Error("Rate not found in any cache")
	r.metrics.ObserveResolution("not_found")
	return entity.RateTuple{}, notFound
}

func (r *Resolver) fromCache(currency string, day time.Time, degraded bool) (entity.RateTuple, bool) {
	e, ok := r.cache.Get(entity.CacheKey(day, currency))
	if !ok {
		return entity.RateTuple{}, false
	}
	return r.record(currency, entity.RateTuple{
		Rate:      e.Rate,
		Amount:    e.Amount,
		Date:      day,
		FromCache: true,
		Degraded:  degraded,
	}), true
}

// loadFallback merges the persisted store into the shadow once. Keys already
// in the shadow win.
func (r *Resolver) loadFallback(ctx context.Context) {
	if r.fallbackLoaded || r.store == nil {
		return
	}
	r.fallbackLoaded = true

	stored, err := r.store.Load(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("Fallback store unavailable")
		return
	}
	for k, v := range stored {
		if _, ok := r.fallback[k]; !ok {
			r.fallback[k] = v
		}
	}
}

// saveFallback writes the whole shadow. The store is merged in first so
// currencies persisted by an earlier process survive the overwrite.
func (r *Resolver) saveFallback(ctx context.Context) {
	if r.store == nil {
		return
	}
	r.loadFallback(ctx)
	if err := r.store.Save(ctx, r.fallback); err != nil {
		r.logger.WithError(err).Warn("Failed to persist fallback rates")
		r.metrics.ObserveFallbackSave("error")
		return
	}
	r.metrics.ObserveFallbackSave("ok")
}

func (r *Resolver) record(currency string, t entity.RateTuple) entity.RateTuple {
	r.results[currency] = t
	r.metrics.ObserveResolution(t.Outcome().String())
	return t
}
