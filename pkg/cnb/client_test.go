package cnb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cnb-rates/internal/adapter/filecache"
	"cnb-rates/internal/service"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usdDaily = "Měna: USD|Množství: 1\n" +
	"Datum|Kurz\n" +
	"07.12.2015|24,970\n" +
	"08.12.2015|24,895\n" +
	"09.12.2015|24,688\n"

const hufAverages = "Měna: HUF|Množství: 100\n" +
	"Rok|leden|únor\n" +
	"2015|8,802|8,867\n" +
	"\n" +
	"Měna: HUF|Množství: 100\n" +
	"Rok|leden|únor\n" +
	"2015|8,802|8,834\n" +
	"\n" +
	"Měna: HUF|Množství: 100\n" +
	"Rok|1Q\n" +
	"2015|8,902\n"

const hufDaily = "Měna: HUF|Množství: 100\n" +
	"Datum|Kurz\n" +
	"09.12.2015|8,538\n"

type cnbServer struct {
	*httptest.Server
	down atomic.Bool
}

func newCNBServer(t *testing.T) *cnbServer {
	s := &cnbServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.down.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		cur := r.URL.Query().Get("mena")
		switch {
		case strings.HasSuffix(r.URL.Path, "prumerne_mena.txt") && cur == "HUF":
			w.Write([]byte(hufAverages))
		case strings.HasSuffix(r.URL.Path, "vybrane.txt") && cur == "USD":
			w.Write([]byte(usdDaily))
		case strings.HasSuffix(r.URL.Path, "vybrane.txt") && cur == "HUF":
			w.Write([]byte(hufDaily))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func setupClient(t *testing.T) (*Client, *cnbServer, *filecache.Store) {
	srv := newCNBServer(t)
	logger, _ := test.NewNullLogger()
	store := filecache.NewStore(filepath.Join(t.TempDir(), filecache.DefaultFilename), logger)
	clock := &service.FixedClock{T: time.Date(2015, 12, 9, 15, 0, 0, 0, service.PragueLocation)}

	cfg := DefaultConfig()
	cfg.Host = strings.TrimPrefix(srv.URL, "http://")

	client := New(cfg, logger, WithFallbackStore(store), WithClock(clock))
	return client, srv, store
}

func TestClient_RateAndConvert(t *testing.T) {
	ctx := context.Background()
	client, _, _ := setupClient(t)

	rate, err := client.Rate(ctx, "usd", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 24.688, rate)

	info, ok := client.ResultInfo("USD")
	require.True(t, ok)
	assert.Equal(t, time.Date(2015, 12, 9, 0, 0, 0, 0, time.UTC), info.Date)
	assert.False(t, info.FromCache)

	czk, err := client.Convert(ctx, 100, "USD", "CZK", time.Time{}, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2468.8, czk, 1e-9)

	info, _ = client.ResultInfo("USD")
	assert.True(t, info.FromCache)

	huf, err := client.Daily(ctx, "HUF", time.Time{})
	require.NoError(t, err)
	assert.InDelta(t, 0.08538, huf, 1e-12)

	assert.Equal(t, 110.0, client.Modified(100, 10))
}

func TestClient_HistoricalRate(t *testing.T) {
	ctx := context.Background()
	client, _, _ := setupClient(t)

	tuple, err := client.RateTuple(ctx, "USD", time.Date(2015, 12, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 24.895, tuple.Rate)
	assert.Equal(t, 1.0, tuple.Amount)
}

func TestClient_OfflineUsesFallbackFile(t *testing.T) {
	ctx := context.Background()
	client, srv, store := setupClient(t)

	_, err := client.Rate(ctx, "USD", time.Time{})
	require.NoError(t, err)

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, persisted, "USD")

	srv.down.Store(true)
	client.Reset()

	tuple, err := client.RateTuple(ctx, "USD", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 24.688, tuple.Rate)
	assert.True(t, tuple.FromCache)
	assert.True(t, tuple.Degraded)

	_, err = client.Rate(ctx, "GBP", time.Time{})
	assert.ErrorIs(t, err, ErrRateNotFound)
}

func TestClient_Averages(t *testing.T) {
	ctx := context.Background()
	client, _, _ := setupClient(t)

	raw, err := client.MonthlyRate(ctx, "HUF", 2015, 2)
	require.NoError(t, err)
	assert.Equal(t, 8.867, raw)

	perUnit, err := client.Monthly(ctx, "HUF", 2015, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.08867, perUnit, 1e-12)

	cumulative, err := client.MonthlyCumulative(ctx, "HUF", 2015, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.08834, cumulative, 1e-12)

	quarterly, err := client.Quarterly(ctx, "HUF", 2015, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.08902, quarterly, 1e-12)

	daily, err := client.DailyRate(ctx, "HUF", time.Date(2015, 12, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 8.538, daily)
}

func TestClient_AveragesTransferError(t *testing.T) {
	client, srv, _ := setupClient(t)
	srv.down.Store(true)

	_, err := client.QuarterlyRate(context.Background(), "HUF", 2015, 1)
	assert.ErrorIs(t, err, ErrTransfer)
}

func TestClient_SetHost(t *testing.T) {
	ctx := context.Background()
	client, _, _ := setupClient(t)

	other := newCNBServer(t)
	other.down.Store(true)
	client.SetHost(strings.TrimPrefix(other.URL, "http://"))

	_, err := client.MonthlyRate(ctx, "HUF", 2015, 1)
	assert.ErrorIs(t, err, ErrTransfer)

	_, err = client.Rate(ctx, "USD", time.Time{})
	assert.ErrorIs(t, err, ErrRateNotFound)
}

func TestClient_Worse(t *testing.T) {
	ctx := context.Background()
	client, _, _ := setupClient(t)

	result, err := client.Worse(ctx, 24.688*2, "CZK", 1.5, "USD", time.Time{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, result.Target, 1e-9)
	assert.InDelta(t, 12.344, result.Source, 1e-9)
	assert.InDelta(t, 25.0, result.Percent, 1e-9)
}

func TestResolverOptions_ValidDaysMax(t *testing.T) {
	cfg := DefaultConfig()

	cfg.ValidDaysMax = 0
	assert.Equal(t, 0, resolverOptions(cfg).ValidDaysMax)

	cfg.ValidDaysMax = 7
	assert.Equal(t, 7, resolverOptions(cfg).ValidDaysMax)

	cfg.ValidDaysMax = -1
	assert.Equal(t, service.DefaultOptions().ValidDaysMax, resolverOptions(cfg).ValidDaysMax)
}

func TestClient_ZeroValidDaysMaxRejectsOlderCache(t *testing.T) {
	ctx := context.Background()
	srv := newCNBServer(t)
	logger, _ := test.NewNullLogger()
	store := filecache.NewStore(filepath.Join(t.TempDir(), filecache.DefaultFilename), logger)
	clock := &service.FixedClock{T: time.Date(2015, 12, 9, 15, 0, 0, 0, service.PragueLocation)}

	cfg := DefaultConfig()
	cfg.Host = strings.TrimPrefix(srv.URL, "http://")
	cfg.ValidDaysMax = 0
	client := New(cfg, logger, WithFallbackStore(store), WithClock(clock))

	_, err := client.Rate(ctx, "USD", time.Date(2015, 12, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	srv.down.Store(true)
	_, err = client.Rate(ctx, "USD", time.Time{})
	assert.ErrorIs(t, err, ErrRateNotFound)
}

func TestNew_NilLogger(t *testing.T) {
	srv := newCNBServer(t)
	storeLogger, _ := test.NewNullLogger()
	store := filecache.NewStore(filepath.Join(t.TempDir(), filecache.DefaultFilename), storeLogger)
	clock := &service.FixedClock{T: time.Date(2015, 12, 9, 15, 0, 0, 0, service.PragueLocation)}

	cfg := DefaultConfig()
	cfg.Host = strings.TrimPrefix(srv.URL, "http://")

	var client *Client
	require.NotPanics(t, func() {
		client = New(cfg, nil, WithFallbackStore(store), WithClock(clock))
	})

	var rate float64
	var err error
	require.NotPanics(t, func() {
		rate, err = client.Rate(context.Background(), "USD", time.Time{})
	})
	require.NoError(t, err)
	assert.Equal(t, 24.688, rate)
}
