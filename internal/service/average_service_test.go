package service

import (
	"context"
	"testing"

	"cnb-rates/internal/adapter/cnb"
	"cnb-rates/internal/entity"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hufAverages = "Měna: HUF|Množství: 100\n" +
	"Rok|leden|únor|březen\n" +
	"2015|8,802|8,867|9,024\n" +
	"\n" +
	"Měna: HUF|Množství: 100\n" +
	"Rok|leden|únor|březen\n" +
	"2015|8,802|8,834|8,897\n" +
	"\n" +
	"Měna: HUF|Množství: 100\n" +
	"Rok|1Q|2Q\n" +
	"2015|8,902|8,931\n"

func setupAverageService() (*AverageService, *mockFetcher) {
	fetcher := new(mockFetcher)
	logger, _ := test.NewNullLogger()
	return NewAverageService(fetcher, cnb.DefaultHost, "utf-8", logger), fetcher
}

func TestAverageService_Averages(t *testing.T) {
	ctx := context.Background()
	svc, fetcher := setupAverageService()
	fetcher.On("Fetch", ctx, cnb.AverageURL(cnb.DefaultHost, "HUF")).Return([]byte(hufAverages), nil)

	monthly, err := svc.MonthlyRate(ctx, "huf", 2015, 3)
	require.NoError(t, err)
	assert.Equal(t, 9.024, monthly)

	cumulative, err := svc.MonthlyCumulativeRate(ctx, "HUF", 2015, 2)
	require.NoError(t, err)
	assert.Equal(t, 8.834, cumulative)

	quarterly, err := svc.QuarterlyRate(ctx, "HUF", 2015, 2)
	require.NoError(t, err)
	assert.Equal(t, 8.931, quarterly)

	fetcher.AssertNumberOfCalls(t, "Fetch", 3)
}

func TestAverageService_MissingYear(t *testing.T) {
	ctx := context.Background()
	svc, fetcher := setupAverageService()
	fetcher.On("Fetch", ctx, cnb.AverageURL(cnb.DefaultHost, "HUF")).Return([]byte(hufAverages), nil)

	_, err := svc.MonthlyRate(ctx, "HUF", 1990, 1)
	assert.ErrorIs(t, err, entity.ErrMalformedData)
}

func TestAverageService_FetchError(t *testing.T) {
	ctx := context.Background()
	svc, fetcher := setupAverageService()
	fetcher.On("Fetch", ctx, cnb.AverageURL(cnb.DefaultHost, "HUF")).Return(nil, errOffline)

	_, err := svc.QuarterlyRate(ctx, "HUF", 2015, 1)
	assert.ErrorIs(t, err, entity.ErrTransfer)
}

func TestAverageService_DailyRate(t *testing.T) {
	ctx := context.Background()
	svc, fetcher := setupAverageService()

	d := day(2015, 12, 9)
	doc := dailyDocument("USD", 1, map[string]string{"09.12.2015": "24,688"})
	fetcher.On("Fetch", ctx, cnb.DailyURL(cnb.DefaultHost, "USD", d, d)).Return(doc, nil)

	rate, err := svc.DailyRate(ctx, "usd", d)
	require.NoError(t, err)
	assert.Equal(t, 24.688, rate)
}

func TestAverageService_DailyRateNotPublished(t *testing.T) {
	ctx := context.Background()
	svc, fetcher := setupAverageService()

	d := day(2015, 12, 13)
	doc := dailyDocument("USD", 1, map[string]string{})
	fetcher.On("Fetch", ctx, cnb.DailyURL(cnb.DefaultHost, "USD", d, d)).Return(doc, nil)

	_, err := svc.DailyRate(ctx, "USD", d)
	assert.ErrorIs(t, err, entity.ErrMalformedData)
}
