package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cnb-rates/internal/adapter/cnb"
	"cnb-rates/internal/entity"

	"github.com/sirupsen/logrus"
)

// AverageService reads the averages and single-day tables. Nothing here is
// cached and fetch errors are returned as they are.
type AverageService struct {
	fetcher cnb.Fetcher
	host    string
	charset string
	logger  *logrus.Logger
}

func NewAverageService(fetcher cnb.Fetcher, host, charset string, logger *logrus.Logger) *AverageService {
	return &AverageService{
		fetcher: fetcher,
		host:    host,
		charset: charset,
		logger:  logger,
	}
}

func (s *AverageService) SetHost(host string) { s.host = host }

// Average returns field valueIdx (one-based) of the row for year in table tableIdx.
func (s *AverageService) Average(ctx context.Context, currency string, tableIdx, year, valueIdx int) (float64, error) {
	url := cnb.AverageURL(s.host, currency)
	s.logger.WithFields(logrus.Fields{
		"currency": strings.ToUpper(currency),
		"table":    tableIdx,
		"year":     year,
		"index":    valueIdx,
	}).Info("Fetching CNB averages")

	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch averages")
		return 0, fmt.Errorf("fetch averages: %w", err)
	}
	table, err := cnb.ReadTable(body, s.charset, tableIdx)
	if err != nil {
		return 0, fmt.Errorf("read averages table: %w", err)
	}
	return cnb.RateCell(table, strconv.Itoa(year), valueIdx-1)
}

func (s *AverageService) MonthlyRate(ctx context.Context, currency string, year, month int) (float64, error) {
	return s.Average(ctx, currency, cnb.MonthlyAverageTable, year, month)
}

func (s *AverageService) MonthlyCumulativeRate(ctx context.Context, currency string, year, month int) (float64, error) {
	return s.Average(ctx, currency, cnb.CumulativeMonthlyAverageTable, year, month)
}

func (s *AverageService) QuarterlyRate(ctx context.Context, currency string, year, quarter int) (float64, error) {
	return s.Average(ctx, currency, cnb.QuarterlyAverageTable, year, quarter)
}

// DailyRate returns the rate published exactly on date, per the quoted amount.
func (s *AverageService) DailyRate(ctx context.Context, currency string, date time.Time) (float64, error) {
	day := entity.Day(date)
	currency = strings.ToUpper(currency)
	url := cnb.DailyURL(s.host, currency, day, day)

	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.logger.WithError(err).WithField("currency", currency).Error("Failed to fetch daily rate")
		return 0, fmt.Errorf("fetch daily rate: %w", err)
	}
	table, err := cnb.ReadTable(body, s.charset, 0)
	if err != nil {
		return 0, fmt.Errorf("read daily table: %w", err)
	}
	return cnb.RateCell(table, day.Format(entity.DateFormat), 0)
}
