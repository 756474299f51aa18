package usecase

import (
	"context"
	"time"

	"cnb-rates/internal/entity"
	"cnb-rates/internal/service"
)

type RateResolver interface {
	Resolve(ctx context.Context, currency string, date time.Time, opts ...service.ResolveOption) (entity.RateTuple, error)
}

type AverageReader interface {
	MonthlyRate(ctx context.Context, currency string, year, month int) (float64, error)
	MonthlyCumulativeRate(ctx context.Context, currency string, year, month int) (float64, error)
	QuarterlyRate(ctx context.Context, currency string, year, quarter int) (float64, error)
	DailyRate(ctx context.Context, currency string, date time.Time) (float64, error)
}

type RateUsecase interface {
	Rate(ctx context.Context, currency string, date time.Time, opts ...service.ResolveOption) (float64, error)
	RateTuple(ctx context.Context, currency string, date time.Time, opts ...service.ResolveOption) (entity.RateTuple, error)
	Convert(ctx context.Context, amount float64, source, target string, date time.Time, percent float64, opts ...service.ResolveOption) (float64, error)
	ConvertTo(ctx context.Context, target string, amount float64, date time.Time, percent float64, opts ...service.ResolveOption) (float64, error)
	Worse(ctx context.Context, srcAmount float64, srcCurrency string, obtained float64, targetCurrency string, date time.Time, opts ...service.ResolveOption) (*WorseResult, error)
	Average(ctx context.Context, kind AverageKind, currency string, year, period int) (float64, error)
}
