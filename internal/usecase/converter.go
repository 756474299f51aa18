package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"cnb-rates/internal/entity"
	"cnb-rates/internal/service"

	"github.com/sirupsen/logrus"
)

type Converter struct {
	resolver RateResolver
	averages AverageReader
	logger   *logrus.Logger
}

func NewConverter(resolver RateResolver, averages AverageReader, logger *logrus.Logger) *Converter {
	return &Converter{
		resolver: resolver,
		averages: averages,
		logger:   logger,
	}
}

// ApplyAmount turns a rate quoted per amount units into a per-unit rate.
func ApplyAmount(rate, amount float64) float64 {
	if amount == 1.0 {
		return rate
	}
	return rate / amount
}

// Modified adds a percent margin to number.
func Modified(number, percent float64) float64 {
	if percent == 0 {
		return number
	}
	return number * (100 + percent) / 100
}

func isDomestic(currency string) bool {
	return currency == "" || strings.EqualFold(currency, entity.DomesticCurrency)
}

func (uc *Converter) RateTuple(ctx context.Context, currency string, date time.Time, opts ...service.ResolveOption) (entity.RateTuple, error) {
	return uc.resolver.Resolve(ctx, currency, date, opts...)
}

// Rate is the CZK price of one unit of currency.
func (uc *Converter) Rate(ctx context.Context, currency string, date time.Time, opts ...service.ResolveOption) (float64, error) {
	t, err := uc.resolver.Resolve(ctx, currency, date, opts...)
	if err != nil {
		return 0, err
	}
	return ApplyAmount(t.Rate, t.Amount), nil
}

func (uc *Converter) Daily(ctx context.Context, currency string, date time.Time, opts ...service.ResolveOption) (float64, error) {
	return uc.Rate(ctx, currency, date, opts...)
}

// Convert converts amount of source into target through CZK. An empty target
// means CZK.
func (uc *Converter) Convert(ctx context.Context, amount float64, source, target string, date time.Time, percent float64, opts ...service.ResolveOption) (float64, error) {
	czk := amount
	if !isDomestic(source) {
		rate, err := uc.Rate(ctx, source, date, opts...)
		if err != nil {
			return 0, fmt.Errorf("rate of %s: %w", strings.ToUpper(source), err)
		}
		czk = amount * rate
	}

	result, err := uc.ConvertTo(ctx, target, czk, date, 0, opts...)
	if err != nil {
		return 0, err
	}

	uc.logger.WithFields(logrus.Fields{
		"amount": amount,
		"source": strings.ToUpper(source),
		"target": strings.ToUpper(target),
		"result": result,
	}).Debug("Converted amount")

	return Modified(result, percent), nil
}

// ConvertTo converts a CZK amount into target.
func (uc *Converter) ConvertTo(ctx context.Context, target string, amount float64, date time.Time, percent float64, opts ...service.ResolveOption) (float64, error) {
	result := amount
	if !isDomestic(target) {
		rate, err := uc.Rate(ctx, target, date, opts...)
		if err != nil {
			return 0, fmt.Errorf("rate of %s: %w", strings.ToUpper(target), err)
		}
		result = amount / rate
	}
	return Modified(result, percent), nil
}

// Worse compares obtained (in targetCurrency) with the calculated equivalent
// of srcAmount. With a zero srcAmount the percent is 0 when nothing was
// obtained, +Inf when obtained is negative and -Inf when it is positive.
func (uc *Converter) Worse(ctx context.Context, srcAmount float64, srcCurrency string, obtained float64, targetCurrency string, date time.Time, opts ...service.ResolveOption) (*WorseResult, error) {
	calculated, err := uc.Convert(ctx, srcAmount, srcCurrency, targetCurrency, date, 0, opts...)
	if err != nil {
		return nil, err
	}
	worse := calculated - obtained
	worseSrc, err := uc.Convert(ctx, worse, targetCurrency, srcCurrency, date, 0, opts...)
	if err != nil {
		return nil, err
	}

	result := &WorseResult{Source: worseSrc, Target: worse}
	switch {
	case srcAmount != 0:
		result.Percent = worseSrc / srcAmount * 100
	case obtained == 0:
		result.Percent = 0
	case obtained < 0:
		result.Percent = math.Inf(1)
	default:
		result.Percent = math.Inf(-1)
	}
	return result, nil
}

func (uc *Converter) MonthlyRate(ctx context.Context, currency string, year, month int) (float64, error) {
	return uc.averages.MonthlyRate(ctx, currency, year, month)
}

func (uc *Converter) MonthlyCumulativeRate(ctx context.Context, currency string, year, month int) (float64, error) {
	return uc.averages.MonthlyCumulativeRate(ctx, currency, year, month)
}

func (uc *Converter) QuarterlyRate(ctx context.Context, currency string, year, quarter int) (float64, error) {
	return uc.averages.QuarterlyRate(ctx, currency, year, quarter)
}

func (uc *Converter) DailyRate(ctx context.Context, currency string, date time.Time) (float64, error) {
	return uc.averages.DailyRate(ctx, currency, date)
}

func (uc *Converter) Monthly(ctx context.Context, currency string, year, month int) (float64, error) {
	return uc.perUnit(ctx, currency, year, month, uc.averages.MonthlyRate)
}

func (uc *Converter) MonthlyCumulative(ctx context.Context, currency string, year, month int) (float64, error) {
	return uc.perUnit(ctx, currency, year, month, uc.averages.MonthlyCumulativeRate)
}

func (uc *Converter) Quarterly(ctx context.Context, currency string, year, quarter int) (float64, error) {
	return uc.perUnit(ctx, currency, year, quarter, uc.averages.QuarterlyRate)
}

// Average dispatches to the per-unit average of the given kind.
func (uc *Converter) Average(ctx context.Context, kind AverageKind, currency string, year, period int) (float64, error) {
	switch kind {
	case AverageMonthly:
		return uc.Monthly(ctx, currency, year, period)
	case AverageMonthlyCumulative:
		return uc.MonthlyCumulative(ctx, currency, year, period)
	case AverageQuarterly:
		return uc.Quarterly(ctx, currency, year, period)
	default:
		return 0, fmt.Errorf("unknown average kind %q", kind)
	}
}

func (uc *Converter) perUnit(ctx context.Context, currency string, year, period int,
	get func(ctx context.Context, currency string, year, period int) (float64, error)) (float64, error) {
	rate, err := get(ctx, currency, year, period)
	if err != nil {
		uc.logger.WithError(err).Errorf("Failed to get average for %s %d/%d", strings.ToUpper(currency), period, year)
		return 0, err
	}
	t, err := uc.resolver.Resolve(ctx, currency, time.Time{})
	if err != nil {
		return 0, fmt.Errorf("unit amount of %s: %w", strings.ToUpper(currency), err)
	}
	return ApplyAmount(rate, t.Amount), nil
}
