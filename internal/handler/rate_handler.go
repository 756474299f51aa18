package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"cnb-rates/internal/entity"
	"cnb-rates/internal/service"
	"cnb-rates/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// RateHandler serves the rate library over HTTP. The library keeps its
// caches unlocked, so every call goes through mu.
type RateHandler struct {
	mu      sync.Mutex
	usecase usecase.RateUsecase
	logger  *logrus.Logger
}

func NewRateHandler(usecase usecase.RateUsecase, logger *logrus.Logger) *RateHandler {
	return &RateHandler{
		usecase: usecase,
		logger:  logger,
	}
}

func (h *RateHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/rate", h.GetRate)
	r.GET("/convert", h.Convert)
	r.GET("/worse", h.Worse)
	r.GET("/average", h.Average)
}

func (h *RateHandler) log(c *gin.Context) *logrus.Entry {
	return h.logger.WithField(requestIDKey, c.GetString(requestIDKey))
}

func (h *RateHandler) GetRate(c *gin.Context) {
	currency, ok := h.currencyParam(c, "val", true)
	if !ok {
		return
	}
	date, ok := h.dateParam(c)
	if !ok {
		return
	}
	opts, ok := h.resolveOptions(c)
	if !ok {
		return
	}

	h.mu.Lock()
	tuple, err := h.usecase.RateTuple(c.Request.Context(), currency, date, opts...)
	h.mu.Unlock()
	if err != nil {
		h.writeError(c, err, logrus.Fields{"val": currency})
		return
	}

	c.JSON(http.StatusOK, RateResponse{
		Currency:  currency,
		Rate:      usecase.ApplyAmount(tuple.Rate, tuple.Amount),
		RawRate:   tuple.Rate,
		Amount:    tuple.Amount,
		Date:      tuple.Date.Format(entity.DateFormat),
		FromCache: tuple.FromCache,
		Degraded:  tuple.Degraded,
	})
}

func (h *RateHandler) Convert(c *gin.Context) {
	amount, ok := h.floatParam(c, "amount", true)
	if !ok {
		return
	}
	from, ok := h.currencyParam(c, "from", true)
	if !ok {
		return
	}
	to, ok := h.currencyParam(c, "to", false)
	if !ok {
		return
	}
	date, ok := h.dateParam(c)
	if !ok {
		return
	}
	percent, ok := h.floatParam(c, "percent", false)
	if !ok {
		return
	}
	opts, ok := h.resolveOptions(c)
	if !ok {
		return
	}
	if to == "" {
		to = entity.DomesticCurrency
	}

	h.mu.Lock()
	result, err := h.usecase.Convert(c.Request.Context(), amount, from, to, date, percent, opts...)
	h.mu.Unlock()
	if err != nil {
		h.writeError(c, err, logrus.Fields{"from": from, "to": to})
		return
	}

	c.JSON(http.StatusOK, ConvertResponse{
		Amount:  amount,
		From:    from,
		To:      to,
		Percent: percent,
		Result:  result,
	})
}

func (h *RateHandler) Worse(c *gin.Context) {
	amount, ok := h.floatParam(c, "amount", true)
	if !ok {
		return
	}
	from, ok := h.currencyParam(c, "from", true)
	if !ok {
		return
	}
	obtained, ok := h.floatParam(c, "obtained", true)
	if !ok {
		return
	}
	to, ok := h.currencyParam(c, "to", true)
	if !ok {
		return
	}
	date, ok := h.dateParam(c)
	if !ok {
		return
	}
	opts, ok := h.resolveOptions(c)
	if !ok {
		return
	}

	h.mu.Lock()
	result, err := h.usecase.Worse(c.Request.Context(), amount, from, obtained, to, date, opts...)
	h.mu.Unlock()
	if err != nil {
		h.writeError(c, err, logrus.Fields{"from": from, "to": to})
		return
	}

	c.JSON(http.StatusOK, WorseResponse{
		Percent: jsonFloat(result.Percent),
		Source:  result.Source,
		Target:  result.Target,
	})
}

func (h *RateHandler) Average(c *gin.Context) {
	currency, ok := h.currencyParam(c, "val", true)
	if !ok {
		return
	}
	kind := usecase.AverageKind(c.DefaultQuery("kind", string(usecase.AverageMonthly)))

	var maxPeriod int
	switch kind {
	case usecase.AverageMonthly, usecase.AverageMonthlyCumulative:
		maxPeriod = 12
	case usecase.AverageQuarterly:
		maxPeriod = 4
	default:
		h.badRequest(c, "invalid 'kind' parameter, expected monthly, monthly_cumulative or quarterly")
		return
	}

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 1991 {
		h.badRequest(c, "invalid 'year' parameter")
		return
	}
	period, err := strconv.Atoi(c.Query("period"))
	if err != nil || period < 1 || period > maxPeriod {
		h.badRequest(c, fmt.Sprintf("invalid 'period' parameter, must be between 1 and %d", maxPeriod))
		return
	}

	h.mu.Lock()
	rate, err := h.usecase.Average(c.Request.Context(), kind, currency, year, period)
	h.mu.Unlock()
	if err != nil {
		h.writeError(c, err, logrus.Fields{"val": currency, "kind": kind, "year": year, "period": period})
		return
	}

	c.JSON(http.StatusOK, AverageResponse{
		Currency: currency,
		Kind:     string(kind),
		Year:     year,
		Period:   period,
		Rate:     rate,
	})
}

func (h *RateHandler) badRequest(c *gin.Context, msg string) {
	h.log(c).Debug(msg)
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func (h *RateHandler) currencyParam(c *gin.Context, name string, required bool) (string, bool) {
	v := strings.ToUpper(strings.TrimSpace(c.Query(name)))
	if v == "" {
		if required {
			h.badRequest(c, fmt.Sprintf("missing required query parameter '%s'", name))
			return "", false
		}
		return "", true
	}
	if len(v) != 3 || strings.IndexFunc(v, func(r rune) bool { return r < 'A' || r > 'Z' }) >= 0 {
		h.badRequest(c, fmt.Sprintf("invalid '%s' parameter, expected a 3-letter currency code", name))
		return "", false
	}
	return v, true
}

func (h *RateHandler) floatParam(c *gin.Context, name string, required bool) (float64, bool) {
	v := c.Query(name)
	if v == "" {
		if required {
			h.badRequest(c, fmt.Sprintf("missing required query parameter '%s'", name))
			return 0, false
		}
		return 0, true
	}
	f, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
	if err != nil {
		h.badRequest(c, fmt.Sprintf("invalid '%s' parameter, must be a number", name))
		return 0, false
	}
	return f, true
}

// resolveOptions reads the optional valid_days_max window for degraded
// lookups.
func (h *RateHandler) resolveOptions(c *gin.Context) ([]service.ResolveOption, bool) {
	v := c.Query("valid_days_max")
	if v == "" {
		return nil, true
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 0 {
		h.badRequest(c, "invalid 'valid_days_max' parameter, must be a non-negative integer")
		return nil, false
	}
	return []service.ResolveOption{service.WithValidDaysMax(days)}, true
}

// dateParam accepts YYYY-MM-DD or DD.MM.YYYY. Missing means today.
func (h *RateHandler) dateParam(c *gin.Context) (time.Time, bool) {
	v := c.Query("date")
	if v == "" {
		return time.Time{}, true
	}
	if d, err := time.Parse(time.DateOnly, v); err == nil {
		return entity.Day(d), true
	}
	if d, err := entity.ParseDay(v); err == nil {
		return d, true
	}
	h.badRequest(c, "invalid date format, expected YYYY-MM-DD or DD.MM.YYYY")
	return time.Time{}, false
}

func (h *RateHandler) writeError(c *gin.Context, err error, fields logrus.Fields) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrRateNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrMalformedData), errors.Is(err, entity.ErrTransfer):
		status = http.StatusBadGateway
	}

	entry := h.log(c).WithFields(fields).WithError(err)
	if status == http.StatusNotFound {
		entry.Warn("Rate not found")
	} else {
		entry.Error("Request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// Warmup resolves today's rate for each currency so the caches and the
// fallback store are filled after publication.
func (h *RateHandler) Warmup(ctx context.Context, currencies []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs error
	for _, cur := range currencies {
		tuple, err := h.usecase.RateTuple(ctx, cur, time.Time{})
		if err != nil {
			h.logger.WithError(err).WithField("currency", cur).Error("Warm-up failed")
			errs = multierr.Append(errs, err)
			continue
		}
		h.logger.WithFields(logrus.Fields{
			"currency": cur,
			"date":     tuple.Date.Format(entity.DateFormat),
			"outcome":  tuple.Outcome().String(),
		}).Info("Warmed rate")
	}
	return errs
}
