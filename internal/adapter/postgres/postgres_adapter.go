package postgres

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"cnb-rates/internal/entity"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const fallbackTable = "cnb_fallback_rates"

const createTableSQL = `CREATE TABLE IF NOT EXISTS cnb_fallback_rates (
    currency  VARCHAR(3) PRIMARY KEY,
    rate      DOUBLE PRECISION NOT NULL,
    amount    DOUBLE PRECISION NOT NULL,
    rate_date DATE NOT NULL
)`

const upsertSuffix = `
                ON CONFLICT (currency) DO UPDATE SET
                    rate = EXCLUDED.rate,
                    amount = EXCLUDED.amount,
                    rate_date = EXCLUDED.rate_date
            `

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// FallbackRepo keeps the last known rate of each currency in Postgres.
type FallbackRepo struct {
	pool   Pool
	logger *logrus.Logger
}

func NewFallbackRepo(pool Pool, logger *logrus.Logger) *FallbackRepo {
	return &FallbackRepo{
		pool:   pool,
		logger: logger,
	}
}

func (r *FallbackRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createTableSQL); err != nil {
		r.logger.WithError(err).Error("Failed to create fallback table")
		return fmt.Errorf("create %s: %w", fallbackTable, err)
	}
	return nil
}

func (r *FallbackRepo) Load(ctx context.Context) (map[string]entity.FallbackEntry, error) {
	query, args, err := psql.
		Select("currency", "rate", "amount", "rate_date").
		From(fallbackTable).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to query fallback rates")
		return nil, fmt.Errorf("query fallback rates: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]entity.FallbackEntry)
	for rows.Next() {
		var (
			currency string
			e        entity.FallbackEntry
			date     time.Time
		)
		if err := rows.Scan(&currency, &e.Rate, &e.Amount, &date); err != nil {
			return nil, fmt.Errorf("scan fallback rate: %w", err)
		}
		e.Date = entity.Day(date)
		entries[currency] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fallback rates: %w", err)
	}

	r.logger.WithField("count", len(entries)).Debug("Loaded fallback rates")
	return entries, nil
}

// Save upserts every entry in one transaction.
func (r *FallbackRepo) Save(ctx context.Context, entries map[string]entity.FallbackEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.WithError(err).Error("Failed to begin transaction")
		return fmt.Errorf("begin tx: %w", err)
	}

	batch := &pgx.Batch{}
	for _, currency := range slices.Sorted(maps.Keys(entries)) {
		e := entries[currency]
		query, args, err := upsertQuery(currency, e)
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("build upsert for %s: %w", currency, err)
		}
		batch.Queue(query, args...)
	}

	br := tx.SendBatch(ctx, batch)

	var batchErrs error
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			batchErrs = multierr.Append(batchErrs, err)
			r.logger.WithError(err).Errorf("Failed batch exec for fallback rate %d", i)
		}
	}

	if err := br.Close(); err != nil {
		batchErrs = multierr.Append(batchErrs, err)
		r.logger.WithError(err).Error("Failed to close batch results")
	}

	if batchErrs != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			r.logger.WithError(rbErr).Error("Failed to rollback tx after batch errors")
		}
		return fmt.Errorf("batch exec/close errors: %w", batchErrs)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithError(err).Error("Failed to commit tx")
		return fmt.Errorf("commit tx: %w", err)
	}

	r.logger.WithField("count", len(entries)).Info("Stored fallback rates")
	return nil
}

func upsertQuery(currency string, e entity.FallbackEntry) (string, []any, error) {
	return psql.Insert(fallbackTable).
		Columns("currency", "rate", "amount", "rate_date").
		Values(currency, e.Rate, e.Amount, e.Date).
		Suffix(upsertSuffix).
		ToSql()
}
