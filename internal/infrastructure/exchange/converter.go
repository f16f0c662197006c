// Package exchange converts amounts between currencies with the European
// Central Bank reference rates, downloaded at most once per day.
package exchange

import (
	"context"
	"time"

	"github.com/recibos/taxbot/internal/domain/shared/valueobject"
	"github.com/recibos/taxbot/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Converter converts amounts using the rates published on a given day.
// It satisfies invoice.Converter.
type Converter struct {
	cache    *DailyCache
	fallback bool
	opts     options
}

// NewConverter creates a Converter backed by a DailyCache built from cfg
func NewConverter(cfg Config, fetcher Fetcher, opts ...Option) *Converter {
	return &Converter{
		cache:    NewDailyCache(cfg, fetcher, opts...),
		fallback: cfg.FallbackOnMissingRate,
		opts:     buildOptions(opts),
	}
}

// Convert returns amount / rate(from) * rate(to) for the rates published on
// the given day. Converting a currency to itself returns amount without
// touching the cache.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency, on time.Time) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "exchange.convert",
		telemetry.WithAttribute(telemetry.SpanAttrCurrencyFrom, from.String()),
		telemetry.WithAttribute(telemetry.SpanAttrCurrencyTo, to.String()),
		telemetry.WithAttribute(telemetry.SpanAttrRateDate, on.Format(dateLayout)),
	)
	defer span.End()

	result, err := c.convert(ctx, amount, from, to, on)
	c.opts.metrics.RecordConversion(from.String(), to.String(), err)
	if err != nil {
		telemetry.RecordError(span, err)
		c.opts.logger.Warn("Currency conversion failed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.String("date", on.Format(dateLayout)),
			zap.Error(err),
		)
		return decimal.Zero, err
	}

	c.opts.logger.Debug("Currency converted",
		zap.String("amount", amount.String()),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("date", on.Format(dateLayout)),
		zap.String("result", result.String()),
	)
	return result, nil
}

func (c *Converter) convert(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency, on time.Time) (decimal.Decimal, error) {
	table, err := c.cache.Table(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	rateFrom, usedFrom, err := table.Rate(from, on, c.fallback)
	if err != nil {
		return decimal.Zero, err
	}
	rateTo, usedTo, err := table.Rate(to, on, c.fallback)
	if err != nil {
		return decimal.Zero, err
	}

	day := time.Date(on.Year(), on.Month(), on.Day(), 0, 0, 0, 0, time.UTC)
	if !usedFrom.Equal(day) || !usedTo.Equal(day) {
		c.opts.logger.Info("Using earlier published rate",
			zap.String("requested", day.Format(dateLayout)),
			zap.String("from_rate_day", usedFrom.Format(dateLayout)),
			zap.String("to_rate_day", usedTo.Format(dateLayout)),
		)
	}

	return amount.Div(rateFrom).Mul(rateTo), nil
}
