package brain

import (
	"context"
	"time"

	"github.com/wonny/threes/backend/pkg/logger"
)

// ReferenceCode is the stock whose price history defines trading days
const ReferenceCode = "005930"

// TradingCalendar finds the latest trading day
type TradingCalendar interface {
	LatestTradingDay(ctx context.Context, refCode string, now time.Time) (time.Time, error)
}

// ResolveRunDate returns the latest date with a non-zero close of the
// reference stock, or now when the calendar is unavailable.
func ResolveRunDate(ctx context.Context, cal TradingCalendar, now time.Time, log *logger.Logger) time.Time {
	if cal == nil {
		return now
	}
	day, err := cal.LatestTradingDay(ctx, ReferenceCode, now)
	if err != nil || day.IsZero() {
		log.WithError(err).Warn("Latest trading day unavailable, using today")
		return now
	}
	return day
}
