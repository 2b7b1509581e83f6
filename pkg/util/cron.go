package util

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Standard five-field format: minute, hour, day of month, month, day of week.
var refreshParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRefreshTime returns the first occurrence of the schedule after 'from', in UTC.
func NextRefreshTime(expr string, from time.Time) (time.Time, error) {
	schedule, err := refreshParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid refresh schedule: %w", err)
	}
	return schedule.Next(from.UTC()), nil
}

// ValidateRefreshExpr checks a refresh schedule expression without computing anything.
func ValidateRefreshExpr(expr string) error {
	if _, err := refreshParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid refresh schedule: %w", err)
	}
	return nil
}
