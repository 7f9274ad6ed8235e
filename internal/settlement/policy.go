package settlement

import (
	"fmt"
	"time"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/config"
)

// Policy is one of the two settlement timing schemes. The contract evolved
// from day granularity to minute granularity, so both variants stay supported
// and already-computed expected dates remain valid.
type Policy interface {
	isPolicy()
}

// RelativeMinutes settles a payment a fixed number of minutes after capture.
type RelativeMinutes struct {
	Minutes int
}

func (RelativeMinutes) isPolicy() {}

// CutoffDays settles on a calendar-day schedule: captures at or after the
// cutoff hour count as next-day captures, then SettlementDays are added and
// the time-of-day is pinned to SettleHour. SkipWeekends rolls Saturday and
// Sunday forward to Monday.
type CutoffDays struct {
	Days         int
	CutoffHour   int
	SettleHour   int
	SkipWeekends bool
}

func (CutoffDays) isPolicy() {}

// PolicyFromConfig maps environment configuration onto a policy variant. A
// non-zero minutes value selects the relative-minutes mode.
func PolicyFromConfig(cfg config.SettlementConfig) Policy {
	if cfg.Minutes > 0 {
		return RelativeMinutes{Minutes: cfg.Minutes}
	}
	return CutoffDays{
		Days:         cfg.Days,
		CutoffHour:   cfg.CutoffHour,
		SettleHour:   cfg.SettleHour,
		SkipWeekends: cfg.SkipWeekends,
	}
}

// ExpectedAt computes when a payment captured at paidAt should settle.
func ExpectedAt(paidAt time.Time, policy Policy) (time.Time, error) {
	switch p := policy.(type) {
	case RelativeMinutes:
		return paidAt.Add(time.Duration(p.Minutes) * time.Minute), nil
	case CutoffDays:
		day := paidAt
		if paidAt.Hour() >= p.CutoffHour {
			day = day.AddDate(0, 0, 1)
		}
		day = day.AddDate(0, 0, p.Days)
		if p.SkipWeekends {
			switch day.Weekday() {
			case time.Saturday:
				day = day.AddDate(0, 0, 2)
			case time.Sunday:
				day = day.AddDate(0, 0, 1)
			}
		}
		return time.Date(day.Year(), day.Month(), day.Day(), p.SettleHour, 0, 0, 0, day.Location()), nil
	default:
		return time.Time{}, fmt.Errorf("unknown settlement policy %T", policy)
	}
}

// Due reports whether a payment is ready to settle. Safe to call repeatedly.
func Due(now, paidAt, expected time.Time, policy Policy) bool {
	switch p := policy.(type) {
	case RelativeMinutes:
		return now.Sub(paidAt) >= time.Duration(p.Minutes)*time.Minute
	case CutoffDays:
		if now.Before(expected) {
			return false
		}
		if p.SkipWeekends {
			wd := now.Weekday()
			if wd == time.Saturday || wd == time.Sunday {
				return false
			}
		}
		return true
	default:
		return false
	}
}
