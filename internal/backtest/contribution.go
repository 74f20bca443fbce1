package backtest

import (
	"time"
)

// ════════════════════════════════════════════════════════════════════
// Contribution Scheduler
// ════════════════════════════════════════════════════════════════════

// scheduler emits one contribution per configured calendar day per
// month. A scheduled day falling on a non-trading day rolls forward to
// the next bar in the same month.
type scheduler struct {
	plan ContributionPlan
	days []int
	done map[schedKey]bool
}

type schedKey struct {
	year  int
	month time.Month
	day   int
}

func newScheduler(cfg *RunConfig) *scheduler {
	if !cfg.Plan.Enabled {
		return nil
	}
	return &scheduler{
		plan: cfg.Plan,
		days: cfg.planDays(),
		done: map[schedKey]bool{},
	}
}

// due returns how many contributions fall on this bar. Multiple
// schedule days can land on one bar after a long market holiday.
func (s *scheduler) due(ts time.Time) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, d := range s.days {
		key := schedKey{ts.Year(), ts.Month(), d}
		if s.done[key] {
			continue
		}
		if ts.Day() >= d {
			s.done[key] = true
			n++
		}
	}
	return n
}
