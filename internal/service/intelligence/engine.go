// internal/service/intelligence/engine.go
package intelligence

import (
	"fmt"
	"math"
	"sort"
	"time"

	"routedesk-service/internal/domain/customer"
	"routedesk-service/internal/pkg/clock"
	"routedesk-service/internal/pkg/money"
)

const (
	DefaultCycleDays  = 30.0
	DefaultSampleSize = 3

	// A customer is churned after this many cycles without a purchase.
	ChurnCycles = 3
	// Purchases at most this many days old are tagged as recent.
	RecentPurchaseDays = 5
)

const (
	TagChurned    = "CHURNED"
	TagDelinquent = "DELINQUENT"
	TagRecent     = "RECENT"
	TagDebt       = "DEBT"
	TagNoHistory  = "NO_HISTORY"
)

// Engine derives consumption status from purchase history. It holds no state besides
// its settings and never reads the clock.
type Engine struct {
	sampleSize int
	loc        *time.Location
}

func New(sampleSize int, loc *time.Location) *Engine {
	if sampleSize < 2 {
		sampleSize = DefaultSampleSize
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{sampleSize: sampleSize, loc: loc}
}

// SampleSize is the number of most recent purchases the cycle is estimated from.
func (e *Engine) SampleSize() int {
	return e.sampleSize
}

// Day is the calendar date of t in the engine's location.
func (e *Engine) Day(t time.Time) time.Time {
	return clock.DayIn(t, e.loc)
}

// EstimateCycle returns the mean gap in days between the most recent purchases.
// Gaps are counted in calendar days and same-day purchases are ignored. Fewer than
// two usable purchases give DefaultCycleDays.
func (e *Engine) EstimateCycle(purchases []time.Time) float64 {
	days := make([]time.Time, 0, len(purchases))
	for _, p := range purchases {
		days = append(days, clock.DayIn(p, e.loc))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	if len(days) > e.sampleSize {
		days = days[:e.sampleSize]
	}

	var sum, n int
	for i := 0; i+1 < len(days); i++ {
		if gap := clock.DaysBetween(days[i+1], days[i]); gap > 0 {
			sum += gap
			n++
		}
	}
	if n == 0 {
		return DefaultCycleDays
	}
	return float64(sum) / float64(n)
}

// Evaluate computes the snapshot of c as of the given instant.
func (e *Engine) Evaluate(c *customer.Customer, asOf time.Time) customer.Snapshot {
	cycle := c.CycleDays
	if cycle <= 0 {
		cycle = DefaultCycleDays
	}
	snap := customer.Snapshot{CycleDays: cycle}

	if c.LastPurchaseOn == nil {
		snap.NeverPurchased = true
		snap.Tags = append(snap.Tags, customer.Tag{Code: TagNoHistory, Label: "NO HISTORY", Level: "secondary"})
	} else {
		last := clock.Day(*c.LastPurchaseOn)
		days := clock.DaysBetween(last, clock.DayIn(asOf, e.loc))
		if days < 0 {
			days = 0
		}
		next := last.AddDate(0, 0, int(math.Round(cycle)))
		snap.DaysSinceLastPurchase = &days
		snap.NextPurchaseOn = &next
		snap.Delinquent = float64(days) > cycle
		snap.Churned = float64(days) > ChurnCycles*cycle

		switch {
		case snap.Churned:
			snap.Tags = append(snap.Tags, customer.Tag{Code: TagChurned, Label: "CHURNED", Level: "danger"})
		case snap.Delinquent:
			snap.Tags = append(snap.Tags, customer.Tag{Code: TagDelinquent, Label: fmt.Sprintf("OVERDUE %dd", days), Level: "warning"})
		case days <= RecentPurchaseDays:
			snap.Tags = append(snap.Tags, customer.Tag{Code: TagRecent, Label: "RECENT PURCHASE", Level: "success"})
		}
	}

	if c.HasDebt() {
		snap.Tags = append(snap.Tags, customer.Tag{Code: TagDebt, Label: "DEBT " + money.Format(c.Debt), Level: "dark"})
	}
	return snap
}

// View evaluates c and pairs it with its snapshot.
func (e *Engine) View(c customer.Customer, asOf time.Time) customer.View {
	return customer.View{Customer: c, Status: e.Evaluate(&c, asOf)}
}

// Matches reports whether a snapshot satisfies a status filter.
func Matches(s customer.Snapshot, f customer.StatusFilter) bool {
	switch f {
	case customer.StatusChurned:
		return s.Churned
	case customer.StatusDelinquent:
		return s.Delinquent
	case customer.StatusNeverPurchased:
		return s.NeverPurchased
	}
	return true
}
