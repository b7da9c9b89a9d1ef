// internal/service/report/report.go
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"routedesk-service/internal/domain/auth"
	"routedesk-service/internal/domain/call"
	"routedesk-service/internal/domain/report"
	"routedesk-service/internal/domain/route"
	"routedesk-service/internal/pkg/clock"
	xerrors "routedesk-service/internal/pkg/errors"
	"routedesk-service/internal/ports"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	dateLayout   = "2006-01-02"
	inactiveDays = 15
)

type ReportService struct {
	store  ports.Store
	logger *zap.Logger
}

func NewReportService(store ports.Store, logger *zap.Logger) *ReportService {
	return &ReportService{store: store, logger: logger}
}

// ParsePeriod resolves a period query against asOf. A missing bound means today, a
// malformed bound resets the period to today and adds a warning, and reversed bounds
// are swapped.
func ParsePeriod(q report.PeriodQuery, asOf time.Time) (report.Period, []string) {
	today := clock.Day(asOf)
	start, errStart := parseDay(q.Start, today)
	end, errEnd := parseDay(q.End, today)
	if errStart != nil || errEnd != nil {
		return report.Period{Start: today, End: today},
			[]string{fmt.Sprintf("period %q to %q not understood, showing today", q.Start, q.End)}
	}
	if start.After(end) {
		start, end = end, start
	}
	return report.Period{Start: start, End: end}, nil
}

func parseDay(raw string, fallback time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return time.Parse(dateLayout, raw)
}

// DeliveryBoard lists an agent's visits for one day. Agents may only read their own
// board.
func (s *ReportService) DeliveryBoard(ctx context.Context, actor auth.Actor, agentID int64, day time.Time) (*route.DeliveryBoard, error) {
	if agentID != actor.UserID && !actor.Elevated {
		return nil, fmt.Errorf("board of agent %d: %w", agentID, xerrors.ErrForbidden)
	}
	day = clock.Day(day)

	visits, err := s.store.Visits().ListByRouteDays(ctx, &agentID, day, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}

	board := &route.DeliveryBoard{
		AgentID:   agentID,
		Day:       day.Format(dateLayout),
		Pending:   []route.VisitView{},
		Finalized: []route.VisitView{},
		Summary:   route.BoardSummary{TotalReceived: decimal.Zero},
	}
	for _, v := range visits {
		switch v.Status {
		case route.VisitPending:
			board.Pending = append(board.Pending, v)
			continue
		case route.VisitRealized:
			board.Summary.Realized++
		case route.VisitNotSold:
			board.Summary.NotSold++
		}
		board.Summary.TotalReceived = board.Summary.TotalReceived.Add(v.AmountReceived)
		board.Finalized = append(board.Finalized, v)
	}
	sortByVisitTime(board.Finalized)
	return board, nil
}

// GetVisit returns one visit for the outcome form, under the same ownership rule as
// recording its outcome.
func (s *ReportService) GetVisit(ctx context.Context, actor auth.Actor, visitID int64) (*route.VisitView, error) {
	v, err := s.store.Visits().FindByID(ctx, visitID)
	if err != nil {
		return nil, err
	}
	rt, err := s.store.Routes().FindByID(ctx, v.RouteID)
	if err != nil {
		return nil, err
	}
	if rt.AgentID != actor.UserID && !actor.Elevated {
		return nil, fmt.Errorf("visit %d belongs to another agent: %w", visitID, xerrors.ErrForbidden)
	}
	c, err := s.store.Customers().FindByID(ctx, v.CustomerID)
	if err != nil {
		return nil, err
	}
	agent, err := s.store.Users().FindByID(ctx, rt.AgentID)
	if err != nil {
		return nil, err
	}
	return &route.VisitView{
		Visit:         *v,
		AgentID:       rt.AgentID,
		AgentName:     agent.Username,
		RouteDate:     rt.RouteDate,
		CustomerName:  c.Name,
		Neighborhood:  c.Neighborhood,
		CustomerPhone: c.Phone,
	}, nil
}

// Dashboard aggregates the visits on routes dated within the period, the calls made
// in it, and the number of customers inactive as of asOf.
func (s *ReportService) Dashboard(ctx context.Context, period report.Period, asOf time.Time) (*report.Dashboard, error) {
	var (
		visits   []route.VisitView
		calls    []call.CallView
		inactive int
	)
	from, to := clock.Bounds(period.Start, period.End, asOf.Location())

	// The three reads are independent.
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if visits, err = s.store.Visits().ListByRouteDays(gCtx, nil, period.Start, period.End); err != nil {
			return fmt.Errorf("failed to list visits: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if calls, err = s.store.Calls().ListBetween(gCtx, nil, from, to); err != nil {
			return fmt.Errorf("failed to list calls: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if inactive, err = s.store.Customers().CountInactive(gCtx, clock.Day(asOf).AddDate(0, 0, -inactiveDays)); err != nil {
			return fmt.Errorf("failed to count inactive customers: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if visits == nil {
		visits = []route.VisitView{}
	}

	d := &report.Dashboard{
		Period:            period,
		Calls:             len(calls),
		InactiveCustomers: inactive,
		History:           visits,
		Visits:            report.VisitKPIs{TotalReceived: decimal.Zero, Total: len(visits)},
	}
	for _, v := range visits {
		d.Visits.TotalReceived = d.Visits.TotalReceived.Add(v.AmountReceived)
		switch v.Status {
		case route.VisitPending:
			d.Visits.Pending++
		case route.VisitRealized:
			d.Visits.Realized++
		case route.VisitNotSold:
			d.Visits.Losses++
			if v.NotSoldReason == nil {
				d.Visits.OtherLoss++
				continue
			}
			switch *v.NotSoldReason {
			case route.ReasonCompetitor:
				d.Visits.CompetitorLoss++
			case route.ReasonNoNeed:
				d.Visits.NoNeed++
			default:
				d.Visits.OtherLoss++
			}
		}
	}
	d.Visits.Finalized = d.Visits.Realized + d.Visits.Losses
	sortByVisitTime(d.History)
	return d, nil
}

// AuditReport lists the calls and finalized visits of the period, newest first, with
// a per-agent call ranking.
func (s *ReportService) AuditReport(ctx context.Context, period report.Period, asOf time.Time) (*report.Audit, error) {
	from, to := clock.Bounds(period.Start, period.End, asOf.Location())

	calls, err := s.store.Calls().ListBetween(ctx, nil, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	visits, err := s.store.Visits().ListFinalized(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	if calls == nil {
		calls = []call.CallView{}
	}
	if visits == nil {
		visits = []route.VisitView{}
	}
	return &report.Audit{
		Period:  period,
		Calls:   calls,
		Ranking: rank(calls),
		Visits:  visits,
	}, nil
}

func rank(calls []call.CallView) []report.AgentRanking {
	byAgent := map[int64]*report.AgentRanking{}
	for _, c := range calls {
		r, ok := byAgent[c.AgentID]
		if !ok {
			r = &report.AgentRanking{AgentID: c.AgentID, Username: c.AgentName}
			byAgent[c.AgentID] = r
		}
		r.Total++
		if c.Result == call.ResultSaleClosed {
			r.Sales++
		}
	}

	out := make([]report.AgentRanking, 0, len(byAgent))
	for _, r := range byAgent {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Username < out[j].Username
	})
	return out
}

// sortByVisitTime orders newest visit first; visits not yet made go last.
func sortByVisitTime(vs []route.VisitView) {
	sort.SliceStable(vs, func(i, j int) bool {
		a, b := vs[i].VisitedAt, vs[j].VisitedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
}
