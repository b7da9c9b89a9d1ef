// internal/service/planning/planning.go
package planning

import (
	"context"
	"fmt"
	"time"

	"routedesk-service/internal/domain/auth"
	"routedesk-service/internal/domain/call"
	"routedesk-service/internal/domain/customer"
	"routedesk-service/internal/domain/route"
	"routedesk-service/internal/metrics"
	"routedesk-service/internal/pkg/clock"
	xerrors "routedesk-service/internal/pkg/errors"
	"routedesk-service/internal/pkg/result"
	"routedesk-service/internal/ports"
	"routedesk-service/internal/service/intelligence"

	"go.uber.org/zap"
)

type PlanningService struct {
	store     ports.Store
	engine    *intelligence.Engine
	notifier  ports.Notifier
	metrics   *metrics.Metrics
	dailyGoal int
	logger    *zap.Logger
}

func NewPlanningService(store ports.Store, engine *intelligence.Engine, notifier ports.Notifier, m *metrics.Metrics, dailyGoal int, logger *zap.Logger) *PlanningService {
	if notifier == nil {
		notifier = ports.NopNotifier{}
	}
	return &PlanningService{
		store:     store,
		engine:    engine,
		notifier:  notifier,
		metrics:   m,
		dailyGoal: dailyGoal,
		logger:    logger,
	}
}

// ListCustomers returns customers matching every given filter, with their snapshots.
// The status filter is evaluated in memory against the snapshot as of asOf.
func (s *PlanningService) ListCustomers(ctx context.Context, filters customer.CustomerListFilters, asOf time.Time) ([]customer.View, error) {
	if !filters.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status filter %q", xerrors.ErrInvalidInput, filters.Status)
	}
	if filters.GroupingID != nil {
		if _, err := s.store.Groupings().FindByID(ctx, *filters.GroupingID); err != nil {
			return nil, err
		}
	}

	customers, err := s.store.Customers().List(ctx, customer.Query{
		Neighborhood: filters.Neighborhood,
		GroupingID:   filters.GroupingID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	views := make([]customer.View, 0, len(customers))
	for _, c := range customers {
		v := s.engine.View(c, asOf)
		if intelligence.Matches(v.Status, filters.Status) {
			views = append(views, v)
		}
	}
	return views, nil
}

// BulkAssign creates a new route for the agent dated asOf and one pending visit per
// customer id given, repeats included. It never reuses an existing route.
func (s *PlanningService) BulkAssign(ctx context.Context, actor auth.Actor, req route.BulkAssignRequest, asOf time.Time) (*result.Result, error) {
	if !actor.Elevated {
		return nil, fmt.Errorf("bulk assignment requires a manager: %w", xerrors.ErrForbidden)
	}
	ids := req.CustomerIDs
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no customers selected", xerrors.ErrInvalidInput)
	}

	day := clock.Day(asOf)
	var (
		rt     *route.Route
		agent  *auth.User
		visits []*route.Visit
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		if agent, err = tx.Users().FindByID(ctx, req.AgentID); err != nil {
			return err
		}
		rt = &route.Route{
			Name:      route.PlannedName(day),
			AgentID:   agent.ID,
			Kind:      route.KindManual,
			RouteDate: day,
			CreatedAt: asOf,
		}
		if err := tx.Routes().Create(ctx, rt); err != nil {
			return err
		}

		visits = make([]*route.Visit, 0, len(ids))
		for _, id := range ids {
			visits = append(visits, &route.Visit{
				RouteID:    rt.ID,
				CustomerID: id,
				Status:     route.VisitPending,
				CreatedAt:  asOf,
			})
		}
		return tx.Visits().CreateBatch(ctx, visits)
	})
	if err != nil {
		if !xerrors.IsClientError(err) {
			s.logger.Error("failed to assign route", zap.Int64("agent_id", req.AgentID), zap.Error(err))
		}
		return nil, err
	}

	visitIDs := make([]int64, 0, len(visits))
	for _, v := range visits {
		visitIDs = append(visitIDs, v.ID)
	}
	s.metrics.IncRouteCreated(string(rt.Kind))
	s.notifier.VisitsAssigned(ports.VisitAssignment{
		AgentID:   rt.AgentID,
		RouteID:   rt.ID,
		RouteName: rt.Name,
		VisitIDs:  visitIDs,
		Source:    "planning",
		At:        asOf,
	})

	s.logger.Info("route assigned",
		zap.Int64("route_id", rt.ID),
		zap.Int64("agent_id", rt.AgentID),
		zap.Int64("assigned_by", actor.UserID),
		zap.Int("visits", len(visits)),
	)
	return result.Success(fmt.Sprintf("%s created for %s with %d visits", rt.Name, agent.Username, len(visits))), nil
}

// CallQueue returns the sales agent's customers not yet called today, highest debt
// first, together with today's call counters.
func (s *PlanningService) CallQueue(ctx context.Context, actor auth.Actor, asOf time.Time) (*call.Queue, error) {
	customers, err := s.store.Customers().ListForSalesAgent(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue customers: %w", err)
	}

	day := clock.Day(asOf)
	from, to := clock.Bounds(day, day, asOf.Location())
	calls, err := s.store.Calls().ListBetween(ctx, &actor.UserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list today's calls: %w", err)
	}

	q := &call.Queue{
		Customers: make([]customer.View, 0, len(customers)),
		Metrics:   call.QueueMetrics{CallsToday: len(calls), DailyGoal: s.dailyGoal},
	}
	called := make(map[int64]struct{}, len(calls))
	for _, c := range calls {
		called[c.CustomerID] = struct{}{}
		switch c.Result {
		case call.ResultSaleClosed:
			q.Metrics.SalesToday++
		case call.ResultRefused:
			q.Metrics.RefusalToday++
		}
	}
	for _, c := range customers {
		if _, ok := called[c.ID]; ok {
			continue
		}
		q.Customers = append(q.Customers, s.engine.View(c, asOf))
	}
	return q, nil
}
