// internal/repository/memory/visit_repo.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"routedesk-service/internal/domain/route"
	"routedesk-service/internal/pkg/clock"
	xerrors "routedesk-service/internal/pkg/errors"
)

type visitRepo struct {
	sc scope
}

func (r *visitRepo) Create(ctx context.Context, v *route.Visit) error {
	return r.CreateBatch(ctx, []*route.Visit{v})
}

func (r *visitRepo) CreateBatch(ctx context.Context, visits []*route.Visit) error {
	return r.sc.do(func(st *state) error {
		for _, v := range visits {
			if _, ok := st.routes[v.RouteID]; !ok {
				return fmt.Errorf("route %d: %w", v.RouteID, xerrors.ErrNotFound)
			}
			if _, ok := st.customers[v.CustomerID]; !ok {
				return fmt.Errorf("customer %d: %w", v.CustomerID, xerrors.ErrNotFound)
			}
		}
		for _, v := range visits {
			v.ID = st.nextID()
			if v.Status == "" {
				v.Status = route.VisitPending
			}
			if v.CreatedAt.IsZero() {
				v.CreatedAt = time.Now()
			}
			st.visits[v.ID] = *v
		}
		return nil
	})
}

func (r *visitRepo) FindByID(ctx context.Context, id int64) (*route.Visit, error) {
	var v route.Visit
	err := r.sc.do(func(st *state) error {
		found, ok := st.visits[id]
		if !ok {
			return fmt.Errorf("visit %d: %w", id, xerrors.ErrNotFound)
		}
		v = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *visitRepo) FindForUpdate(ctx context.Context, id int64) (*route.Visit, error) {
	return r.FindByID(ctx, id)
}

func (r *visitRepo) SaveOutcome(ctx context.Context, v *route.Visit) error {
	return r.sc.do(func(st *state) error {
		if _, ok := st.visits[v.ID]; !ok {
			return fmt.Errorf("visit %d: %w", v.ID, xerrors.ErrNotFound)
		}
		st.visits[v.ID] = *v
		return nil
	})
}

func (r *visitRepo) RecentPurchases(ctx context.Context, customerID int64, limit int) ([]time.Time, error) {
	var out []time.Time
	err := r.sc.do(func(st *state) error {
		for _, v := range st.visits {
			if v.CustomerID == customerID && v.Status == route.VisitRealized && v.VisitedAt != nil {
				out = append(out, *v.VisitedAt)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *visitRepo) ListByRouteDays(ctx context.Context, agentID *int64, fromDay, toDay time.Time) ([]route.VisitView, error) {
	var out []route.VisitView
	from, to := clock.Day(fromDay), clock.Day(toDay)
	err := r.sc.do(func(st *state) error {
		for _, v := range st.visits {
			rt := st.routes[v.RouteID]
			if agentID != nil && rt.AgentID != *agentID {
				continue
			}
			if rt.RouteDate.Before(from) || rt.RouteDate.After(to) {
				continue
			}
			out = append(out, view(st, v))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Neighborhood != out[j].Neighborhood {
			return out[i].Neighborhood < out[j].Neighborhood
		}
		if out[i].CustomerName != out[j].CustomerName {
			return out[i].CustomerName < out[j].CustomerName
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *visitRepo) ListFinalized(ctx context.Context, from, to time.Time) ([]route.VisitView, error) {
	var out []route.VisitView
	err := r.sc.do(func(st *state) error {
		for _, v := range st.visits {
			if !v.Status.Terminal() || v.VisitedAt == nil {
				continue
			}
			if v.VisitedAt.Before(from) || !v.VisitedAt.Before(to) {
				continue
			}
			out = append(out, view(st, v))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].VisitedAt.Equal(*out[j].VisitedAt) {
			return out[i].VisitedAt.After(*out[j].VisitedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func view(st *state, v route.Visit) route.VisitView {
	rt := st.routes[v.RouteID]
	c := st.customers[v.CustomerID]
	return route.VisitView{
		Visit:         v,
		AgentID:       rt.AgentID,
		AgentName:     st.users[rt.AgentID].Username,
		RouteDate:     rt.RouteDate,
		CustomerName:  c.Name,
		Neighborhood:  c.Neighborhood,
		CustomerPhone: c.Phone,
	}
}
