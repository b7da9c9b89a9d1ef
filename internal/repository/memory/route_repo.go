// internal/repository/memory/route_repo.go
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

type routeRepo struct {
	sc scope
}

func (r *routeRepo) Create(ctx context.Context, rt *route.Route) error {
	return r.sc.do(func(st *state) error {
		if _, ok := st.users[rt.AgentID]; !ok {
			return fmt.Errorf("agent %d: %w", rt.AgentID, xerrors.ErrNotFound)
		}
		insertRoute(st, rt)
		return nil
	})
}

func insertRoute(st *state, rt *route.Route) {
	rt.ID = st.nextID()
	rt.RouteDate = clock.Day(rt.RouteDate)
	if rt.CreatedAt.IsZero() {
		rt.CreatedAt = time.Now()
	}
	st.routes[rt.ID] = *rt
}

func (r *routeRepo) FindByID(ctx context.Context, id int64) (*route.Route, error) {
	var rt route.Route
	err := r.sc.do(func(st *state) error {
		found, ok := st.routes[id]
		if !ok {
			return fmt.Errorf("route %d: %w", id, xerrors.ErrNotFound)
		}
		rt = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *routeRepo) GetOrCreateDaily(ctx context.Context, agentID int64, day time.Time, name string) (*route.Route, bool, error) {
	var (
		out     route.Route
		created bool
	)
	day = clock.Day(day)
	err := r.sc.do(func(st *state) error {
		var ids []int64
		for id, rt := range st.routes {
			if rt.AgentID == agentID && rt.RouteDate.Equal(day) {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			out = st.routes[ids[0]]
			return nil
		}
		if _, ok := st.users[agentID]; !ok {
			return fmt.Errorf("agent %d: %w", agentID, xerrors.ErrNotFound)
		}
		rt := route.Route{Name: name, AgentID: agentID, Kind: route.KindDaily, RouteDate: day}
		insertRoute(st, &rt)
		out, created = rt, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, created, nil
}
