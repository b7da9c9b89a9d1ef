// internal/repository/memory/call_repo.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"routedesk-service/internal/domain/call"
	xerrors "routedesk-service/internal/pkg/errors"
)

type callRepo struct {
	sc scope
}

func (r *callRepo) Create(ctx context.Context, c *call.Call) error {
	return r.sc.do(func(st *state) error {
		if _, ok := st.customers[c.CustomerID]; !ok {
			return fmt.Errorf("customer %d: %w", c.CustomerID, xerrors.ErrNotFound)
		}
		c.ID = st.nextID()
		st.calls[c.ID] = *c
		return nil
	})
}

func (r *callRepo) ListBetween(ctx context.Context, agentID *int64, from, to time.Time) ([]call.CallView, error) {
	var out []call.CallView
	err := r.sc.do(func(st *state) error {
		for _, c := range st.calls {
			if agentID != nil && c.AgentID != *agentID {
				continue
			}
			if c.CalledAt.Before(from) || !c.CalledAt.Before(to) {
				continue
			}
			out = append(out, call.CallView{
				Call:         c,
				AgentName:    st.users[c.AgentID].Username,
				CustomerName: st.customers[c.CustomerID].Name,
			})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CalledAt.Equal(out[j].CalledAt) {
			return out[i].CalledAt.After(out[j].CalledAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}
