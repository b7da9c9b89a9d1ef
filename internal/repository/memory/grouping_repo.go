// internal/repository/memory/grouping_repo.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"routedesk-service/internal/domain/grouping"
	xerrors "routedesk-service/internal/pkg/errors"
)

type groupingRepo struct {
	sc scope
}

func (r *groupingRepo) Create(ctx context.Context, g *grouping.Grouping) error {
	return r.sc.do(func(st *state) error {
		g.ID = st.nextID()
		if g.CreatedAt.IsZero() {
			g.CreatedAt = time.Now()
		}
		st.groupings[g.ID] = *g
		st.members[g.ID] = map[int64]struct{}{}
		return nil
	})
}

func (r *groupingRepo) FindByID(ctx context.Context, id int64) (*grouping.Grouping, error) {
	var g grouping.Grouping
	err := r.sc.do(func(st *state) error {
		found, ok := st.groupings[id]
		if !ok {
			return fmt.Errorf("grouping %d: %w", id, xerrors.ErrNotFound)
		}
		found.MemberCount = len(st.members[id])
		g = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *groupingRepo) List(ctx context.Context) ([]grouping.Grouping, error) {
	var out []grouping.Grouping
	err := r.sc.do(func(st *state) error {
		for id, g := range st.groupings {
			g.MemberCount = len(st.members[id])
			out = append(out, g)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *groupingRepo) Delete(ctx context.Context, id int64) error {
	return r.sc.do(func(st *state) error {
		if _, ok := st.groupings[id]; !ok {
			return fmt.Errorf("grouping %d: %w", id, xerrors.ErrNotFound)
		}
		delete(st.groupings, id)
		delete(st.members, id)
		return nil
	})
}

func (r *groupingRepo) SetDeliveryAgent(ctx context.Context, id int64, agentID *int64) error {
	return r.update(id, func(g *grouping.Grouping) { g.DeliveryAgentID = agentID })
}

func (r *groupingRepo) SetSalesAgent(ctx context.Context, id int64, agentID *int64) error {
	return r.update(id, func(g *grouping.Grouping) { g.SalesAgentID = agentID })
}

func (r *groupingRepo) update(id int64, fn func(g *grouping.Grouping)) error {
	return r.sc.do(func(st *state) error {
		g, ok := st.groupings[id]
		if !ok {
			return fmt.Errorf("grouping %d: %w", id, xerrors.ErrNotFound)
		}
		fn(&g)
		st.groupings[id] = g
		return nil
	})
}

func (r *groupingRepo) AddMembers(ctx context.Context, id int64, customerIDs []int64) error {
	return r.sc.do(func(st *state) error {
		set, ok := st.members[id]
		if !ok {
			return fmt.Errorf("grouping %d: %w", id, xerrors.ErrNotFound)
		}
		for _, cid := range customerIDs {
			if _, ok := st.customers[cid]; !ok {
				return fmt.Errorf("customer %d: %w", cid, xerrors.ErrNotFound)
			}
		}
		for _, cid := range customerIDs {
			set[cid] = struct{}{}
		}
		return nil
	})
}

func (r *groupingRepo) RemoveMember(ctx context.Context, id, customerID int64) error {
	return r.sc.do(func(st *state) error {
		set, ok := st.members[id]
		if !ok {
			return fmt.Errorf("grouping %d: %w", id, xerrors.ErrNotFound)
		}
		delete(set, customerID)
		return nil
	})
}

func (r *groupingRepo) FirstForCustomer(ctx context.Context, customerID int64) (*grouping.Grouping, error) {
	var first *grouping.Grouping
	err := r.sc.do(func(st *state) error {
		for id, set := range st.members {
			if _, ok := set[customerID]; !ok {
				continue
			}
			if first == nil || id < first.ID {
				g := st.groupings[id]
				g.MemberCount = len(set)
				first = &g
			}
		}
		if first == nil {
			return fmt.Errorf("grouping for customer %d: %w", customerID, xerrors.ErrNotFound)
		}
		return nil
	})
	return first, err
}

func (r *groupingRepo) HasSalesAgent(ctx context.Context, agentID int64) (bool, error) {
	var found bool
	err := r.sc.do(func(st *state) error {
		for _, g := range st.groupings {
			if g.SalesAgentID != nil && *g.SalesAgentID == agentID {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}
