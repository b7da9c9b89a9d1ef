// internal/repository/memory/customer_repo.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"routedesk-service/internal/domain/customer"
	xerrors "routedesk-service/internal/pkg/errors"
)

type customerRepo struct {
	sc scope
}

func (r *customerRepo) Create(ctx context.Context, c *customer.Customer) error {
	return r.sc.do(func(st *state) error {
		for _, existing := range st.customers {
			if existing.Name == c.Name {
				return fmt.Errorf("customer %q: %w", c.Name, xerrors.ErrConflict)
			}
		}
		if err := checkCycle(c.CycleDays); err != nil {
			return err
		}
		insertCustomer(st, c)
		return nil
	})
}

// checkCycle mirrors the cycle_days > 0 table constraint.
func checkCycle(days float64) error {
	if !(days > 0) {
		return fmt.Errorf("cycle_days %v must be positive: %w", days, xerrors.ErrInvalidInput)
	}
	return nil
}

func insertCustomer(st *state, c *customer.Customer) {
	c.ID = st.nextID()
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	st.customers[c.ID] = *c
}

func (r *customerRepo) GetOrCreateByName(ctx context.Context, c *customer.Customer) (*customer.Customer, bool, error) {
	var (
		found   customer.Customer
		created bool
	)
	err := r.sc.do(func(st *state) error {
		for _, existing := range st.customers {
			if existing.Name == c.Name {
				found = existing
				return nil
			}
		}
		if err := checkCycle(c.CycleDays); err != nil {
			return err
		}
		insertCustomer(st, c)
		found, created = *c, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &found, created, nil
}

func (r *customerRepo) FindByID(ctx context.Context, id int64) (*customer.Customer, error) {
	var c customer.Customer
	err := r.sc.do(func(st *state) error {
		found, ok := st.customers[id]
		if !ok {
			return fmt.Errorf("customer %d: %w", id, xerrors.ErrNotFound)
		}
		c = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *customerRepo) FindForUpdate(ctx context.Context, id int64) (*customer.Customer, error) {
	return r.FindByID(ctx, id)
}

func (r *customerRepo) UpdateLedger(ctx context.Context, c *customer.Customer) error {
	return r.sc.do(func(st *state) error {
		existing, ok := st.customers[c.ID]
		if !ok {
			return fmt.Errorf("customer %d: %w", c.ID, xerrors.ErrNotFound)
		}
		if err := checkCycle(c.CycleDays); err != nil {
			return err
		}
		existing.Debt = c.Debt
		existing.CycleDays = c.CycleDays
		existing.LastPurchaseOn = c.LastPurchaseOn
		existing.UpdatedAt = time.Now()
		st.customers[c.ID] = existing
		return nil
	})
}

func (r *customerRepo) List(ctx context.Context, q customer.Query) ([]customer.Customer, error) {
	var out []customer.Customer
	err := r.sc.do(func(st *state) error {
		var ids map[int64]struct{}
		if len(q.IDs) > 0 {
			ids = make(map[int64]struct{}, len(q.IDs))
			for _, id := range q.IDs {
				ids[id] = struct{}{}
			}
		}
		for _, c := range st.customers {
			if q.Neighborhood != "" && c.Neighborhood != q.Neighborhood {
				continue
			}
			if q.GroupingID != nil {
				if _, ok := st.members[*q.GroupingID][c.ID]; !ok {
					continue
				}
			}
			if ids != nil {
				if _, ok := ids[c.ID]; !ok {
					continue
				}
			}
			out = append(out, c)
		}
		return nil
	})
	sortByNeighborhood(out)
	return out, err
}

func (r *customerRepo) ListFree(ctx context.Context) ([]customer.Customer, error) {
	var out []customer.Customer
	err := r.sc.do(func(st *state) error {
		taken := map[int64]struct{}{}
		for _, set := range st.members {
			for id := range set {
				taken[id] = struct{}{}
			}
		}
		for _, c := range st.customers {
			if _, ok := taken[c.ID]; !ok {
				out = append(out, c)
			}
		}
		return nil
	})
	sortByNeighborhood(out)
	return out, err
}

func (r *customerRepo) ListForSalesAgent(ctx context.Context, agentID int64) ([]customer.Customer, error) {
	var out []customer.Customer
	err := r.sc.do(func(st *state) error {
		seen := map[int64]struct{}{}
		for gid, g := range st.groupings {
			if g.SalesAgentID == nil || *g.SalesAgentID != agentID {
				continue
			}
			for id := range st.members[gid] {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				out = append(out, st.customers[id])
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Debt.Cmp(out[j].Debt); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

func (r *customerRepo) ListNeighborhoods(ctx context.Context) ([]string, error) {
	var out []string
	err := r.sc.do(func(st *state) error {
		seen := map[string]struct{}{}
		for _, c := range st.customers {
			if _, ok := seen[c.Neighborhood]; !ok {
				seen[c.Neighborhood] = struct{}{}
				out = append(out, c.Neighborhood)
			}
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

func (r *customerRepo) CountInactive(ctx context.Context, purchasedBefore time.Time) (int, error) {
	var n int
	err := r.sc.do(func(st *state) error {
		for _, c := range st.customers {
			if c.LastPurchaseOn == nil || c.LastPurchaseOn.Before(purchasedBefore) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func sortByNeighborhood(cs []customer.Customer) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Neighborhood != cs[j].Neighborhood {
			return cs[i].Neighborhood < cs[j].Neighborhood
		}
		if cs[i].Name != cs[j].Name {
			return cs[i].Name < cs[j].Name
		}
		return cs[i].ID < cs[j].ID
	})
}
