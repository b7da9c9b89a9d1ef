// internal/repository/memory/user_repo.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"routedesk-service/internal/domain/auth"
	xerrors "routedesk-service/internal/pkg/errors"
)

type userRepo struct {
	sc scope
}

func (r *userRepo) Create(ctx context.Context, u *auth.User) error {
	return r.sc.do(func(st *state) error {
		for _, existing := range st.users {
			if strings.EqualFold(existing.Username, u.Username) {
				return fmt.Errorf("username %q: %w", u.Username, xerrors.ErrConflict)
			}
		}
		u.ID = st.nextID()
		if u.CreatedAt.IsZero() {
			u.CreatedAt = time.Now()
		}
		st.users[u.ID] = *u
		return nil
	})
}

func (r *userRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	var u auth.User
	err := r.sc.do(func(st *state) error {
		found, ok := st.users[id]
		if !ok {
			return fmt.Errorf("user %d: %w", id, xerrors.ErrNotFound)
		}
		u = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	var u *auth.User
	err := r.sc.do(func(st *state) error {
		for _, existing := range st.users {
			if strings.EqualFold(existing.Username, username) {
				found := existing
				u = &found
				return nil
			}
		}
		return fmt.Errorf("username %q: %w", username, xerrors.ErrNotFound)
	})
	return u, err
}

func (r *userRepo) ListByRole(ctx context.Context, role string) ([]auth.User, error) {
	var out []auth.User
	err := r.sc.do(func(st *state) error {
		for _, u := range st.users {
			if role == "" || u.Role == role {
				out = append(out, u)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, err
}

func (r *userRepo) CountByRole(ctx context.Context, role string) (int, error) {
	users, err := r.ListByRole(ctx, role)
	return len(users), err
}
