// internal/repository/memory/store.go
package memory

import (
	"context"
	"sync"

	"routedesk-service/internal/domain/auth"
	"routedesk-service/internal/domain/call"
	"routedesk-service/internal/domain/customer"
	"routedesk-service/internal/domain/grouping"
	"routedesk-service/internal/domain/route"
	"routedesk-service/internal/ports"
)

// state is one consistent version of every table.
type state struct {
	seq       int64
	customers map[int64]customer.Customer
	groupings map[int64]grouping.Grouping
	members   map[int64]map[int64]struct{}
	routes    map[int64]route.Route
	visits    map[int64]route.Visit
	calls     map[int64]call.Call
	users     map[int64]auth.User
}

func newState() *state {
	return &state{
		customers: map[int64]customer.Customer{},
		groupings: map[int64]grouping.Grouping{},
		members:   map[int64]map[int64]struct{}{},
		routes:    map[int64]route.Route{},
		visits:    map[int64]route.Visit{},
		calls:     map[int64]call.Call{},
		users:     map[int64]auth.User{},
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *state) clone() *state {
	c := &state{
		seq:       s.seq,
		customers: make(map[int64]customer.Customer, len(s.customers)),
		groupings: make(map[int64]grouping.Grouping, len(s.groupings)),
		members:   make(map[int64]map[int64]struct{}, len(s.members)),
		routes:    make(map[int64]route.Route, len(s.routes)),
		visits:    make(map[int64]route.Visit, len(s.visits)),
		calls:     make(map[int64]call.Call, len(s.calls)),
		users:     make(map[int64]auth.User, len(s.users)),
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.groupings {
		c.groupings[k] = v
	}
	for k, set := range s.members {
		cp := make(map[int64]struct{}, len(set))
		for id := range set {
			cp[id] = struct{}{}
		}
		c.members[k] = cp
	}
	for k, v := range s.routes {
		c.routes[k] = v
	}
	for k, v := range s.visits {
		c.visits[k] = v
	}
	for k, v := range s.calls {
		c.calls[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

// Store keeps every table in process memory. Transactions work on a private copy
// that replaces the shared state on commit, and run one at a time.
type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// scope gives repositories access to the state they operate on: the shared state
// under the store lock, or a transaction's private copy.
type scope struct {
	store *Store
	tx    *state
}

func (sc scope) do(fn func(st *state) error) error {
	if sc.tx != nil {
		return fn(sc.tx)
	}
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	return fn(sc.store.st)
}

type repos struct {
	sc scope
}

func (r repos) Customers() ports.CustomerRepository { return &customerRepo{r.sc} }
func (r repos) Groupings() ports.GroupingRepository { return &groupingRepo{r.sc} }
func (r repos) Routes() ports.RouteRepository       { return &routeRepo{r.sc} }
func (r repos) Visits() ports.VisitRepository       { return &visitRepo{r.sc} }
func (r repos) Calls() ports.CallRepository         { return &callRepo{r.sc} }
func (r repos) Users() ports.UserRepository         { return &userRepo{r.sc} }

func (s *Store) Customers() ports.CustomerRepository { return repos{scope{store: s}}.Customers() }
func (s *Store) Groupings() ports.GroupingRepository { return repos{scope{store: s}}.Groupings() }
func (s *Store) Routes() ports.RouteRepository       { return repos{scope{store: s}}.Routes() }
func (s *Store) Visits() ports.VisitRepository       { return repos{scope{store: s}}.Visits() }
func (s *Store) Calls() ports.CallRepository         { return repos{scope{store: s}}.Calls() }
func (s *Store) Users() ports.UserRepository         { return repos{scope{store: s}}.Users() }

type tx struct {
	repos
	st *state
}

func (t *tx) Savepoint(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	nested := &tx{st: t.st.clone()}
	nested.repos = repos{scope{tx: nested.st}}
	if err := fn(ctx, nested); err != nil {
		return err
	}
	*t.st = *nested.st
	return nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	t := &tx{st: s.st.clone()}
	t.repos = repos{scope{tx: t.st}}
	if err := fn(ctx, t); err != nil {
		return err
	}
	s.st = t.st
	return nil
}

var (
	_ ports.Store = (*Store)(nil)
	_ ports.Tx    = (*tx)(nil)
)
