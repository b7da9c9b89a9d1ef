// internal/ports/repositories.go
package ports

import (
	"context"
	"time"

	"routedesk-service/internal/domain/auth"
	"routedesk-service/internal/domain/call"
	"routedesk-service/internal/domain/customer"
	"routedesk-service/internal/domain/grouping"
	"routedesk-service/internal/domain/route"
)

// Lookups that find nothing return an error wrapping xerrors.ErrNotFound.
// Day arguments are calendar days; from/to instants are half-open [from, to).

type CustomerRepository interface {
	Create(ctx context.Context, c *customer.Customer) error
	// GetOrCreateByName returns the customer with exactly this name, creating it from c
	// when absent. created reports whether a row was inserted.
	GetOrCreateByName(ctx context.Context, c *customer.Customer) (found *customer.Customer, created bool, err error)
	FindByID(ctx context.Context, id int64) (*customer.Customer, error)
	// FindForUpdate locks the row for the rest of the transaction.
	FindForUpdate(ctx context.Context, id int64) (*customer.Customer, error)
	UpdateLedger(ctx context.Context, c *customer.Customer) error
	// List orders by neighborhood then name.
	List(ctx context.Context, q customer.Query) ([]customer.Customer, error)
	ListFree(ctx context.Context) ([]customer.Customer, error)
	// ListForSalesAgent returns the distinct members of every grouping the agent sells
	// for, ordered by debt desc.
	ListForSalesAgent(ctx context.Context, agentID int64) ([]customer.Customer, error)
	ListNeighborhoods(ctx context.Context) ([]string, error)
	CountInactive(ctx context.Context, purchasedBefore time.Time) (int, error)
}

type GroupingRepository interface {
	Create(ctx context.Context, g *grouping.Grouping) error
	FindByID(ctx context.Context, id int64) (*grouping.Grouping, error)
	List(ctx context.Context) ([]grouping.Grouping, error)
	Delete(ctx context.Context, id int64) error
	SetDeliveryAgent(ctx context.Context, id int64, agentID *int64) error
	SetSalesAgent(ctx context.Context, id int64, agentID *int64) error
	AddMembers(ctx context.Context, id int64, customerIDs []int64) error
	RemoveMember(ctx context.Context, id, customerID int64) error
	// FirstForCustomer returns the customer's grouping with the lowest id.
	FirstForCustomer(ctx context.Context, customerID int64) (*grouping.Grouping, error)
	HasSalesAgent(ctx context.Context, agentID int64) (bool, error)
}

type RouteRepository interface {
	Create(ctx context.Context, r *route.Route) error
	FindByID(ctx context.Context, id int64) (*route.Route, error)
	// GetOrCreateDaily returns the agent's earliest route for day, inserting a daily
	// route named name when there is none. At most one daily route exists per agent-day.
	GetOrCreateDaily(ctx context.Context, agentID int64, day time.Time, name string) (*route.Route, bool, error)
}

type VisitRepository interface {
	Create(ctx context.Context, v *route.Visit) error
	CreateBatch(ctx context.Context, visits []*route.Visit) error
	FindByID(ctx context.Context, id int64) (*route.Visit, error)
	FindForUpdate(ctx context.Context, id int64) (*route.Visit, error)
	SaveOutcome(ctx context.Context, v *route.Visit) error
	// RecentPurchases returns visit times of the customer's realized visits, newest first.
	RecentPurchases(ctx context.Context, customerID int64, limit int) ([]time.Time, error)
	ListByRouteDays(ctx context.Context, agentID *int64, fromDay, toDay time.Time) ([]route.VisitView, error)
	// ListFinalized returns terminal visits with visited_at in [from, to), newest first.
	ListFinalized(ctx context.Context, from, to time.Time) ([]route.VisitView, error)
}

type CallRepository interface {
	Create(ctx context.Context, c *call.Call) error
	// ListBetween returns calls in [from, to), newest first. A nil agentID means all agents.
	ListBetween(ctx context.Context, agentID *int64, from, to time.Time) ([]call.CallView, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *auth.User) error
	FindByID(ctx context.Context, id int64) (*auth.User, error)
	FindByUsername(ctx context.Context, username string) (*auth.User, error)
	ListByRole(ctx context.Context, role string) ([]auth.User, error)
	CountByRole(ctx context.Context, role string) (int, error)
}

// Repositories is the set of repositories bound to one connection or transaction.
type Repositories interface {
	Customers() CustomerRepository
	Groupings() GroupingRepository
	Routes() RouteRepository
	Visits() VisitRepository
	Calls() CallRepository
	Users() UserRepository
}

// Tx is a running transaction. Savepoint runs fn in a nested scope whose writes are
// discarded when fn fails, leaving the outer transaction usable.
type Tx interface {
	Repositories
	Savepoint(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Store commits everything fn wrote when fn returns nil and discards it otherwise.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
