package planning

import (
	"context"
	"testing"
	"time"

	"routedesk-service/internal/domain/auth"
	"routedesk-service/internal/domain/call"
	"routedesk-service/internal/domain/customer"
	"routedesk-service/internal/domain/grouping"
	"routedesk-service/internal/domain/route"
	"routedesk-service/internal/metrics"
	xerrors "routedesk-service/internal/pkg/errors"
	"routedesk-service/internal/ports"
	"routedesk-service/internal/repository/memory"
	"routedesk-service/internal/service/intelligence"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var asOf = time.Date(2026, time.April, 11, 15, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	got []ports.VisitAssignment
}

func (n *recordingNotifier) VisitsAssigned(a ports.VisitAssignment) {
	n.got = append(n.got, a)
}

func day(month time.Month, d int) *time.Time {
	t := time.Date(2026, month, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	notifier *recordingNotifier
	svc      *PlanningService

	manager, driver, seller auth.User
	maria, joao, ana        customer.Customer
	north                   grouping.Grouping
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{ctx: context.Background(), store: memory.NewStore(), notifier: &recordingNotifier{}}
	f.svc = NewPlanningService(f.store, intelligence.New(3, time.UTC), f.notifier, metrics.New(), 400, zap.NewNop())

	f.manager = auth.User{Username: "boss", Role: auth.RoleManager}
	f.driver = auth.User{Username: "dave", Role: auth.RoleDeliveryAgent}
	f.seller = auth.User{Username: "sara", Role: auth.RoleSalesAgent}
	for _, u := range []*auth.User{&f.manager, &f.driver, &f.seller} {
		require.NoError(t, f.store.Users().Create(f.ctx, u))
	}

	// Maria: cycle 13.5, last bought Mar 28, 14 days ago: delinquent.
	f.maria = customer.Customer{Name: "Maria", Neighborhood: "Centro", Debt: decimal.NewFromInt(30), CycleDays: 13.5, LastPurchaseOn: day(time.March, 28)}
	// Joao: cycle 10, last bought Mar 1, 41 days ago: churned.
	f.joao = customer.Customer{Name: "Joao", Neighborhood: "Vila Nova", Debt: decimal.NewFromInt(80), CycleDays: 10, LastPurchaseOn: day(time.March, 1)}
	// Ana never bought.
	f.ana = customer.Customer{Name: "Ana", Neighborhood: "Centro", CycleDays: 30}
	for _, c := range []*customer.Customer{&f.maria, &f.joao, &f.ana} {
		require.NoError(t, f.store.Customers().Create(f.ctx, c))
	}

	f.north = grouping.Grouping{Name: "North"}
	require.NoError(t, f.store.Groupings().Create(f.ctx, &f.north))
	require.NoError(t, f.store.Groupings().AddMembers(f.ctx, f.north.ID, []int64{f.maria.ID, f.joao.ID}))
	return f
}

func names(views []customer.View) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Name)
	}
	return out
}

func TestListCustomersFilters(t *testing.T) {
	f := newFixture(t)

	all, err := f.svc.ListCustomers(f.ctx, customer.CustomerListFilters{}, asOf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Maria", "Joao"}, names(all))

	centro, err := f.svc.ListCustomers(f.ctx, customer.CustomerListFilters{Neighborhood: "Centro"}, asOf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Maria"}, names(centro))

	// Churned customers are delinquent too.
	late, err := f.svc.ListCustomers(f.ctx, customer.CustomerListFilters{Status: customer.StatusDelinquent}, asOf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Maria", "Joao"}, names(late))

	churned, err := f.svc.ListCustomers(f.ctx, customer.CustomerListFilters{GroupingID: &f.north.ID, Status: customer.StatusChurned}, asOf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Joao"}, names(churned))

	never, err := f.svc.ListCustomers(f.ctx, customer.CustomerListFilters{Status: customer.StatusNeverPurchased}, asOf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana"}, names(never))
}

func TestListCustomersRejectsBadFilters(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListCustomers(f.ctx, customer.CustomerListFilters{Status: "sleepy"}, asOf)
	require.ErrorIs(t, err, xerrors.ErrInvalidInput)

	missing := int64(4242)
	_, err = f.svc.ListCustomers(f.ctx, customer.CustomerListFilters{GroupingID: &missing}, asOf)
	require.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestBulkAssignCreatesFreshRoute(t *testing.T) {
	f := newFixture(t)
	mgr := auth.Actor{UserID: f.manager.ID, Username: "boss", Elevated: true}
	req := route.BulkAssignRequest{AgentID: f.driver.ID, CustomerIDs: []int64{f.maria.ID, f.joao.ID, f.maria.ID}}

	res, err := f.svc.BulkAssign(f.ctx, mgr, req, asOf)
	require.NoError(t, err)
	assert.Equal(t, "Route 11/04 created for dave with 3 visits", res.Summary)

	_, err = f.svc.BulkAssign(f.ctx, mgr, req, asOf)
	require.NoError(t, err)

	require.Len(t, f.notifier.got, 2)
	assert.NotEqual(t, f.notifier.got[0].RouteID, f.notifier.got[1].RouteID)

	visits, err := f.store.Visits().ListByRouteDays(f.ctx, &f.driver.ID, asOf, asOf)
	require.NoError(t, err)
	assert.Len(t, visits, 6, "every id and every assignment gets its own visit")
	for _, v := range visits {
		assert.Equal(t, route.VisitPending, v.Status)
	}

	rt, err := f.store.Routes().FindByID(f.ctx, f.notifier.got[0].RouteID)
	require.NoError(t, err)
	assert.Equal(t, route.KindManual, rt.Kind)
}

func TestBulkAssignValidation(t *testing.T) {
	f := newFixture(t)
	mgr := auth.Actor{UserID: f.manager.ID, Elevated: true}

	_, err := f.svc.BulkAssign(f.ctx, auth.Actor{UserID: f.driver.ID}, route.BulkAssignRequest{AgentID: f.driver.ID, CustomerIDs: []int64{f.maria.ID}}, asOf)
	require.ErrorIs(t, err, xerrors.ErrForbidden)

	_, err = f.svc.BulkAssign(f.ctx, mgr, route.BulkAssignRequest{AgentID: f.driver.ID}, asOf)
	require.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = f.svc.BulkAssign(f.ctx, mgr, route.BulkAssignRequest{AgentID: 4242, CustomerIDs: []int64{f.maria.ID}}, asOf)
	require.ErrorIs(t, err, xerrors.ErrNotFound)

	// An unknown customer aborts the whole batch, route included.
	_, err = f.svc.BulkAssign(f.ctx, mgr, route.BulkAssignRequest{AgentID: f.driver.ID, CustomerIDs: []int64{f.maria.ID, 4242}}, asOf)
	require.ErrorIs(t, err, xerrors.ErrNotFound)

	visits, err := f.store.Visits().ListByRouteDays(f.ctx, nil, asOf, asOf)
	require.NoError(t, err)
	assert.Empty(t, visits)
	assert.Empty(t, f.notifier.got)
}

func TestCallQueueSkipsCustomersCalledToday(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Groupings().SetSalesAgent(f.ctx, f.north.ID, &f.seller.ID))

	other := grouping.Grouping{Name: "Overlap"}
	require.NoError(t, f.store.Groupings().Create(f.ctx, &other))
	require.NoError(t, f.store.Groupings().AddMembers(f.ctx, other.ID, []int64{f.maria.ID}))
	require.NoError(t, f.store.Groupings().SetSalesAgent(f.ctx, other.ID, &f.seller.ID))

	seller := auth.Actor{UserID: f.seller.ID, Username: "sara"}
	q, err := f.svc.CallQueue(f.ctx, seller, asOf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Joao", "Maria"}, names(q.Customers), "distinct, highest debt first")
	assert.Equal(t, 400, q.Metrics.DailyGoal)
	assert.Zero(t, q.Metrics.CallsToday)

	calls := []call.Call{
		{AgentID: f.seller.ID, CustomerID: f.joao.ID, Result: call.ResultRefused, CalledAt: asOf.Add(-time.Hour)},
		{AgentID: f.seller.ID, CustomerID: f.ana.ID, Result: call.ResultSaleClosed, CalledAt: asOf.Add(-2 * time.Hour)},
		// Yesterday's call does not count.
		{AgentID: f.seller.ID, CustomerID: f.maria.ID, Result: call.ResultSaleClosed, CalledAt: asOf.AddDate(0, 0, -1)},
		// Another agent's call does not count either.
		{AgentID: f.driver.ID, CustomerID: f.maria.ID, Result: call.ResultVoicemail, CalledAt: asOf},
	}
	for i := range calls {
		require.NoError(t, f.store.Calls().Create(f.ctx, &calls[i]))
	}

	q, err = f.svc.CallQueue(f.ctx, seller, asOf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Maria"}, names(q.Customers))
	assert.Equal(t, 2, q.Metrics.CallsToday)
	assert.Equal(t, 1, q.Metrics.SalesToday)
	assert.Equal(t, 1, q.Metrics.RefusalToday)
}
