package outcome

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"routedesk-service/internal/domain/auth"
	"routedesk-service/internal/domain/call"
	"routedesk-service/internal/domain/customer"
	"routedesk-service/internal/domain/grouping"
	"routedesk-service/internal/domain/route"
	"routedesk-service/internal/metrics"
	xerrors "routedesk-service/internal/pkg/errors"
	"routedesk-service/internal/pkg/result"
	"routedesk-service/internal/ports"
	"routedesk-service/internal/repository/memory"
	"routedesk-service/internal/service/intelligence"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var asOf = time.Date(2026, time.March, 29, 10, 30, 0, 0, time.UTC)

type recordingNotifier struct {
	got []ports.VisitAssignment
}

func (n *recordingNotifier) VisitsAssigned(a ports.VisitAssignment) {
	n.got = append(n.got, a)
}

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	notifier *recordingNotifier
	svc      *Service

	driver   auth.User
	seller   auth.User
	customer customer.Customer
	route    route.Route
	visit    route.Visit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{ctx: context.Background(), store: memory.NewStore(), notifier: &recordingNotifier{}}
	f.svc = NewService(f.store, intelligence.New(3, time.UTC), f.notifier, metrics.New(), zap.NewNop())

	f.driver = auth.User{Username: "dave", Role: auth.RoleDeliveryAgent, IsActive: true}
	f.seller = auth.User{Username: "sara", Role: auth.RoleSalesAgent, IsActive: true}
	require.NoError(t, f.store.Users().Create(f.ctx, &f.driver))
	require.NoError(t, f.store.Users().Create(f.ctx, &f.seller))

	f.customer = customer.Customer{Name: "Maria Souza", Neighborhood: "Centro", Debt: decimal.NewFromInt(100), CycleDays: 30}
	require.NoError(t, f.store.Customers().Create(f.ctx, &f.customer))

	f.route = route.Route{Name: "Route 29/03", AgentID: f.driver.ID, Kind: route.KindManual, RouteDate: asOf}
	require.NoError(t, f.store.Routes().Create(f.ctx, &f.route))
	f.visit = route.Visit{RouteID: f.route.ID, CustomerID: f.customer.ID, Note: "ring twice"}
	require.NoError(t, f.store.Visits().Create(f.ctx, &f.visit))
	return f
}

func (f *fixture) pastPurchase(t *testing.T, at time.Time) {
	t.Helper()
	rt := route.Route{Name: "old", AgentID: f.driver.ID, Kind: route.KindManual, RouteDate: at}
	require.NoError(t, f.store.Routes().Create(f.ctx, &rt))
	v := route.Visit{RouteID: rt.ID, CustomerID: f.customer.ID, Status: route.VisitRealized, VisitedAt: &at, AmountReceived: decimal.NewFromInt(50)}
	require.NoError(t, f.store.Visits().Create(f.ctx, &v))
}

func (f *fixture) driverActor() auth.Actor {
	return auth.Actor{UserID: f.driver.ID, Username: f.driver.Username}
}

func (f *fixture) sellerActor() auth.Actor {
	return auth.Actor{UserID: f.seller.ID, Username: f.seller.Username}
}

func TestSaleUpdatesDebtAndCycle(t *testing.T) {
	f := newFixture(t)
	f.pastPurchase(t, time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC))
	f.pastPurchase(t, time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC))

	res, err := f.svc.RecordVisitOutcome(f.ctx, f.driverActor(), f.visit.ID, route.VisitOutcomeRequest{
		Sold: true, Amount: "R$ 60,00", Latitude: "-23.5", Longitude: "-46.6",
	}, asOf)
	require.NoError(t, err)
	assert.Equal(t, result.StatusSuccess, res.Status)
	assert.Equal(t, "Sale of R$ 60.00 recorded", res.Summary)

	c, err := f.store.Customers().FindByID(f.ctx, f.customer.ID)
	require.NoError(t, err)
	assert.True(t, c.Debt.Equal(decimal.NewFromInt(40)), c.Debt.String())
	assert.InDelta(t, 14.0, c.CycleDays, 0.001)
	require.NotNil(t, c.LastPurchaseOn)
	assert.Equal(t, time.Date(2026, time.March, 29, 0, 0, 0, 0, time.UTC), *c.LastPurchaseOn)

	v, err := f.store.Visits().FindByID(f.ctx, f.visit.ID)
	require.NoError(t, err)
	assert.Equal(t, route.VisitRealized, v.Status)
	assert.True(t, v.AmountReceived.Equal(decimal.NewFromInt(60)))
	require.NotNil(t, v.VisitedAt)
	assert.Equal(t, asOf, *v.VisitedAt)
	require.NotNil(t, v.Latitude)
	assert.Equal(t, -23.5, *v.Latitude)
	assert.Equal(t, "ring twice", v.Note)
}

func TestFirstSaleKeepsDefaultCycle(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordVisitOutcome(f.ctx, f.driverActor(), f.visit.ID, route.VisitOutcomeRequest{Sold: true, Amount: "110"}, asOf)
	require.NoError(t, err)

	c, err := f.store.Customers().FindByID(f.ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, intelligence.DefaultCycleDays, c.CycleDays)
	assert.True(t, c.Debt.Equal(decimal.NewFromInt(-10)), "overpayment leaves a credit")
}

func TestNotSoldKeepsLedger(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.RecordVisitOutcome(f.ctx, f.driverActor(), f.visit.ID, route.VisitOutcomeRequest{
		Reason: "competitor", CompetitorName: "  GasBras ", CompetitorPrice: "95,50", Note: "bought yesterday",
	}, asOf)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "Visit closed as not sold", res.Summary)

	v, err := f.store.Visits().FindByID(f.ctx, f.visit.ID)
	require.NoError(t, err)
	assert.Equal(t, route.VisitNotSold, v.Status)
	require.NotNil(t, v.NotSoldReason)
	assert.Equal(t, route.ReasonCompetitor, *v.NotSoldReason)
	require.NotNil(t, v.CompetitorName)
	assert.Equal(t, "GasBras", *v.CompetitorName)
	assert.True(t, v.CompetitorPrice.Valid)
	assert.True(t, v.CompetitorPrice.Decimal.Equal(decimal.RequireFromString("95.5")))
	assert.Equal(t, "bought yesterday", v.Note)
	assert.True(t, v.AmountReceived.IsZero())

	c, err := f.store.Customers().FindByID(f.ctx, f.customer.ID)
	require.NoError(t, err)
	assert.True(t, c.Debt.Equal(decimal.NewFromInt(100)))
	assert.Nil(t, c.LastPurchaseOn)
}

func TestFinalizedVisitIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordVisitOutcome(f.ctx, f.driverActor(), f.visit.ID, route.VisitOutcomeRequest{Sold: true, Amount: "50"}, asOf)
	require.NoError(t, err)

	_, err = f.svc.RecordVisitOutcome(f.ctx, f.driverActor(), f.visit.ID, route.VisitOutcomeRequest{Sold: true, Amount: "50"}, asOf)
	require.ErrorIs(t, err, xerrors.ErrVisitFinalized)

	c, err := f.store.Customers().FindByID(f.ctx, f.customer.ID)
	require.NoError(t, err)
	assert.True(t, c.Debt.Equal(decimal.NewFromInt(50)), "second submission must not touch the debt")
}

func TestOtherAgentIsForbidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordVisitOutcome(f.ctx, f.sellerActor(), f.visit.ID, route.VisitOutcomeRequest{Sold: true, Amount: "50"}, asOf)
	require.ErrorIs(t, err, xerrors.ErrForbidden)

	manager := auth.Actor{UserID: 999, Username: "boss", Elevated: true}
	_, err = f.svc.RecordVisitOutcome(f.ctx, manager, f.visit.ID, route.VisitOutcomeRequest{Sold: true, Amount: "50"}, asOf)
	require.NoError(t, err)
}

func TestUnknownVisitAndReason(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordVisitOutcome(f.ctx, f.driverActor(), 4242, route.VisitOutcomeRequest{Sold: true}, asOf)
	require.ErrorIs(t, err, xerrors.ErrNotFound)

	_, err = f.svc.RecordVisitOutcome(f.ctx, f.driverActor(), f.visit.ID, route.VisitOutcomeRequest{Reason: "RAIN"}, asOf)
	require.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestUnparseableInputsBecomeWarnings(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.RecordVisitOutcome(f.ctx, f.driverActor(), f.visit.ID, route.VisitOutcomeRequest{
		Sold: true, Amount: "fifty", Latitude: "north", Longitude: "-46.6",
	}, asOf)
	require.NoError(t, err)
	assert.Equal(t, result.StatusWarning, res.Status)
	assert.Len(t, res.Warnings, 2)

	v, err := f.store.Visits().FindByID(f.ctx, f.visit.ID)
	require.NoError(t, err)
	assert.Equal(t, route.VisitRealized, v.Status)
	assert.True(t, v.AmountReceived.IsZero())
	assert.Nil(t, v.Latitude)
	assert.Nil(t, v.Longitude)
}

func TestNonFiniteGPSIsDropped(t *testing.T) {
	for _, tc := range []struct{ lat, lng string }{
		{"NaN", "nan"},
		{"-23.5", "NaN"},
		{"Inf", "-46.6"},
		{"-23.5", "-Infinity"},
	} {
		lat, lng, warning := parseGPS(tc.lat, tc.lng)
		assert.Nil(t, lat, tc.lat)
		assert.Nil(t, lng, tc.lng)
		assert.NotEmpty(t, warning)
	}

	f := newFixture(t)
	res, err := f.svc.RecordVisitOutcome(f.ctx, f.driverActor(), f.visit.ID, route.VisitOutcomeRequest{
		Sold: true, Amount: "10", Latitude: "NaN", Longitude: "nan",
	}, asOf)
	require.NoError(t, err)
	assert.Equal(t, result.StatusWarning, res.Status)

	v, err := f.store.Visits().FindByID(f.ctx, f.visit.ID)
	require.NoError(t, err)
	assert.Nil(t, v.Latitude)
	assert.Nil(t, v.Longitude)
	_, err = json.Marshal(v)
	assert.NoError(t, err)
}

func TestSaleDayFollowsServiceLocation(t *testing.T) {
	f := newFixture(t)
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	f.svc = NewService(f.store, intelligence.New(3, saoPaulo), f.notifier, metrics.New(), zap.NewNop())

	// 01:00 UTC on the 30th is still the evening of the 29th in São Paulo.
	late := time.Date(2026, time.March, 30, 1, 0, 0, 0, time.UTC)
	_, err := f.svc.RecordVisitOutcome(f.ctx, f.driverActor(), f.visit.ID, route.VisitOutcomeRequest{Sold: true, Amount: "10"}, late)
	require.NoError(t, err)

	c, err := f.store.Customers().FindByID(f.ctx, f.customer.ID)
	require.NoError(t, err)
	require.NotNil(t, c.LastPurchaseOn)
	assert.Equal(t, time.Date(2026, time.March, 29, 0, 0, 0, 0, time.UTC), *c.LastPurchaseOn)
}

type failingStore struct {
	ports.Store
}

func (s failingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return fn(ctx, failingTx{tx})
	})
}

type failingTx struct {
	ports.Tx
}

func (t failingTx) Visits() ports.VisitRepository {
	return failingVisits{t.Tx.Visits()}
}

type failingVisits struct {
	ports.VisitRepository
}

func (failingVisits) SaveOutcome(context.Context, *route.Visit) error {
	return errors.New("disk full")
}

func TestFailedVisitWriteRollsBackLedger(t *testing.T) {
	f := newFixture(t)
	svc := NewService(failingStore{f.store}, intelligence.New(3, time.UTC), f.notifier, metrics.New(), zap.NewNop())

	_, err := svc.RecordVisitOutcome(f.ctx, f.driverActor(), f.visit.ID, route.VisitOutcomeRequest{Sold: true, Amount: "60"}, asOf)
	require.Error(t, err)

	c, err := f.store.Customers().FindByID(f.ctx, f.customer.ID)
	require.NoError(t, err)
	assert.True(t, c.Debt.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 30.0, c.CycleDays)
	assert.Nil(t, c.LastPurchaseOn)

	v, err := f.store.Visits().FindByID(f.ctx, f.visit.ID)
	require.NoError(t, err)
	assert.Equal(t, route.VisitPending, v.Status)
}

func (f *fixture) groupCustomer(t *testing.T, deliveryAgent *int64) grouping.Grouping {
	t.Helper()
	g := grouping.Grouping{Name: "North", LabelColor: grouping.DefaultLabelColor}
	require.NoError(t, f.store.Groupings().Create(f.ctx, &g))
	require.NoError(t, f.store.Groupings().AddMembers(f.ctx, g.ID, []int64{f.customer.ID}))
	if deliveryAgent != nil {
		require.NoError(t, f.store.Groupings().SetDeliveryAgent(f.ctx, g.ID, deliveryAgent))
	}
	return g
}

func callsToday(t *testing.T, f *fixture) []call.CallView {
	t.Helper()
	day := time.Date(2026, time.March, 29, 0, 0, 0, 0, time.UTC)
	calls, err := f.store.Calls().ListBetween(f.ctx, nil, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	return calls
}

func TestClosedSaleSchedulesDelivery(t *testing.T) {
	f := newFixture(t)
	f.groupCustomer(t, &f.driver.ID)

	// The driver has no route on the 30th yet.
	next := asOf.AddDate(0, 0, 1)
	res, err := f.svc.RecordCallOutcome(f.ctx, f.sellerActor(), call.RecordCallRequest{
		CustomerID: f.customer.ID, Result: "sale_closed", Note: "2 cylinders",
	}, next)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "Sale recorded, delivery for Maria Souza sent to dave", res.Summary)

	require.Len(t, f.notifier.got, 1)
	got := f.notifier.got[0]
	assert.Equal(t, f.driver.ID, got.AgentID)
	assert.Equal(t, "Sales route 30/03", got.RouteName)
	require.Len(t, got.VisitIDs, 1)

	v, err := f.store.Visits().FindByID(f.ctx, got.VisitIDs[0])
	require.NoError(t, err)
	assert.Equal(t, route.VisitPending, v.Status)
	assert.Equal(t, "Telesale (sara): 2 cylinders", v.Note)

	rt, err := f.store.Routes().FindByID(f.ctx, got.RouteID)
	require.NoError(t, err)
	assert.Equal(t, route.KindDaily, rt.Kind)
	assert.Equal(t, time.Date(2026, time.March, 30, 0, 0, 0, 0, time.UTC), rt.RouteDate)
}

func TestClosedSaleReusesRouteOfTheDay(t *testing.T) {
	f := newFixture(t)
	f.groupCustomer(t, &f.driver.ID)

	for i := 0; i < 2; i++ {
		_, err := f.svc.RecordCallOutcome(f.ctx, f.sellerActor(), call.RecordCallRequest{
			CustomerID: f.customer.ID, Result: string(call.ResultSaleClosed),
		}, asOf.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	require.Len(t, f.notifier.got, 2)
	assert.Equal(t, f.route.ID, f.notifier.got[0].RouteID, "existing route of the day is reused")
	assert.Equal(t, f.route.ID, f.notifier.got[1].RouteID)

	board, err := f.store.Visits().ListByRouteDays(f.ctx, &f.driver.ID, asOf, asOf)
	require.NoError(t, err)
	assert.Len(t, board, 3)
}

func TestClosedSaleWithoutDeliveryAgentWarns(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.RecordCallOutcome(f.ctx, f.sellerActor(), call.RecordCallRequest{
		CustomerID: f.customer.ID, Result: "SALE_CLOSED",
	}, asOf)
	require.NoError(t, err)
	assert.Equal(t, result.StatusWarning, res.Status)
	assert.Empty(t, f.notifier.got)
	assert.Len(t, callsToday(t, f), 1, "call is kept")

	f.groupCustomer(t, nil)
	res, err = f.svc.RecordCallOutcome(f.ctx, f.sellerActor(), call.RecordCallRequest{
		CustomerID: f.customer.ID, Result: "SALE_CLOSED",
	}, asOf)
	require.NoError(t, err)
	assert.Equal(t, result.StatusWarning, res.Status)
	assert.Contains(t, res.Warnings[0], "no delivery agent")
	assert.Len(t, callsToday(t, f), 2)
}

func TestCallFollowUpAndValidation(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.RecordCallOutcome(f.ctx, f.sellerActor(), call.RecordCallRequest{
		CustomerID: f.customer.ID, Result: "RESCHEDULED", FollowUp: "2026-04-02 14:00",
	}, asOf)
	require.NoError(t, err)
	assert.True(t, res.OK())

	res, err = f.svc.RecordCallOutcome(f.ctx, f.sellerActor(), call.RecordCallRequest{
		CustomerID: f.customer.ID, Result: "RESCHEDULED", FollowUp: "next week",
	}, asOf)
	require.NoError(t, err)
	assert.Equal(t, result.StatusWarning, res.Status)

	calls := callsToday(t, f)
	require.Len(t, calls, 2)
	var withDate int
	for _, c := range calls {
		if c.FollowUpAt != nil {
			withDate++
			assert.Equal(t, time.Date(2026, time.April, 2, 14, 0, 0, 0, time.UTC), *c.FollowUpAt)
		}
	}
	assert.Equal(t, 1, withDate)

	_, err = f.svc.RecordCallOutcome(f.ctx, f.sellerActor(), call.RecordCallRequest{CustomerID: f.customer.ID, Result: "MAYBE"}, asOf)
	require.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = f.svc.RecordCallOutcome(f.ctx, f.sellerActor(), call.RecordCallRequest{CustomerID: 4242, Result: "REFUSED"}, asOf)
	require.ErrorIs(t, err, xerrors.ErrNotFound)
	assert.Len(t, callsToday(t, f), 2)
}
