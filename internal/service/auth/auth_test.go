package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"routedesk-service/internal/domain/auth"
	"routedesk-service/internal/domain/grouping"
	xerrors "routedesk-service/internal/pkg/errors"
	"routedesk-service/internal/pkg/jwt"
	"routedesk-service/internal/pkg/session"
	"routedesk-service/internal/repository/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type recordingHub struct {
	disconnected []int64
}

func (h *recordingHub) DisconnectUser(userID int64, reason string) {
	h.disconnected = append(h.disconnected, userID)
}

type fixture struct {
	ctx   context.Context
	store *memory.Store
	hub   *recordingHub
	svc   *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	jm := jwt.NewManager(priv, &priv.PublicKey, jwt.Config{Issuer: "routedesk", Audience: "routedesk-api", TTL: time.Hour})

	f := &fixture{ctx: context.Background(), store: memory.NewStore(), hub: &recordingHub{}}
	f.svc = NewAuthService(f.store, jm, session.NewManager(client), session.NewRateLimiter(client), f.hub, zap.NewNop())
	return f
}

func (f *fixture) user(t *testing.T, username, role string) *auth.UserInfo {
	t.Helper()
	info, err := f.svc.CreateUser(f.ctx, &auth.CreateUserRequest{Username: username, Password: "s3cret-pass", Role: role}, 0, time.Now())
	require.NoError(t, err)
	return info
}

func (f *fixture) login(username, password string) (*auth.LoginResponse, error) {
	return f.svc.Login(f.ctx, &auth.LoginRequest{Username: username, Password: password, IPAddress: "10.0.0.1"}, time.Now())
}

func TestEnsureManagerExists(t *testing.T) {
	f := newFixture(t)

	require.Error(t, f.svc.EnsureManagerExists(f.ctx, "", "", "", time.Now()))

	require.NoError(t, f.svc.EnsureManagerExists(f.ctx, "boss", "s3cret-pass", "The Boss", time.Now()))
	require.NoError(t, f.svc.EnsureManagerExists(f.ctx, "other", "s3cret-pass", "", time.Now()))

	managers, err := f.svc.ListUsers(f.ctx, auth.RoleManager)
	require.NoError(t, err)
	require.Len(t, managers, 1)
	assert.Equal(t, "boss", managers[0].Username)
	assert.Equal(t, "The Boss", managers[0].FullName)
}

func TestLoginAndValidate(t *testing.T) {
	f := newFixture(t)
	boss := f.user(t, "boss", auth.RoleManager)

	res, err := f.login("BOSS", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, 3600, res.ExpiresIn)
	assert.Equal(t, auth.LandingDashboard, res.Landing)
	assert.Equal(t, boss.ID, res.User.ID)

	claims, err := f.svc.ValidateToken(f.ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, boss.ID, claims.UserID)
	assert.True(t, claims.HasRole(auth.RoleManager))

	me, landing, err := f.svc.Me(f.ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, "boss", me.Username)
	assert.Equal(t, auth.LandingDashboard, landing)

	require.NoError(t, f.svc.Logout(f.ctx, claims))
	assert.Equal(t, []int64{boss.ID}, f.hub.disconnected)
	_, err = f.svc.ValidateToken(f.ctx, res.AccessToken)
	require.ErrorIs(t, err, xerrors.ErrUnauthorized)

	_, err = f.svc.ValidateToken(f.ctx, "garbage")
	require.ErrorIs(t, err, xerrors.ErrUnauthorized)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	f.user(t, "dave", auth.RoleDeliveryAgent)

	_, err := f.login("nobody", "x")
	require.ErrorIs(t, err, xerrors.ErrUnauthorized)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, f.store.Users().Create(f.ctx, &auth.User{Username: "gone", PasswordHash: string(hash), Role: auth.RoleDeliveryAgent}))
	_, err = f.login("gone", "s3cret-pass")
	require.ErrorIs(t, err, xerrors.ErrForbidden)

	for i := 0; i < 5; i++ {
		_, err = f.login("dave", "wrong")
		require.ErrorIs(t, err, xerrors.ErrUnauthorized)
	}
	_, err = f.login("dave", "s3cret-pass")
	require.ErrorIs(t, err, xerrors.ErrRateLimited)
}

func TestLanding(t *testing.T) {
	f := newFixture(t)
	dave := f.user(t, "dave", auth.RoleDeliveryAgent)
	erin := f.user(t, "erin", auth.RoleDeliveryAgent)
	f.user(t, "sara", auth.RoleSalesAgent)

	res, err := f.login("sara", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, auth.LandingSalesCockpit, res.Landing)

	g := grouping.Grouping{Name: "North"}
	require.NoError(t, f.store.Groupings().Create(f.ctx, &g))
	require.NoError(t, f.store.Groupings().SetSalesAgent(f.ctx, g.ID, &erin.ID))

	res, err = f.login("erin", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, auth.LandingSalesCockpit, res.Landing, "sells for a grouping")

	res, err = f.login("dave", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, auth.LandingDeliveryBoard, res.Landing)
	assert.Equal(t, dave.ID, res.User.ID)
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)
	f.user(t, "dave", auth.RoleDeliveryAgent)

	_, err := f.svc.CreateUser(f.ctx, &auth.CreateUserRequest{Username: "Dave", Password: "s3cret-pass", Role: auth.RoleSalesAgent}, 1, time.Now())
	require.ErrorIs(t, err, xerrors.ErrConflict)

	_, err = f.svc.CreateUser(f.ctx, &auth.CreateUserRequest{Username: "x", Password: "s3cret-pass", Role: "driver"}, 1, time.Now())
	require.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = f.svc.ListUsers(f.ctx, "driver")
	require.ErrorIs(t, err, xerrors.ErrInvalidInput)

	all, err := f.svc.ListUsers(f.ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
