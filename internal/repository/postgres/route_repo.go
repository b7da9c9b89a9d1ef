// internal/repository/postgres/route_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"routedesk-service/internal/domain/route"
	"routedesk-service/internal/pkg/clock"

	"github.com/jackc/pgx/v5"
)

const routeColumns = `id, name, agent_id, kind, route_date, created_at`

type RouteRepository struct {
	db DBTX
}

func NewRouteRepository(db DBTX) *RouteRepository {
	return &RouteRepository{db: db}
}

func scanRoute(row scanner) (*route.Route, error) {
	var (
		rt   route.Route
		kind string
	)
	if err := row.Scan(&rt.ID, &rt.Name, &rt.AgentID, &kind, &rt.RouteDate, &rt.CreatedAt); err != nil {
		return nil, err
	}
	rt.Kind = route.Kind(kind)
	return &rt, nil
}

func (r *RouteRepository) Create(ctx context.Context, rt *route.Route) error {
	rt.RouteDate = clock.Day(rt.RouteDate)
	query := `
		INSERT INTO routes (name, agent_id, kind, route_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if err := r.db.QueryRow(ctx, query, rt.Name, rt.AgentID, string(rt.Kind), rt.RouteDate).Scan(&rt.ID, &rt.CreatedAt); err != nil {
		return translate(err, "create route")
	}
	return nil
}

func (r *RouteRepository) FindByID(ctx context.Context, id int64) (*route.Route, error) {
	rt, err := scanRoute(r.db.QueryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("find route %d", id))
	}
	return rt, nil
}

// GetOrCreateDaily reuses the agent's earliest route of the day. Otherwise it inserts
// a daily route; a concurrent insert loses on the partial unique index and re-reads.
func (r *RouteRepository) GetOrCreateDaily(ctx context.Context, agentID int64, day time.Time, name string) (*route.Route, bool, error) {
	day = clock.Day(day)
	find := `SELECT ` + routeColumns + ` FROM routes WHERE agent_id = $1 AND route_date = $2 ORDER BY id LIMIT 1`

	rt, err := scanRoute(r.db.QueryRow(ctx, find, agentID, day))
	if err == nil {
		return rt, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, translate(err, "find daily route")
	}

	insert := `
		INSERT INTO routes (name, agent_id, kind, route_date)
		VALUES ($1, $2, 'daily', $3)
		ON CONFLICT (agent_id, route_date) WHERE kind = 'daily' DO NOTHING
		RETURNING ` + routeColumns
	rt, err = scanRoute(r.db.QueryRow(ctx, insert, name, agentID, day))
	if err == nil {
		return rt, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, translate(err, "create daily route")
	}

	rt, err = scanRoute(r.db.QueryRow(ctx, find, agentID, day))
	if err != nil {
		return nil, false, translate(err, "re-read daily route")
	}
	return rt, false, nil
}
