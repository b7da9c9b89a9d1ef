// internal/repository/postgres/visit_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"routedesk-service/internal/domain/route"
	"routedesk-service/internal/pkg/clock"

	"github.com/jackc/pgx/v5"
)

const visitColumns = `v.id, v.route_id, v.customer_id, v.status, v.amount_received, v.visited_at, v.note,
	v.latitude, v.longitude, v.not_sold_reason, v.competitor_name, v.competitor_price, v.created_at`

const visitViewQuery = `
	SELECT ` + visitColumns + `,
	       r.agent_id, u.username, r.route_date, c.name, c.neighborhood, c.phone
	FROM visits v
	JOIN routes r ON r.id = v.route_id
	JOIN users u ON u.id = r.agent_id
	JOIN customers c ON c.id = v.customer_id
`

type VisitRepository struct {
	db DBTX
}

func NewVisitRepository(db DBTX) *VisitRepository {
	return &VisitRepository{db: db}
}

func visitDest(v *route.Visit, status, reason **string) []any {
	return []any{
		&v.ID, &v.RouteID, &v.CustomerID, status, &v.AmountReceived, &v.VisitedAt, &v.Note,
		&v.Latitude, &v.Longitude, reason, &v.CompetitorName, &v.CompetitorPrice, &v.CreatedAt,
	}
}

func finishVisit(v *route.Visit, status, reason *string) {
	if status != nil {
		v.Status = route.VisitStatus(*status)
	}
	if reason != nil {
		r := route.NotSoldReason(*reason)
		v.NotSoldReason = &r
	}
}

func scanVisit(row scanner) (*route.Visit, error) {
	var (
		v              route.Visit
		status, reason *string
	)
	if err := row.Scan(visitDest(&v, &status, &reason)...); err != nil {
		return nil, err
	}
	finishVisit(&v, status, reason)
	return &v, nil
}

func collectVisitViews(rows pgx.Rows) ([]route.VisitView, error) {
	defer rows.Close()
	var out []route.VisitView
	for rows.Next() {
		var (
			vv             route.VisitView
			status, reason *string
		)
		dest := append(visitDest(&vv.Visit, &status, &reason),
			&vv.AgentID, &vv.AgentName, &vv.RouteDate, &vv.CustomerName, &vv.Neighborhood, &vv.CustomerPhone)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		finishVisit(&vv.Visit, status, reason)
		out = append(out, vv)
	}
	return out, rows.Err()
}

func reasonArg(r *route.NotSoldReason) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}

func (r *VisitRepository) Create(ctx context.Context, v *route.Visit) error {
	if v.Status == "" {
		v.Status = route.VisitPending
	}
	query := `
		INSERT INTO visits (route_id, customer_id, status, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if err := r.db.QueryRow(ctx, query, v.RouteID, v.CustomerID, string(v.Status), v.Note).Scan(&v.ID, &v.CreatedAt); err != nil {
		return translate(err, "create visit")
	}
	return nil
}

// CreateBatch inserts all visits in one round trip.
func (r *VisitRepository) CreateBatch(ctx context.Context, visits []*route.Visit) error {
	batch := &pgx.Batch{}
	for _, v := range visits {
		if v.Status == "" {
			v.Status = route.VisitPending
		}
		batch.Queue(
			`INSERT INTO visits (route_id, customer_id, status, note) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
			v.RouteID, v.CustomerID, string(v.Status), v.Note,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for _, v := range visits {
		if err := br.QueryRow().Scan(&v.ID, &v.CreatedAt); err != nil {
			return translate(err, "create visits")
		}
	}
	return nil
}

func (r *VisitRepository) FindByID(ctx context.Context, id int64) (*route.Visit, error) {
	v, err := scanVisit(r.db.QueryRow(ctx, `SELECT `+visitColumns+` FROM visits v WHERE v.id = $1`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("find visit %d", id))
	}
	return v, nil
}

func (r *VisitRepository) FindForUpdate(ctx context.Context, id int64) (*route.Visit, error) {
	v, err := scanVisit(r.db.QueryRow(ctx, `SELECT `+visitColumns+` FROM visits v WHERE v.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("lock visit %d", id))
	}
	return v, nil
}

func (r *VisitRepository) SaveOutcome(ctx context.Context, v *route.Visit) error {
	query := `
		UPDATE visits
		SET status = $2, amount_received = $3, visited_at = $4, note = $5, latitude = $6,
		    longitude = $7, not_sold_reason = $8, competitor_name = $9, competitor_price = $10
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		v.ID, string(v.Status), v.AmountReceived, v.VisitedAt, v.Note, v.Latitude,
		v.Longitude, reasonArg(v.NotSoldReason), v.CompetitorName, v.CompetitorPrice,
	)
	if err != nil {
		return translate(err, fmt.Sprintf("save visit %d", v.ID))
	}
	if tag.RowsAffected() == 0 {
		return translate(pgx.ErrNoRows, fmt.Sprintf("save visit %d", v.ID))
	}
	return nil
}

func (r *VisitRepository) RecentPurchases(ctx context.Context, customerID int64, limit int) ([]time.Time, error) {
	query := `
		SELECT visited_at FROM visits
		WHERE customer_id = $1 AND status = 'REALIZED' AND visited_at IS NOT NULL
		ORDER BY visited_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, customerID, limit)
	if err != nil {
		return nil, translate(err, "list purchases")
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, translate(err, "scan purchase")
		}
		out = append(out, at)
	}
	return out, rows.Err()
}

func (r *VisitRepository) ListByRouteDays(ctx context.Context, agentID *int64, fromDay, toDay time.Time) ([]route.VisitView, error) {
	query := visitViewQuery + `
		WHERE r.route_date BETWEEN $1 AND $2 AND ($3::bigint IS NULL OR r.agent_id = $3)
		ORDER BY c.neighborhood, c.name, v.id
	`
	rows, err := r.db.Query(ctx, query, clock.Day(fromDay), clock.Day(toDay), agentID)
	if err != nil {
		return nil, translate(err, "list visits by route day")
	}
	out, err := collectVisitViews(rows)
	if err != nil {
		return nil, translate(err, "scan visits")
	}
	return out, nil
}

func (r *VisitRepository) ListFinalized(ctx context.Context, from, to time.Time) ([]route.VisitView, error) {
	query := visitViewQuery + `
		WHERE v.status IN ('REALIZED', 'NOT_SOLD') AND v.visited_at >= $1 AND v.visited_at < $2
		ORDER BY v.visited_at DESC, v.id DESC
	`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, translate(err, "list finalized visits")
	}
	out, err := collectVisitViews(rows)
	if err != nil {
		return nil, translate(err, "scan finalized visits")
	}
	return out, nil
}
