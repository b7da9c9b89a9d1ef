// internal/repository/postgres/call_repo.go
package postgres

import (
	"context"
	"time"

	"routedesk-service/internal/domain/call"
)

type CallRepository struct {
	db DBTX
}

func NewCallRepository(db DBTX) *CallRepository {
	return &CallRepository{db: db}
}

// Create appends a call to the log
func (r *CallRepository) Create(ctx context.Context, c *call.Call) error {
	query := `
		INSERT INTO calls (agent_id, customer_id, result, note, follow_up_at, called_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		c.AgentID, c.CustomerID, string(c.Result), c.Note, c.FollowUpAt, c.CalledAt,
	).Scan(&c.ID)
	if err != nil {
		return translate(err, "create call")
	}
	return nil
}

func (r *CallRepository) ListBetween(ctx context.Context, agentID *int64, from, to time.Time) ([]call.CallView, error) {
	query := `
		SELECT k.id, k.agent_id, k.customer_id, k.result, k.note, k.follow_up_at, k.called_at,
		       u.username, c.name
		FROM calls k
		JOIN users u ON u.id = k.agent_id
		JOIN customers c ON c.id = k.customer_id
		WHERE k.called_at >= $1 AND k.called_at < $2 AND ($3::bigint IS NULL OR k.agent_id = $3)
		ORDER BY k.called_at DESC, k.id DESC
	`
	rows, err := r.db.Query(ctx, query, from, to, agentID)
	if err != nil {
		return nil, translate(err, "list calls")
	}
	defer rows.Close()

	var out []call.CallView
	for rows.Next() {
		var (
			v      call.CallView
			result string
		)
		if err := rows.Scan(&v.ID, &v.AgentID, &v.CustomerID, &result, &v.Note, &v.FollowUpAt, &v.CalledAt,
			&v.AgentName, &v.CustomerName); err != nil {
			return nil, translate(err, "scan call")
		}
		v.Result = call.Result(result)
		out = append(out, v)
	}
	return out, rows.Err()
}
