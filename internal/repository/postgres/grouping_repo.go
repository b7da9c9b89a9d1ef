// internal/repository/postgres/grouping_repo.go
package postgres

import (
	"context"
	"fmt"

	"routedesk-service/internal/domain/grouping"
	xerrors "routedesk-service/internal/pkg/errors"

	"github.com/lib/pq"
)

const groupingColumns = `g.id, g.name, g.label_color, g.delivery_agent_id, g.sales_agent_id,
	(SELECT COUNT(*) FROM grouping_members gm WHERE gm.grouping_id = g.id), g.created_at`

type GroupingRepository struct {
	db DBTX
}

func NewGroupingRepository(db DBTX) *GroupingRepository {
	return &GroupingRepository{db: db}
}

func scanGrouping(row scanner) (*grouping.Grouping, error) {
	var g grouping.Grouping
	if err := row.Scan(&g.ID, &g.Name, &g.LabelColor, &g.DeliveryAgentID, &g.SalesAgentID, &g.MemberCount, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GroupingRepository) Create(ctx context.Context, g *grouping.Grouping) error {
	query := `
		INSERT INTO groupings (name, label_color, delivery_agent_id, sales_agent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if err := r.db.QueryRow(ctx, query, g.Name, g.LabelColor, g.DeliveryAgentID, g.SalesAgentID).Scan(&g.ID, &g.CreatedAt); err != nil {
		return translate(err, "create grouping")
	}
	return nil
}

func (r *GroupingRepository) FindByID(ctx context.Context, id int64) (*grouping.Grouping, error) {
	g, err := scanGrouping(r.db.QueryRow(ctx, `SELECT `+groupingColumns+` FROM groupings g WHERE g.id = $1`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("find grouping %d", id))
	}
	return g, nil
}

func (r *GroupingRepository) List(ctx context.Context) ([]grouping.Grouping, error) {
	rows, err := r.db.Query(ctx, `SELECT `+groupingColumns+` FROM groupings g ORDER BY g.name, g.id`)
	if err != nil {
		return nil, translate(err, "list groupings")
	}
	defer rows.Close()

	var out []grouping.Grouping
	for rows.Next() {
		g, err := scanGrouping(rows)
		if err != nil {
			return nil, translate(err, "scan grouping")
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (r *GroupingRepository) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, fmt.Sprintf("delete grouping %d", id), `DELETE FROM groupings WHERE id = $1`, id)
}

func (r *GroupingRepository) SetDeliveryAgent(ctx context.Context, id int64, agentID *int64) error {
	return r.exec(ctx, fmt.Sprintf("set delivery agent of grouping %d", id),
		`UPDATE groupings SET delivery_agent_id = $2 WHERE id = $1`, id, agentID)
}

func (r *GroupingRepository) SetSalesAgent(ctx context.Context, id int64, agentID *int64) error {
	return r.exec(ctx, fmt.Sprintf("set sales agent of grouping %d", id),
		`UPDATE groupings SET sales_agent_id = $2 WHERE id = $1`, id, agentID)
}

// exec runs a statement that must touch the grouping row.
func (r *GroupingRepository) exec(ctx context.Context, what, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return translate(err, what)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", what, xerrors.ErrNotFound)
	}
	return nil
}

// AddMembers links customers with set semantics; existing links are kept as is.
func (r *GroupingRepository) AddMembers(ctx context.Context, id int64, customerIDs []int64) error {
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	query := `
		INSERT INTO grouping_members (grouping_id, customer_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT (grouping_id, customer_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, id, pq.Array(customerIDs)); err != nil {
		return translate(err, fmt.Sprintf("add members to grouping %d", id))
	}
	return nil
}

func (r *GroupingRepository) RemoveMember(ctx context.Context, id, customerID int64) error {
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `DELETE FROM grouping_members WHERE grouping_id = $1 AND customer_id = $2`, id, customerID)
	if err != nil {
		return translate(err, fmt.Sprintf("remove member from grouping %d", id))
	}
	return nil
}

func (r *GroupingRepository) FirstForCustomer(ctx context.Context, customerID int64) (*grouping.Grouping, error) {
	query := `
		SELECT ` + groupingColumns + `
		FROM groupings g
		JOIN grouping_members m ON m.grouping_id = g.id
		WHERE m.customer_id = $1
		ORDER BY g.id
		LIMIT 1
	`
	g, err := scanGrouping(r.db.QueryRow(ctx, query, customerID))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("find grouping for customer %d", customerID))
	}
	return g, nil
}

func (r *GroupingRepository) HasSalesAgent(ctx context.Context, agentID int64) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM groupings WHERE sales_agent_id = $1)`, agentID).Scan(&ok); err != nil {
		return false, translate(err, "check sales agent")
	}
	return ok, nil
}
