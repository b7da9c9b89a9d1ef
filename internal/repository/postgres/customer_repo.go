// internal/repository/postgres/customer_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"routedesk-service/internal/domain/customer"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

const customerColumns = `c.id, c.name, c.address, c.neighborhood, c.phone, c.debt, c.cycle_days,
	c.last_purchase_on, c.latitude, c.longitude, c.created_at, c.updated_at`

type CustomerRepository struct {
	db DBTX
}

func NewCustomerRepository(db DBTX) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func scanCustomer(row scanner) (*customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.Address, &c.Neighborhood, &c.Phone, &c.Debt, &c.CycleDays,
		&c.LastPurchaseOn, &c.Latitude, &c.Longitude, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectCustomers(rows pgx.Rows) ([]customer.Customer, error) {
	defer rows.Close()
	var out []customer.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Create inserts a customer
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	query := `
		INSERT INTO customers (name, address, neighborhood, phone, debt, cycle_days)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		c.Name, c.Address, c.Neighborhood, c.Phone, c.Debt, c.CycleDays,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return translate(err, "create customer")
	}
	return nil
}

// GetOrCreateByName inserts c unless a customer with the same name exists. The
// unique index on name makes concurrent imports converge on one row.
func (r *CustomerRepository) GetOrCreateByName(ctx context.Context, c *customer.Customer) (*customer.Customer, bool, error) {
	insert := `
		INSERT INTO customers AS c (name, address, neighborhood, phone, debt, cycle_days)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO NOTHING
		RETURNING ` + customerColumns

	created, err := scanCustomer(r.db.QueryRow(ctx, insert,
		c.Name, c.Address, c.Neighborhood, c.Phone, c.Debt, c.CycleDays,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, translate(err, "insert customer")
	}

	existing, err := scanCustomer(r.db.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers c WHERE c.name = $1`, c.Name))
	if err != nil {
		return nil, false, translate(err, fmt.Sprintf("find customer %q", c.Name))
	}
	return existing, false, nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, id int64) (*customer.Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers c WHERE c.id = $1`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("find customer %d", id))
	}
	return c, nil
}

func (r *CustomerRepository) FindForUpdate(ctx context.Context, id int64) (*customer.Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers c WHERE c.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("lock customer %d", id))
	}
	return c, nil
}

// UpdateLedger persists the fields a sale changes
func (r *CustomerRepository) UpdateLedger(ctx context.Context, c *customer.Customer) error {
	query := `
		UPDATE customers
		SET debt = $2, cycle_days = $3, last_purchase_on = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := r.db.QueryRow(ctx, query, c.ID, c.Debt, c.CycleDays, c.LastPurchaseOn).Scan(&c.UpdatedAt); err != nil {
		return translate(err, fmt.Sprintf("update customer %d", c.ID))
	}
	return nil
}

func (r *CustomerRepository) List(ctx context.Context, q customer.Query) ([]customer.Customer, error) {
	var (
		where []string
		args  []any
	)
	if q.Neighborhood != "" {
		args = append(args, q.Neighborhood)
		where = append(where, fmt.Sprintf("c.neighborhood = $%d", len(args)))
	}
	if q.GroupingID != nil {
		args = append(args, *q.GroupingID)
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM grouping_members gm WHERE gm.customer_id = c.id AND gm.grouping_id = $%d)", len(args)))
	}
	if len(q.IDs) > 0 {
		args = append(args, pq.Array(q.IDs))
		where = append(where, fmt.Sprintf("c.id = ANY($%d)", len(args)))
	}

	query := `SELECT ` + customerColumns + ` FROM customers c`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY c.neighborhood, c.name, c.id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list customers")
	}
	out, err := collectCustomers(rows)
	if err != nil {
		return nil, translate(err, "scan customers")
	}
	return out, nil
}

func (r *CustomerRepository) ListFree(ctx context.Context) ([]customer.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM customers c
		WHERE NOT EXISTS (SELECT 1 FROM grouping_members gm WHERE gm.customer_id = c.id)
		ORDER BY c.neighborhood, c.name, c.id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, translate(err, "list free customers")
	}
	out, err := collectCustomers(rows)
	if err != nil {
		return nil, translate(err, "scan free customers")
	}
	return out, nil
}

func (r *CustomerRepository) ListForSalesAgent(ctx context.Context, agentID int64) ([]customer.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM customers c
		WHERE c.id IN (
			SELECT gm.customer_id
			FROM grouping_members gm
			JOIN groupings g ON g.id = gm.grouping_id
			WHERE g.sales_agent_id = $1
		)
		ORDER BY c.debt DESC, c.name
	`
	rows, err := r.db.Query(ctx, query, agentID)
	if err != nil {
		return nil, translate(err, "list sales agent customers")
	}
	out, err := collectCustomers(rows)
	if err != nil {
		return nil, translate(err, "scan sales agent customers")
	}
	return out, nil
}

func (r *CustomerRepository) ListNeighborhoods(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT neighborhood FROM customers ORDER BY neighborhood`)
	if err != nil {
		return nil, translate(err, "list neighborhoods")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, translate(err, "scan neighborhood")
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *CustomerRepository) CountInactive(ctx context.Context, purchasedBefore time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM customers WHERE last_purchase_on IS NULL OR last_purchase_on < $1`,
		purchasedBefore,
	).Scan(&n)
	if err != nil {
		return 0, translate(err, "count inactive customers")
	}
	return n, nil
}
