// internal/service/customer/customer.go
package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"routedesk-service/internal/domain/customer"
	xerrors "routedesk-service/internal/pkg/errors"
	"routedesk-service/internal/ports"
	"routedesk-service/internal/service/intelligence"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CustomerService struct {
	store  ports.Store
	engine *intelligence.Engine
	logger *zap.Logger
}

func NewCustomerService(store ports.Store, engine *intelligence.Engine, logger *zap.Logger) *CustomerService {
	return &CustomerService{
		store:  store,
		engine: engine,
		logger: logger,
	}
}

// CreateCustomer registers a customer by hand. Names are unique.
func (s *CustomerService) CreateCustomer(ctx context.Context, req *customer.CreateCustomerRequest, asOf time.Time) (*customer.View, error) {
	name := customer.Truncate(strings.TrimSpace(req.Name), customer.MaxNameLen)
	if name == "" {
		return nil, fmt.Errorf("%w: customer name is required", xerrors.ErrInvalidInput)
	}

	c := &customer.Customer{
		Name:         name,
		Address:      strings.TrimSpace(req.Address),
		Neighborhood: customer.NormalizeNeighborhood(req.Neighborhood),
		Phone:        customer.NormalizePhone(req.Phone),
		Debt:         decimal.Zero,
		CycleDays:    intelligence.DefaultCycleDays,
		CreatedAt:    asOf,
	}

	if err := s.store.Customers().Create(ctx, c); err != nil {
		if xerrors.Is(err, xerrors.ErrConflict) {
			return nil, fmt.Errorf("customer %q already exists: %w", name, xerrors.ErrConflict)
		}
		s.logger.Error("failed to create customer", zap.Error(err))
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	s.logger.Info("customer created",
		zap.Int64("customer_id", c.ID),
		zap.String("neighborhood", c.Neighborhood),
	)

	view := s.engine.View(*c, asOf)
	return &view, nil
}

// GetCustomer retrieves a customer with its consumption status
func (s *CustomerService) GetCustomer(ctx context.Context, customerID int64, asOf time.Time) (*customer.View, error) {
	c, err := s.store.Customers().FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	view := s.engine.View(*c, asOf)
	return &view, nil
}

// ListNeighborhoods returns the distinct neighborhoods in use, sorted.
func (s *CustomerService) ListNeighborhoods(ctx context.Context) ([]string, error) {
	out, err := s.store.Customers().ListNeighborhoods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list neighborhoods: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
