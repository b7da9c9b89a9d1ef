// internal/service/grouping/grouping.go
package grouping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"routedesk-service/internal/domain/customer"
	"routedesk-service/internal/domain/grouping"
	xerrors "routedesk-service/internal/pkg/errors"
	"routedesk-service/internal/pkg/result"
	"routedesk-service/internal/ports"
	"routedesk-service/internal/service/intelligence"

	"go.uber.org/zap"
)

type agentSlot string

const (
	deliverySlot agentSlot = "delivery"
	salesSlot    agentSlot = "sales"
)

type GroupingService struct {
	store  ports.Store
	engine *intelligence.Engine
	logger *zap.Logger
}

func NewGroupingService(store ports.Store, engine *intelligence.Engine, logger *zap.Logger) *GroupingService {
	return &GroupingService{store: store, engine: engine, logger: logger}
}

// CreateGrouping creates an empty grouping
func (s *GroupingService) CreateGrouping(ctx context.Context, req *grouping.CreateGroupingRequest, asOf time.Time) (*grouping.Grouping, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: grouping name is required", xerrors.ErrInvalidInput)
	}
	color := strings.TrimSpace(req.LabelColor)
	if color == "" {
		color = grouping.DefaultLabelColor
	}

	g := &grouping.Grouping{Name: name, LabelColor: color, CreatedAt: asOf}
	if err := s.store.Groupings().Create(ctx, g); err != nil {
		s.logger.Error("failed to create grouping", zap.Error(err))
		return nil, fmt.Errorf("failed to create grouping: %w", err)
	}

	s.logger.Info("grouping created", zap.Int64("grouping_id", g.ID), zap.String("name", g.Name))
	return g, nil
}

// DeleteGrouping removes the grouping and its memberships. Customers are kept.
func (s *GroupingService) DeleteGrouping(ctx context.Context, id int64) (*result.Result, error) {
	g, err := s.store.Groupings().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Groupings().Delete(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info("grouping deleted", zap.Int64("grouping_id", id))
	return result.Success(fmt.Sprintf("Grouping %s deleted", g.Name)), nil
}

func (s *GroupingService) ListGroupings(ctx context.Context) ([]grouping.Grouping, error) {
	out, err := s.store.Groupings().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groupings: %w", err)
	}
	if out == nil {
		out = []grouping.Grouping{}
	}
	return out, nil
}

// GroupingDetail returns the grouping, its members and the customers that belong to no
// grouping yet, all with their status as of asOf.
func (s *GroupingService) GroupingDetail(ctx context.Context, id int64, asOf time.Time) (*grouping.Detail, error) {
	g, err := s.store.Groupings().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	members, err := s.store.Customers().List(ctx, customer.Query{GroupingID: &id})
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	free, err := s.store.Customers().ListFree(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list free customers: %w", err)
	}

	return &grouping.Detail{
		Grouping:      *g,
		Members:       s.views(members, asOf),
		FreeCustomers: s.views(free, asOf),
	}, nil
}

func (s *GroupingService) views(cs []customer.Customer, asOf time.Time) []customer.View {
	out := make([]customer.View, 0, len(cs))
	for _, c := range cs {
		out = append(out, s.engine.View(c, asOf))
	}
	return out
}

func (s *GroupingService) SetDeliveryAgent(ctx context.Context, id, agentID int64) (*result.Result, error) {
	return s.assign(ctx, id, deliverySlot, &agentID)
}

func (s *GroupingService) RemoveDeliveryAgent(ctx context.Context, id int64) (*result.Result, error) {
	return s.assign(ctx, id, deliverySlot, nil)
}

func (s *GroupingService) SetSalesAgent(ctx context.Context, id, agentID int64) (*result.Result, error) {
	return s.assign(ctx, id, salesSlot, &agentID)
}

func (s *GroupingService) RemoveSalesAgent(ctx context.Context, id int64) (*result.Result, error) {
	return s.assign(ctx, id, salesSlot, nil)
}

// assign sets or clears one agent slot. The agent must exist.
func (s *GroupingService) assign(ctx context.Context, id int64, slot agentSlot, agentID *int64) (*result.Result, error) {
	var (
		g     *grouping.Grouping
		agent string
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		if g, err = tx.Groupings().FindByID(ctx, id); err != nil {
			return err
		}
		if agentID != nil {
			u, err := tx.Users().FindByID(ctx, *agentID)
			if err != nil {
				return err
			}
			agent = u.Username
		}
		if slot == deliverySlot {
			return tx.Groupings().SetDeliveryAgent(ctx, id, agentID)
		}
		return tx.Groupings().SetSalesAgent(ctx, id, agentID)
	})
	if err != nil {
		return nil, err
	}

	if agentID == nil {
		s.logger.Info("grouping agent removed", zap.Int64("grouping_id", id), zap.String("slot", string(slot)))
		return result.Success(fmt.Sprintf("Removed the %s agent of %s", slot, g.Name)), nil
	}
	s.logger.Info("grouping agent set", zap.Int64("grouping_id", id), zap.String("slot", string(slot)), zap.Int64("agent_id", *agentID))
	return result.Success(fmt.Sprintf("%s is now the %s agent of %s", agent, slot, g.Name)), nil
}

// AddCustomers adds customers to the grouping. Existing members are left as they are.
func (s *GroupingService) AddCustomers(ctx context.Context, id int64, req *grouping.AddCustomersRequest) (*result.Result, error) {
	if len(req.CustomerIDs) == 0 {
		return nil, fmt.Errorf("%w: no customers selected", xerrors.ErrInvalidInput)
	}
	var g *grouping.Grouping
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := tx.Groupings().AddMembers(ctx, id, req.CustomerIDs); err != nil {
			return err
		}
		var err error
		g, err = tx.Groupings().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("customers added to grouping", zap.Int64("grouping_id", id), zap.Int("count", len(req.CustomerIDs)))
	return result.Success(fmt.Sprintf("%s now has %d customers", g.Name, g.MemberCount)), nil
}

func (s *GroupingService) RemoveCustomer(ctx context.Context, id, customerID int64) (*result.Result, error) {
	g, err := s.store.Groupings().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Groupings().RemoveMember(ctx, id, customerID); err != nil {
		return nil, err
	}
	s.logger.Info("customer removed from grouping", zap.Int64("grouping_id", id), zap.Int64("customer_id", customerID))
	return result.Success(fmt.Sprintf("Customer removed from %s", g.Name)), nil
}
