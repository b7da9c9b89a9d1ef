// internal/service/outcome/call.go
package outcome

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"routedesk-service/internal/domain/auth"
	"routedesk-service/internal/domain/call"
	"routedesk-service/internal/domain/route"
	xerrors "routedesk-service/internal/pkg/errors"
	"routedesk-service/internal/pkg/result"
	"routedesk-service/internal/ports"

	"go.uber.org/zap"
)

var followUpLayouts = []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// RecordCallOutcome appends a call to the log. A closed sale also schedules a visit on
// the delivery agent's route for the day, creating that route when needed. The call is
// kept even when no delivery agent can be found for the customer.
func (s *Service) RecordCallOutcome(ctx context.Context, actor auth.Actor, req call.RecordCallRequest, asOf time.Time) (*result.Result, error) {
	res, ok := call.ParseResult(req.Result)
	if !ok {
		return nil, fmt.Errorf("%w: unknown call result %q", xerrors.ErrInvalidInput, req.Result)
	}

	out := result.Success("")
	followUp, followUpOK := parseFollowUp(req.FollowUp, asOf.Location())
	if !followUpOK {
		out.Warn(fmt.Sprintf("follow-up date %q not understood, left empty", req.FollowUp))
	}

	var (
		c            *call.Call
		rt           *route.Route
		routeCreated bool
		visit        *route.Visit
		agentName    string
		customerName string
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		cust, err := tx.Customers().FindByID(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		customerName = cust.Name

		c = &call.Call{
			AgentID:    actor.UserID,
			CustomerID: cust.ID,
			Result:     res,
			Note:       req.Note,
			FollowUpAt: followUp,
			CalledAt:   asOf,
		}
		if err := tx.Calls().Create(ctx, c); err != nil {
			return err
		}
		if res != call.ResultSaleClosed {
			return nil
		}

		g, err := tx.Groupings().FirstForCustomer(ctx, cust.ID)
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			out.Warn(fmt.Sprintf("%s is in no grouping, no delivery scheduled", cust.Name))
			return nil
		case err != nil:
			return err
		case g.DeliveryAgentID == nil:
			out.Warn(fmt.Sprintf("grouping %s has no delivery agent, no delivery scheduled", g.Name))
			return nil
		}

		day := s.engine.Day(asOf)
		if rt, routeCreated, err = tx.Routes().GetOrCreateDaily(ctx, *g.DeliveryAgentID, day, route.DailyName(day)); err != nil {
			return err
		}
		visit = &route.Visit{
			RouteID:    rt.ID,
			CustomerID: cust.ID,
			Status:     route.VisitPending,
			Note:       fmt.Sprintf("Telesale (%s): %s", actor.Username, req.Note),
			CreatedAt:  asOf,
		}
		if err := tx.Visits().Create(ctx, visit); err != nil {
			return err
		}
		agent, err := tx.Users().FindByID(ctx, rt.AgentID)
		if err != nil {
			return err
		}
		agentName = agent.Username
		return nil
	})
	if err != nil {
		if !xerrors.IsClientError(err) {
			s.logger.Error("failed to record call outcome", zap.Int64("customer_id", req.CustomerID), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.IncCallOutcome(string(res))
	if routeCreated {
		s.metrics.IncRouteCreated(string(rt.Kind))
	}

	switch {
	case visit != nil:
		out.Summary = fmt.Sprintf("Sale recorded, delivery for %s sent to %s", customerName, agentName)
		s.notifier.VisitsAssigned(ports.VisitAssignment{
			AgentID:   rt.AgentID,
			RouteID:   rt.ID,
			RouteName: rt.Name,
			VisitIDs:  []int64{visit.ID},
			Source:    "telesale",
			At:        asOf,
		})
	case res == call.ResultSaleClosed:
		out.Summary = fmt.Sprintf("Sale recorded for %s", customerName)
	default:
		out.Summary = fmt.Sprintf("Call to %s recorded", customerName)
	}

	fields := []zap.Field{
		zap.Int64("call_id", c.ID),
		zap.Int64("customer_id", c.CustomerID),
		zap.Int64("agent_id", actor.UserID),
		zap.String("result", string(res)),
	}
	if visit != nil {
		fields = append(fields, zap.Int64("route_id", rt.ID), zap.Int64("visit_id", visit.ID), zap.Bool("route_created", routeCreated))
	}
	if out.OK() {
		s.logger.Info("call recorded", fields...)
	} else {
		s.logger.Warn("call recorded with warnings", append(fields, zap.Strings("warnings", out.Warnings))...)
	}
	return out, nil
}

// parseFollowUp reads the date in loc. Blank input is a valid empty value.
func parseFollowUp(raw string, loc *time.Location) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	for _, layout := range followUpLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return &t, true
		}
	}
	return nil, false
}
