// internal/service/outcome/visit.go
package outcome

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"routedesk-service/internal/domain/auth"
	"routedesk-service/internal/domain/customer"
	"routedesk-service/internal/domain/route"
	"routedesk-service/internal/metrics"
	xerrors "routedesk-service/internal/pkg/errors"
	"routedesk-service/internal/pkg/money"
	"routedesk-service/internal/pkg/result"
	"routedesk-service/internal/ports"
	"routedesk-service/internal/service/intelligence"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxCompetitorNameLen = 50

type Service struct {
	store    ports.Store
	engine   *intelligence.Engine
	notifier ports.Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewService(store ports.Store, engine *intelligence.Engine, notifier ports.Notifier, m *metrics.Metrics, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = ports.NopNotifier{}
	}
	return &Service{store: store, engine: engine, notifier: notifier, metrics: m, logger: logger}
}

// RecordVisitOutcome closes a pending visit as sold or not sold. A sale lowers the
// customer's debt by the amount received and re-estimates the purchase cycle with
// this visit as the newest purchase. Everything commits together or not at all.
func (s *Service) RecordVisitOutcome(ctx context.Context, actor auth.Actor, visitID int64, req route.VisitOutcomeRequest, asOf time.Time) (*result.Result, error) {
	var reason route.NotSoldReason
	if !req.Sold {
		r, ok := route.ParseReason(req.Reason)
		if !ok {
			return nil, fmt.Errorf("%w: unknown not-sold reason %q", xerrors.ErrInvalidInput, req.Reason)
		}
		reason = r
	}

	res := result.Success("")
	lat, lng, gpsErr := parseGPS(req.Latitude, req.Longitude)
	if gpsErr != "" {
		res.Warn(gpsErr)
	}

	amount := decimal.Zero
	var competitorPrice decimal.NullDecimal
	if req.Sold {
		var ok bool
		if amount, ok = money.ParseAmount(req.Amount); !ok {
			res.Warn(fmt.Sprintf("amount %q not understood, recorded as 0", req.Amount))
		}
	} else {
		var ok bool
		if competitorPrice, ok = money.ParseOptionalAmount(req.CompetitorPrice); !ok {
			res.Warn(fmt.Sprintf("competitor price %q not understood, left empty", req.CompetitorPrice))
		}
	}

	var (
		v    *route.Visit
		cust *customer.Customer
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		if v, err = tx.Visits().FindForUpdate(ctx, visitID); err != nil {
			return err
		}
		rt, err := tx.Routes().FindByID(ctx, v.RouteID)
		if err != nil {
			return err
		}
		if rt.AgentID != actor.UserID && !actor.Elevated {
			return fmt.Errorf("visit %d belongs to another agent: %w", visitID, xerrors.ErrForbidden)
		}
		if v.Status.Terminal() {
			return fmt.Errorf("visit %d is %s: %w", visitID, v.Status, xerrors.ErrVisitFinalized)
		}
		if cust, err = tx.Customers().FindForUpdate(ctx, v.CustomerID); err != nil {
			return err
		}

		at := asOf
		v.VisitedAt = &at
		v.Latitude, v.Longitude = lat, lng

		if !req.Sold {
			v.Status = route.VisitNotSold
			v.NotSoldReason = &reason
			v.CompetitorName = optional(customer.Truncate(strings.TrimSpace(req.CompetitorName), maxCompetitorNameLen))
			v.CompetitorPrice = competitorPrice
			v.Note = req.Note
			return tx.Visits().SaveOutcome(ctx, v)
		}

		v.Status = route.VisitRealized
		v.AmountReceived = amount
		if note := strings.TrimSpace(req.Note); note != "" {
			v.Note = note
		}

		prior, err := tx.Visits().RecentPurchases(ctx, cust.ID, s.engine.SampleSize()-1)
		if err != nil {
			return err
		}
		cust.Debt = cust.Debt.Sub(amount)
		cust.CycleDays = s.engine.EstimateCycle(append([]time.Time{asOf}, prior...))
		lastPurchase := s.engine.Day(asOf)
		cust.LastPurchaseOn = &lastPurchase

		if err := tx.Customers().UpdateLedger(ctx, cust); err != nil {
			return err
		}
		return tx.Visits().SaveOutcome(ctx, v)
	})
	if err != nil {
		if !xerrors.IsClientError(err) {
			s.logger.Error("failed to record visit outcome", zap.Int64("visit_id", visitID), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.IncVisitOutcome(string(v.Status))
	if req.Sold {
		res.Summary = fmt.Sprintf("Sale of %s recorded", money.Format(amount))
		s.logger.Info("visit realized",
			zap.Int64("visit_id", v.ID),
			zap.Int64("customer_id", cust.ID),
			zap.Int64("agent_id", actor.UserID),
			zap.String("amount", amount.StringFixed(2)),
			zap.String("debt", cust.Debt.StringFixed(2)),
			zap.Float64("cycle_days", cust.CycleDays),
		)
	} else {
		res.Summary = "Visit closed as not sold"
		s.logger.Info("visit not sold",
			zap.Int64("visit_id", v.ID),
			zap.Int64("customer_id", cust.ID),
			zap.Int64("agent_id", actor.UserID),
			zap.String("reason", string(reason)),
		)
	}
	if len(res.Warnings) > 0 {
		s.logger.Warn("visit outcome recorded with warnings", zap.Int64("visit_id", v.ID), zap.Strings("warnings", res.Warnings))
	}
	return res, nil
}

// parseGPS keeps the pair only when both coordinates parse and are in range. A blank
// pair is not a warning.
func parseGPS(rawLat, rawLng string) (*float64, *float64, string) {
	rawLat, rawLng = strings.TrimSpace(rawLat), strings.TrimSpace(rawLng)
	if rawLat == "" && rawLng == "" {
		return nil, nil, ""
	}
	lat, errLat := strconv.ParseFloat(strings.Replace(rawLat, ",", ".", 1), 64)
	lng, errLng := strconv.ParseFloat(strings.Replace(rawLng, ",", ".", 1), 64)
	if errLat != nil || errLng != nil || !finite(lat) || !finite(lng) ||
		lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, nil, "gps position not understood, visit saved without it"
	}
	return &lat, &lng, ""
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
