package billing

import (
	"cmp"
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"

	"github.com/dmitrymomot/stripekit/pkg/logger"
)

// SyncPlans mirrors every Stripe plan and returns how many were saved.
func (s *Service) SyncPlans(ctx context.Context) (int, error) {
	plans, err := s.provider.ListPlans(ctx)
	if err != nil {
		return 0, err
	}
	return s.savePlans(ctx, plans, "stripe")
}

// LoadPlanCatalog seeds plans from a YAML catalogue.
func (s *Service) LoadPlanCatalog(ctx context.Context, r io.Reader) (int, error) {
	plans, err := ParsePlanCatalog(r)
	if err != nil {
		return 0, err
	}
	return s.savePlans(ctx, plans, "catalog")
}

func (s *Service) savePlans(ctx context.Context, plans []Plan, source string) (int, error) {
	now := s.Now()
	for i := range plans {
		plans[i].UpdatedAt = now
		if err := s.store.SavePlan(ctx, &plans[i]); err != nil {
			return i, err
		}
	}
	s.log.InfoContext(ctx, "plans synced",
		logger.Event("plans.synced"),
		slog.String("source", source),
		slog.Int("count", len(plans)),
	)
	return len(plans), nil
}

// Plans lists the active plans, cheapest first.
func (s *Service) Plans(ctx context.Context) ([]Plan, error) {
	all, err := s.store.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	active := slices.DeleteFunc(all, func(p Plan) bool { return !p.Active })
	slices.SortStableFunc(active, func(a, b Plan) int {
		return cmp.Or(cmp.Compare(a.Amount, b.Amount), cmp.Compare(a.ID, b.ID))
	})
	return active, nil
}

// Plan returns one plan or ErrPlanNotFound.
func (s *Service) Plan(ctx context.Context, id string) (*Plan, error) {
	if id == "" {
		return nil, ErrPlanNotFound
	}
	p, err := s.store.GetPlan(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return p, nil
}
