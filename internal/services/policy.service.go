package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/nimasrn/policy-desk/internal/dates"
	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/internal/urgency"
)

var (
	ErrInvalidTier  = errors.New("invalid urgency tier")
	ErrMissingOwner = errors.New("owner id is required")
)

type PolicyReader interface {
	ListExpiringBetween(ctx context.Context, ownerID string, from, to time.Time) ([]*model.Policy, error)
	ListExpiredBefore(ctx context.Context, ownerID string, day time.Time) ([]*model.Policy, error)
}

// PolicyView is a stored policy with its urgency worked out for the current
// moment.
type PolicyView struct {
	*model.Policy
	Urgency urgency.Assessment `json:"urgency"`
}

type PolicyService struct {
	repo     PolicyReader
	location *time.Location
	now      func() time.Time
}

func NewPolicyService(repo PolicyReader, location *time.Location) *PolicyService {
	if location == nil {
		location = time.UTC
	}
	return &PolicyService{repo: repo, location: location, now: time.Now}
}

// WithClock replaces the wall clock.
func (s *PolicyService) WithClock(now func() time.Time) *PolicyService {
	s.now = now
	return s
}

// Due lists the owner's policies expiring within the due window, soonest
// first. An empty tier means every tier.
func (s *PolicyService) Due(ctx context.Context, ownerID string, tier string) ([]PolicyView, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}
	var want urgency.Tier
	if tier != "" {
		t, ok := urgency.ParseTier(tier)
		if !ok {
			return nil, ErrInvalidTier
		}
		want = t
	}

	now := s.now()
	today := dates.Today(now, s.location)
	policies, err := s.repo.ListExpiringBetween(ctx, ownerID, today, today.AddDate(0, 0, urgency.DueWindowDays))
	if err != nil {
		return nil, err
	}

	local := dates.WallClock(now, s.location)
	views := make([]PolicyView, 0, len(policies))
	for _, p := range policies {
		a := urgency.Classify(p.ExpiryDate, local)
		if !a.Due || (want != "" && a.Tier != want) {
			continue
		}
		views = append(views, PolicyView{Policy: p, Urgency: a})
	}

	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Urgency.DaysLeft != views[j].Urgency.DaysLeft {
			return views[i].Urgency.DaysLeft < views[j].Urgency.DaysLeft
		}
		return views[i].PolicyNumber < views[j].PolicyNumber
	})
	return views, nil
}

// Expired lists policies whose expiry date has passed, most recent first.
func (s *PolicyService) Expired(ctx context.Context, ownerID string) ([]PolicyView, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}

	now := s.now()
	today := dates.Today(now, s.location)
	policies, err := s.repo.ListExpiredBefore(ctx, ownerID, today)
	if err != nil {
		return nil, err
	}

	local := dates.WallClock(now, s.location)
	views := make([]PolicyView, 0, len(policies))
	for _, p := range policies {
		views = append(views, PolicyView{Policy: p, Urgency: urgency.Classify(p.ExpiryDate, local)})
	}
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Urgency.DaysExpired != views[j].Urgency.DaysExpired {
			return views[i].Urgency.DaysExpired < views[j].Urgency.DaysExpired
		}
		return views[i].PolicyNumber < views[j].PolicyNumber
	})
	return views, nil
}
