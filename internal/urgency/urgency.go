// Package urgency buckets a policy's time to expiry.
package urgency

import (
	"math"
	"time"

	"github.com/nimasrn/policy-desk/internal/dates"
)

type Tier string

const (
	Critical Tier = "critical"
	High     Tier = "high"
	Medium   Tier = "medium"
	Low      Tier = "low"
)

// DueWindowDays is the widest daysLeft still shown in the due list.
const DueWindowDays = 30

// Assessment is derived on every read and never stored.
type Assessment struct {
	DaysLeft    int  `json:"daysLeft"`
	Tier        Tier `json:"tier"`
	Due         bool `json:"due"`
	Expired     bool `json:"expired"`
	DaysExpired int  `json:"daysExpired,omitempty"`
}

// Classify compares expiry (a calendar date) with now. DaysLeft is the ceiling
// of the remaining days, so a policy expiring later today has 0 days left and
// is still due.
func Classify(expiry, now time.Time) Assessment {
	daysLeft := int(math.Ceil(dates.Day(expiry).Sub(now).Hours() / 24))

	a := Assessment{
		DaysLeft: daysLeft,
		Tier:     TierFor(daysLeft),
		Due:      daysLeft >= 0 && daysLeft <= DueWindowDays,
		Expired:  daysLeft < 0,
	}
	if a.Expired {
		a.DaysExpired = dates.DaysBetween(expiry, now)
	}
	return a
}

// TierFor maps days left onto a tier, first match wins.
func TierFor(daysLeft int) Tier {
	switch {
	case daysLeft <= 3:
		return Critical
	case daysLeft <= 7:
		return High
	case daysLeft <= 15:
		return Medium
	default:
		return Low
	}
}

// Rank orders tiers from most to least urgent.
func Rank(t Tier) int {
	switch t {
	case Critical:
		return 0
	case High:
		return 1
	case Medium:
		return 2
	default:
		return 3
	}
}

// ParseTier accepts the lowercase tier names.
func ParseTier(s string) (Tier, bool) {
	switch Tier(s) {
	case Critical, High, Medium, Low:
		return Tier(s), true
	}
	return "", false
}
