package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"checkout-service/internal/models"
	"checkout-service/internal/money"

	"github.com/shopspring/decimal"
)

// ErrNoTierMatch is matched by every NoTierMatchError.
var ErrNoTierMatch = errors.New("no commission tier matches amount")

// NoTierMatchError reports an empty tier table or a gap at Amount.
// It is a configuration error and must reach an administrator.
type NoTierMatchError struct {
	Amount decimal.Decimal
	Empty  bool
}

func (e *NoTierMatchError) Error() string {
	if e.Empty {
		return fmt.Sprintf("%s: tier table has no active tiers (amount %s)", ErrNoTierMatch, e.Amount.String())
	}
	return fmt.Sprintf("%s: gap in tier table at %s", ErrNoTierMatch, e.Amount.String())
}

func (e *NoTierMatchError) Unwrap() error { return ErrNoTierMatch }

// Commission is the result of applying a tier to an amount.
type Commission struct {
	Amount              decimal.Decimal       `json:"amount"`
	Tier                models.CommissionTier `json:"tier"`
	Percentage          decimal.Decimal       `json:"percentage"`
	CommissionAmount    decimal.Decimal       `json:"commission_amount"`
	TotalWithCommission decimal.Decimal       `json:"total_with_commission"`
}

// activeTiers returns the active tiers ordered by lower bound, then by the admin order.
func activeTiers(tiers []models.CommissionTier) []models.CommissionTier {
	out := make([]models.CommissionTier, 0, len(tiers))
	for _, t := range tiers {
		if t.Active {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].MinThreshold.Cmp(out[j].MinThreshold); c != 0 {
			return c < 0
		}
		return out[i].SortOrder < out[j].SortOrder
	})
	return out
}

func tierContains(t models.CommissionTier, amount decimal.Decimal) bool {
	if amount.LessThan(t.MinThreshold) {
		return false
	}
	return !t.MaxThreshold.Valid || amount.LessThanOrEqual(t.MaxThreshold.Decimal)
}

// tierAmount is the amount tiers are matched against: non-negative and whole
// minor units, the same grid ValidateTiers checks for gaps.
func tierAmount(amount decimal.Decimal) decimal.Decimal {
	return money.Round(money.NonNegative(amount))
}

// ResolveTier selects the active tier containing amount. Upper bounds are
// inclusive, so an amount sitting on a boundary belongs to the lower tier.
// Negative amounts are treated as zero and fractions of a minor unit are
// rounded before matching.
func ResolveTier(amount decimal.Decimal, tiers []models.CommissionTier) (models.CommissionTier, error) {
	amount = tierAmount(amount)
	active := activeTiers(tiers)
	if len(active) == 0 {
		return models.CommissionTier{}, &NoTierMatchError{Amount: amount, Empty: true}
	}
	for _, t := range active {
		if tierContains(t, amount) {
			return t, nil
		}
	}
	return models.CommissionTier{}, &NoTierMatchError{Amount: amount}
}

// ComputeCommission prices amount, rounded to minor units, against the tier
// table. Each output value is rounded once.
func ComputeCommission(amount decimal.Decimal, tiers []models.CommissionTier) (Commission, error) {
	amount = tierAmount(amount)
	tier, err := ResolveTier(amount, tiers)
	if err != nil {
		return Commission{}, err
	}
	exact := money.Percent(amount, tier.Percentage)
	return Commission{
		Amount:              amount,
		Tier:                tier,
		Percentage:          tier.Percentage,
		CommissionAmount:    money.Round(exact),
		TotalWithCommission: money.Round(amount.Add(exact)),
	}, nil
}

// TierTableError lists every problem found in a tier table.
type TierTableError struct {
	Problems []string
}

func (e *TierTableError) Error() string {
	return "invalid commission tier table: " + strings.Join(e.Problems, "; ")
}

var (
	hundred  = decimal.NewFromInt(100)
	minorOne = decimal.New(1, -money.MinorUnitPlaces)
)

// ValidateTier checks the invariants of a single tier row.
func ValidateTier(t models.CommissionTier) []string {
	var problems []string
	if t.MinThreshold.IsNegative() {
		problems = append(problems, fmt.Sprintf("tier %d: min threshold is negative", t.ID))
	}
	if t.MaxThreshold.Valid && t.MaxThreshold.Decimal.LessThan(t.MinThreshold) {
		problems = append(problems, fmt.Sprintf("tier %d: max threshold below min threshold", t.ID))
	}
	if t.Percentage.IsNegative() || t.Percentage.GreaterThan(hundred) {
		problems = append(problems, fmt.Sprintf("tier %d: percentage outside [0,100]", t.ID))
	}
	return problems
}

// ValidateTiers verifies that the active tiers partition [0, +inf) with no gap
// and no overlap. Adjacent tiers may share a boundary value or start one minor
// unit above the previous maximum.
func ValidateTiers(tiers []models.CommissionTier) error {
	active := activeTiers(tiers)
	var problems []string
	for _, t := range active {
		problems = append(problems, ValidateTier(t)...)
	}
	if len(active) == 0 {
		problems = append(problems, "no active tiers")
		return &TierTableError{Problems: problems}
	}
	if !active[0].MinThreshold.IsZero() {
		problems = append(problems, fmt.Sprintf("gap below %s: first tier must start at 0", active[0].MinThreshold.String()))
	}
	for i := 1; i < len(active); i++ {
		prev, cur := active[i-1], active[i]
		if !prev.MaxThreshold.Valid {
			problems = append(problems, fmt.Sprintf("tier %d overlaps unbounded tier %d", cur.ID, prev.ID))
			continue
		}
		switch {
		case cur.MinThreshold.LessThan(prev.MaxThreshold.Decimal):
			problems = append(problems, fmt.Sprintf("tier %d overlaps tier %d", cur.ID, prev.ID))
		case cur.MinThreshold.GreaterThan(prev.MaxThreshold.Decimal.Add(minorOne)):
			problems = append(problems, fmt.Sprintf("gap between %s and %s", prev.MaxThreshold.Decimal.String(), cur.MinThreshold.String()))
		}
	}
	if last := active[len(active)-1]; last.MaxThreshold.Valid {
		problems = append(problems, fmt.Sprintf("gap above %s: last tier must be unbounded", last.MaxThreshold.Decimal.String()))
	}
	if len(problems) > 0 {
		return &TierTableError{Problems: problems}
	}
	return nil
}
