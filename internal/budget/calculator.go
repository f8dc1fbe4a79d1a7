package budget

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ignite/adgroup-autopilot/internal/domain"
)

// bucket is one budget/price pair the daily budget and average bid are built from.
type bucket struct {
	budget decimal.Decimal
	price  decimal.Decimal
}

// Compute derives the effective daily budget and bid of one ad group.
// It never mutates its inputs. An *UnhandledAutopilotStateError aborts this
// ad group only.
func Compute(
	campaign domain.CampaignConfig,
	adGroup domain.AdGroupConfig,
	allocations []domain.SourceAllocation,
	sources domain.SourceIDMap,
) (Result, error) {
	if adGroup.CampaignID != campaign.ID {
		return Result{}, fmt.Errorf("ad group %d, campaign %d: %w", adGroup.ID, campaign.ID, ErrCampaignMismatch)
	}

	regime, err := SelectRegime(adGroup)
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch regime.(type) {
	case SourceDriven:
		buckets := sourceBuckets(adGroup, allocations, sources)
		res.DailyBudget = sumBudgets(buckets)
		res.Bid = regimeBid(adGroup, buckets)
	case BudgetCapped:
		res.DailyBudget = adGroup.AutopilotDailyBudget
		res.Bid = regimeBid(adGroup, sourceBuckets(adGroup, allocations, sources))
	case PlainActive:
		if adGroup.DailyBudget.Valid {
			res.DailyBudget = adGroup.DailyBudget.Decimal
		} else {
			// Kept lenient so one bad row does not fail the nightly job.
			res.DailyBudget = decimal.Zero
			res.Warnings = append(res.Warnings, Warning{
				Code:       WarnNullDailyBudget,
				AdGroupID:  adGroup.ID,
				CampaignID: adGroup.CampaignID,
				Message:    "daily budget is null in ACTIVE autopilot state, using 0",
			})
		}
		res.Bid = adGroup.Bid
	default:
		return Result{}, &UnhandledAutopilotStateError{AdGroupID: adGroup.ID, State: adGroup.AutopilotState}
	}

	res.DailyBudget = res.clampNonNegative("daily budget", res.DailyBudget, adGroup).Round(ccPlaces)
	res.Bid = res.clampNonNegative("bid", res.Bid, adGroup).Round(ccPlaces)
	return res, nil
}

func (r *Result) clampNonNegative(field string, v decimal.Decimal, adGroup domain.AdGroupConfig) decimal.Decimal {
	if !v.IsNegative() {
		return v
	}
	r.Warnings = append(r.Warnings, Warning{
		Code:       WarnNegativeClamped,
		AdGroupID:  adGroup.ID,
		CampaignID: adGroup.CampaignID,
		Message:    fmt.Sprintf("calculated %s %s is negative, using 0", field, v),
	})
	return decimal.Zero
}

// sourceBuckets lists the budget/price pairs of an ad group. With the RTB
// group enabled every RTB source collapses into one aggregate bucket and
// only Outbrain and Yahoo keep their own allocation.
func sourceBuckets(adGroup domain.AdGroupConfig, allocations []domain.SourceAllocation, sources domain.SourceIDMap) []bucket {
	buckets := make([]bucket, 0, len(allocations)+1)
	if !adGroup.B1SourcesGroupEnabled {
		for _, a := range allocations {
			buckets = append(buckets, bucket{budget: a.DailyBudgetCC, price: allocationPrice(adGroup.BiddingType, a)})
		}
		return buckets
	}

	hasRTB := false
	for _, a := range allocations {
		if sources.IsGroupedRTB(a.SourceID) {
			hasRTB = true
			continue
		}
		buckets = append(buckets, bucket{budget: a.DailyBudgetCC, price: allocationPrice(adGroup.BiddingType, a)})
	}
	if hasRTB {
		price := adGroup.B1SourcesGroupCPCCC
		if adGroup.BiddingType == domain.BiddingCPM {
			price = adGroup.B1SourcesGroupCPM
		}
		buckets = append(buckets, bucket{budget: adGroup.B1SourcesGroupDailyBudget, price: price})
	}
	return buckets
}

func allocationPrice(bt domain.BiddingType, a domain.SourceAllocation) decimal.Decimal {
	if bt == domain.BiddingCPM {
		return a.CPMCC
	}
	return a.CPCCC
}

func sumBudgets(buckets []bucket) decimal.Decimal {
	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(b.budget)
	}
	return total
}

// regimeBid is the budget-weighted average price for manual ad groups and
// the ad group's own bid once autopilot owns it.
func regimeBid(adGroup domain.AdGroupConfig, buckets []bucket) decimal.Decimal {
	if adGroup.AutopilotState == domain.AutopilotInactive {
		return weightedAveragePrice(buckets)
	}
	if adGroup.UsesRealtimeAutopilot {
		return adGroup.Bid
	}
	return adGroup.MaxAutopilotBid
}

// weightedAveragePrice is Σ(price·budget)/Σ budget, or 0 when the budgets sum to 0.
func weightedAveragePrice(buckets []bucket) decimal.Decimal {
	weighted := decimal.Zero
	total := decimal.Zero
	for _, b := range buckets {
		weighted = weighted.Add(b.price.Mul(b.budget))
		total = total.Add(b.budget)
	}
	if total.IsZero() {
		return decimal.Zero
	}
	return weighted.Div(total)
}
