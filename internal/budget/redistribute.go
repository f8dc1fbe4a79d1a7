package budget

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ignite/adgroup-autopilot/internal/domain"
)

// Action is what redistribution did to a campaign's ad groups.
type Action string

const (
	ActionNone          Action = "none"
	ActionProRata       Action = "pro_rata"
	ActionClampToSpend  Action = "clamp_to_spend"
	ActionSkippedLedger Action = "skipped_missing_ledger"
)

// CampaignSummary describes the ledger arithmetic behind one campaign's outcome.
type CampaignSummary struct {
	CampaignID int64           `json:"campaign_id"`
	FullBudget decimal.Decimal `json:"full_budget"`
	Freed      decimal.Decimal `json:"freed"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Configured decimal.Decimal `json:"configured"`
	Action     Action          `json:"action"`
}

// Redistribution is the outcome of redistributing one or more campaigns.
type Redistribution struct {
	Budgets   []domain.AdGroupBudget `json:"budgets"`
	Summaries []CampaignSummary      `json:"summaries"`
	Warnings  []Warning              `json:"warnings,omitempty"`
}

// Redistribute shrinks one campaign's ad group budgets to what its ledger
// can still fund. The input slice is not modified.
//
//   - remaining >= configured: budgets unchanged
//   - 0 < remaining < configured: ceil(spend_so_far) + trunc(remaining·share)
//   - remaining <= 0: budget is ceil(spend_so_far)
//
// Spend is rounded up and shares truncated at cc precision.
func Redistribute(budgets []domain.AdGroupBudget, ledger domain.CampaignLedger) Redistribution {
	out := make([]domain.AdGroupBudget, len(budgets))
	copy(out, budgets)

	summary := summarize(ledger)
	for _, b := range out {
		summary.Configured = summary.Configured.Add(b.DailyBudget)
	}

	switch {
	case summary.Remaining.GreaterThanOrEqual(summary.Configured):
		summary.Action = ActionNone
	case summary.Remaining.IsPositive():
		if summary.Configured.IsZero() {
			summary.Action = ActionNone
			break
		}
		summary.Action = ActionProRata
		for i := range out {
			share := summary.Remaining.Mul(out[i].DailyBudget).Div(summary.Configured)
			out[i].DailyBudget = spendCC(out[i].SpendSoFar).Add(share.Truncate(ccPlaces))
		}
	default:
		summary.Action = ActionClampToSpend
		for i := range out {
			out[i].DailyBudget = spendCC(out[i].SpendSoFar)
		}
	}

	return Redistribution{Budgets: out, Summaries: []CampaignSummary{summary}}
}

// spendCC rounds nano-precision spend up to whole cc so a budget built on it
// never falls below what the ad group already spent.
func spendCC(spend decimal.Decimal) decimal.Decimal {
	return spend.RoundCeil(ccPlaces)
}

func summarize(ledger domain.CampaignLedger) CampaignSummary {
	s := CampaignSummary{
		CampaignID: ledger.CampaignID,
		FullBudget: decimal.Zero,
		Freed:      decimal.Zero,
		Spent:      decimal.Zero,
		Configured: decimal.Zero,
	}
	for _, row := range ledger.Rows {
		s.FullBudget = s.FullBudget.Add(row.Amount)
		s.Freed = s.Freed.Add(row.FreedCC)
		s.Spent = s.Spent.Add(row.Spend(ledger.LocalCurrency))
	}
	s.Remaining = s.FullBudget.Sub(s.Spent)
	return s
}

// RedistributeAll groups budgets by campaign and redistributes each campaign
// against its ledger. Campaigns with no ledger rows keep their budgets and
// produce a WarnMissingLedger warning. Output follows campaign ID order,
// then input order within a campaign.
func RedistributeAll(budgets []domain.AdGroupBudget, ledgers map[int64]domain.CampaignLedger) Redistribution {
	byCampaign := make(map[int64][]domain.AdGroupBudget)
	for _, b := range budgets {
		byCampaign[b.CampaignID] = append(byCampaign[b.CampaignID], b)
	}
	campaignIDs := make([]int64, 0, len(byCampaign))
	for id := range byCampaign {
		campaignIDs = append(campaignIDs, id)
	}
	sort.Slice(campaignIDs, func(i, j int) bool { return campaignIDs[i] < campaignIDs[j] })

	var all Redistribution
	all.Budgets = make([]domain.AdGroupBudget, 0, len(budgets))
	for _, id := range campaignIDs {
		group := byCampaign[id]
		ledger, ok := ledgers[id]
		if !ok || len(ledger.Rows) == 0 {
			all.Budgets = append(all.Budgets, group...)
			all.Summaries = append(all.Summaries, CampaignSummary{CampaignID: id, Action: ActionSkippedLedger})
			all.Warnings = append(all.Warnings, Warning{
				Code:       WarnMissingLedger,
				CampaignID: id,
				Message:    fmt.Sprintf("no budget ledger rows for campaign %d, %d ad groups left unmodified", id, len(group)),
			})
			continue
		}
		r := Redistribute(group, ledger)
		all.Budgets = append(all.Budgets, r.Budgets...)
		all.Summaries = append(all.Summaries, r.Summaries...)
		all.Warnings = append(all.Warnings, r.Warnings...)
	}
	return all
}
