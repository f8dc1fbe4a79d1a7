package domain

import "github.com/shopspring/decimal"

// LedgerRow is one budget line item of a campaign with its spend aggregates.
type LedgerRow struct {
	Amount                  decimal.Decimal `json:"amount" db:"amount"`
	FreedCC                 decimal.Decimal `json:"freed_cc" db:"freed_cc"`
	SpendEtfmTotalNano      int64           `json:"spend_etfm_total_nano" db:"spend_etfm_total_nano"`
	SpendLocalEtfmTotalNano int64           `json:"spend_local_etfm_total_nano" db:"spend_local_etfm_total_nano"`
}

// Spend converts the nano spend aggregate to currency units.
func (r LedgerRow) Spend(local bool) decimal.Decimal {
	if local {
		return decimal.New(r.SpendLocalEtfmTotalNano, -9)
	}
	return decimal.New(r.SpendEtfmTotalNano, -9)
}

// CampaignLedger groups a campaign's ledger rows.
type CampaignLedger struct {
	CampaignID    int64
	LocalCurrency bool
	Rows          []LedgerRow
}

// AdGroupBudget is a computed per-ad-group budget and bid together with
// what the ad group has already spent today.
type AdGroupBudget struct {
	AdGroupID   int64           `json:"ad_group_id"`
	CampaignID  int64           `json:"campaign_id"`
	DailyBudget decimal.Decimal `json:"calculated_daily_budget"`
	Bid         decimal.Decimal `json:"calculated_bid"`
	SpendSoFar  decimal.Decimal `json:"spend_so_far"`
}

// CampaignStopState is the externally computed real-time spend gate.
type CampaignStopState struct {
	AllowedToRun         bool `json:"allowed_to_run"`
	PendingBudgetUpdates bool `json:"pending_budget_updates"`
	AlmostDepleted       bool `json:"almost_depleted"`
}
