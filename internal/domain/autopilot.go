package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AutopilotState selects which automation governs an ad group's bid and budget.
type AutopilotState string

const (
	AutopilotInactive        AutopilotState = "INACTIVE"
	AutopilotActiveCPC       AutopilotState = "ACTIVE_CPC"
	AutopilotActiveCPCBudget AutopilotState = "ACTIVE_CPC_BUDGET"
	AutopilotActive          AutopilotState = "ACTIVE"
)

// BiddingType is the unit an ad group bids in.
type BiddingType string

const (
	BiddingCPC BiddingType = "CPC"
	BiddingCPM BiddingType = "CPM"
)

// EntityState is the configured (or computed running) on/off state.
type EntityState string

const (
	StateActive   EntityState = "ACTIVE"
	StateInactive EntityState = "INACTIVE"
)

// ActivityWindow bounds when an ad group may deliver. A nil EndDate is open-ended.
type ActivityWindow struct {
	StartDate time.Time
	EndDate   *time.Time
	State     EntityState
}

// RunningState reports whether the window is delivering on the given day.
// Only the calendar date of each bound is compared.
func (w ActivityWindow) RunningState(today time.Time) EntityState {
	if w.State != StateActive {
		return StateInactive
	}
	day := truncateDay(today)
	if day.Before(truncateDay(w.StartDate)) {
		return StateInactive
	}
	if w.EndDate != nil && day.After(truncateDay(*w.EndDate)) {
		return StateInactive
	}
	return StateActive
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CampaignConfig is the campaign-level snapshot the calculator needs.
type CampaignConfig struct {
	ID            int64 `json:"id" db:"id"`
	AccountID     int64 `json:"account_id" db:"account_id"`
	LocalCurrency bool  `json:"local_currency" db:"local_currency"`
}

// AdGroupConfig is an immutable snapshot of one ad group's bidding settings.
type AdGroupConfig struct {
	ID                        int64               `json:"id" db:"id"`
	CampaignID                int64               `json:"campaign_id" db:"campaign_id"`
	Autopilot                 bool                `json:"autopilot" db:"autopilot"`
	AutopilotState            AutopilotState      `json:"autopilot_state" db:"autopilot_state"`
	Bid                       decimal.Decimal     `json:"bid" db:"bid"`
	MaxAutopilotBid           decimal.Decimal     `json:"max_autopilot_bid" db:"max_autopilot_bid"`
	DailyBudget               decimal.NullDecimal `json:"daily_budget" db:"daily_budget"`
	AutopilotDailyBudget      decimal.Decimal     `json:"autopilot_daily_budget" db:"autopilot_daily_budget"`
	B1SourcesGroupEnabled     bool                `json:"b1_sources_group_enabled" db:"b1_sources_group_enabled"`
	B1SourcesGroupDailyBudget decimal.Decimal     `json:"b1_sources_group_daily_budget" db:"b1_sources_group_daily_budget"`
	B1SourcesGroupCPCCC       decimal.Decimal     `json:"b1_sources_group_cpc_cc" db:"b1_sources_group_cpc_cc"`
	B1SourcesGroupCPM         decimal.Decimal     `json:"b1_sources_group_cpm" db:"b1_sources_group_cpm"`
	BiddingType               BiddingType         `json:"bidding_type" db:"bidding_type"`
	UsesRealtimeAutopilot     bool                `json:"uses_realtime_autopilot" db:"uses_realtime_autopilot"`
	Window                    ActivityWindow      `json:"-"`
}

// SourceAllocation is one media source's share of an ad group.
type SourceAllocation struct {
	SourceID      int64           `json:"source_id" db:"source_id"`
	DailyBudgetCC decimal.Decimal `json:"daily_budget_cc" db:"daily_budget_cc"`
	CPCCC         decimal.Decimal `json:"cpc_cc" db:"cpc_cc"`
	CPMCC         decimal.Decimal `json:"cpm_cc" db:"cpm_cc"`
}

// SourceIDMap names the sources that keep their own bucket when the
// RTB sources are grouped.
type SourceIDMap struct {
	Outbrain int64
	Yahoo    int64
}

// IsGroupedRTB reports whether a source falls into the aggregate RTB bucket.
func (m SourceIDMap) IsGroupedRTB(sourceID int64) bool {
	return sourceID != m.Outbrain && sourceID != m.Yahoo
}
