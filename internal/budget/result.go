package budget

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// WarningCode classifies a recoverable condition found during a computation.
type WarningCode string

const (
	WarnNullDailyBudget WarningCode = "null_daily_budget"
	WarnNegativeClamped WarningCode = "negative_clamped"
	WarnMissingLedger   WarningCode = "missing_ledger"
)

// Warning is a recoverable condition. Severity follows the code:
// a null daily budget is reported as an error by callers, the rest as warnings.
type Warning struct {
	Code       WarningCode `json:"code"`
	AdGroupID  int64       `json:"ad_group_id,omitempty"`
	CampaignID int64       `json:"campaign_id,omitempty"`
	Message    string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// IsError reports whether callers should surface the warning at error level.
func (w Warning) IsError() bool {
	return w.Code == WarnNullDailyBudget
}

// Result is the calculated daily budget and bid for one ad group.
type Result struct {
	DailyBudget decimal.Decimal `json:"calculated_daily_budget"`
	Bid         decimal.Decimal `json:"calculated_bid"`
	Warnings    []Warning       `json:"warnings,omitempty"`
}

// ccPlaces is the number of decimal places in a cc amount.
const ccPlaces = 4
