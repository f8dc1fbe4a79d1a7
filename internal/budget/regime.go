package budget

import "github.com/ignite/adgroup-autopilot/internal/domain"

// Regime is the closed set of rules that can govern an ad group's budget.
// Only this package can add implementations.
type Regime interface {
	regime()
	String() string
}

// SourceDriven sums the source allocations into the daily budget.
type SourceDriven struct{}

// BudgetCapped takes the daily budget from the autopilot daily budget.
type BudgetCapped struct{}

// PlainActive takes both values straight from the ad group settings.
type PlainActive struct{}

func (SourceDriven) regime() {}
func (BudgetCapped) regime() {}
func (PlainActive) regime() {}

func (SourceDriven) String() string { return "source_driven" }
func (BudgetCapped) String() string { return "budget_capped" }
func (PlainActive) String() string { return "plain_active" }

// SelectRegime picks the regime for an ad group. The first match wins.
func SelectRegime(adGroup domain.AdGroupConfig) (Regime, error) {
	switch {
	case adGroup.Autopilot,
		adGroup.AutopilotState == domain.AutopilotInactive,
		adGroup.AutopilotState == domain.AutopilotActiveCPC:
		return SourceDriven{}, nil
	case adGroup.AutopilotState == domain.AutopilotActiveCPCBudget:
		return BudgetCapped{}, nil
	case adGroup.AutopilotState == domain.AutopilotActive:
		return PlainActive{}, nil
	}
	return nil, &UnhandledAutopilotStateError{AdGroupID: adGroup.ID, State: adGroup.AutopilotState}
}
