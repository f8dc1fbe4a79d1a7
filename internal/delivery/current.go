package delivery

import "github.com/ignite/adgroup-autopilot/internal/domain"

// CurrentResolver resolves statuses for agencies on realtime autopilot.
type CurrentResolver struct{}

// currentModes is keyed by {budget optimization, optimal bid}.
var currentModes = map[[2]bool]mode{
	{false, false}: {domain.DetailedActive, domain.DetailedCampaignStopPendingBudgetActive},
	{true, false}:  {domain.DetailedBudgetOptimization, domain.DetailedCampaignStopPendingBudgetBudgetOptimization},
	{false, true}:  {domain.DetailedOptimalBid, domain.DetailedCampaignStopPendingBudgetOptimalBid},
	{true, true}:   {domain.DetailedBudgetOptimizationOptimalBid, domain.DetailedCampaignStopPendingBudgetBudgetOptimizationOptimalBid},
}

// Resolve implements StatusResolver.
func (CurrentResolver) Resolve(s domain.DeliverySettings, stop *domain.CampaignStopState) domain.DetailedDeliveryStatus {
	if status, ok := resolveActivity(s); ok {
		return status
	}
	m := currentModes[[2]bool{budgetFlag(s, s.CampaignBudgetOptimization), s.OptimalBidEnabled()}]
	return applyCampaignStop(s, stop, m)
}
