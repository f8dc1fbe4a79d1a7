package delivery

import "github.com/ignite/adgroup-autopilot/internal/domain"

var coarse = map[domain.DetailedDeliveryStatus]domain.DeliveryStatus{
	domain.DetailedDisabled: domain.DeliveryDisabled,
	domain.DetailedStopped:  domain.DeliveryStopped,
	domain.DetailedInactive: domain.DeliveryInactive,

	domain.DetailedActive:                       domain.DeliveryActive,
	domain.DetailedBudgetOptimization:           domain.DeliveryActive,
	domain.DetailedOptimalBid:                   domain.DeliveryActive,
	domain.DetailedBudgetOptimizationOptimalBid: domain.DeliveryActive,
	domain.DetailedAutopilot:                    domain.DeliveryActive,
	domain.DetailedActivePriceDiscovery:         domain.DeliveryActive,

	domain.DetailedCampaignStopStopped:                                   domain.DeliveryActive,
	domain.DetailedCampaignStopLowBudget:                                 domain.DeliveryActive,
	domain.DetailedCampaignStopPendingBudgetActive:                       domain.DeliveryActive,
	domain.DetailedCampaignStopPendingBudgetBudgetOptimization:           domain.DeliveryActive,
	domain.DetailedCampaignStopPendingBudgetOptimalBid:                   domain.DeliveryActive,
	domain.DetailedCampaignStopPendingBudgetBudgetOptimizationOptimalBid: domain.DeliveryActive,
	domain.DetailedCampaignStopPendingBudgetAutopilot:                    domain.DeliveryActive,
	domain.DetailedCampaignStopPendingBudgetActivePriceDiscovery:         domain.DeliveryActive,
}

// MapToCoarse rolls a detailed status up to its coarse status. ok is false
// only for strings outside the DetailedDeliveryStatus enum.
func MapToCoarse(detailed domain.DetailedDeliveryStatus) (status domain.DeliveryStatus, ok bool) {
	status, ok = coarse[detailed]
	return status, ok
}

// AllDetailedStatuses lists every DetailedDeliveryStatus value.
func AllDetailedStatuses() []domain.DetailedDeliveryStatus {
	return []domain.DetailedDeliveryStatus{
		domain.DetailedDisabled,
		domain.DetailedActive,
		domain.DetailedStopped,
		domain.DetailedInactive,
		domain.DetailedBudgetOptimization,
		domain.DetailedOptimalBid,
		domain.DetailedBudgetOptimizationOptimalBid,
		domain.DetailedAutopilot,
		domain.DetailedActivePriceDiscovery,
		domain.DetailedCampaignStopStopped,
		domain.DetailedCampaignStopLowBudget,
		domain.DetailedCampaignStopPendingBudgetActive,
		domain.DetailedCampaignStopPendingBudgetBudgetOptimization,
		domain.DetailedCampaignStopPendingBudgetOptimalBid,
		domain.DetailedCampaignStopPendingBudgetBudgetOptimizationOptimalBid,
		domain.DetailedCampaignStopPendingBudgetAutopilot,
		domain.DetailedCampaignStopPendingBudgetActivePriceDiscovery,
	}
}
