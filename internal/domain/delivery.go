package domain

// DetailedDeliveryStatus is the fine-grained status shown in UI details.
// Values are stable wire strings; clients depend on them.
type DetailedDeliveryStatus string

const (
	DetailedDisabled DetailedDeliveryStatus = "DISABLED"
	DetailedActive   DetailedDeliveryStatus = "ACTIVE"
	DetailedStopped  DetailedDeliveryStatus = "STOPPED"
	DetailedInactive DetailedDeliveryStatus = "INACTIVE"

	DetailedBudgetOptimization           DetailedDeliveryStatus = "BUDGET_OPTIMIZATION"
	DetailedOptimalBid                   DetailedDeliveryStatus = "OPTIMAL_BID"
	DetailedBudgetOptimizationOptimalBid DetailedDeliveryStatus = "BUDGET_OPTIMIZATION_OPTIMAL_BID"

	// legacy vocabulary
	DetailedAutopilot            DetailedDeliveryStatus = "AUTOPILOT"
	DetailedActivePriceDiscovery DetailedDeliveryStatus = "ACTIVE_PRICE_DISCOVERY"

	DetailedCampaignStopStopped                                   DetailedDeliveryStatus = "CAMPAIGNSTOP_STOPPED"
	DetailedCampaignStopLowBudget                                 DetailedDeliveryStatus = "CAMPAIGNSTOP_LOW_BUDGET"
	DetailedCampaignStopPendingBudgetActive                       DetailedDeliveryStatus = "CAMPAIGNSTOP_PENDING_BUDGET_ACTIVE"
	DetailedCampaignStopPendingBudgetBudgetOptimization           DetailedDeliveryStatus = "CAMPAIGNSTOP_PENDING_BUDGET_BUDGET_OPTIMIZATION"
	DetailedCampaignStopPendingBudgetOptimalBid                   DetailedDeliveryStatus = "CAMPAIGNSTOP_PENDING_BUDGET_OPTIMAL_BID"
	DetailedCampaignStopPendingBudgetBudgetOptimizationOptimalBid DetailedDeliveryStatus = "CAMPAIGNSTOP_PENDING_BUDGET_BUDGET_OPTIMIZATION_OPTIMAL_BID"
	DetailedCampaignStopPendingBudgetAutopilot                    DetailedDeliveryStatus = "CAMPAIGNSTOP_PENDING_BUDGET_AUTOPILOT"
	DetailedCampaignStopPendingBudgetActivePriceDiscovery         DetailedDeliveryStatus = "CAMPAIGNSTOP_PENDING_BUDGET_ACTIVE_PRICE_DISCOVERY"
)

// DeliveryStatus is the coarse rollup used for filtering.
type DeliveryStatus string

const (
	DeliveryDisabled DeliveryStatus = "DISABLED"
	DeliveryActive   DeliveryStatus = "ACTIVE"
	DeliveryStopped  DeliveryStatus = "STOPPED"
	DeliveryInactive DeliveryStatus = "INACTIVE"
)

// EntityLevel identifies which kind of entity a status is resolved for.
type EntityLevel string

const (
	LevelAccount  EntityLevel = "account"
	LevelCampaign EntityLevel = "campaign"
	LevelAdGroup  EntityLevel = "ad_group"
)

// DeliverySettings is the prefetched snapshot the status resolver reads for
// one entity. Flags that do not apply to a level are left false.
type DeliverySettings struct {
	Level      EntityLevel `json:"level"`
	EntityID   int64       `json:"entity_id"`
	CampaignID int64       `json:"campaign_id,omitempty"`

	// Disabled is set when the entity itself or its owning account or
	// agency is archived or disabled.
	Disabled bool `json:"disabled"`

	SettingState EntityState `json:"setting_state"`
	RunningState EntityState `json:"running_state"`

	RealTimeCampaignStop bool `json:"real_time_campaign_stop"`

	// Current vocabulary.
	CampaignBudgetOptimization bool           `json:"campaign_budget_optimization"`
	AutopilotState             AutopilotState `json:"autopilot_state,omitempty"`

	// Legacy vocabulary, read when the agency has not migrated.
	UsesRealtimeAutopilot bool `json:"uses_realtime_autopilot"`
	CampaignAutopilot     bool `json:"campaign_autopilot"`
}

// OptimalBidEnabled reports whether the ad group bid is automated.
func (s DeliverySettings) OptimalBidEnabled() bool {
	return s.Level == LevelAdGroup && s.AutopilotState != "" && s.AutopilotState != AutopilotInactive
}
