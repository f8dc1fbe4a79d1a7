package status

import (
	"context"
	"time"

	"github.com/ignite/adgroup-autopilot/internal/domain"
)

// AdGroupRow is an ad group's delivery settings before its running state is
// known. The service derives RunningState from Window.
type AdGroupRow struct {
	Settings domain.DeliverySettings
	Window   domain.ActivityWindow
}

// Repository loads delivery settings in batches.
type Repository interface {
	// AdGroupRows returns every ad group of the given campaigns.
	AdGroupRows(ctx context.Context, campaignIDs []int64) ([]AdGroupRow, error)

	// CampaignSettings returns campaign settings with RunningState set to
	// ACTIVE when any of the campaign's ad groups runs on day.
	CampaignSettings(ctx context.Context, campaignIDs []int64, day time.Time) ([]domain.DeliverySettings, error)

	// AccountSettings returns account settings with RunningState set to
	// ACTIVE when any of the account's campaigns runs on day.
	AccountSettings(ctx context.Context, accountIDs []int64, day time.Time) ([]domain.DeliverySettings, error)
}
