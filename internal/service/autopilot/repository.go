package autopilot

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ignite/adgroup-autopilot/internal/budget"
	"github.com/ignite/adgroup-autopilot/internal/domain"
)

// AdGroupRef identifies an ad group and the campaign it belongs to.
type AdGroupRef struct {
	AdGroupID  int64
	CampaignID int64
}

// Inputs is everything the calculator needs for one chunk of ad groups.
type Inputs struct {
	Campaigns   map[int64]domain.CampaignConfig
	AdGroups    []domain.AdGroupConfig
	Allocations map[int64][]domain.SourceAllocation // keyed by ad group ID
	SpendSoFar  map[int64]decimal.Decimal           // today's spend, keyed by ad group ID
}

// Repository defines the data access contract for the nightly job.
// Implementations must be safe for concurrent use.
type Repository interface {
	// ListAdGroupRefs returns every ad group delivering on day, ordered by
	// campaign ID then ad group ID.
	ListAdGroupRefs(ctx context.Context, day time.Time) ([]AdGroupRef, error)

	// FetchInputs loads settings, allocations and today's spend for the
	// given ad groups in a fixed number of queries.
	FetchInputs(ctx context.Context, adGroupIDs []int64, day time.Time) (*Inputs, error)

	// FetchLedgers returns the active budget ledger of each campaign.
	// Campaigns without ledger rows are absent from the map.
	FetchLedgers(ctx context.Context, campaignIDs []int64, day time.Time) (map[int64]domain.CampaignLedger, error)

	// SaveResults upserts the calculated budgets for the given day.
	SaveResults(ctx context.Context, runID string, day time.Time, budgets []domain.AdGroupBudget) error
}

// ChunkRecord is what one chunk produced, as handed to an Archiver.
type ChunkRecord struct {
	RunID     string                   `json:"run_id"`
	Chunk     int                      `json:"chunk"`
	Day       string                   `json:"day"`
	Budgets   []domain.AdGroupBudget   `json:"budgets"`
	Summaries []budget.CampaignSummary `json:"summaries"`
	Warnings  []budget.Warning         `json:"warnings,omitempty"`
	Failed    map[int64]string         `json:"failed,omitempty"`
}

// Archiver keeps a copy of each chunk's output outside the database.
type Archiver interface {
	ArchiveChunk(ctx context.Context, rec ChunkRecord) error
}
