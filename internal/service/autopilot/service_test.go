package autopilot_test

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/adgroup-autopilot/internal/budget"
	"github.com/ignite/adgroup-autopilot/internal/domain"
	"github.com/ignite/adgroup-autopilot/internal/pkg/distlock"
	"github.com/ignite/adgroup-autopilot/internal/pkg/logger"
	"github.com/ignite/adgroup-autopilot/internal/pkg/retry"
	"github.com/ignite/adgroup-autopilot/internal/service/autopilot"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// memRepo is an in-memory autopilot repository for unit testing.
type memRepo struct {
	mu          sync.Mutex
	campaigns   map[int64]domain.CampaignConfig
	adGroups    []domain.AdGroupConfig
	allocations map[int64][]domain.SourceAllocation
	spend       map[int64]decimal.Decimal
	ledgers     map[int64]domain.CampaignLedger

	failCampaign map[int64]int // campaign ID -> remaining FetchInputs failures, -1 forever
	saved        map[int64]domain.AdGroupBudget
	saveCalls    int
	listedDay    time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		campaigns:    make(map[int64]domain.CampaignConfig),
		allocations:  make(map[int64][]domain.SourceAllocation),
		spend:        make(map[int64]decimal.Decimal),
		ledgers:      make(map[int64]domain.CampaignLedger),
		failCampaign: make(map[int64]int),
		saved:        make(map[int64]domain.AdGroupBudget),
	}
}

func (m *memRepo) ListAdGroupRefs(_ context.Context, day time.Time) ([]autopilot.AdGroupRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listedDay = day
	out := make([]autopilot.AdGroupRef, len(m.adGroups))
	for i, ag := range m.adGroups {
		out[i] = autopilot.AdGroupRef{AdGroupID: ag.ID, CampaignID: ag.CampaignID}
	}
	return out, nil
}

func (m *memRepo) FetchInputs(_ context.Context, ids []int64, _ time.Time) (*autopilot.Inputs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	in := &autopilot.Inputs{
		Campaigns:   make(map[int64]domain.CampaignConfig),
		Allocations: make(map[int64][]domain.SourceAllocation),
		SpendSoFar:  make(map[int64]decimal.Decimal),
	}
	for _, ag := range m.adGroups {
		if !want[ag.ID] {
			continue
		}
		if n := m.failCampaign[ag.CampaignID]; n != 0 {
			if n > 0 {
				m.failCampaign[ag.CampaignID] = n - 1
			}
			return nil, errors.New("connection reset")
		}
		in.AdGroups = append(in.AdGroups, ag)
		if c, ok := m.campaigns[ag.CampaignID]; ok {
			in.Campaigns[c.ID] = c
		}
		if a, ok := m.allocations[ag.ID]; ok {
			in.Allocations[ag.ID] = a
		}
		if s, ok := m.spend[ag.ID]; ok {
			in.SpendSoFar[ag.ID] = s
		}
	}
	return in, nil
}

func (m *memRepo) FetchLedgers(_ context.Context, campaignIDs []int64, _ time.Time) (map[int64]domain.CampaignLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]domain.CampaignLedger)
	for _, id := range campaignIDs {
		if l, ok := m.ledgers[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func (m *memRepo) SaveResults(_ context.Context, _ string, _ time.Time, budgets []domain.AdGroupBudget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	for _, b := range budgets {
		m.saved[b.AdGroupID] = b
	}
	return nil
}

type memArchiver struct {
	records []autopilot.ChunkRecord
	err     error
}

func (a *memArchiver) ArchiveChunk(_ context.Context, rec autopilot.ChunkRecord) error {
	a.records = append(a.records, rec)
	return a.err
}

func activeAdGroup(id, campaignID int64, dailyBudget, bid string) domain.AdGroupConfig {
	return domain.AdGroupConfig{
		ID:             id,
		CampaignID:     campaignID,
		AutopilotState: domain.AutopilotActive,
		DailyBudget:    decimal.NewNullDecimal(d(dailyBudget)),
		Bid:            d(bid),
		BiddingType:    domain.BiddingCPC,
	}
}

// seed builds two campaigns: 10 has a ledger with 50 left against 100
// configured, 20 has no ledger and one ad group in an unknown state.
func seed() *memRepo {
	repo := newMemRepo()
	repo.campaigns[10] = domain.CampaignConfig{ID: 10, AccountID: 1}
	repo.campaigns[20] = domain.CampaignConfig{ID: 20, AccountID: 1}

	repo.adGroups = append(repo.adGroups,
		activeAdGroup(1, 10, "30", "0.5"),
		activeAdGroup(2, 10, "70", "0.5"),
		domain.AdGroupConfig{ID: 3, CampaignID: 20, AutopilotState: domain.AutopilotInactive, BiddingType: domain.BiddingCPC},
		domain.AdGroupConfig{ID: 4, CampaignID: 20, AutopilotState: "PAUSED", BiddingType: domain.BiddingCPC},
	)
	repo.allocations[3] = []domain.SourceAllocation{
		{SourceID: 5, DailyBudgetCC: d("30"), CPCCC: d("0.2")},
		{SourceID: 6, DailyBudgetCC: d("70"), CPCCC: d("0.4")},
	}
	repo.ledgers[10] = domain.CampaignLedger{
		CampaignID: 10,
		Rows: []domain.LedgerRow{{
			Amount:             d("1000"),
			FreedCC:            decimal.Zero,
			SpendEtfmTotalNano: d("950").Shift(9).IntPart(),
		}},
	}
	return repo
}

func fastConfig(chunkSize int) autopilot.Config {
	return autopilot.Config{
		ChunkSize:    chunkSize,
		Retry:        retry.Policy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		WriteResults: true,
	}
}

func TestRun_ComputesAndRedistributes(t *testing.T) {
	repo := seed()
	svc := autopilot.NewService(repo, fastConfig(100))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Chunks)
	assert.Equal(t, 3, report.AdGroupsProcessed)
	assert.Equal(t, 1, report.AdGroupsFailed)
	assert.Equal(t, 1, report.CampaignsRedistributed)
	assert.Equal(t, 1, report.CampaignsSkipped)

	require.Len(t, repo.saved, 3)
	assert.True(t, d("15").Equal(repo.saved[1].DailyBudget), repo.saved[1].DailyBudget.String())
	assert.True(t, d("35").Equal(repo.saved[2].DailyBudget), repo.saved[2].DailyBudget.String())

	// No ledger: the calculator output is kept.
	assert.True(t, d("100").Equal(repo.saved[3].DailyBudget), repo.saved[3].DailyBudget.String())
	assert.True(t, d("0.34").Equal(repo.saved[3].Bid), repo.saved[3].Bid.String())

	_, failed := repo.saved[4]
	assert.False(t, failed)
}

func TestRun_DryRunDoesNotSave(t *testing.T) {
	repo := seed()
	cfg := fastConfig(100)
	cfg.WriteResults = false
	arch := &memArchiver{}
	svc := autopilot.NewService(repo, cfg)
	svc.SetArchiver(arch)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, repo.saveCalls)
	require.Len(t, arch.records, 1)
	rec := arch.records[0]
	assert.Len(t, rec.Budgets, 3)
	assert.Contains(t, rec.Failed, int64(4))
	assert.Len(t, rec.Summaries, 2)

	var codes []budget.WarningCode
	for _, w := range rec.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, budget.WarnMissingLedger)
}

func TestRun_ArchiveFailureDoesNotFailChunk(t *testing.T) {
	repo := seed()
	svc := autopilot.NewService(repo, fastConfig(100))
	svc.SetArchiver(&memArchiver{err: errors.New("s3 unavailable")})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.FailedChunks)
	assert.Len(t, repo.saved, 3)
}

func TestRun_RetriesTransientChunkFailure(t *testing.T) {
	repo := seed()
	repo.failCampaign[10] = 2
	svc := autopilot.NewService(repo, fastConfig(2))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Chunks)
	assert.Zero(t, report.FailedChunks)
	assert.Equal(t, 3, report.AdGroupsProcessed)
}

func TestRun_FailedChunkDoesNotStopOthers(t *testing.T) {
	repo := seed()
	repo.failCampaign[10] = -1
	svc := autopilot.NewService(repo, fastConfig(2))

	report, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, autopilot.ErrChunkFailed)

	require.NotNil(t, report)
	assert.Equal(t, 1, report.FailedChunks)
	assert.Equal(t, 1, report.AdGroupsProcessed)
	assert.Contains(t, repo.saved, int64(3))
	assert.NotContains(t, repo.saved, int64(1))
}

func TestRun_NoAdGroups(t *testing.T) {
	svc := autopilot.NewService(newMemRepo(), fastConfig(100))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Chunks)
	assert.Zero(t, report.AdGroupsProcessed)
}

type stubLock struct {
	acquired bool
	released bool
}

func (l *stubLock) Acquire(context.Context) (bool, error) { return l.acquired, nil }
func (l *stubLock) Release(context.Context) error { l.released = true; return nil }

var _ distlock.DistLock = (*stubLock)(nil)

func TestRunLocked(t *testing.T) {
	t.Run("held elsewhere", func(t *testing.T) {
		repo := seed()
		svc := autopilot.NewService(repo, fastConfig(100))

		report, err := svc.RunLocked(context.Background(), &stubLock{acquired: false})
		assert.ErrorIs(t, err, autopilot.ErrJobLocked)
		assert.Nil(t, report)
		assert.Zero(t, repo.saveCalls)
	})

	t.Run("acquired", func(t *testing.T) {
		lock := &stubLock{acquired: true}
		svc := autopilot.NewService(seed(), fastConfig(100))

		report, err := svc.RunLocked(context.Background(), lock)
		require.NoError(t, err)
		assert.Equal(t, 3, report.AdGroupsProcessed)
		assert.True(t, lock.released)
	})
}

func TestRun_ListsAdGroupsForRunDay(t *testing.T) {
	repo := seed()
	svc := autopilot.NewService(repo, fastConfig(100))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, time.UTC, repo.listedDay.Location())
	assert.Equal(t, report.Day, repo.listedDay.Format("2006-01-02"))
	assert.True(t, repo.listedDay.Equal(repo.listedDay.Truncate(24*time.Hour)), "day is midnight UTC")
}
