package autopilot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignite/adgroup-autopilot/internal/budget"
	"github.com/ignite/adgroup-autopilot/internal/domain"
	"github.com/ignite/adgroup-autopilot/internal/pkg/distlock"
	"github.com/ignite/adgroup-autopilot/internal/pkg/logger"
	"github.com/ignite/adgroup-autopilot/internal/pkg/retry"
)

// Config controls the nightly job.
type Config struct {
	ChunkSize    int
	Retry        retry.Policy
	WriteResults bool
	Sources      domain.SourceIDMap
}

// DefaultConfig returns the production chunking and retry settings.
func DefaultConfig() Config {
	return Config{ChunkSize: 2000, Retry: retry.DefaultPolicy(), WriteResults: true}
}

// JobReport summarizes one run.
type JobReport struct {
	RunID                  string        `json:"run_id"`
	Day                    string        `json:"day"`
	Chunks                 int           `json:"chunks"`
	FailedChunks           int           `json:"failed_chunks"`
	AdGroupsProcessed      int           `json:"ad_groups_processed"`
	AdGroupsFailed         int           `json:"ad_groups_failed"`
	CampaignsRedistributed int           `json:"campaigns_redistributed"`
	CampaignsClamped       int           `json:"campaigns_clamped"`
	CampaignsSkipped       int           `json:"campaigns_skipped"`
	Warnings               int           `json:"warnings"`
	Duration               time.Duration `json:"duration"`
}

func (r *JobReport) merge(c chunkReport) {
	r.AdGroupsProcessed += c.processed
	r.AdGroupsFailed += c.failed
	r.CampaignsRedistributed += c.proRata
	r.CampaignsClamped += c.clamped
	r.CampaignsSkipped += c.skipped
	r.Warnings += c.warnings
}

// chunkReport is only merged into the JobReport once its chunk succeeds,
// so retried attempts are not double counted.
type chunkReport struct {
	processed, failed, proRata, clamped, skipped, warnings int
}

// Service implements the nightly budget job. It holds no state between
// runs; all methods are safe for concurrent use if the repository is.
type Service struct {
	repo     Repository
	archiver Archiver
	cfg      Config
	now      func() time.Time
}

// NewService creates a job service backed by the given repository.
func NewService(repo Repository, cfg Config) *Service {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

// SetArchiver enables archiving of every chunk's output.
func (s *Service) SetArchiver(a Archiver) { s.archiver = a }

// RunLocked runs the job only if no other worker holds lock.
func (s *Service) RunLocked(ctx context.Context, lock distlock.DistLock) (*JobReport, error) {
	var report *JobReport
	err := distlock.Run(ctx, lock, func(ctx context.Context) error {
		var err error
		report, err = s.Run(ctx)
		return err
	})
	if errors.Is(err, distlock.ErrNotAcquired) {
		return nil, ErrJobLocked
	}
	return report, err
}

// Run computes and redistributes budgets for every live ad group. A chunk
// that still fails after its retries is reported via ErrChunkFailed but
// does not stop the remaining chunks.
func (s *Service) Run(ctx context.Context) (*JobReport, error) {
	started := s.now()
	day := started.UTC().Truncate(24 * time.Hour)
	report := &JobReport{RunID: uuid.New().String(), Day: day.Format("2006-01-02")}

	refs, err := s.repo.ListAdGroupRefs(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list ad groups: %w", err)
	}
	chunks := Chunk(refs, s.cfg.ChunkSize)
	report.Chunks = len(chunks)
	logger.Info("budget job started", "run_id", report.RunID, "ad_groups", len(refs), "chunks", len(chunks))

	var failed []error
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			failed = append(failed, ctx.Err())
			report.FailedChunks += len(chunks) - i
			break
		}

		var cr chunkReport
		err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
			var err error
			cr, err = s.processChunk(ctx, report.RunID, i, day, chunk)
			return err
		}, func(attempt int, err error, wait time.Duration) {
			logger.Warn("retrying budget chunk", "run_id", report.RunID, "chunk", i, "attempt", attempt, "wait", wait, "error", err)
		})
		if err != nil {
			report.FailedChunks++
			failed = append(failed, fmt.Errorf("chunk %d: %w", i, err))
			logger.Error("budget chunk failed", "run_id", report.RunID, "chunk", i, "ad_groups", len(chunk), "error", err)
			continue
		}
		report.merge(cr)
	}

	report.Duration = s.now().Sub(started)
	logger.Info("budget job finished",
		"run_id", report.RunID,
		"processed", report.AdGroupsProcessed,
		"failed", report.AdGroupsFailed,
		"failed_chunks", report.FailedChunks,
		"duration", report.Duration,
	)
	if len(failed) > 0 {
		return report, fmt.Errorf("%w: %d of %d: %w", ErrChunkFailed, report.FailedChunks, report.Chunks, errors.Join(failed...))
	}
	return report, nil
}

// processChunk is one retryable unit: prefetch, compute, redistribute, store.
func (s *Service) processChunk(ctx context.Context, runID string, index int, day time.Time, chunk []AdGroupRef) (chunkReport, error) {
	var cr chunkReport

	ids := make([]int64, len(chunk))
	for i, ref := range chunk {
		ids[i] = ref.AdGroupID
	}
	in, err := s.repo.FetchInputs(ctx, ids, day)
	if err != nil {
		return cr, fmt.Errorf("fetch inputs: %w", err)
	}

	computed, failures := s.computeAll(in)
	cr.failed = len(failures)

	ledgers, err := s.repo.FetchLedgers(ctx, campaignIDs(computed), day)
	if err != nil {
		return cr, fmt.Errorf("fetch ledgers: %w", err)
	}
	for id, l := range ledgers {
		if c, ok := in.Campaigns[id]; ok {
			l.LocalCurrency = c.LocalCurrency
			ledgers[id] = l
		}
	}

	red := budget.RedistributeAll(computed.budgets, ledgers)
	warnings := append(computed.warnings, red.Warnings...)
	logWarnings(runID, warnings)

	for _, sum := range red.Summaries {
		switch sum.Action {
		case budget.ActionProRata:
			cr.proRata++
		case budget.ActionClampToSpend:
			cr.clamped++
		case budget.ActionSkippedLedger:
			cr.skipped++
		}
	}
	cr.processed = len(red.Budgets)
	cr.warnings = len(warnings)

	if s.cfg.WriteResults {
		if err := s.repo.SaveResults(ctx, runID, day, red.Budgets); err != nil {
			return cr, fmt.Errorf("save results: %w", err)
		}
	}

	if s.archiver != nil {
		rec := ChunkRecord{
			RunID:     runID,
			Chunk:     index,
			Day:       day.Format("2006-01-02"),
			Budgets:   red.Budgets,
			Summaries: red.Summaries,
			Warnings:  warnings,
			Failed:    failures,
		}
		// The database is the source of truth; a lost archive is not worth a retry.
		if err := s.archiver.ArchiveChunk(ctx, rec); err != nil {
			logger.Warn("archive chunk failed", "run_id", runID, "chunk", index, "error", err)
		}
	}
	return cr, nil
}

type computedChunk struct {
	budgets  []domain.AdGroupBudget
	warnings []budget.Warning
}

// computeAll runs the calculator for every ad group in the chunk. Errors
// are isolated per ad group and returned keyed by ad group ID.
func (s *Service) computeAll(in *Inputs) (computedChunk, map[int64]string) {
	var out computedChunk
	failures := make(map[int64]string)

	for _, ag := range in.AdGroups {
		campaign, ok := in.Campaigns[ag.CampaignID]
		if !ok {
			failures[ag.ID] = ErrMissingCampaign.Error()
			logger.Error("ad group skipped", "ad_group_id", ag.ID, "campaign_id", ag.CampaignID, "error", ErrMissingCampaign)
			continue
		}
		res, err := budget.Compute(campaign, ag, in.Allocations[ag.ID], s.cfg.Sources)
		if err != nil {
			failures[ag.ID] = err.Error()
			logger.Error("ad group skipped", "ad_group_id", ag.ID, "campaign_id", ag.CampaignID, "error", err)
			continue
		}
		spend, ok := in.SpendSoFar[ag.ID]
		if !ok {
			spend = decimal.Zero
		}
		out.budgets = append(out.budgets, domain.AdGroupBudget{
			AdGroupID:   ag.ID,
			CampaignID:  ag.CampaignID,
			DailyBudget: res.DailyBudget,
			Bid:         res.Bid,
			SpendSoFar:  spend,
		})
		out.warnings = append(out.warnings, res.Warnings...)
	}
	return out, failures
}

func campaignIDs(c computedChunk) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, b := range c.budgets {
		if !seen[b.CampaignID] {
			seen[b.CampaignID] = true
			ids = append(ids, b.CampaignID)
		}
	}
	return ids
}

func logWarnings(runID string, warnings []budget.Warning) {
	for _, w := range warnings {
		if w.IsError() {
			logger.Error(w.Message, "run_id", runID, "code", w.Code, "ad_group_id", w.AdGroupID, "campaign_id", w.CampaignID)
			continue
		}
		logger.Warn(w.Message, "run_id", runID, "code", w.Code, "ad_group_id", w.AdGroupID, "campaign_id", w.CampaignID)
	}
}

// NextRun returns the next time at or after now when the job should start.
func NextRun(now time.Time, hourUTC int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if next.Before(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
