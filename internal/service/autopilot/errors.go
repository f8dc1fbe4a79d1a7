package autopilot

import "errors"

// Sentinel errors for the nightly budget job.
var (
	ErrJobLocked       = errors.New("nightly budget job already running")
	ErrChunkFailed     = errors.New("budget chunk failed")
	ErrMissingCampaign = errors.New("campaign settings missing for ad group")
)
