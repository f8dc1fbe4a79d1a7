package status

import "errors"

// Sentinel errors for the delivery status service.
var (
	ErrUnmappedStatus          = errors.New("detailed status has no coarse mapping")
	ErrCampaignStopUnavailable = errors.New("campaign stop state unavailable")
)
