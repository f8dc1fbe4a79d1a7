package autopilot_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/adgroup-autopilot/internal/service/autopilot"
)

func refs(campaignID int64, adGroupIDs ...int64) []autopilot.AdGroupRef {
	out := make([]autopilot.AdGroupRef, len(adGroupIDs))
	for i, id := range adGroupIDs {
		out[i] = autopilot.AdGroupRef{AdGroupID: id, CampaignID: campaignID}
	}
	return out
}

func campaignsOf(chunk []autopilot.AdGroupRef) []int64 {
	var ids []int64
	for _, r := range chunk {
		if len(ids) == 0 || ids[len(ids)-1] != r.CampaignID {
			ids = append(ids, r.CampaignID)
		}
	}
	return ids
}

func TestChunk_Empty(t *testing.T) {
	assert.Nil(t, autopilot.Chunk(nil, 10))
}

func TestChunk_PacksWholeCampaigns(t *testing.T) {
	var in []autopilot.AdGroupRef
	in = append(in, refs(3, 31, 32, 33, 34)...)
	in = append(in, refs(1, 11, 12, 13)...)
	in = append(in, refs(2, 21, 22)...)

	chunks := autopilot.Chunk(in, 5)

	require.Len(t, chunks, 2)
	assert.Equal(t, []int64{1, 2}, campaignsOf(chunks[0]))
	assert.Len(t, chunks[0], 5)
	assert.Equal(t, []int64{3}, campaignsOf(chunks[1]))
	assert.Len(t, chunks[1], 4)
}

func TestChunk_OversizedCampaignGetsOwnChunk(t *testing.T) {
	var in []autopilot.AdGroupRef
	in = append(in, refs(1, 11, 12, 13)...)
	in = append(in, refs(2, 21, 22)...)

	chunks := autopilot.Chunk(in, 2)

	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 3)
	assert.Equal(t, []int64{1}, campaignsOf(chunks[0]))
	assert.Equal(t, []int64{2}, campaignsOf(chunks[1]))
}

func TestChunk_CoversEveryRefOnce(t *testing.T) {
	var in []autopilot.AdGroupRef
	for c := int64(1); c <= 20; c++ {
		for a := int64(0); a < c%4+1; a++ {
			in = append(in, autopilot.AdGroupRef{AdGroupID: c*100 + a, CampaignID: c})
		}
	}

	seen := make(map[int64]int)
	campaignChunk := make(map[int64]int)
	for i, chunk := range autopilot.Chunk(in, 7) {
		assert.LessOrEqual(t, len(chunk), 7)
		for _, r := range chunk {
			seen[r.AdGroupID]++
			if prev, ok := campaignChunk[r.CampaignID]; ok {
				assert.Equal(t, prev, i, "campaign %d split across chunks", r.CampaignID)
			}
			campaignChunk[r.CampaignID] = i
		}
	}
	assert.Len(t, seen, len(in))
	for id, n := range seen {
		assert.Equal(t, 1, n, "ad group %d", id)
	}
}

func TestNextRun(t *testing.T) {
	at := func(h, m int, day int) time.Time { return time.Date(2026, 10, day, h, m, 0, 0, time.UTC) }

	assert.Equal(t, at(2, 0, 18), autopilot.NextRun(at(1, 30, 18), 2))
	assert.Equal(t, at(2, 0, 18), autopilot.NextRun(at(2, 0, 18), 2))
	assert.Equal(t, at(2, 0, 19), autopilot.NextRun(at(3, 0, 18), 2))
}
