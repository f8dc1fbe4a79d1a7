package autopilot

import "sort"

// Chunk splits refs into chunks of at most size ad groups without ever
// splitting a campaign, because redistribution needs all of a campaign's
// ad groups together. A campaign larger than size gets a chunk of its own.
func Chunk(refs []AdGroupRef, size int) [][]AdGroupRef {
	if len(refs) == 0 {
		return nil
	}
	if size <= 0 {
		size = 1
	}

	sorted := make([]AdGroupRef, len(refs))
	copy(sorted, refs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CampaignID < sorted[j].CampaignID })

	var chunks [][]AdGroupRef
	var current []AdGroupRef
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].CampaignID == sorted[start].CampaignID {
			end++
		}
		campaign := sorted[start:end]
		if len(current) > 0 && len(current)+len(campaign) > size {
			chunks = append(chunks, current)
			current = nil
		}
		current = append(current, campaign...)
		start = end
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}
