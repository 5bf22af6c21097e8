package services

import "fare-tracker/models"

// DiffResult is the outcome of reconciling a batch against the history log.
type DiffResult struct {
	// NewEntries are batch observations whose (key, price) pair was never
	// logged, in batch order.
	NewEntries []models.Observation
	// NewLows are batch observations priced strictly below the best price
	// ever logged for their key. Keys with no history are never new lows.
	NewLows []models.PriceDrop
	// Log is history with NewEntries appended.
	Log []models.Observation
}

type keyStats struct {
	bestEver int
	lastSeen int
}

// Diff compares a deduplicated batch with the full history log. history is
// not modified; Log is a fresh slice.
func Diff(batch, history []models.Observation) DiffResult {
	stats := make(map[models.ItineraryKey]keyStats, len(history))
	logged := make(map[models.Observation]struct{}, len(history))

	for _, h := range history {
		s, ok := stats[h.ItineraryKey]
		if !ok {
			s = keyStats{bestEver: h.BestPrice}
		} else if h.BestPrice < s.bestEver {
			s.bestEver = h.BestPrice
		}
		s.lastSeen = h.BestPrice
		stats[h.ItineraryKey] = s
		logged[h] = struct{}{}
	}

	var result DiffResult
	for _, o := range batch {
		if s, ok := stats[o.ItineraryKey]; ok && o.BestPrice < s.bestEver {
			result.NewLows = append(result.NewLows, models.PriceDrop{
				Observation:  o,
				PreviousBest: s.bestEver,
				LastSeen:     s.lastSeen,
			})
		}
		if _, ok := logged[o]; !ok {
			logged[o] = struct{}{}
			result.NewEntries = append(result.NewEntries, o)
		}
	}

	result.Log = make([]models.Observation, 0, len(history)+len(result.NewEntries))
	result.Log = append(result.Log, history...)
	result.Log = append(result.Log, result.NewEntries...)
	return result
}
