package services

import "fare-tracker/models"

// Deduplicate collapses observations sharing an itinerary key to the one
// with the lowest price. Output keeps the order in which keys were first
// seen, so deduplicating an already deduplicated batch changes nothing.
func Deduplicate(obs []models.Observation) []models.Observation {
	index := make(map[models.ItineraryKey]int, len(obs))
	result := make([]models.Observation, 0, len(obs))

	for _, o := range obs {
		i, seen := index[o.ItineraryKey]
		if !seen {
			index[o.ItineraryKey] = len(result)
			result = append(result, o)
			continue
		}
		if o.BestPrice < result[i].BestPrice {
			result[i].BestPrice = o.BestPrice
		}
	}
	return result
}
