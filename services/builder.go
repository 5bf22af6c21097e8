package services

import (
	"fare-tracker/models"
	"fare-tracker/utils"
)

// Builder turns raw listing rows into observations tagged with their query.
type Builder struct {
	logger  *utils.Logger
	metrics *Metrics
}

// NewBuilder creates a Builder. metrics may be nil.
func NewBuilder(logger *utils.Logger, metrics *Metrics) *Builder {
	return &Builder{logger: logger, metrics: metrics}
}

// Build emits one observation per row that has a price and a readable
// duration. Rows sharing an itinerary key are left for Deduplicate.
func (b *Builder) Build(q models.Query, rows []models.RawRow) []models.Observation {
	result := make([]models.Observation, 0, len(rows))

	for _, r := range rows {
		if len(r.Prices) == 0 {
			b.logger.Debug("[builder] Dropping %s %s→%s with no fare", q, r.DepartTime, r.ArriveTime)
			b.metrics.IncDropped("no_price")
			continue
		}

		duration, err := NormalizeDuration(r.DurationRaw)
		if err != nil {
			b.logger.Warn("[builder] Dropping %s %s→%s: %v", q, r.DepartTime, r.ArriveTime, err)
			b.metrics.IncDropped("bad_duration")
			continue
		}

		result = append(result, models.Observation{
			ItineraryKey: models.ItineraryKey{
				Date:       q.Date,
				DepartCity: q.Departure,
				ArriveCity: q.Arrival,
				DepartTime: r.DepartTime,
				ArriveTime: r.ArriveTime,
				Duration:   duration,
			},
			BestPrice: minPrice(r.Prices),
		})
	}

	if dropped := len(rows) - len(result); dropped > 0 {
		b.logger.Info("[builder] %s: built %d → %d observations (dropped %d)",
			q, len(rows), len(result), dropped)
	}
	return result
}

func minPrice(prices []int) int {
	best := prices[0]
	for _, p := range prices[1:] {
		if p < best {
			best = p
		}
	}
	return best
}
