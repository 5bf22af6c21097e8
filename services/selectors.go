package services

// Layout A: the legacy fare table, one row per flight.
const (
	layoutARowSelector       = ".bugTableRow"
	layoutATimeSelector      = ".time"
	layoutAIndicatorSelector = ".indicator"
	layoutAPriceSelector     = ".product_price"
	layoutADurationSelector  = ".duration"
)

// Layout B: the "select detail" list rendered by the newer booking flow.
const (
	layoutBRowSelector            = "li.air-booking-select-detail"
	layoutBTimeSelector           = ".time--value"
	layoutBFareSelector           = ".fare-button--value-total"
	layoutBStopsDurationSelector  = ".flight-stops--duration-time"
	layoutBHybridDurationSelector = ".flight-stops-hybrid--duration-time"
)
