package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"fare-tracker/models"
)

// Layout is one results-page schema the site is known to render. Extract
// returns every usable row it finds, or nothing if the page is not in this
// schema.
type Layout interface {
	Name() string
	Extract(doc *goquery.Document) []models.RawRow
}

// DefaultLayouts lists the supported schemas in probing order.
func DefaultLayouts() []Layout {
	return []Layout{LayoutA{}, LayoutB{}}
}

// clockRegexp finds "6:05AM", "6:05 pm", "6:05 P.M." and similar.
var clockRegexp = regexp.MustCompile(`(?i)(\d{1,2}:\d{2})\s*([ap])(?:\.?\s*m\.?|\b)`)

// priceRegexp captures the amount after any leading currency symbol.
var priceRegexp = regexp.MustCompile(`^\D*?(\d[\d,]*)`)

// LayoutA reads the fare table where each row carries separate time and
// AM/PM indicator elements plus one price element per fare class.
type LayoutA struct{}

func (LayoutA) Name() string { return "fare-table" }

func (LayoutA) Extract(doc *goquery.Document) []models.RawRow {
	var rows []models.RawRow
	doc.Find(layoutARowSelector).Each(func(_ int, row *goquery.Selection) {
		times := row.Find(layoutATimeSelector)
		indicators := row.Find(layoutAIndicatorSelector)
		if times.Length() < 2 || indicators.Length() < 2 {
			return
		}

		depart, ok := clockTime(text(times.Eq(0)) + " " + text(indicators.Eq(0)))
		if !ok {
			return
		}
		arrive, ok := clockTime(text(times.Eq(1)) + " " + text(indicators.Eq(1)))
		if !ok {
			return
		}

		prices := parsePrices(row.Find(layoutAPriceSelector))
		if len(prices) == 0 {
			return
		}

		rows = append(rows, models.RawRow{
			DepartTime:  depart,
			ArriveTime:  arrive,
			DurationRaw: text(row.Find(layoutADurationSelector).First()),
			Prices:      prices,
		})
	})
	return rows
}

// LayoutB reads the select-detail list where each time value embeds its
// AM/PM letter and fares are rendered as buttons with a total.
type LayoutB struct{}

func (LayoutB) Name() string { return "select-detail" }

func (LayoutB) Extract(doc *goquery.Document) []models.RawRow {
	var rows []models.RawRow
	doc.Find(layoutBRowSelector).Each(func(_ int, row *goquery.Selection) {
		times := row.Find(layoutBTimeSelector)
		if times.Length() < 2 {
			return
		}

		depart, ok := clockTime(text(times.Eq(0)))
		if !ok {
			return
		}
		arrive, ok := clockTime(text(times.Eq(1)))
		if !ok {
			return
		}

		prices := parsePrices(row.Find(layoutBFareSelector))
		if len(prices) == 0 {
			return
		}

		duration := text(row.Find(layoutBStopsDurationSelector).First())
		if duration == "" {
			duration = text(row.Find(layoutBHybridDurationSelector).First())
		}

		rows = append(rows, models.RawRow{
			DepartTime:  depart,
			ArriveTime:  arrive,
			DurationRaw: duration,
			Prices:      prices,
		})
	})
	return rows
}

// clockTime renders the first clock time in s as "H:MM AM" or "H:MM PM".
func clockTime(s string) (string, bool) {
	m := clockRegexp.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1] + " " + strings.ToUpper(m[2]) + "M", true
}

// parsePrices converts every price element into whole currency units,
// skipping elements such as "Sold out" that carry no number.
func parsePrices(sel *goquery.Selection) []int {
	var prices []int
	sel.Each(func(_ int, s *goquery.Selection) {
		if p, ok := parsePrice(s.Text()); ok {
			prices = append(prices, p)
		}
	})
	return prices
}

// parsePrice reads the first line of raw, skips the leading currency symbol
// and parses the amount up to any decimal point or trailing label.
func parsePrice(raw string) (int, bool) {
	line, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
	m := priceRegexp.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
