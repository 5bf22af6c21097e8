package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fare-tracker/models"
)

func TestDiffEmptyHistory(t *testing.T) {
	batch := []models.Observation{obs("2024-01-01", "JFK", "LAX", "8:00 AM", 120)}

	got := Diff(batch, nil)
	assert.Equal(t, batch, got.Log)
	assert.Equal(t, batch, got.NewEntries)
	assert.Empty(t, got.NewLows)
}

func TestDiffRepeatedPairsAreNotAppended(t *testing.T) {
	history := []models.Observation{
		obs("2024-01-01", "JFK", "LAX", "8:00 AM", 150),
		obs("2024-01-01", "JFK", "LAX", "6:00 AM", 200),
		obs("2024-01-01", "JFK", "LAX", "8:00 AM", 130),
	}
	batch := []models.Observation{
		obs("2024-01-01", "JFK", "LAX", "8:00 AM", 150),
		obs("2024-01-01", "JFK", "LAX", "6:00 AM", 200),
	}

	got := Diff(batch, history)
	assert.Equal(t, history, got.Log)
	assert.Empty(t, got.NewEntries)
	assert.Empty(t, got.NewLows)
}

func TestDiffNewKeyAppendsOneRow(t *testing.T) {
	history := []models.Observation{obs("2024-01-01", "JFK", "LAX", "8:00 AM", 150)}
	fresh := obs("2024-01-01", "JFK", "SFO", "9:00 AM", 210)
	batch := []models.Observation{obs("2024-01-01", "JFK", "LAX", "8:00 AM", 150), fresh}

	got := Diff(batch, history)
	require.Len(t, got.Log, 2)
	assert.Equal(t, fresh, got.Log[1])
	assert.Equal(t, []models.Observation{fresh}, got.NewEntries)
	assert.Empty(t, got.NewLows)
}

func TestDiffNewLow(t *testing.T) {
	history := []models.Observation{obs("2024-01-01", "JFK", "LAX", "8:00 AM", 150)}
	cheaper := obs("2024-01-01", "JFK", "LAX", "8:00 AM", 120)

	got := Diff([]models.Observation{cheaper}, history)
	require.Len(t, got.NewLows, 1)
	assert.Equal(t, cheaper, got.NewLows[0].Observation)
	assert.Equal(t, 150, got.NewLows[0].PreviousBest)
	assert.Equal(t, 150, got.NewLows[0].LastSeen)
	assert.Equal(t, []models.Observation{history[0], cheaper}, got.Log)
}

func TestDiffNewLowComparesAgainstBestEver(t *testing.T) {
	history := []models.Observation{
		obs("2024-01-01", "JFK", "LAX", "8:00 AM", 110),
		obs("2024-01-01", "JFK", "LAX", "8:00 AM", 160),
	}

	tests := []struct {
		name    string
		price   int
		wantLow bool
		wantNew bool
	}{
		{name: "below best", price: 100, wantLow: true, wantNew: true},
		{name: "equal to best", price: 110, wantLow: false, wantNew: false},
		{name: "below last seen only", price: 130, wantLow: false, wantNew: true},
		{name: "above everything", price: 200, wantLow: false, wantNew: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff([]models.Observation{obs("2024-01-01", "JFK", "LAX", "8:00 AM", tt.price)}, history)
			assert.Equal(t, tt.wantLow, len(got.NewLows) == 1)
			assert.Equal(t, tt.wantNew, len(got.NewEntries) == 1)
			if tt.wantLow {
				assert.Equal(t, 110, got.NewLows[0].PreviousBest)
				assert.Equal(t, 160, got.NewLows[0].LastSeen)
			}
		})
	}
}

func TestDiffDoesNotMutateHistory(t *testing.T) {
	history := make([]models.Observation, 1, 4)
	history[0] = obs("2024-01-01", "JFK", "LAX", "8:00 AM", 150)

	got := Diff([]models.Observation{obs("2024-01-01", "JFK", "LAX", "8:00 AM", 120)}, history)
	require.Len(t, got.Log, 2)
	assert.Len(t, history, 1)
	// spare capacity in history must not be written through
	assert.Equal(t, models.Observation{}, history[:2][1])
}

func TestDiffUndeduplicatedBatchAppendsPairOnce(t *testing.T) {
	row := obs("2024-01-01", "JFK", "LAX", "8:00 AM", 150)
	got := Diff([]models.Observation{row, row}, nil)
	assert.Len(t, got.NewEntries, 1)
	assert.Len(t, got.Log, 1)
}
