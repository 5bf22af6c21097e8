package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"fare-tracker/models"
)

// ErrHistoryNotFound is returned by LoadHistory when the log file does not
// exist yet. Callers treat it as an empty log.
var ErrHistoryNotFound = errors.New("history log not found")

// historyHeader is the canonical column order: itinerary key fields, then
// price.
var historyHeader = []string{
	"date", "depart_city", "arrive_city", "depart_time", "arrive_time", "duration", "best_price",
}

// CSVHistory is the append-only history log kept as a CSV file.
type CSVHistory struct {
	Path string
}

// NewCSVHistory returns the history log stored at path.
func NewCSVHistory(path string) *CSVHistory {
	return &CSVHistory{Path: path}
}

func (h *CSVHistory) Load() ([]models.Observation, error) {
	return LoadHistory(h.Path)
}

func (h *CSVHistory) Save(log []models.Observation) error {
	return SaveHistory(h.Path, log)
}

// LoadHistory reads the whole log at path in file order.
func LoadHistory(path string) ([]models.Observation, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("csv: %q: %w", path, ErrHistoryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(historyHeader)

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header of %q: %w", path, err)
	}
	if !slices.Equal(header, historyHeader) {
		return nil, fmt.Errorf("csv: %q has header %v, want %v", path, header, historyHeader)
	}

	var log []models.Observation
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read %q: %w", path, err)
		}
		price, err := strconv.Atoi(rec[6])
		if err != nil || price < 0 {
			return nil, fmt.Errorf("csv: %q line %d: invalid best_price %q", path, line, rec[6])
		}
		log = append(log, models.Observation{
			ItineraryKey: models.ItineraryKey{
				Date:       rec[0],
				DepartCity: rec[1],
				ArriveCity: rec[2],
				DepartTime: rec[3],
				ArriveTime: rec[4],
				Duration:   rec[5],
			},
			BestPrice: price,
		})
	}
	return log, nil
}

// SaveHistory rewrites the log at path. The rows go to a temporary file in
// the same directory which then replaces path, so a failed write leaves the
// previous log intact. Intermediate directories are created automatically.
func SaveHistory(path string, log []models.Observation) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("csv: create log dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("csv: create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(historyHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, o := range log {
		row := []string{
			o.Date,
			o.DepartCity,
			o.ArriveCity,
			o.DepartTime,
			o.ArriveTime,
			o.Duration,
			strconv.Itoa(o.BestPrice),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("csv: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csv: close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("csv: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("csv: replace %q: %w", path, err)
	}
	return nil
}
