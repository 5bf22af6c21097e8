package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"

	"fare-tracker/models"
)

// Trip describes one set of searches: every combination of Dates,
// Departure and Arrival is queried on each run.
type Trip struct {
	Name      string   `json:"name"`
	Dates     []string `json:"dates"`
	Departure []string `json:"departure"`
	Arrival   []string `json:"arrival"`
}

// LoadTrip reads a trip config file. A sibling "<name>.local.<ext>" file, if
// present, is merged over it with its non-empty fields taking priority.
func LoadTrip(path string) (*Trip, error) {
	var trip Trip
	if err := readJSON5(path, &trip); err != nil {
		return nil, fmt.Errorf("trip: read %q: %w", path, err)
	}

	localPath := localVariant(path)
	var override Trip
	err := readJSON5(localPath, &override)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("trip: read %q: %w", localPath, err)
	default:
		if err := mergo.Merge(&trip, override, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("trip: merge %q: %w", localPath, err)
		}
	}

	if err := trip.Validate(); err != nil {
		return nil, fmt.Errorf("trip %q: %w", path, err)
	}
	return &trip, nil
}

// Validate ensures the trip can produce at least one query and that its
// name is usable as a directory name.
func (t *Trip) Validate() error {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("name %q is not a valid directory name", t.Name)
	}
	if len(t.Dates) == 0 {
		return errors.New("dates cannot be empty")
	}
	if len(t.Departure) == 0 {
		return errors.New("departure cannot be empty")
	}
	if len(t.Arrival) == 0 {
		return errors.New("arrival cannot be empty")
	}
	return nil
}

// Queries expands the trip into its cartesian product, iterating dates
// outermost and arrivals innermost.
func (t *Trip) Queries() []models.Query {
	out := make([]models.Query, 0, len(t.Dates)*len(t.Departure)*len(t.Arrival))
	for _, date := range t.Dates {
		for _, dep := range t.Departure {
			for _, arr := range t.Arrival {
				out = append(out, models.Query{
					Date:      strings.TrimSpace(date),
					Departure: strings.TrimSpace(dep),
					Arrival:   strings.TrimSpace(arr),
				})
			}
		}
	}
	return out
}

func readJSON5(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json5.Unmarshal(data, out)
}

// localVariant maps "trips/sfo.json" to "trips/sfo.local.json".
func localVariant(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, stem+".local"+ext)
}
