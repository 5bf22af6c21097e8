package storage

import "fare-tracker/models"

// HistoryStore reads and rewrites the full history log.
type HistoryStore interface {
	Load() ([]models.Observation, error)
	Save(log []models.Observation) error
}

// ObservationWriter is the interface any secondary sink for newly logged
// observations must satisfy.
type ObservationWriter interface {
	Write(obs []models.Observation) error
	Close() error
}
