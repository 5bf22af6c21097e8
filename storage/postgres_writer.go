package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"fare-tracker/models"
)

// PostgresWriter mirrors newly logged observations into PostgreSQL. The
// table is insert-only, like the CSV log it shadows.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 5; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS flight_observations (
			id          BIGSERIAL   PRIMARY KEY,
			date        TEXT        NOT NULL,
			depart_city TEXT        NOT NULL,
			arrive_city TEXT        NOT NULL,
			depart_time TEXT        NOT NULL,
			arrive_time TEXT        NOT NULL,
			duration    TEXT        NOT NULL,
			best_price  INTEGER     NOT NULL CHECK (best_price >= 0),
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (date, depart_city, arrive_city, depart_time, arrive_time, duration, best_price)
		);

		CREATE INDEX IF NOT EXISTS idx_flight_observations_route
			ON flight_observations(depart_city, arrive_city, date);
	`)
	return err
}

// Write batch-inserts observations, skipping (key, price) pairs already
// present.
func (pw *PostgresWriter) Write(obs []models.Observation) error {
	const batchSize = 50
	for i := 0; i < len(obs); i += batchSize {
		end := i + batchSize
		if end > len(obs) {
			end = len(obs)
		}
		query, args := buildInsert(obs[i:end])
		if _, err := pw.db.Exec(query, args...); err != nil {
			return fmt.Errorf("postgres: insert batch: %w", err)
		}
	}
	return nil
}

const insertColumns = 7

func buildInsert(batch []models.Observation) (string, []interface{}) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*insertColumns)

	for idx, o := range batch {
		base := idx * insertColumns
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		valueArgs = append(valueArgs,
			o.Date, o.DepartCity, o.ArriveCity, o.DepartTime, o.ArriveTime, o.Duration, o.BestPrice)
	}

	query := fmt.Sprintf(`
		INSERT INTO flight_observations
			(date, depart_city, arrive_city, depart_time, arrive_time, duration, best_price)
		VALUES %s
		ON CONFLICT DO NOTHING
	`, strings.Join(valueStrings, ","))

	return query, valueArgs
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
