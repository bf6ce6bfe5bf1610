package runlog

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

/*
Logger records per step run quantities into a SQLite file so a run's
history survives restarts and can be inspected with any sqlite client:

	sqlite3 flame1d.sqlite 'select step, max_temperature from quantities'

Rank 0 owns the logger; the extrema it writes are already reduced over
the group.
*/
type Logger struct {
	sqlDB *sql.DB
}

type Sample struct {
	Step           int
	Time, DT       float64
	WallTime       float64
	MinPressure    float64
	MaxPressure    float64
	MinTemperature float64
	MaxTemperature float64
}

const createQuantities = `
CREATE TABLE IF NOT EXISTS quantities (
	step INTEGER NOT NULL,
	time REAL NOT NULL,
	dt REAL NOT NULL,
	walltime REAL NOT NULL,
	min_pressure REAL NOT NULL,
	max_pressure REAL NOT NULL,
	min_temperature REAL NOT NULL,
	max_temperature REAL NOT NULL
)`

// Open opens or creates the run log database at path.
func Open(path string) (*Logger, error) {
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open run log db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping run log db: %w", err)
	}
	if _, err := sqlDB.Exec(createQuantities); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create quantities table: %w", err)
	}
	return &Logger{sqlDB: sqlDB}, nil
}

func (l *Logger) Tick(s Sample) error {
	if l == nil || l.sqlDB == nil {
		return nil
	}
	_, err := l.sqlDB.Exec(`INSERT INTO quantities
		(step, time, dt, walltime, min_pressure, max_pressure, min_temperature, max_temperature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Step, s.Time, s.DT, s.WallTime,
		s.MinPressure, s.MaxPressure, s.MinTemperature, s.MaxTemperature)
	if err != nil {
		return fmt.Errorf("insert quantities: %w", err)
	}
	return nil
}

// Samples returns the recorded history in insertion order.
func (l *Logger) Samples() ([]Sample, error) {
	if l == nil || l.sqlDB == nil {
		return nil, nil
	}
	rows, err := l.sqlDB.Query(`SELECT step, time, dt, walltime,
		min_pressure, max_pressure, min_temperature, max_temperature
		FROM quantities ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query quantities: %w", err)
	}
	defer rows.Close()
	var samples []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.Step, &s.Time, &s.DT, &s.WallTime,
			&s.MinPressure, &s.MaxPressure, &s.MinTemperature, &s.MaxTemperature); err != nil {
			return nil, fmt.Errorf("scan quantities: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func (l *Logger) Close() error {
	if l == nil || l.sqlDB == nil {
		return nil
	}
	return l.sqlDB.Close()
}
