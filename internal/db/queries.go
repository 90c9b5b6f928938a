package db

import (
	"database/sql"
	"fmt"
)

// StageEvent represents a row in the stage_events table.
type StageEvent struct {
	ID        int
	RunID     int64
	Unit      string
	Stage     string
	Status    string
	Detail    string
	Timestamp string
}

// StartRun inserts a new run row and returns its id.
func (d *DB) StartRun(unitsTotal int) (int64, error) {
	res, err := d.conn.Exec(`INSERT INTO runs (units_total) VALUES (?)`, unitsTotal)
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun records the final bucket counts for a run.
func (d *DB) FinishRun(runID int64, ok, partial, failed int) error {
	_, err := d.conn.Exec(
		`UPDATE runs SET finished_at = datetime('now'), ok = ?, partial = ?, failed = ? WHERE id = ?`,
		ok, partial, failed, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// LogStageEvent inserts a stage event.
func (d *DB) LogStageEvent(runID int64, unit, stage, status, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO stage_events (run_id, unit, stage, status, detail) VALUES (?, ?, ?, ?, ?)`,
		runID, unit, stage, status, detail,
	)
	if err != nil {
		return fmt.Errorf("log stage event: %w", err)
	}
	return nil
}

// RecentEvents returns the most recent stage events for a unit, newest first.
func (d *DB) RecentEvents(unit string, limit int) ([]StageEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, unit, stage, status, detail, timestamp
		 FROM stage_events WHERE unit = ? ORDER BY id DESC LIMIT ?`,
		unit, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query stage events: %w", err)
	}
	defer rows.Close()

	var events []StageEvent
	for rows.Next() {
		var e StageEvent
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &e.Unit, &e.Stage, &e.Status, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan stage event: %w", err)
		}
		if detail.Valid {
			e.Detail = detail.String
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
