package store

import (
	"database/sql"
	"fmt"
	"time"
)

// InsertIncident appends a classified incident and returns its row ID.
func (s *Store) InsertIncident(in *Incident) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO incidents
		(operation_type, source_path, destination_path, content_hash, detected_by, process_name, severity, timestamp_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.OperationType, in.SourcePath, in.DestinationPath, nullable(in.ContentHash),
		in.DetectedBy, in.ProcessName, in.Severity, in.Timestamp.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert incident: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}

// IncidentsSince returns incidents newer than the given time, most recent
// first. Consumers must treat the stored timestamp as the ordering key:
// sources are independent and arrival order carries no meaning.
func (s *Store) IncidentsSince(since time.Time) ([]Incident, error) {
	rows, err := s.db.Query(`
		SELECT id, operation_type, source_path, destination_path, content_hash, detected_by, process_name, severity, timestamp_ns
		FROM incidents
		WHERE timestamp_ns > ?
		ORDER BY timestamp_ns DESC`, since.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	return scanIncidents(rows)
}

// IncidentsByHash returns every incident correlated to a content hash,
// most recent first.
func (s *Store) IncidentsByHash(contentHash string) ([]Incident, error) {
	rows, err := s.db.Query(`
		SELECT id, operation_type, source_path, destination_path, content_hash, detected_by, process_name, severity, timestamp_ns
		FROM incidents
		WHERE content_hash = ?
		ORDER BY timestamp_ns DESC`, contentHash,
	)
	if err != nil {
		return nil, fmt.Errorf("query incidents by hash: %w", err)
	}
	defer rows.Close()

	return scanIncidents(rows)
}

// SummarizeIncidents counts incidents per severity since the given time.
func (s *Store) SummarizeIncidents(since time.Time) (IncidentSummary, error) {
	var sum IncidentSummary
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COUNT(CASE WHEN severity = 'HIGH' THEN 1 END),
		       COUNT(CASE WHEN severity = 'MEDIUM' THEN 1 END),
		       COUNT(CASE WHEN severity = 'LOW' THEN 1 END)
		FROM incidents
		WHERE timestamp_ns > ?`, since.UnixNano(),
	).Scan(&sum.Total, &sum.High, &sum.Medium, &sum.Low)
	if err != nil {
		return IncidentSummary{}, fmt.Errorf("summarize incidents: %w", err)
	}
	return sum, nil
}

func scanIncidents(rows *sql.Rows) ([]Incident, error) {
	var incidents []Incident

	for rows.Next() {
		var in Incident
		var src, dst, hash, by, proc sql.NullString
		var ts int64

		if err := rows.Scan(&in.ID, &in.OperationType, &src, &dst, &hash, &by, &proc, &in.Severity, &ts); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		in.SourcePath = src.String
		in.DestinationPath = dst.String
		in.ContentHash = hash.String
		in.DetectedBy = by.String
		in.ProcessName = proc.String
		in.Timestamp = time.Unix(0, ts)
		incidents = append(incidents, in)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return incidents, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
