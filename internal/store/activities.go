package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultQueryLimit caps unbounded activity queries.
const DefaultQueryLimit = 1000

// InsertActivity appends one activity entry and returns its row ID.
func (s *Store) InsertActivity(a *Activity) (int64, error) {
	var extra any
	if len(a.Extra) > 0 {
		b, err := json.Marshal(a.Extra)
		if err != nil {
			return 0, fmt.Errorf("marshal activity extra: %w", err)
		}
		extra = string(b)
	}

	result, err := s.db.Exec(`
		INSERT INTO activities
		(timestamp_ns, session_id, activity, file_name, ip_address, user_agent, extra, created_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Timestamp.UnixNano(), a.SessionID, a.Kind, a.FileName,
		nullable(a.IPAddress), nullable(a.UserAgent), extra,
		a.Timestamp.Format("2006-01-02"),
	)
	if err != nil {
		return 0, fmt.Errorf("insert activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}

// QueryActivities retrieves activity entries matching the filter, ordered by
// timestamp descending.
func (s *Store) QueryActivities(f ActivityFilter) ([]Activity, error) {
	query := `
		SELECT id, timestamp_ns, session_id, activity, file_name, ip_address, user_agent, extra
		FROM activities WHERE 1=1`
	var params []any

	if f.FileName != "" {
		query += " AND file_name LIKE ?"
		params = append(params, "%"+f.FileName+"%")
	}
	if f.StartDate != "" {
		query += " AND created_date >= ?"
		params = append(params, f.StartDate)
	}
	if f.EndDate != "" {
		query += " AND created_date <= ?"
		params = append(params, f.EndDate)
	}
	if f.Kind != "" {
		query += " AND activity LIKE ?"
		params = append(params, "%"+f.Kind+"%")
	}
	if f.SessionID != "" {
		query += " AND session_id = ?"
		params = append(params, f.SessionID)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	query += " ORDER BY timestamp_ns DESC LIMIT ?"
	params = append(params, limit)

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		var ts int64
		var ip, agent, extra sql.NullString

		if err := rows.Scan(&a.ID, &ts, &a.SessionID, &a.Kind, &a.FileName, &ip, &agent, &extra); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Timestamp = time.Unix(0, ts)
		a.IPAddress = ip.String
		a.UserAgent = agent.String
		if extra.Valid && extra.String != "" {
			if err := json.Unmarshal([]byte(extra.String), &a.Extra); err != nil {
				return nil, fmt.Errorf("unmarshal activity extra: %w", err)
			}
		}
		activities = append(activities, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return activities, nil
}

// FileNames lists the distinct file names seen in the activity log.
func (s *Store) FileNames() ([]string, error) {
	return s.distinct("SELECT DISTINCT file_name FROM activities ORDER BY file_name")
}

// ActivityKinds lists the distinct activity kinds seen in the activity log.
func (s *Store) ActivityKinds() ([]string, error) {
	return s.distinct("SELECT DISTINCT activity FROM activities ORDER BY activity")
}

func (s *Store) distinct(query string) ([]string, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query distinct values: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct values: %w", err)
	}
	return values, nil
}

// Stats computes the aggregate counters over the activity log, optionally
// bounded by an inclusive creation-date range (YYYY-MM-DD).
func (s *Store) Stats(startDate, endDate string) (Statistics, error) {
	filter := ""
	var params []any
	if startDate != "" {
		filter += " AND created_date >= ?"
		params = append(params, startDate)
	}
	if endDate != "" {
		filter += " AND created_date <= ?"
		params = append(params, endDate)
	}

	var st Statistics
	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM activities WHERE 1=1" + filter, &st.TotalActivities},
		{"SELECT COUNT(DISTINCT session_id) FROM activities WHERE 1=1" + filter, &st.UniqueSessions},
		{"SELECT COUNT(*) FROM activities WHERE activity LIKE '%OPENED%'" + filter, &st.FileOpens},
		{"SELECT COUNT(*) FROM activities WHERE activity LIKE '%DOWNLOAD%'" + filter, &st.Downloads},
		{"SELECT COUNT(*) FROM activities WHERE activity LIKE '%PRINT%'" + filter, &st.Prints},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query, params...).Scan(c.dest); err != nil {
			return Statistics{}, fmt.Errorf("compute statistics: %w", err)
		}
	}
	return st, nil
}
