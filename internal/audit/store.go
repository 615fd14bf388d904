package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/rs/zerolog"
)

// Entry is one row of the command_audit table.
type Entry struct {
	InvocationID  uint64
	HostName      string
	CommandID     string
	CorrelationID string
	Params        map[string]string
	Criticality   hoststate.Criticality
	Message       string
	CreatedAt     time.Time
}

// Store is the append-only audit log, grounded on the teacher's
// store.StateStore (internal/store/store.go) but narrowed to the command
// audit trail the teacher's own docstring names — not the teacher's full
// state-recovery persistence, which spec.md's Non-goals exclude.
type Store struct {
	log zerolog.Logger
	db  *sql.DB
}

// NewStore wraps an already-migrated database handle (see Open).
func NewStore(log zerolog.Logger, db *sql.DB) *Store {
	return &Store{log: log.With().Str("component", "audit_store").Logger(), db: db}
}

// RecordCommand inserts one audit row. Satisfies command.AuditSink.
func (s *Store) RecordCommand(host, commandID, correlationID string, invocationID uint64, params map[string]string, criticality hoststate.Criticality, message string) error {
	var paramsJSON []byte
	if len(params) > 0 {
		var err error
		paramsJSON, err = json.Marshal(params)
		if err != nil {
			return fmt.Errorf("audit: marshal params: %w", err)
		}
	}
	_, err := s.db.Exec(
		`INSERT INTO command_audit (invocation_id, host_name, command_id, correlation_id, params_json, criticality, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		invocationID, host, commandID, correlationID, string(paramsJSON), string(criticality), message,
	)
	if err != nil {
		return fmt.Errorf("audit: insert command_audit: %w", err)
	}
	return nil
}

// RecentForHost returns the most recent audit entries for host, newest
// first, bounded by limit.
func (s *Store) RecentForHost(host string, limit int) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT invocation_id, host_name, command_id, correlation_id, params_json, criticality, message, created_at
		 FROM command_audit WHERE host_name = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		host, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: query command_audit: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var paramsJSON, criticality string
		if err := rows.Scan(&e.InvocationID, &e.HostName, &e.CommandID, &e.CorrelationID, &paramsJSON, &criticality, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan command_audit: %w", err)
		}
		e.Criticality = hoststate.Criticality(criticality)
		if paramsJSON != "" {
			if err := json.Unmarshal([]byte(paramsJSON), &e.Params); err != nil {
				return nil, fmt.Errorf("audit: unmarshal params: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
