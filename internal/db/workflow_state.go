package db

import (
	"database/sql"
	"fmt"
	"time"
)

// TicketWorkflowState is a per-ticket snapshot of agent workflow
// progress. State is an opaque JSON document owned by the workflow
// engine; the store round-trips it without inspection.
type TicketWorkflowState struct {
	TicketID  string    `json:"ticket_id"`
	Phase     string    `json:"phase,omitempty"`
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EpicWorkflowState is the epic-level counterpart of TicketWorkflowState.
type EpicWorkflowState struct {
	EpicID    string    `json:"epic_id"`
	Phase     string    `json:"phase,omitempty"`
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveTicketWorkflowState creates or replaces the workflow snapshot for a ticket.
func (d *TrackerDB) SaveTicketWorkflowState(s *TicketWorkflowState) error {
	return saveTicketWorkflowState(d, s)
}

// SaveTicketWorkflowStateTx creates or replaces a ticket workflow snapshot within a transaction.
func SaveTicketWorkflowStateTx(tx *TxOps, s *TicketWorkflowState) error {
	return saveTicketWorkflowState(tx, s)
}

func saveTicketWorkflowState(q Querier, s *TicketWorkflowState) error {
	if s.State == "" {
		s.State = "{}"
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := q.Exec(`
		INSERT INTO ticket_workflow_states (ticket_id, phase, state, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ticket_id) DO UPDATE SET
			phase = excluded.phase,
			state = excluded.state,
			updated_at = excluded.updated_at
	`, s.TicketID, s.Phase, s.State, now)
	if err != nil {
		return fmt.Errorf("save ticket workflow state: %w", err)
	}
	return nil
}

// GetTicketWorkflowState retrieves the workflow snapshot for a ticket.
// Returns nil if the ticket has no snapshot.
func (d *TrackerDB) GetTicketWorkflowState(ticketID string) (*TicketWorkflowState, error) {
	row := d.QueryRow(`
		SELECT ticket_id, phase, state, updated_at
		FROM ticket_workflow_states WHERE ticket_id = ?
	`, ticketID)

	var s TicketWorkflowState
	var updatedAt string
	if err := row.Scan(&s.TicketID, &s.Phase, &s.State, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get ticket workflow state: %w", err)
	}
	s.UpdatedAt = parseTimestamp(updatedAt)
	return &s, nil
}

// SaveEpicWorkflowState creates or replaces the workflow snapshot for an epic.
func (d *TrackerDB) SaveEpicWorkflowState(s *EpicWorkflowState) error {
	return saveEpicWorkflowState(d, s)
}

// SaveEpicWorkflowStateTx creates or replaces an epic workflow snapshot within a transaction.
func SaveEpicWorkflowStateTx(tx *TxOps, s *EpicWorkflowState) error {
	return saveEpicWorkflowState(tx, s)
}

func saveEpicWorkflowState(q Querier, s *EpicWorkflowState) error {
	if s.State == "" {
		s.State = "{}"
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := q.Exec(`
		INSERT INTO epic_workflow_states (epic_id, phase, state, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(epic_id) DO UPDATE SET
			phase = excluded.phase,
			state = excluded.state,
			updated_at = excluded.updated_at
	`, s.EpicID, s.Phase, s.State, now)
	if err != nil {
		return fmt.Errorf("save epic workflow state: %w", err)
	}
	return nil
}

// GetEpicWorkflowState retrieves the workflow snapshot for an epic.
// Returns nil if the epic has no snapshot.
func (d *TrackerDB) GetEpicWorkflowState(epicID string) (*EpicWorkflowState, error) {
	row := d.QueryRow(`
		SELECT epic_id, phase, state, updated_at
		FROM epic_workflow_states WHERE epic_id = ?
	`, epicID)

	var s EpicWorkflowState
	var updatedAt string
	if err := row.Scan(&s.EpicID, &s.Phase, &s.State, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get epic workflow state: %w", err)
	}
	s.UpdatedAt = parseTimestamp(updatedAt)
	return &s, nil
}
