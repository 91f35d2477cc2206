package db

import (
	"encoding/json"
	"fmt"
	"time"
)

// DemoScript represents a recorded demo walkthrough for a ticket.
type DemoScript struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Title     string    `json:"title"`
	Steps     []string  `json:"steps,omitempty"`
	Status    string    `json:"status"` // draft, ready, recorded
	CreatedAt time.Time `json:"created_at"`
}

// SaveDemoScript creates or updates a demo script.
func (d *TrackerDB) SaveDemoScript(s *DemoScript) error {
	return saveDemoScript(d, s)
}

// SaveDemoScriptTx creates or updates a demo script within a transaction.
func SaveDemoScriptTx(tx *TxOps, s *DemoScript) error {
	return saveDemoScript(tx, s)
}

func saveDemoScript(q Querier, s *DemoScript) error {
	if s.Status == "" {
		s.Status = "draft"
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	stepsJSON, err := json.Marshal(orEmpty(s.Steps))
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	_, err = q.Exec(`
		INSERT INTO demo_scripts (id, ticket_id, title, steps, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			steps = excluded.steps,
			status = excluded.status
	`, s.ID, s.TicketID, s.Title, string(stepsJSON), s.Status, s.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save demo script: %w", err)
	}
	return nil
}

// ListDemoScriptsByTicket returns all demo scripts for a ticket.
func (d *TrackerDB) ListDemoScriptsByTicket(ticketID string) ([]DemoScript, error) {
	rows, err := d.Query(`
		SELECT id, ticket_id, title, steps, status, created_at
		FROM demo_scripts WHERE ticket_id = ?
		ORDER BY created_at ASC
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list demo scripts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var demos []DemoScript
	for rows.Next() {
		var s DemoScript
		var stepsJSON, createdAt string
		if err := rows.Scan(&s.ID, &s.TicketID, &s.Title, &stepsJSON, &s.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan demo script: %w", err)
		}
		if stepsJSON != "" {
			if err := json.Unmarshal([]byte(stepsJSON), &s.Steps); err != nil {
				return nil, fmt.Errorf("unmarshal steps: %w", err)
			}
		}
		s.CreatedAt = parseTimestamp(createdAt)
		demos = append(demos, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate demo scripts: %w", err)
	}

	return demos, nil
}

// DeleteDemoScripts removes all demo scripts for a ticket.
func (d *TrackerDB) DeleteDemoScripts(ticketID string) error {
	_, err := d.Exec("DELETE FROM demo_scripts WHERE ticket_id = ?", ticketID)
	if err != nil {
		return fmt.Errorf("delete demo scripts: %w", err)
	}
	return nil
}
