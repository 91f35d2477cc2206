package db

import (
	"fmt"
	"time"
)

// ReviewFinding represents a single issue found during review of a ticket.
type ReviewFinding struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	Severity    string    `json:"severity"` // high, medium, low
	File        string    `json:"file,omitempty"`
	Line        int       `json:"line,omitempty"`
	Description string    `json:"description"`
	Suggestion  string    `json:"suggestion,omitempty"`
	Status      string    `json:"status"` // open, resolved, dismissed
	CreatedAt   time.Time `json:"created_at"`
}

// SaveFinding creates or updates a review finding.
func (d *TrackerDB) SaveFinding(f *ReviewFinding) error {
	return saveFinding(d, f)
}

// SaveFindingTx creates or updates a review finding within a transaction.
func SaveFindingTx(tx *TxOps, f *ReviewFinding) error {
	return saveFinding(tx, f)
}

func saveFinding(q Querier, f *ReviewFinding) error {
	if f.Status == "" {
		f.Status = "open"
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	_, err := q.Exec(`
		INSERT INTO review_findings (id, ticket_id, severity, file, line, description, suggestion, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			severity = excluded.severity,
			file = excluded.file,
			line = excluded.line,
			description = excluded.description,
			suggestion = excluded.suggestion,
			status = excluded.status
	`, f.ID, f.TicketID, f.Severity, f.File, f.Line, f.Description, f.Suggestion,
		f.Status, f.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save review finding: %w", err)
	}
	return nil
}

// ListFindingsByTicket returns all review findings for a ticket.
func (d *TrackerDB) ListFindingsByTicket(ticketID string) ([]ReviewFinding, error) {
	rows, err := d.Query(`
		SELECT id, ticket_id, severity, file, line, description, suggestion, status, created_at
		FROM review_findings WHERE ticket_id = ?
		ORDER BY created_at ASC
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list review findings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var findings []ReviewFinding
	for rows.Next() {
		var f ReviewFinding
		var createdAt string
		if err := rows.Scan(&f.ID, &f.TicketID, &f.Severity, &f.File, &f.Line, &f.Description, &f.Suggestion, &f.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan review finding: %w", err)
		}
		f.CreatedAt = parseTimestamp(createdAt)
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review findings: %w", err)
	}

	return findings, nil
}

// DeleteFindings removes all review findings for a ticket.
func (d *TrackerDB) DeleteFindings(ticketID string) error {
	_, err := d.Exec("DELETE FROM review_findings WHERE ticket_id = ?", ticketID)
	if err != nil {
		return fmt.Errorf("delete review findings: %w", err)
	}
	return nil
}
