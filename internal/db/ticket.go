package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Ticket represents a unit of work stored in the database.
//
// Branch, PR fields, and LinkedFiles are machine-local integration
// state: they are persisted here but stripped from exports because
// they are meaningless outside the originating repository.
type Ticket struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	EpicID      *string   `json:"epic_id,omitempty"` // nil for orphan tickets
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Tags        []string  `json:"tags,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Non-portable integration state
	Branch      string   `json:"branch,omitempty"`
	PRNumber    int      `json:"pr_number,omitempty"`
	PRURL       string   `json:"pr_url,omitempty"`
	PRStatus    string   `json:"pr_status,omitempty"`
	LinkedFiles []string `json:"linked_files,omitempty"`
}

// StatusBacklog is the initial workflow status for new and
// status-reset tickets.
const StatusBacklog = "backlog"

// SaveTicket creates or updates a ticket.
func (d *TrackerDB) SaveTicket(t *Ticket) error {
	return saveTicket(d, t)
}

// SaveTicketTx creates or updates a ticket within a transaction.
func SaveTicketTx(tx *TxOps, t *Ticket) error {
	return saveTicket(tx, t)
}

func saveTicket(q Querier, t *Ticket) error {
	if t.Status == "" {
		t.Status = StatusBacklog
	}
	if t.Priority == "" {
		t.Priority = "normal"
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	tagsJSON, err := json.Marshal(orEmpty(t.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	linkedJSON, err := json.Marshal(orEmpty(t.LinkedFiles))
	if err != nil {
		return fmt.Errorf("marshal linked files: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = q.Exec(`
		INSERT INTO tickets (id, project_id, epic_id, title, description, status, priority, tags, position, branch, pr_number, pr_url, pr_status, linked_files, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			epic_id = excluded.epic_id,
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			priority = excluded.priority,
			tags = excluded.tags,
			position = excluded.position,
			branch = excluded.branch,
			pr_number = excluded.pr_number,
			pr_url = excluded.pr_url,
			pr_status = excluded.pr_status,
			linked_files = excluded.linked_files,
			updated_at = excluded.updated_at
	`, t.ID, t.ProjectID, t.EpicID, t.Title, t.Description, t.Status, t.Priority,
		string(tagsJSON), t.Position, t.Branch, t.PRNumber, t.PRURL, t.PRStatus,
		string(linkedJSON), t.CreatedAt.Format(time.RFC3339), now)
	if err != nil {
		return fmt.Errorf("save ticket: %w", err)
	}
	return nil
}

// GetTicket retrieves a ticket by ID. Returns nil if not found.
func (d *TrackerDB) GetTicket(id string) (*Ticket, error) {
	return getTicket(d, id)
}

// GetTicketTx retrieves a ticket by ID within a transaction.
func GetTicketTx(tx *TxOps, id string) (*Ticket, error) {
	return getTicket(tx, id)
}

func getTicket(q Querier, id string) (*Ticket, error) {
	row := q.QueryRow(ticketSelect+" WHERE id = ?", id)
	t, err := scanTicketRow(row)
	if err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return t, nil
}

// FindTicketByTitle finds a ticket with an exactly matching title
// under an epic. Returns nil if no ticket matches.
func FindTicketByTitleTx(tx *TxOps, epicID, title string) (*Ticket, error) {
	row := tx.QueryRow(ticketSelect+" WHERE epic_id = ? AND title = ? LIMIT 1", epicID, title)
	t, err := scanTicketRow(row)
	if err != nil {
		return nil, fmt.Errorf("find ticket by title: %w", err)
	}
	return t, nil
}

// ListTicketsByEpic returns all tickets under an epic.
func (d *TrackerDB) ListTicketsByEpic(epicID string) ([]Ticket, error) {
	return listTickets(d, " WHERE epic_id = ? ORDER BY position ASC", epicID)
}

// ListTicketsByEpicTx returns all tickets under an epic within a transaction.
func ListTicketsByEpicTx(tx *TxOps, epicID string) ([]Ticket, error) {
	return listTickets(tx, " WHERE epic_id = ? ORDER BY position ASC", epicID)
}

// ListTicketsByProject returns all tickets owned by a project,
// including orphan tickets with no epic.
func (d *TrackerDB) ListTicketsByProject(projectID string) ([]Ticket, error) {
	return listTickets(d, " WHERE project_id = ? ORDER BY position ASC", projectID)
}

func listTickets(q Querier, where string, args ...any) ([]Ticket, error) {
	rows, err := q.Query(ticketSelect+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tickets []Ticket
	for rows.Next() {
		t, err := scanTicketRows(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}

	return tickets, nil
}

// DeleteTicket removes a ticket. Comments, findings, demos, workflow
// state, and attachments cascade.
func (d *TrackerDB) DeleteTicket(id string) error {
	_, err := d.Exec("DELETE FROM tickets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	return nil
}

// DeleteEpicTicketsTx removes every ticket under an epic within a
// transaction. Dependent rows cascade through foreign keys.
func DeleteEpicTicketsTx(tx *TxOps, epicID string) error {
	_, err := tx.Exec("DELETE FROM tickets WHERE epic_id = ?", epicID)
	if err != nil {
		return fmt.Errorf("delete epic tickets: %w", err)
	}
	return nil
}

// MaxTicketPositionTx returns the highest ticket position in a project,
// or 0 when the project has no tickets.
func MaxTicketPositionTx(tx *TxOps, projectID string) (int, error) {
	var pos sql.NullInt64
	err := tx.QueryRow("SELECT MAX(position) FROM tickets WHERE project_id = ?", projectID).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("max ticket position: %w", err)
	}
	if !pos.Valid {
		return 0, nil
	}
	return int(pos.Int64), nil
}

const ticketSelect = `
	SELECT id, project_id, epic_id, title, description, status, priority, tags, position, branch, pr_number, pr_url, pr_status, linked_files, created_at, updated_at
	FROM tickets`

func scanTicketRow(row *sql.Row) (*Ticket, error) {
	var t Ticket
	var epicID sql.NullString
	var tagsJSON, linkedJSON string
	var createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.ProjectID, &epicID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&tagsJSON, &t.Position, &t.Branch, &t.PRNumber, &t.PRURL, &t.PRStatus, &linkedJSON, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return finishTicket(&t, epicID, tagsJSON, linkedJSON, createdAt, updatedAt)
}

func scanTicketRows(rows *sql.Rows) (*Ticket, error) {
	var t Ticket
	var epicID sql.NullString
	var tagsJSON, linkedJSON string
	var createdAt, updatedAt string

	err := rows.Scan(&t.ID, &t.ProjectID, &epicID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&tagsJSON, &t.Position, &t.Branch, &t.PRNumber, &t.PRURL, &t.PRStatus, &linkedJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan ticket: %w", err)
	}

	return finishTicket(&t, epicID, tagsJSON, linkedJSON, createdAt, updatedAt)
}

func finishTicket(t *Ticket, epicID sql.NullString, tagsJSON, linkedJSON, createdAt, updatedAt string) (*Ticket, error) {
	if epicID.Valid {
		t.EpicID = &epicID.String
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &t.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if linkedJSON != "" {
		if err := json.Unmarshal([]byte(linkedJSON), &t.LinkedFiles); err != nil {
			return nil, fmt.Errorf("unmarshal linked files: %w", err)
		}
	}
	t.CreatedAt = parseTimestamp(createdAt)
	t.UpdatedAt = parseTimestamp(updatedAt)
	return t, nil
}

// orEmpty returns an empty slice instead of nil so JSON round-trips
// produce [] rather than null.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
