package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Epic represents a grouping of tickets within a project.
type Epic struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SaveEpic creates or updates an epic.
func (d *TrackerDB) SaveEpic(e *Epic) error {
	return saveEpic(d, e)
}

// SaveEpicTx creates or updates an epic within a transaction.
func SaveEpicTx(tx *TxOps, e *Epic) error {
	return saveEpic(tx, e)
}

func saveEpic(q Querier, e *Epic) error {
	if e.Status == "" {
		e.Status = "open"
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := q.Exec(`
		INSERT INTO epics (id, project_id, title, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, e.ID, e.ProjectID, e.Title, e.Description, e.Status, e.CreatedAt.Format(time.RFC3339), now)
	if err != nil {
		return fmt.Errorf("save epic: %w", err)
	}
	return nil
}

// GetEpic retrieves an epic by ID. Returns nil if not found.
func (d *TrackerDB) GetEpic(id string) (*Epic, error) {
	return getEpic(d, id)
}

// GetEpicTx retrieves an epic by ID within a transaction.
func GetEpicTx(tx *TxOps, id string) (*Epic, error) {
	return getEpic(tx, id)
}

func getEpic(q Querier, id string) (*Epic, error) {
	row := q.QueryRow(`
		SELECT id, project_id, title, description, status, created_at, updated_at
		FROM epics WHERE id = ?
	`, id)
	return scanEpicRow(row)
}

// FindEpicByTitle finds an epic with an exactly matching title in a
// project. Returns nil if no epic matches. Title matching is
// case-sensitive exact equality; duplicate titles return whichever
// row the database yields first.
func (d *TrackerDB) FindEpicByTitle(projectID, title string) (*Epic, error) {
	return findEpicByTitle(d, projectID, title)
}

// FindEpicByTitleTx finds a same-titled epic within a transaction.
func FindEpicByTitleTx(tx *TxOps, projectID, title string) (*Epic, error) {
	return findEpicByTitle(tx, projectID, title)
}

func findEpicByTitle(q Querier, projectID, title string) (*Epic, error) {
	row := q.QueryRow(`
		SELECT id, project_id, title, description, status, created_at, updated_at
		FROM epics WHERE project_id = ? AND title = ?
		LIMIT 1
	`, projectID, title)
	return scanEpicRow(row)
}

// ListEpicsByProject returns all epics owned by a project.
func (d *TrackerDB) ListEpicsByProject(projectID string) ([]Epic, error) {
	rows, err := d.Query(`
		SELECT id, project_id, title, description, status, created_at, updated_at
		FROM epics WHERE project_id = ?
		ORDER BY created_at ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list epics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var epics []Epic
	for rows.Next() {
		var e Epic
		var createdAt, updatedAt string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Title, &e.Description, &e.Status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan epic: %w", err)
		}
		e.CreatedAt = parseTimestamp(createdAt)
		e.UpdatedAt = parseTimestamp(updatedAt)
		epics = append(epics, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate epics: %w", err)
	}

	return epics, nil
}

// DeleteEpic removes an epic. Tickets under it keep their rows with a
// null epic reference (FK is ON DELETE SET NULL).
func (d *TrackerDB) DeleteEpic(id string) error {
	_, err := d.Exec("DELETE FROM epics WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete epic: %w", err)
	}
	return nil
}

func scanEpicRow(row *sql.Row) (*Epic, error) {
	var e Epic
	var createdAt, updatedAt string
	if err := row.Scan(&e.ID, &e.ProjectID, &e.Title, &e.Description, &e.Status, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan epic: %w", err)
	}
	e.CreatedAt = parseTimestamp(createdAt)
	e.UpdatedAt = parseTimestamp(updatedAt)
	return &e, nil
}
