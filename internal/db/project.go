package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Project represents a tracked project. Every epic and ticket belongs
// to exactly one project.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SaveProject creates or updates a project.
func (d *TrackerDB) SaveProject(p *Project) error {
	return saveProject(d, p)
}

// SaveProjectTx creates or updates a project within a transaction.
func SaveProjectTx(tx *TxOps, p *Project) error {
	return saveProject(tx, p)
}

func saveProject(q Querier, p *Project) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := q.Exec(`
		INSERT INTO projects (id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, p.Description, p.CreatedAt.Format(time.RFC3339), now)
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID. Returns nil if not found.
func (d *TrackerDB) GetProject(id string) (*Project, error) {
	return getProject(d, id)
}

// GetProjectTx retrieves a project by ID within a transaction.
func GetProjectTx(tx *TxOps, id string) (*Project, error) {
	return getProject(tx, id)
}

func getProject(q Querier, id string) (*Project, error) {
	row := q.QueryRow(`
		SELECT id, name, description, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)

	var p Project
	var createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}

	p.CreatedAt = parseTimestamp(createdAt)
	p.UpdatedAt = parseTimestamp(updatedAt)
	return &p, nil
}

// ListProjects returns all projects ordered by name.
func (d *TrackerDB) ListProjects() ([]Project, error) {
	rows, err := d.Query(`
		SELECT id, name, description, created_at, updated_at
		FROM projects ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []Project
	for rows.Next() {
		var p Project
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.CreatedAt = parseTimestamp(createdAt)
		p.UpdatedAt = parseTimestamp(updatedAt)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, nil
}

// DeleteProject removes a project and everything it owns.
func (d *TrackerDB) DeleteProject(id string) error {
	_, err := d.Exec("DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}
