package db

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// AuthorType represents who created the comment.
type AuthorType string

const (
	AuthorTypeHuman  AuthorType = "human"
	AuthorTypeAgent  AuthorType = "agent"
	AuthorTypeSystem AuthorType = "system"
)

// Comment represents a comment or note on a ticket.
type Comment struct {
	ID         string     `json:"id"`
	TicketID   string     `json:"ticket_id"`
	Author     string     `json:"author"`
	AuthorType AuthorType `json:"author_type"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
}

// SaveComment adds a comment to a ticket.
func (d *TrackerDB) SaveComment(c *Comment) error {
	return saveComment(d, c)
}

// SaveCommentTx adds a comment within a transaction.
func SaveCommentTx(tx *TxOps, c *Comment) error {
	return saveComment(tx, c)
}

func saveComment(q Querier, c *Comment) error {
	if c.ID == "" {
		c.ID = generateCommentID()
	}
	if c.AuthorType == "" {
		c.AuthorType = AuthorTypeHuman
	}
	if c.Author == "" {
		c.Author = "anonymous"
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := q.Exec(`
		INSERT INTO ticket_comments (id, ticket_id, author, author_type, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.TicketID, c.Author, c.AuthorType, c.Content, c.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ListCommentsByTicket returns all comments for a ticket in creation order.
func (d *TrackerDB) ListCommentsByTicket(ticketID string) ([]Comment, error) {
	rows, err := d.Query(`
		SELECT id, ticket_id, author, author_type, content, created_at
		FROM ticket_comments WHERE ticket_id = ?
		ORDER BY created_at ASC
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []Comment
	for rows.Next() {
		var c Comment
		var createdAt string
		if err := rows.Scan(&c.ID, &c.TicketID, &c.Author, &c.AuthorType, &c.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.CreatedAt = parseTimestamp(createdAt)
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

// CountComments returns the number of comments on a ticket.
func (d *TrackerDB) CountComments(ticketID string) (int, error) {
	var count int
	err := d.QueryRow("SELECT COUNT(*) FROM ticket_comments WHERE ticket_id = ?", ticketID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}

// DeleteComment removes a comment.
func (d *TrackerDB) DeleteComment(id string) error {
	result, err := d.Exec("DELETE FROM ticket_comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// generateCommentID generates a unique ID for a comment.
func generateCommentID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "CMT-" + hex.EncodeToString(b)[:8]
}
