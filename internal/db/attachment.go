package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Attachment represents a ticket attachment stored in the database.
type Attachment struct {
	ID          int64
	TicketID    string
	Filename    string
	ContentType string
	SizeBytes   int64
	Data        []byte
	CreatedAt   time.Time
}

// SaveAttachment stores an attachment in the database.
func (d *TrackerDB) SaveAttachment(a *Attachment) error {
	return saveAttachment(d, a)
}

// SaveAttachmentTx stores an attachment within a transaction.
func SaveAttachmentTx(tx *TxOps, a *Attachment) error {
	return saveAttachment(tx, a)
}

func saveAttachment(q Querier, a *Attachment) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.SizeBytes == 0 {
		a.SizeBytes = int64(len(a.Data))
	}

	result, err := q.Exec(`
		INSERT INTO ticket_attachments (ticket_id, filename, content_type, size_bytes, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticket_id, filename) DO UPDATE SET
			content_type = excluded.content_type,
			size_bytes = excluded.size_bytes,
			data = excluded.data
	`, a.TicketID, a.Filename, a.ContentType, a.SizeBytes, a.Data, a.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save attachment: %w", err)
	}
	if a.ID == 0 {
		id, _ := result.LastInsertId()
		a.ID = id
	}
	return nil
}

// GetAttachment retrieves an attachment by ticket ID and filename,
// including its data. Returns nil if not found.
func (d *TrackerDB) GetAttachment(ticketID, filename string) (*Attachment, error) {
	row := d.QueryRow(`
		SELECT id, ticket_id, filename, content_type, size_bytes, data, created_at
		FROM ticket_attachments WHERE ticket_id = ? AND filename = ?
	`, ticketID, filename)

	var a Attachment
	var contentType sql.NullString
	var createdAt string

	if err := row.Scan(&a.ID, &a.TicketID, &a.Filename, &contentType, &a.SizeBytes, &a.Data, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get attachment: %w", err)
	}

	if contentType.Valid {
		a.ContentType = contentType.String
	}
	a.CreatedAt = parseTimestamp(createdAt)

	return &a, nil
}

// ListAttachments retrieves attachment metadata for a ticket (without data).
func (d *TrackerDB) ListAttachments(ticketID string) ([]Attachment, error) {
	rows, err := d.Query(`
		SELECT id, ticket_id, filename, content_type, size_bytes, created_at
		FROM ticket_attachments WHERE ticket_id = ? ORDER BY filename
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var attachments []Attachment
	for rows.Next() {
		var a Attachment
		var contentType sql.NullString
		var createdAt string

		if err := rows.Scan(&a.ID, &a.TicketID, &a.Filename, &contentType, &a.SizeBytes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}

		if contentType.Valid {
			a.ContentType = contentType.String
		}
		a.CreatedAt = parseTimestamp(createdAt)

		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}

	return attachments, nil
}

// DeleteAttachment removes an attachment.
func (d *TrackerDB) DeleteAttachment(ticketID, filename string) error {
	result, err := d.Exec("DELETE FROM ticket_attachments WHERE ticket_id = ? AND filename = ?", ticketID, filename)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("attachment %s not found", filename)
	}

	return nil
}
