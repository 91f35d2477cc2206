// Package export walks one epic or one whole project and produces a
// self-contained manifest plus the attachment blobs that go with it.
// Exports are pure reads: nothing in the source store is modified.
package export

import (
	"context"
	"time"

	"github.com/portagehq/portage/internal/db"
	apperrors "github.com/portagehq/portage/internal/errors"
	"github.com/portagehq/portage/internal/manifest"
)

// Blobs maps archive-relative paths (attachments/{ticketId}/{filename})
// to raw attachment bytes.
type Blobs map[string][]byte

// Exporter snapshots tracker entities into manifests.
type Exporter struct {
	store      *db.TrackerDB
	exportedBy string
	appVersion string
}

// New returns an Exporter that stamps manifests with the given
// exporter display name and application version.
func New(store *db.TrackerDB, exportedBy, appVersion string) *Exporter {
	return &Exporter{store: store, exportedBy: exportedBy, appVersion: appVersion}
}

// ByEpic exports a single epic: the epic row, every ticket in it, and
// every record hanging off those tickets.
func (e *Exporter) ByEpic(ctx context.Context, epicID string) (*manifest.Manifest, Blobs, error) {
	epic, err := e.store.GetEpic(epicID)
	if err != nil {
		return nil, nil, err
	}
	if epic == nil {
		return nil, nil, apperrors.ErrEpicNotFound(epicID)
	}
	project, err := e.store.GetProject(epic.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	if project == nil {
		return nil, nil, apperrors.ErrProjectNotFound(epic.ProjectID)
	}

	m := e.newManifest(manifest.ExportTypeEpic, project.Name)
	blobs := Blobs{}
	if err := e.snapshotEpic(m, epic); err != nil {
		return nil, nil, err
	}
	tickets, err := e.store.ListTicketsByEpic(epicID)
	if err != nil {
		return nil, nil, err
	}
	if err := e.snapshotTickets(ctx, m, blobs, tickets); err != nil {
		return nil, nil, err
	}
	return m, blobs, nil
}

// ByProject exports every epic in the project plus orphan tickets that
// belong to no epic. Orphans appear in the manifest with a null epic
// reference.
func (e *Exporter) ByProject(ctx context.Context, projectID string) (*manifest.Manifest, Blobs, error) {
	project, err := e.store.GetProject(projectID)
	if err != nil {
		return nil, nil, err
	}
	if project == nil {
		return nil, nil, apperrors.ErrProjectNotFound(projectID)
	}

	m := e.newManifest(manifest.ExportTypeProject, project.Name)
	blobs := Blobs{}
	epics, err := e.store.ListEpicsByProject(projectID)
	if err != nil {
		return nil, nil, err
	}
	for i := range epics {
		if err := e.snapshotEpic(m, &epics[i]); err != nil {
			return nil, nil, err
		}
	}
	tickets, err := e.store.ListTicketsByProject(projectID)
	if err != nil {
		return nil, nil, err
	}
	if err := e.snapshotTickets(ctx, m, blobs, tickets); err != nil {
		return nil, nil, err
	}
	return m, blobs, nil
}

func (e *Exporter) newManifest(exportType manifest.ExportType, projectName string) *manifest.Manifest {
	return &manifest.Manifest{
		Version:       manifest.Version,
		ExportType:    exportType,
		ExportedAt:    time.Now().UTC(),
		ExportedBy:    e.exportedBy,
		AppVersion:    e.appVersion,
		SourceProject: manifest.SourceProject{Name: projectName},
	}
}

func (e *Exporter) snapshotEpic(m *manifest.Manifest, epic *db.Epic) error {
	m.Epics = append(m.Epics, manifest.Epic{
		ID:          epic.ID,
		Title:       epic.Title,
		Description: epic.Description,
		Status:      epic.Status,
		CreatedAt:   epic.CreatedAt,
	})
	ws, err := e.store.GetEpicWorkflowState(epic.ID)
	if err != nil {
		return err
	}
	if ws != nil {
		m.EpicWorkflowStates = append(m.EpicWorkflowStates, manifest.EpicWorkflowState{
			EpicID:    ws.EpicID,
			Phase:     ws.Phase,
			State:     ws.State,
			UpdatedAt: ws.UpdatedAt,
		})
	}
	return nil
}

func (e *Exporter) snapshotTickets(ctx context.Context, m *manifest.Manifest, blobs Blobs, tickets []db.Ticket) error {
	for i := range tickets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.snapshotTicket(m, blobs, &tickets[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) snapshotTicket(m *manifest.Manifest, blobs Blobs, t *db.Ticket) error {
	m.Tickets = append(m.Tickets, manifest.Ticket{
		ID:          t.ID,
		EpicID:      t.EpicID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Tags:        t.Tags,
		CreatedAt:   t.CreatedAt,
	})

	comments, err := e.store.ListCommentsByTicket(t.ID)
	if err != nil {
		return err
	}
	for _, c := range comments {
		m.Comments = append(m.Comments, manifest.Comment{
			ID:         c.ID,
			TicketID:   c.TicketID,
			Author:     c.Author,
			AuthorType: string(c.AuthorType),
			Content:    c.Content,
			CreatedAt:  c.CreatedAt,
		})
	}

	findings, err := e.store.ListFindingsByTicket(t.ID)
	if err != nil {
		return err
	}
	for _, f := range findings {
		m.ReviewFindings = append(m.ReviewFindings, manifest.ReviewFinding{
			ID:          f.ID,
			TicketID:    f.TicketID,
			Severity:    f.Severity,
			File:        f.File,
			Line:        f.Line,
			Description: f.Description,
			Suggestion:  f.Suggestion,
			Status:      f.Status,
			CreatedAt:   f.CreatedAt,
		})
	}

	demos, err := e.store.ListDemoScriptsByTicket(t.ID)
	if err != nil {
		return err
	}
	for _, d := range demos {
		m.DemoScripts = append(m.DemoScripts, manifest.DemoScript{
			ID:        d.ID,
			TicketID:  d.TicketID,
			Title:     d.Title,
			Steps:     d.Steps,
			Status:    d.Status,
			CreatedAt: d.CreatedAt,
		})
	}

	ws, err := e.store.GetTicketWorkflowState(t.ID)
	if err != nil {
		return err
	}
	if ws != nil {
		m.WorkflowStates = append(m.WorkflowStates, manifest.WorkflowState{
			TicketID:  ws.TicketID,
			Phase:     ws.Phase,
			State:     ws.State,
			UpdatedAt: ws.UpdatedAt,
		})
	}

	atts, err := e.store.ListAttachments(t.ID)
	if err != nil {
		return err
	}
	for _, meta := range atts {
		full, err := e.store.GetAttachment(t.ID, meta.Filename)
		if err != nil {
			return err
		}
		if full == nil {
			continue
		}
		path := manifest.AttachmentPath(t.ID, meta.Filename)
		m.AttachmentFiles = append(m.AttachmentFiles, manifest.AttachmentFile{
			ArchivePath: path,
			TicketID:    t.ID,
			Filename:    meta.Filename,
		})
		blobs[path] = full.Data
	}
	return nil
}
