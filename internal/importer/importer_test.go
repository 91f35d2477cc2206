package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portagehq/portage/internal/db"
	apperrors "github.com/portagehq/portage/internal/errors"
	"github.com/portagehq/portage/internal/export"
	"github.com/portagehq/portage/internal/manifest"
)

// exportAuthEpic seeds a source tracker with epic "Auth" (two tickets,
// one comment, one finding, one demo, workflow state, one attachment)
// plus an orphan ticket, and exports the epic.
func exportAuthEpic(t *testing.T) (*manifest.Manifest, export.Blobs) {
	t.Helper()
	src := db.NewTestDB(t)
	require.NoError(t, src.SaveProject(&db.Project{ID: "src", Name: "Source"}))
	require.NoError(t, src.SaveEpic(&db.Epic{ID: "epic-1", ProjectID: "src", Title: "Auth"}))

	epicID := "epic-1"
	require.NoError(t, src.SaveTicket(&db.Ticket{
		ID: "tick-1", ProjectID: "src", EpicID: &epicID,
		Title: "Add login", Status: "in-progress", Priority: "high", Tags: []string{"auth"},
	}))
	require.NoError(t, src.SaveTicket(&db.Ticket{
		ID: "tick-2", ProjectID: "src", EpicID: &epicID, Title: "Add logout",
	}))
	require.NoError(t, src.SaveComment(&db.Comment{TicketID: "tick-1", Author: "ann", Content: "ship it"}))
	require.NoError(t, src.SaveFinding(&db.ReviewFinding{
		ID: "find-1", TicketID: "tick-1", Severity: "minor", Description: "nit",
	}))
	require.NoError(t, src.SaveDemoScript(&db.DemoScript{
		ID: "demo-1", TicketID: "tick-2", Title: "Logout demo", Steps: []string{"click logout"},
	}))
	require.NoError(t, src.SaveTicketWorkflowState(&db.TicketWorkflowState{
		TicketID: "tick-1", Phase: "review", State: `{"step":2}`,
	}))
	require.NoError(t, src.SaveEpicWorkflowState(&db.EpicWorkflowState{
		EpicID: "epic-1", Phase: "active", State: `{}`,
	}))
	require.NoError(t, src.SaveAttachment(&db.Attachment{
		TicketID: "tick-1", Filename: "shot.png", Data: []byte("png"),
	}))

	m, blobs, err := export.New(src, "alice", "0.1.0").ByEpic(context.Background(), "epic-1")
	require.NoError(t, err)
	return m, blobs
}

func newTarget(t *testing.T) *db.TrackerDB {
	t.Helper()
	target := db.NewTestDB(t)
	require.NoError(t, target.SaveProject(&db.Project{ID: "dst", Name: "Target"}))
	return target
}

func TestImportRoundTripCreateNew(t *testing.T) {
	t.Parallel()
	m, blobs := exportAuthEpic(t)
	target := newTarget(t)

	res, err := New(target).Import(context.Background(), "dst", m, blobs, Options{Mode: ModeCreateNew})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Epics)
	assert.Equal(t, 2, res.Tickets)
	assert.Equal(t, 1, res.Comments)
	assert.Equal(t, 1, res.Findings)
	assert.Equal(t, 1, res.DemoScripts)
	assert.Equal(t, 2, res.WorkflowStates)
	assert.Equal(t, 1, res.Attachments)
	assert.Empty(t, res.Warnings)

	// Every ticket got a new identity.
	require.Len(t, res.IDMap, 2)
	for old, now := range res.IDMap {
		assert.NotEqual(t, old, now)
	}

	newID := res.IDMap["tick-1"]
	tk, err := target.GetTicket(newID)
	require.NoError(t, err)
	require.NotNil(t, tk)
	assert.Equal(t, "Add login", tk.Title)
	assert.Equal(t, "in-progress", tk.Status)
	assert.Equal(t, "high", tk.Priority)
	assert.Contains(t, tk.Tags, "auth", "original tags preserved")
	assert.Contains(t, tk.Tags, "shared-by:alice")

	// Provenance comment plus the exported one.
	comments, err := target.ListCommentsByTicket(newID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	var prov *db.Comment
	for i := range comments {
		if comments[i].AuthorType == db.AuthorTypeSystem {
			prov = &comments[i]
		}
	}
	require.NotNil(t, prov, "provenance comment missing")
	assert.Equal(t, SystemAuthor, prov.Author)
	assert.Contains(t, prov.Content, "Source")
	assert.Contains(t, prov.Content, "alice")

	// Findings and demos landed on remapped tickets.
	findings, err := target.ListFindingsByTicket(newID)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	demos, err := target.ListDemoScriptsByTicket(res.IDMap["tick-2"])
	require.NoError(t, err)
	require.Len(t, demos, 1)

	ws, err := target.GetTicketWorkflowState(newID)
	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Equal(t, `{"step":2}`, ws.State)

	att, err := target.GetAttachment(newID, "shot.png")
	require.NoError(t, err)
	require.NotNil(t, att)
	assert.Equal(t, []byte("png"), att.Data)
}

func TestImportedTicketsSortAfterExisting(t *testing.T) {
	t.Parallel()
	m, blobs := exportAuthEpic(t)
	target := newTarget(t)
	require.NoError(t, target.SaveTicket(&db.Ticket{
		ID: "old-1", ProjectID: "dst", Title: "Existing", Position: 5,
	}))

	res, err := New(target).Import(context.Background(), "dst", m, blobs, Options{Mode: ModeCreateNew})
	require.NoError(t, err)

	for _, newID := range res.IDMap {
		tk, err := target.GetTicket(newID)
		require.NoError(t, err)
		assert.Greater(t, tk.Position, 5)
	}
}

func TestCreateNewTwiceDisambiguatesTitles(t *testing.T) {
	t.Parallel()
	m, blobs := exportAuthEpic(t)
	target := newTarget(t)
	imp := New(target)

	_, err := imp.Import(context.Background(), "dst", m, blobs, Options{Mode: ModeCreateNew})
	require.NoError(t, err)
	_, err = imp.Import(context.Background(), "dst", m, blobs, Options{Mode: ModeCreateNew})
	require.NoError(t, err)

	epics, err := target.ListEpicsByProject("dst")
	require.NoError(t, err)
	require.Len(t, epics, 2)

	titles := []string{epics[0].Title, epics[1].Title}
	assert.Contains(t, titles, "Auth")
	assert.Contains(t, titles, "Auth (from alice)")
}

func TestReplaceRemovesStaleTickets(t *testing.T) {
	t.Parallel()
	m, blobs := exportAuthEpic(t)
	target := newTarget(t)

	// Target already has an epic "Auth" with one stale ticket.
	require.NoError(t, target.SaveEpic(&db.Epic{ID: "old-epic", ProjectID: "dst", Title: "Auth"}))
	oldEpic := "old-epic"
	require.NoError(t, target.SaveTicket(&db.Ticket{
		ID: "stale-1", ProjectID: "dst", EpicID: &oldEpic, Title: "Old login",
	}))

	res, err := New(target).Import(context.Background(), "dst", m, blobs, Options{Mode: ModeReplace})
	require.NoError(t, err)

	epics, err := target.ListEpicsByProject("dst")
	require.NoError(t, err)
	require.Len(t, epics, 1, "replace must reuse the existing epic row")
	assert.Equal(t, "old-epic", epics[0].ID)
	assert.Equal(t, "Auth", epics[0].Title)

	tickets, err := target.ListTicketsByEpic("old-epic")
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	for _, tk := range tickets {
		assert.NotEqual(t, "stale-1", tk.ID)
	}
	assert.Equal(t, "old-epic", res.EpicIDMap["epic-1"])
}

func TestReplaceWithoutMatchFallsBackToCreateNew(t *testing.T) {
	t.Parallel()
	m, blobs := exportAuthEpic(t)
	target := newTarget(t)

	res, err := New(target).Import(context.Background(), "dst", m, blobs, Options{Mode: ModeReplace})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Epics)

	epics, err := target.ListEpicsByProject("dst")
	require.NoError(t, err)
	require.Len(t, epics, 1)
	assert.Equal(t, "Auth", epics[0].Title)
}

func TestMergeReusesExistingIDs(t *testing.T) {
	t.Parallel()
	m, blobs := exportAuthEpic(t)
	target := newTarget(t)

	require.NoError(t, target.SaveEpic(&db.Epic{ID: "old-epic", ProjectID: "dst", Title: "Auth"}))
	oldEpic := "old-epic"
	require.NoError(t, target.SaveTicket(&db.Ticket{
		ID: "old-login", ProjectID: "dst", EpicID: &oldEpic,
		Title: "Add login", Description: "stale text", Status: "done",
	}))

	res, err := New(target).Import(context.Background(), "dst", m, blobs, Options{Mode: ModeMerge})
	require.NoError(t, err)

	// Same-title ticket updated in place: the ID map points at the
	// pre-existing target ID.
	assert.Equal(t, "old-login", res.IDMap["tick-1"])
	assert.Equal(t, "old-epic", res.EpicIDMap["epic-1"])
	assert.Equal(t, 0, res.Epics, "merge into an existing epic writes no epic row")

	tk, err := target.GetTicket("old-login")
	require.NoError(t, err)
	assert.Equal(t, "in-progress", tk.Status, "content updated from the manifest")

	// The unmatched ticket inserted fresh.
	assert.NotEqual(t, "tick-2", res.IDMap["tick-2"])
	tickets, err := target.ListTicketsByEpic("old-epic")
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
}

func TestResetStatuses(t *testing.T) {
	t.Parallel()
	m, blobs := exportAuthEpic(t)
	target := newTarget(t)

	res, err := New(target).Import(context.Background(), "dst", m, blobs, Options{
		Mode:          ModeCreateNew,
		ResetStatuses: true,
	})
	require.NoError(t, err)

	for _, newID := range res.IDMap {
		tk, err := target.GetTicket(newID)
		require.NoError(t, err)
		assert.Equal(t, db.StatusBacklog, tk.Status)
	}
}

func TestRemapViolationAbortsAtomically(t *testing.T) {
	t.Parallel()
	m, blobs := exportAuthEpic(t)
	// A finding referencing a ticket absent from the manifest breaks
	// the exporter's invariant.
	m.ReviewFindings = append(m.ReviewFindings, manifest.ReviewFinding{
		ID: "find-bad", TicketID: "ghost", Severity: "major", Description: "dangling",
	})
	target := newTarget(t)

	_, err := New(target).Import(context.Background(), "dst", m, blobs, Options{Mode: ModeCreateNew})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")

	// Nothing from the failed call persisted.
	epics, err := target.ListEpicsByProject("dst")
	require.NoError(t, err)
	assert.Empty(t, epics)
	tickets, err := target.ListTicketsByProject("dst")
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestMissingBlobIsWarningNotError(t *testing.T) {
	t.Parallel()
	m, blobs := exportAuthEpic(t)
	delete(blobs, "attachments/tick-1/shot.png")
	target := newTarget(t)

	res, err := New(target).Import(context.Background(), "dst", m, blobs, Options{Mode: ModeCreateNew})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Attachments)
	require.Len(t, res.Warnings, 1)
	assert.True(t, strings.Contains(res.Warnings[0], "shot.png"))
}

func TestImportIntoMissingProject(t *testing.T) {
	t.Parallel()
	m, blobs := exportAuthEpic(t)
	target := db.NewTestDB(t)

	_, err := New(target).Import(context.Background(), "nope", m, blobs, Options{Mode: ModeCreateNew})
	assert.ErrorIs(t, err, apperrors.ErrProjectNotFound("nope"))
}

func TestEmptyManifestImportsNothing(t *testing.T) {
	t.Parallel()
	target := newTarget(t)
	m := &manifest.Manifest{
		Version:       manifest.Version,
		ExportType:    manifest.ExportTypeProject,
		ExportedBy:    "alice",
		SourceProject: manifest.SourceProject{Name: "Source"},
	}

	res, err := New(target).Import(context.Background(), "dst", m, nil, Options{Mode: ModeCreateNew})
	require.NoError(t, err)
	assert.Zero(t, res.Epics)
	assert.Zero(t, res.Tickets)
	assert.Empty(t, res.Warnings)
}

func TestOrphanTicketsImportWithoutEpic(t *testing.T) {
	t.Parallel()
	target := newTarget(t)
	m := &manifest.Manifest{
		Version:       manifest.Version,
		ExportType:    manifest.ExportTypeProject,
		ExportedBy:    "alice",
		SourceProject: manifest.SourceProject{Name: "Source"},
		Tickets: []manifest.Ticket{
			{ID: "tick-1", Title: "Loose end", Status: "backlog", Priority: "normal"},
		},
	}

	res, err := New(target).Import(context.Background(), "dst", m, nil, Options{Mode: ModeMerge})
	require.NoError(t, err)
	require.Equal(t, 1, res.Tickets)

	tk, err := target.GetTicket(res.IDMap["tick-1"])
	require.NoError(t, err)
	require.NotNil(t, tk)
	assert.Nil(t, tk.EpicID)
	assert.Contains(t, tk.Tags, "shared-by:alice")
}
