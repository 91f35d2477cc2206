// Package importer places an exported manifest into a target project.
// Every entity gets a new identity, every foreign key is remapped, and
// the whole call commits or rolls back as one transaction.
package importer

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/portagehq/portage/internal/db"
	apperrors "github.com/portagehq/portage/internal/errors"
	"github.com/portagehq/portage/internal/manifest"
)

// SystemAuthor is the fixed author name on provenance comments.
const SystemAuthor = "portage"

// SharedByTagPrefix prefixes the provenance tag added to every
// imported ticket.
const SharedByTagPrefix = "shared-by:"

// Options controls one import call.
type Options struct {
	// ResetStatuses forces every imported ticket back to backlog
	// instead of preserving its exported status.
	ResetStatuses bool
	Mode          Mode
}

// Result is the ephemeral output of one import call. IDMap and
// EpicIDMap translate export-side IDs to the IDs the entities received
// in the target store.
type Result struct {
	Epics          int
	Tickets        int
	Comments       int
	Findings       int
	DemoScripts    int
	WorkflowStates int
	Attachments    int

	IDMap     map[string]string
	EpicIDMap map[string]string
	Warnings  []string
}

// Importer writes manifests into a tracker store.
type Importer struct {
	store *db.TrackerDB
}

func New(store *db.TrackerDB) *Importer {
	return &Importer{store: store}
}

// Import places the manifest's subgraph into targetProjectID under the
// given conflict mode. All-or-nothing: a failure at any phase rolls
// back every row written by this call.
func (im *Importer) Import(ctx context.Context, targetProjectID string, m *manifest.Manifest, blobs map[string][]byte, opts Options) (*Result, error) {
	project, err := im.store.GetProject(targetProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound(targetProjectID)
	}

	res := &Result{
		IDMap:     map[string]string{},
		EpicIDMap: map[string]string{},
	}
	run := func(tx *db.TxOps) error {
		return im.run(tx, targetProjectID, m, blobs, opts, res)
	}
	if err := im.store.RunInTx(ctx, run); err != nil {
		return nil, err
	}
	return res, nil
}

// run executes the import phases in their load-bearing order: epics
// and tickets first, so the ID map is complete before any dependent
// row is remapped through it.
func (im *Importer) run(tx *db.TxOps, projectID string, m *manifest.Manifest, blobs map[string][]byte, opts Options, res *Result) error {
	basePos, err := db.MaxTicketPositionTx(tx, projectID)
	if err != nil {
		return err
	}
	p := &placement{
		tx:       tx,
		project:  projectID,
		m:        m,
		opts:     opts,
		res:      res,
		nextPos:  basePos + 1,
		byEpic:   groupTickets(m.Tickets),
		provTag:  SharedByTagPrefix + m.ExportedBy,
		provText: fmt.Sprintf("Imported from project %q by %s.", m.SourceProject.Name, m.ExportedBy),
	}

	for i := range m.Epics {
		if err := p.placeEpic(&m.Epics[i]); err != nil {
			return err
		}
	}
	// Orphan tickets form a synthetic no-epic group; their placement
	// always follows create-new semantics.
	for i := range p.byEpic[""] {
		if err := p.insertTicket(&p.byEpic[""][i], nil); err != nil {
			return err
		}
	}

	if err := im.importComments(tx, m, res); err != nil {
		return err
	}
	if err := im.importFindings(tx, m, res); err != nil {
		return err
	}
	if err := im.importDemoScripts(tx, m, res); err != nil {
		return err
	}
	if err := im.importWorkflowStates(tx, m, res); err != nil {
		return err
	}
	return im.importAttachments(tx, m, blobs, res)
}

// placement carries the mutable state of the ticket phase.
type placement struct {
	tx       *db.TxOps
	project  string
	m        *manifest.Manifest
	opts     Options
	res      *Result
	nextPos  int
	byEpic   map[string][]manifest.Ticket
	provTag  string
	provText string
}

func (p *placement) placeEpic(src *manifest.Epic) error {
	var targetID string
	var mergeTarget bool
	var err error

	switch p.opts.Mode {
	case ModeCreateNew:
		targetID, err = p.createEpic(src)
	case ModeReplace:
		targetID, err = p.replaceEpic(src)
	case ModeMerge:
		targetID, mergeTarget, err = p.mergeEpic(src)
	default:
		err = fmt.Errorf("unknown conflict mode %d", p.opts.Mode)
	}
	if err != nil {
		return err
	}
	p.res.EpicIDMap[src.ID] = targetID

	for i := range p.byEpic[src.ID] {
		t := &p.byEpic[src.ID][i]
		if mergeTarget {
			if err := p.upsertTicket(t, targetID); err != nil {
				return err
			}
			continue
		}
		if err := p.insertTicket(t, &targetID); err != nil {
			return err
		}
	}
	return nil
}

// createEpic inserts a new epic row under a fresh ID. A title
// collision in the target project is disambiguated with a
// "(from <exportedBy>)" suffix so both epics stay distinguishable.
func (p *placement) createEpic(src *manifest.Epic) (string, error) {
	title := src.Title
	existing, err := db.FindEpicByTitleTx(p.tx, p.project, title)
	if err != nil {
		return "", err
	}
	if existing != nil {
		title = fmt.Sprintf("%s (from %s)", title, p.m.ExportedBy)
	}
	id := uuid.NewString()
	err = db.SaveEpicTx(p.tx, &db.Epic{
		ID:          id,
		ProjectID:   p.project,
		Title:       title,
		Description: src.Description,
		Status:      src.Status,
		CreatedAt:   src.CreatedAt,
	})
	if err != nil {
		return "", err
	}
	p.res.Epics++
	return id, nil
}

// replaceEpic reuses a same-title epic's row after deleting its
// tickets, which cascade to their comments, findings, demos, workflow
// states, and attachments. No same-title epic means create-new.
func (p *placement) replaceEpic(src *manifest.Epic) (string, error) {
	existing, err := db.FindEpicByTitleTx(p.tx, p.project, src.Title)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return p.createEpic(src)
	}
	if err := db.DeleteEpicTicketsTx(p.tx, existing.ID); err != nil {
		return "", err
	}
	existing.Description = src.Description
	existing.Status = src.Status
	if err := db.SaveEpicTx(p.tx, existing); err != nil {
		return "", err
	}
	p.res.Epics++
	return existing.ID, nil
}

// mergeEpic reuses the same-title epic's ID without writing an epic
// row; its tickets get in-place title matching. No same-title epic
// means create-new, and the epic's tickets all insert fresh.
func (p *placement) mergeEpic(src *manifest.Epic) (string, bool, error) {
	existing, err := db.FindEpicByTitleTx(p.tx, p.project, src.Title)
	if err != nil {
		return "", false, err
	}
	if existing == nil {
		id, err := p.createEpic(src)
		return id, false, err
	}
	return existing.ID, true, nil
}

// insertTicket places one ticket as a brand-new row. epicID is nil for
// orphans.
func (p *placement) insertTicket(src *manifest.Ticket, epicID *string) error {
	id := uuid.NewString()
	t := &db.Ticket{
		ID:          id,
		ProjectID:   p.project,
		EpicID:      epicID,
		Title:       src.Title,
		Description: src.Description,
		Status:      src.Status,
		Priority:    src.Priority,
		Tags:        src.Tags,
		CreatedAt:   src.CreatedAt,
	}
	return p.finishTicket(src.ID, t)
}

// upsertTicket implements merge semantics inside an existing epic:
// an exact-title match updates the existing row in place and maps the
// export ID to the pre-existing target ID; no match inserts fresh.
// Title equality is a deliberate heuristic and can misfire on
// duplicate or renamed titles.
func (p *placement) upsertTicket(src *manifest.Ticket, epicID string) error {
	existing, err := db.FindTicketByTitleTx(p.tx, epicID, src.Title)
	if err != nil {
		return err
	}
	if existing == nil {
		return p.insertTicket(src, &epicID)
	}
	existing.Description = src.Description
	existing.Status = src.Status
	existing.Priority = src.Priority
	existing.Tags = src.Tags
	return p.finishTicket(src.ID, existing)
}

// finishTicket applies the mode-independent rules to a ticket about to
// be written: provenance tag, position after all existing tickets,
// optional status reset, and the provenance comment.
func (p *placement) finishTicket(exportID string, t *db.Ticket) error {
	if !slices.Contains(t.Tags, p.provTag) {
		t.Tags = append(t.Tags, p.provTag)
	}
	t.Position = p.nextPos
	p.nextPos++
	if p.opts.ResetStatuses {
		t.Status = db.StatusBacklog
	}
	if err := db.SaveTicketTx(p.tx, t); err != nil {
		return err
	}
	p.res.IDMap[exportID] = t.ID
	p.res.Tickets++

	err := db.SaveCommentTx(p.tx, &db.Comment{
		TicketID:   t.ID,
		Author:     SystemAuthor,
		AuthorType: db.AuthorTypeSystem,
		Content:    p.provText,
	})
	if err != nil {
		p.res.Warnings = append(p.res.Warnings,
			fmt.Sprintf("provenance comment for ticket %q not written: %v", t.Title, err))
	}
	return nil
}

func (im *Importer) importComments(tx *db.TxOps, m *manifest.Manifest, res *Result) error {
	for i := range m.Comments {
		c := &m.Comments[i]
		ticketID, ok := res.IDMap[c.TicketID]
		if !ok {
			return remapViolation("comment", c.ID, c.TicketID)
		}
		err := db.SaveCommentTx(tx, &db.Comment{
			TicketID:   ticketID,
			Author:     c.Author,
			AuthorType: db.AuthorType(c.AuthorType),
			Content:    c.Content,
			CreatedAt:  c.CreatedAt,
		})
		if err != nil {
			return err
		}
		res.Comments++
	}
	return nil
}

func (im *Importer) importFindings(tx *db.TxOps, m *manifest.Manifest, res *Result) error {
	for i := range m.ReviewFindings {
		f := &m.ReviewFindings[i]
		ticketID, ok := res.IDMap[f.TicketID]
		if !ok {
			return remapViolation("review finding", f.ID, f.TicketID)
		}
		err := db.SaveFindingTx(tx, &db.ReviewFinding{
			ID:          uuid.NewString(),
			TicketID:    ticketID,
			Severity:    f.Severity,
			File:        f.File,
			Line:        f.Line,
			Description: f.Description,
			Suggestion:  f.Suggestion,
			Status:      f.Status,
			CreatedAt:   f.CreatedAt,
		})
		if err != nil {
			return err
		}
		res.Findings++
	}
	return nil
}

func (im *Importer) importDemoScripts(tx *db.TxOps, m *manifest.Manifest, res *Result) error {
	for i := range m.DemoScripts {
		d := &m.DemoScripts[i]
		ticketID, ok := res.IDMap[d.TicketID]
		if !ok {
			return remapViolation("demo script", d.ID, d.TicketID)
		}
		err := db.SaveDemoScriptTx(tx, &db.DemoScript{
			ID:        uuid.NewString(),
			TicketID:  ticketID,
			Title:     d.Title,
			Steps:     d.Steps,
			Status:    d.Status,
			CreatedAt: d.CreatedAt,
		})
		if err != nil {
			return err
		}
		res.DemoScripts++
	}
	return nil
}

func (im *Importer) importWorkflowStates(tx *db.TxOps, m *manifest.Manifest, res *Result) error {
	for i := range m.WorkflowStates {
		s := &m.WorkflowStates[i]
		ticketID, ok := res.IDMap[s.TicketID]
		if !ok {
			return remapViolation("workflow state", s.TicketID, s.TicketID)
		}
		err := db.SaveTicketWorkflowStateTx(tx, &db.TicketWorkflowState{
			TicketID:  ticketID,
			Phase:     s.Phase,
			State:     s.State,
			UpdatedAt: s.UpdatedAt,
		})
		if err != nil {
			return err
		}
		res.WorkflowStates++
	}
	for i := range m.EpicWorkflowStates {
		s := &m.EpicWorkflowStates[i]
		epicID, ok := res.EpicIDMap[s.EpicID]
		if !ok {
			return remapViolation("epic workflow state", s.EpicID, s.EpicID)
		}
		err := db.SaveEpicWorkflowStateTx(tx, &db.EpicWorkflowState{
			EpicID:    epicID,
			Phase:     s.Phase,
			State:     s.State,
			UpdatedAt: s.UpdatedAt,
		})
		if err != nil {
			return err
		}
		res.WorkflowStates++
	}
	return nil
}

func (im *Importer) importAttachments(tx *db.TxOps, m *manifest.Manifest, blobs map[string][]byte, res *Result) error {
	for i := range m.AttachmentFiles {
		af := &m.AttachmentFiles[i]
		ticketID, ok := res.IDMap[af.TicketID]
		if !ok {
			return remapViolation("attachment", af.ArchivePath, af.TicketID)
		}
		data, ok := blobs[af.ArchivePath]
		if !ok {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("attachment %q listed in manifest but missing from archive", af.ArchivePath))
			continue
		}
		err := db.SaveAttachmentTx(tx, &db.Attachment{
			TicketID: ticketID,
			Filename: af.Filename,
			Data:     data,
		})
		if err != nil {
			return err
		}
		res.Attachments++
	}
	return nil
}

// remapViolation reports a dependent row whose ticket or epic is
// absent from the ID map. The exporter builds manifests so this cannot
// happen; hitting it means the manifest was assembled by hand or the
// phase ordering broke, and the transaction must abort rather than
// drop the record.
func remapViolation(kind, id, ref string) error {
	return fmt.Errorf("%s %s references %s which is not in the import ID map", kind, id, ref)
}

// groupTickets buckets tickets by their source epic ID, preserving
// manifest order. Orphans land under the empty key.
func groupTickets(tickets []manifest.Ticket) map[string][]manifest.Ticket {
	groups := map[string][]manifest.Ticket{}
	for _, t := range tickets {
		key := ""
		if t.EpicID != nil {
			key = *t.EpicID
		}
		groups[key] = append(groups[key], t)
	}
	return groups
}
