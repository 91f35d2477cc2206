// Package manifest defines the versioned, language-agnostic schema for
// one exported entity subgraph. A Manifest is created fresh on every
// export, is never mutated afterward, and is consumed once by one
// import call.
//
// Field names are part of the wire format and must not change without
// bumping Version. Values are JSON-compatible only: objects, arrays,
// strings, numbers, booleans, null; timestamps are ISO-8601 strings.
package manifest

import "time"

// Version is the manifest format version this implementation produces
// and accepts. Readers reject any other version outright; there is no
// cross-version migration.
const Version = 1

// AttachmentDir is the archive namespace holding attachment entries.
const AttachmentDir = "attachments"

// ExportType identifies the scope of an export.
type ExportType string

const (
	ExportTypeEpic    ExportType = "epic"
	ExportTypeProject ExportType = "project"
)

// Manifest is the root transfer unit: a denormalized snapshot of one
// epic or one whole project with every dependent record.
//
// Invariant: every foreign key inside the collections (a ticket's
// epicId, a comment's/finding's/demo's ticketId) references an ID
// present in the same manifest. The exporter guarantees this by
// construction; the importer re-establishes it under new IDs.
type Manifest struct {
	Version    int        `json:"version"`
	ExportType ExportType `json:"exportType"`
	ExportedAt time.Time  `json:"exportedAt"`
	ExportedBy string     `json:"exportedBy"`
	AppVersion string     `json:"appVersion"`

	SourceProject SourceProject `json:"sourceProject"`

	Epics              []Epic              `json:"epics"`
	Tickets            []Ticket            `json:"tickets"`
	Comments           []Comment           `json:"comments"`
	ReviewFindings     []ReviewFinding     `json:"reviewFindings"`
	DemoScripts        []DemoScript        `json:"demoScripts"`
	WorkflowStates     []WorkflowState     `json:"workflowStates"`
	EpicWorkflowStates []EpicWorkflowState `json:"epicWorkflowStates"`
	AttachmentFiles    []AttachmentFile    `json:"attachmentFiles"`
}

// SourceProject identifies the project the export came from.
type SourceProject struct {
	Name string `json:"name"`
}

// Epic is an exported epic snapshot.
type Epic struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Ticket is an exported ticket snapshot. Machine-local fields of the
// live row (git branch, PR number/URL/status, linked file paths) are
// excluded by design: they encode repository-local state that is
// meaningless once the ticket moves to a different project or machine.
type Ticket struct {
	ID          string    `json:"id"`
	EpicID      *string   `json:"epicId"` // null for orphan tickets
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Comment is an exported comment snapshot.
type Comment struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticketId"`
	Author     string    `json:"author"`
	AuthorType string    `json:"authorType"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ReviewFinding is an exported review-finding snapshot.
type ReviewFinding struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticketId"`
	Severity    string    `json:"severity"`
	File        string    `json:"file,omitempty"`
	Line        int       `json:"line,omitempty"`
	Description string    `json:"description"`
	Suggestion  string    `json:"suggestion,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DemoScript is an exported demo-script snapshot.
type DemoScript struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticketId"`
	Title     string    `json:"title"`
	Steps     []string  `json:"steps,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// WorkflowState is an exported per-ticket workflow snapshot. State is
// an opaque JSON document carried verbatim.
type WorkflowState struct {
	TicketID  string    `json:"ticketId"`
	Phase     string    `json:"phase,omitempty"`
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EpicWorkflowState is an exported per-epic workflow snapshot.
type EpicWorkflowState struct {
	EpicID    string    `json:"epicId"`
	Phase     string    `json:"phase,omitempty"`
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AttachmentFile indexes one attachment blob inside the archive. The
// blob itself lives at ArchivePath in the container, not in the
// manifest.
type AttachmentFile struct {
	ArchivePath string `json:"archivePath"`
	TicketID    string `json:"ticketId"`
	Filename    string `json:"filename"`
}

// Normalize replaces nil collection slices with empty ones. On the
// wire every collection field is an array, never null; non-Go readers
// depend on that.
func (m *Manifest) Normalize() {
	if m.Epics == nil {
		m.Epics = []Epic{}
	}
	if m.Tickets == nil {
		m.Tickets = []Ticket{}
	}
	if m.Comments == nil {
		m.Comments = []Comment{}
	}
	if m.ReviewFindings == nil {
		m.ReviewFindings = []ReviewFinding{}
	}
	if m.DemoScripts == nil {
		m.DemoScripts = []DemoScript{}
	}
	if m.WorkflowStates == nil {
		m.WorkflowStates = []WorkflowState{}
	}
	if m.EpicWorkflowStates == nil {
		m.EpicWorkflowStates = []EpicWorkflowState{}
	}
	if m.AttachmentFiles == nil {
		m.AttachmentFiles = []AttachmentFile{}
	}
}

// AttachmentPath synthesizes the archive-relative path for a ticket's
// attachment: attachments/{ticketId}/{filename}.
func AttachmentPath(ticketID, filename string) string {
	return AttachmentDir + "/" + ticketID + "/" + filename
}

// Summary is a lightweight description of an archive's contents, used
// by the preview path so callers can show "what's in this file" before
// committing to a full extraction.
type Summary struct {
	Version       int        `json:"version"`
	ExportType    ExportType `json:"exportType"`
	ExportedAt    time.Time  `json:"exportedAt"`
	ExportedBy    string     `json:"exportedBy"`
	AppVersion    string     `json:"appVersion"`
	SourceProject string     `json:"sourceProject"`
	EpicTitles    []string   `json:"epicTitles"`
	Tickets       int        `json:"tickets"`
	Comments      int        `json:"comments"`
	Findings      int        `json:"findings"`
	DemoScripts   int        `json:"demoScripts"`
	Attachments   int        `json:"attachments"`
}

// Summarize builds a Summary from a parsed manifest.
func (m *Manifest) Summarize() Summary {
	titles := make([]string, 0, len(m.Epics))
	for _, e := range m.Epics {
		titles = append(titles, e.Title)
	}
	return Summary{
		Version:       m.Version,
		ExportType:    m.ExportType,
		ExportedAt:    m.ExportedAt,
		ExportedBy:    m.ExportedBy,
		AppVersion:    m.AppVersion,
		SourceProject: m.SourceProject.Name,
		EpicTitles:    titles,
		Tickets:       len(m.Tickets),
		Comments:      len(m.Comments),
		Findings:      len(m.ReviewFindings),
		DemoScripts:   len(m.DemoScripts),
		Attachments:   len(m.AttachmentFiles),
	}
}
