package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The manifest field names are the wire format; renaming a Go field
// must not silently rename a JSON key.
func TestWireFieldNames(t *testing.T) {
	t.Parallel()
	m := Manifest{Version: Version, ExportType: ExportTypeEpic}
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{
		"version", "exportType", "exportedAt", "exportedBy", "appVersion",
		"sourceProject", "epics", "tickets", "comments", "reviewFindings",
		"demoScripts", "workflowStates", "epicWorkflowStates", "attachmentFiles",
	} {
		assert.Contains(t, raw, key)
	}
}

func TestAttachmentPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "attachments/tick-1/shot.png", AttachmentPath("tick-1", "shot.png"))
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	m := Manifest{
		Version:       Version,
		ExportType:    ExportTypeProject,
		ExportedBy:    "alice",
		SourceProject: SourceProject{Name: "Source"},
		Epics:         []Epic{{Title: "Auth"}, {Title: "Billing"}},
		Tickets:       []Ticket{{}, {}, {}},
		Comments:      []Comment{{}},
	}
	s := m.Summarize()
	assert.Equal(t, []string{"Auth", "Billing"}, s.EpicTitles)
	assert.Equal(t, 3, s.Tickets)
	assert.Equal(t, 1, s.Comments)
	assert.Equal(t, "Source", s.SourceProject)
	assert.Equal(t, "alice", s.ExportedBy)
}
