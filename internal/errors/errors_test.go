package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := ErrEpicNotFound("epic-1")
	if !stderrors.Is(err, ErrEpicNotFound("epic-2")) {
		t.Error("same-code errors should match with errors.Is")
	}
	if stderrors.Is(err, ErrProjectNotFound("proj-1")) {
		t.Error("different-code errors should not match")
	}
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := stderrors.New("zip: not a valid zip file")
	err := ErrInvalidArchive("not a valid archive").WithCause(cause)

	if !stderrors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if !strings.Contains(err.Error(), "not a valid archive") {
		t.Errorf("Error() = %q, want reason included", err.Error())
	}
	if !strings.Contains(err.Error(), cause.Error()) {
		t.Errorf("Error() = %q, want cause included", err.Error())
	}
}

func TestInvalidArchiveReasonVerbatim(t *testing.T) {
	for _, reason := range []string{
		"not a valid archive",
		"missing manifest",
		"corrupted",
		"incompatible manifest version",
	} {
		err := ErrInvalidArchive(reason)
		if !strings.Contains(err.What, reason) {
			t.Errorf("What = %q, want %q surfaced verbatim", err.What, reason)
		}
	}
}

func TestArchiveTooLargeReportsBothSizes(t *testing.T) {
	err := ErrArchiveTooLarge(200, 100)
	if !strings.Contains(err.What, "200") || !strings.Contains(err.What, "100") {
		t.Errorf("What = %q, want actual and max sizes", err.What)
	}
}

func TestAsPortageErrorThroughWrapping(t *testing.T) {
	inner := ErrProjectNotFound("proj-1")
	wrapped := fmt.Errorf("importing: %w", inner)

	perr := AsPortageError(wrapped)
	if perr == nil {
		t.Fatal("AsPortageError returned nil for wrapped PortageError")
	}
	if perr.Code != CodeProjectNotFound {
		t.Errorf("Code = %s, want %s", perr.Code, CodeProjectNotFound)
	}
	if AsPortageError(stderrors.New("plain")) != nil {
		t.Error("AsPortageError should return nil for plain errors")
	}
}

func TestUserMessageSections(t *testing.T) {
	err := ErrNotInitialized()
	msg := err.UserMessage()

	if !strings.HasPrefix(msg, "Error: "+err.What) {
		t.Errorf("UserMessage = %q, want What first", msg)
	}
	if !strings.Contains(msg, "Why: "+err.Why) {
		t.Errorf("UserMessage = %q, want Why section", msg)
	}
	if !strings.Contains(msg, "Fix: "+err.Fix) {
		t.Errorf("UserMessage = %q, want Fix section", msg)
	}

	bare := &PortageError{Code: Code("X"), What: "something broke"}
	if msg := bare.UserMessage(); strings.Contains(msg, "Why:") || strings.Contains(msg, "Fix:") {
		t.Errorf("UserMessage = %q, want no empty sections", msg)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, "opening tracker database")

	if !stderrors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if err.Code != Code("UNKNOWN") {
		t.Errorf("Code = %s, want UNKNOWN", err.Code)
	}
	if !strings.Contains(err.Error(), "opening tracker database") {
		t.Errorf("Error() = %q, want what included", err.Error())
	}
}

func TestHTTPStatus(t *testing.T) {
	if got := ErrEpicNotFound("e").HTTPStatus(); got != 404 {
		t.Errorf("not-found status = %d, want 404", got)
	}
	if got := ErrInvalidArchive("corrupted").HTTPStatus(); got != 400 {
		t.Errorf("bad-request status = %d, want 400", got)
	}
	if got := ErrAlreadyInitialized(".portage").HTTPStatus(); got != 409 {
		t.Errorf("conflict status = %d, want 409", got)
	}
}
