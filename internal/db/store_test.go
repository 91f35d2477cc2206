package db

import (
	"context"
	"errors"
	"testing"
)

func TestProjectCRUD(t *testing.T) {
	t.Parallel()
	tdb := NewTestDB(t)

	p := &Project{ID: "proj-1", Name: "Demo", Description: "demo project"}
	if err := tdb.SaveProject(p); err != nil {
		t.Fatalf("SaveProject failed: %v", err)
	}

	got, err := tdb.GetProject("proj-1")
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetProject returned nil")
	}
	if got.Name != "Demo" {
		t.Errorf("Name = %s, want Demo", got.Name)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	missing, err := tdb.GetProject("nope")
	if err != nil {
		t.Fatalf("GetProject(missing) failed: %v", err)
	}
	if missing != nil {
		t.Errorf("GetProject(missing) = %+v, want nil", missing)
	}

	projects, err := tdb.ListProjects()
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	if len(projects) != 1 {
		t.Errorf("ListProjects returned %d, want 1", len(projects))
	}

	if err := tdb.DeleteProject("proj-1"); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	got, err = tdb.GetProject("proj-1")
	if err != nil || got != nil {
		t.Errorf("after delete: got %+v, err %v", got, err)
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	tdb := NewTestDB(t)

	sentinel := errors.New("boom")
	err := tdb.RunInTx(context.Background(), func(tx *TxOps) error {
		if err := SaveProjectTx(tx, &Project{ID: "proj-tx", Name: "Tx"}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("RunInTx error = %v, want %v", err, sentinel)
	}

	got, err := tdb.GetProject("proj-tx")
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if got != nil {
		t.Error("project persisted despite rollback")
	}
}

func TestRunInTxCommits(t *testing.T) {
	t.Parallel()
	tdb := NewTestDB(t)

	err := tdb.RunInTx(context.Background(), func(tx *TxOps) error {
		return SaveProjectTx(tx, &Project{ID: "proj-ok", Name: "Committed"})
	})
	if err != nil {
		t.Fatalf("RunInTx failed: %v", err)
	}

	got, err := tdb.GetProject("proj-ok")
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if got == nil {
		t.Fatal("project not committed")
	}
}
