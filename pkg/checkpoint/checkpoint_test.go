package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"emmakit/pkg/logger"
)

func TestCheckpointManager(t *testing.T) {
	dir := t.TempDir()
	seeds := []string{"nasa", "esa", "12345"}

	t.Run("CreateAndLoad", func(t *testing.T) {
		mgr, err := NewManager(dir, "follow-create", logger.NewNopLogger())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp, err := mgr.Create("run-1", seeds, "edges.tsv")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}
		if cp.Version != currentVersion {
			t.Errorf("Expected version %d, got %d", currentVersion, cp.Version)
		}

		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint: %v", err)
		}
		if loaded == nil {
			t.Fatal("Expected checkpoint, got nil")
		}
		if loaded.RunID != "run-1" || len(loaded.Seeds) != 3 || loaded.EdgeLog != "edges.tsv" {
			t.Errorf("Unexpected checkpoint: %+v", loaded)
		}
	})

	t.Run("RecordSeedAndFailure", func(t *testing.T) {
		mgr, err := NewManager(dir, "follow-progress", logger.NewNopLogger())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp, err := mgr.Create("run-2", seeds, "")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		if err := mgr.RecordFailure(cp, 11); err != nil {
			t.Fatalf("Failed to record failure: %v", err)
		}
		if err := mgr.RecordSeed(cp, 10, 4); err != nil {
			t.Fatalf("Failed to record seed: %v", err)
		}
		if err := mgr.RecordSeed(cp, 11, 2); err != nil {
			t.Fatalf("Failed to record seed: %v", err)
		}

		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint: %v", err)
		}
		if !loaded.IsCompleted(10) || !loaded.IsCompleted(11) {
			t.Error("Expected seeds 10 and 11 to be completed")
		}
		if loaded.IsCompleted(12) {
			t.Error("Seed 12 should not be completed")
		}
		if loaded.FailedSeeds[11] {
			t.Error("A completed seed should no longer be marked failed")
		}
		if loaded.EdgeCount != 6 {
			t.Errorf("Expected 6 edges, got %d", loaded.EdgeCount)
		}
	})

	t.Run("LoadMissing", func(t *testing.T) {
		mgr, err := NewManager(dir, "never-saved", logger.NewNopLogger())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		cp, err := mgr.Load()
		if err != nil || cp != nil {
			t.Errorf("Expected nil, nil for missing checkpoint, got %v, %v", cp, err)
		}
		if mgr.Exists() {
			t.Error("Checkpoint should not exist")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		mgr, err := NewManager(dir, "follow-delete", logger.NewNopLogger())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if _, err := mgr.Create("run-3", seeds, ""); err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}
		if !mgr.Exists() {
			t.Fatal("Checkpoint should exist")
		}
		if err := mgr.Delete(); err != nil {
			t.Fatalf("Failed to delete checkpoint: %v", err)
		}
		if mgr.Exists() {
			t.Error("Checkpoint should not exist after deletion")
		}
		if err := mgr.Delete(); err != nil {
			t.Errorf("Deleting a missing checkpoint should succeed: %v", err)
		}
	})
}

func TestAtomicSave(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, "atomic", logger.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	cp, err := mgr.Create("run", nil, "")
	if err != nil {
		t.Fatalf("Failed to create checkpoint: %v", err)
	}
	for i := int64(0); i < 10; i++ {
		if err := mgr.RecordSeed(cp, i, 1); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
	}

	if _, err := os.Stat(mgr.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should not remain after save")
	}
	if filepath.Dir(mgr.Path()) != dir {
		t.Errorf("Checkpoint written outside %s: %s", dir, mgr.Path())
	}
}

func TestNewerVersionRejected(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, "future", logger.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mgr.Path(), []byte(`{"run_id":"x","version":99}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Load(); err == nil {
		t.Error("Expected error for unsupported checkpoint version")
	}
}

func TestDefaultDataDirectory(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	mgr, err := NewManager("", "default-dir", logger.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(mgr.Path())); err != nil {
		t.Errorf("Checkpoint directory should exist: %v", err)
	}
}

func TestNameRequired(t *testing.T) {
	if _, err := NewManager(t.TempDir(), "", nil); err == nil {
		t.Error("Expected error for empty name")
	}
}
