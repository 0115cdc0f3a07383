package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yukifiles/yukifiles/internal/registry"
	"github.com/yukifiles/yukifiles/pkg/snapshot"
)

// TestConfig holds test configuration
type TestConfig struct {
	SnapshotPath string
	StoragePath  string
}

// SetupTest creates a test environment with a temporary snapshot store and
// storage directory.
func SetupTest(t *testing.T) (*registry.Registry, *TestConfig, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "yukifiles-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}

	cfg := &TestConfig{
		SnapshotPath: filepath.Join(tmpDir, "snapshot.json"),
		StoragePath:  filepath.Join(tmpDir, "storage"),
	}
	cleanupTmpDir := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			t.Logf("Failed to remove temp directory %q: %v", tmpDir, err)
		}
	}

	store, err := snapshot.NewFileStore(cfg.SnapshotPath)
	if err != nil {
		cleanupTmpDir()
		t.Fatalf("Failed to open test snapshot store: %v", err)
	}

	reg, err := registry.Open(store, 1000)
	if err != nil {
		cleanupTmpDir()
		t.Fatalf("Failed to open test registry: %v", err)
	}

	if err := os.MkdirAll(cfg.StoragePath, 0750); err != nil {
		cleanupTmpDir()
		t.Fatalf("Failed to create storage directory: %v", err)
	}

	cleanup := func() {
		if err := reg.Close(); err != nil {
			t.Logf("Failed to close test registry: %v", err)
		}
		cleanupTmpDir()
	}

	return reg, cfg, cleanup
}
