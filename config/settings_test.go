package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveTunables_CreatesStoragesDirOnFirstBoot(t *testing.T) {
	origPath := PathStorages
	origTTL := CacheResponsesTTL
	t.Cleanup(func() {
		PathStorages = origPath
		CacheResponsesTTL = origTTL
	})

	// A directory that does not exist yet, as on a fresh deployment.
	PathStorages = filepath.Join(t.TempDir(), "storages")

	if err := SaveTunables(map[string]int{"cache_responses_ttl_seconds": 7200}); err != nil {
		t.Fatalf("SaveTunables() unexpected error: %v", err)
	}
	if CacheResponsesTTL != 2*time.Hour {
		t.Fatalf("CacheResponsesTTL = %v after save, want 2h", CacheResponsesTTL)
	}
	if _, err := os.Stat(filepath.Join(PathStorages, "azshield.db")); err != nil {
		t.Fatalf("settings db not created: %v", err)
	}

	// A restart re-reads the persisted override.
	CacheResponsesTTL = time.Hour
	loadTunablesFromDB()
	if CacheResponsesTTL != 2*time.Hour {
		t.Fatalf("CacheResponsesTTL = %v after reload, want 2h", CacheResponsesTTL)
	}
}
