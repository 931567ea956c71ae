package save

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"villagekeep/internal/sim/village"
)

// Load reads the primary snapshot. A missing file yields the supplied
// defaults; a corrupt file is moved aside to a .corrupt-<ts> backup
// before yielding defaults. Load never fails to the caller.
func (s *Serializer) Load(defaults *village.State) *village.State {
	if defaults == nil {
		defaults = village.New()
	}
	path := filepath.Join(s.dir, SnapshotFile)

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logf("read snapshot: %v; starting from defaults", err)
		}
		defaults.RebuildIndex()
		return defaults
	}

	st := village.New()
	if err := json.Unmarshal(b, st); err != nil {
		backup := path + ".corrupt-" + time.Now().UTC().Format("20060102T150405Z")
		if renameErr := os.Rename(path, backup); renameErr == nil {
			s.logf("corrupt snapshot moved to %s: %v", backup, err)
		} else {
			s.logf("corrupt snapshot (backup failed: %v): %v", renameErr, err)
		}
		defaults.RebuildIndex()
		return defaults
	}
	st.RebuildIndex()
	return st
}

// ResetToDefault copies the bundled default snapshot over the canonical
// save. Callers are expected to follow with a reload.
func (s *Serializer) ResetToDefault(defaultPath string) error {
	b, err := os.ReadFile(defaultPath)
	if err != nil {
		return fmt.Errorf("read default save: %w", err)
	}
	var probe village.State
	if err := json.Unmarshal(b, &probe); err != nil {
		return fmt.Errorf("default save is not a valid snapshot: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.dir, SnapshotFile), b)
}

// MigrateLegacy copies a legacy-location save to the canonical location
// and removes the legacy copy, but only when no canonical save exists.
// Run once at startup.
func (s *Serializer) MigrateLegacy(legacyPath string) error {
	canonical := filepath.Join(s.dir, SnapshotFile)
	if _, err := os.Stat(canonical); err == nil {
		return nil
	}
	b, err := os.ReadFile(legacyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := writeFileAtomic(canonical, b); err != nil {
		return err
	}
	if err := os.Remove(legacyPath); err != nil {
		s.logf("remove legacy save: %v", err)
	}
	s.logf("migrated legacy save %s -> %s", legacyPath, canonical)
	return nil
}
