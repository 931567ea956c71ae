// Package save derives the family of save documents from a game-state
// snapshot and writes them durably under the canonical save directory.
//
// Only the primary snapshot write participates in the caller-visible
// outcome; every derived-document generator is fault-isolated and a
// failure there is logged without failing the save.
package save

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"villagekeep/internal/persistence/journal"
	"villagekeep/internal/sim/village"
)

// SnapshotFile is the canonical primary snapshot document.
const SnapshotFile = "gamedata.json"

// Derived document file names.
const (
	HeroesFile          = "heroes.json"
	PetsFile            = "pets.json"
	ChiefFile           = "villagechief.json"
	ChiefAbilitiesFile  = "villagechief_abilities.json"
	PartnerFile         = "partner.json"
	PartnerAbilities    = "partner_abilities.json"
	FamiliarsFile       = "familiars.json"
	ElitesFile          = "Elites.json"
	SpecialSoldiersFile = "SpecialSoldiers.json"
	SpecialCitizensFile = "SpecialCitizens.json"
	LifeMissionsFile    = "lifemissions.json"
	ProjectsFile        = "projects.json"
	DiaryFile           = "diary.json"
	WeekPlanFile        = "weekplan.json"
	HabitsCalendarFile  = "habitscalendar.json"
)

type Options struct {
	// AssetRoots are searched, in order, for roster imagery.
	AssetRoots []string
	Logger     *log.Logger
	// OnSaved receives a record of every SaveGame outcome.
	OnSaved func(journal.SaveRecord)
}

type Serializer struct {
	dir  string
	opts Options
}

func New(dir string, opts Options) *Serializer {
	return &Serializer{dir: dir, opts: opts}
}

// Dir is the canonical save directory.
func (s *Serializer) Dir() string { return s.dir }

// SaveGame writes the primary snapshot atomically, then fans out the
// derived documents. Phase 1 resolves the chief id (established on
// first save, default 1, stable for the session); phase 2 generators
// are all tagged with it and run independently of each other.
func (s *Serializer) SaveGame(st *village.State) error {
	start := time.Now()

	chiefID := resolveChiefID(st)

	path := filepath.Join(s.dir, SnapshotFile)
	b, err := json.MarshalIndent(st, "", "  ")
	if err == nil {
		err = writeFileAtomic(path, b)
	}
	if err != nil {
		s.logf("primary snapshot: %v", err)
		s.record(journal.SaveRecord{
			At:         journal.Now(),
			Outcome:    "error",
			Error:      err.Error(),
			Path:       path,
			DurationMs: time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("write snapshot: %w", err)
	}

	docs := 1
	pets := 0

	if s.generate("villagechief", func() error { return s.writeChief(st, chiefID) }) && st.Chief != nil {
		docs += 2
	}
	if s.generate("heroes", func() error { return s.writeHeroes(st, chiefID) }) {
		docs++
	}
	s.generate("pets", func() error {
		n, err := s.writePets(st, chiefID)
		pets = n
		if n > 0 && err == nil {
			docs++
		}
		return err
	})
	if st.Partner != nil && s.generate("partner", func() error { return s.writePartner(st, chiefID) }) {
		docs += 2
	}
	if s.generate("familiars", func() error { return s.writeFamiliars(st, chiefID) }) {
		docs++
	}
	for _, r := range []struct {
		name    string
		file    string
		entries []village.RosterEntry
	}{
		{"Elites", ElitesFile, st.Elites},
		{"SpecialSoldiers", SpecialSoldiersFile, st.SpecialSoldiers},
		{"SpecialCitizens", SpecialCitizensFile, st.SpecialCitizens},
	} {
		r := r
		if s.generate(r.name, func() error { return s.writeRoster(r.name, r.file, r.entries) }) {
			docs++
		}
	}
	for _, f := range s.freeformDocs(st) {
		f := f
		if s.generate(f.name, func() error { return s.writeJSON(f.file, f.value) }) {
			docs++
		}
	}

	s.record(journal.SaveRecord{
		At:         journal.Now(),
		Outcome:    "ok",
		Path:       path,
		Documents:  docs,
		Heroes:     len(st.Heroes),
		Pets:       pets,
		Familiars:  len(st.Familiars),
		DurationMs: time.Since(start).Milliseconds(),
	})
	return nil
}

// resolveChiefID establishes the chief id on first save and returns the
// session-stable join key for derived documents.
func resolveChiefID(st *village.State) int {
	if st.Chief == nil {
		return 1
	}
	if st.Chief.ID == 0 {
		st.Chief.ID = 1
	}
	return st.Chief.ID
}

// generate runs one derived-document generator, isolating any failure.
func (s *Serializer) generate(name string, fn func() error) bool {
	if err := fn(); err != nil {
		s.logf("derived document %s: %v (save continues)", name, err)
		return false
	}
	return true
}

type freeform struct {
	name  string
	file  string
	value any
}

// freeformDocs validates the free-form sections, substituting a safe
// default for missing or malformed input. Projects must be a list.
func (s *Serializer) freeformDocs(st *village.State) []freeform {
	projects := st.Projects
	switch projects.(type) {
	case nil:
		projects = []any{}
	case []any:
	default:
		s.logf("projects section is not a list; substituting empty list")
		projects = []any{}
	}
	orDefault := func(v, def any) any {
		if v == nil {
			return def
		}
		return v
	}
	return []freeform{
		{"lifemissions", LifeMissionsFile, orDefault(st.LifeMissions, []any{})},
		{"projects", ProjectsFile, projects},
		{"diary", DiaryFile, orDefault(st.Diary, map[string]any{})},
		{"weekplan", WeekPlanFile, orDefault(st.WeekPlan, map[string]any{})},
		{"habitscalendar", HabitsCalendarFile, orDefault(st.HabitsCalendar, map[string]any{})},
	}
}

func (s *Serializer) writeJSON(file string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.dir, file), b)
}

func (s *Serializer) logf(format string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Printf(format, args...)
	}
}

func (s *Serializer) record(r journal.SaveRecord) {
	if s.opts.OnSaved != nil {
		s.opts.OnSaved(r)
	}
}

func writeFileAtomic(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
