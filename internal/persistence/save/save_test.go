package save

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"villagekeep/internal/persistence/journal"
	"villagekeep/internal/sim/village"
)

func fixtureState(t *testing.T) *village.State {
	t.Helper()
	st := village.New()
	st.Resources["wood"] = 120
	st.BuildingLevels["Warehouse"] = 2
	st.Houses = 3
	st.Chief = &village.Chief{
		Name: "Mara", Level: 4, Exp: 120, Avatar: "chief.png",
		Inventory: map[string]int{"seal": 1},
		Stats:     map[string]int{"wisdom": 7},
		Abilities: []village.Ability{{Name: "Leadership", Level: 2}},
	}
	st.Partner = &village.Partner{
		Name: "Io", Level: 3, Exp: 50,
		Abilities: []village.Ability{{Name: "Cooking", Level: 1}},
	}
	st.Familiars = []village.Familiar{{ID: 4, Name: "Wisp", Kind: "spirit", Level: 2}}
	if !st.AddHero(&village.Hero{Name: "Ana", Energy: village.FullEnergy}) {
		t.Fatalf("add Ana")
	}
	if !st.AddHero(&village.Hero{Name: "Bo", Energy: village.FullEnergy, Pet: &village.Pet{Name: "Rex", Level: 1, ResourceType: "wood"}}) {
		t.Fatalf("add Bo")
	}
	st.Elites = []village.RosterEntry{{ID: 1, Name: "Vanguard", Desc: "first in", LevelQuantity: 2}}
	st.SpecialSoldiers = []village.RosterEntry{{ID: 1, Name: "Pikeman", LevelQuantity: 1}}
	st.Projects = []any{"garden"}
	return st
}

func newSerializer(t *testing.T) (*Serializer, string) {
	t.Helper()
	dir := t.TempDir()
	return New(dir, Options{}), dir
}

func readDoc(t *testing.T, dir, file string, v any) {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		t.Fatalf("read %s: %v", file, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("parse %s: %v", file, err)
	}
}

func TestSaveGame_WritesAllDocuments(t *testing.T) {
	s, dir := newSerializer(t)
	st := fixtureState(t)

	if err := s.SaveGame(st); err != nil {
		t.Fatalf("save: %v", err)
	}

	for _, f := range []string{
		SnapshotFile, HeroesFile, PetsFile, ChiefFile, ChiefAbilitiesFile,
		PartnerFile, PartnerAbilities, FamiliarsFile,
		ElitesFile, SpecialSoldiersFile, SpecialCitizensFile,
		LifeMissionsFile, ProjectsFile, DiaryFile, WeekPlanFile, HabitsCalendarFile,
	} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Fatalf("missing document %s: %v", f, err)
		}
	}
}

func TestSaveGame_ReferentialIntegrity(t *testing.T) {
	s, dir := newSerializer(t)
	st := fixtureState(t)
	st.Chief.ID = 5

	if err := s.SaveGame(st); err != nil {
		t.Fatalf("save: %v", err)
	}

	var chief map[string]any
	readDoc(t, dir, ChiefFile, &chief)
	chiefID := int(chief["id"].(float64))
	if chiefID != 5 {
		t.Fatalf("chief id=%d want 5", chiefID)
	}

	var heroes []map[string]any
	readDoc(t, dir, HeroesFile, &heroes)
	if len(heroes) != 2 {
		t.Fatalf("heroes=%d want 2", len(heroes))
	}
	for _, h := range heroes {
		if got := int(h["chief_id"].(float64)); got != chiefID {
			t.Fatalf("hero chief_id=%d want %d", got, chiefID)
		}
	}

	var pets []map[string]any
	readDoc(t, dir, PetsFile, &pets)
	for _, p := range pets {
		if got := int(p["chief_id"].(float64)); got != chiefID {
			t.Fatalf("pet chief_id=%d want %d", got, chiefID)
		}
	}

	var partner map[string]any
	readDoc(t, dir, PartnerFile, &partner)
	if got := int(partner["chief_id"].(float64)); got != chiefID {
		t.Fatalf("partner chief_id=%d want %d", got, chiefID)
	}
	if _, hasID := partner["id"]; hasID {
		t.Fatalf("partner document carries its own id")
	}

	var familiars []map[string]any
	readDoc(t, dir, FamiliarsFile, &familiars)
	for _, f := range familiars {
		if got := int(f["chief_id"].(float64)); got != chiefID {
			t.Fatalf("familiar chief_id=%d want %d", got, chiefID)
		}
	}
}

func TestSaveGame_ChiefIDEstablishedOnce(t *testing.T) {
	s, dir := newSerializer(t)
	st := fixtureState(t)

	if err := s.SaveGame(st); err != nil {
		t.Fatalf("save: %v", err)
	}
	if st.Chief.ID != 1 {
		t.Fatalf("chief id=%d want 1 after first save", st.Chief.ID)
	}
	if err := s.SaveGame(st); err != nil {
		t.Fatalf("second save: %v", err)
	}
	var chief map[string]any
	readDoc(t, dir, ChiefFile, &chief)
	if got := int(chief["id"].(float64)); got != 1 {
		t.Fatalf("chief id drifted to %d", got)
	}
}

func TestSaveGame_PetsDocumentConditional(t *testing.T) {
	s, dir := newSerializer(t)
	st := fixtureState(t)
	st.Heroes[1].Pet = nil
	st.RebuildIndex()

	if err := s.SaveGame(st); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, PetsFile)); !os.IsNotExist(err) {
		t.Fatalf("pets document written with no pets (err=%v)", err)
	}

	st.Heroes[1].Pet = &village.Pet{Name: "Rex"}
	if err := s.SaveGame(st); err != nil {
		t.Fatalf("save: %v", err)
	}
	var pets []map[string]any
	readDoc(t, dir, PetsFile, &pets)
	if len(pets) != 1 {
		t.Fatalf("pets=%d want 1", len(pets))
	}
	if got := int(pets[0]["id_hero"].(float64)); got != st.Heroes[1].ID {
		t.Fatalf("id_hero=%d want %d", got, st.Heroes[1].ID)
	}
	owner := pets[0]["owner_hero"].(map[string]any)
	if _, hasPet := owner["pet"]; hasPet {
		t.Fatalf("owner_hero embeds the pet again")
	}
}

func TestSaveGame_RemovesStalePetsDocument(t *testing.T) {
	s, dir := newSerializer(t)
	st := fixtureState(t)

	if err := s.SaveGame(st); err != nil {
		t.Fatalf("save: %v", err)
	}
	st.Heroes[1].Pet = nil
	if err := s.SaveGame(st); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, PetsFile)); !os.IsNotExist(err) {
		t.Fatalf("stale pets document survived (err=%v)", err)
	}
}

func TestSaveGame_Idempotent(t *testing.T) {
	s, dir := newSerializer(t)
	st := fixtureState(t)

	if err := s.SaveGame(st); err != nil {
		t.Fatalf("first save: %v", err)
	}
	first := map[string][]byte{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		first[e.Name()] = b
	}

	if err := s.SaveGame(st); err != nil {
		t.Fatalf("second save: %v", err)
	}
	for name, before := range first {
		after, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !bytes.Equal(before, after) {
			t.Fatalf("document %s not byte-identical across saves", name)
		}
	}
}

func TestSaveGame_PrimaryFailureKeepsPriorSnapshot(t *testing.T) {
	s, dir := newSerializer(t)
	st := fixtureState(t)
	if err := s.SaveGame(st); err != nil {
		t.Fatalf("seed save: %v", err)
	}
	prior, err := os.ReadFile(filepath.Join(dir, SnapshotFile))
	if err != nil {
		t.Fatalf("read prior: %v", err)
	}

	// Occupy the temp path with a directory so the staged write fails
	// before the rename.
	tmp := filepath.Join(dir, SnapshotFile+".tmp")
	if err := os.Mkdir(tmp, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	st.Houses++
	if err := s.SaveGame(st); err == nil {
		t.Fatalf("save succeeded despite blocked temp path")
	}

	after, err := os.ReadFile(filepath.Join(dir, SnapshotFile))
	if err != nil {
		t.Fatalf("read after: %v", err)
	}
	if !bytes.Equal(prior, after) {
		t.Fatalf("canonical snapshot changed after failed write")
	}
}

func TestSaveGame_DerivedFailureIsolated(t *testing.T) {
	s, dir := newSerializer(t)
	st := fixtureState(t)

	// Block the heroes document only.
	if err := os.Mkdir(filepath.Join(dir, HeroesFile+".tmp"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := s.SaveGame(st); err != nil {
		t.Fatalf("save failed on a derived document: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FamiliarsFile)); err != nil {
		t.Fatalf("later generator skipped: %v", err)
	}
}

func TestSaveGame_MalformedProjectsDefaulted(t *testing.T) {
	s, dir := newSerializer(t)
	st := fixtureState(t)
	st.Projects = map[string]any{"not": "a list"}

	if err := s.SaveGame(st); err != nil {
		t.Fatalf("save: %v", err)
	}
	var projects []any
	readDoc(t, dir, ProjectsFile, &projects)
	if len(projects) != 0 {
		t.Fatalf("projects=%v want empty list", projects)
	}
}

func TestSaveGame_RecordsOutcome(t *testing.T) {
	dir := t.TempDir()
	var recs []journal.SaveRecord
	s := New(dir, Options{OnSaved: func(r journal.SaveRecord) { recs = append(recs, r) }})

	if err := s.SaveGame(fixtureState(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(recs) != 1 || recs[0].Outcome != "ok" {
		t.Fatalf("records=%+v", recs)
	}
	if recs[0].Heroes != 2 || recs[0].Pets != 1 {
		t.Fatalf("counts=%+v", recs[0])
	}
	if !strings.HasSuffix(recs[0].Path, SnapshotFile) {
		t.Fatalf("path=%q", recs[0].Path)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	s, _ := newSerializer(t)
	st := fixtureState(t)
	if err := s.SaveGame(st); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := s.Load(nil)
	if len(got.Heroes) != 2 {
		t.Fatalf("heroes=%d want 2", len(got.Heroes))
	}
	// The derived index must work after a wholesale replacement.
	if h := got.HeroByID(st.Heroes[1].ID); h == nil || h.Name != "Bo" {
		t.Fatalf("index not rebuilt on load: %v", h)
	}
	if !got.Heroes[1].HasPet() {
		t.Fatalf("pet lost in round trip")
	}
}

func TestLoad_MissingYieldsDefaults(t *testing.T) {
	s, _ := newSerializer(t)
	defaults := village.New()
	defaults.Houses = 2

	got := s.Load(defaults)
	if got != defaults || got.Houses != 2 {
		t.Fatalf("defaults not returned unmodified")
	}
}

func TestLoad_CorruptBacksUpAndYieldsDefaults(t *testing.T) {
	s, dir := newSerializer(t)
	path := filepath.Join(dir, SnapshotFile)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	defaults := village.New()
	got := s.Load(defaults)
	if got != defaults {
		t.Fatalf("corrupt save did not yield defaults")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("corrupt file left in place")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	backedUp := false
	for _, e := range entries {
		if strings.Contains(e.Name(), ".corrupt-") {
			backedUp = true
		}
	}
	if !backedUp {
		t.Fatalf("no corrupt backup written; dir=%v", entries)
	}
}

func TestResetToDefault(t *testing.T) {
	s, dir := newSerializer(t)
	if err := s.SaveGame(fixtureState(t)); err != nil {
		t.Fatalf("save: %v", err)
	}

	def := filepath.Join(t.TempDir(), "default_save.json")
	if err := os.WriteFile(def, []byte(`{"houses": 1, "heroes": []}`), 0o644); err != nil {
		t.Fatalf("write default: %v", err)
	}
	if err := s.ResetToDefault(def); err != nil {
		t.Fatalf("reset: %v", err)
	}

	got := s.Load(nil)
	if got.Houses != 1 || len(got.Heroes) != 0 {
		t.Fatalf("reset not applied: houses=%d heroes=%d", got.Houses, len(got.Heroes))
	}
	_ = dir
}

func TestResetToDefault_RejectsInvalidBundle(t *testing.T) {
	s, _ := newSerializer(t)
	def := filepath.Join(t.TempDir(), "default_save.json")
	if err := os.WriteFile(def, []byte("nonsense"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.ResetToDefault(def); err == nil {
		t.Fatalf("invalid default accepted")
	}
}

func TestMigrateLegacy(t *testing.T) {
	s, dir := newSerializer(t)
	legacy := filepath.Join(t.TempDir(), "gamedata.json")
	if err := os.WriteFile(legacy, []byte(`{"houses": 7}`), 0o644); err != nil {
		t.Fatalf("write legacy: %v", err)
	}

	if err := s.MigrateLegacy(legacy); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := os.Stat(legacy); !os.IsNotExist(err) {
		t.Fatalf("legacy copy not removed")
	}
	got := s.Load(nil)
	if got.Houses != 7 {
		t.Fatalf("migrated houses=%d want 7", got.Houses)
	}
	_ = dir
}

func TestMigrateLegacy_CanonicalWins(t *testing.T) {
	s, _ := newSerializer(t)
	if err := s.SaveGame(fixtureState(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	legacy := filepath.Join(t.TempDir(), "gamedata.json")
	if err := os.WriteFile(legacy, []byte(`{"houses": 7}`), 0o644); err != nil {
		t.Fatalf("write legacy: %v", err)
	}

	if err := s.MigrateLegacy(legacy); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := os.Stat(legacy); err != nil {
		t.Fatalf("legacy removed despite existing canonical save: %v", err)
	}
	got := s.Load(nil)
	if got.Houses == 7 {
		t.Fatalf("canonical save overwritten by legacy copy")
	}
}
