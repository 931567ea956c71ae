package save

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// TestSchemas_ValidateGeneratedDocuments runs a full save and checks
// the generated documents against the published shapes.
func TestSchemas_ValidateGeneratedDocuments(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	dir := t.TempDir()
	ser := New(dir, Options{})
	if err := ser.SaveGame(fixtureState(t)); err != nil {
		t.Fatalf("save: %v", err)
	}

	validate := func(schema *jsonschema.Schema, file string) {
		t.Helper()
		b, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			t.Fatalf("read %s: %v", file, err)
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			t.Fatalf("parse %s: %v", file, err)
		}
		if err := schema.Validate(v); err != nil {
			t.Fatalf("validate %s: %v", file, err)
		}
	}

	validate(compile("heroes.schema.json"), HeroesFile)
	validate(compile("pets.schema.json"), PetsFile)
	validate(compile("villagechief.schema.json"), ChiefFile)
	validate(compile("familiars.schema.json"), FamiliarsFile)

	roster := compile("roster.schema.json")
	validate(roster, ElitesFile)
	validate(roster, SpecialSoldiersFile)
	validate(roster, SpecialCitizensFile)
}
