package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	SlotBaseHours       int   `yaml:"slot_base_hours"`
	CastleSlotBaseHours int   `yaml:"castle_slot_base_hours"`
	CastleSlots         []int `yaml:"castle_slots"`

	BuilderProfession string `yaml:"builder_profession"`

	MaxHouses      int `yaml:"max_houses"`
	MaxProfessions int `yaml:"max_professions"`

	EnergyResidual int `yaml:"energy_residual"`
	RestHours      int `yaml:"rest_hours"`

	SweepEveryMinutes    int `yaml:"sweep_every_minutes"`
	AutosaveEveryMinutes int `yaml:"autosave_every_minutes"`

	// Ordered roots searched for roster imagery at save time.
	AssetRoots []string `yaml:"asset_roots"`

	// Building -> resource -> cap gained per building level.
	StorageBuildings map[string]map[string]int `yaml:"storage_buildings"`
}

func Defaults() Tuning {
	return Tuning{
		SlotBaseHours:        2,
		CastleSlotBaseHours:  6,
		CastleSlots:          []int{7, 8},
		BuilderProfession:    "builder",
		MaxHouses:            10,
		MaxProfessions:       3,
		EnergyResidual:       1,
		RestHours:            8,
		SweepEveryMinutes:    60,
		AutosaveEveryMinutes: 10,
		AssetRoots:           []string{"./assets", "./resources"},
		StorageBuildings: map[string]map[string]int{
			"Warehouse": {"wood": 500, "stone": 500, "iron": 250},
			"Granary":   {"food": 1000},
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// IsCastleSlot reports whether the slot id is one of the long-duration
// castle slots.
func (t Tuning) IsCastleSlot(slotID int) bool {
	for _, id := range t.CastleSlots {
		if id == slotID {
			return true
		}
	}
	return false
}

// BaseHours is the un-halved task duration for a slot.
func (t Tuning) BaseHours(slotID int) int {
	if t.IsCastleSlot(slotID) {
		return t.CastleSlotBaseHours
	}
	return t.SlotBaseHours
}
