package village

import "strings"

// Hero states set by gameplay systems. Empty means available.
const (
	StateResting      = "resting"
	StateGroupMission = "groupMission"
)

// FullEnergy gates eligibility for new assignments.
const FullEnergy = 100

type Hero struct {
	ID   int    `json:"id"`
	Name string `json:"name"`

	Level int `json:"level"`
	Exp   int `json:"exp"`

	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Intelligence int `json:"intelligence"`

	// 0..100. Assignments require FullEnergy and leave a residual of 1;
	// restoration is owned by the rest cycle.
	Energy int `json:"energy"`

	// "" | resting | groupMission.
	State string `json:"state,omitempty"`

	Professions []string `json:"professions,omitempty"`

	Timers Timers `json:"timers"`

	// Present iff the hero owns a pet (non-empty pet name).
	Pet *Pet `json:"pet,omitempty"`
}

// Timers are the independent per-activity countdowns, in milliseconds
// remaining. A positive value means the hero is committed to that
// activity.
type Timers struct {
	MissionMs       int64 `json:"mission_ms,omitempty"`
	CollectMs       int64 `json:"collect_ms,omitempty"`
	MineMs          int64 `json:"mine_ms,omitempty"`
	ChopMs          int64 `json:"chop_ms,omitempty"`
	WorkMs          int64 `json:"work_ms,omitempty"`
	BuildMs         int64 `json:"build_ms,omitempty"`
	TrainMs         int64 `json:"train_ms,omitempty"`
	RestMs          int64 `json:"rest_ms,omitempty"`
	LearnAbilityMs  int64 `json:"learn_ability_ms,omitempty"`
	LearnAbility2Ms int64 `json:"learn_ability2_ms,omitempty"`
}

// Any reports whether any activity countdown is still running.
func (t Timers) Any() bool {
	return t.MissionMs > 0 || t.CollectMs > 0 || t.MineMs > 0 ||
		t.ChopMs > 0 || t.WorkMs > 0 || t.BuildMs > 0 ||
		t.TrainMs > 0 || t.RestMs > 0 ||
		t.LearnAbilityMs > 0 || t.LearnAbility2Ms > 0
}

type Pet struct {
	Name           string `json:"name"`
	Img            string `json:"img,omitempty"`
	Level          int    `json:"level"`
	Exp            int    `json:"exp"`
	Origin         string `json:"origin,omitempty"`
	Favorite       bool   `json:"favorite,omitempty"`
	ResourceType   string `json:"resourceType,omitempty"`
	PendingCount   int    `json:"pendingCount,omitempty"`
	LastCollection string `json:"lastCollection,omitempty"`
	ExploreDay     string `json:"exploreDay,omitempty"`
	Desc           string `json:"desc,omitempty"`
}

// HasPet reports pet presence; an empty pet name means no pet.
func (h *Hero) HasPet() bool {
	return h != nil && h.Pet != nil && h.Pet.Name != ""
}

// HasProfession matches case-insensitively.
func (h *Hero) HasProfession(name string) bool {
	if h == nil {
		return false
	}
	for _, p := range h.Professions {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// AddProfession appends unless the profession is already held or the cap
// is reached. Returns whether the profession was added.
func (h *Hero) AddProfession(name string, max int) bool {
	if h == nil || name == "" || h.HasProfession(name) || len(h.Professions) >= max {
		return false
	}
	h.Professions = append(h.Professions, name)
	return true
}
