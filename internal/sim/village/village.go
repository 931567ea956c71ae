// Package village holds the single mutable game-state aggregate and its
// entity types. One State exists per process; it is created at load,
// replaced wholesale on load/reset and flushed by the save serializer.
package village

import "strings"

type State struct {
	Resources    map[string]int `json:"resources"`
	ResourceCaps map[string]int `json:"resource_caps,omitempty"`

	BuildingLevels map[string]int `json:"building_levels"`
	Houses         int            `json:"houses"`

	Heroes    []*Hero    `json:"heroes"`
	Chief     *Chief     `json:"villagechief,omitempty"`
	Partner   *Partner   `json:"partner,omitempty"`
	Familiars []Familiar `json:"familiars,omitempty"`

	Elites          []RosterEntry `json:"elites,omitempty"`
	SpecialSoldiers []RosterEntry `json:"special_soldiers,omitempty"`
	SpecialCitizens []RosterEntry `json:"special_citizens,omitempty"`

	Missions      []IndividualMission    `json:"missions,omitempty"`
	GroupMissions []GroupMission         `json:"group_missions,omitempty"`
	DailyMissions map[string][]DailySlot `json:"daily_missions,omitempty"`

	UpgradeTasks map[string]*UpgradeTask `json:"upgrade_tasks,omitempty"`

	Slots []*AssignmentSlot `json:"assignment_slots"`

	AutoRoles AutoRoles `json:"auto_roles"`

	// Free-form sections owned by the planning UI. Opaque to the core;
	// the serializer validates and defaults them at save time.
	LifeMissions   any `json:"lifemissions,omitempty"`
	Projects       any `json:"projects,omitempty"`
	Diary          any `json:"diary,omitempty"`
	WeekPlan       any `json:"weekplan,omitempty"`
	HabitsCalendar any `json:"habitscalendar,omitempty"`

	// id -> hero lookup. Derived, never serialized; must be rebuilt
	// whenever Heroes is replaced wholesale.
	index map[int]*Hero
}

// New returns an empty state with all collections initialized.
func New() *State {
	s := &State{
		Resources:      map[string]int{},
		ResourceCaps:   map[string]int{},
		BuildingLevels: map[string]int{},
		UpgradeTasks:   map[string]*UpgradeTask{},
		DailyMissions:  map[string][]DailySlot{},
	}
	s.RebuildIndex()
	return s
}

// RebuildIndex recomputes the id -> hero lookup. Callers that replace the
// Heroes slice (load, reset) must call this; a stale index is a
// correctness bug, not a performance concern.
func (s *State) RebuildIndex() {
	idx := make(map[int]*Hero, len(s.Heroes))
	for _, h := range s.Heroes {
		if h != nil && h.ID > 0 {
			idx[h.ID] = h
		}
	}
	s.index = idx
}

// HeroByID resolves a hero through the derived index.
func (s *State) HeroByID(id int) *Hero {
	if s.index == nil {
		s.RebuildIndex()
	}
	return s.index[id]
}

// NextHeroID allocates the next hero id: max(existing)+1, starting at 1.
func (s *State) NextHeroID() int {
	max := 0
	for _, h := range s.Heroes {
		if h != nil && h.ID > max {
			max = h.ID
		}
	}
	return max + 1
}

// NameTaken reports whether a hero already uses the name,
// case-insensitively.
func (s *State) NameTaken(name string) bool {
	for _, h := range s.Heroes {
		if h != nil && strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}

// AddHero assigns an id and registers the hero in the index.
// Returns false without mutating when the name is already taken.
func (s *State) AddHero(h *Hero) bool {
	if h == nil || s.NameTaken(h.Name) {
		return false
	}
	h.ID = s.NextHeroID()
	s.Heroes = append(s.Heroes, h)
	if s.index == nil {
		s.RebuildIndex()
	} else {
		s.index[h.ID] = h
	}
	return true
}

// SlotByID resolves an assignment slot by its fixed slot id.
func (s *State) SlotByID(slotID int) *AssignmentSlot {
	for _, sl := range s.Slots {
		if sl != nil && sl.SlotID == slotID {
			return sl
		}
	}
	return nil
}

// RecomputeStorageCaps refreshes the cap of every resource whose cap
// scales with the named building's level.
func (s *State) RecomputeStorageCaps(building string, perLevel map[string]int) {
	lvl := s.BuildingLevels[building]
	for res, per := range perLevel {
		s.ResourceCaps[res] = lvl * per
	}
}
