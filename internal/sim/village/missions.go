package village

// Group mission statuses.
const (
	MissionPending = "pending"
	MissionRunning = "running"
	MissionDone    = "done"
)

// IndividualMission commits exactly one hero for its remaining time.
type IndividualMission struct {
	Name        string `json:"name"`
	HeroID      int    `json:"hero_id"`
	RemainingMs int64  `json:"remaining_ms"`
}

// GroupMission commits its member heroes only while running.
type GroupMission struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	HeroIDs []int  `json:"hero_ids,omitempty"`
}

// DailySlot is one entry of the per-day mission schedule
// (DailyMissions is keyed by day).
type DailySlot struct {
	Mission string `json:"mission"`
	HeroID  int    `json:"hero_id"`
}

// UpgradeTask is a building upgrade in progress; its actors stay
// committed while time remains.
type UpgradeTask struct {
	RemainingMs int64 `json:"remaining_ms"`
	HeroIDs     []int `json:"hero_ids,omitempty"`
}

// AutoRoles are the always-on auto-assignment enrollments. An enrolled
// hero only counts as committed while the subsystem is globally active.
type AutoRoles struct {
	Active     bool `json:"active"`
	Companion  int  `json:"companion,omitempty"`
	Farmer     int  `json:"farmer,omitempty"`
	Lumberjack int  `json:"lumberjack,omitempty"`
	Miner      int  `json:"miner,omitempty"`
}

// Enrolled reports whether the hero id holds any auto-assignment role.
func (a AutoRoles) Enrolled(id int) bool {
	if id <= 0 {
		return false
	}
	return a.Companion == id || a.Farmer == id || a.Lumberjack == id || a.Miner == id
}

// InRunningGroupMission reports whether the hero id is a member of any
// group mission whose status is running.
func (s *State) InRunningGroupMission(id int) bool {
	for _, gm := range s.GroupMissions {
		if gm.Status != MissionRunning {
			continue
		}
		for _, hid := range gm.HeroIDs {
			if hid == id {
				return true
			}
		}
	}
	return false
}
