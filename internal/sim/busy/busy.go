// Package busy answers "is this hero currently committed" by scanning
// every activity source in the game state. Pure queries, no side effects
// beyond the explicit group-mission tagging helper.
package busy

import "villagekeep/internal/sim/village"

// Busy reports whether the hero is committed to any concurrent activity:
// an active auto-assignment role, an upgrade task with time remaining, a
// non-idle assignment slot, an individual mission, a running group
// mission, a daily-mission slot, any of its own activity countdowns, or
// an ongoing rest.
func Busy(st *village.State, h *village.Hero) bool {
	return isBusy(st, h, true)
}

// BusyForConstruction is Busy minus the group-mission membership check:
// group-mission membership alone does not block construction duty.
// For every hero, BusyForConstruction implies Busy.
func BusyForConstruction(st *village.State, h *village.Hero) bool {
	return isBusy(st, h, false)
}

func isBusy(st *village.State, h *village.Hero, includeGroupMissions bool) bool {
	if st == nil || h == nil {
		return false
	}

	if st.AutoRoles.Active && st.AutoRoles.Enrolled(h.ID) {
		return true
	}

	for _, task := range st.UpgradeTasks {
		if task == nil || task.RemainingMs <= 0 {
			continue
		}
		for _, id := range task.HeroIDs {
			if id == h.ID {
				return true
			}
		}
	}

	for _, sl := range st.Slots {
		if sl == nil || sl.HeroID != h.ID {
			continue
		}
		if sl.Status == village.SlotRunning || sl.Status == village.SlotCompleted {
			return true
		}
	}

	for _, m := range st.Missions {
		if m.HeroID == h.ID {
			return true
		}
	}

	if includeGroupMissions && st.InRunningGroupMission(h.ID) {
		return true
	}

	for _, day := range st.DailyMissions {
		for _, ds := range day {
			if ds.HeroID == h.ID {
				return true
			}
		}
	}

	if h.Timers.Any() {
		return true
	}
	return h.State == village.StateResting
}

// SetGroupMissionBusy tags (busy=true) or untags (busy=false) the heroes'
// group-mission state. Untagging skips heroes that are still members of
// another running group mission, so repeated calls over overlapping
// missions are idempotent and order-independent.
func SetGroupMissionBusy(st *village.State, heroIDs []int, busy bool) {
	for _, id := range heroIDs {
		h := st.HeroByID(id)
		if h == nil {
			continue
		}
		if busy {
			h.State = village.StateGroupMission
			continue
		}
		if st.InRunningGroupMission(id) {
			continue
		}
		if h.State == village.StateGroupMission {
			h.State = ""
		}
	}
}
