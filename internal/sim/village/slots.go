package village

type SlotStatus string

const (
	SlotIdle      SlotStatus = "idle"
	SlotRunning   SlotStatus = "running"
	SlotCompleted SlotStatus = "completed"
)

// AssignmentSlot is one of the statically configured construction
// assignment units. Invariant: HeroID, StartedAtMs and DurationMs are
// set iff Status != idle; zero values mean unset.
type AssignmentSlot struct {
	SlotID      int        `json:"slot_id"`
	HeroID      int        `json:"hero_id,omitempty"`
	StartedAtMs int64      `json:"started_at_ms,omitempty"`
	DurationMs  int64      `json:"duration_ms,omitempty"`
	Status      SlotStatus `json:"status"`
}

// Reset clears the slot back to idle.
func (sl *AssignmentSlot) Reset() {
	sl.HeroID = 0
	sl.StartedAtMs = 0
	sl.DurationMs = 0
	sl.Status = SlotIdle
}

// DueAtMs is the wall-clock instant the slot's task completes.
func (sl *AssignmentSlot) DueAtMs() int64 {
	return sl.StartedAtMs + sl.DurationMs
}
