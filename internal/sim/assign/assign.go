// Package assign runs the fixed set of construction-assignment slots:
// an independent wall-clock-driven task state machine per slot
// (idle -> running -> completed -> idle).
package assign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"villagekeep/internal/clock"
	"villagekeep/internal/persistence/journal"
	"villagekeep/internal/sim/busy"
	"villagekeep/internal/sim/village"
)

const (
	// SlotCount is the static slot configuration size; slot ids are 1..SlotCount.
	SlotCount = 8

	// HouseBuilding is improved by constructing a new house instead of a
	// level increment, and is capped.
	HouseBuilding = "Houses"

	msPerHour = int64(time.Hour / time.Millisecond)
)

// ErrHouseCapReached is the user-facing failure for improving Houses at cap.
var ErrHouseCapReached = errors.New("house cap reached")

// ErrSlotNotCompleted rejects Improve on a slot that has not finished.
var ErrSlotNotCompleted = errors.New("slot not completed")

type Config struct {
	BaseHours       int
	CastleBaseHours int
	CastleSlots     []int

	BuilderProfession string
	MaxHouses         int
	EnergyResidual    int

	// Sweep cadence for the background loop. Durations are whole hours,
	// so hourly is plenty; this is a tunable, not a correctness knob.
	SweepEvery time.Duration
}

// Hooks are the scheduler's outbound calls. All are optional.
type Hooks struct {
	// Persist requests a save of the surrounding game state.
	Persist func()
	// OnHeroExhausted starts a rest cycle for a displaced hero whose
	// energy is spent.
	OnHeroExhausted func(heroID int)
	// RecomputeCaps refreshes capacities that scale with the named
	// building's level.
	RecomputeCaps func(building string)
	// Record journals a slot transition.
	Record func(journal.SlotRecord)
}

type Scheduler struct {
	mu    sync.Mutex
	st    *village.State
	cfg   Config
	clk   clock.Clock
	log   *log.Logger
	hooks Hooks
}

func New(st *village.State, cfg Config, clk clock.Clock, logger *log.Logger, hooks Hooks) *Scheduler {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Scheduler{st: st, cfg: cfg, clk: clk, log: logger, hooks: hooks}
}

// Initialize reconciles persisted slots against the static configuration
// and runs one immediate sweep. Call once after load, before Run.
func (s *Scheduler) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Slots = reconcile(s.st.Slots)
	if s.sweepLocked() {
		s.persist()
	}
}

// Run sweeps periodically until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	every := s.cfg.SweepEvery
	if every <= 0 {
		every = time.Hour
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

// reconcile keeps persisted slots whose ids appear in the static
// configuration and synthesizes any missing configured slot as idle.
func reconcile(persisted []*village.AssignmentSlot) []*village.AssignmentSlot {
	byID := map[int]*village.AssignmentSlot{}
	for _, sl := range persisted {
		if sl == nil || sl.SlotID < 1 || sl.SlotID > SlotCount {
			continue
		}
		if _, dup := byID[sl.SlotID]; dup {
			continue
		}
		if sl.Status == "" {
			sl.Status = village.SlotIdle
		}
		byID[sl.SlotID] = sl
	}
	out := make([]*village.AssignmentSlot, 0, SlotCount)
	for id := 1; id <= SlotCount; id++ {
		sl := byID[id]
		if sl == nil {
			sl = &village.AssignmentSlot{SlotID: id, Status: village.SlotIdle}
		}
		out = append(out, sl)
	}
	return out
}

// Sweep transitions every running slot whose deadline has passed to
// completed. Idempotent and safe to call redundantly.
func (s *Scheduler) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweepLocked() {
		s.persist()
	}
}

func (s *Scheduler) sweepLocked() (changed bool) {
	now := s.nowMs()
	for _, sl := range s.st.Slots {
		if sl == nil || sl.Status != village.SlotRunning {
			continue
		}
		if sl.DueAtMs() > now {
			continue
		}
		sl.Status = village.SlotCompleted
		changed = true
		if s.log != nil {
			s.log.Printf("slot %d completed (hero %d)", sl.SlotID, sl.HeroID)
		}
		s.record("complete", sl.SlotID, sl.HeroID, sl.Status, "")
	}
	return changed
}

// Assign commits the hero to the slot. Precondition (enforced by the
// caller, see CanAssign): the hero is at full energy, not busy for
// construction, and occupies no other non-idle slot. An unresolvable
// hero or slot id is a silent no-op.
func (s *Scheduler) Assign(slotID, heroID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.st.HeroByID(heroID)
	sl := s.st.SlotByID(slotID)
	if h == nil || sl == nil {
		return
	}

	dur := int64(s.baseHours(slotID)) * msPerHour
	if h.HasProfession(s.builderProfession()) {
		dur /= 2
	}

	// Taking the assignment spends the hero down to the residual; only a
	// completed rest cycle restores eligibility.
	h.Energy = s.energyResidual()

	sl.HeroID = heroID
	sl.StartedAtMs = s.nowMs()
	sl.DurationMs = dur
	sl.Status = village.SlotRunning

	s.record("assign", sl.SlotID, heroID, sl.Status, "")
	s.persist()
}

// Cancel resets the slot to idle regardless of its prior status,
// forfeiting a completed-but-unclaimed improvement. Callers gate this
// behind user confirmation.
func (s *Scheduler) Cancel(slotID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl := s.st.SlotByID(slotID)
	if sl == nil {
		return
	}
	heroID := sl.HeroID
	sl.Reset()
	s.record("cancel", sl.SlotID, heroID, sl.Status, "")
	s.persist()
}

// Improve claims a completed slot: Houses constructs a new house (capped
// at MaxHouses), any other building gains a level and has its dependent
// capacities recomputed. On success the slot resets to idle and a fully
// spent displaced hero is sent to rest. On failure nothing mutates.
func (s *Scheduler) Improve(slotID int, building string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl := s.st.SlotByID(slotID)
	if sl == nil {
		return fmt.Errorf("unknown slot %d", slotID)
	}
	if sl.Status != village.SlotCompleted {
		return ErrSlotNotCompleted
	}

	if building == HouseBuilding {
		if s.st.Houses >= s.cfg.MaxHouses {
			return ErrHouseCapReached
		}
		s.st.Houses++
	} else {
		s.st.BuildingLevels[building]++
		if s.hooks.RecomputeCaps != nil {
			s.hooks.RecomputeCaps(building)
		}
	}

	heroID := sl.HeroID
	sl.Reset()
	s.record("improve", sl.SlotID, heroID, sl.Status, building)

	if h := s.st.HeroByID(heroID); h != nil && h.Energy <= s.energyResidual() {
		if s.hooks.OnHeroExhausted != nil {
			s.hooks.OnHeroExhausted(heroID)
		}
	}

	s.persist()
	return nil
}

// CanAssign is the eligibility predicate the picker UI applies before
// calling Assign: resolvable hero at full energy, not busy for
// construction, no other non-idle slot held, and an idle target slot.
func (s *Scheduler) CanAssign(slotID, heroID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.st.HeroByID(heroID)
	sl := s.st.SlotByID(slotID)
	if h == nil || sl == nil || sl.Status != village.SlotIdle {
		return false
	}
	if h.Energy != village.FullEnergy {
		return false
	}
	if busy.BusyForConstruction(s.st, h) {
		return false
	}
	for _, other := range s.st.Slots {
		if other != nil && other.SlotID != slotID && other.HeroID == heroID && other.Status != village.SlotIdle {
			return false
		}
	}
	return true
}

// DisplayHours is the presentational duration for a slot: base hours,
// halved when the assigned hero is a builder. Not state.
func (s *Scheduler) DisplayHours(slotID int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	hours := float64(s.baseHours(slotID))
	sl := s.st.SlotByID(slotID)
	if sl == nil {
		return hours
	}
	if h := s.st.HeroByID(sl.HeroID); h != nil && h.HasProfession(s.builderProfession()) {
		hours /= 2
	}
	return hours
}

// HeroBusy answers the picker's busy queries under the scheduler lock.
func (s *Scheduler) HeroBusy(heroID int) (isBusy, forConstruction, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.st.HeroByID(heroID)
	if h == nil {
		return false, false, false
	}
	return busy.Busy(s.st, h), busy.BusyForConstruction(s.st, h), true
}

// WithLock runs fn with exclusive access to the game state, for callers
// outside the scheduler's own operations (autosave, quit save, exports).
// The Persist hook must not be re-entered from fn's caller side; hook
// invocations already hold the lock.
func (s *Scheduler) WithLock(fn func(st *village.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// StateJSON renders the full state under the scheduler lock, for the UI
// bridge's state pushes.
func (s *Scheduler) StateJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(s.st)
}

func (s *Scheduler) baseHours(slotID int) int {
	for _, id := range s.cfg.CastleSlots {
		if id == slotID {
			return s.cfg.CastleBaseHours
		}
	}
	return s.cfg.BaseHours
}

func (s *Scheduler) builderProfession() string {
	if s.cfg.BuilderProfession == "" {
		return "builder"
	}
	return s.cfg.BuilderProfession
}

func (s *Scheduler) energyResidual() int {
	if s.cfg.EnergyResidual <= 0 {
		return 1
	}
	return s.cfg.EnergyResidual
}

func (s *Scheduler) nowMs() int64 {
	return s.clk.Now().UnixMilli()
}

func (s *Scheduler) persist() {
	if s.hooks.Persist != nil {
		s.hooks.Persist()
	}
}

func (s *Scheduler) record(event string, slotID, heroID int, status village.SlotStatus, building string) {
	if s.hooks.Record == nil {
		return
	}
	s.hooks.Record(journal.SlotRecord{
		At:       journal.Now(),
		Event:    event,
		SlotID:   slotID,
		HeroID:   heroID,
		Status:   string(status),
		Building: building,
	})
}
