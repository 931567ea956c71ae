package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"villagekeep/internal/clock"
	"villagekeep/internal/persistence/indexdb"
	"villagekeep/internal/persistence/journal"
	"villagekeep/internal/persistence/save"
	"villagekeep/internal/sim/assign"
	"villagekeep/internal/sim/tuning"
	"villagekeep/internal/sim/village"
	"villagekeep/internal/transport/ui"
)

func main() {
	var (
		listen     = flag.String("listen", "127.0.0.1:8130", "ui bridge listen address (empty to disable)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite save/slot index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[game] ", log.LstdFlags|log.Lmicroseconds)

	tp := *tuningPath
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	saveJournal := journal.NewSaveLogger(*dataDir)
	defer saveJournal.Close()
	slotJournal := journal.NewSlotLogger(*dataDir)
	defer slotJournal.Close()

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "index.db"))
		if err != nil {
			logger.Printf("open index: %v (continuing without)", err)
			idx = nil
		} else {
			defer idx.Close()
		}
	}

	ser := save.New(filepath.Join(*dataDir, "save"), save.Options{
		AssetRoots: tune.AssetRoots,
		Logger:     logger,
		OnSaved: func(r journal.SaveRecord) {
			if err := saveJournal.WriteSave(r); err != nil {
				logger.Printf("save journal: %v", err)
			}
			idx.RecordSave(r)
		},
	})

	// One-shot migration from the pre-directory save layout.
	if err := ser.MigrateLegacy(filepath.Join(*dataDir, "gamedata.json")); err != nil {
		logger.Printf("migrate legacy save: %v", err)
	}

	st := ser.Load(loadDefaults(filepath.Join(*configDir, "default_save.json"), logger))

	// Single-flight across autosave, ui saves and the quit save:
	// overlapping triggers are dropped, last write wins.
	var saving atomic.Bool
	saveNow := func(st *village.State) error {
		if !saving.CompareAndSwap(false, true) {
			return nil
		}
		defer saving.Store(false)
		return ser.SaveGame(st)
	}

	sched := assign.New(st, assign.Config{
		BaseHours:         tune.SlotBaseHours,
		CastleBaseHours:   tune.CastleSlotBaseHours,
		CastleSlots:       tune.CastleSlots,
		BuilderProfession: tune.BuilderProfession,
		MaxHouses:         tune.MaxHouses,
		EnergyResidual:    tune.EnergyResidual,
		SweepEvery:        time.Duration(tune.SweepEveryMinutes) * time.Minute,
	}, clock.RealClock{}, logger, assign.Hooks{
		Persist: func() {
			// Invoked under the scheduler lock.
			if err := saveNow(st); err != nil {
				logger.Printf("persist: %v", err)
			}
		},
		OnHeroExhausted: func(heroID int) {
			h := st.HeroByID(heroID)
			if h == nil {
				return
			}
			h.State = village.StateResting
			h.Timers.RestMs = int64(tune.RestHours) * int64(time.Hour/time.Millisecond)
		},
		RecomputeCaps: func(building string) {
			if perLevel, ok := tune.StorageBuildings[building]; ok {
				st.RecomputeStorageCaps(building, perLevel)
			}
		},
		Record: func(r journal.SlotRecord) {
			if err := slotJournal.WriteSlot(r); err != nil {
				logger.Printf("slot journal: %v", err)
			}
			idx.RecordSlotEvent(r)
		},
	})
	sched.Initialize()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	if tune.AutosaveEveryMinutes > 0 {
		go func() {
			t := time.NewTicker(time.Duration(tune.AutosaveEveryMinutes) * time.Minute)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					if err := sched.WithLock(saveNow); err != nil {
						logger.Printf("autosave: %v", err)
					}
				}
			}
		}()
	}

	var httpSrv *http.Server
	if *listen != "" {
		bridge := ui.NewServer(sched, func() error { return sched.WithLock(saveNow) }, logger)
		mux := http.NewServeMux()
		mux.HandleFunc("/v1/ws", bridge.Handler())
		httpSrv = &http.Server{Addr: *listen, Handler: mux}
		go func() {
			logger.Printf("ui bridge listening on %s", *listen)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("ui bridge: %v", err)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Printf("shutting down")
	cancel()
	if httpSrv != nil {
		_ = httpSrv.Close()
	}
	if err := sched.WithLock(saveNow); err != nil {
		logger.Printf("quit save: %v", err)
	}
}

// loadDefaults reads the bundled default snapshot; a missing or invalid
// bundle falls back to an empty state.
func loadDefaults(path string, logger *log.Logger) *village.State {
	st := village.New()
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Printf("default save: %v", err)
		}
		return st
	}
	if err := json.Unmarshal(b, st); err != nil {
		logger.Printf("default save is not a valid snapshot: %v", err)
		return village.New()
	}
	st.RebuildIndex()
	return st
}
