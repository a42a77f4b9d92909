package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
	"github.com/tbourn/hl7-monitor-backend/internal/repo"
)

// openStore opens the store the way the server does, so the per-connection
// pragmas and pool settings are the ones under test.
func openStore(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open %q: %v", path, err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if _, err := repo.SeedFixtures(context.Background(), db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func TestCatalog_ConcurrentWritersDoNotFail(t *testing.T) {
	stores := map[string]string{
		"file":   filepath.Join(t.TempDir(), "monitor.db"),
		"memory": ":memory:",
	}
	for name, path := range stores {
		t.Run(name, func(t *testing.T) {
			db := openStore(t, path)
			events := NewEventDefinitionService(db, gormRepo{})
			errs := NewErrorDefinitionService(db, gormRepo{})
			query := NewQueryService(db, gormRepo{})

			const workers, rounds = 8, 25
			var (
				wg       sync.WaitGroup
				failures atomic.Int32
				firstErr atomic.Value
			)
			report := func(err error) {
				if err != nil {
					failures.Add(1)
					firstErr.CompareAndSwap(nil, err.Error())
				}
			}
			ctx := context.Background()
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < rounds; i++ {
						_, err := events.Create(ctx, "Load Test", fmt.Sprintf("LT%d-%d", w, i), "Concurrent create.")
						report(err)
						_, err = errs.ReorderSteps(ctx, "err-def-001", i%3, (i+w)%3)
						report(err)
						_, err = query.ListMessages(ctx, MessageQuery{Status: "error"})
						report(err)
					}
				}(w)
			}
			wg.Wait()

			if n := failures.Load(); n != 0 {
				t.Fatalf("%d of %d operations failed; first: %v", n, workers*rounds*3, firstErr.Load())
			}

			list, err := events.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if want := len(repo.FixtureEventDefinitions()) + workers*rounds; len(list) != want {
				t.Fatalf("event definitions = %d; want %d", len(list), want)
			}
			d, err := errs.Get(ctx, "err-def-001")
			if err != nil {
				t.Fatal(err)
			}
			seen := map[string]bool{}
			for i, st := range d.SolutionSteps {
				if st.Order != i+1 {
					t.Fatalf("step order not dense after concurrent reorders: %+v", d.SolutionSteps)
				}
				seen[st.ID] = true
			}
			if len(seen) != 3 {
				t.Fatalf("steps lost or duplicated: %+v", d.SolutionSteps)
			}
		})
	}
}

func TestCatalog_ConcurrentUpdatesLastWriteWins(t *testing.T) {
	db := openStore(t, filepath.Join(t.TempDir(), "monitor.db"))
	events := NewEventDefinitionService(db, gormRepo{})
	ctx := context.Background()

	target := repo.FixtureEventDefinitions()[0].ID
	names := make(map[string]bool)
	var (
		wg       sync.WaitGroup
		failures atomic.Int32
	)
	for w := 0; w < 8; w++ {
		name := fmt.Sprintf("Renamed %d", w)
		names[name] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				if _, err := events.Update(ctx, target, EventDefinitionPatch{Name: strp(name)}); err != nil {
					failures.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Fatalf("%d concurrent updates failed", failures.Load())
	}
	got, err := repo.GetEventDefinition(ctx, db, target)
	if err != nil {
		t.Fatal(err)
	}
	if !names[got.Name] {
		t.Fatalf("final name %q was never written", got.Name)
	}
}

func TestOpenSQLite_MemoryStoreUsesOneConnection(t *testing.T) {
	db := openStore(t, "")
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("MaxOpenConnections = %d; want 1", got)
	}
	var n int64
	if err := db.Model(&domain.Message{}).Count(&n).Error; err != nil || n != 20 {
		t.Fatalf("seeded messages = %d, err=%v", n, err)
	}
}
