package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/paddock/internal/adapters/repository"
	"github.com/okian/paddock/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func activity(id, horseID string, hoursAgo int, workload float64) model.Activity {
	return model.Activity{
		ActivityID:      id,
		HorseID:         horseID,
		Workload:        workload,
		DurationSeconds: 1800,
		DistanceMeters:  5000,
		StartTime:       base.Add(-time.Duration(hoursAgo) * time.Hour),
	}
}

func ids(list []model.Activity) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ActivityID
	}
	return out
}

// storeContract runs the behavior every Store implementation shares.
func storeContract(newStore func() repository.Store) {
	ctx := context.Background()
	store := newStore()
	Reset(func() { _ = store.Close() })

	Convey("When activities are added out of order", func() {
		So(store.Add(ctx, activity("a-old", "horse-1", 30, 40)), ShouldBeNil)
		So(store.Add(ctx, activity("a-new", "horse-1", 2, 70)), ShouldBeNil)
		So(store.Add(ctx, activity("a-mid", "horse-1", 10, 55)), ShouldBeNil)
		So(store.Add(ctx, activity("b-1", "horse-2", 1, 90)), ShouldBeNil)

		Convey("Then Recent returns the horse's window newest first", func() {
			got, err := store.Recent(ctx, "horse-1", base.Add(-24*time.Hour))
			So(err, ShouldBeNil)
			So(ids(got), ShouldResemble, []string{"a-new", "a-mid"})
			So(got[0].Workload, ShouldEqual, 70)
			So(got[0].DurationSeconds, ShouldEqual, 1800)
			So(got[0].DistanceMeters, ShouldEqual, 5000)
			So(got[0].StartTime.Equal(base.Add(-2*time.Hour)), ShouldBeTrue)
		})

		Convey("And the window start is inclusive", func() {
			got, err := store.Recent(ctx, "horse-1", base.Add(-30*time.Hour))
			So(err, ShouldBeNil)
			So(ids(got), ShouldResemble, []string{"a-new", "a-mid", "a-old"})
		})

		Convey("And other horses are not mixed in", func() {
			got, err := store.Recent(ctx, "horse-2", base.Add(-48*time.Hour))
			So(err, ShouldBeNil)
			So(ids(got), ShouldResemble, []string{"b-1"})
		})

		Convey("And an unknown horse has an empty window", func() {
			got, err := store.Recent(ctx, "horse-404", base.Add(-48*time.Hour))
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})

		Convey("And Count covers every horse", func() {
			n, err := store.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 4)
		})
	})

	Convey("When an activity id is written twice", func() {
		So(store.Add(ctx, activity("a-1", "horse-1", 5, 40)), ShouldBeNil)
		So(store.Add(ctx, activity("a-1", "horse-1", 3, 65)), ShouldBeNil)

		Convey("Then the later write replaces the earlier one", func() {
			got, err := store.Recent(ctx, "horse-1", base.Add(-24*time.Hour))
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 1)
			So(got[0].Workload, ShouldEqual, 65)
			So(got[0].StartTime.Equal(base.Add(-3*time.Hour)), ShouldBeTrue)

			n, err := store.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})
	})

	Convey("When an activity is rewritten under another horse", func() {
		So(store.Add(ctx, activity("a-1", "horse-1", 5, 40)), ShouldBeNil)
		So(store.Add(ctx, activity("a-1", "horse-2", 5, 40)), ShouldBeNil)

		Convey("Then it moves to the new horse", func() {
			first, err := store.Recent(ctx, "horse-1", base.Add(-24*time.Hour))
			So(err, ShouldBeNil)
			So(first, ShouldBeEmpty)

			second, err := store.Recent(ctx, "horse-2", base.Add(-24*time.Hour))
			So(err, ShouldBeNil)
			So(ids(second), ShouldResemble, []string{"a-1"})
		})
	})

	Convey("When two activities start at the same instant", func() {
		So(store.Add(ctx, activity("z", "horse-1", 4, 10)), ShouldBeNil)
		So(store.Add(ctx, activity("a", "horse-1", 4, 20)), ShouldBeNil)

		Convey("Then ties are ordered by id", func() {
			got, err := store.Recent(ctx, "horse-1", base.Add(-24*time.Hour))
			So(err, ShouldBeNil)
			So(ids(got), ShouldResemble, []string{"a", "z"})
		})
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a memory store", t, func() {
		storeContract(func() repository.Store {
			return repository.NewMemoryStore(repository.WithShardCount(4))
		})
	})

	Convey("Given a closed memory store", t, func() {
		store := repository.NewMemoryStore()
		So(store.Close(), ShouldBeNil)
		So(store.Close(), ShouldBeNil)

		Convey("Then every operation reports ErrClosed", func() {
			So(errors.Is(store.Add(context.Background(), activity("a", "h", 1, 1)), repository.ErrClosed), ShouldBeTrue)
			_, err := store.Recent(context.Background(), "h", base)
			So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
			_, err = store.Count(context.Background())
			So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
		})
	})

	Convey("Given a memory store and concurrent writers", t, func() {
		store := repository.NewMemoryStore()
		ctx := context.Background()
		done := make(chan struct{})
		for w := 0; w < 8; w++ {
			go func(w int) {
				for i := 0; i < 50; i++ {
					_ = store.Add(ctx, activity(fmt.Sprintf("a-%d-%d", w, i), fmt.Sprintf("horse-%d", w%3), i, float64(i)))
				}
				done <- struct{}{}
			}(w)
		}
		for w := 0; w < 8; w++ {
			<-done
		}

		Convey("Then every write is counted and windows stay sorted", func() {
			n, err := store.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 400)

			got, err := store.Recent(ctx, "horse-0", base.Add(-100*time.Hour))
			So(err, ShouldBeNil)
			for i := 1; i < len(got); i++ {
				So(got[i-1].StartTime.Before(got[i].StartTime), ShouldBeFalse)
			}
		})
	})
}

func TestSQLiteStore(t *testing.T) {
	Convey("Given a SQLite store", t, func() {
		storeContract(func() repository.Store {
			store, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "paddock.db"))
			So(err, ShouldBeNil)
			return store
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Given the store factory", t, func() {
		ctx := context.Background()

		Convey("When the driver is empty or memory", func() {
			for _, driver := range []string{"", "memory", " Memory "} {
				store, err := repository.Open(ctx, driver, "")
				So(err, ShouldBeNil)
				_, ok := store.(*repository.MemoryStore)
				So(ok, ShouldBeTrue)
			}
		})

		Convey("When the driver is sqlite", func() {
			store, err := repository.Open(ctx, "sqlite", "file::memory:")
			So(err, ShouldBeNil)
			defer store.Close()
			_, ok := store.(*repository.SQLiteStore)
			So(ok, ShouldBeTrue)

			So(store.Add(ctx, activity("a-1", "horse-1", 1, 10)), ShouldBeNil)
			n, err := store.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})

		Convey("When the driver is unknown", func() {
			_, err := repository.Open(ctx, "mongo", "")
			So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)
		})

		Convey("When the postgres dsn is malformed", func() {
			_, err := repository.Open(ctx, "postgres", "postgres://%zz")
			So(err, ShouldNotBeNil)
		})
	})
}
