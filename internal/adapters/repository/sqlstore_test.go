package repository

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/asinrank/internal/config"
	"github.com/okian/asinrank/internal/domain/model"
	"github.com/okian/asinrank/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.InitWithOptions(io.Discard, logger.FormatText); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func openMemory(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), config.BackendSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLStoreAppendAndList(t *testing.T) {
	Convey("Given an empty in-memory store", t, func() {
		s := openMemory(t)
		ctx := context.Background()

		Convey("When listing an unknown ASIN", func() {
			rows, err := s.ListByASIN(ctx, "B000NONE00")

			Convey("Then an empty slice is returned", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldNotBeNil)
				So(rows, ShouldBeEmpty)
			})
		})

		Convey("When appending observations for two ASINs", func() {
			ts := time.Date(2024, time.January, 5, 12, 30, 0, 0, time.UTC)
			first, err := s.Append(ctx, model.RankObservation{
				ASIN:      "B000TEST01",
				Category1: model.Category{Name: "Books", Rank: model.RankOf(5)},
				Timestamp: ts,
			})
			So(err, ShouldBeNil)
			_, err = s.Append(ctx, model.RankObservation{ASIN: "B000OTHER0", Category1: model.Category{Name: "Toys"}})
			So(err, ShouldBeNil)
			second, err := s.Append(ctx, model.RankObservation{
				ASIN:      "B000TEST01",
				Category1: model.Category{Name: "Books", Rank: model.RankOf(3)},
				Category2: model.Category{Name: "Fiction"},
				Timestamp: ts.Add(24 * time.Hour),
			})
			So(err, ShouldBeNil)

			Convey("Then ids are assigned in increasing order", func() {
				So(first.ID, ShouldBeGreaterThan, 0)
				So(second.ID, ShouldBeGreaterThan, first.ID)
			})

			Convey("Then listing returns only that ASIN in arrival order", func() {
				rows, err := s.ListByASIN(ctx, "B000TEST01")
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(rows[0].ID, ShouldEqual, first.ID)
				So(rows[0].Timestamp.Equal(ts), ShouldBeTrue)
				So(*rows[0].Category1.Rank, ShouldEqual, 5)
				So(rows[0].Category2.Name, ShouldEqual, "")
				So(rows[0].Category2.Rank, ShouldBeNil)
				So(rows[1].Category2.Name, ShouldEqual, "Fiction")
				So(rows[1].Category2.Rank, ShouldBeNil)
			})

			Convey("Then ASIN matching is case-sensitive", func() {
				rows, err := s.ListByASIN(ctx, "b000test01")
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
			})

			Convey("Then Count reflects every row", func() {
				n, err := s.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
			})
		})

		Convey("When appending identical observations twice", func() {
			obs := model.RankObservation{ASIN: "B000DUP000", Category1: model.Category{Name: "Books", Rank: model.RankOf(1)}}
			_, err := s.Append(ctx, obs)
			So(err, ShouldBeNil)
			_, err = s.Append(ctx, obs)
			So(err, ShouldBeNil)

			Convey("Then both rows are kept", func() {
				rows, err := s.ListByASIN(ctx, "B000DUP000")
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
			})
		})

		Convey("When appending without a timestamp", func() {
			before := time.Now().UTC().Add(-time.Second)
			stored, err := s.Append(ctx, model.RankObservation{ASIN: "B000NOW000"})

			Convey("Then the current time is assigned", func() {
				So(err, ShouldBeNil)
				So(stored.Timestamp.After(before), ShouldBeTrue)
				So(stored.Timestamp.Location(), ShouldEqual, time.UTC)
			})
		})
	})
}

func TestSQLStoreConcurrentAppends(t *testing.T) {
	Convey("Given a store shared by many goroutines", t, func() {
		s := openMemory(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _ = s.Append(ctx, model.RankObservation{
					ASIN:      "B000CONC00",
					Category1: model.Category{Name: "Books", Rank: model.RankOf(i)},
				})
			}(i)
		}
		wg.Wait()

		Convey("Then every append lands", func() {
			rows, err := s.ListByASIN(ctx, "B000CONC00")
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 20)
		})
	})
}

func TestSQLStoreLifecycle(t *testing.T) {
	Convey("Given a file-backed store", t, func() {
		path := filepath.Join(t.TempDir(), "asinrank.db")
		ctx := context.Background()

		s, err := Open(ctx, config.BackendSQLite, path)
		So(err, ShouldBeNil)
		_, err = s.Append(ctx, model.RankObservation{ASIN: "B000FILE00", Category1: model.Category{Name: "Books"}})
		So(err, ShouldBeNil)
		So(s.Ping(ctx), ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("When the store is reopened", func() {
			again, err := Open(ctx, config.BackendSQLite, path)
			So(err, ShouldBeNil)
			defer func() { _ = again.Close() }()

			Convey("Then migrations are a no-op and data survives", func() {
				n, err := again.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When a closed store is used", func() {
			_, appendErr := s.Append(ctx, model.RankObservation{ASIN: "X"})

			Convey("Then ErrClosed is returned", func() {
				So(errors.Is(appendErr, ErrClosed), ShouldBeTrue)
				So(errors.Is(s.Ping(ctx), ErrClosed), ShouldBeTrue)
				So(errors.Is(s.Close(), ErrClosed), ShouldBeTrue)
			})
		})
	})
}

func TestOpenValidation(t *testing.T) {
	Convey("Given invalid backends and DSNs", t, func() {
		ctx := context.Background()

		Convey("Unknown backends are rejected", func() {
			_, err := Open(ctx, "oracle", "dsn")
			So(errors.Is(err, ErrUnsupportedBackend), ShouldBeTrue)
		})

		Convey("Malformed MySQL DSNs fail before connecting", func() {
			_, err := Open(ctx, config.BackendMySQL, "not a dsn")
			So(errors.Is(err, ErrOpen), ShouldBeTrue)
		})
	})
}

func TestOpenOptions(t *testing.T) {
	Convey("Given a store opened with tuning options", t, func() {
		ctx := context.Background()
		s, err := Open(ctx, " SQLite ", ":memory:",
			WithMaxOpenConns(4),
			WithConnMaxLifetime(time.Minute),
			WithSkipMigrations(),
		)
		So(err, ShouldBeNil)
		defer func() { _ = s.Close() }()

		Convey("Then the backend name is normalized", func() {
			So(s.Backend(), ShouldEqual, config.BackendSQLite)
		})

		Convey("Then SQLite keeps a single connection regardless of the pool size", func() {
			So(s.maxOpenConns, ShouldEqual, 4)
			So(s.connMaxLifetime, ShouldEqual, time.Minute)
			So(s.db.Stats().MaxOpenConnections, ShouldEqual, 1)
		})

		Convey("Then no schema was created", func() {
			_, err := s.Count(ctx)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestParseTime(t *testing.T) {
	Convey("Given timestamps in driver-specific shapes", t, func() {
		want := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

		for _, v := range []any{want, want.Format(time.RFC3339Nano), []byte(want.Format(time.RFC3339Nano))} {
			got, err := parseTime(v)
			So(err, ShouldBeNil)
			So(got.Equal(want), ShouldBeTrue)
		}

		_, err := parseTime(42)
		So(err, ShouldNotBeNil)
		_, err = parseTime("yesterday")
		So(err, ShouldNotBeNil)
	})
}
