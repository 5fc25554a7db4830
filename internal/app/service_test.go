package service_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	repository "github.com/okian/asinrank/internal/adapters/repository"
	service "github.com/okian/asinrank/internal/app"
	"github.com/okian/asinrank/internal/config"
	"github.com/okian/asinrank/internal/domain/charting"
	"github.com/okian/asinrank/internal/domain/model"
	"github.com/okian/asinrank/internal/domain/types"
	"github.com/okian/asinrank/pkg/logger"
)

func init() {
	if err := logger.InitWithOptions(io.Discard, logger.FormatText); err != nil {
		panic(err)
	}
}

// stubRenderer records the series it was asked to draw.
type stubRenderer struct {
	seen []charting.Series
	err  error
}

func (r *stubRenderer) Render(s charting.Series) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.seen = append(r.seen, s)
	return "<div>" + s.Title + "</div>", nil
}

// brokenStore fails every read.
type brokenStore struct{ repository.Store }

func (brokenStore) ListByASIN(context.Context, string) ([]model.RankObservation, error) {
	return nil, errors.New("connection reset")
}

func (brokenStore) Ping(context.Context) error { return errors.New("connection reset") }

func newStarted(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	store, err := repository.Open(context.Background(), config.BackendSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	svc := service.New(append([]service.Option{service.WithStore(store)}, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that opens its own file-backed store", t, func() {
		dsn := filepath.Join(t.TempDir(), "svc.db")
		svc := service.New(service.WithDatabase(config.BackendSQLite, dsn))
		ctx := context.Background()

		Convey("When it is used before Start", func() {
			_, err := svc.Charts(ctx, "B000TEST01")

			Convey("Then ErrNotStarted is returned", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})
		})

		Convey("When it is started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Ping(ctx), ShouldBeNil)
			So(svc.GetStats(ctx)["observations"], ShouldEqual, 0)
			svc.Stop()

			Convey("Then further calls fail and Stop is idempotent", func() {
				So(errors.Is(svc.Ping(ctx), service.ErrNotStarted), ShouldBeTrue)
				So(func() { svc.Stop() }, ShouldNotPanic)
			})
		})
	})

	Convey("Given store options and a mixed-case backend name", t, func() {
		svc := service.New(
			service.WithDatabase("SQLite", ":memory:"),
			service.WithStoreOptions(repository.WithSkipMigrations()),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the options reach the store and the backend is reported normalized", func() {
			stats := svc.GetStats(ctx)
			So(stats["backend"], ShouldEqual, config.BackendSQLite)
			_, counted := stats["observations"]
			So(counted, ShouldBeFalse)
		})
	})

	Convey("Given an unsupported backend", t, func() {
		svc := service.New(service.WithDatabase("oracle", "x"))

		Convey("Then Start fails", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, repository.ErrUnsupportedBackend), ShouldBeTrue)
		})
	})
}

func TestService_Ingest(t *testing.T) {
	Convey("Given a started service with a fixed clock", t, func() {
		fixed := time.Date(2024, time.January, 5, 15, 0, 0, 0, time.FixedZone("X", 3600))
		svc := newStarted(t, service.WithClock(func() time.Time { return fixed }))
		ctx := context.Background()

		Convey("When an observation with a client id and timestamp is ingested", func() {
			stored, err := svc.Ingest(ctx, model.RankObservation{
				ID:        99,
				ASIN:      "B000TEST01",
				Category1: model.Category{Name: "Books", Rank: model.RankOf(5)},
				Timestamp: time.Unix(0, 0),
			})

			Convey("Then the server assigns both", func() {
				So(err, ShouldBeNil)
				So(stored.ID, ShouldNotEqual, 99)
				So(stored.Timestamp.Equal(fixed), ShouldBeTrue)
				So(stored.Timestamp.Location(), ShouldEqual, time.UTC)
				So(svc.GetStats(ctx)["observations"], ShouldEqual, 1)
			})
		})
	})
}

func TestService_Charts(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, time.January, d, 9, 0, 0, 0, time.UTC) }

	Convey("Given a service with a recording renderer", t, func() {
		r := &stubRenderer{}
		clock := day(1)
		svc := newStarted(t, service.WithRenderer(r), service.WithClock(func() time.Time { return clock }))
		ctx := context.Background()

		ingest := func(obs model.RankObservation, at time.Time) {
			clock = at
			_, err := svc.Ingest(ctx, obs)
			So(err, ShouldBeNil)
		}

		Convey("When the ASIN is unknown", func() {
			resp, err := svc.Charts(ctx, "B000NONE00")

			Convey("Then the no-data message is returned", func() {
				So(err, ShouldBeNil)
				So(resp, ShouldResemble, types.ChartsResponse{Message: types.MessageNoCategoryData})
			})
		})

		Convey("When only the first category has data", func() {
			ingest(model.RankObservation{ASIN: "B000TEST01", Category1: model.Category{Name: "Books", Rank: model.RankOf(5)}}, day(1))
			ingest(model.RankObservation{ASIN: "B000TEST01", Category1: model.Category{Name: "Books", Rank: model.RankOf(3)}}, day(2))
			resp, err := svc.Charts(ctx, "B000TEST01")

			Convey("Then exactly one chart with both days is produced", func() {
				So(err, ShouldBeNil)
				So(resp.ChartCount(), ShouldEqual, 1)
				So(resp.Chart1, ShouldEqual, "<div>B000TEST01 - Books </div>")
				So(r.seen, ShouldHaveLength, 1)
				So(r.seen[0].Points, ShouldHaveLength, 2)
				So(r.seen[0].Points[0].Day, ShouldEqual, "January 01, 2024")
				So(*r.seen[0].Points[1].Rank, ShouldEqual, 3)
			})
		})

		Convey("When both categories have data", func() {
			ingest(model.RankObservation{
				ASIN:      "B000TEST01",
				Category1: model.Category{Name: "Books", Rank: model.RankOf(5)},
				Category2: model.Category{Name: "Fiction", Rank: model.RankOf(40)},
			}, day(1))
			resp, err := svc.Charts(ctx, "B000TEST01")

			Convey("Then chart1 and chart2 follow slot order", func() {
				So(err, ShouldBeNil)
				So(resp.ChartCount(), ShouldEqual, 2)
				So(resp.Chart2, ShouldContainSubstring, "Fiction")
			})
		})

		Convey("When only the second category has data", func() {
			ingest(model.RankObservation{ASIN: "B000TEST01", Category2: model.Category{Name: "Garden", Rank: model.RankOf(9)}}, day(1))
			resp, err := svc.Charts(ctx, "B000TEST01")

			Convey("Then it is returned as chart1", func() {
				So(err, ShouldBeNil)
				So(resp.Chart1, ShouldContainSubstring, "Garden")
				So(resp.Chart2, ShouldBeEmpty)
			})
		})

		Convey("When rendering fails", func() {
			r.err = errors.New("template exploded")
			ingest(model.RankObservation{ASIN: "B000TEST01", Category1: model.Category{Name: "Books"}}, day(1))
			_, err := svc.Charts(ctx, "B000TEST01")

			Convey("Then the error is surfaced", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "template exploded")
			})
		})
	})

	Convey("Given a service with the real renderer", t, func() {
		svc := newStarted(t, service.WithTitleMaxLen(20), service.WithChartAssetsURL(""))
		ctx := context.Background()
		_, err := svc.Ingest(ctx, model.RankObservation{
			ASIN:      "B000TEST01",
			Category1: model.Category{Name: strings.Repeat("Long name ", 10), Rank: model.RankOf(7)},
		})
		So(err, ShouldBeNil)

		Convey("Then the fragment embeds the truncated title", func() {
			resp, err := svc.Charts(ctx, "B000TEST01")
			So(err, ShouldBeNil)
			So(resp.Chart1, ShouldContainSubstring, "B000TEST01 - Long na")
			So(resp.Chart1, ShouldNotContainSubstring, "B000TEST01 - Long nam")
			So(resp.Chart1, ShouldNotContainSubstring, "<script src=")
		})
	})

	Convey("Given a service with a configured chart size", t, func() {
		svc := newStarted(t, service.WithChartSize("640px", "320px"), service.WithChartAssetsURL(""))
		ctx := context.Background()
		_, err := svc.Ingest(ctx, model.RankObservation{
			ASIN:      "B000TEST02",
			Category1: model.Category{Name: "Books", Rank: model.RankOf(3)},
		})
		So(err, ShouldBeNil)

		Convey("Then the chart container uses it", func() {
			resp, err := svc.Charts(ctx, "B000TEST02")
			So(err, ShouldBeNil)
			So(resp.Chart1, ShouldContainSubstring, "640px")
			So(resp.Chart1, ShouldContainSubstring, "320px")
		})
	})

	Convey("Given a store that fails reads", t, func() {
		svc := service.New(service.WithStore(brokenStore{}))
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("Then Charts and Ping return the store error", func() {
			_, err := svc.Charts(context.Background(), "B000TEST01")
			So(err, ShouldNotBeNil)
			So(svc.Ping(context.Background()), ShouldNotBeNil)
		})
	})
}
