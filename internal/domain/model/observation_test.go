package model_test

import (
	"testing"
	"time"

	model "github.com/okian/asinrank/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestRankObservation(t *testing.T) {
	convey.Convey("Given a RankObservation", t, func() {
		ts := time.Date(2024, time.January, 5, 10, 0, 0, 0, time.UTC)
		obs := model.RankObservation{
			ID:        7,
			ASIN:      "B000X",
			Category1: model.Category{Name: "Toys", Rank: model.RankOf(5)},
			Category2: model.Category{Name: "Games"},
			Timestamp: ts,
		}

		convey.Convey("Then slots should resolve to their pairs", func() {
			convey.So(obs.Category(model.Slot1).Name, convey.ShouldEqual, "Toys")
			convey.So(*obs.Category(model.Slot1).Rank, convey.ShouldEqual, 5)
			convey.So(obs.Category(model.Slot2).Name, convey.ShouldEqual, "Games")
			convey.So(obs.Category(model.Slot2).Rank, convey.ShouldBeNil)
		})

		convey.Convey("Then it should report input", func() {
			convey.So(obs.HasInput(), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given observations with partial input", t, func() {
		convey.Convey("When everything is empty", func() {
			convey.So(model.RankObservation{}.HasInput(), convey.ShouldBeFalse)
		})

		convey.Convey("When only a rank is present", func() {
			obs := model.RankObservation{Category1: model.Category{Rank: model.RankOf(3)}}
			convey.So(obs.HasInput(), convey.ShouldBeFalse)
		})

		convey.Convey("When only a category name is present", func() {
			obs := model.RankObservation{Category2: model.Category{Name: "Books"}}
			convey.So(obs.HasInput(), convey.ShouldBeTrue)
		})
	})
}

func TestSlotString(t *testing.T) {
	convey.Convey("Given the category slots", t, func() {
		convey.So(model.Slot1.String(), convey.ShouldEqual, "category1")
		convey.So(model.Slot2.String(), convey.ShouldEqual, "category2")
		convey.So(model.Slot(9).String(), convey.ShouldEqual, "category?")
		convey.So(len(model.Slots), convey.ShouldEqual, 2)
	})
}
