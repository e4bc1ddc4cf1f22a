package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/okian/locapi/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func testSession(id string) *model.Session {
	return &model.Session{AccessToken: "tok", User: model.User{ID: id}}
}

func TestSanitize(t *testing.T) {
	convey.Convey("Given a session for reviewer u-1", t, func() {
		sess := testSession("u-1")

		convey.Convey("When inserting a record with caller-supplied forced fields", func() {
			in := model.Record{
				"name":       "Depot",
				"security":   "guarded",
				"user_added": false,
				"reviewer":   "someone-else",
				"latlon":     "POINT(1 2)",
			}
			out, overrides := model.Sanitize(model.WriteInsert, in, sess)

			convey.Convey("Then user_added and reviewer are overwritten", func() {
				convey.So(out["user_added"], convey.ShouldEqual, true)
				convey.So(out["reviewer"], convey.ShouldEqual, "u-1")
				convey.So(len(overrides), convey.ShouldEqual, 2)
			})

			convey.Convey("And truthy security and latlon are kept on insert", func() {
				convey.So(out["security"], convey.ShouldEqual, "guarded")
				convey.So(out["latlon"], convey.ShouldEqual, "POINT(1 2)")
				convey.So(out["name"], convey.ShouldEqual, "Depot")
			})

			convey.Convey("And the input map is left untouched", func() {
				convey.So(in["reviewer"], convey.ShouldEqual, "someone-else")
				convey.So(in["user_added"], convey.ShouldEqual, false)
			})
		})

		convey.Convey("When security is falsy or absent", func() {
			cases := []model.Record{
				{},
				{"security": nil},
				{"security": ""},
				{"security": false},
				{"security": json.Number("0")},
				{"security": float64(0)},
			}
			for _, in := range cases {
				out, _ := model.Sanitize(model.WriteInsert, in, sess)
				v, ok := out["security"]
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(v, convey.ShouldBeNil)
			}
		})

		convey.Convey("When updating a record carrying id and latlon", func() {
			in := model.Record{"id": json.Number("42"), "latlon": "x", "name": "Yard"}
			out, overrides := model.Sanitize(model.WriteUpdate, in, sess)

			convey.Convey("Then id and latlon are stripped", func() {
				_, hasID := out["id"]
				_, hasLatLon := out["latlon"]
				convey.So(hasID, convey.ShouldBeFalse)
				convey.So(hasLatLon, convey.ShouldBeFalse)
				convey.So(out["name"], convey.ShouldEqual, "Yard")
				convey.So(len(overrides), convey.ShouldEqual, 2)
			})

			convey.Convey("And the forced fields are still applied", func() {
				convey.So(out["user_added"], convey.ShouldEqual, true)
				convey.So(out["reviewer"], convey.ShouldEqual, "u-1")
				convey.So(out["security"], convey.ShouldBeNil)
			})
		})

		convey.Convey("When the record already matches the forced values", func() {
			in := model.Record{"user_added": true, "reviewer": "u-1", "security": "x"}
			_, overrides := model.Sanitize(model.WriteInsert, in, sess)

			convey.Convey("Then no overrides are reported", func() {
				convey.So(overrides, convey.ShouldBeEmpty)
			})
		})
	})
}

func TestTruthy(t *testing.T) {
	convey.Convey("Given JSON values", t, func() {
		convey.So(model.Truthy(nil), convey.ShouldBeFalse)
		convey.So(model.Truthy(false), convey.ShouldBeFalse)
		convey.So(model.Truthy(""), convey.ShouldBeFalse)
		convey.So(model.Truthy(json.Number("0.0")), convey.ShouldBeFalse)
		convey.So(model.Truthy(true), convey.ShouldBeTrue)
		convey.So(model.Truthy("0"), convey.ShouldBeTrue)
		convey.So(model.Truthy(json.Number("3")), convey.ShouldBeTrue)
		convey.So(model.Truthy(map[string]any{}), convey.ShouldBeTrue)
		convey.So(model.Truthy([]any{}), convey.ShouldBeTrue)
	})
}

func TestUpstreamError(t *testing.T) {
	convey.Convey("Given an upstream error", t, func() {
		convey.Convey("When it carries a message", func() {
			err := &model.UpstreamError{Status: 400, Message: "duplicate key"}
			convey.So(err.Error(), convey.ShouldEqual, "duplicate key")
		})

		convey.Convey("When it only carries a code", func() {
			err := &model.UpstreamError{Status: 400, Code: "23505"}
			convey.So(err.Error(), convey.ShouldEqual, "upstream error 23505")
		})

		convey.Convey("When wrapped", func() {
			var err error = &model.UpstreamError{Message: "boom"}
			wrapped := wrap(err)
			ue, ok := model.AsUpstream(wrapped)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(ue.Message, convey.ShouldEqual, "boom")
		})
	})
}

type wrapper struct{ err error }

func (w wrapper) Error() string { return "wrapped: " + w.err.Error() }
func (w wrapper) Unwrap() error { return w.err }

func wrap(err error) error { return wrapper{err: err} }

func TestSessionUserID(t *testing.T) {
	convey.Convey("Given sessions", t, func() {
		var nilSess *model.Session
		convey.So(nilSess.UserID(), convey.ShouldEqual, "")
		convey.So(testSession("abc").UserID(), convey.ShouldEqual, "abc")
	})
}
