package postgres

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/okian/locapi/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBuildStatements(t *testing.T) {
	Convey("Given the statement builders", t, func() {
		Convey("Select filters by text comparison", func() {
			sql, args := buildSelect("location", []model.Filter{model.Eq("id", "7")})
			So(sql, ShouldEqual, `SELECT * FROM "location" WHERE "id"::text = $1`)
			So(args, ShouldResemble, []any{"7"})
		})

		Convey("Select without filters has no where clause", func() {
			sql, args := buildSelect("location_requests", nil)
			So(sql, ShouldEqual, `SELECT * FROM "location_requests"`)
			So(args, ShouldBeEmpty)
		})

		Convey("Insert orders columns and converts numbers", func() {
			rec := model.Record{"name": "x", "count": json.Number("3"), "lat": json.Number("1.5")}
			sql, args := buildInsert("location", rec, false)
			So(sql, ShouldEqual, `INSERT INTO "location" ("count", "lat", "name") VALUES ($1, $2, $3)`)
			So(args, ShouldResemble, []any{int64(3), 1.5, "x"})
		})

		Convey("Insert of an empty record uses defaults and can return rows", func() {
			sql, _ := buildInsert("location", model.Record{}, true)
			So(sql, ShouldEqual, `INSERT INTO "location" DEFAULT VALUES RETURNING *`)
		})

		Convey("Update numbers parameters after the set list", func() {
			sql, args, err := buildUpdate("location", model.Record{"b": 2, "a": 1}, []model.Filter{model.Eq("id", "9")}, true)
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, `UPDATE "location" SET "a" = $1, "b" = $2 WHERE "id"::text = $3 RETURNING *`)
			So(args, ShouldResemble, []any{1, 2, "9"})
		})

		Convey("Update without columns fails", func() {
			_, _, err := buildUpdate("location", model.Record{}, []model.Filter{model.Eq("id", "9")}, false)
			So(errors.Is(err, ErrNoColumns), ShouldBeTrue)
		})

		Convey("Delete quotes hostile identifiers", func() {
			sql, _ := buildDelete(`lo"c`, []model.Filter{model.Eq("id", "1")}, false)
			So(sql, ShouldEqual, `DELETE FROM "lo""c" WHERE "id"::text = $1`)
		})
	})
}

func TestNormalizeRow(t *testing.T) {
	Convey("UUID columns become strings", t, func() {
		id := uuid.New()
		rec := normalizeRow(map[string]any{"id": [16]byte(id), "n": int32(4)})
		So(rec["id"], ShouldEqual, id.String())
		So(rec["n"], ShouldEqual, int32(4))
	})
}

func TestTranslate(t *testing.T) {
	Convey("Given server errors", t, func() {
		Convey("A unique violation maps to conflict", func() {
			err := translate(&pgconn.PgError{Code: "23505", Message: "duplicate key", Detail: "Key (id)=(1) exists."})
			ue, ok := model.AsUpstream(err)
			So(ok, ShouldBeTrue)
			So(ue.Status, ShouldEqual, 409)
			So(ue.Code, ShouldEqual, "23505")
			So(ue.Details, ShouldEqual, "Key (id)=(1) exists.")
			So(err.Error(), ShouldEqual, "duplicate key")
		})

		Convey("An unknown table maps to not found", func() {
			ue, _ := model.AsUpstream(translate(&pgconn.PgError{Code: "42P01", Message: "relation does not exist"}))
			So(ue.Status, ShouldEqual, 404)
		})

		Convey("Other errors pass through", func() {
			base := errors.New("conn refused")
			So(translate(base), ShouldEqual, base)
		})
	})

	Convey("SQLSTATE classes map to statuses", t, func() {
		So(statusForSQLState("22P02"), ShouldEqual, 400)
		So(statusForSQLState("42501"), ShouldEqual, 403)
		So(statusForSQLState("08006"), ShouldEqual, 500)
	})
}
