package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/locapi/internal/adapters/http/api"
	"github.com/okian/locapi/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const prefix = "/.netlify/functions/api"

// mockDeps records calls and returns canned results.
type mockDeps struct {
	session    *model.Session
	sessionErr error

	loginErr error
	creds    model.Credentials

	rows     []model.Record
	location model.Record
	dataErr  error
	panicOn  string

	calls   []string
	lastID  string
	lastRec model.Record
	lastSes *model.Session
}

func (m *mockDeps) Session(context.Context) (*model.Session, error) {
	return m.session, m.sessionErr
}

func (m *mockDeps) Login(_ context.Context, creds model.Credentials) (*model.AuthResponse, error) {
	m.creds = creds
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	user := map[string]any{"id": "u-1", "email": creds.Email, "identities": []any{}}
	return &model.AuthResponse{
		User:    user,
		Session: map[string]any{"access_token": "tok", "user": user},
	}, nil
}

func (m *mockDeps) track(name string) {
	m.calls = append(m.calls, name)
	if m.panicOn == name {
		panic("boom")
	}
}

func (m *mockDeps) ListLocationRequests(context.Context) ([]model.Record, error) {
	m.track("list")
	return m.rows, m.dataErr
}

func (m *mockDeps) CreateLocation(_ context.Context, sess *model.Session, rec model.Record) ([]model.Record, error) {
	m.track("create")
	m.lastSes, m.lastRec = sess, rec
	return nil, m.dataErr
}

func (m *mockDeps) UpdateLocation(_ context.Context, sess *model.Session, id string, rec model.Record) ([]model.Record, error) {
	m.track("update")
	m.lastSes, m.lastID, m.lastRec = sess, id, rec
	return nil, m.dataErr
}

func (m *mockDeps) GetLocation(_ context.Context, id string) (model.Record, error) {
	m.track("get")
	m.lastID = id
	return m.location, m.dataErr
}

func (m *mockDeps) DeleteLocationRequest(_ context.Context, id string) ([]model.Record, error) {
	m.track("delete")
	m.lastID = id
	return nil, m.dataErr
}

type mockStats struct{}

func (mockStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"logins": 1}
}

func newMux(deps *mockDeps, opts ...api.ServerOption) *http.ServeMux {
	opts = append([]api.ServerOption{api.WithRoutePrefix(prefix)}, opts...)
	srv := api.NewServer(deps, mockStats{}, opts...)
	mux := http.NewServeMux()
	srv.Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorBody(w *httptest.ResponseRecorder) string {
	var body map[string]string
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body["error"]
}

func TestLogin(t *testing.T) {
	Convey("Given the API", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("When logging in with valid credentials", func() {
			w := do(mux, http.MethodPost, "/login", `{"email":"a@b.c","password":"pw"}`)

			Convey("Then the sign-in payload is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				So(deps.creds, ShouldResemble, model.Credentials{Email: "a@b.c", Password: "pw"})
				var res model.AuthResponse
				So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(res.Session["access_token"], ShouldEqual, "tok")
				So(res.User["identities"], ShouldResemble, []any{})
				So(w.Body.String(), ShouldNotContainSubstring, "weakPassword")
			})
		})

		Convey("When the body has trailing data after the object", func() {
			for _, body := range []string{`{"email":"a"}}`, `{"email":"a"}]`, `{"email":"a"} {}`} {
				w := do(mux, http.MethodPost, "/login", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorBody(w), ShouldContainSubstring, "trailing data")
			}
			So(deps.creds, ShouldResemble, model.Credentials{})
		})

		Convey("When the credentials are not strings", func() {
			w := do(mux, http.MethodPost, "/login", `{"email":42,"password":"pw"}`)

			Convey("Then the request is rejected before sign-in", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorBody(w), ShouldEqual, "bad request: email must be a string")
				So(deps.creds, ShouldResemble, model.Credentials{})
			})

			w = do(mux, http.MethodPost, "/login", `{"email":"a@b.c","password":{"x":1}}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorBody(w), ShouldEqual, "bad request: password must be a string")
		})

		Convey("When the credentials are null", func() {
			w := do(mux, http.MethodPost, "/login", `{"email":null,"password":null}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.creds, ShouldResemble, model.Credentials{})
		})

		Convey("When the provider rejects the credentials", func() {
			deps.loginErr = errors.New("Invalid login credentials")
			w := do(mux, http.MethodPost, "/login", `{"email":"a@b.c","password":"bad"}`)

			Convey("Then 401 carries the provider message", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(errorBody(w), ShouldEqual, "Invalid login credentials")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/login", `{"email":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorBody(w), ShouldStartWith, "bad request")
		})

		Convey("When the body is empty", func() {
			w := do(mux, http.MethodPost, "/login", "")

			Convey("Then it is treated as an empty object", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.creds, ShouldResemble, model.Credentials{})
			})
		})

		Convey("When logging in under the function prefix", func() {
			w := do(mux, http.MethodPost, prefix+"/login", `{"email":"a@b.c"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestProtectedRoutes(t *testing.T) {
	Convey("Given no active session", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		cases := []struct{ method, path, body string }{
			{http.MethodGet, "/api/data", ""},
			{http.MethodPost, "/api/data", `{"a":1}`},
			{http.MethodPut, "/api/data/1", `{"a":1}`},
			{http.MethodDelete, "/api/location/1", ""},
			{http.MethodGet, prefix + "/api/data", ""},
		}
		for _, tc := range cases {
			w := do(mux, tc.method, tc.path, tc.body)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(w.Body.String(), ShouldEqual, "{\"error\":\"Not logged in\"}\n")
		}

		Convey("Then the store is never reached", func() {
			So(deps.calls, ShouldBeEmpty)
		})
	})

	Convey("Given a failing session lookup", t, func() {
		deps := &mockDeps{sessionErr: errors.New("refresh failed")}
		w := do(newMux(deps), http.MethodGet, "/api/data", "")
		So(w.Code, ShouldEqual, http.StatusUnauthorized)
		So(deps.calls, ShouldBeEmpty)
	})

	Convey("Given the public location route", t, func() {
		deps := &mockDeps{location: model.Record{"id": "7"}}
		w := do(newMux(deps), http.MethodGet, "/api/location/7", "")
		So(w.Code, ShouldEqual, http.StatusOK)
		So(deps.lastID, ShouldEqual, "7")
	})
}

func TestDataRoutes(t *testing.T) {
	Convey("Given an active session", t, func() {
		sess := &model.Session{AccessToken: "tok", User: model.User{ID: "reviewer-1"}}
		deps := &mockDeps{session: sess}
		mux := newMux(deps)

		Convey("When listing data", func() {
			deps.rows = []model.Record{{"id": 1}, {"id": 2}}
			w := do(mux, http.MethodGet, "/api/data", "")

			Convey("Then the rows are returned as an array", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var rows []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
			})
		})

		Convey("When creating a location", func() {
			w := do(mux, http.MethodPost, "/api/data", `{"name":"x","lat":1.50}`)

			Convey("Then the body and session reach the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldEqual, "null\n")
				So(deps.lastSes, ShouldEqual, sess)
				So(deps.lastRec["name"], ShouldEqual, "x")
				So(deps.lastRec["lat"], ShouldEqual, json.Number("1.50"))
			})
		})

		Convey("When the body is a JSON array", func() {
			w := do(mux, http.MethodPost, "/api/data", `[1,2]`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.calls, ShouldBeEmpty)
		})

		Convey("When the body is too large", func() {
			mux = newMux(deps, api.WithMaxBodyBytes(16))
			w := do(mux, http.MethodPost, "/api/data", `{"name":"a much longer value"}`)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			So(deps.calls, ShouldBeEmpty)
		})

		Convey("When updating a location", func() {
			w := do(mux, http.MethodPut, prefix+"/api/data/42", `{"id":9,"name":"y"}`)

			Convey("Then the path id is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastID, ShouldEqual, "42")
				So(deps.lastSes, ShouldEqual, sess)
			})
		})

		Convey("When deleting a location request", func() {
			w := do(mux, http.MethodDelete, "/api/location/3", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.calls, ShouldResemble, []string{"delete"})
			So(deps.lastID, ShouldEqual, "3")
		})

		Convey("When the store fails", func() {
			deps.dataErr = errors.New("permission denied for table location")

			for _, tc := range []struct{ method, path, body string }{
				{http.MethodGet, "/api/data", ""},
				{http.MethodPost, "/api/data", `{}`},
				{http.MethodPut, "/api/data/1", `{}`},
				{http.MethodGet, "/api/location/1", ""},
				{http.MethodDelete, "/api/location/1", ""},
			} {
				w := do(mux, tc.method, tc.path, tc.body)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(errorBody(w), ShouldEqual, "permission denied for table location")
			}
		})

		Convey("When a handler panics", func() {
			deps.panicOn = "list"
			w := do(mux, http.MethodGet, "/api/data", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(errorBody(w), ShouldEqual, "internal server error")
		})
	})
}

func TestGetLocation(t *testing.T) {
	Convey("Given an unknown location id", t, func() {
		deps := &mockDeps{}
		w := do(newMux(deps), http.MethodGet, "/api/location/404", "")

		Convey("Then the body is null", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldEqual, "null\n")
		})
	})
}

func TestRouting(t *testing.T) {
	Convey("Given the API", t, func() {
		mux := newMux(&mockDeps{})

		Convey("Unknown paths are JSON 404s", func() {
			w := do(mux, http.MethodGet, "/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorBody(w), ShouldEqual, "Cannot GET /nope")
		})

		Convey("Wrong methods are JSON 405s", func() {
			w := do(mux, http.MethodPatch, "/api/data", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(errorBody(w), ShouldEqual, "Cannot PATCH /api/data")
		})

		Convey("Wrong methods under the function prefix are JSON 405s too", func() {
			w := do(mux, http.MethodPut, "/login", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)

			w = do(mux, http.MethodPut, prefix+"/login", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(errorBody(w), ShouldEqual, "Cannot PUT "+prefix+"/login")

			w = do(mux, http.MethodPatch, prefix+"/api/location/7", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Unknown paths under the function prefix are JSON 404s", func() {
			w := do(mux, http.MethodGet, prefix+"/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorBody(w), ShouldEqual, "Cannot GET "+prefix+"/nope")
		})

		Convey("Request ids are echoed or minted", func() {
			req := httptest.NewRequest(http.MethodGet, "/nope", http.NoBody)
			req.Header.Set(api.HeaderRequestID, "req-1")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Header().Get(api.HeaderRequestID), ShouldEqual, "req-1")

			w = do(mux, http.MethodGet, "/nope", "")
			So(w.Header().Get(api.HeaderRequestID), ShouldHaveLength, 36)
		})

		Convey("Stats are served as JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"logins":1`)
		})

		Convey("Health serves the metrics registry", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "locapi_api_system_goroutine_count")
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("RequireSession attaches the session", t, func() {
		sess := &model.Session{User: model.User{ID: "u"}}
		var seen *model.Session
		h := api.RequireSession(&mockDeps{session: sess}, nil, func(w http.ResponseWriter, r *http.Request) {
			seen = api.SessionFromContext(r.Context())
		})
		h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		So(seen, ShouldEqual, sess)
	})

	Convey("RequestID is available to handlers", t, func() {
		var id string
		h := api.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id = api.RequestIDFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set(api.HeaderRequestID, "abc")
		h.ServeHTTP(httptest.NewRecorder(), req)
		So(id, ShouldEqual, "abc")
	})
}
