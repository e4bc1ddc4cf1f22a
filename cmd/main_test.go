package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/locapi/internal/adapters/http/swagger"
	"github.com/okian/locapi/internal/bootstrap"
	"github.com/okian/locapi/internal/config"
	"github.com/okian/locapi/pkg/logger"
	"github.com/okian/locapi/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("LOCAPI_ADDR", ":8080")
			_ = os.Setenv("LOCAPI_RETURN_ROWS", "true")
			_ = os.Setenv("SUPABASE_URL", "https://abcd.supabase.co")
			defer func() {
				_ = os.Unsetenv("LOCAPI_ADDR")
				_ = os.Unsetenv("LOCAPI_RETURN_ROWS")
				_ = os.Unsetenv("SUPABASE_URL")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ReturnRows, convey.ShouldBeTrue)
				convey.So(cfg.SupabaseURL, convey.ShouldEqual, "https://abcd.supabase.co")
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the full application wiring", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app, err := bootstrap.Build(ctx, config.New(), logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		defer func() { _ = app.Close() }()

		mux := http.NewServeMux()
		swagger.Register(ctx, mux)
		app.API.Register(ctx, mux)

		convey.Convey("Then operational and API routes share one mux", func() {
			for path, want := range map[string]int{
				"/healthz":      http.StatusOK,
				"/stats":        http.StatusOK,
				"/api-docs":     http.StatusOK,
				"/openapi.yaml": http.StatusOK,
				"/api/data":     http.StatusUnauthorized,
				"/missing":      http.StatusNotFound,
			} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, want)
			}
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given an invalid configuration", t, func() {
		_ = os.Setenv("LOCAPI_STORE_BACKEND", "sqlite")
		defer func() { _ = os.Unsetenv("LOCAPI_STORE_BACKEND") }()

		convey.Convey("Then configuration loading should fail", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should return when the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})
	})
}
