package service_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/bizdash/internal/app"
	"github.com/okian/bizdash/pkg/logger"
	"github.com/okian/bizdash/pkg/metrics"
)

func init() {
	// Initialize logging for tests
	if err := logger.InitWithOptions(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

// newBackend answers every dashboard endpoint with a minimal payload.
func newBackend() *httptest.Server {
	mux := http.NewServeMux()
	write := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, body)
		}
	}
	mux.HandleFunc("/api/stats", write(`{"total_count":4,"ok_count":3,"nok_count":1,"alarm_count":0,"craft_distribution":[],"trend":{"dates":[],"counts":[]}}`))
	mux.HandleFunc("/api/alarms", write(`{"items":[],"total":0,"page":1,"page_size":10}`))
	mux.HandleFunc("/api/devices", write(`{"items":[{"device_name":"Press 7","total_count":4}]}`))
	return httptest.NewServer(mux)
}

func newService(base string) *service.Service {
	return service.New(
		service.WithAPIBaseURL(base),
		service.WithAPITimeout(2*time.Second),
		service.WithPageSize(25),
		service.WithMetrics(metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))),
	)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it is not started", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
			So(svc.GetStats()["apiBaseURL"], ShouldEqual, "http://localhost:8000/api")
			So(svc.Client(), ShouldBeNil)
		})

		Convey("And registering before start panics", func() {
			So(func() { svc.Register(context.Background(), http.NewServeMux()) }, ShouldPanic)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a started service over a fake backend", t, func() {
		backend := newBackend()
		defer backend.Close()
		svc := newService(backend.URL + "/api")
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		svc.Register(ctx, mux)

		Convey("Then it exposes the configured client and six routes", func() {
			So(svc.Client().BaseURL(), ShouldEqual, backend.URL+"/api")
			So(svc.Client().Timeout(), ShouldEqual, 2*time.Second)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["routes"], ShouldEqual, 6)
			So(stats["viewsLoaded"], ShouldEqual, 0)
		})

		Convey("When the dashboard and device list are visited", func() {
			for _, path := range []string{"/", "/devices"} {
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
				So(rec.Code, ShouldEqual, http.StatusOK)
			}

			Convey("Then exactly those views are loaded", func() {
				So(svc.GetStats()["viewsLoaded"], ShouldEqual, 2)
			})
		})

		Convey("Then static assets, the OpenAPI document and service endpoints are served", func() {
			for _, path := range []string{"/static/dashboard.css", "/openapi.yaml", "/routes", "/stats"} {
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
				So(rec.Code, ShouldEqual, http.StatusOK)
			}
		})

		Convey("When the service is stopped", func() {
			svc.Stop()

			Convey("Then it reports stopped and starting again works", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.Start(ctx), ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, true)
			})
		})
	})
}
