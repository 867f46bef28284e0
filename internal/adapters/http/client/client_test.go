package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bizdash/internal/domain/model"
	"github.com/okian/bizdash/pkg/logger"
	"github.com/okian/bizdash/pkg/metrics"
)

// countingLogger records Error calls.
type countingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *countingLogger) Info(context.Context, string, ...logger.Field)  {}
func (l *countingLogger) Debug(context.Context, string, ...logger.Field) {}
func (l *countingLogger) Warn(context.Context, string, ...logger.Field)  {}
func (l *countingLogger) Fatal(context.Context, string, ...logger.Field) {}
func (l *countingLogger) Named(string) logger.Logger                     { return l }

func (l *countingLogger) Error(_ context.Context, msg string, _ ...logger.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *countingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

// recorded is the last request seen by the fake backend.
type recorded struct {
	mu          sync.Mutex
	method      string
	escapedPath string
	rawQuery    string
	query       url.Values
	header      http.Header
	body        []byte
}

func (r *recorded) snapshot() recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return recorded{method: r.method, escapedPath: r.escapedPath, rawQuery: r.rawQuery, query: r.query, header: r.header, body: r.body}
}

func newBackend(status int, body string) (*httptest.Server, *recorded) {
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.method = r.Method
		rec.escapedPath = r.URL.EscapedPath()
		rec.rawQuery = r.URL.RawQuery
		rec.query = r.URL.Query()
		rec.header = r.Header.Clone()
		rec.body = data
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	return srv, rec
}

func newTestClient(base string, log logger.Logger, opts ...Option) *Client {
	all := []Option{
		WithBaseURL(base),
		WithLogger(log),
		WithMetrics(metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))),
	}
	return New(append(all, opts...)...)
}

func TestClientDefaults(t *testing.T) {
	Convey("Given a client built without options", t, func() {
		c := New()

		Convey("Then it targets the local backend with a 30s timeout", func() {
			So(c.BaseURL(), ShouldEqual, "http://localhost:8000/api")
			So(c.Timeout(), ShouldEqual, 30*time.Second)
			So(c.header.Get("Content-Type"), ShouldEqual, "application/json")
		})
	})

	Convey("Given a base URL with a trailing slash", t, func() {
		c := New(WithBaseURL("http://backend:9000/api/"), WithTimeout(time.Second))

		Convey("Then the slash is dropped", func() {
			So(c.BaseURL(), ShouldEqual, "http://backend:9000/api")
			So(c.Timeout(), ShouldEqual, time.Second)
		})
	})
}

func TestSuppliedHTTPClient(t *testing.T) {
	Convey("Given a caller-owned HTTP client", t, func() {
		transport := &http.Transport{}
		hc := &http.Client{Timeout: time.Minute, Transport: transport}
		c := New(WithHTTPClient(hc), WithTimeout(2*time.Second))

		Convey("Then the client uses a copy with the configured timeout", func() {
			So(c.http, ShouldNotPointTo, hc)
			So(c.http.Timeout, ShouldEqual, 2*time.Second)
			So(c.http.Transport, ShouldEqual, transport)
		})

		Convey("And the caller's client keeps its own timeout", func() {
			So(hc.Timeout, ShouldEqual, time.Minute)
		})
	})
}

func TestEndpointPaths(t *testing.T) {
	Convey("Given a fake backend", t, func() {
		srv, rec := newBackend(http.StatusOK, `{}`)
		defer srv.Close()
		log := &countingLogger{}
		c := newTestClient(srv.URL+"/api", log)
		ctx := context.Background()

		Convey("When fetching result 42", func() {
			_, err := c.ResultDetail(ctx, 42)

			Convey("Then GET /results/42 is issued", func() {
				So(err, ShouldBeNil)
				got := rec.snapshot()
				So(got.method, ShouldEqual, http.MethodGet)
				So(got.escapedPath, ShouldEqual, "/api/results/42")
				So(got.header.Get("Content-Type"), ShouldEqual, "application/json")
			})
		})

		Convey("When fetching a device whose name needs escaping", func() {
			_, err := c.DeviceDetail(ctx, "Pump A/1")

			Convey("Then the name is one escaped path segment", func() {
				So(err, ShouldBeNil)
				So(rec.snapshot().escapedPath, ShouldEqual, "/api/devices/Pump%20A%2F1")
			})
		})

		Convey("When calling every identifier endpoint", func() {
			cases := []struct {
				call func() error
				path string
			}{
				{func() error { _, err := c.Stats(ctx); return err }, "/api/stats"},
				{func() error { _, err := c.ResultCurves(ctx, 7); return err }, "/api/results/7/curves"},
				{func() error { _, err := c.ResultSteps(ctx, 7); return err }, "/api/results/7/steps"},
				{func() error { _, err := c.AlarmHierarchy(ctx, 9); return err }, "/api/alarms/9/hierarchy"},
				{func() error { _, err := c.DeviceResults(ctx, "D1", nil); return err }, "/api/devices/D1/results"},
				{func() error { _, err := c.DeviceAlarms(ctx, "D1", nil); return err }, "/api/devices/D1/alarms"},
				{func() error { _, err := c.DeviceURIs(ctx, "D1"); return err }, "/api/devices/D1/uris"},
			}

			Convey("Then each substitutes its identifier into the template", func() {
				for _, tc := range cases {
					So(tc.call(), ShouldBeNil)
					So(rec.snapshot().escapedPath, ShouldEqual, tc.path)
				}
				So(log.count(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a backend returning arrays", t, func() {
		srv, rec := newBackend(http.StatusOK, `[]`)
		defer srv.Close()
		c := newTestClient(srv.URL+"/api", &countingLogger{})

		Convey("Then list endpoints hit their paths", func() {
			tree, err := c.StructureTree(context.Background())
			So(err, ShouldBeNil)
			So(tree, ShouldBeEmpty)
			So(rec.snapshot().escapedPath, ShouldEqual, "/api/structure/tree")

			_, err = c.Points(context.Background(), url.Values{"device_id": {"3"}})
			So(err, ShouldBeNil)
			So(rec.snapshot().escapedPath, ShouldEqual, "/api/points")
			So(rec.snapshot().rawQuery, ShouldEqual, "device_id=3")
		})
	})
}

func TestQueryForwarding(t *testing.T) {
	Convey("Given a fake backend", t, func() {
		srv, rec := newBackend(http.StatusOK, `{"items":[],"total":0,"page":2,"page_size":50}`)
		defer srv.Close()
		c := newTestClient(srv.URL+"/api", &countingLogger{})
		ctx := context.Background()

		Convey("When listing results with filters", func() {
			params := url.Values{"page": {"2"}, "page_size": {"50"}, "craft_type": {"3"}}
			page, err := c.Results(ctx, params)

			Convey("Then exactly those keys are sent", func() {
				So(err, ShouldBeNil)
				So(page.Page, ShouldEqual, 2)
				So(rec.snapshot().query, ShouldResemble, params)
			})
		})

		Convey("When listing alarms and devices without parameters", func() {
			_, err := c.Alarms(ctx, nil)
			So(err, ShouldBeNil)
			alarmsQuery := rec.snapshot().rawQuery
			_, err = c.Devices(ctx, url.Values{})
			So(err, ShouldBeNil)

			Convey("Then no query string is added", func() {
				So(alarmsQuery, ShouldEqual, "")
				So(rec.snapshot().rawQuery, ShouldEqual, "")
			})
		})

		Convey("When listing alarms of a device with a limit", func() {
			_, err := c.DeviceAlarms(ctx, "D1", model.LimitParams(10))

			Convey("Then only limit is forwarded", func() {
				So(err, ShouldBeNil)
				So(rec.snapshot().query, ShouldResemble, url.Values{"limit": {"10"}})
			})
		})
	})
}

func TestResponses(t *testing.T) {
	Convey("Given a backend returning a stats payload", t, func() {
		payload := `{"total_count":10,"ok_count":8,"nok_count":2,"alarm_count":1,` +
			`"craft_distribution":[{"craft_type":1,"count":10}],"trend":{"dates":["2024-01-01"],"counts":[10]}}`
		srv, _ := newBackend(http.StatusOK, payload)
		defer srv.Close()
		c := newTestClient(srv.URL+"/api", &countingLogger{})

		Convey("Then Get returns the body byte for byte", func() {
			body, err := c.Get(context.Background(), "/stats", nil)
			So(err, ShouldBeNil)
			So(string(body), ShouldEqual, payload)
		})

		Convey("Then Stats decodes it", func() {
			st, err := c.Stats(context.Background())
			So(err, ShouldBeNil)
			So(st.TotalCount, ShouldEqual, 10)
			So(st.CraftDistribution[0].CraftType, ShouldEqual, model.Scalar("1"))
			So(st.Trend.Counts, ShouldResemble, []int64{10})
		})
	})

	Convey("Given a backend reporting an unknown result", t, func() {
		srv, _ := newBackend(http.StatusOK, `{"error":"Result not found"}`)
		defer srv.Close()
		log := &countingLogger{}
		c := newTestClient(srv.URL+"/api", log)

		Convey("Then the detail is returned with Found false and nothing logged", func() {
			d, err := c.ResultDetail(context.Background(), 404)
			So(err, ShouldBeNil)
			So(d.Found(), ShouldBeFalse)
			So(log.count(), ShouldEqual, 0)
		})
	})
}

func TestFailures(t *testing.T) {
	Convey("Given a backend answering 500", t, func() {
		srv, _ := newBackend(http.StatusInternalServerError, `{"detail":"boom"}`)
		defer srv.Close()
		log := &countingLogger{}
		c := newTestClient(srv.URL+"/api", log)

		Convey("When a request fails", func() {
			_, err := c.Stats(context.Background())

			Convey("Then the status error is returned and logged once", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, ErrRequestFailed), ShouldBeTrue)
				var se *StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Code, ShouldEqual, http.StatusInternalServerError)
				So(string(se.Body), ShouldEqual, `{"detail":"boom"}`)
				So(log.count(), ShouldEqual, 1)
				So(log.errors[0], ShouldEqual, "API Error")
			})
		})
	})

	Convey("Given a backend that is unreachable", t, func() {
		srv, _ := newBackend(http.StatusOK, `{}`)
		base := srv.URL + "/api"
		srv.Close()
		log := &countingLogger{}
		c := newTestClient(base, log, WithTimeout(2*time.Second))

		Convey("Then the transport error is wrapped and logged once", func() {
			_, err := c.Devices(context.Background(), nil)
			So(errors.Is(err, ErrRequestFailed), ShouldBeTrue)
			So(log.count(), ShouldEqual, 1)
		})
	})

	Convey("Given a backend returning malformed JSON", t, func() {
		srv, _ := newBackend(http.StatusOK, `{"items":`)
		defer srv.Close()
		log := &countingLogger{}
		c := newTestClient(srv.URL+"/api", log)

		Convey("Then a decode error is returned and logged once", func() {
			_, err := c.Results(context.Background(), nil)
			So(errors.Is(err, ErrDecode), ShouldBeTrue)
			So(log.count(), ShouldEqual, 1)
		})
	})

	Convey("Given a request interceptor that rejects", t, func() {
		srv, _ := newBackend(http.StatusOK, `{}`)
		defer srv.Close()
		log := &countingLogger{}
		c := newTestClient(srv.URL+"/api", log, WithRequestInterceptor(func(*http.Request) error {
			return errors.New("no token")
		}))

		Convey("Then the call fails before reaching the backend", func() {
			_, err := c.Stats(context.Background())
			So(errors.Is(err, ErrRequestFailed), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "no token")
			So(log.count(), ShouldEqual, 1)
		})
	})
}

func TestInterceptorAndPosts(t *testing.T) {
	Convey("Given a client with an auth interceptor", t, func() {
		srv, rec := newBackend(http.StatusOK, `{"items":[{"uri":"u1","name":"n","value":"3.2","timestamp":1,"status":"ok"}]}`)
		defer srv.Close()
		c := newTestClient(srv.URL+"/api", &countingLogger{}, WithRequestInterceptor(func(r *http.Request) error {
			r.Header.Set("Authorization", "Bearer t")
			return nil
		}), WithHeader("X-Client", "bizdash"))

		Convey("When fetching current URI values", func() {
			list, err := c.DeviceURICurrent(context.Background(), "D 1")

			Convey("Then a POST is sent with the extra headers", func() {
				So(err, ShouldBeNil)
				So(*list.Items[0].Value, ShouldEqual, "3.2")
				got := rec.snapshot()
				So(got.method, ShouldEqual, http.MethodPost)
				So(got.escapedPath, ShouldEqual, "/api/devices/D%201/uris/current")
				So(got.header.Get("Authorization"), ShouldEqual, "Bearer t")
				So(got.header.Get("X-Client"), ShouldEqual, "bizdash")
			})
		})

		Convey("When querying the timeseries proxy", func() {
			raw, err := c.Timeseries(context.Background(), []string{"a/b", "c"})

			Convey("Then the URIs are posted as a JSON array", func() {
				So(err, ShouldBeNil)
				So(raw, ShouldNotBeEmpty)
				got := rec.snapshot()
				So(got.escapedPath, ShouldEqual, "/api/proxy/timeseries")
				var uris []string
				So(json.Unmarshal(got.body, &uris), ShouldBeNil)
				So(uris, ShouldResemble, []string{"a/b", "c"})
			})
		})
	})
}

func TestStreamURL(t *testing.T) {
	Convey("Given various base URLs", t, func() {
		Convey("Then the stream address drops /api and switches scheme", func() {
			u, err := New(WithBaseURL("http://h:8000/api")).StreamURL("Pump A")
			So(err, ShouldBeNil)
			So(u, ShouldEqual, "ws://h:8000/ws/device/Pump%20A")

			u, err = New(WithBaseURL("https://h/biz/api")).StreamURL("D1")
			So(err, ShouldBeNil)
			So(u, ShouldEqual, "wss://h/biz/ws/device/D1")

			_, err = New(WithBaseURL("ftp://h/api")).StreamURL("D1")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestStreamDevice(t *testing.T) {
	Convey("Given a backend streaming device values", t, func() {
		upgrader := websocket.Upgrader{}
		paths := make(chan string, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case paths <- r.URL.EscapedPath():
			default:
			}
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			_ = conn.WriteJSON(map[string]any{
				"type": "uri_list", "device_id": "D1",
				"uris": []map[string]any{{"id": 1, "uri": "u1", "name": "n1", "level": 1}},
			})
			_ = conn.WriteJSON(map[string]any{
				"type": "uri_data", "device_id": "D1", "fetch_time": "t",
				"data": []map[string]any{{"uri": "u1", "name": "n1", "value": "5", "status": "ok"}},
			})
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				if strings.TrimSpace(string(msg)) == "ping" {
					_ = conn.WriteJSON(map[string]string{"type": "pong"})
				}
			}
		}))
		defer srv.Close()

		log := &countingLogger{}
		c := newTestClient(srv.URL+"/api", log, WithPingInterval(10*time.Millisecond))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Convey("When streaming until the first pong", func() {
			var types []string
			stopped := errors.New("stop")
			err := c.StreamDevice(ctx, "D1", func(msg model.StreamMessage) error {
				types = append(types, msg.Type)
				if msg.Type == model.StreamPong {
					return stopped
				}
				return nil
			})

			Convey("Then list, data and pong arrive in order", func() {
				So(errors.Is(err, stopped), ShouldBeTrue)
				So(<-paths, ShouldEqual, "/ws/device/D1")
				So(types, ShouldResemble, []string{"uri_list", "uri_data", "pong"})
				So(log.count(), ShouldEqual, 0)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, ccancel := context.WithCancel(ctx)
			err := c.StreamDevice(cctx, "D1", func(model.StreamMessage) error {
				ccancel()
				return nil
			})

			Convey("Then the stream ends with the context error", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(log.count(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given no backend", t, func() {
		log := &countingLogger{}
		c := newTestClient("http://127.0.0.1:1/api", log, WithTimeout(time.Second))

		Convey("Then the dial failure is wrapped and logged once", func() {
			err := c.StreamDevice(context.Background(), "D1", func(model.StreamMessage) error { return nil })
			So(errors.Is(err, ErrStream), ShouldBeTrue)
			So(log.count(), ShouldEqual, 1)
		})
	})
}
