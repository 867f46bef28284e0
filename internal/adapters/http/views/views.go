// Package views renders the dashboard pages served by the route table.
package views

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/okian/bizdash/internal/domain/model"
	"github.com/okian/bizdash/internal/router"
	"github.com/okian/bizdash/pkg/logger"
	"github.com/okian/bizdash/pkg/metrics"
)

// Route names.
const (
	Dashboard    = "Dashboard"
	Devices      = "Devices"
	DeviceDetail = "DeviceDetail"
	Results      = "Results"
	ResultDetail = "ResultDetail"
	Alarms       = "Alarms"
)

const latestLimit = 10

var titles = map[string]string{
	Dashboard:    "Dashboard",
	Devices:      "Devices",
	DeviceDetail: "Device",
	Results:      "Results",
	ResultDetail: "Result",
	Alarms:       "Alarms",
}

// API is the part of the backend client the views consume.
type API interface {
	Stats(ctx context.Context) (*model.Stats, error)
	Results(ctx context.Context, params url.Values) (*model.Page[model.Result], error)
	ResultDetail(ctx context.Context, id int64) (*model.ResultDetail, error)
	ResultCurves(ctx context.Context, id int64) ([]model.Curve, error)
	ResultSteps(ctx context.Context, id int64) ([]model.Step, error)
	Alarms(ctx context.Context, params url.Values) (*model.Page[model.Alarm], error)
	AlarmHierarchy(ctx context.Context, id int64) ([]model.AlarmNode, error)
	Devices(ctx context.Context, params url.Values) (*model.DeviceList, error)
	DeviceDetail(ctx context.Context, name string) (*model.DeviceDetail, error)
	DeviceResults(ctx context.Context, name string, params url.Values) (*model.Page[model.Result], error)
	DeviceAlarms(ctx context.Context, name string, params url.Values) (*model.Page[model.Alarm], error)
	DeviceURIs(ctx context.Context, name string) (*model.DeviceURIList, error)
}

// Views builds the dashboard pages.
type Views struct {
	api      API
	pageSize int
	log      logger.Logger
	metrics  *metrics.Manager
}

// Option configures Views.
type Option func(*Views)

// WithPageSize sets the default page size of list views.
func WithPageSize(n int) Option {
	return func(v *Views) {
		if n > 0 && n <= model.MaxPageSize {
			v.pageSize = n
		}
	}
}

// WithLogger sets the logger used for render failures.
func WithLogger(l logger.Logger) Option {
	return func(v *Views) {
		if l != nil {
			v.log = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(v *Views) {
		if m != nil {
			v.metrics = m
		}
	}
}

// New creates the views on top of api.
func New(api API, opts ...Option) *Views {
	v := &Views{
		api:      api,
		pageSize: model.DefaultPageSize,
		log:      logger.New(slog.Default()),
		metrics:  metrics.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Routes returns the dashboard route table in navigation order.
func (v *Views) Routes() []router.Route {
	return []router.Route{
		{Path: "/", Name: Dashboard, Load: v.loader(Dashboard, "dashboard.html", v.dashboard)},
		{Path: "/devices", Name: Devices, Load: v.loader(Devices, "devices.html", v.devices)},
		{Path: "/devices/:name", Name: DeviceDetail, Load: v.loader(DeviceDetail, "device_detail.html", v.deviceDetail)},
		{Path: "/results", Name: Results, Load: v.loader(Results, "results.html", v.results)},
		{Path: "/results/:id", Name: ResultDetail, Load: v.loader(ResultDetail, "result_detail.html", v.resultDetail)},
		{Path: "/alarms", Name: Alarms, Load: v.loader(Alarms, "alarms.html", v.alarms)},
	}
}

// page is the data passed to the layout template.
type page struct {
	Title    string
	Active   string
	Err      string
	NotFound bool
	Query    url.Values
	Data     any
	Pager    *pager
}

// fetchFunc loads the data of one view. A nil page with a nil error means
// the addressed entity does not exist.
type fetchFunc func(ctx context.Context, r *http.Request, ps httprouter.Params) (*page, error)

// loader parses the view's templates on first visit and returns the handle
// serving it.
func (v *Views) loader(name, file string, fetch fetchFunc) router.Loader {
	return func(context.Context) (router.View, error) {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			p, err := fetch(r.Context(), r, ps)
			status := http.StatusOK
			switch {
			case err != nil:
				// The client has already logged the failure.
				status = http.StatusBadGateway
				p = &page{Err: err.Error()}
			case p == nil:
				status = http.StatusNotFound
				p = &page{Err: "The requested item does not exist.", NotFound: true}
			}
			if p.Title == "" {
				p.Title = titles[name]
			}
			if p.Active == "" {
				p.Active = activeTab(name)
			}
			v.render(w, r, tmpl, name, status, p)
		}, nil
	}
}

func (v *Views) render(w http.ResponseWriter, r *http.Request, tmpl *template.Template, name string, status int, p *page) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", p); err != nil {
		v.metrics.RecordViewRenderError(name)
		v.log.Error(r.Context(), "render failed",
			logger.String("view", name),
			logger.Error(fmt.Errorf("%w: %w", ErrRender, err)),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func activeTab(name string) string {
	switch name {
	case DeviceDetail:
		return Devices
	case ResultDetail:
		return Results
	}
	return name
}

var funcs = template.FuncMap{
	"percent":      percent,
	"resultStatus": resultStatus,
	"pathEscape":   url.PathEscape,
}

func percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func resultStatus(s *int) string {
	switch {
	case s == nil:
		return ""
	case *s == 1:
		return "OK"
	default:
		return "NOK"
	}
}

// pager holds the links of a paged list.
type pager struct {
	Page  int
	Pages int
	Total int64
	Prev  string
	Next  string
}

func newPager(path string, q url.Values, pg, size int, total int64) *pager {
	if size <= 0 {
		return nil
	}
	if pg < 1 {
		pg = 1
	}
	pages := int((total + int64(size) - 1) / int64(size))
	if pages < 1 {
		pages = 1
	}
	link := func(n int) string {
		out := url.Values{}
		for k, vs := range q {
			out[k] = append([]string(nil), vs...)
		}
		out.Set("page", strconv.Itoa(n))
		return path + "?" + out.Encode()
	}
	return &pager{Page: pg, Pages: pages, Total: total, Prev: link(pg - 1), Next: link(pg + 1)}
}

// listParams copies the allowed keys of q and fills in the default page size.
func (v *Views) listParams(q url.Values, keys ...string) url.Values {
	out := url.Values{}
	for _, k := range keys {
		if vals, ok := q[k]; ok {
			out[k] = append([]string(nil), vals...)
		}
	}
	if out.Get("page_size") == "" {
		out.Set("page_size", strconv.Itoa(v.pageSize))
	}
	return out
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}
