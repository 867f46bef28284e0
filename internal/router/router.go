// Package router maps dashboard URL paths to lazily loaded views.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/julienschmidt/httprouter"

	"github.com/okian/bizdash/pkg/logger"
	"github.com/okian/bizdash/pkg/metrics"
)

// View renders one page. ps holds the route's named segments.
type View = httprouter.Handle

// Loader builds a view. It runs on the first visit of its route and again
// on later visits until it succeeds.
type Loader func(ctx context.Context) (View, error)

// Route declares a path pattern served by a named view. Patterns use
// httprouter syntax, e.g. /devices/:name.
type Route struct {
	Path string
	Name string
	Load Loader
}

// Match is the result of resolving a path.
type Match struct {
	Name    string
	Pattern string
	Params  httprouter.Params
}

// Param returns the value of a named segment.
func (m Match) Param(name string) string { return m.Params.ByName(name) }

type entry struct {
	route Route

	mu   sync.Mutex
	view View
}

// Table is an ordered route table. It is an http.Handler.
type Table struct {
	entries []*entry
	router  *httprouter.Router
	log     logger.Logger
	metrics *metrics.Manager
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the logger used for failed view loads.
func WithLogger(l logger.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.log = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(t *Table) {
		if m != nil {
			t.metrics = m
		}
	}
}

// New registers routes in order. Conflicting patterns panic, as with
// httprouter.
func New(routes []Route, opts ...Option) *Table {
	t := &Table{
		router:  httprouter.New(),
		log:     logger.New(slog.Default()),
		metrics: metrics.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, r := range routes {
		e := &entry{route: r}
		t.entries = append(t.entries, e)
		t.router.GET(r.Path, t.serve(e))
	}
	return t
}

// Routes returns the declared routes in order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.route
	}
	return out
}

// Resolve finds the route serving path. path is in its escaped form, as in
// an address bar; param values are returned unescaped. Undeclared paths do
// not match.
func (t *Table) Resolve(path string) (Match, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	e, ps, _ := t.match(path)
	if e == nil {
		t.metrics.RecordRouteLookup("none")
		return Match{}, false
	}
	t.metrics.RecordRouteLookup(e.route.Name)
	return Match{Name: e.route.Name, Pattern: e.route.Path, Params: ps}, true
}

// match looks up an escaped path. Segments are split before unescaping so
// an encoded slash stays inside its param value. tsr reports whether the
// path with its trailing slash toggled would match.
func (t *Table) match(path string) (e *entry, ps httprouter.Params, tsr bool) {
	if !strings.HasPrefix(path, "/") {
		return nil, nil, false
	}
	handle, raw, tsr := t.router.Lookup(http.MethodGet, path)
	if handle == nil {
		return nil, nil, tsr
	}
	for _, cand := range t.entries {
		if expand(cand.route.Path, raw) != path {
			continue
		}
		ps = make(httprouter.Params, len(raw))
		for i, p := range raw {
			v, err := url.PathUnescape(p.Value)
			if err != nil {
				return nil, nil, false
			}
			ps[i] = httprouter.Param{Key: p.Key, Value: v}
		}
		return cand, ps, false
	}
	return nil, nil, false
}

// Loaded returns how many views have been loaded so far.
func (t *Table) Loaded() int {
	n := 0
	for _, e := range t.entries {
		e.mu.Lock()
		if e.view != nil {
			n++
		}
		e.mu.Unlock()
	}
	return n
}

// ServeHTTP dispatches GET requests on the escaped path to the matching
// view. A path matching with its trailing slash toggled is redirected;
// other methods get httprouter's 405 and unmatched paths 404.
func (t *Table) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		t.router.ServeHTTP(w, r)
		return
	}
	path := r.URL.EscapedPath()
	e, ps, tsr := t.match(path)
	switch {
	case e != nil:
		t.serve(e)(w, r, ps)
	case tsr && path != "/":
		if strings.HasSuffix(path, "/") {
			path = strings.TrimSuffix(path, "/")
		} else {
			path += "/"
		}
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, path, http.StatusMovedPermanently)
	default:
		t.metrics.RecordRouteLookup("none")
		http.NotFound(w, r)
	}
}

func (t *Table) serve(e *entry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		t.metrics.RecordRouteLookup(e.route.Name)
		view, err := t.load(r.Context(), e)
		if err != nil {
			t.log.Error(r.Context(), "view load failed",
				logger.String("route", e.route.Name),
				logger.String("path", r.URL.Path),
				logger.Error(err),
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		view(w, r, ps)
	}
}

// load returns the cached view or runs the loader. Concurrent first visits
// share one load.
func (t *Table) load(ctx context.Context, e *entry) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view != nil {
		return e.view, nil
	}
	if e.route.Load == nil {
		t.metrics.RecordViewLoad(e.route.Name, "error")
		return nil, fmt.Errorf("%w: %s: no loader", ErrViewLoad, e.route.Name)
	}
	view, err := e.route.Load(ctx)
	if err == nil && view == nil {
		err = errNoView
	}
	if err != nil {
		t.metrics.RecordViewLoad(e.route.Name, "error")
		return nil, fmt.Errorf("%w: %s: %w", ErrViewLoad, e.route.Name, err)
	}
	t.metrics.RecordViewLoad(e.route.Name, "ok")
	e.view = view
	return view, nil
}

// expand substitutes ps into a pattern's named segments.
func expand(pattern string, ps httprouter.Params) string {
	if !strings.ContainsAny(pattern, ":*") {
		return pattern
	}
	segs := strings.Split(pattern, "/")
	for i, s := range segs {
		if len(s) > 1 && (s[0] == ':' || s[0] == '*') {
			v := ps.ByName(s[1:])
			if s[0] == '*' {
				v = strings.TrimPrefix(v, "/")
			}
			segs[i] = v
		}
	}
	return strings.Join(segs, "/")
}
