package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given the static site registered on a mux", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		Convey("Then the stylesheet is served", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/dashboard.css", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/css")
		})

		Convey("And unknown assets are 404", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/missing.js", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And paths outside the prefix are not handled", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a nil mux", t, func() {
		Convey("Then Register panics", func() {
			So(func() { Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}
