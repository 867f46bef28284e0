package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/bizdash/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":3000")
			convey.So(cfg.APIBaseURL, convey.ShouldEqual, "http://localhost:8000/api")
			convey.So(cfg.APITimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.ShutdownTimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.PageSize, convey.ShouldEqual, 20)
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":        func(c *config.Config) { c.Addr = " " },
			"empty base url":    func(c *config.Config) { c.APIBaseURL = "" },
			"relative base url": func(c *config.Config) { c.APIBaseURL = "/api" },
			"ftp base url":      func(c *config.Config) { c.APIBaseURL = "ftp://host/api" },
			"zero timeout":      func(c *config.Config) { c.APITimeoutMS = 0 },
			"zero shutdown":     func(c *config.Config) { c.ShutdownTimeoutMS = 0 },
			"page size too big": func(c *config.Config) { c.PageSize = 101 },
			"page size zero":    func(c *config.Config) { c.PageSize = 0 },
			"no probe workers":  func(c *config.Config) { c.ProbeWorkers = 0 },
			"zero refresh":      func(c *config.Config) { c.MetricsRefreshMS = 0 },
			"bad log format":    func(c *config.Config) { c.LogFormat = "xml" },
		}

		convey.Convey("Then each is rejected with ErrInvalidConfig", func() {
			for name, mutate := range cases {
				cfg := config.New(context.Background())
				mutate(cfg)
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				_ = name
			}
		})
	})
}
