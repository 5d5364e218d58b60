package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/markdotcom5/markmvp5-sub000/internal/adapters/http/api"
	service "github.com/markdotcom5/markmvp5-sub000/internal/app"
	"github.com/markdotcom5/markmvp5-sub000/internal/config"
	"github.com/markdotcom5/markmvp5-sub000/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("ACADEMY_ADDR", ":8080")
			_ = os.Setenv("ACADEMY_TICK_INTERVAL_MS", "1000")
			defer func() {
				_ = os.Unsetenv("ACADEMY_ADDR")
				_ = os.Unsetenv("ACADEMY_TICK_INTERVAL_MS")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TickIntervalMS, convey.ShouldEqual, 1000)
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				svc := service.New()
				convey.So(svc, convey.ShouldNotBeNil)
			})

			convey.Convey("And service should be creatable with custom options", func() {
				svc := service.New(
					service.WithTickInterval(time.Second),
					service.WithCallTimeout(2*time.Second),
					service.WithCacheTTL(30*time.Second),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing HTTP server wiring", func() {
			svc := service.New()
			ctx := context.Background()
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			mux := http.NewServeMux()
			apiServer := api.NewServer(svc, svc)

			convey.Convey("Then routes should register without panicking", func() {
				convey.So(func() { apiServer.Register(ctx, mux) }, convey.ShouldNotPanic)
			})
		})
	})
}
