package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/markdotcom5/markmvp5-sub000/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8090")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
				convey.So(cfg.TickIntervalMS, convey.ShouldEqual, 3_000)
				convey.So(cfg.CallTimeoutMS, convey.ShouldEqual, 5_000)
				convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 300)
				convey.So(cfg.CacheBackend, convey.ShouldEqual, "memory")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ACADEMY_ADDR", ":8080")
			_ = os.Setenv("ACADEMY_LOG_LEVEL", "debug")
			_ = os.Setenv("ACADEMY_TICK_INTERVAL_MS", "500")
			_ = os.Setenv("ACADEMY_CACHE_BACKEND", "redis")
			_ = os.Setenv("ACADEMY_REDIS_ADDR", "redis:6379")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.TickIntervalMS, convey.ShouldEqual, 500)
				convey.So(cfg.CacheBackend, convey.ShouldEqual, "redis")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "redis:6379")
				convey.So(cfg.CallTimeoutMS, convey.ShouldEqual, 5_000)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			clearConfigEnvVars()

			dir := t.TempDir()
			path := filepath.Join(dir, "academy.yaml")
			yaml := "addr: \":7070\"\ncache_ttl_seconds: 60\nopenai_model: gpt-4o\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)

			_ = os.Setenv("ACADEMY_CONFIG", path)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values should override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 60)
				convey.So(cfg.OpenAIModel, convey.ShouldEqual, "gpt-4o")
			})

			convey.Convey("And env vars should override file values", func() {
				_ = os.Setenv("ACADEMY_ADDR", ":6060")

				cfg, err := config.Load(ctx)

				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
				convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 60)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			clearConfigEnvVars()
			_ = os.Setenv("ACADEMY_CONFIG", "/nonexistent/academy.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should report a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a value fails validation", func() {
			clearConfigEnvVars()
			_ = os.Setenv("ACADEMY_CACHE_BACKEND", "tarball")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should reject the config", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"ACADEMY_CONFIG",
		"ACADEMY_ADDR",
		"ACADEMY_LOG_LEVEL",
		"ACADEMY_TICK_INTERVAL_MS",
		"ACADEMY_CALL_TIMEOUT_MS",
		"ACADEMY_CACHE_TTL_SECONDS",
		"ACADEMY_CACHE_BACKEND",
		"ACADEMY_REDIS_ADDR",
		"ACADEMY_OPENAI_MODEL",
	} {
		_ = os.Unsetenv(key)
	}
}
