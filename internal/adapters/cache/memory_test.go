package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// fakeClock is a controllable clock for TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestMemoryCache(t *testing.T) {
	Convey("Given a memory cache on a controllable clock", t, func() {
		clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		c := NewMemoryCache(WithNowFunc(clock.Now), WithSweepInterval(time.Hour))
		defer c.Close()
		ctx := context.Background()

		Convey("When a value is set with a 5 minute TTL", func() {
			So(c.Set(ctx, "k1", []byte("v1"), 5*time.Minute), ShouldBeNil)

			Convey("Then it is returned before expiry", func() {
				got, ok, err := c.Get(ctx, "k1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(string(got), ShouldEqual, "v1")
			})

			Convey("Then it is absent after the TTL elapses, without any sweep", func() {
				clock.Advance(5*time.Minute + time.Second)
				_, ok, err := c.Get(ctx, "k1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)

				Convey("And the expired entry was lazily evicted", func() {
					So(c.Len(), ShouldEqual, 0)
				})
			})

			Convey("Then expiry exactly at the boundary counts as expired", func() {
				clock.Advance(5 * time.Minute)
				_, ok, _ := c.Get(ctx, "k1")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a key is overwritten", func() {
			So(c.Set(ctx, "k", []byte("old"), time.Minute), ShouldBeNil)
			So(c.Set(ctx, "k", []byte("new"), time.Minute), ShouldBeNil)

			Convey("Then the newer value wins unconditionally", func() {
				got, ok, _ := c.Get(ctx, "k")
				So(ok, ShouldBeTrue)
				So(string(got), ShouldEqual, "new")
			})
		})

		Convey("When a different key is requested", func() {
			So(c.Set(ctx, "scope:p1:100", []byte("rank"), time.Minute), ShouldBeNil)

			Convey("Then the old entry never answers a changed-score key", func() {
				_, ok, _ := c.Get(ctx, "scope:p1:150")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the sweep runs", func() {
			So(c.Set(ctx, "a", []byte("1"), time.Minute), ShouldBeNil)
			So(c.Set(ctx, "b", []byte("2"), time.Hour), ShouldBeNil)
			clock.Advance(10 * time.Minute)
			c.sweep()

			Convey("Then only expired entries are removed", func() {
				So(c.Len(), ShouldEqual, 1)
				_, ok, _ := c.Get(ctx, "b")
				So(ok, ShouldBeTrue)
			})
		})
	})
}

func TestMemoryCacheConcurrency(t *testing.T) {
	Convey("Given concurrent readers and writers", t, func() {
		c := NewMemoryCache(WithSweepInterval(time.Millisecond))
		defer c.Close()
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				key := string(rune('a' + n))
				for j := 0; j < 200; j++ {
					_ = c.Set(ctx, key, []byte{byte(j)}, time.Millisecond*time.Duration(j%5))
					_, _, _ = c.Get(ctx, key)
				}
			}(i)
		}
		wg.Wait()

		Convey("Then no race or panic occurs", func() {
			So(c.Len(), ShouldBeGreaterThanOrEqualTo, 0)
		})
	})
}
