package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/markdotcom5/markmvp5-sub000/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// recordingChannel collects delivered payloads.
type recordingChannel struct {
	id   string
	mu   sync.Mutex
	got  [][]byte
	fail bool
}

func (c *recordingChannel) ID() string { return c.id }

func (c *recordingChannel) Send(_ context.Context, payload []byte) error {
	if c.fail {
		return errors.New("channel closed")
	}
	c.mu.Lock()
	c.got = append(c.got, payload)
	c.mu.Unlock()
	return nil
}

func (c *recordingChannel) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.got))
	copy(out, c.got)
	return out
}

func TestPublish(t *testing.T) {
	Convey("Given a bus with two channels for one participant", t, func() {
		b := New()
		ctx := context.Background()
		ch1 := &recordingChannel{id: "c1"}
		ch2 := &recordingChannel{id: "c2"}
		other := &recordingChannel{id: "c3"}
		b.Subscribe("p1", ch1)
		b.Subscribe("p1", ch2)
		b.Subscribe("p2", other)

		Convey("When an event is published for p1", func() {
			b.Publish(ctx, "p1", model.NewEvent(model.EventRankUpdate, map[string]interface{}{"rank": 3}))

			Convey("Then both of p1's channels receive it", func() {
				So(ch1.received(), ShouldHaveLength, 1)
				So(ch2.received(), ShouldHaveLength, 1)
			})

			Convey("And the unrelated participant receives nothing", func() {
				So(other.received(), ShouldBeEmpty)
			})

			Convey("And the wire shape carries type, payload, and timestamp", func() {
				var decoded map[string]interface{}
				So(json.Unmarshal(ch1.received()[0], &decoded), ShouldBeNil)
				So(decoded["type"], ShouldEqual, "rank_update")
				So(decoded["payload"], ShouldNotBeNil)
				So(decoded["timestamp"], ShouldNotBeEmpty)
			})
		})

		Convey("When events are published in order A then B", func() {
			for i := 0; i < 10; i++ {
				b.Publish(ctx, "p1", model.NewEvent(model.EventProgressUpdate,
					map[string]interface{}{"seq": i}))
			}

			Convey("Then each channel sees them in publish order", func() {
				for _, ch := range []*recordingChannel{ch1, ch2} {
					got := ch.received()
					So(got, ShouldHaveLength, 10)
					for i, raw := range got {
						var ev struct {
							Payload map[string]float64 `json:"payload"`
						}
						So(json.Unmarshal(raw, &ev), ShouldBeNil)
						So(ev.Payload["seq"], ShouldEqual, float64(i))
					}
				}
			})
		})

		Convey("When one channel fails", func() {
			ch1.fail = true
			b.Publish(ctx, "p1", model.NewEvent(model.EventProgressUpdate, nil))

			Convey("Then the sibling channel still gets the event and no panic reaches the caller", func() {
				So(ch2.received(), ShouldHaveLength, 1)
			})
		})

		Convey("When publishing for a participant with no channels", func() {
			Convey("Then delivery is silently dropped", func() {
				So(func() {
					b.Publish(ctx, "nobody", model.NewEvent(model.EventProgressUpdate, nil))
				}, ShouldNotPanic)
			})
		})
	})
}

func TestSubscribeUnsubscribe(t *testing.T) {
	Convey("Given a bus", t, func() {
		b := New()
		ctx := context.Background()
		ch := &recordingChannel{id: "c1"}

		Convey("Subscribe then unsubscribe stops delivery", func() {
			b.Subscribe("p1", ch)
			So(b.ChannelCount("p1"), ShouldEqual, 1)

			b.Unsubscribe("p1", ch)
			So(b.ChannelCount("p1"), ShouldEqual, 0)

			b.Publish(ctx, "p1", model.NewEvent(model.EventProgressUpdate, nil))
			So(ch.received(), ShouldBeEmpty)
		})

		Convey("Removing the last channel leaves an empty registration, not an error", func() {
			b.Subscribe("p1", ch)
			b.Unsubscribe("p1", ch)
			So(func() { b.Unsubscribe("p1", ch) }, ShouldNotPanic)
			So(b.TotalChannels(), ShouldEqual, 0)
		})

		Convey("Unsubscribing an unknown participant is a no-op", func() {
			So(func() { b.Unsubscribe("ghost", ch) }, ShouldNotPanic)
		})
	})
}

func TestConcurrentPublish(t *testing.T) {
	Convey("Given many participants publishing concurrently", t, func() {
		b := New()
		ctx := context.Background()

		channels := make([]*recordingChannel, 8)
		var wg sync.WaitGroup
		for i := range channels {
			channels[i] = &recordingChannel{id: fmt.Sprintf("c%d", i)}
			b.Subscribe(fmt.Sprintf("p%d", i), channels[i])
		}
		for i := range channels {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					b.Publish(ctx, fmt.Sprintf("p%d", n),
						model.NewEvent(model.EventProgressUpdate, map[string]interface{}{"seq": j}))
				}
			}(i)
		}
		wg.Wait()

		Convey("Then every channel got exactly its own events in order", func() {
			for _, ch := range channels {
				got := ch.received()
				So(got, ShouldHaveLength, 50)
				for j, raw := range got {
					var ev struct {
						Payload map[string]float64 `json:"payload"`
					}
					So(json.Unmarshal(raw, &ev), ShouldBeNil)
					So(ev.Payload["seq"], ShouldEqual, float64(j))
				}
			}
		})
	})
}
