package timeline_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
	"coachgraph/src/helper/clock"
	"coachgraph/src/services/timeline"
	"coachgraph/src/test_artefacts/stubs"
)

var _ = Describe("Controller", func() {
	var (
		fakeClock  *clock.Fake
		fetcher    *scriptedFetcher
		timeRange  timeline.TimeRange
		controller *timeline.Controller
		updatesMu  sync.Mutex
		updates    []timeline.State
	)

	newController := func(current time.Time, speed float64) *timeline.Controller {
		c, err := timeline.NewController(timeline.Options{
			UserID:        "user-ana",
			TimeRange:     timeRange,
			CurrentTime:   current,
			PlaybackSpeed: speed,
			Fetcher:       fetcher,
			Clock:         fakeClock,
			Logger:        discardLogger(),
			OnUpdate: func(s timeline.State) {
				updatesMu.Lock()
				defer updatesMu.Unlock()
				updates = append(updates, s)
			},
		})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	lastUpdate := func() timeline.State {
		updatesMu.Lock()
		defer updatesMu.Unlock()
		if len(updates) == 0 {
			return timeline.State{}
		}
		return updates[len(updates)-1]
	}

	BeforeEach(func() {
		fakeClock = clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
		fetcher = &scriptedFetcher{}
		timeRange = timeline.TimeRange{
			Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 1, 1, 0, 10, 0, 0, time.UTC),
		}
		updatesMu.Lock()
		updates = nil
		updatesMu.Unlock()
	})

	AfterEach(func() {
		if controller != nil {
			controller.Close()
			controller = nil
		}
	})

	Context("construction", func() {
		It("starts paused at the end of the range and fetches that snapshot", func() {
			controller = newController(time.Time{}, 0)

			state := controller.State()
			Expect(state.IsPlaying).To(BeFalse())
			Expect(state.CurrentTime).To(Equal(timeRange.End))
			Expect(state.PlaybackSpeed).To(Equal(1.0))

			Eventually(func() *domain.Snapshot { return controller.State().Snapshot }).ShouldNot(BeNil())
			Expect(fetcher.requestedTimes()).To(Equal([]time.Time{timeRange.End}))
		})

		It("validates its options", func() {
			_, err := timeline.NewController(timeline.Options{TimeRange: timeRange, Fetcher: fetcher})
			Expect(domain.IsValidation(err)).To(BeTrue())

			_, err = timeline.NewController(timeline.Options{UserID: "user-ana", TimeRange: timeRange})
			Expect(domain.IsValidation(err)).To(BeTrue())

			_, err = timeline.NewController(timeline.Options{
				UserID:    "user-ana",
				TimeRange: timeline.TimeRange{Start: timeRange.End, End: timeRange.Start},
				Fetcher:   fetcher,
			})
			Expect(domain.IsValidation(err)).To(BeTrue())

			_, err = timeline.NewController(timeline.Options{UserID: "user-ana", TimeRange: timeRange, Fetcher: fetcher, PlaybackSpeed: -2})
			Expect(domain.IsValidation(err)).To(BeTrue())
		})
	})

	Context("playback", func() {
		It("reaches exactly the end of the range and stops", func() {
			controller = newController(timeRange.Start, 10)
			Expect(controller.TogglePlayPause()).To(Succeed())
			controller.Start()

			// 10 minutes of history at 10x take one minute of real time.
			fakeClock.Advance(61 * time.Second)

			state := controller.State()
			Expect(state.IsPlaying).To(BeFalse())
			Expect(state.CurrentTime).To(Equal(timeRange.End))

			Eventually(func() time.Time {
				times := fetcher.requestedTimes()
				return times[len(times)-1]
			}).Should(Equal(timeRange.End))
			Eventually(func() time.Time {
				s := controller.State().Snapshot
				if s == nil {
					return time.Time{}
				}
				return s.At
			}).Should(Equal(timeRange.End))
		})

		It("clamps instead of overshooting at high speed", func() {
			controller = newController(timeRange.End.Add(-time.Second), 1000)
			Expect(controller.TogglePlayPause()).To(Succeed())

			fakeClock.Advance(timeline.FrameInterval)
			controller.Tick(fakeClock.Now())

			state := controller.State()
			Expect(state.CurrentTime).To(Equal(timeRange.End))
			Expect(state.IsPlaying).To(BeFalse())
		})

		It("stops at the end when elapsed time times speed exceeds a duration", func() {
			controller = newController(timeRange.Start, 1e12)
			Expect(controller.TogglePlayPause()).To(Succeed())

			fakeClock.Advance(timeline.FrameInterval)
			controller.Tick(fakeClock.Now())

			state := controller.State()
			Expect(state.CurrentTime).To(Equal(timeRange.End))
			Expect(state.IsPlaying).To(BeFalse())
		})

		It("advances by elapsed time times speed and skips ticks closer than a frame", func() {
			controller = newController(timeRange.Start, 2)
			Expect(controller.TogglePlayPause()).To(Succeed())

			fakeClock.Advance(30 * time.Millisecond)
			controller.Tick(fakeClock.Now())
			Expect(controller.State().CurrentTime).To(Equal(timeRange.Start))

			fakeClock.Advance(70 * time.Millisecond)
			controller.Tick(fakeClock.Now())
			Expect(controller.State().CurrentTime).To(Equal(timeRange.Start.Add(200 * time.Millisecond)))
		})

		It("does not advance while paused", func() {
			controller = newController(timeRange.Start, 1)

			fakeClock.Advance(time.Second)
			controller.Tick(fakeClock.Now())
			Expect(controller.State().CurrentTime).To(Equal(timeRange.Start))
		})

		It("rewinds to the start when playing from the end", func() {
			controller = newController(timeRange.End, 1)

			Expect(controller.TogglePlayPause()).To(Succeed())
			state := controller.State()
			Expect(state.IsPlaying).To(BeTrue())
			Expect(state.CurrentTime).To(Equal(timeRange.Start))

			Expect(controller.TogglePlayPause()).To(Succeed())
			Expect(controller.State().IsPlaying).To(BeFalse())
		})

		It("rejects non positive or non finite speeds", func() {
			controller = newController(timeRange.Start, 1)

			for _, speed := range []float64{0, -1, math.NaN(), math.Inf(1)} {
				Expect(domain.IsValidation(controller.SetPlaybackSpeed(speed))).To(BeTrue())
			}
			Expect(controller.SetPlaybackSpeed(4)).To(Succeed())
			Expect(controller.State().PlaybackSpeed).To(Equal(4.0))
		})
	})

	Context("snapshot throttling", func() {
		It("coalesces rapid seeks into one trailing request with the latest time", func() {
			controller = newController(timeRange.Start, 1)
			Eventually(fetcher.requestedTimes).Should(HaveLen(1))

			first := timeRange.Start.Add(2 * time.Minute)
			second := timeRange.Start.Add(5 * time.Minute)
			Expect(controller.SetCurrentTime(first)).To(Succeed())
			fakeClock.Advance(100 * time.Millisecond)
			Expect(controller.SetCurrentTime(second)).To(Succeed())

			Consistently(fetcher.requestedTimes, "50ms").Should(HaveLen(1))
			Expect(controller.State().CurrentTime).To(Equal(second))

			fakeClock.Advance(timeline.SnapshotInterval)
			Eventually(fetcher.requestedTimes).Should(Equal([]time.Time{timeRange.Start, second}))
			Expect(fakeClock.Pending()).To(Equal(0))
		})

		It("fires immediately once the window has passed", func() {
			controller = newController(timeRange.Start, 1)
			fakeClock.Advance(time.Second)

			target := timeRange.Start.Add(time.Minute)
			Expect(controller.SetCurrentTime(target)).To(Succeed())
			Eventually(fetcher.requestedTimes).Should(Equal([]time.Time{timeRange.Start, target}))
		})

		It("drops a response that arrives after a newer request", func() {
			fetcher.gated = true
			controller = newController(timeRange.Start, 1)
			Eventually(fetcher.requestedTimes).Should(HaveLen(1))

			fakeClock.Advance(time.Second)
			target := timeRange.Start.Add(3 * time.Minute)
			Expect(controller.SetCurrentTime(target)).To(Succeed())
			Eventually(fetcher.requestedTimes).Should(HaveLen(2))

			fresh := &domain.Snapshot{At: target}
			fetcher.call(1).release <- fetchResult{snapshot: fresh}
			Eventually(func() *domain.Snapshot { return controller.State().Snapshot }).Should(BeIdenticalTo(fresh))

			stale := &domain.Snapshot{At: timeRange.Start}
			fetcher.call(0).release <- fetchResult{snapshot: stale}
			Consistently(func() *domain.Snapshot { return controller.State().Snapshot }, "50ms").Should(BeIdenticalTo(fresh))
		})

		It("keeps position and the last good snapshot when a fetch fails", func() {
			controller = newController(timeRange.Start, 1)
			Eventually(func() *domain.Snapshot { return controller.State().Snapshot }).ShouldNot(BeNil())
			good := controller.State().Snapshot

			fetcher.setFailure(errors.New("database unavailable"))
			fakeClock.Advance(time.Second)
			target := timeRange.Start.Add(4 * time.Minute)
			Expect(controller.SetCurrentTime(target)).To(Succeed())

			Eventually(controller.Err).Should(MatchError("database unavailable"))
			state := controller.State()
			Expect(state.CurrentTime).To(Equal(target))
			Expect(state.Snapshot).To(BeIdenticalTo(good))
			Eventually(func() error { return lastUpdate().Err }).Should(HaveOccurred())

			fetcher.setFailure(nil)
			fakeClock.Advance(time.Second)
			Expect(controller.SetCurrentTime(target)).To(Succeed())
			Eventually(controller.Err).Should(BeNil())
		})
	})

	Context("sessions", func() {
		It("jumps to the selected session", func() {
			controller = newController(timeRange.Start, 1)
			session := stubs.NewNodeStub().
				WithType(entities.NodeTypeSession).
				WithCreatedAt(timeRange.Start.Add(7 * time.Minute)).
				Get()

			Expect(controller.SelectSession(session)).To(Succeed())

			state := controller.State()
			Expect(state.CurrentTime).To(Equal(session.CreatedAt))
			Expect(state.SelectedSession.ID).To(Equal(session.ID))
		})

		It("refuses a node that is not a session", func() {
			controller = newController(timeRange.Start, 1)
			goal := stubs.NewNodeStub().WithType(entities.NodeTypeGoal).Get()

			Expect(domain.IsValidation(controller.SelectSession(goal))).To(BeTrue())
			Expect(controller.State().SelectedSession).To(BeNil())
		})
	})

	Context("shutdown", func() {
		It("cancels the frame loop and the pending snapshot timer", func() {
			controller = newController(timeRange.Start, 1)
			Expect(controller.TogglePlayPause()).To(Succeed())
			controller.Start()
			Expect(controller.SetCurrentTime(timeRange.Start.Add(time.Minute))).To(Succeed())
			Expect(fakeClock.Pending()).To(Equal(2))

			controller.Close()

			Expect(fakeClock.Pending()).To(Equal(0))
			Expect(controller.State().IsPlaying).To(BeFalse())
			Expect(controller.SetCurrentTime(timeRange.End)).To(MatchError(timeline.ErrClosed))
			Expect(controller.TogglePlayPause()).To(MatchError(timeline.ErrClosed))

			fakeClock.Advance(time.Minute)
			Consistently(fetcher.requestedTimes, "50ms").Should(HaveLen(1))
		})

		It("stops when the Run context is cancelled", func() {
			controller = newController(timeRange.Start, 1)
			ctx, cancel := context.WithCancel(context.Background())

			done := make(chan struct{})
			go func() {
				controller.Run(ctx)
				close(done)
			}()

			cancel()
			Eventually(done).Should(BeClosed())
			Expect(controller.SetPlaybackSpeed(2)).To(MatchError(timeline.ErrClosed))
		})
	})
})
