package crons

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"gitlab.com/bunkercoin/dashboard_api/config"
)

func TestGetCronByID(t *testing.T) {
	Convey("Every configured warm-up id resolves to a job", t, func() {
		for _, id := range []string{"warm_locks", "warm_burned", "warm_price", "warm_history", "warm_holders", "warm_liquidity"} {
			So(GetCronByID(id, nil), ShouldNotBeNil)
		}
	})
	Convey("Unknown ids resolve to nothing", t, func() {
		So(GetCronByID("update_markets_cache", nil), ShouldBeNil)
	})
}

func TestStartSkipsInvalidEntries(t *testing.T) {
	Convey("Unknown ids and bad schedules are skipped", t, func() {
		So(func() {
			Start(config.Crons{"unknown": "@every 1m", "warm_locks": "not a schedule"}, nil)
			Close()
		}, ShouldNotPanic)
	})
}

func TestCloseCancelsAndWaitsForRunningJobs(t *testing.T) {
	Convey("Given a job blocked on its context", t, func() {
		Start(config.Crons{}, nil)
		started := make(chan struct{})
		var seen error
		job := warm("warm_test", func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			seen = ctx.Err()
			return seen
		})
		go job()
		<-started

		Convey("Close returns only after the job saw the cancellation", func() {
			Close()
			So(seen, ShouldEqual, context.Canceled)
		})
	})
}

func TestJobsDoNotRunAfterClose(t *testing.T) {
	Convey("A job fired after Close does nothing", t, func() {
		Start(config.Crons{}, nil)
		Close()
		calls := 0
		warm("warm_test", func(context.Context) error {
			calls++
			return nil
		})()
		So(calls, ShouldEqual, 0)
	})
}
