package listener

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Rebuilder rebuilds the served snapshot from the store.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// ListenAndRefresh LISTENs on channel and rebuilds on every notification,
// collapsing bursts into one rebuild. Lost connections are re-acquired with
// jittered backoff. It returns when ctx is done.
func ListenAndRefresh(ctx context.Context, pool *pgxpool.Pool, rb Rebuilder, channel string, baseBackoff time.Duration) {
	for {
		err := listen(ctx, pool, rb, channel)
		if ctx.Err() != nil {
			log.Info().Msg("listener stopped")
			return
		}
		backoff := jitter(baseBackoff)
		log.Error().Err(err).Dur("retry_in", backoff).Msg("listener error")
		select {
		case <-ctx.Done():
			log.Info().Msg("listener stopped")
			return
		case <-time.After(backoff):
		}
	}
}

func listen(ctx context.Context, pool *pgxpool.Pool, rb Rebuilder, channel string) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		return err
	}
	log.Info().Str("channel", channel).Msg("listening for DB changes")

	// Changes may have landed while we were disconnected.
	if err := rb.Rebuild(ctx); err != nil {
		log.Error().Err(err).Msg("refresh snapshot error")
	}

	return refreshLoop(ctx, conn.Conn().WaitForNotification, rb, debounceWindow)
}

const debounceWindow = 200 * time.Millisecond

// waitFunc blocks until the next notification arrives.
type waitFunc func(ctx context.Context) (*pgconn.Notification, error)

// refreshLoop rebuilds for every notification. Notifications inside the
// debounce window after a rebuild collapse into one trailing rebuild at the
// end of the window, so the last change of a burst is always loaded.
func refreshLoop(ctx context.Context, wait waitFunc, rb Rebuilder, window time.Duration) error {
	d := &debouncer{window: window, run: func() {
		if ctx.Err() != nil {
			return
		}
		if err := rb.Rebuild(ctx); err != nil {
			log.Error().Err(err).Msg("refresh snapshot error")
		}
	}}

	for {
		ntf, err := wait(ctx)
		if err != nil {
			return err
		}
		log.Info().Str("channel", ntf.Channel).Str("table", ntf.Payload).Msg("db change; refreshing snapshot")
		d.trigger()
	}
}

type debouncer struct {
	window time.Duration
	run    func()

	mu      sync.Mutex
	last    time.Time
	pending *time.Timer
}

// trigger runs immediately when the window since the last run has passed,
// otherwise schedules a single run for the end of the window.
func (d *debouncer) trigger() {
	d.mu.Lock()
	if d.pending != nil {
		d.mu.Unlock()
		return
	}
	wait := d.window - time.Since(d.last)
	if wait <= 0 {
		d.last = time.Now()
		d.mu.Unlock()
		d.run()
		return
	}
	d.pending = time.AfterFunc(wait, func() {
		d.mu.Lock()
		d.pending = nil
		d.last = time.Now()
		d.mu.Unlock()
		d.run()
	})
	d.mu.Unlock()
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	factor := 0.5 + rand.Float64() // 0.5x-1.5x
	return time.Duration(float64(base) * factor)
}
