package dbctx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"reward-ledger/logger"
)

// MaxAttempts bounds how many times Run executes a transaction that keeps
// failing with a serialization or deadlock error.
const MaxAttempts = 3

// ErrTransientConflict is returned once every attempt has hit a conflict.
// Callers may retry the whole request.
var ErrTransientConflict = errors.New("transaction conflict")

// Context bundles a request context with the transaction every nested reward
// step must reuse, plus the queue of hooks to run once that transaction commits.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB

	hooks *hookQueue
	log   *logger.Logger
}

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

type hookQueue struct {
	items []hook
}

// AfterCommit queues fn to run after the enclosing transaction commits. Hooks
// never run if the transaction rolls back. A Context built outside Run has no
// transaction to wait for, so the hook runs immediately.
func (c Context) AfterCommit(name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	if c.hooks == nil {
		runHook(detach(c.Ctx), c.log, hook{name: name, fn: fn})
		return
	}
	c.hooks.items = append(c.hooks.items, hook{name: name, fn: fn})
}

// Run executes fn inside a single transaction and then drains the post-commit
// queue. Conflicts are retried up to MaxAttempts; hooks queued by a failed
// attempt are dropped with it.
func Run(ctx context.Context, db *gorm.DB, log *logger.Logger, fn func(dbc Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		log = logger.NewNop()
	}

	backoff := 20 * time.Millisecond
	for attempt := 1; ; attempt++ {
		queue := &hookQueue{}
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(Context{Ctx: ctx, Tx: tx, hooks: queue, log: log})
		})
		if err == nil {
			hookCtx := detach(ctx)
			for _, h := range queue.items {
				runHook(hookCtx, log, h)
			}
			return nil
		}
		if !IsConflict(err) {
			return err
		}
		if attempt >= MaxAttempts {
			log.Warn("transaction conflict, giving up", "attempts", attempt, "error", err)
			return fmt.Errorf("%w: %v", ErrTransientConflict, err)
		}
		log.Debug("transaction conflict, retrying", "attempt", attempt, "error", err)
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
	}
}

// IsConflict reports whether err is a retryable serialization failure or
// deadlock reported by Postgres.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransientConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func runHook(ctx context.Context, log *logger.Logger, h hook) {
	defer func() {
		if r := recover(); r != nil && log != nil {
			log.Error("post-commit hook panicked", "hook", h.name, "panic", r)
		}
	}()
	if err := h.fn(ctx); err != nil && log != nil {
		log.Warn("post-commit hook failed", "hook", h.name, "error", err)
	}
}

// detach keeps request values but drops cancellation: side effects should
// not die with the HTTP request that triggered them.
func detach(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
