package fetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nikbrunner/bookmarks/internal/logging"
)

// RetryPolicy bounds a title fetch task.
type RetryPolicy struct {
	Attempts int           // total attempts, including the first
	Delay    time.Duration // fixed wait before each retry
	Timeout  time.Duration // deadline of a single attempt
}

// DefaultRetryPolicy is one attempt plus two retries, 2s apart, 8s each.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: 2 * time.Second, Timeout: 8 * time.Second}
}

// Runner executes title fetches as cancellable background tasks.
type Runner struct {
	fetcher TitleFetcher
	policy  RetryPolicy
	logger  *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	tasks map[string]context.CancelFunc
	wg    sync.WaitGroup
}

// NewRunner creates a Runner. Zero policy fields fall back to
// DefaultRetryPolicy.
func NewRunner(fetcher TitleFetcher, policy RetryPolicy, logger *log.Logger) *Runner {
	def := DefaultRetryPolicy()
	if policy.Attempts <= 0 {
		policy.Attempts = def.Attempts
	}
	if policy.Delay < 0 {
		policy.Delay = def.Delay
	}
	if policy.Timeout <= 0 {
		policy.Timeout = def.Timeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		fetcher: fetcher,
		policy:  policy,
		logger:  logging.OrDiscard(logger),
		ctx:     ctx,
		cancel:  cancel,
		tasks:   make(map[string]context.CancelFunc),
	}
}

// Schedule starts fetching url in the background and returns the task id.
// apply is called at most once, with a non-empty title, from the task's
// goroutine. It is never called for a cancelled task.
func (r *Runner) Schedule(url string, apply func(title string)) string {
	id := newTaskID()
	ctx, cancel := context.WithCancel(r.ctx)

	r.mu.Lock()
	r.tasks[id] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.finish(id)

		title, err := r.run(ctx, url)
		if err != nil {
			r.logger.Debug("title fetch abandoned", "task", id, "url", url, "err", err)
			return
		}
		if ctx.Err() != nil {
			return
		}
		apply(title)
	}()

	return id
}

// Cancel aborts a pending task. Unknown ids are ignored.
func (r *Runner) Cancel(id string) {
	r.mu.Lock()
	cancel, ok := r.tasks[id]
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

// Pending returns the number of unfinished tasks.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Wait blocks until every scheduled task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close cancels all tasks and waits for them to exit.
func (r *Runner) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) finish(id string) {
	r.mu.Lock()
	if cancel, ok := r.tasks[id]; ok {
		cancel()
		delete(r.tasks, id)
	}
	r.mu.Unlock()
}

func (r *Runner) run(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < r.policy.Attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(r.policy.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}

		actx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
		title, err := r.fetcher.FetchTitle(actx, url)
		cancel()

		if err == nil {
			return title, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		r.logger.Debug("title fetch attempt failed", "url", url, "attempt", attempt+1, "err", err)
		if errors.Is(err, ErrNoTitle) {
			break
		}
	}
	return "", lastErr
}

func newTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
