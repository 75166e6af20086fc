package router

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// PollInterval is the router's default tick cadence (spec.md §5),
// used by DefaultConfig.
const PollInterval = 1 * time.Second

// Config holds the router's tunables, mirroring config.RouterConfig.
type Config struct {
	PollInterval time.Duration
	MaxAttempts  int
	MessageTTL   time.Duration
}

// DefaultConfig returns spec.md's documented defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval: PollInterval,
		MaxAttempts:  MaxAttempts,
		MessageTTL:   DefaultTTL,
	}
}

// Router ties the outbox ingest loop and the delivery loop together
// behind a single Tick, called once per control-loop iteration.
type Router struct {
	outbox   *Outbox
	queue    *Queue
	delivery *Delivery
	watcher  *fsnotify.Watcher
	cfg      Config
	log      *slog.Logger
}

// New constructs a Router. queueRoot is the project's .macot directory
// (the outbox lives at queueRoot/messages/outbox). A zero-value cfg
// field falls back to DefaultConfig's value for that field.
func New(queueRoot string, registry AgentLookup, sender Sender, cfg Config, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = PollInterval
	}
	return &Router{
		outbox:   NewOutbox(queueRoot, cfg.MessageTTL, log),
		queue:    NewQueue(),
		delivery: NewDelivery(registry, sender, cfg.MaxAttempts, cfg.MessageTTL, log),
		cfg:      cfg,
		log:      log,
	}
}

// PollInterval returns the configured tick cadence, for the control
// loop to gate its own calls to Tick.
func (r *Router) PollInterval() time.Duration { return r.cfg.PollInterval }

// WatchOutbox starts an fsnotify watch on the outbox directory so the
// control loop can wake promptly on new messages (it checks Events on
// each frame) instead of relying solely on the 1s poll. Best effort:
// failure to watch just falls back to polling only, never treated as
// fatal.
func (r *Router) WatchOutbox() {
	dir := r.outbox.outboxDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.log.Warn("router: cannot create outbox dir", "error", err)
		return
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		r.log.Warn("router: fsnotify unavailable, falling back to polling", "error", err)
		return
	}
	if err := w.Add(dir); err != nil {
		r.log.Warn("router: cannot watch outbox dir", "error", err)
		w.Close()
		return
	}
	r.watcher = w
}

// Events exposes the fsnotify event channel (nil if WatchOutbox was
// never called or failed), for the control loop to select on
// alongside its 16ms input poll.
func (r *Router) Events() <-chan fsnotify.Event {
	if r.watcher == nil {
		return nil
	}
	return r.watcher.Events
}

// Close releases the fsnotify watch, if any.
func (r *Router) Close() error {
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

// Tick runs one ingest-then-deliver cycle.
func (r *Router) Tick(ctx context.Context, now time.Time) {
	if _, err := r.outbox.Ingest(r.queue, now); err != nil {
		r.log.Warn("router ingest failed", "error", err)
	}
	r.delivery.Run(ctx, r.queue, now)
}

// Queue exposes the in-memory priority queue (for status reporting
// and tests).
func (r *Router) Queue() *Queue { return r.queue }

// QueueRootMessagesDir returns the queue root for a given project root:
// its .macot directory, under which the messages/ tree lives, matching
// spec.md §6's filesystem layout.
func QueueRootMessagesDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".macot")
}
