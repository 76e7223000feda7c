package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/explorer"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
	"github.com/arboimoveis/mapexplorer/internal/pkg/metrics"
)

const (
	DefaultSessionTTL = 30 * time.Minute
	snapshotOutbox    = 256
)

// ExplorerConfig tunes the sessions an ExplorerService creates.
type ExplorerConfig struct {
	FeedLimit    int
	PriceCeiling int64
	MinRadius    float64
	MaxRadius    float64
	SessionTTL   time.Duration
	// MaxSessions caps live sessions. Zero means unlimited.
	MaxSessions int
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Session is one live explorer and its bookkeeping.
type Session struct {
	ID       string
	Explorer *explorer.Explorer
	Created  time.Time

	lastSeen atomic.Int64
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

type outboxMsg struct {
	session string
	data    []byte
}

// ExplorerService owns the live explorer sessions of this instance.
type ExplorerService struct {
	source    ports.RecordSource
	factory   ports.MapFactory
	publisher ports.EventPublisher
	cfg       ExplorerConfig
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	outbox chan outboxMsg
}

// NewExplorerService creates a new ExplorerService. publisher may be nil.
func NewExplorerService(
	source ports.RecordSource,
	factory ports.MapFactory,
	publisher ports.EventPublisher,
	cfg ExplorerConfig,
	logger *slog.Logger,
) *ExplorerService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExplorerService{
		source:    source,
		factory:   factory,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		sessions:  make(map[string]*Session),
		outbox:    make(chan outboxMsg, snapshotOutbox),
	}
}

// Create starts a new explorer session with its initial records loaded.
func (s *ExplorerService) Create(ctx context.Context) (*Session, error) {
	if s.cfg.MaxSessions > 0 && s.Len() >= s.cfg.MaxSessions {
		return nil, domain.ErrTooManySessions
	}

	id := uuid.NewString()
	logger := s.logger.With("session", id)
	exp := explorer.New(explorer.Options{
		Source:       s.source,
		Factory:      s.factory,
		FeedLimit:    s.cfg.FeedLimit,
		PriceCeiling: s.cfg.PriceCeiling,
		MinRadius:    s.cfg.MinRadius,
		MaxRadius:    s.cfg.MaxRadius,
		Logger:       logger,
		OnRecompute: func(r explorer.Recomputation) {
			metrics.ObserveRecompute(string(r.Mode), r.Rendered, r.Duration, r.Err)
		},
	})
	if s.publisher != nil {
		exp.Subscribe(func(snap domain.ListSnapshot) { s.enqueue(id, snap) })
	}

	if err := exp.Start(ctx); err != nil {
		exp.Close()
		return nil, fmt.Errorf("start explorer: %w", err)
	}

	now := s.cfg.Clock()
	sess := &Session{ID: id, Explorer: exp, Created: now}
	sess.lastSeen.Store(now.UnixNano())

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	metrics.ActiveSessions.Inc()

	logger.Info("explorer session created", "records", exp.Snapshot().Count)
	return sess, nil
}

// Get returns a live session and marks it as used.
func (s *ExplorerService) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	sess.lastSeen.Store(s.cfg.Clock().UnixNano())
	return sess, nil
}

// Delete closes and forgets a session.
func (s *ExplorerService) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.Explorer.Close()
	metrics.ActiveSessions.Dec()
	return nil
}

// Len returns the number of live sessions.
func (s *ExplorerService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Watch subscribes fn to the list updates of a session.
func (s *ExplorerService) Watch(id string, fn func(domain.ListSnapshot)) (cancel func(), err error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Explorer.Subscribe(fn), nil
}

// RefreshAll fetches the record feed once and hands it to every live session.
// A failed fetch leaves the sessions as they are.
func (s *ExplorerService) RefreshAll(ctx context.Context) (int, error) {
	if s.source == nil {
		return 0, nil
	}
	records, err := s.source.FetchRecords(ctx, s.feedLimit())
	if err != nil {
		return 0, fmt.Errorf("fetch records: %w", err)
	}

	live := s.live()
	for _, sess := range live {
		sess.Explorer.SetRecords(records)
	}
	return len(live), nil
}

// HandleListingsRefreshed refreshes every session when the feed changes.
func (s *ExplorerService) HandleListingsRefreshed(ctx context.Context, event *domain.ListingsRefreshed) error {
	n, err := s.RefreshAll(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("explorer sessions refreshed", "sessions", n, "source", event.Source, "count", event.Count)
	return nil
}

// EvictIdle closes sessions unused for longer than the session TTL.
func (s *ExplorerService) EvictIdle() int {
	cutoff := s.cfg.Clock().Add(-s.cfg.SessionTTL).UnixNano()

	var idle []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.lastSeen.Load() < cutoff {
			idle = append(idle, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		sess.Explorer.Close()
		metrics.ActiveSessions.Dec()
		metrics.SessionsEvicted.Inc()
		s.logger.Info("explorer session evicted", "session", sess.ID)
	}
	return len(idle)
}

// Run evicts idle sessions and relays snapshots until ctx is done.
func (s *ExplorerService) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(max(s.cfg.SessionTTL/4, time.Second))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				s.EvictIdle()
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg := <-s.outbox:
				if err := s.publisher.PublishSnapshot(ctx, msg.session, msg.data); err != nil {
					s.logger.Debug("publish snapshot", "session", msg.session, "error", err)
				}
			}
		}
	})

	return g.Wait()
}

// Close closes every session.
func (s *ExplorerService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Explorer.Close()
		metrics.ActiveSessions.Dec()
	}
}

// enqueue runs under the explorer lock, so it never blocks. Snapshots that do
// not fit are dropped; the next one supersedes them anyway.
func (s *ExplorerService) enqueue(id string, snap domain.ListSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	select {
	case s.outbox <- outboxMsg{session: id, data: data}:
	default:
	}
}

func (s *ExplorerService) live() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

func (s *ExplorerService) feedLimit() int {
	if s.cfg.FeedLimit <= 0 {
		return explorer.DefaultFeedLimit
	}
	return s.cfg.FeedLimit
}
