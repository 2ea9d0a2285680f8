package guard

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"omnia/internal/domain/models"
	"omnia/internal/logging"
)

// Session is the authentication state seen by the guard. It never carries
// credentials.
type Session struct {
	Authenticated bool               `json:"authenticated"`
	User          *models.PublicUser `json:"user,omitempty"`
}

// Anonymous is the unauthenticated session.
func Anonymous() Session { return Session{} }

// Authenticated returns a signed-in session for u.
func Authenticated(u models.PublicUser) Session {
	return Session{Authenticated: true, User: &u}
}

// Resolver asks the authentication provider for the current session.
type Resolver interface {
	ResolveSession(ctx context.Context) (Session, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context) (Session, error)

func (f ResolverFunc) ResolveSession(ctx context.Context) (Session, error) { return f(ctx) }

// Persister stores the session snapshot between runs.
type Persister interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// Store holds one authentication session. The session is resolved lazily on
// first use and then reused until Refresh, Set or Clear. A failed resolution
// leaves the store unauthenticated and keeps the error for Err.
type Store struct {
	resolver Resolver
	persist  Persister
	log      logging.Logger
	group    singleflight.Group

	mu       sync.Mutex
	current  Session
	snapshot Session
	resolved bool
	err      error
	gen      uint64
}

type Option func(*Store)

func WithPersister(p Persister) Option {
	return func(s *Store) { s.persist = p }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

func NewStore(r Resolver, opts ...Option) *Store {
	s := &Store{resolver: r, log: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init loads the persisted snapshot. The snapshot is a hint for the UI
// (see Snapshot); the session itself is still resolved on first use.
func (s *Store) Init(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	snap, err := s.persist.Load()
	if err != nil {
		s.log.Warn(ctx, "session snapshot unreadable", "error", err)
		return err
	}
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	return nil
}

// Snapshot returns the last known session without resolving.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return s.current
	}
	return s.snapshot
}

// Resolved reports whether the session has been resolved.
func (s *Store) Resolved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolved
}

// Session returns the resolved session, resolving it first if needed.
// Concurrent first calls share one resolution.
func (s *Store) Session(ctx context.Context) Session {
	s.mu.Lock()
	if s.resolved {
		sess := s.current
		s.mu.Unlock()
		return sess
	}
	gen := s.gen
	s.mu.Unlock()

	v, _, _ := s.group.Do(groupKey, func() (any, error) {
		s.mu.Lock()
		if s.resolved {
			sess := s.current
			s.mu.Unlock()
			return sess, nil
		}
		s.mu.Unlock()
		return s.resolve(ctx, gen), nil
	})
	return v.(Session)
}

const groupKey = "session"

func (s *Store) resolve(ctx context.Context, gen uint64) Session {
	var (
		sess Session
		err  error
	)
	if s.resolver != nil {
		sess, err = s.resolver.ResolveSession(ctx)
	}
	if err != nil {
		s.log.Warn(ctx, "session resolution failed", "error", err)
		sess = Anonymous()
	}
	if !sess.Authenticated {
		sess.User = nil
	}

	s.mu.Lock()
	if gen != s.gen {
		// Set, Clear or Refresh ran meanwhile; their state wins.
		if s.resolved {
			sess = s.current
		}
		s.mu.Unlock()
		return sess
	}
	s.current = sess
	s.resolved = true
	s.err = err
	s.mu.Unlock()

	s.save(ctx, sess)
	return sess
}

// Refresh discards the resolved session and resolves it again.
func (s *Store) Refresh(ctx context.Context) Session {
	s.mu.Lock()
	s.gen++
	s.resolved = false
	s.err = nil
	s.mu.Unlock()
	s.group.Forget(groupKey)
	return s.Session(ctx)
}

// Set installs sess as resolved, typically right after sign-in.
func (s *Store) Set(ctx context.Context, sess Session) {
	if !sess.Authenticated {
		sess.User = nil
	}
	s.mu.Lock()
	s.gen++
	s.current = sess
	s.resolved = true
	s.err = nil
	s.mu.Unlock()
	s.group.Forget(groupKey)
	s.save(ctx, sess)
}

// Clear signs the session out locally and drops the snapshot.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	s.current = Anonymous()
	s.snapshot = Anonymous()
	s.resolved = true
	s.err = nil
	s.mu.Unlock()
	s.group.Forget(groupKey)
	if s.persist != nil {
		if err := s.persist.Clear(); err != nil {
			s.log.Warn(ctx, "session snapshot not cleared", "error", err)
		}
	}
}

// Err returns the error of the last resolution, if it failed.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Store) save(ctx context.Context, sess Session) {
	s.mu.Lock()
	s.snapshot = sess
	s.mu.Unlock()
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(sess); err != nil {
		s.log.Warn(ctx, "session snapshot not saved", "error", err)
	}
}
