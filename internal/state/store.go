// Package state owns the committed series/investor dataset. Every change
// goes through WithinTx, which applies the change to a private copy,
// re-derives series metrics, persists both collections in one write and
// then tells subscribers that something moved. Writes are guarded by a
// revision counter stored next to the data, so two processes sharing one
// Redis never overwrite each other's commits.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ncd-admin-backend/internal/domain/aggregate"
	"ncd-admin-backend/internal/domain/investor"
	"ncd-admin-backend/internal/domain/series"
	"ncd-admin-backend/internal/domain/uow"
	"ncd-admin-backend/pkg/id"
)

const (
	KeySeries      = "series"
	KeyInvestors   = "investors"
	KeyAuditLogs   = "auditLogs"
	KeyDataVersion = "dataVersion"
	KeyRevision    = "revision"

	RefreshChannel = "refresh"
)

// KV is the durable key-value store the dataset is serialised into.
// Get returns nil, nil for a missing key. CompareAndSetMany writes values
// atomically only while the counter under revKey equals rev, bumps it, and
// reports uow.ErrConflict otherwise.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	CompareAndSetMany(ctx context.Context, revKey string, rev uint64, values map[string][]byte) error
	Del(ctx context.Context, keys ...string) error
}

// Broadcaster carries refresh events to other processes.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Observer is told about commits; observability.Metrics satisfies it.
type Observer interface {
	ObserveCommit(reason string)
	ObserveCommitError()
}

type RefreshEvent struct {
	Version uint64    `json:"version"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
	// Origin identifies the Store that committed; a Store ignores its own
	// events when they come back over the broadcaster.
	Origin string `json:"origin,omitempty"`
}

var _ uow.UnitOfWork = (*Store)(nil)

type Store struct {
	mu   sync.RWMutex
	data uow.Dataset
	rev  uint64
	kv   KV

	origin  string
	version atomic.Uint64

	subMu   sync.Mutex
	subs    map[int]chan RefreshEvent
	nextSub int

	bc  Broadcaster
	obs Observer
	log *zap.Logger
	now func() time.Time
}

type Option func(*Store)

func WithBroadcaster(b Broadcaster) Option { return func(s *Store) { s.bc = b } }
func WithObserver(o Observer) Option       { return func(s *Store) { s.obs = o } }
func WithLogger(l *zap.Logger) Option      { return func(s *Store) { s.log = l } }
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		origin: id.NewID32(),
		subs:   make(map[int]chan RefreshEvent),
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Bootstrap loads the persisted dataset. When the stored dataVersion tag
// differs from version (or the stored data is unreadable) the keys are
// wiped and seed is written instead.
func (s *Store) Bootstrap(ctx context.Context, version string, seed uow.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.kv.Get(ctx, KeyDataVersion)
	if err != nil {
		return fmt.Errorf("read data version: %w", err)
	}
	if string(stored) == version {
		d, rev, err := s.load(ctx)
		if err == nil {
			s.data, s.rev = d, rev
			s.log.Info("state loaded",
				zap.String("data_version", version),
				zap.Uint64("revision", rev),
				zap.Int("series", len(d.Series)),
				zap.Int("investors", len(d.Investors)))
			return nil
		}
		s.log.Warn("stored state unreadable, reseeding", zap.Error(err))
	}

	rev, err := s.revision(ctx)
	if err != nil {
		return fmt.Errorf("read revision: %w", err)
	}
	if err := s.kv.Del(ctx, KeyAuditLogs); err != nil {
		return fmt.Errorf("wipe state: %w", err)
	}
	d := seed.Clone()
	d.Series = aggregate.Recalculate(d.Series, d.Investors, nil, s.now())
	values, err := encode(d)
	if err != nil {
		return err
	}
	values[KeyDataVersion] = []byte(version)
	err = s.kv.CompareAndSetMany(ctx, KeyRevision, rev, values)
	if errors.Is(err, uow.ErrConflict) {
		// another process reseeded first
		d, rev, err := s.load(ctx)
		if err != nil {
			return fmt.Errorf("load state after concurrent seed: %w", err)
		}
		s.data, s.rev = d, rev
		s.log.Info("state loaded after concurrent seed", zap.Uint64("revision", rev))
		return nil
	}
	if err != nil {
		return fmt.Errorf("write seed: %w", err)
	}
	s.data, s.rev = d, rev+1
	s.log.Info("state reseeded",
		zap.String("previous_version", string(stored)),
		zap.String("data_version", version))
	return nil
}

func (s *Store) revision(ctx context.Context) (uint64, error) {
	raw, err := s.kv.Get(ctx, KeyRevision)
	if err != nil || raw == nil {
		return 0, err
	}
	return strconv.ParseUint(string(raw), 10, 64)
}

// load reads the revision before the data, so a commit landing in
// between only makes the returned revision stale, which the next write
// detects.
func (s *Store) load(ctx context.Context) (uow.Dataset, uint64, error) {
	var d uow.Dataset
	rev, err := s.revision(ctx)
	if err != nil {
		return d, 0, fmt.Errorf("decode revision: %w", err)
	}
	rawSeries, err := s.kv.Get(ctx, KeySeries)
	if err != nil {
		return d, 0, err
	}
	rawInvestors, err := s.kv.Get(ctx, KeyInvestors)
	if err != nil {
		return d, 0, err
	}
	d.Series = []series.Series{}
	d.Investors = []investor.Investor{}
	if rawSeries != nil {
		if err := json.Unmarshal(rawSeries, &d.Series); err != nil {
			return d, 0, fmt.Errorf("decode series: %w", err)
		}
	}
	if rawInvestors != nil {
		if err := json.Unmarshal(rawInvestors, &d.Investors); err != nil {
			return d, 0, fmt.Errorf("decode investors: %w", err)
		}
	}
	return d, rev, nil
}

func encode(d uow.Dataset) (map[string][]byte, error) {
	if d.Series == nil {
		d.Series = []series.Series{}
	}
	if d.Investors == nil {
		d.Investors = []investor.Investor{}
	}
	rawSeries, err := json.Marshal(d.Series)
	if err != nil {
		return nil, fmt.Errorf("encode series: %w", err)
	}
	rawInvestors, err := json.Marshal(d.Investors)
	if err != nil {
		return nil, fmt.Errorf("encode investors: %w", err)
	}
	return map[string][]byte{KeySeries: rawSeries, KeyInvestors: rawInvestors}, nil
}

func (s *Store) Read(_ context.Context) uow.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// Version is bumped once per successful commit.
func (s *Store) Version() uint64 { return s.version.Load() }

// WithinTx commits fn's change against the revision this Store last saw.
// If another process committed in the meantime the dataset is reloaded and
// fn runs once more on the fresh copy; a second conflict is returned as
// uow.ErrConflict.
func (s *Store) WithinTx(ctx context.Context, reason string, fn func(d *uow.Dataset) error) error {
	s.mu.Lock()

	var (
		work uow.Dataset
		now  time.Time
		err  error
	)
	for attempt := 0; ; attempt++ {
		work = s.data.Clone()
		if err := fn(&work); err != nil {
			s.mu.Unlock()
			if errors.Is(err, uow.ErrNoChange) {
				return nil
			}
			return err
		}

		now = s.now()
		work.Series = aggregate.Recalculate(work.Series, work.Investors, nil, now)

		var values map[string][]byte
		values, err = encode(work)
		if err == nil {
			err = s.kv.CompareAndSetMany(ctx, KeyRevision, s.rev, values)
		}
		if !errors.Is(err, uow.ErrConflict) || attempt > 0 {
			break
		}

		d, rev, lerr := s.load(ctx)
		if lerr != nil {
			err = fmt.Errorf("reload after conflict: %w", lerr)
			break
		}
		s.log.Info("state changed by another process, retrying",
			zap.String("reason", reason),
			zap.Uint64("stale_revision", s.rev),
			zap.Uint64("revision", rev))
		s.data, s.rev = d, rev
	}
	if err != nil {
		s.mu.Unlock()
		if s.obs != nil {
			s.obs.ObserveCommitError()
		}
		s.log.Error("state commit failed", zap.String("reason", reason), zap.Error(err))
		return fmt.Errorf("persist state: %w", err)
	}

	s.data = work
	s.rev++
	ev := RefreshEvent{Version: s.version.Add(1), Reason: reason, At: now, Origin: s.origin}
	s.mu.Unlock()

	if s.obs != nil {
		s.obs.ObserveCommit(reason)
	}
	s.notify(ctx, ev)
	return nil
}

// Subscribe returns a channel that receives an event after each commit.
// Delivery is best-effort: a subscriber that has not drained its buffer
// misses intermediate events, but Version always reflects the latest.
func (s *Store) Subscribe(buffer int) (<-chan RefreshEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan RefreshEvent, buffer)

	s.subMu.Lock()
	key := s.nextSub
	s.nextSub++
	s.subs[key] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, key)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

// ApplyRemote handles a refresh event published by another process: the
// dataset is reloaded from the KV store and local subscribers are told.
// Events this Store published itself are ignored.
func (s *Store) ApplyRemote(ctx context.Context, payload []byte) error {
	var ev RefreshEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode refresh event: %w", err)
	}
	if ev.Origin == s.origin {
		return nil
	}

	s.mu.Lock()
	d, rev, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("reload state: %w", err)
	}
	s.data, s.rev = d, rev
	local := RefreshEvent{Version: s.version.Add(1), Reason: ev.Reason, At: s.now(), Origin: ev.Origin}
	s.mu.Unlock()

	s.log.Debug("state reloaded from remote commit",
		zap.String("reason", ev.Reason), zap.String("origin", ev.Origin))
	s.fanout(local)
	return nil
}

func (s *Store) fanout(ev RefreshEvent) {
	s.subMu.Lock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.subMu.Unlock()
}

func (s *Store) notify(ctx context.Context, ev RefreshEvent) {
	s.fanout(ev)

	if s.bc == nil {
		return
	}
	payload, _ := json.Marshal(ev)
	if err := s.bc.Publish(context.WithoutCancel(ctx), RefreshChannel, payload); err != nil {
		s.log.Warn("refresh broadcast failed", zap.Uint64("version", ev.Version), zap.Error(err))
	}
}
