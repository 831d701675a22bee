package ledger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// StoreState describes the persistent store as seen by the last probe.
type StoreState struct {
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Error      string `json:"error,omitempty"`
}

// Ledger records entries in the in-memory registry and, when configured, in
// Postgres.
type Ledger struct {
	registry *Registry
	pg       *PGStore
	pgErr    error
	logger   zerolog.Logger
}

// New builds a ledger. pg may be nil; openErr is the reason it is nil when a
// DSN was configured.
func New(registry *Registry, pg *PGStore, openErr error, logger zerolog.Logger) *Ledger {
	return &Ledger{
		registry: registry,
		pg:       pg,
		pgErr:    openErr,
		logger:   logger.With().Str("component", "ledger").Logger(),
	}
}

// Record stores e. Persistence failures are logged, not returned.
func (l *Ledger) Record(ctx context.Context, e Entry) {
	if l == nil {
		return
	}
	l.registry.Put(e)
	if l.pg == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := l.pg.Upsert(ctx, e); err != nil {
		l.logger.Error().Err(err).Str("request_id", e.RequestID).Msg("failed to persist request entry")
	}
}

func (l *Ledger) Get(id string) (Entry, bool) {
	if l == nil {
		return Entry{}, false
	}
	return l.registry.Get(id)
}

// State probes the persistent store.
func (l *Ledger) State(ctx context.Context) StoreState {
	switch {
	case l == nil, l.pg == nil && l.pgErr == nil:
		return StoreState{}
	case l.pg == nil:
		return StoreState{Configured: true, Error: l.pgErr.Error()}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := l.pg.Ping(ctx); err != nil {
		return StoreState{Configured: true, Error: err.Error()}
	}
	return StoreState{Configured: true, Connected: true}
}

func (l *Ledger) Close() {
	if l != nil && l.pg != nil {
		l.pg.Close()
	}
}
