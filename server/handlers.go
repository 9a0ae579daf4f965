package server

import (
	"context"
	"time"

	"github.com/onnwee/metasepia/alias"
	"github.com/onnwee/metasepia/query"
)

// Pinger reports backend liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionReader is the read path shared with chat commands.
type SessionReader interface {
	CurrentSession(ctx context.Context) (*query.Row, error)
	FindSessions(ctx context.Context, f query.Filter, page query.Page) ([]query.Row, error)
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	pinger  Pinger
	reader  SessionReader
	builder query.Builder
	now     func() time.Time
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(pinger Pinger, reader SessionReader, aliases *alias.Resolver) *Handlers {
	return &Handlers{
		pinger:  pinger,
		reader:  reader,
		builder: query.Builder{Aliases: aliases},
		now:     time.Now,
	}
}
