package repositories

import (
	"context"

	"github.com/hooshyar/peyvand/domain/entities"
)

// ChatLog is the append-only transcript of every exchange. Append failures
// must never abort or block a user-facing exchange; callers recover by
// logging them operationally.
type ChatLog interface {
	Append(ctx context.Context, entry entities.LogEntry) error
}
