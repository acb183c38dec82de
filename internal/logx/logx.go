// Package logx carries pslog helpers that bind participant identity to
// loggers and contexts.
package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tileboard/schema"
)

type contextKey int

const participantKey contextKey = iota

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithParticipant annotates the logger with a participant id unless the
// context already carries the same marker.
func WithParticipant(ctx context.Context, id schema.ParticipantID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if id != 0 {
		if current, ok := ctx.Value(participantKey).(schema.ParticipantID); ok && current == id {
			return log
		}
		log = log.With("participant", int(id))
	}
	return log
}

// WithRole annotates the logger with a role when present.
func WithRole(log pslog.Logger, role schema.Role) pslog.Logger {
	if role != "" {
		log = log.With("role", string(role))
	}
	return log
}

// ContextWithParticipant stores the participant marker on the context for
// log de-duplication.
func ContextWithParticipant(ctx context.Context, id schema.ParticipantID) context.Context {
	if ctx == nil || id == 0 {
		return ctx
	}
	return context.WithValue(ctx, participantKey, id)
}

// ContextWithParticipantLogger attaches the logger and participant marker
// to the context.
func ContextWithParticipantLogger(ctx context.Context, log pslog.Logger, id schema.ParticipantID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithParticipant(ctx, id)
}
