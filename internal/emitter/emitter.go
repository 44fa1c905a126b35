// Package emitter is the publish surface the rest of the backend uses to
// announce domain events. Publishing is best-effort and fire-and-forget: a
// notification that cannot be routed or delivered is logged and dropped, and
// never fails the business operation that produced it.
package emitter

import (
	"log/slog"

	"classwire/internal/registry"
	"classwire/internal/router"
	"classwire/pkg/types"
)

// Memberships is the registry view the emitter needs for fan-out.
type Memberships interface {
	MembersOf(room string) []registry.Sender
}

type Emitter struct {
	members Memberships
	log     *slog.Logger
}

func New(members Memberships, log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{members: members, log: log}
}

// Publish delivers an event to every connection currently in its target
// rooms. The member set is snapshotted at call time: connections that
// disconnect mid-dispatch miss the event, connections that register
// afterwards never see it. There is no queue and no retry.
func (e *Emitter) Publish(ev types.Event) {
	rooms, err := router.ResolveTargets(ev)
	if err != nil {
		e.log.Warn("dropping event", "event", ev.EventType(), "error", err)
		return
	}

	env, err := types.NewEnvelope(ev)
	if err != nil {
		e.log.Error("encoding event failed", "event", ev.EventType(), "error", err)
		return
	}

	delivered := 0
	for _, room := range rooms {
		for _, sender := range e.members.MembersOf(room) {
			if err := sender.WriteJSON(env); err != nil {
				e.log.Warn("delivery failed",
					"event", ev.EventType(), "room", room, "error", err)
				continue
			}
			delivered++
		}
	}
	e.log.Debug("event published",
		"event", ev.EventType(), "rooms", rooms, "delivered", delivered)
}
