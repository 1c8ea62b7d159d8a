package ws

import (
	"go.uber.org/zap"
)

// Fanout pushes notifications to the currently-online subset of a
// target set. Offline identities are skipped with no retry and no
// queue; durability lives in the stores and offline clients reconcile
// through the sync query.
type Fanout struct {
	registry *Registry
	log      *zap.Logger
}

func NewFanout(registry *Registry, log *zap.Logger) *Fanout {
	return &Fanout{registry: registry, log: log}
}

// Notify pushes payload to every online identity in the set. Pushes are
// fire-and-forget: a failed write closes the connection and its owner
// cleans up presence when the read loop exits.
func (f *Fanout) Notify(identities []string, payload any) {
	for _, identity := range identities {
		f.NotifyOne(identity, payload)
	}
}

// NotifyOne pushes payload to a single identity if it is online.
// Reports whether a delivery was attempted.
func (f *Fanout) NotifyOne(identity string, payload any) bool {
	c, ok := f.registry.Get(identity)
	if !ok {
		return false
	}
	if err := c.Send(payload); err != nil {
		f.log.Warn("push failed, closing connection",
			zap.String("identity", identity),
			zap.Error(err),
		)
		c.close()
		return false
	}
	return true
}
