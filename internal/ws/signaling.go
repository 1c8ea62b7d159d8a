package ws

// Relay is the stateless signaling pass-through for live call and
// canvas sessions. Offers, answers, ICE candidates, hangups and canvas
// events all travel the same path: forward the payload verbatim to the
// target's live connection with the sender identity injected. An
// offline target drops the event silently; these sessions are
// synchronous and live-only, so there is nothing to queue.
type Relay struct {
	fanout *Fanout
}

func NewRelay(fanout *Fanout) *Relay {
	return &Relay{fanout: fanout}
}

// Relay forwards payload from sender to target under the given event
// kind. Reports whether the target was online.
func (r *Relay) Relay(from, to, kind string, payload map[string]any) bool {
	fwd := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		fwd[k] = v
	}
	fwd["type"] = kind
	fwd["from"] = from
	return r.fanout.NotifyOne(to, fwd)
}
