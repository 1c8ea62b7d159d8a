package ws

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rivift-connect/internal/domain"
	"rivift-connect/internal/security"
	"rivift-connect/internal/service"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// signalingKinds are relayed verbatim to the target identity; the
// server keeps no state for them.
var signalingKinds = map[string]struct{}{
	"webrtc_offer":         {},
	"webrtc_answer":        {},
	"webrtc_ice_candidate": {},
	"webrtc_end":           {},
	"webrtc_reject":        {},
	"canvas_invite":        {},
	"canvas_draw":          {},
	"canvas_clear":         {},
}

// MakeHandler returns the HTTP handler for the /ws endpoint.
//
// Each connection walks a small state machine: it starts
// unauthenticated, and the first frame must be a `login` carrying a
// bearer token. Login binds the connection to its identity, registers
// presence (superseding any previous connection for that identity) and
// notifies the friend set. Every later operation acts as the bound
// identity; client-supplied sender fields are ignored. Relationship
// events name the counterpart in `to`, conversation events in `with`.
func MakeHandler(
	registry *Registry,
	fanout *Fanout,
	relay *Relay,
	tokens *security.TokenService,
	users *service.UserService,
	relationships *service.RelationshipService,
	conversations *service.ConversationService,
	allowedOrigins []string,
	log *zap.Logger,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
	}
	d := &dispatcher{
		registry:      registry,
		fanout:        fanout,
		relay:         relay,
		tokens:        tokens,
		users:         users,
		relationships: relationships,
		conversations: conversations,
		log:           log,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// The upgrade request's context carries router middleware
		// deadlines; dispatch must live as long as the connection, so
		// it gets its own context, cancelled when the read loop exits.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		d.serve(ctx, conn)
	}
}

type dispatcher struct {
	registry      *Registry
	fanout        *Fanout
	relay         *Relay
	tokens        *security.TokenService
	users         *service.UserService
	relationships *service.RelationshipService
	conversations *service.ConversationService
	log           *zap.Logger
}

// serve runs one connection's read loop until it closes.
func (d *dispatcher) serve(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	// Nil until login succeeds.
	var client *Client

	defer func() {
		if client == nil {
			return
		}
		// Fenced: a disconnect from a superseded connection must not
		// evict the newer login, and must not announce offline.
		if !d.registry.SetOffline(client.identity, client) {
			return
		}
		d.notifyPresence(context.Background(), client.identity, false)
	}()

	for {
		var payload map[string]any
		if err := conn.ReadJSON(&payload); err != nil {
			return
		}
		kind, _ := payload["type"].(string)

		if client == nil {
			if kind != "login" {
				sendError(conn, "login required")
				continue
			}
			client = d.handleLogin(ctx, conn, payload)
			continue
		}

		if _, ok := signalingKinds[kind]; ok {
			d.handleSignaling(client, kind, payload)
			continue
		}

		switch kind {
		case "login":
			// Already authenticated; re-login on the same connection is
			// a no-op.
			continue
		case "send_friend_request", "accept_friend_request",
			"reject_friend_request", "cancel_friend_request", "delete_friend":
			d.handleRelationship(ctx, client, kind, payload)
		case "private_message":
			d.handlePrivateMessage(ctx, client, payload)
		case "read_receipt":
			d.handleReadReceipt(ctx, client, payload)
		case "delete_message":
			d.handleDeleteMessage(ctx, client, payload)
		case "delete_chat":
			d.handleDeleteChat(ctx, client, payload)
		case "update_profile":
			d.handleUpdateProfile(ctx, client, payload)
		default:
			d.log.Debug("unknown event type",
				zap.String("kind", kind),
				zap.String("identity", client.identity),
			)
		}
	}
}

func (d *dispatcher) handleLogin(ctx context.Context, conn *websocket.Conn, payload map[string]any) *Client {
	token, _ := payload["token"].(string)
	if token == "" {
		sendError(conn, "login requires a token")
		return nil
	}
	identity, err := d.tokens.ParseIdentity(token)
	if err != nil {
		sendError(conn, "invalid token")
		return nil
	}
	user, err := d.users.Get(ctx, identity)
	if err != nil {
		d.log.Error("login lookup failed", zap.String("identity", identity), zap.Error(err))
		sendError(conn, "login failed")
		return nil
	}
	if user == nil {
		sendError(conn, "invalid token")
		return nil
	}

	client := newClient(identity, conn)
	if prev := d.registry.SetOnline(identity, client); prev != nil {
		// Last login wins; the superseded connection is cut loose and
		// its own read loop cleans up without evicting this entry.
		prev.close()
	}

	if err := client.Send(map[string]any{
		"type":     "login_ok",
		"identity": identity,
	}); err != nil {
		d.registry.SetOffline(identity, client)
		return nil
	}

	d.notifyPresence(ctx, identity, true)
	return client
}

// notifyPresence fans a presence-changed event to identity's friends.
func (d *dispatcher) notifyPresence(ctx context.Context, identity string, online bool) {
	friends, err := d.relationships.Friends(ctx, identity)
	if err != nil {
		d.log.Error("presence fanout: list friends failed",
			zap.String("identity", identity),
			zap.Error(err),
		)
		return
	}
	d.fanout.Notify(friends, map[string]any{
		"type":     "presence_changed",
		"identity": identity,
		"online":   online,
	})
}

func (d *dispatcher) handleRelationship(ctx context.Context, client *Client, kind string, payload map[string]any) {
	counterpart, _ := payload["to"].(string)
	counterpart = service.NormalizeIdentity(counterpart)
	if counterpart == "" {
		d.sendClientError(client, kind+" requires to")
		return
	}
	from := client.identity

	var (
		changed bool
		err     error
		reason  string
	)
	switch kind {
	case "send_friend_request":
		changed, err = d.relationships.SendRequest(ctx, from, counterpart)
		reason = "friend_request"
	case "accept_friend_request":
		changed, err = d.relationships.AcceptRequest(ctx, from, counterpart)
		reason = "friend_request_accepted"
	case "reject_friend_request":
		changed, err = d.relationships.RejectRequest(ctx, from, counterpart)
		reason = "friend_request_rejected"
	case "cancel_friend_request":
		changed, err = d.relationships.CancelRequest(ctx, from, counterpart)
		reason = "friend_request_cancelled"
	case "delete_friend":
		changed, err = d.relationships.DeleteFriend(ctx, from, counterpart)
		reason = "friend_deleted"
	}
	if err != nil {
		d.log.Error("relationship operation failed",
			zap.String("kind", kind),
			zap.String("identity", from),
			zap.Error(err),
		)
		d.sendClientError(client, "operation failed")
		return
	}
	if !changed {
		// Wrong-state or duplicate event; idempotent no-op.
		return
	}

	d.fanout.NotifyOne(counterpart, map[string]any{
		"type":   "state_changed",
		"reason": reason,
		"with":   from,
	})
	d.fanout.NotifyOne(from, map[string]any{
		"type":   "state_changed",
		"reason": reason,
		"with":   counterpart,
	})
}

func (d *dispatcher) handlePrivateMessage(ctx context.Context, client *Client, payload map[string]any) {
	to, _ := payload["to"].(string)
	to = service.NormalizeIdentity(to)
	body, _ := payload["body"].(string)
	if to == "" || body == "" {
		d.sendClientError(client, "private_message requires to and body")
		return
	}

	msg, err := d.conversations.Append(ctx, client.identity, to, body)
	if err != nil {
		d.log.Error("append message failed",
			zap.String("from", client.identity),
			zap.Error(err),
		)
		d.sendClientError(client, "failed to send message")
		return
	}
	if msg == nil {
		// Not friends; silent no-op.
		return
	}

	// Push to the recipient if online; the message is durable either
	// way and an offline recipient recovers it through history.
	d.fanout.NotifyOne(to, map[string]any{
		"type":    "message_received",
		"message": msg,
	})
	// Ack to the sender with the assigned id and timestamp.
	d.fanout.NotifyOne(client.identity, map[string]any{
		"type":    "message_sent",
		"message": msg,
	})
}

func (d *dispatcher) handleReadReceipt(ctx context.Context, client *Client, payload map[string]any) {
	counterpart, _ := payload["with"].(string)
	counterpart = service.NormalizeIdentity(counterpart)
	if counterpart == "" {
		d.sendClientError(client, "read_receipt requires with")
		return
	}

	n, err := d.conversations.MarkRead(ctx, client.identity, counterpart)
	if err != nil {
		d.log.Error("mark read failed",
			zap.String("reader", client.identity),
			zap.Error(err),
		)
		d.sendClientError(client, "failed to mark messages as read")
		return
	}
	if n == 0 {
		return
	}

	d.fanout.NotifyOne(counterpart, map[string]any{
		"type": "messages_marked_as_read",
		"by":   client.identity,
	})
}

func (d *dispatcher) handleDeleteMessage(ctx context.Context, client *Client, payload map[string]any) {
	counterpart, _ := payload["with"].(string)
	counterpart = service.NormalizeIdentity(counterpart)
	messageID, _ := payload["message_id"].(string)
	if counterpart == "" || messageID == "" {
		d.sendClientError(client, "delete_message requires with and message_id")
		return
	}

	deleted, err := d.conversations.SoftDelete(ctx, client.identity, counterpart, messageID)
	if err != nil {
		d.log.Error("delete message failed",
			zap.String("identity", client.identity),
			zap.Error(err),
		)
		d.sendClientError(client, "failed to delete message")
		return
	}
	if !deleted {
		// Unknown message or not the sender; silent no-op.
		return
	}

	event := map[string]any{
		"type":       "message_deleted",
		"message_id": messageID,
	}
	d.fanout.NotifyOne(counterpart, withField(event, "with", client.identity))
	d.fanout.NotifyOne(client.identity, withField(event, "with", counterpart))
}

func (d *dispatcher) handleDeleteChat(ctx context.Context, client *Client, payload map[string]any) {
	counterpart, _ := payload["with"].(string)
	counterpart = service.NormalizeIdentity(counterpart)
	if counterpart == "" {
		d.sendClientError(client, "delete_chat requires with")
		return
	}

	if err := d.conversations.DeleteConversation(ctx, client.identity, counterpart); err != nil {
		d.log.Error("delete chat failed",
			zap.String("identity", client.identity),
			zap.Error(err),
		)
		d.sendClientError(client, "failed to delete chat")
		return
	}

	event := map[string]any{"type": "chat_deleted"}
	d.fanout.NotifyOne(counterpart, withField(event, "with", client.identity))
	d.fanout.NotifyOne(client.identity, withField(event, "with", counterpart))
}

func (d *dispatcher) handleUpdateProfile(ctx context.Context, client *Client, payload map[string]any) {
	var upd domain.ProfileUpdate
	if v, ok := payload["display_name"].(string); ok {
		upd.DisplayName = &v
	}
	if v, ok := payload["icon"].(string); ok {
		upd.Icon = &v
	}
	if upd.DisplayName == nil && upd.Icon == nil {
		d.sendClientError(client, "update_profile requires display_name or icon")
		return
	}

	if err := d.users.UpdateProfile(ctx, client.identity, upd); err != nil {
		d.log.Error("update profile failed",
			zap.String("identity", client.identity),
			zap.Error(err),
		)
		d.sendClientError(client, "failed to update profile")
		return
	}

	friends, err := d.relationships.Friends(ctx, client.identity)
	if err != nil {
		d.log.Error("profile fanout: list friends failed",
			zap.String("identity", client.identity),
			zap.Error(err),
		)
		return
	}
	d.fanout.Notify(append(friends, client.identity), map[string]any{
		"type":   "state_changed",
		"reason": "profile_updated",
		"with":   client.identity,
	})
}

func (d *dispatcher) handleSignaling(client *Client, kind string, payload map[string]any) {
	to, _ := payload["to"].(string)
	to = service.NormalizeIdentity(to)
	if to == "" {
		d.sendClientError(client, kind+" requires to")
		return
	}
	// Offline target: dropped, no error to the sender. Live sessions
	// cannot be queued.
	d.relay.Relay(client.identity, to, kind, payload)
}

func (d *dispatcher) sendClientError(client *Client, msg string) {
	_ = client.Send(map[string]any{
		"type":    "error",
		"message": msg,
	})
}

// sendError writes an error frame on a connection that has not logged
// in yet and therefore has no registered client.
func sendError(conn *websocket.Conn, msg string) {
	_ = conn.WriteJSON(map[string]any{
		"type":    "error",
		"message": msg,
	})
}

func withField(base map[string]any, key string, value any) map[string]any {
	m := make(map[string]any, len(base)+1)
	for k, v := range base {
		m[k] = v
	}
	m[key] = value
	return m
}
