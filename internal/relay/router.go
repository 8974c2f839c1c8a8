package relay

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/peerdial/signaling/internal/models"
)

// HandleMessage routes one inbound message from conn. The relay has no
// channel to report errors back to a sender, so malformed JSON, unknown
// type tags and messages arriving before a join are all dropped
// silently.
func (h *Hub) HandleMessage(conn Conn, data []byte) {
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	mtype, _ := msg["type"].(string)

	if models.SignalType(mtype) == models.SignalTypeJoin {
		h.handleJoin(conn, msg)
		return
	}

	h.mu.Lock()
	s, ok := h.sessions[conn]
	if !ok || s.roomID == "" {
		// Not joined yet; nothing to route.
		h.mu.Unlock()
		return
	}

	var out delivery
	var left string
	switch models.SignalType(mtype) {
	case models.SignalTypeCall:
		callerName := stringField(msg, "callerName")
		if callerName == "" {
			callerName = s.publicID()
		}
		out = h.broadcastLocked(s.roomID, s, models.Event{
			Type:       models.EventIncomingCall,
			From:       s.publicID(),
			CallerName: callerName,
			RoomID:     s.roomID,
			CallID:     stringField(msg, "callId"),
		})
	case models.SignalTypeAccept:
		out = h.broadcastLocked(s.roomID, s, models.Event{
			Type:   models.EventCallAccepted,
			From:   s.publicID(),
			CallID: stringField(msg, "callId"),
		})
	case models.SignalTypeReject:
		out = h.broadcastLocked(s.roomID, s, models.Event{
			Type: models.EventCallRejected,
			From: s.publicID(),
		})
	case models.SignalTypeHangup:
		out = h.broadcastLocked(s.roomID, s, models.Event{
			Type: models.EventCallEnded,
			From: s.publicID(),
		})
	case models.SignalTypeOffer, models.SignalTypeAnswer, models.SignalTypeCandidate:
		// Negotiation payloads are opaque: forward every field the
		// sender supplied, stamping in who it came from.
		msg["from"] = s.publicID()
		out = h.broadcastLocked(s.roomID, s, msg)
	case models.SignalTypeLeave:
		left = s.roomID
		out = h.leaveLocked(s)
		h.releaseLocked(s)
	default:
		// Unknown type tags are ignored.
	}
	h.mu.Unlock()

	out.dispatch()
	if left != "" {
		h.presence.Left(left, s.id)
	}
}

// handleJoin establishes the connection's room and identity. A join
// while already in a room behaves as leave-then-join, keeping a
// connection in at most one room. Joins without a roomId are dropped.
func (h *Hub) handleJoin(conn Conn, msg map[string]any) {
	roomID := stringField(msg, "roomId")
	if roomID == "" {
		return
	}
	username := stringField(msg, "username")

	h.mu.Lock()
	s, ok := h.sessions[conn]
	if !ok {
		h.mu.Unlock()
		return
	}
	prevRoom := s.roomID
	var prior delivery
	if prevRoom != "" {
		prior = h.leaveLocked(s)
		h.releaseLocked(s)
	}
	evicted := h.bindLocked(username, s)
	h.joinRoomLocked(roomID, s)
	announce := h.broadcastLocked(roomID, s, models.Event{
		Type:     models.EventPeerJoined,
		PeerID:   s.publicID(),
		Username: s.username,
	})
	h.mu.Unlock()

	if evicted != nil {
		// Best-effort eviction of the stale same-name session; its own
		// disconnect handler cleans up whatever room it was in.
		_ = evicted.Close()
	}
	prior.dispatch()
	announce.dispatch()

	if prevRoom != "" {
		h.presence.Left(prevRoom, s.id)
	}
	h.presence.Joined(roomID, s.id)

	log.Info().
		Str("peer", s.id).
		Str("room", roomID).
		Str("username", username).
		Msg("peer joined room")
}

func stringField(msg map[string]any, key string) string {
	v, _ := msg[key].(string)
	return v
}
