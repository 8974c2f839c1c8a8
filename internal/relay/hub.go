package relay

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/peerdial/signaling/internal/models"
)

// Conn is the transport side of a signaling session: a duplex,
// message-oriented connection owned by the websocket layer and borrowed
// by the hub. Send must not block; a saturated or closed transport
// returns an error and the message is dropped.
type Conn interface {
	Send(data []byte) error
	Close() error
	IsOpen() bool
}

// Presence receives room membership changes so they can be mirrored to
// an external store. Implementations must be safe for concurrent use and
// must not block for long; the hub calls them outside its lock.
type Presence interface {
	Joined(roomID, peerID string)
	Left(roomID, peerID string)
}

type nopPresence struct{}

func (nopPresence) Joined(string, string) {}
func (nopPresence) Left(string, string)   {}

// session is the hub-side state of one connection. The hub is the sole
// owner; the room and name tables hold references only.
type session struct {
	conn     Conn
	id       string
	username string
	roomID   string
}

// publicID is the identifier other peers see for this session: the bound
// username if there is one, the internal id otherwise.
func (s *session) publicID() string {
	if s.username != "" {
		return s.username
	}
	return s.id
}

// Hub is the connection registry, room table and identity binding table.
// One mutex guards all three together: join/evict and leave/release are
// read-then-write sequences that must never interleave, and per-table
// locks would reopen the disconnect-vs-join race.
type Hub struct {
	mu       sync.Mutex
	sessions map[Conn]*session
	rooms    map[string]map[*session]struct{}
	names    map[string]*session

	presence Presence
}

func New(presence Presence) *Hub {
	if presence == nil {
		presence = nopPresence{}
	}
	return &Hub{
		sessions: make(map[Conn]*session),
		rooms:    make(map[string]map[*session]struct{}),
		names:    make(map[string]*session),
		presence: presence,
	}
}

// Connect registers a new transport connection with a fresh internal id,
// no username and no room. Returns the id assigned to the session.
func (h *Hub) Connect(conn Conn) string {
	s := &session{conn: conn, id: uuid.New().String()}

	h.mu.Lock()
	h.sessions[conn] = s
	h.mu.Unlock()

	log.Debug().Str("peer", s.id).Msg("client connected")
	return s.id
}

// Disconnect tears down a connection's session: room departure first so
// the peer-left broadcast still finds valid state, then identity
// release, then unregistration. Unknown connections are a no-op.
func (h *Hub) Disconnect(conn Conn) {
	h.mu.Lock()
	s, ok := h.sessions[conn]
	if !ok {
		h.mu.Unlock()
		return
	}
	roomID := s.roomID
	out := h.leaveLocked(s)
	h.releaseLocked(s)
	delete(h.sessions, conn)
	h.mu.Unlock()

	out.dispatch()
	if roomID != "" {
		h.presence.Left(roomID, s.id)
	}
	log.Debug().Str("peer", s.id).Msg("client disconnected")
}

// Stats reports the number of rooms and registered connections.
func (h *Hub) Stats() (rooms, peers int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms), len(h.sessions)
}

// MemberCount reports the live member count of a room, 0 if unknown.
func (h *Hub) MemberCount(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}

// delivery is a broadcast snapshot taken under the hub lock and sent
// after it is released, so a dead or slow transport can never stall the
// hub. An empty delivery dispatches to nobody.
type delivery struct {
	data    []byte
	targets []Conn
}

func (d delivery) dispatch() {
	for _, c := range d.targets {
		if !c.IsOpen() {
			// Already gone; its disconnect handler will reconcile.
			continue
		}
		if err := c.Send(d.data); err != nil {
			log.Debug().Err(err).Msg("dropping undeliverable message")
		}
	}
}

// broadcastLocked snapshots a payload broadcast to every member of
// roomID except exclude. Unknown rooms produce an empty delivery.
func (h *Hub) broadcastLocked(roomID string, exclude *session, payload any) delivery {
	members, ok := h.rooms[roomID]
	if !ok {
		return delivery{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return delivery{}
	}
	d := delivery{data: data}
	for m := range members {
		if m == exclude {
			continue
		}
		d.targets = append(d.targets, m.conn)
	}
	return d
}

// joinRoomLocked adds s to roomID, creating the room on demand.
// Idempotent if s is already a member.
func (h *Hub) joinRoomLocked(roomID string, s *session) {
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[*session]struct{})
		h.rooms[roomID] = members
	}
	members[s] = struct{}{}
	s.roomID = roomID
}

// leaveLocked removes s from its current room, deleting the room when it
// empties and otherwise announcing the departure to the remaining
// members. No-op when s has no room.
func (h *Hub) leaveLocked(s *session) delivery {
	if s.roomID == "" {
		return delivery{}
	}
	roomID := s.roomID
	s.roomID = ""

	members, ok := h.rooms[roomID]
	if !ok {
		return delivery{}
	}
	delete(members, s)
	if len(members) == 0 {
		delete(h.rooms, roomID)
		log.Debug().Str("room", roomID).Msg("room removed")
		return delivery{}
	}
	return h.broadcastLocked(roomID, s, models.Event{
		Type:   models.EventPeerLeft,
		PeerID: s.publicID(),
	})
}

// bindLocked points username at s, recording which other live connection
// currently holds the name. The caller closes the returned connection
// outside the lock; a reconnecting user thereby reclaims their identity
// without waiting for the stale session to time out. An empty username
// leaves the session anonymous.
func (h *Hub) bindLocked(username string, s *session) Conn {
	s.username = username
	if username == "" {
		return nil
	}
	var evicted Conn
	if old, ok := h.names[username]; ok && old != s {
		evicted = old.conn
	}
	h.names[username] = s
	return evicted
}

// releaseLocked drops s's username binding only while the table still
// points at s, so a superseded connection's late teardown cannot delete
// the binding its replacement now owns.
func (h *Hub) releaseLocked(s *session) {
	if s.username == "" {
		return
	}
	if cur, ok := h.names[s.username]; ok && cur == s {
		delete(h.names, s.username)
	}
}
