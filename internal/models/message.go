package models

// SignalType is the type tag of an inbound signaling message.
type SignalType string

const (
	SignalTypeJoin      SignalType = "join"
	SignalTypeLeave     SignalType = "leave"
	SignalTypeCall      SignalType = "call"
	SignalTypeAccept    SignalType = "accept"
	SignalTypeReject    SignalType = "reject"
	SignalTypeHangup    SignalType = "hangup"
	SignalTypeOffer     SignalType = "offer"
	SignalTypeAnswer    SignalType = "answer"
	SignalTypeCandidate SignalType = "candidate"
)

// Event types emitted by the relay.
const (
	EventPeerJoined   = "peer-joined"
	EventPeerLeft     = "peer-left"
	EventIncomingCall = "incoming-call"
	EventCallAccepted = "call-accepted"
	EventCallRejected = "call-rejected"
	EventCallEnded    = "call-ended"
)

// Event is the outbound envelope for relay-originated notifications.
// Offer/answer/candidate messages are not Events: they are forwarded
// verbatim with a "from" field stamped in.
type Event struct {
	Type       string `json:"type"`
	PeerID     string `json:"peerId,omitempty"`
	Username   string `json:"username,omitempty"`
	From       string `json:"from,omitempty"`
	CallerName string `json:"callerName,omitempty"`
	RoomID     string `json:"roomId,omitempty"`
	CallID     string `json:"callId,omitempty"`
}
