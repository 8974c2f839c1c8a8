package models

import "time"

// RoomMetadata stores information about a pre-registered room. Rooms are
// also created implicitly by the first join over the signaling socket;
// metadata exists only for rooms set up through the REST API.
type RoomMetadata struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"` // Short, shareable room code (e.g., "ABCD123")
	CreatorID string    `json:"creatorId"`
	CreatedAt time.Time `json:"createdAt"`
	MaxPeers  int       `json:"maxPeers"`
	PeerCount int       `json:"peerCount"`
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	MaxPeers int `json:"maxPeers" binding:"min=0,max=16"`
}

// CreateRoomResponse is the response for creating a room
type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}
