package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	peersTTL = 24 * time.Hour
	opWait   = 2 * time.Second
)

// Store mirrors room membership into Redis sets (room:<id>:peers) so the
// room REST API can report live peer counts. The hub's in-memory tables
// stay authoritative; everything here is best-effort.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Joined(roomID, peerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), opWait)
	defer cancel()

	key := peersKey(roomID)
	if err := s.client.SAdd(ctx, key, peerID).Err(); err != nil {
		log.Warn().Err(err).Str("room", roomID).Msg("presence add failed")
		return
	}
	s.client.Expire(ctx, key, peersTTL)
}

func (s *Store) Left(roomID, peerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), opWait)
	defer cancel()

	if err := s.client.SRem(ctx, peersKey(roomID), peerID).Err(); err != nil {
		log.Warn().Err(err).Str("room", roomID).Msg("presence remove failed")
	}
}

// Count returns the mirrored peer count for a room.
func (s *Store) Count(ctx context.Context, roomID string) (int64, error) {
	return s.client.SCard(ctx, peersKey(roomID)).Result()
}

func peersKey(roomID string) string {
	return "room:" + roomID + ":peers"
}
