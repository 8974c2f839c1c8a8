package handlers

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/peerdial/signaling/internal/models"
	"github.com/peerdial/signaling/internal/redis"
	"github.com/peerdial/signaling/internal/relay"
)

const (
	roomCodeLength = 6
	roomTTL        = 24 * time.Hour
	codeChars      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // Removed ambiguous chars
)

// CreateRoom creates a new room with a shareable code (requires
// authentication). Registration is advisory: the signaling socket joins
// any room id, registered or not.
func CreateRoom(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.MaxPeers == 0 {
		req.MaxPeers = 8
	}

	roomID := uuid.New().String()
	roomCode := generateRoomCode()

	room := models.RoomMetadata{
		ID:        roomID,
		Code:      roomCode,
		CreatorID: userID.(string),
		CreatedAt: time.Now(),
		MaxPeers:  req.MaxPeers,
	}

	roomData, err := json.Marshal(room)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	redisClient := redis.GetClient()
	ctx := c.Request.Context()

	if err := redisClient.Set(ctx, "room:"+roomID, roomData, roomTTL).Err(); err != nil {
		log.Error().Err(err).Msg("failed to store room in Redis")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	// Store code-to-ID mapping for easy lookup
	if err := redisClient.Set(ctx, "code:"+roomCode, roomID, roomTTL).Err(); err != nil {
		log.Error().Err(err).Msg("failed to store room code in Redis")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	log.Info().Str("room", roomID).Str("code", roomCode).Str("creator", room.CreatorID).Msg("room created")

	c.JSON(http.StatusCreated, models.CreateRoomResponse{
		RoomID: roomID,
		Code:   roomCode,
	})
}

// GetRoom gets room information by code or ID (public). The peer count
// comes from the hub's live member set, not the stored metadata.
func GetRoom(hub *relay.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		roomID, err := resolveRoomID(ctx, c.Param("roomId"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}

		roomData, err := redis.GetClient().Get(ctx, "room:"+roomID).Result()
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}

		var room models.RoomMetadata
		if err := json.Unmarshal([]byte(roomData), &room); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse room data"})
			return
		}

		room.PeerCount = hub.MemberCount(roomID)

		c.JSON(http.StatusOK, room)
	}
}

// DeleteRoom deletes a room's registration (requires authentication and
// creator). Peers already connected are not kicked; the room simply
// loses its code.
func DeleteRoom(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	roomID := c.Param("roomId")

	redisClient := redis.GetClient()
	ctx := c.Request.Context()

	roomData, err := redisClient.Get(ctx, "room:"+roomID).Result()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	var room models.RoomMetadata
	if err := json.Unmarshal([]byte(roomData), &room); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse room data"})
		return
	}

	if room.CreatorID != userID.(string) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the room creator can delete the room"})
		return
	}

	redisClient.Del(ctx, "room:"+roomID)
	redisClient.Del(ctx, "code:"+room.Code)
	redisClient.Del(ctx, "room:"+roomID+":peers")

	log.Info().Str("room", roomID).Str("user", room.CreatorID).Msg("room deleted")

	c.JSON(http.StatusOK, gin.H{"message": "Room deleted"})
}

// resolveRoomID maps a shareable room code to its room id; anything that
// is not code-shaped is already an id.
func resolveRoomID(ctx context.Context, identifier string) (string, error) {
	if len(identifier) != roomCodeLength {
		return identifier, nil
	}
	id, err := redis.GetClient().Get(ctx, "code:"+identifier).Result()
	if err != nil {
		return "", fmt.Errorf("room not found: %w", err)
	}
	return id, nil
}

// generateRoomCode generates a random room code
func generateRoomCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}
