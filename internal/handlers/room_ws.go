// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/openarena/muster/internal/broadcast"
	"github.com/openarena/muster/internal/coordinator"
)

// RoomWSHandler is the subscription endpoint for a room view. It does not
// carry control traffic: joins, kicks and the rest go over the REST surface,
// and every broadcast event just tells the client to refetch room state.
//
// The subscription is scoped to the connection: it is acquired after the
// upgrade and released on every exit path, including abnormal ones, so no
// event is delivered after the client stops observing the room.
func RoomWSHandler(logger *logrus.Logger, gs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomIDStr := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/room/ws/"), "/", 2)[0]
		roomID, err := uuid.Parse(roomIDStr)
		if err != nil {
			http.Error(w, "invalid room_id", http.StatusBadRequest)
			return
		}

		// Identity first: EnsureEphemeralUser may need to set a cookie, which
		// must happen before the upgrade hijacks the response.
		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("ws auth failed for room %s: %v", roomID, err)
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"room"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "room" {
			c.Close(BadSubprotocolError, "client must speak the room subprotocol")
			return
		}

		if _, err := gs.Coordinator.Room(roomID); err != nil {
			c.Close(InvalidRoomIDError, "room does not exist")
			return
		}

		sub := gs.Hub.Subscribe(roomID, userID)
		defer sub.Close()

		logger.Infof("user %v (%s) observing room %v", userID, r.RemoteAddr, roomID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go eventPump(ctx, c, sub, logger)

		// Block draining the client until it disconnects. Clients send no
		// control frames here; anything readable is ignored.
		drainPump(ctx, c, logger)

		logger.Infof("user %v stopped observing room %v", userID, roomID)
	}
}

// eventPump forwards subscription events to the websocket and keeps the
// connection alive with pings.
func eventPump(ctx context.Context, c *websocket.Conn, sub *broadcast.Subscriber, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				c.Close(websocket.StatusGoingAway, "subscription closed")
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warnf("failed to marshal event for user %v: %v", sub.UserID, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("failed to write to websocket for user %v: %v", sub.UserID, err)
				return
			}

			// The kicked user's session ends here; the client must leave the
			// room view rather than refetch.
			if ev.Type == coordinator.EventKickedFromRoom {
				c.Close(KickedFromRoomCode, "kicked from room")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("ping failed for user %v, assuming disconnect: %v", sub.UserID, err)
				return
			}
		}
	}
}

// drainPump reads and discards client frames until the connection dies. Its
// return is what triggers the deferred unsubscribe in the handler.
func drainPump(ctx context.Context, c *websocket.Conn, logger *logrus.Logger) {
	for {
		if _, _, err := c.Read(ctx); err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				return
			}
			if ctx.Err() != nil {
				return
			}
			logger.Debugf("ws read ended: %v (close status %d)", err, closeStatus)
			return
		}
	}
}
