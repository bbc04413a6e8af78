// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the room subscription handler. These
// give clients more specific reasons than the standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Auth token was invalid or expired.
	InvalidRoomIDError    = 3003 // Target room ID in the WS URL is malformed or unknown.
	KickedFromRoomCode    = 3004 // Connection closed because the user was kicked.
)
