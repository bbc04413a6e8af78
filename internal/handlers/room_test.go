// internal/handlers/room_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openarena/muster/internal/auth"
	"github.com/openarena/muster/internal/broadcast"
	"github.com/openarena/muster/internal/coordinator"
	"github.com/openarena/muster/internal/room"
)

func TestMain(m *testing.M) {
	auth.Init()
	os.Exit(m.Run())
}

// stubMatchService lets start requests succeed without postgres.
type stubMatchService struct{}

func (stubMatchService) CreateMatch(ctx context.Context, hostID uuid.UUID, snap room.Snapshot, params coordinator.MatchParams) (uuid.UUID, error) {
	return uuid.New(), nil
}

func newTestServer(t *testing.T) *RoomServer {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	hub := broadcast.NewHub(logger)
	coord := coordinator.New(room.NewStore(logger), hub, stubMatchService{}, logger)
	return &RoomServer{Coordinator: coord, Hub: hub, Logger: logger}
}

func authCookie(t *testing.T, userID uuid.UUID) *http.Cookie {
	t.Helper()
	token, err := auth.CreateJWT(userID.String())
	require.NoError(t, err)
	return &http.Cookie{Name: "auth_token", Value: token}
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestCreateRoomHandler(t *testing.T) {
	gs := newTestServer(t)
	host := uuid.New()

	rr := doJSON(t, CreateRoomHandler(gs), http.MethodPost, "/room/create",
		createRoomRequest{Mode: room.ModeSquad, Map: "dust", Region: "eu-west"},
		authCookie(t, host))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var snap room.Snapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&snap))
	assert.Equal(t, host, snap.HostID)
	assert.Equal(t, room.ModeSquad, snap.Mode)
	assert.Equal(t, 24, snap.MaxSlots)
	assert.Equal(t, "dust", snap.Map)
	assert.Len(t, snap.Code, room.CodeLength)
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, 1, snap.Participants[0].SlotNumber)
}

func TestCreateRoomRequiresAuth(t *testing.T) {
	gs := newTestServer(t)

	rr := doJSON(t, CreateRoomHandler(gs), http.MethodPost, "/room/create", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	bad := &http.Cookie{Name: "auth_token", Value: "not-a-jwt"}
	rr = doJSON(t, CreateRoomHandler(gs), http.MethodPost, "/room/create", nil, bad)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateRoomRejectsUnknownMode(t *testing.T) {
	gs := newTestServer(t)

	rr := doJSON(t, CreateRoomHandler(gs), http.MethodPost, "/room/create",
		map[string]string{"mode": "battle-royale-64"}, authCookie(t, uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestJoinAndGetRoom(t *testing.T) {
	gs := newTestServer(t)
	host := uuid.New()
	snap, err := gs.Coordinator.CreateRoom(context.Background(), host, room.Settings{Mode: room.ModeDuo}, 0)
	require.NoError(t, err)

	joiner := uuid.New()
	rr := doJSON(t, RoomHandler(gs), http.MethodPost, "/room/"+snap.ID.String()+"/join", nil, authCookie(t, joiner))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var joined joinResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&joined))
	assert.Equal(t, 2, joined.Participant.SlotNumber)
	assert.Len(t, joined.Room.Participants, 2)

	rr = doJSON(t, RoomHandler(gs), http.MethodGet, "/room/"+snap.ID.String(), nil, authCookie(t, joiner))
	require.Equal(t, http.StatusOK, rr.Code)
	var got room.Snapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Len(t, got.Participants, 2)
}

func TestJoinTwiceConflicts(t *testing.T) {
	gs := newTestServer(t)
	snap, err := gs.Coordinator.CreateRoom(context.Background(), uuid.New(), room.Settings{}, 0)
	require.NoError(t, err)

	user := uuid.New()
	cookie := authCookie(t, user)
	rr := doJSON(t, RoomHandler(gs), http.MethodPost, "/room/"+snap.ID.String()+"/join", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, RoomHandler(gs), http.MethodPost, "/room/"+snap.ID.String()+"/join", nil, cookie)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRoomByCodeHandler(t *testing.T) {
	gs := newTestServer(t)
	snap, err := gs.Coordinator.CreateRoom(context.Background(), uuid.New(), room.Settings{}, 0)
	require.NoError(t, err)

	rr := doJSON(t, RoomByCodeHandler(gs), http.MethodGet, "/room/code/"+snap.Code, nil, authCookie(t, uuid.New()))
	require.Equal(t, http.StatusOK, rr.Code)
	var got room.Snapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, snap.ID, got.ID)

	rr = doJSON(t, RoomByCodeHandler(gs), http.MethodGet, "/room/code/zzzzzz", nil, authCookie(t, uuid.New()))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// TestKickAuthorization: only the host may kick, and the response codes track
// the error taxonomy.
func TestKickAuthorization(t *testing.T) {
	gs := newTestServer(t)
	host := uuid.New()
	snap, err := gs.Coordinator.CreateRoom(context.Background(), host, room.Settings{Mode: room.ModeSquad}, 0)
	require.NoError(t, err)

	target := uuid.New()
	_, _, err = gs.Coordinator.Join(context.Background(), snap.ID, target)
	require.NoError(t, err)
	bystander := uuid.New()
	_, _, err = gs.Coordinator.Join(context.Background(), snap.ID, bystander)
	require.NoError(t, err)

	kickPath := "/room/" + snap.ID.String() + "/kick"
	payload := map[string]string{"userId": target.String()}

	rr := doJSON(t, RoomHandler(gs), http.MethodPost, kickPath, payload, authCookie(t, bystander))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doJSON(t, RoomHandler(gs), http.MethodPost, kickPath, payload, authCookie(t, host))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, RoomHandler(gs), http.MethodPost, kickPath,
		map[string]string{"userId": host.String()}, authCookie(t, host))
	assert.Equal(t, http.StatusConflict, rr.Code, "host cannot kick itself")
}

func TestUpdateSettingsHandler(t *testing.T) {
	gs := newTestServer(t)
	host := uuid.New()
	snap, err := gs.Coordinator.CreateRoom(context.Background(), host, room.Settings{Mode: room.ModeSquad}, 0)
	require.NoError(t, err)

	rr := doJSON(t, RoomHandler(gs), http.MethodPatch, "/room/"+snap.ID.String()+"/settings",
		room.Settings{Mode: room.ModeDuo, Region: "us-east"}, authCookie(t, host))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got room.Snapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, room.ModeDuo, got.Mode)
	assert.Equal(t, "us-east", got.Region)

	rr = doJSON(t, RoomHandler(gs), http.MethodPatch, "/room/"+snap.ID.String()+"/settings",
		room.Settings{Region: "ap-south"}, authCookie(t, uuid.New()))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestStartRoomHandler(t *testing.T) {
	gs := newTestServer(t)
	host := uuid.New()
	snap, err := gs.Coordinator.CreateRoom(context.Background(), host, room.Settings{Mode: room.ModeDuo}, 0)
	require.NoError(t, err)

	rr := doJSON(t, RoomHandler(gs), http.MethodPost, "/room/"+snap.ID.String()+"/start",
		coordinator.MatchParams{"bestOf": 3}, authCookie(t, host))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var started startResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&started))
	assert.NotEqual(t, uuid.Nil, started.MatchID)
	assert.Equal(t, room.StatusStarted, started.Room.Status)

	// The started room is gone from the live set.
	rr = doJSON(t, RoomHandler(gs), http.MethodGet, "/room/"+snap.ID.String(), nil, authCookie(t, host))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLeaveAndCloseHandlers(t *testing.T) {
	gs := newTestServer(t)
	host := uuid.New()
	snap, err := gs.Coordinator.CreateRoom(context.Background(), host, room.Settings{}, 0)
	require.NoError(t, err)
	member := uuid.New()
	_, _, err = gs.Coordinator.Join(context.Background(), snap.ID, member)
	require.NoError(t, err)

	rr := doJSON(t, RoomHandler(gs), http.MethodPost, "/room/"+snap.ID.String()+"/leave", nil, authCookie(t, member))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, RoomHandler(gs), http.MethodPost, "/room/"+snap.ID.String()+"/close", nil, authCookie(t, member))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doJSON(t, RoomHandler(gs), http.MethodPost, "/room/"+snap.ID.String()+"/close", nil, authCookie(t, host))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestSpectateHandlers(t *testing.T) {
	gs := newTestServer(t)
	snap, err := gs.Coordinator.CreateRoom(context.Background(), uuid.New(), room.Settings{}, 0)
	require.NoError(t, err)
	path := "/room/" + snap.ID.String() + "/spectate"

	rr := doJSON(t, RoomHandler(gs), http.MethodPost, path, nil, authCookie(t, uuid.New()))
	require.Equal(t, http.StatusOK, rr.Code)
	var got room.Snapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, 1, got.SpectatorCount)

	rr = doJSON(t, RoomHandler(gs), http.MethodDelete, path, nil, authCookie(t, uuid.New()))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, 0, got.SpectatorCount)
}

func TestListRoomsHandler(t *testing.T) {
	gs := newTestServer(t)
	for i := 0; i < 3; i++ {
		_, err := gs.Coordinator.CreateRoom(context.Background(), uuid.New(), room.Settings{}, 0)
		require.NoError(t, err)
	}

	rr := doJSON(t, ListRoomsHandler(gs), http.MethodGet, "/rooms", nil, authCookie(t, uuid.New()))
	require.Equal(t, http.StatusOK, rr.Code)
	var rooms []room.Snapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&rooms))
	assert.Len(t, rooms, 3)
}

func TestRoomHandlerBadID(t *testing.T) {
	gs := newTestServer(t)

	rr := doJSON(t, RoomHandler(gs), http.MethodGet, "/room/not-a-uuid", nil, authCookie(t, uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, RoomHandler(gs), http.MethodGet, "/room/"+uuid.New().String(), nil, authCookie(t, uuid.New()))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
