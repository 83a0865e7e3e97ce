package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/flip7odds/internal/roundlog"
)

func startWSServer(t *testing.T, opts Options) (*Server, string) {
	t.Helper()

	s := newTestServer(t, opts)
	go s.run()

	ts := httptest.NewServer(s.router)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
		ts.Close()
	})

	return s, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, msgType MessageType, data any, requestID string) {
	t.Helper()

	payload, err := json.Marshal(data)
	require.NoError(t, err)

	msg := &Message{
		Type:      msgType,
		Data:      payload,
		Timestamp: time.Now(),
		RequestID: requestID,
	}
	require.NoError(t, conn.WriteJSON(msg))
}

func readMessage(t *testing.T, conn *websocket.Conn) *Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return &msg
}

func TestWebSocketObservationDecision(t *testing.T) {
	_, url := startWSServer(t, Options{})
	conn := dialWS(t, url)

	obs := ObservationData{
		Seen: map[string]int{"4": 1, "9": 1},
		Hand: HandState{Numbers: []int{4, 9}},
	}
	sendMessage(t, conn, MessageTypeObservation, obs, "req-1")

	resp := readMessage(t, conn)
	assert.Equal(t, MessageTypeDecision, resp.Type)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.False(t, resp.Timestamp.IsZero())

	var decision DecisionData
	require.NoError(t, json.Unmarshal(resp.Data, &decision))

	assert.Equal(t, 13, decision.Bank)
	assert.Greater(t, decision.BustProbability, 0.0)
	assert.NotEmpty(t, decision.Recommendation)
}

func TestWebSocketInvalidObservation(t *testing.T) {
	_, url := startWSServer(t, Options{})
	conn := dialWS(t, url)

	obs := ObservationData{
		Seen: map[string]int{"joker": 1},
		Hand: HandState{Numbers: []int{4}},
	}
	sendMessage(t, conn, MessageTypeObservation, obs, "req-2")

	resp := readMessage(t, conn)
	assert.Equal(t, MessageTypeError, resp.Type)
	assert.Equal(t, "req-2", resp.RequestID)

	var errData ErrorData
	require.NoError(t, json.Unmarshal(resp.Data, &errData))
	assert.Equal(t, "invalid_request", errData.Code)
}

func TestWebSocketImpossibleObservation(t *testing.T) {
	_, url := startWSServer(t, Options{})
	conn := dialWS(t, url)

	obs := ObservationData{
		Seen: map[string]int{"0": 2},
		Hand: HandState{Numbers: []int{4}},
	}
	sendMessage(t, conn, MessageTypeObservation, obs, "")

	resp := readMessage(t, conn)
	assert.Equal(t, MessageTypeError, resp.Type)

	var errData ErrorData
	require.NoError(t, json.Unmarshal(resp.Data, &errData))
	assert.Equal(t, "invalid_observation", errData.Code)
}

func TestWebSocketUnknownMessageType(t *testing.T) {
	_, url := startWSServer(t, Options{})
	conn := dialWS(t, url)

	sendMessage(t, conn, MessageType("bogus"), map[string]string{}, "req-3")

	resp := readMessage(t, conn)
	assert.Equal(t, MessageTypeError, resp.Type)
	assert.Equal(t, "req-3", resp.RequestID)

	var errData ErrorData
	require.NoError(t, json.Unmarshal(resp.Data, &errData))
	assert.Equal(t, "unknown_message_type", errData.Code)
}

func TestWebSocketSessionOverride(t *testing.T) {
	recorder := roundlog.NewRecorder(log.New(io.Discard), roundlog.Config{
		BaseDir:       t.TempDir(),
		FlushInterval: time.Hour,
		Clock:         quartz.NewMock(t),
	})
	_, url := startWSServer(t, Options{Recorder: recorder})
	conn := dialWS(t, url)

	obs := ObservationData{
		SessionID: "my-table",
		Hand:      HandState{Numbers: []int{2, 8}},
	}
	sendMessage(t, conn, MessageTypeObservation, obs, "")

	resp := readMessage(t, conn)
	require.Equal(t, MessageTypeDecision, resp.Type)

	session, err := recorder.Session("my-table")
	require.NoError(t, err)
	require.NoError(t, session.Flush())

	entries := readSessionLog(t, session.LogPath())
	require.Len(t, entries, 1)
	assert.Equal(t, "my-table", entries[0].Session)
	assert.Equal(t, 10, entries[0].Bank)
}

func readSessionLog(t *testing.T, path string) []roundlog.Entry {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []roundlog.Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var e roundlog.Entry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}
