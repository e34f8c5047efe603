package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// ReadWait bounds how long a silent client keeps its connection. Clients
	// ping or sync well within it.
	ReadWait = 5 * time.Minute
	// MaxMessageSize caps a single frame; a full submit stays far below it.
	MaxMessageSize = 512 << 10
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, code, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Code:  code,
		Error: errMsg,
	})
}

// ReadMessage reads one text frame with a read deadline and returns its
// action together with the raw payload for typed decoding.
func ReadMessage(conn *websocket.Conn) (Action, []byte, error) {
	conn.SetReadDeadline(time.Now().Add(ReadWait))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", nil, err
	}

	var env RequestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", data, fmt.Errorf("decode envelope: %w", err)
	}
	return env.Action, data, nil
}
