package gateway

import "encoding/json"

// Opcode identifies the protocol-level meaning of a payload.
type Opcode int

const (
	OpDispatch       Opcode = 0
	OpHeartbeat      Opcode = 1
	OpIdentify       Opcode = 2
	OpResume         Opcode = 6
	OpReconnect      Opcode = 7
	OpInvalidSession Opcode = 9
	OpHello          Opcode = 10
	OpHeartbeatAck   Opcode = 11
)

// Payload is one framed message on the push stream.
type Payload struct {
	Op Opcode          `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  int64           `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

// helloData is the server's handshake greeting.
type helloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"` // milliseconds
}

// identifyProperties describes this client to the server.
type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// identifyData opens a fresh session.
type identifyData struct {
	Token      string             `json:"token"`
	Properties identifyProperties `json:"properties"`
	Compress   bool               `json:"compress"`
}

// resumeData replays a dropped session from the last seen sequence.
type resumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
}

// readySession is the slice of the READY payload the supervisor needs;
// the dispatcher decodes the rest.
type readySession struct {
	SessionID string `json:"session_id"`
}

// Frame is one ordered unit handed to the event dispatcher: a dispatch
// event's type name with its raw payload, or one of the lifecycle
// pseudo-events below.
type Frame struct {
	Name string
	Data json.RawMessage
	Seq  int64
}

// Lifecycle pseudo-event names. The double underscores keep them out of
// the server's event namespace.
const (
	FrameSocketOpened = "__SOCKET_OPENED__"
	FrameSocketClosed = "__SOCKET_CLOSED__"
	FrameDisconnected = "__DISCONNECTED__"
)
