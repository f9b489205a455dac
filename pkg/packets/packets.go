// Package `packets` defines the JSON packets of the queue's WebSocket
// protocol. Every packet is a header naming the operation plus an
// operation-specific data object.
package packets

import "encoding/json"

type Packet struct {
	Header string          `json:"header"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// MakePacket decodes a raw frame into a packet. The data object stays raw so
// the handler for the header can decode it into the right type.
func MakePacket(raw []byte) (Packet, error) {
	var p Packet
	if err := json.Unmarshal(raw, &p); err != nil {
		return Packet{}, err
	}
	return p, nil
}

// Client packets

// DataSubmit asks for a new job. The deadline is an offset from now, in the
// extended duration syntax (e.g. "90s", "5m30s", "1d").
type DataSubmit struct {
	Label string `json:"label"`
	In    string `json:"in"`
}

type DataCancel struct {
	ID int64 `json:"id"`
}

// DataAdvance moves a pending job's deadline earlier, to `in` from now.
type DataAdvance struct {
	ID int64  `json:"id"`
	In string `json:"in"`
}

type DataAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Server packets

// DataJob describes one job, in replies and release notifications.
// Deadlines are RFC 3339.
type DataJob struct {
	ID       int64  `json:"id"`
	Label    string `json:"label"`
	Deadline string `json:"deadline"`
}

type DataStats struct {
	Name     string `json:"name"`
	Pending  int    `json:"pending"`
	Accepted int    `json:"accepted"`
	Capacity int    `json:"capacity"`
}

type DataError struct {
	Message string `json:"message"`
}

// Reply and notification headers.
const (
	HeaderSubmit   = "submit"
	HeaderCancel   = "cancel"
	HeaderAdvance  = "advance"
	HeaderNext     = "next"
	HeaderStats    = "stats"
	HeaderAuth     = "auth"
	HeaderWatch    = "watch"
	HeaderJob      = "job"
	HeaderReleased = "released"
	HeaderEmpty    = "empty"
	HeaderOK       = "ok"
	HeaderError    = "error"
)
