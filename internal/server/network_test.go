package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shekkbuilder/binheap/internal/config"
	"github.com/shekkbuilder/binheap/internal/db"
	"github.com/shekkbuilder/binheap/internal/queue"
	"github.com/shekkbuilder/binheap/pkg/logger"
	"github.com/shekkbuilder/binheap/pkg/packets"
)

// testServer builds a QueueServer by hand (no config file, quiet logger)
// and exposes its WS endpoint through httptest.
func testServer(t *testing.T, capacity int) (*QueueServer, *websocket.Conn) {
	t.Helper()

	database, err := db.Init(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	srv := &QueueServer{
		config:   config.DaemonDefault(),
		db:       database,
		queue:    queue.New(capacity),
		watchers: make(map[*wsConn]struct{}),
		fatal:    make(chan error, 1),
		logger:   logger.NewLogger(nil, logger.LevelFatal),
	}

	hs := httptest.NewServer(http.HandlerFunc(srv.wsEndpoint))
	t.Cleanup(hs.Close)

	url := "ws" + strings.TrimPrefix(hs.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	return srv, ws
}

func send(t *testing.T, ws *websocket.Conn, header string, data any) {
	t.Helper()
	p := struct {
		Header string `json:"header"`
		Data   any    `json:"data,omitempty"`
	}{Header: header, Data: data}
	require.NoError(t, ws.WriteJSON(p))
}

func recv(t *testing.T, ws *websocket.Conn) packets.Packet {
	t.Helper()
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)
	p, err := packets.MakePacket(raw)
	require.NoError(t, err)
	return p
}

func recvJob(t *testing.T, ws *websocket.Conn) packets.DataJob {
	t.Helper()
	p := recv(t, ws)
	require.Equal(t, packets.HeaderJob, p.Header, "unexpected reply: %s", p.Data)
	var job packets.DataJob
	require.NoError(t, json.Unmarshal(p.Data, &job))
	return job
}

func TestSubmitNextStats(t *testing.T) {
	_, ws := testServer(t, 4)

	send(t, ws, packets.HeaderNext, nil)
	assert.Equal(t, packets.HeaderEmpty, recv(t, ws).Header)

	send(t, ws, packets.HeaderSubmit, packets.DataSubmit{Label: "encode", In: "1h"})
	job := recvJob(t, ws)
	assert.Equal(t, int64(1), job.ID)
	assert.Equal(t, "encode", job.Label)

	send(t, ws, packets.HeaderSubmit, packets.DataSubmit{Label: "upload", In: "5m"})
	job = recvJob(t, ws)
	assert.Equal(t, int64(2), job.ID)

	// The sooner job is at the front.
	send(t, ws, packets.HeaderNext, nil)
	job = recvJob(t, ws)
	assert.Equal(t, "upload", job.Label)

	send(t, ws, packets.HeaderStats, nil)
	p := recv(t, ws)
	require.Equal(t, packets.HeaderStats, p.Header)
	var stats packets.DataStats
	require.NoError(t, json.Unmarshal(p.Data, &stats))
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 2, stats.Accepted)
	assert.Equal(t, 4, stats.Capacity)
}

func TestSubmitExhaustion(t *testing.T) {
	_, ws := testServer(t, 1)

	send(t, ws, packets.HeaderSubmit, packets.DataSubmit{Label: "only", In: "1h"})
	recvJob(t, ws)

	send(t, ws, packets.HeaderSubmit, packets.DataSubmit{Label: "extra", In: "1h"})
	assert.Equal(t, packets.HeaderError, recv(t, ws).Header)
}

func TestBadSubmit(t *testing.T) {
	_, ws := testServer(t, 4)

	send(t, ws, packets.HeaderSubmit, packets.DataSubmit{Label: "x", In: "soon"})
	assert.Equal(t, packets.HeaderError, recv(t, ws).Header)

	send(t, ws, "bogus", nil)
	assert.Equal(t, packets.HeaderError, recv(t, ws).Header)
}

func TestAuthGating(t *testing.T) {
	srv, ws := testServer(t, 4)

	send(t, ws, packets.HeaderSubmit, packets.DataSubmit{Label: "encode", In: "1h"})
	job := recvJob(t, ws)

	// Cancel and advance are privileged.
	send(t, ws, packets.HeaderCancel, packets.DataCancel{ID: job.ID})
	assert.Equal(t, packets.HeaderError, recv(t, ws).Header)
	send(t, ws, packets.HeaderAdvance, packets.DataAdvance{ID: job.ID, In: "1m"})
	assert.Equal(t, packets.HeaderError, recv(t, ws).Header)

	require.NoError(t, srv.db.AddAuth("operator", "hunter2"))

	send(t, ws, packets.HeaderAuth, packets.DataAuth{Username: "operator", Password: "wrong"})
	assert.Equal(t, packets.HeaderError, recv(t, ws).Header)

	send(t, ws, packets.HeaderAuth, packets.DataAuth{Username: "operator", Password: "hunter2"})
	assert.Equal(t, packets.HeaderOK, recv(t, ws).Header)

	send(t, ws, packets.HeaderAdvance, packets.DataAdvance{ID: job.ID, In: "1m"})
	recvJob(t, ws)

	send(t, ws, packets.HeaderCancel, packets.DataCancel{ID: job.ID})
	cancelled := recvJob(t, ws)
	assert.Equal(t, job.ID, cancelled.ID)
	assert.Equal(t, 0, srv.queue.Len())

	// Cancelling again reports the job as unknown.
	send(t, ws, packets.HeaderCancel, packets.DataCancel{ID: job.ID})
	assert.Equal(t, packets.HeaderError, recv(t, ws).Header)
}

func TestWatchNotification(t *testing.T) {
	srv, ws := testServer(t, 4)

	// The OK reply means the subscription is registered before we
	// release anything.
	send(t, ws, packets.HeaderWatch, nil)
	assert.Equal(t, packets.HeaderOK, recv(t, ws).Header)

	_, err := srv.queue.Submit("due", time.Now().Add(-time.Second))
	require.NoError(t, err)

	// Drive one iteration of what the release loop does.
	due := srv.queue.PopDue(time.Now())
	require.Len(t, due, 1)
	srv.notifyRelease(due[0])

	p := recv(t, ws)
	require.Equal(t, packets.HeaderReleased, p.Header)
	var job packets.DataJob
	require.NoError(t, json.Unmarshal(p.Data, &job))
	assert.Equal(t, "due", job.Label)
	assert.Equal(t, 0, srv.queue.Len())
}
