package server

// TODO: implement ratelimiting.

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shekkbuilder/binheap/internal/db"
	"github.com/shekkbuilder/binheap/internal/queue"
	"github.com/shekkbuilder/binheap/pkg/duration"
	"github.com/shekkbuilder/binheap/pkg/packets"
)

// A wsConn is one WebSocket connection to the queue. Writes are serialized
// by the mutex; gorilla/websocket allows only one concurrent writer.
type wsConn struct {
	ws     *websocket.Conn
	mu     sync.Mutex
	authed bool
}

func (c *wsConn) writePacket(header string, data any) error {
	p := struct {
		Header string `json:"header"`
		Data   any    `json:"data,omitempty"`
	}{Header: header, Data: data}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(p)
}

func (c *wsConn) writeError(msg string) {
	c.writePacket(packets.HeaderError, packets.DataError{Message: msg})
}

func jobData(job queue.Job) packets.DataJob {
	return packets.DataJob{
		ID:       job.ID,
		Label:    job.Label,
		Deadline: job.Deadline.Format(time.RFC3339),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (srv *QueueServer) listenWS() {
	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.wsEndpoint)
	wsServer := &http.Server{
		Addr:           fmt.Sprintf(":%v", srv.config.PortWS),
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	srv.logger.Infof("Listening WS on port %v.", srv.config.PortWS)
	srv.logger.Errorf("Stopped serving WS: %v.", wsServer.ListenAndServe())
	srv.fatal <- errors.New("server: WS listener stopped")
}

// The handler for the '/' endpoint, where clients submit and manage jobs.
func (srv *QueueServer) wsEndpoint(w http.ResponseWriter, r *http.Request) {
	// TODO: actually check the origin
	upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.logger.Debugf("WS: Couldn't upgrade connection from %v (%v).", r.RemoteAddr, err)
		return // bad request
	}
	c := &wsConn{ws: ws}
	srv.logger.Debugf("New WS connection from %v.", r.RemoteAddr)

	defer func() {
		srv.unwatch(c)
		ws.Close()
		srv.logger.Debugf("Closed WS connection from %v.", r.RemoteAddr)
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			srv.logger.Debugf("Error in connection from %v (%v).", r.RemoteAddr, err)
			return
		}
		p, err := packets.MakePacket(raw)
		if err != nil {
			c.writeError("malformed packet")
			continue
		}
		srv.logger.Tracef("Received packet from %v: %#v", r.RemoteAddr, p)
		srv.handlePacket(c, p)
	}
}

func (srv *QueueServer) handlePacket(c *wsConn, p packets.Packet) {
	switch p.Header {
	case packets.HeaderSubmit:
		srv.handleSubmit(c, p.Data)
	case packets.HeaderCancel:
		srv.handleCancel(c, p.Data)
	case packets.HeaderAdvance:
		srv.handleAdvance(c, p.Data)
	case packets.HeaderNext:
		srv.handleNext(c)
	case packets.HeaderStats:
		srv.handleStats(c)
	case packets.HeaderAuth:
		srv.handleAuth(c, p.Data)
	case packets.HeaderWatch:
		srv.watch(c)
		c.writePacket(packets.HeaderOK, nil)
	default:
		c.writeError("unknown header: " + p.Header)
	}
}

func (srv *QueueServer) handleSubmit(c *wsConn, raw json.RawMessage) {
	var data packets.DataSubmit
	if err := json.Unmarshal(raw, &data); err != nil {
		c.writeError("malformed submit data")
		return
	}
	offset, err := duration.ParseDuration(data.In)
	if err != nil {
		c.writeError(fmt.Sprintf("bad deadline offset %q (%v)", data.In, err))
		return
	}

	job, err := srv.queue.Submit(data.Label, time.Now().Add(offset))
	if errors.Is(err, queue.ErrFull) {
		c.writeError("queue has used its lifetime capacity")
		return
	} else if err != nil {
		srv.logger.Errorf("Submit failed (%v).", err)
		c.writeError("internal error")
		return
	}

	if err := srv.db.Record(job.ID, job.Label, job.Deadline, db.EventSubmitted); err != nil {
		srv.logger.Errorf("Couldn't journal submission of job %v (%v).", job.ID, err)
	}
	c.writePacket(packets.HeaderJob, jobData(job))
}

func (srv *QueueServer) handleCancel(c *wsConn, raw json.RawMessage) {
	if !c.authed {
		c.writeError("cancel requires auth")
		return
	}
	var data packets.DataCancel
	if err := json.Unmarshal(raw, &data); err != nil {
		c.writeError("malformed cancel data")
		return
	}

	job, err := srv.queue.Cancel(data.ID)
	if errors.Is(err, queue.ErrUnknownJob) {
		c.writeError(fmt.Sprintf("no pending job %v", data.ID))
		return
	} else if err != nil {
		srv.logger.Errorf("Cancel failed (%v).", err)
		c.writeError("internal error")
		return
	}

	if err := srv.db.Record(job.ID, job.Label, job.Deadline, db.EventCancelled); err != nil {
		srv.logger.Errorf("Couldn't journal cancellation of job %v (%v).", job.ID, err)
	}
	c.writePacket(packets.HeaderJob, jobData(job))
}

func (srv *QueueServer) handleAdvance(c *wsConn, raw json.RawMessage) {
	if !c.authed {
		c.writeError("advance requires auth")
		return
	}
	var data packets.DataAdvance
	if err := json.Unmarshal(raw, &data); err != nil {
		c.writeError("malformed advance data")
		return
	}
	offset, err := duration.ParseDuration(data.In)
	if err != nil {
		c.writeError(fmt.Sprintf("bad deadline offset %q (%v)", data.In, err))
		return
	}

	job, err := srv.queue.Advance(data.ID, time.Now().Add(offset))
	switch {
	case errors.Is(err, queue.ErrUnknownJob):
		c.writeError(fmt.Sprintf("no pending job %v", data.ID))
		return
	case errors.Is(err, queue.ErrLaterDeadline):
		c.writeError("deadlines can only move earlier")
		return
	case err != nil:
		srv.logger.Errorf("Advance failed (%v).", err)
		c.writeError("internal error")
		return
	}

	if err := srv.db.Record(job.ID, job.Label, job.Deadline, db.EventAdvanced); err != nil {
		srv.logger.Errorf("Couldn't journal advance of job %v (%v).", job.ID, err)
	}
	c.writePacket(packets.HeaderJob, jobData(job))
}

func (srv *QueueServer) handleNext(c *wsConn) {
	job, ok := srv.queue.Next()
	if !ok {
		c.writePacket(packets.HeaderEmpty, nil)
		return
	}
	c.writePacket(packets.HeaderJob, jobData(job))
}

func (srv *QueueServer) handleStats(c *wsConn) {
	accepted, capacity := srv.queue.Lifetime()
	c.writePacket(packets.HeaderStats, packets.DataStats{
		Name:     srv.config.Name,
		Pending:  srv.queue.Len(),
		Accepted: accepted,
		Capacity: capacity,
	})
}

func (srv *QueueServer) handleAuth(c *wsConn, raw json.RawMessage) {
	var data packets.DataAuth
	if err := json.Unmarshal(raw, &data); err != nil {
		c.writeError("malformed auth data")
		return
	}
	ok, err := srv.db.CheckAuth(data.Username, data.Password)
	if err != nil {
		srv.logger.Errorf("Auth check failed (%v).", err)
		c.writeError("internal error")
		return
	}
	if !ok {
		c.writeError("bad credentials")
		return
	}
	c.authed = true
	srv.logger.Infof("WS connection authenticated as %v.", data.Username)
	c.writePacket(packets.HeaderOK, nil)
}

// watch subscribes a connection to release notifications.
func (srv *QueueServer) watch(c *wsConn) {
	srv.watchMu.Lock()
	defer srv.watchMu.Unlock()
	srv.watchers[c] = struct{}{}
}

func (srv *QueueServer) unwatch(c *wsConn) {
	srv.watchMu.Lock()
	defer srv.watchMu.Unlock()
	delete(srv.watchers, c)
}

// notifyRelease pushes a release notification to every watching connection.
// Dead connections get dropped by their read loop, not here.
func (srv *QueueServer) notifyRelease(job queue.Job) {
	srv.watchMu.Lock()
	defer srv.watchMu.Unlock()
	for c := range srv.watchers {
		if err := c.writePacket(packets.HeaderReleased, jobData(job)); err != nil {
			srv.logger.Debugf("Couldn't notify a watcher of job %v (%v).", job.ID, err)
		}
	}
}
