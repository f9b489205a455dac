// Package `server` wires the release queue to its WebSocket and RPC
// front ends and runs the release loop.
package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/shekkbuilder/binheap/internal/config"
	"github.com/shekkbuilder/binheap/internal/db"
	"github.com/shekkbuilder/binheap/internal/queue"
	"github.com/shekkbuilder/binheap/pkg/logger"
)

type QueueServer struct {
	config *config.Daemon
	db     *db.Database
	queue  *queue.Queue

	watchMu  sync.Mutex
	watchers map[*wsConn]struct{}

	fatal chan error

	logger *logger.Logger
}

// Tries to create and prepare the server. May fail if configs are not set
// appropriately.
func MakeServer(log *logger.Logger) (*QueueServer, error) {
	conf, err := config.ReadDaemon()
	if err != nil {
		return nil, fmt.Errorf("server: Couldn't configure server (%w).", err)
	}

	execDir, err := config.ExecDir()
	if err != nil {
		return nil, fmt.Errorf("server: Couldn't get executable directory (%w).", err)
	}
	database, err := db.Init(execDir + "/" + conf.DBPath)
	if err != nil {
		return nil, fmt.Errorf("server: Couldn't initialize database (%w).", err)
	}

	srv := &QueueServer{
		config:   conf,
		db:       database,
		queue:    queue.New(conf.Capacity),
		watchers: make(map[*wsConn]struct{}),
		fatal:    make(chan error),
		logger:   log,
	}
	srv.logger.Debugf("Successfully loaded daemon configuration: %#v", conf)
	return srv, nil
}

// Starts and runs the server.
func (srv *QueueServer) Run() error {
	srv.logger.Infof("Starting %v (capacity %v).", srv.config.Name, srv.config.Capacity)
	if srv.config.PortWS > 0 {
		go srv.listenWS()
	}
	if srv.config.PortRPC > 0 {
		go srv.listenRPC()
	}
	go srv.releaseLoop()

	return <-srv.fatal
}

// releaseLoop pops due jobs at the configured tick, journals them and
// notifies watchers. The queue serializes heap access internally, so this
// loop doesn't contend with the packet handlers beyond that one mutex.
func (srv *QueueServer) releaseLoop() {
	tick := time.Duration(srv.config.ReleaseTickMS) * time.Millisecond
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for now := range ticker.C {
		for _, job := range srv.queue.PopDue(now) {
			srv.logger.Infof("Releasing job %v (%v), deadline %v.", job.ID, job.Label, job.Deadline)
			if err := srv.db.Record(job.ID, job.Label, job.Deadline, db.EventReleased); err != nil {
				srv.logger.Errorf("Couldn't journal release of job %v (%v).", job.ID, err)
			}
			srv.notifyRelease(job)
		}
	}
}
