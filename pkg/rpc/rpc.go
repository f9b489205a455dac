// Package `rpc` exports methods to manage the queue daemon over RPC.
//
// This separation allows RPC clients to not require importing the `server`
// package, which makes them a lot lighter.
//
// The "Impl" variables are to be used by the server for the internal
// implementations of each RPC operation.
package rpc

import (
	"fmt"
	"net/http"
	"net/rpc"
	"time"
)

// The receiver for the exported RPC methods.
type Queue int

// Arguments for the Stats operation.
type StatsArgs struct{}

// Reply for the Stats operation.
type StatsReply struct {
	Name     string
	Pending  int
	Accepted int
	Capacity int
}

// Arguments for the List operation.
type ListArgs struct{}

// One pending job, as reported by List.
type JobInfo struct {
	ID       int64
	Label    string
	Deadline time.Time
}

// Reply for the List operation.
type ListReply struct {
	Jobs []JobInfo
}

// Arguments for the History operation.
type HistoryArgs struct {
	JobID int64
}

// One journaled event, as reported by History.
type EventInfo struct {
	Event    string
	Label    string
	Deadline time.Time
	At       time.Time
}

// Reply for the History operation.
type HistoryReply struct {
	Events []EventInfo
}

// Arguments for the AddAuth operation.
type AddAuthArgs struct {
	Username string
	Password string
}

// Arguments for the RmAuth operation.
type RmAuthArgs struct {
	Username string
}

// These define the internal implementation of each operation.
// They only need to be set by the server, RPC clients can ignore this.
var (
	StatsImpl   = func(args *StatsArgs, reply *StatsReply) error { return nil }
	ListImpl    = func(args *ListArgs, reply *ListReply) error { return nil }
	HistoryImpl = func(args *HistoryArgs, reply *HistoryReply) error { return nil }
	AddAuthImpl = func(args *AddAuthArgs, reply *int) error { return nil }
	RmAuthImpl  = func(args *RmAuthArgs, reply *int) error { return nil }
)

// Returns an HTTP server that serves RPC on the passed port. The "Impl"
// variables should be used to configure its operations before running the
// server. If there is an issue setting up the server, returns an error.
func NewServer(port int) (*http.Server, error) {
	r := new(Queue)
	s := rpc.NewServer()
	if err := s.Register(r); err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:           fmt.Sprintf("localhost:%v", port),
		Handler:        s,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}, nil
}

// Reports the queue's occupancy and lifetime capacity usage.
func (*Queue) Stats(args *StatsArgs, reply *StatsReply) error {
	return StatsImpl(args, reply)
}

// Lists every pending job.
func (*Queue) List(args *ListArgs, reply *ListReply) error {
	return ListImpl(args, reply)
}

// Reports the journaled history of one job.
func (*Queue) History(args *HistoryArgs, reply *HistoryReply) error {
	return HistoryImpl(args, reply)
}

// Adds an user to the auth table in the database.
func (*Queue) AddAuth(args *AddAuthArgs, reply *int) error {
	return AddAuthImpl(args, reply)
}

// Removes an user from the auth table in the database.
func (*Queue) RmAuth(args *RmAuthArgs, reply *int) error {
	return RmAuthImpl(args, reply)
}
