package server

import (
	"sort"

	"github.com/shekkbuilder/binheap/pkg/rpc"
)

// Listens for local RPC connections, for usage with queuectl.
func (srv *QueueServer) listenRPC() {
	rpc.StatsImpl = srv.Stats
	rpc.ListImpl = srv.List
	rpc.HistoryImpl = srv.History
	rpc.AddAuthImpl = srv.AddAuth
	rpc.RmAuthImpl = srv.RmAuth

	s, err := rpc.NewServer(srv.config.PortRPC)
	if err != nil {
		srv.logger.Errorf("Couldn't create RPC server (%s).", err)
		return
	}

	srv.logger.Infof("Listening RPC on port %v.", srv.config.PortRPC)
	srv.logger.Errorf("Stopped serving RPC (%v).", s.ListenAndServe())
}

// Reports the queue's occupancy and lifetime capacity usage.
func (srv *QueueServer) Stats(args *rpc.StatsArgs, reply *rpc.StatsReply) error {
	accepted, capacity := srv.queue.Lifetime()
	*reply = rpc.StatsReply{
		Name:     srv.config.Name,
		Pending:  srv.queue.Len(),
		Accepted: accepted,
		Capacity: capacity,
	}
	return nil
}

// Lists every pending job, earliest deadline first.
func (srv *QueueServer) List(args *rpc.ListArgs, reply *rpc.ListReply) error {
	jobs := srv.queue.Snapshot()
	infos := make([]rpc.JobInfo, 0, len(jobs))
	for _, job := range jobs {
		infos = append(infos, rpc.JobInfo{
			ID:       job.ID,
			Label:    job.Label,
			Deadline: job.Deadline,
		})
	}
	// Snapshot order is whatever the heap's slots happen to hold, so
	// sort before showing it to a human.
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].Deadline.Equal(infos[j].Deadline) {
			return infos[i].Deadline.Before(infos[j].Deadline)
		}
		return infos[i].ID < infos[j].ID
	})
	reply.Jobs = infos
	return nil
}

// Reports the journaled history of one job.
func (srv *QueueServer) History(args *rpc.HistoryArgs, reply *rpc.HistoryReply) error {
	events, err := srv.db.History(args.JobID)
	if err != nil {
		return err
	}
	infos := make([]rpc.EventInfo, 0, len(events))
	for _, ev := range events {
		infos = append(infos, rpc.EventInfo{
			Event:    ev.Event,
			Label:    ev.Label,
			Deadline: ev.Deadline,
			At:       ev.At,
		})
	}
	reply.Events = infos
	return nil
}

// Adds an user to the auth table in the database.
func (srv *QueueServer) AddAuth(args *rpc.AddAuthArgs, reply *int) error {
	if err := srv.db.AddAuth(args.Username, args.Password); err != nil {
		*reply = 1
		return err
	}
	*reply = 0
	return nil
}

// Removes an user from the auth table in the database.
func (srv *QueueServer) RmAuth(args *rpc.RmAuthArgs, reply *int) error {
	if err := srv.db.RemoveAuth(args.Username); err != nil {
		*reply = 1
		return err
	}
	*reply = 0
	return nil
}
