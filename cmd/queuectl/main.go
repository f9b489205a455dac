// queuectl implements an RPC client to manage the queue daemon.
package main

import (
	"fmt"
	"net/rpc"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	// using `t` since we only require the RPC types
	"github.com/shekkbuilder/binheap/pkg/logger"
	t "github.com/shekkbuilder/binheap/pkg/rpc"
)

type cmdHandler func(args []string)

type command struct {
	handler     cmdHandler
	args        int
	description string
	usage       string
}

var commands map[string]command

// TODO: detect port from config automatically?
var rpcPort int

func init() {
	logger.SetLogger(logger.NewLoggerOutputs(logger.LevelInfo, logFormat, "stdout"))

	pflag.CommandLine.SetOutput(os.Stdout)
	pflag.CommandLine.Usage = printUsage

	commands = map[string]command{
		"help": {handleHelp, 0, "shows usage information about a command",
			"queuectl help [command]"},
		"stats": {handleStats, 0, "shows queue occupancy and lifetime capacity",
			"queuectl -p [RPC port] stats"},
		"list": {handleList, 0, "lists pending jobs, earliest deadline first",
			"queuectl -p [RPC port] list"},
		"history": {handleHistory, 1, "shows the journaled history of a job",
			"queuectl -p [RPC port] history [job id]"},
		"add-auth": {handleAddAuth, 2, "adds an user to the auth table",
			"queuectl -p [RPC port] add-auth [username] [password]"},
		"rm-auth": {handleRmAuth, 1, "removes an user from the auth table",
			"queuectl -p [RPC port] rm-auth [username]"},
	}

	pflag.IntVarP(&rpcPort, "port", "p", -1, "port used for RPC")
}

func main() {
	pflag.Parse()

	if len(pflag.Args()) < 1 {
		logger.Fatalf("No command given.")
		pflag.CommandLine.Usage()
		os.Exit(1)
	}

	cmdName := pflag.Args()[0]
	cmd, ok := commands[cmdName]
	if !ok {
		logger.Fatalf("Unknown command.")
		pflag.CommandLine.Usage()
		os.Exit(1)
	}

	var cmdArgs []string
	if len(pflag.Args()) > 1 {
		cmdArgs = pflag.Args()[1:]
	}

	if len(cmdArgs) < cmd.args {
		logger.Fatalf("Not enough arguments for %v (need %v, got %v).", cmdName, cmd.args, len(cmdArgs))
		handleHelp([]string{cmdName})
		os.Exit(1)
	}
	cmd.handler(cmdArgs)
	os.Exit(0)
}

func handleHelp(args []string) {
	if len(args) < 1 {
		pflag.CommandLine.Usage()
		return
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Printf("help: command '%v' does not exist.\n", args[0])
		os.Exit(1)
	}
	fmt.Printf("Usage of %v:\n", args[0])
	fmt.Printf("    %v\n", cmd.usage)
}

func handleStats(args []string) {
	client := dial()
	var reply t.StatsReply
	if err := client.Call("Queue.Stats", &t.StatsArgs{}, &reply); err != nil {
		logger.Errorf("stats: Failed (%s).", err)
		os.Exit(1)
	}
	fmt.Printf("%v\n", reply.Name)
	fmt.Printf("    pending:  %v\n", reply.Pending)
	fmt.Printf("    accepted: %v/%v lifetime insertions\n", reply.Accepted, reply.Capacity)
}

func handleList(args []string) {
	client := dial()
	var reply t.ListReply
	if err := client.Call("Queue.List", &t.ListArgs{}, &reply); err != nil {
		logger.Errorf("list: Failed (%s).", err)
		os.Exit(1)
	}
	if len(reply.Jobs) == 0 {
		fmt.Println("No pending jobs.")
		return
	}
	for _, job := range reply.Jobs {
		fmt.Printf("%6d  %v  %v\n", job.ID, job.Deadline.Format(time.RFC3339), job.Label)
	}
}

func handleHistory(args []string) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		logger.Fatalf("history: '%v' is not a job ID.", args[0])
		os.Exit(1)
	}

	client := dial()
	var reply t.HistoryReply
	if err := client.Call("Queue.History", &t.HistoryArgs{JobID: id}, &reply); err != nil {
		logger.Errorf("history: Failed (%s).", err)
		os.Exit(1)
	}
	if len(reply.Events) == 0 {
		fmt.Printf("No journaled events for job %v.\n", id)
		return
	}
	for _, ev := range reply.Events {
		fmt.Printf("%v  %-10v %v (deadline %v)\n",
			ev.At.Format(time.RFC3339), ev.Event, ev.Label, ev.Deadline.Format(time.RFC3339))
	}
}

func handleAddAuth(args []string) {
	client := dial()
	rpcArgs := &t.AddAuthArgs{
		Username: args[0],
		Password: args[1],
	}
	var reply int
	if err := client.Call("Queue.AddAuth", rpcArgs, &reply); err != nil {
		logger.Errorf("add-auth: Failed (%s).", err)
		os.Exit(1)
	}
	fmt.Printf("add-auth: User '%v' added succesfully!\n", args[0])
}

func handleRmAuth(args []string) {
	client := dial()
	rpcArgs := &t.RmAuthArgs{
		Username: args[0],
	}
	var reply int
	if err := client.Call("Queue.RmAuth", rpcArgs, &reply); err != nil {
		logger.Errorf("rm-auth: Failed (%s).", err)
		os.Exit(1)
	}
	fmt.Printf("rm-auth: User '%v' removed succesfully!\n", args[0])
}

func dial() *rpc.Client {
	if rpcPort <= 0 {
		logger.Fatalf("Port must be specified.")
		pflag.CommandLine.Usage()
		os.Exit(1)
	}

	client, err := rpc.DialHTTP("tcp", "localhost:"+strconv.Itoa(rpcPort))
	if err != nil {
		logger.Fatalf("Couldn't dial server (%s).", err)
		os.Exit(1)
	}
	return client
}

func printUsage() {
	fmt.Print(
		"Usage of queuectl:\n" +
			"    queuectl -p [RPC port] [command] [args...]\n")
	fmt.Println()
	fmt.Println("Flags:")
	pflag.CommandLine.PrintDefaults()
	fmt.Println()
	fmt.Println("Available commands:")
	for name, cmd := range commands {
		fmt.Printf("    %v: %v.\n", name, cmd.description)
	}
}

var lvlToString = map[logger.LogLevel]string{
	logger.LevelTrace:   "trace",
	logger.LevelDebug:   "debug",
	logger.LevelInfo:    "info",
	logger.LevelWarning: "warn",
	logger.LevelError:   "error",
	logger.LevelFatal:   "fatal",
}

func logFormat(msg string, lvl logger.LogLevel) string {
	return fmt.Sprintf("%v: %v\n", lvlToString[lvl], msg)
}
