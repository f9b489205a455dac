package main

import (
	"os"

	"github.com/shekkbuilder/binheap/internal/server"
	"github.com/shekkbuilder/binheap/pkg/logger"
)

func main() {
	log := logger.NewLoggerOutputs(logger.LevelTrace, nil, "stdout", "log/sbheapd.log")
	srv, err := server.MakeServer(log)
	if err != nil {
		log.Fatalf("Couldn't make server (%v).", err)
		os.Exit(1)
	}
	log.Fatalf("Server stopped running: %s", srv.Run())
}
