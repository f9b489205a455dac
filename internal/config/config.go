// Package `config` reads the daemon's configuration.
package config

import (
	"fmt"
	"os"
	"path"

	"github.com/BurntSushi/toml"

	"github.com/shekkbuilder/binheap/pkg/logger"
)

type Daemon struct {
	Name     string `toml:"name"`
	Capacity int    `toml:"queue_capacity"`
	PortWS   int    `toml:"ws_port"`
	PortRPC  int    `toml:"rpc_port"`
	DBPath   string `toml:"db_path"`

	// How often the release loop checks for due jobs, in milliseconds.
	ReleaseTickMS int `toml:"release_tick_ms"`

	LevelString string   `toml:"log_level"`
	LogOutputs  []string `toml:"log_outputs"`
}

func DaemonDefault() *Daemon {
	return &Daemon{
		Name:          "Unnamed Queue",
		Capacity:      1024,
		PortWS:        8090,
		PortRPC:       8092,
		DBPath:        "journal.sqlite",
		ReleaseTickMS: 100,
		LevelString:   "info",
		LogOutputs:    []string{"stdout", "log/sbheapd.log"},
	}
}

var StringToLevel = map[string]logger.LogLevel{
	"trace": logger.LevelTrace,
	"debug": logger.LevelDebug,
	"info":  logger.LevelInfo,
	"warn":  logger.LevelWarning,
	"error": logger.LevelError,
	"fatal": logger.LevelFatal,
}

// Attempts to read the daemon configuration from `config/config.toml` next to
// the executable. Returns default settings if it fails.
func ReadDaemon() (*Daemon, error) {
	execDir, err := ExecDir()
	if err != nil {
		return DaemonDefault(), fmt.Errorf("config: Couldn't find executable location (%w). Can't read configs.", err)
	}
	configDir := execDir + "/config"

	conf := DaemonDefault()
	if _, err := toml.DecodeFile(configDir+"/config.toml", conf); err != nil {
		return conf, fmt.Errorf("config: Couldn't read daemon config (%w).", err)
	}

	// The queue cannot grow in place, so a bad capacity is a config
	// mistake rather than something to limp along with.
	if conf.Capacity <= 0 {
		return DaemonDefault(), fmt.Errorf("config: Queue capacity must be positive (got %v).", conf.Capacity)
	}
	return conf, nil
}

// Level returns the configured log level, defaulting to info for strings it
// doesn't know.
func (c *Daemon) Level() logger.LogLevel {
	if lvl, ok := StringToLevel[c.LevelString]; ok {
		return lvl
	}
	return logger.LevelInfo
}

// Returns the absolute path to the executable's directory, if it doesn't fail.
func ExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return path.Dir(execPath), nil
}
