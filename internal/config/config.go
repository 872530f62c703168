// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON config file and
// environment variables.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/atinyakov/HostsBox/internal/hostsfile"
)

const (
	// ElevateAuto picks the platform elevation prefix.
	ElevateAuto = "auto"
	// ElevateNone runs the copy command without elevation.
	ElevateNone = "none"
)

// DefaultLogLevel is the log level used when neither a flag, the config
// file nor LOG_LEVEL sets one. Binaries may lower it before Parse.
var DefaultLogLevel = "info"

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the daemon's listening address (ip:port).
	Port string

	// DatabaseDSN selects the Postgres store; empty uses the file store.
	DatabaseDSN string

	// StorePath is the JSON store file used without a DSN.
	StorePath string

	// HostsPath overrides the system hosts file location.
	HostsPath string

	// BackupDir receives hosts.backup on first run; empty means the
	// documents directory.
	BackupDir string

	// Elevate is the command prefix used to gain privileges, "auto" or "none".
	Elevate string

	// LogLevel is a zap level name.
	LogLevel string

	// Config is the path to the Config file.
	Config string
}

// Parse parses the command-line flags, the config file and environment
// variables, in that order of increasing priority. It exits on a malformed
// config file.
func Parse() *Options {
	opts, err := parse(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatal(err)
	}
	return opts
}

func parse(fs *flag.FlagSet, args []string, getenv func(string) string) (*Options, error) {
	options := &Options{}
	fs.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.StorePath, "s", "", "path to the JSON entry store")
	fs.StringVar(&options.HostsPath, "hosts", "", "hosts file path")
	fs.StringVar(&options.BackupDir, "backup", "", "directory for hosts.backup")
	fs.StringVar(&options.Elevate, "elevate", ElevateAuto, `elevation prefix, "auto" or "none"`)
	fs.StringVar(&options.LogLevel, "l", DefaultLogLevel, "log level")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	for env, dst := range map[string]*string{
		"SERVER_ADDRESS":   &options.Port,
		"DATABASE_DSN":     &options.DatabaseDSN,
		"HOSTSBOX_STORE":   &options.StorePath,
		"HOSTS_PATH":       &options.HostsPath,
		"HOSTSBOX_BACKUP":  &options.BackupDir,
		"HOSTSBOX_ELEVATE": &options.Elevate,
		"LOG_LEVEL":        &options.LogLevel,
	} {
		if v := getenv(env); v != "" {
			*dst = v
		}
	}

	return options, nil
}

// ElevatePrefix resolves Elevate to the command prefix handed to the elevator.
func (o *Options) ElevatePrefix() string {
	switch o.Elevate {
	case "", ElevateAuto:
		return hostsfile.DefaultElevatePrefix()
	case ElevateNone:
		return ""
	default:
		return o.Elevate
	}
}

// StoreFile returns StorePath, or entries.json in the user config directory.
func (o *Options) StoreFile() string {
	if o.StorePath != "" {
		return o.StorePath
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "hostsbox", "entries.json")
}

// BackupLocation returns BackupDir, or the user's documents directory.
func (o *Options) BackupLocation() string {
	if o.BackupDir != "" {
		return o.BackupDir
	}
	return hostsfile.DocumentsDir()
}
