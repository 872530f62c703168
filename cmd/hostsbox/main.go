// Package main runs the interactive HostsBox shell, either on a local
// session or against a running hostsboxd.
package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/atinyakov/HostsBox/internal/app"
	"github.com/atinyakov/HostsBox/internal/client/remote"
	"github.com/atinyakov/HostsBox/internal/client/shell"
	"github.com/atinyakov/HostsBox/internal/config"
	"github.com/atinyakov/HostsBox/internal/logger"
)

var (
	version   string
	buildDate string
)

// main parses flags and starts the shell on a local or remote session.
func main() {
	var (
		baseURL string
		showVer bool
	)
	flag.StringVar(&baseURL, "url", "", "hostsboxd base URL, e.g. http://localhost:8080; empty runs locally")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	config.DefaultLogLevel = "warn"
	options := config.Parse()

	if showVer {
		fmt.Printf("HostsBox\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	ctx := context.Background()

	if baseURL != "" {
		c := remote.New(baseURL)
		c.OnError = func(err error) { fmt.Fprintln(os.Stderr, "error:", err) }
		shell.New(c, os.Stdin, os.Stdout).Run(ctx)
		return
	}

	lg := logger.New()
	defer func() { _ = lg.Log.Sync() }()
	if err := lg.Init(options.LogLevel); err != nil {
		log.Fatal(err)
	}

	a, err := app.Build(ctx, options, lg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	shell.New(a.Session, os.Stdin, os.Stdout).Run(ctx)
}
