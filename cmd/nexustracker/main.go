/*
 * This file is part of NexusTracker.
 *
 * NexusTracker is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * NexusTracker is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with NexusTracker.  If not, see <http://www.gnu.org/licenses/>.
 */

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"nexustracker/server"
)

var (
	debugAddr   string
	showVersion bool
	help        bool
)

// Provided at compile-time
var (
	BuildDate    = "0000-00-00T00:00:00+0000"
	BuildVersion = "development"
)

func init() {
	flag.StringVar(&debugAddr, "debug", "", "Serves pprof data on the specified addr")
	flag.BoolVar(&showVersion, "version", false, "Prints version information and exits")
	flag.BoolVar(&help, "h", false, "Shows this help dialog")
}

// startDebugServer exposes the default mux, which pprof registered on.
func startDebugServer(addr string) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("failed to start pprof debug server", "err", err)
		return
	}

	slog.Warn("started pprof debug server", "addr", l.Addr())

	//nolint:gosec
	_ = (&http.Server{Handler: http.DefaultServeMux}).Serve(l)
}

func handleSignals() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	slog.Info("caught interrupt, shutting down...")

	server.Stop()
	<-c
	os.Exit(0)
}

func main() {
	flag.Parse()

	if help {
		fmt.Printf("Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()

		return
	}

	if showVersion {
		fmt.Printf("nexustracker ver=%s date=%s runtime=%s\n", BuildVersion, BuildDate, runtime.Version())
		return
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	slog.Info("starting nexustracker",
		"version", BuildVersion, "built", BuildDate, "go", runtime.Version(), "cpus", runtime.GOMAXPROCS(0))

	if debugAddr != "" {
		// Both are disabled by default; sample 1% of events
		runtime.SetMutexProfileFraction(100)
		runtime.SetBlockProfileRate(100)

		go startDebugServer(debugAddr)
	}

	go handleSignals()

	server.Start()
}
