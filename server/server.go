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

// Package server is the HTTP layer: routing, parameter parsing, status
// codes and bencoded failure bodies. All tracker semantics live in the
// tracker package; all state lives in the database.
package server

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"

	"nexustracker/collector"
	"nexustracker/config"
	"nexustracker/database"
	"nexustracker/record"
	"nexustracker/tracker"
	"nexustracker/util"
)

type httpHandler struct {
	terminate atomic.Bool

	waitGroup sync.WaitGroup

	bufferPool *util.BufferPool

	db   *database.Database
	core *tracker.Tracker
	cfg  tracker.Config

	registry  *prometheus.Registry
	startTime time.Time
}

var (
	handler  *httpHandler
	listener net.Listener
)

func (handler *httpHandler) respond(ctx *fasthttp.RequestCtx, buf *bytes.Buffer) int {
	segments := strings.SplitN(strings.Trim(string(ctx.Path()), "/"), "/", 2)

	// Public endpoints (/:action)
	if len(segments) == 1 {
		switch segments[0] {
		case "check":
			return alive(buf)
		case "metrics":
			return metrics(string(ctx.Request.Header.Peek("Authorization")), handler.registry, buf)
		}

		return fasthttp.StatusNotFound
	}

	// Private endpoints (/:passkey/:action)
	passkey, action := segments[0], segments[1]

	switch action {
	case "announce":
		return announce(ctx, passkey, buf)
	case "scrape":
		if enabled, _ := config.GetBool("scrape", true); !enabled {
			return fasthttp.StatusNotFound
		}

		return scrape(ctx, passkey, buf)
	}

	return fasthttp.StatusNotFound
}

func (handler *httpHandler) handleRequest(ctx *fasthttp.RequestCtx) {
	if handler.terminate.Load() {
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		return
	}

	handler.waitGroup.Add(1)
	defer handler.waitGroup.Done()

	buf := handler.bufferPool.Take()
	defer handler.bufferPool.Give(buf)

	defer func() {
		if err := recover(); err != nil {
			slog.Error("panic serving request", "err", err, "uri", ctx.URI().String())
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			collector.IncrementErroredRequests()
		}
	}()

	status := handler.respond(ctx, buf)

	ctx.SetStatusCode(status)
	ctx.SetContentType("text/plain")
	ctx.SetBody(buf.Bytes())

	collector.IncrementRequests()

	if status >= fasthttp.StatusBadRequest {
		collector.IncrementErroredRequests()
	}
}

// Start opens the database, wires the core and serves until Stop is called.
// It blocks for the lifetime of the server.
func Start() {
	db, err := database.Open()
	if err != nil {
		slog.Error("failed to open database", "err", err)
		return
	}

	handler = &httpHandler{
		db:         db,
		core:       tracker.New(db),
		cfg:        loadTrackerConfig(),
		bufferPool: util.NewBufferPool(512),
		registry:   prometheus.NewRegistry(),
		startTime:  time.Now(),
	}

	handler.registry.MustRegister(collector.NewCollector())

	if err = record.Init(); err != nil {
		slog.Error("failed to initialize announce journal", "err", err)
		return
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()

	go sweep(sweepCtx, db, handler.cfg)

	addr, _ := config.Section("http").Get("addr", ":34000")
	readTimeout, _ := config.Section("http").GetInt("read_timeout", 2)
	writeTimeout, _ := config.Section("http").GetInt("write_timeout", 2)

	server := &fasthttp.Server{
		Handler:                      handler.handleRequest,
		ReadTimeout:                  time.Duration(readTimeout) * time.Second,
		WriteTimeout:                 time.Duration(writeTimeout) * time.Second,
		GetOnly:                      true,
		DisablePreParseMultipartForm: true,
		NoDefaultServerHeader:        true,
		NoDefaultContentType:         true,
	}

	listener, err = net.Listen("tcp", addr)
	if err != nil {
		slog.Error("failed to listen", "addr", addr, "err", err)
		return
	}

	slog.Info("ready and accepting new connections", "addr", addr)

	_ = server.Serve(listener)

	// Wait for active connections to finish processing.
	handler.waitGroup.Wait()

	slog.Info("now closed and not accepting any new connections")

	if err = db.Close(); err != nil {
		slog.Error("error closing database", "err", err)
	}

	slog.Info("shutdown complete")
}

func Stop() {
	// Closing the listener stops accepting connections and causes Serve to
	// return.
	_ = listener.Close()
	handler.terminate.Store(true)
}

// loadTrackerConfig builds the immutable snapshot handed to every core
// call; concurrent requests never observe half-updated settings.
func loadTrackerConfig() tracker.Config {
	cfg := tracker.DefaultConfig()

	intervals := config.Section("intervals")
	cfg.AnnounceInterval, _ = intervals.GetDuration("announce", cfg.AnnounceInterval)
	cfg.MinAnnounceInterval, _ = intervals.GetDuration("min_announce", cfg.MinAnnounceInterval)
	cfg.AnnounceDrift, _ = intervals.GetDuration("announce_drift", cfg.AnnounceDrift)
	cfg.PeerInactivityInterval, _ = intervals.GetDuration("peer_inactivity", cfg.PeerInactivityInterval)

	announceConfig := config.Section("announce")
	cfg.NumWant, _ = announceConfig.GetInt("numwant", cfg.NumWant)
	cfg.MaxNumWant, _ = announceConfig.GetInt("max_numwant", cfg.MaxNumWant)

	rateLimitConfig := config.Section("rate_limit")
	cfg.RateLimitEnabled, _ = rateLimitConfig.GetBool("enabled", cfg.RateLimitEnabled)
	cfg.RatePerHour, _ = rateLimitConfig.GetInt("per_hour", cfg.RatePerHour)

	invitesConfig := config.Section("invites")
	if mode, exists := invitesConfig.Get("registration_mode", string(cfg.RegistrationMode)); exists {
		cfg.RegistrationMode = tracker.RegistrationMode(mode)
	}

	cfg.MaxInvitesPerUser, _ = invitesConfig.GetInt("max_per_user", cfg.MaxInvitesPerUser)
	cfg.InviteExpiry, _ = invitesConfig.GetDuration("expiry", cfg.InviteExpiry)
	cfg.HitAndRunGrace, _ = config.Section("hit_and_run").GetDuration("grace", cfg.HitAndRunGrace)

	return cfg
}
