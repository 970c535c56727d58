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

// Package tracker is the protocol core: announce orchestration, rate-limit
// decisions, hit-and-run accounting and the invite quota ledger. It holds no
// state of its own; everything lives in the backing Store.
package tracker

import (
	"time"
)

type RegistrationMode string

const (
	RegistrationOpen   RegistrationMode = "open"
	RegistrationInvite RegistrationMode = "invite"
	RegistrationClosed RegistrationMode = "closed"
)

// Config is an immutable snapshot of tracker settings. Callers build one
// (typically from the config package) and pass it into each core call, so
// concurrent requests observe consistent values and tests can inject fixed
// configurations.
type Config struct {
	AnnounceInterval    time.Duration
	MinAnnounceInterval time.Duration
	AnnounceDrift       time.Duration

	// PeerInactivityInterval is the staleness window: peers not heard from
	// within it are excluded from swarm counts and peer lists.
	PeerInactivityInterval time.Duration

	NumWant    int
	MaxNumWant int

	RateLimitEnabled bool
	RatePerHour      int

	RegistrationMode  RegistrationMode
	MaxInvitesPerUser int
	InviteExpiry      time.Duration

	// HitAndRunGrace is how long after completion a user may remain below
	// ratio before a violating torrent counts as an active hit-and-run.
	HitAndRunGrace time.Duration
}

func DefaultConfig() Config {
	return Config{
		AnnounceInterval:       1800 * time.Second,
		MinAnnounceInterval:    900 * time.Second,
		AnnounceDrift:          300 * time.Second,
		PeerInactivityInterval: 3900 * time.Second,
		NumWant:                25,
		MaxNumWant:             50,
		RateLimitEnabled:       true,
		RatePerHour:            60,
		RegistrationMode:       RegistrationInvite,
		MaxInvitesPerUser:      10,
		InviteExpiry:           7 * 24 * time.Hour,
		HitAndRunGrace:         14 * 24 * time.Hour,
	}
}

type Tracker struct {
	store Store
}

func New(store Store) *Tracker {
	return &Tracker{store: store}
}
