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

package tracker

import (
	"context"
	"time"

	"nexustracker/database/types"
)

// AnnounceDelta reports what a ledger write actually changed.
type AnnounceDelta struct {
	NewPeer bool
	Seeding bool

	// Completed is set when this announce created the (user, torrent)
	// completion record, i.e. left transitioned from nonzero to zero for
	// the first time.
	Completed bool

	// Clamped raw transfer deltas credited to the user's counters. Never
	// negative: a client restarting with zeroed counters yields 0.
	Uploaded   int64
	Downloaded int64
}

// Store is the transactional backing store for the core. Lookups return
// (nil, nil) for missing rows; every mutation is atomic on the store side
// (conditional single statement or equivalent serializable transaction), so
// two concurrent calls can never double-apply an increment.
type Store interface {
	UserByPasskey(ctx context.Context, passkey string) (*types.User, error)
	UserByID(ctx context.Context, id uint32) (*types.User, error)
	TorrentByInfoHash(ctx context.Context, hash types.TorrentHash) (*types.Torrent, error)

	// RecordAnnounce upserts the (InfoHash, PeerID) ledger row from the
	// reported values: uploaded/downloaded clamp monotonically upward,
	// left and event are latest-wins. It maintains the per-(user, torrent)
	// transfer aggregate, credits clamped deltas to the user's cumulative
	// counters and records the completion on the left 0 transition.
	RecordAnnounce(ctx context.Context, report *types.PeerProgress) (*AnnounceDelta, error)

	SwarmSummary(ctx context.Context, torrentID uint32, activeSince time.Time) (seeders, leechers int, err error)
	SwarmPeers(ctx context.Context, torrentID uint32, exclude types.PeerID, excludeUserID uint32,
		limit int, activeSince time.Time, leechersOnly bool) ([]types.PeerEntry, error)

	RateLimit(ctx context.Context, userID, torrentID uint32) (*types.RateLimit, error)
	UpsertRateLimit(ctx context.Context, userID, torrentID uint32, ip string, now time.Time, window time.Duration) error

	TransferStandings(ctx context.Context, userID uint32) ([]types.TransferStanding, error)
	HitAndRunCounts(ctx context.Context, userID uint32) (active, total int, err error)

	CreateInvite(ctx context.Context, invite *types.Invite, decrementQuota bool) error
	ConsumeInvite(ctx context.Context, code string, userID uint32, now time.Time) error
	SetUserInvites(ctx context.Context, userID uint32, count uint32) error
}
