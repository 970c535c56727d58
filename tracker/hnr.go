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
	"fmt"
	"time"

	"nexustracker/database/types"
)

// StandingState classifies one completed torrent for one user.
type StandingState int

const (
	// StateCleared: the seeding obligation is met (ratio >= 1) or never
	// arose (the aggregated download never reached the torrent size).
	StateCleared StandingState = iota

	// StateSeeding: below ratio, but the user is still seeding — the most
	// recent left==0 announce falls within the staleness window.
	StateSeeding

	// StatePending: below ratio and not seeding, but still inside the
	// grace period measured from completion.
	StatePending

	// StateActive: below ratio, not seeding, grace period elapsed. This
	// torrent counts as an active hit-and-run.
	StateActive
)

func (s StandingState) String() string {
	switch s {
	case StateCleared:
		return "cleared"
	case StateSeeding:
		return "seeding"
	case StatePending:
		return "pending"
	default:
		return "active"
	}
}

// TorrentStanding is the per-torrent verdict derived from the aggregated
// transfer record of one (user, torrent) pair.
type TorrentStanding struct {
	TorrentID  uint32
	Size       uint64
	Uploaded   uint64
	Downloaded uint64
	Ratio      float64
	State      StandingState
}

// UserHitAndRunStats is the dashboard-facing summary for one user.
type UserHitAndRunStats struct {
	ActiveHitAndRuns int

	// TotalHitAndRuns is the monotonic historical count maintained by the
	// periodic sweep; it never decreases when a user later clears a flag.
	TotalHitAndRuns int

	Standings []TorrentStanding
}

// ratio divides uploaded by downloaded; downloaded == 0 is ratio 0, never
// an error.
func ratio(uploaded, downloaded uint64) float64 {
	if downloaded == 0 {
		return 0
	}

	return float64(uploaded) / float64(downloaded)
}

// violatesRatio reports whether the aggregated transfer record fails the
// seeding obligation: the download reached the full torrent size and the
// ratio is below 1. A record with downloaded == 0 can never violate.
func violatesRatio(size, uploaded, downloaded uint64) bool {
	if downloaded == 0 || downloaded < size {
		return false
	}

	return ratio(uploaded, downloaded) < 1.0
}

// standingState resolves the instantaneous verdict for one aggregated
// record. Still-seeding users are never flagged, and a violation only
// becomes active once the grace period from completion has elapsed.
func standingState(st *types.TransferStanding, cfg Config, now time.Time) StandingState {
	if !violatesRatio(st.Size, st.Uploaded, st.Downloaded) {
		return StateCleared
	}

	if st.LastSeededAt > now.Add(-cfg.PeerInactivityInterval).Unix() {
		return StateSeeding
	}

	if now.Unix() < st.CompletedAt+int64(cfg.HitAndRunGrace/time.Second) {
		return StatePending
	}

	return StateActive
}

// HitAndRunStats aggregates the user's completed torrents into per-torrent
// verdicts plus active/total counts. The heavy lifting happened at announce
// time: the store keeps one max-uploaded/max-downloaded aggregate per
// (user, torrent) across all peer sessions, so this is a plain read.
func (t *Tracker) HitAndRunStats(ctx context.Context, cfg Config, userID uint32,
	now time.Time) (*UserHitAndRunStats, error) {
	standings, err := t.store.TransferStandings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("transfer standings: %w", err)
	}

	_, total, err := t.store.HitAndRunCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("hit and run counts: %w", err)
	}

	stats := &UserHitAndRunStats{
		TotalHitAndRuns: total,
		Standings:       make([]TorrentStanding, 0, len(standings)),
	}

	for i := range standings {
		st := &standings[i]
		state := standingState(st, cfg, now)

		if state == StateActive {
			stats.ActiveHitAndRuns++
		}

		stats.Standings = append(stats.Standings, TorrentStanding{
			TorrentID:  st.TorrentID,
			Size:       st.Size,
			Uploaded:   st.Uploaded,
			Downloaded: st.Downloaded,
			Ratio:      ratio(st.Uploaded, st.Downloaded),
			State:      state,
		})
	}

	return stats, nil
}
