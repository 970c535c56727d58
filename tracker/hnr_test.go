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
	"testing"
	"time"

	"nexustracker/database/types"
)

func TestViolatesRatio(t *testing.T) {
	tests := []struct {
		name                       string
		size, uploaded, downloaded uint64
		want                       bool
	}{
		{"full download low ratio", 1000, 400, 1000, true},
		{"full download good ratio", 1000, 1200, 1000, false},
		{"ratio exactly one", 1000, 1000, 1000, false},
		{"nothing downloaded", 1000, 0, 0, false},
		{"nothing downloaded with upload", 1000, 5000, 0, false},
		{"partial download", 1000, 0, 999, false},
		{"overshoot download still counts", 1000, 400, 1024, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := violatesRatio(tt.size, tt.uploaded, tt.downloaded); got != tt.want {
				t.Errorf("violatesRatio(%d, %d, %d) = %v, want %v",
					tt.size, tt.uploaded, tt.downloaded, got, tt.want)
			}
		})
	}
}

func TestStandingState(t *testing.T) {
	cfg := DefaultConfig()
	now := baseTime

	completed := now.Add(-30 * 24 * time.Hour).Unix()

	tests := []struct {
		name     string
		standing types.TransferStanding
		want     StandingState
	}{
		{
			name:     "ratio met",
			standing: types.TransferStanding{Size: 1000, Uploaded: 1500, Downloaded: 1000, CompletedAt: completed},
			want:     StateCleared,
		},
		{
			name:     "below ratio but still seeding",
			standing: types.TransferStanding{Size: 1000, Uploaded: 100, Downloaded: 1000, CompletedAt: completed, LastSeededAt: now.Add(-time.Minute).Unix()},
			want:     StateSeeding,
		},
		{
			name:     "below ratio within grace",
			standing: types.TransferStanding{Size: 1000, Uploaded: 100, Downloaded: 1000, CompletedAt: now.Add(-24 * time.Hour).Unix()},
			want:     StatePending,
		},
		{
			name:     "grace elapsed",
			standing: types.TransferStanding{Size: 1000, Uploaded: 100, Downloaded: 1000, CompletedAt: completed, LastSeededAt: now.Add(-48 * time.Hour).Unix()},
			want:     StateActive,
		},
		{
			name:     "never fully downloaded",
			standing: types.TransferStanding{Size: 1000, Uploaded: 0, Downloaded: 400, CompletedAt: completed},
			want:     StateCleared,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := standingState(&tt.standing, cfg, now); got != tt.want {
				t.Errorf("standingState = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHitAndRunStatsAggregatesSessions(t *testing.T) {
	tr, store, cfg := newTestTracker(t)
	ctx := context.Background()

	// Session one downloads everything with poor upload.
	req := announceReq("alpha-passkey", testPeerID('a'), 1000)
	if _, err := tr.Announce(ctx, cfg, req); err != nil {
		t.Fatalf("announce failed: %v", err)
	}

	req = announceReq("alpha-passkey", testPeerID('a'), 0)
	req.Downloaded = 1000
	req.Uploaded = 100
	req.Now = baseTime.Add(10 * time.Minute)

	if _, err := tr.Announce(ctx, cfg, req); err != nil {
		t.Fatalf("completing announce failed: %v", err)
	}

	// A restart under a new peer id uploads more; the accountant must take
	// the maximum across sessions, not an arbitrary one.
	req = announceReq("alpha-passkey", testPeerID('b'), 0)
	req.Downloaded = 1000
	req.Uploaded = 1200
	req.Now = baseTime.Add(20 * time.Minute)

	if _, err := tr.Announce(ctx, cfg, req); err != nil {
		t.Fatalf("reseed announce failed: %v", err)
	}

	stats, err := tr.HitAndRunStats(ctx, cfg, 1, baseTime.Add(30*24*time.Hour))
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	if len(stats.Standings) != 1 {
		t.Fatalf("expected one standing, got %d", len(stats.Standings))
	}

	st := stats.Standings[0]
	if st.Uploaded != 1200 || st.Downloaded != 1000 {
		t.Errorf("session reduction wrong: uploaded %d downloaded %d", st.Uploaded, st.Downloaded)
	}

	if st.State != StateCleared || stats.ActiveHitAndRuns != 0 {
		t.Errorf("user above ratio must not be flagged: state %v, active %d", st.State, stats.ActiveHitAndRuns)
	}

	if store.hnrTotals[1] != 0 {
		t.Errorf("sweep totals should be untouched by reads")
	}
}

func TestHitAndRunStatsFlagsAfterGrace(t *testing.T) {
	tr, _, cfg := newTestTracker(t)
	ctx := context.Background()

	req := announceReq("alpha-passkey", testPeerID('a'), 1000)
	if _, err := tr.Announce(ctx, cfg, req); err != nil {
		t.Fatalf("announce failed: %v", err)
	}

	req = announceReq("alpha-passkey", testPeerID('a'), 0)
	req.Downloaded = 1000
	req.Uploaded = 400
	req.Now = baseTime.Add(10 * time.Minute)

	if _, err := tr.Announce(ctx, cfg, req); err != nil {
		t.Fatalf("completing announce failed: %v", err)
	}

	// Inside the grace period the torrent is pending, not active.
	stats, err := tr.HitAndRunStats(ctx, cfg, 1, baseTime.Add(7*24*time.Hour))
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	if stats.ActiveHitAndRuns != 0 || stats.Standings[0].State != StatePending {
		t.Errorf("within grace: active %d, state %v", stats.ActiveHitAndRuns, stats.Standings[0].State)
	}

	// Past the grace period with no further seeding it becomes active.
	stats, err = tr.HitAndRunStats(ctx, cfg, 1, baseTime.Add(15*24*time.Hour))
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	if stats.ActiveHitAndRuns != 1 || stats.Standings[0].State != StateActive {
		t.Errorf("past grace: active %d, state %v", stats.ActiveHitAndRuns, stats.Standings[0].State)
	}
}
