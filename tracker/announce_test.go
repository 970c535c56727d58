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
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"nexustracker/bencode"
	"nexustracker/database/types"
)

var (
	testHash = types.TorrentHashFromBytes([]byte("01234567890123456789"))
	baseTime = time.Unix(1700000000, 0)
)

func testPeerID(suffix byte) types.PeerID {
	var id types.PeerID

	copy(id[:], "-NX0100-000000000000")
	id[len(id)-1] = suffix

	return id
}

func newTestTracker(t *testing.T) (*Tracker, *memStore, Config) {
	t.Helper()

	store := newMemStore()
	store.addUser(types.User{ID: 1, Passkey: "alpha-passkey", Role: types.RoleUser, Enabled: true})
	store.addUser(types.User{ID: 2, Passkey: "beta-passkey", Role: types.RoleUser, Enabled: true})
	store.addTorrent(types.Torrent{ID: 10, InfoHash: testHash, Size: 1000})

	return New(store), store, DefaultConfig()
}

func announceReq(passkey string, peer types.PeerID, left uint64) *AnnounceRequest {
	return &AnnounceRequest{
		Passkey:  passkey,
		InfoHash: testHash,
		PeerID:   peer,
		IP:       "10.10.1.1",
		Port:     6881,
		Left:     left,
		Event:    types.EventStarted,
		NumWant:  -1,
		Now:      baseTime,
	}
}

func TestAnnounceLeecherThenSeeder(t *testing.T) {
	tr, _, cfg := newTestTracker(t)
	ctx := context.Background()

	resp, err := tr.Announce(ctx, cfg, announceReq("alpha-passkey", testPeerID('a'), 1000))
	if err != nil {
		t.Fatalf("announce failed: %v", err)
	}

	if resp.Complete != 0 || resp.Incomplete != 1 {
		t.Errorf("expected 0 seeders / 1 leecher, got %d/%d", resp.Complete, resp.Incomplete)
	}

	if resp.Interval != cfg.AnnounceInterval || resp.MinInterval != cfg.MinAnnounceInterval {
		t.Errorf("unexpected intervals: %v / %v", resp.Interval, resp.MinInterval)
	}

	seederReq := announceReq("beta-passkey", testPeerID('b'), 0)

	resp, err = tr.Announce(ctx, cfg, seederReq)
	if err != nil {
		t.Fatalf("seeder announce failed: %v", err)
	}

	if resp.Complete != 1 || resp.Incomplete != 1 {
		t.Errorf("expected 1 seeder / 1 leecher, got %d/%d", resp.Complete, resp.Incomplete)
	}

	// The seeder should be handed the leecher, not itself.
	if len(resp.Peers) != 1 || resp.Peers[0].ID != testPeerID('a') {
		t.Errorf("unexpected peer list: %+v", resp.Peers)
	}
}

func TestAnnounceRejectionsLeaveNoTrace(t *testing.T) {
	tr, store, cfg := newTestTracker(t)
	ctx := context.Background()

	req := announceReq("no-such-passkey", testPeerID('a'), 1000)
	if _, err := tr.Announce(ctx, cfg, req); !errors.Is(err, ErrAuthenticationFailure) {
		t.Fatalf("expected ErrAuthenticationFailure, got %v", err)
	}

	req = announceReq("alpha-passkey", testPeerID('a'), 1000)
	req.InfoHash = types.TorrentHashFromBytes([]byte("99999999999999999999"))

	if _, err := tr.Announce(ctx, cfg, req); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if len(store.progress) != 0 {
		t.Errorf("rejected announces must not touch the ledger, found %d rows", len(store.progress))
	}

	if len(store.rateLimits) != 0 {
		t.Errorf("rejected announces must not touch the rate limiter, found %d rows", len(store.rateLimits))
	}
}

func TestAnnounceDisabledUser(t *testing.T) {
	tr, store, cfg := newTestTracker(t)
	store.addUser(types.User{ID: 3, Passkey: "banned-passkey", Role: types.RoleUser, Enabled: false})

	_, err := tr.Announce(context.Background(), cfg, announceReq("banned-passkey", testPeerID('c'), 500))
	if !errors.Is(err, ErrAuthenticationFailure) {
		t.Fatalf("expected ErrAuthenticationFailure, got %v", err)
	}
}

func TestAnnounceMalformed(t *testing.T) {
	tr, _, cfg := newTestTracker(t)
	ctx := context.Background()

	req := announceReq("alpha-passkey", testPeerID('a'), 1000)
	req.Event = "paused"

	if _, err := tr.Announce(ctx, cfg, req); !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("expected ErrMalformedRequest for bad event, got %v", err)
	}

	req = announceReq("alpha-passkey", testPeerID('a'), 1000)
	req.Port = 0

	if _, err := tr.Announce(ctx, cfg, req); !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("expected ErrMalformedRequest for port 0, got %v", err)
	}
}

func TestAnnounceMonotonicClamp(t *testing.T) {
	tr, store, cfg := newTestTracker(t)
	ctx := context.Background()

	req := announceReq("alpha-passkey", testPeerID('a'), 500)
	req.Uploaded = 100

	if _, err := tr.Announce(ctx, cfg, req); err != nil {
		t.Fatalf("announce failed: %v", err)
	}

	// Client restart reports a lower figure; the ledger must not go back.
	req = announceReq("alpha-passkey", testPeerID('a'), 500)
	req.Uploaded = 50
	req.Now = baseTime.Add(30 * time.Minute)

	if _, err := tr.Announce(ctx, cfg, req); err != nil {
		t.Fatalf("announce failed: %v", err)
	}

	row := store.progress[progressKey{Hash: testHash, Peer: testPeerID('a')}]
	if row.Uploaded != 100 {
		t.Errorf("uploaded clamped wrong: got %d, want 100", row.Uploaded)
	}

	user, _ := store.UserByPasskey(ctx, "alpha-passkey")
	if user.Uploaded != 100 {
		t.Errorf("user credited wrong: got %d, want 100", user.Uploaded)
	}
}

func TestAnnounceCompletionRecordedOnce(t *testing.T) {
	tr, store, cfg := newTestTracker(t)
	ctx := context.Background()

	req := announceReq("alpha-passkey", testPeerID('a'), 1000)
	if _, err := tr.Announce(ctx, cfg, req); err != nil {
		t.Fatalf("announce failed: %v", err)
	}

	req = announceReq("alpha-passkey", testPeerID('a'), 0)
	req.Event = types.EventCompleted
	req.Downloaded = 1000
	req.Now = baseTime.Add(10 * time.Minute)

	resp, err := tr.Announce(ctx, cfg, req)
	if err != nil {
		t.Fatalf("completing announce failed: %v", err)
	}

	if resp.Downloaded != 1 {
		t.Errorf("snatched count: got %d, want 1", resp.Downloaded)
	}

	// A later seeding announce under a fresh peer id must not double count.
	req = announceReq("alpha-passkey", testPeerID('z'), 0)
	req.Event = types.EventNone
	req.Downloaded = 1000
	req.Now = baseTime.Add(20 * time.Minute)

	if _, err = tr.Announce(ctx, cfg, req); err != nil {
		t.Fatalf("reseed announce failed: %v", err)
	}

	if n := len(store.completions); n != 1 {
		t.Errorf("completion rows: got %d, want 1", n)
	}
}

func TestAnnounceStoppedPeerLeavesSwarm(t *testing.T) {
	tr, _, cfg := newTestTracker(t)
	ctx := context.Background()

	if _, err := tr.Announce(ctx, cfg, announceReq("alpha-passkey", testPeerID('a'), 1000)); err != nil {
		t.Fatalf("announce failed: %v", err)
	}

	req := announceReq("alpha-passkey", testPeerID('a'), 1000)
	req.Event = types.EventStopped
	req.Now = baseTime.Add(time.Minute)

	resp, err := tr.Announce(ctx, cfg, req)
	if err != nil {
		t.Fatalf("stopped announce failed: %v", err)
	}

	if resp.Incomplete != 0 {
		t.Errorf("stopped peer still counted as leecher: %d", resp.Incomplete)
	}

	if len(resp.Peers) != 0 {
		t.Errorf("stopped announce should not receive peers, got %d", len(resp.Peers))
	}
}

func TestAnnounceNumWantClamp(t *testing.T) {
	tr, store, cfg := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		store.addUser(types.User{ID: uint32(100 + i), Passkey: "pk" + string(rune('A'+i)), Role: types.RoleUser, Enabled: true})

		req := announceReq("pk"+string(rune('A'+i)), testPeerID(byte(i)), 1000)
		if _, err := tr.Announce(ctx, cfg, req); err != nil {
			t.Fatalf("announce %d failed: %v", i, err)
		}
	}

	req := announceReq("alpha-passkey", testPeerID(200), 1000)
	req.NumWant = 500

	resp, err := tr.Announce(ctx, cfg, req)
	if err != nil {
		t.Fatalf("announce failed: %v", err)
	}

	if len(resp.Peers) != cfg.MaxNumWant {
		t.Errorf("numwant not clamped: got %d peers, want %d", len(resp.Peers), cfg.MaxNumWant)
	}
}

func TestAnnounceResponseBencode(t *testing.T) {
	resp := &AnnounceResponse{
		Interval:    1800 * time.Second,
		MinInterval: 900 * time.Second,
		Complete:    3,
		Incomplete:  2,
		Downloaded:  7,
		Peers: []types.PeerEntry{
			{ID: testPeerID('a'), IP: "10.0.0.1", Port: 6881},
			{ID: testPeerID('b'), IP: "10.0.0.2", Port: 51413},
		},
		Compact: true,
	}

	var buf bytes.Buffer
	if err := resp.WriteBencode(&buf); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := bencode.DecodeDict(buf.Bytes())
	if err != nil {
		t.Fatalf("response is not valid bencode: %v", err)
	}

	peers, ok := decoded["peers"].(string)
	if !ok {
		t.Fatalf("compact peers should decode as a byte string, got %T", decoded["peers"])
	}

	want := string([]byte{10, 0, 0, 1, 0x1a, 0xe1, 10, 0, 0, 2, 0xc8, 0xd5})
	if diff := cmp.Diff(want, peers); diff != "" {
		t.Errorf("compact peers mismatch (-want +got):\n%s", diff)
	}

	if decoded["interval"] != int64(1800) || decoded["min interval"] != int64(900) {
		t.Errorf("interval fields wrong: %v / %v", decoded["interval"], decoded["min interval"])
	}
}

func TestAnnounceResponseDictionaryPeers(t *testing.T) {
	resp := &AnnounceResponse{
		Interval:    1800 * time.Second,
		MinInterval: 900 * time.Second,
		Peers: []types.PeerEntry{
			{ID: testPeerID('a'), IP: "10.0.0.1", Port: 6881},
		},
	}

	var buf bytes.Buffer
	if err := resp.WriteBencode(&buf); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := bencode.DecodeDict(buf.Bytes())
	if err != nil {
		t.Fatalf("response is not valid bencode: %v", err)
	}

	peers, ok := decoded["peers"].([]any)
	if !ok || len(peers) != 1 {
		t.Fatalf("expected one dictionary peer, got %v", decoded["peers"])
	}

	peer := peers[0].(map[string]any)
	if peer["ip"] != "10.0.0.1" || peer["port"] != int64(6881) {
		t.Errorf("peer fields wrong: %v", peer)
	}

	id := testPeerID('a')
	if peer["peer id"] != string(id[:]) {
		t.Errorf("peer id missing or wrong: %q", peer["peer id"])
	}
}
