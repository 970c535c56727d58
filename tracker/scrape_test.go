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

	"nexustracker/bencode"
	"nexustracker/database/types"
)

func TestScrape(t *testing.T) {
	tr, _, cfg := newTestTracker(t)
	ctx := context.Background()

	if _, err := tr.Announce(ctx, cfg, announceReq("alpha-passkey", testPeerID('a'), 1000)); err != nil {
		t.Fatalf("announce failed: %v", err)
	}

	if _, err := tr.Announce(ctx, cfg, announceReq("beta-passkey", testPeerID('b'), 0)); err != nil {
		t.Fatalf("announce failed: %v", err)
	}

	unknown := types.TorrentHashFromBytes([]byte("99999999999999999999"))

	resp, err := tr.Scrape(ctx, cfg, "alpha-passkey", []types.TorrentHash{testHash, unknown}, baseTime)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}

	// The unknown hash is skipped, not an error.
	if len(resp.Files) != 1 {
		t.Fatalf("expected one file, got %d", len(resp.Files))
	}

	f := resp.Files[0]
	if f.Complete != 1 || f.Incomplete != 1 {
		t.Errorf("swarm counts: %d/%d, want 1/1", f.Complete, f.Incomplete)
	}

	var buf bytes.Buffer
	if err := resp.WriteBencode(&buf); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := bencode.DecodeDict(buf.Bytes())
	if err != nil {
		t.Fatalf("scrape response is not valid bencode: %v", err)
	}

	files, ok := decoded["files"].(map[string]any)
	if !ok {
		t.Fatalf("files should be a dictionary, got %T", decoded["files"])
	}

	entry, ok := files[string(testHash[:])].(map[string]any)
	if !ok {
		t.Fatalf("missing entry keyed by raw hash bytes")
	}

	if entry["complete"] != int64(1) || entry["incomplete"] != int64(1) {
		t.Errorf("entry counts wrong: %v", entry)
	}
}

func TestScrapeAuthentication(t *testing.T) {
	tr, _, cfg := newTestTracker(t)

	_, err := tr.Scrape(context.Background(), cfg, "bogus", []types.TorrentHash{testHash}, baseTime)
	if !errors.Is(err, ErrAuthenticationFailure) {
		t.Fatalf("expected ErrAuthenticationFailure, got %v", err)
	}
}
