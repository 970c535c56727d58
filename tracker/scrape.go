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
	"fmt"
	"time"

	"nexustracker/bencode"
	"nexustracker/database/types"
)

// ScrapeFile is the swarm summary for one torrent in a scrape response.
type ScrapeFile struct {
	InfoHash   types.TorrentHash
	Complete   int
	Incomplete int
	Downloaded uint32
}

type ScrapeResponse struct {
	Files []ScrapeFile
}

// WriteBencode encodes the "files" dictionary keyed by raw 20-byte info
// hashes.
func (r *ScrapeResponse) WriteBencode(buf *bytes.Buffer) error {
	files := bencode.Dict{}

	for _, f := range r.Files {
		files[string(f.InfoHash[:])] = bencode.Dict{
			"complete":   int64(f.Complete),
			"incomplete": int64(f.Incomplete),
			"downloaded": int64(f.Downloaded),
		}
	}

	return bencode.Encode(buf, bencode.Dict{"files": files})
}

// Scrape resolves each requested info hash to its current swarm summary.
// Unknown hashes are skipped rather than failing the whole request, matching
// common client expectations.
func (t *Tracker) Scrape(ctx context.Context, cfg Config, passkey string,
	hashes []types.TorrentHash, now time.Time) (*ScrapeResponse, error) {
	if now.IsZero() {
		now = time.Now()
	}

	user, err := t.store.UserByPasskey(ctx, passkey)
	if err != nil {
		return nil, fmt.Errorf("passkey lookup: %w", err)
	}

	if user == nil || !user.Enabled {
		return nil, ErrAuthenticationFailure
	}

	activeSince := now.Add(-cfg.PeerInactivityInterval)
	resp := &ScrapeResponse{Files: make([]ScrapeFile, 0, len(hashes))}

	for _, hash := range hashes {
		torrent, err := t.store.TorrentByInfoHash(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("torrent lookup: %w", err)
		}

		if torrent == nil {
			continue
		}

		seeders, leechers, err := t.store.SwarmSummary(ctx, torrent.ID, activeSince)
		if err != nil {
			return nil, fmt.Errorf("swarm summary: %w", err)
		}

		resp.Files = append(resp.Files, ScrapeFile{
			InfoHash:   hash,
			Complete:   seeders,
			Incomplete: leechers,
			Downloaded: torrent.Snatched,
		})
	}

	return resp, nil
}
