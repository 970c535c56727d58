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

// AnnounceRequest carries one already-parsed announce. NumWant < 0 means the
// client did not send numwant and the configured default applies.
type AnnounceRequest struct {
	Passkey  string
	InfoHash types.TorrentHash
	PeerID   types.PeerID

	IP   string
	Port uint16

	Uploaded   uint64
	Downloaded uint64
	Left       uint64
	Event      string

	NumWant  int
	Compact  bool
	NoPeerID bool

	// Now is the request timestamp; the zero value means time.Now().
	Now time.Time
}

type AnnounceResponse struct {
	Interval    time.Duration
	MinInterval time.Duration

	Complete   int
	Incomplete int
	Downloaded uint32

	Peers    []types.PeerEntry
	Compact  bool
	NoPeerID bool

	// Bookkeeping for the caller, not part of the wire response.
	UserID          uint32
	TorrentID       uint32
	DeltaUploaded   int64
	DeltaDownloaded int64
	Completed       bool
}

// WriteBencode encodes the response dictionary into buf. Peers are emitted
// in compact form (BEP 23) or as a dictionary list when the client asked for
// the long form.
func (r *AnnounceResponse) WriteBencode(buf *bytes.Buffer) error {
	response := bencode.Dict{
		"interval":     int64(r.Interval / time.Second),
		"min interval": int64(r.MinInterval / time.Second),
		"complete":     int64(r.Complete),
		"incomplete":   int64(r.Incomplete),
		"downloaded":   int64(r.Downloaded),
	}

	if r.Compact {
		peerBuf := make([]byte, 0, len(r.Peers)*types.CompactAddressSize)

		for _, peer := range r.Peers {
			if addr, ok := peer.Compact(); ok {
				peerBuf = append(peerBuf, addr[:]...)
			}
		}

		response["peers"] = peerBuf
	} else {
		peerList := make(bencode.List, 0, len(r.Peers))

		for _, peer := range r.Peers {
			peerMap := bencode.Dict{
				"ip":   peer.IP,
				"port": int64(peer.Port),
			}
			if !r.NoPeerID {
				peerMap["peer id"] = peer.ID[:]
			}

			peerList = append(peerList, peerMap)
		}

		response["peers"] = peerList
	}

	return bencode.Encode(buf, response)
}

/*
 * Announce runs the per-request state machine: resolve passkey, resolve
 * info hash, consult the rate limiter, record the announce in the ledger,
 * commit the rate limit and derive the response. Failures before the ledger
 * write leave both the ledger and the rate limiter untouched, so rejected
 * traffic never counts toward swarm state or the admission window.
 */
func (t *Tracker) Announce(ctx context.Context, cfg Config, req *AnnounceRequest) (*AnnounceResponse, error) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	if !types.ValidEvent(req.Event) {
		return nil, fmt.Errorf("%w: invalid event %q", ErrMalformedRequest, req.Event)
	}

	if req.Port == 0 {
		return nil, fmt.Errorf("%w: invalid port", ErrMalformedRequest)
	}

	user, err := t.store.UserByPasskey(ctx, req.Passkey)
	if err != nil {
		return nil, fmt.Errorf("passkey lookup: %w", err)
	}

	if user == nil || !user.Enabled {
		return nil, ErrAuthenticationFailure
	}

	torrent, err := t.store.TorrentByInfoHash(ctx, req.InfoHash)
	if err != nil {
		return nil, fmt.Errorf("torrent lookup: %w", err)
	}

	if torrent == nil {
		return nil, fmt.Errorf("%w: unknown info_hash", ErrNotFound)
	}

	if cfg.RateLimitEnabled {
		rec, err := t.store.RateLimit(ctx, user.ID, torrent.ID)
		if err != nil {
			return nil, fmt.Errorf("rate limit lookup: %w", err)
		}

		if decision := decideRateLimit(rec, cfg, now); !decision.Allowed {
			return nil, &RateLimitedError{RetryAfter: decision.RetryAfter}
		}
	}

	report := &types.PeerProgress{
		InfoHash:     req.InfoHash,
		PeerID:       req.PeerID,
		UserID:       user.ID,
		TorrentID:    torrent.ID,
		Uploaded:     req.Uploaded,
		Downloaded:   req.Downloaded,
		Left:         req.Left,
		Event:        req.Event,
		IP:           req.IP,
		Port:         req.Port,
		LastAnnounce: now.Unix(),
		Active:       req.Event != types.EventStopped,
	}

	delta, err := t.store.RecordAnnounce(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("ledger update: %w", err)
	}

	// Committed only after the check passed, so blocked traffic never
	// inflates the counter.
	if err := t.store.UpsertRateLimit(ctx, user.ID, torrent.ID, req.IP, now, rateLimitWindow); err != nil {
		return nil, fmt.Errorf("rate limit update: %w", err)
	}

	activeSince := now.Add(-cfg.PeerInactivityInterval)

	seeders, leechers, err := t.store.SwarmSummary(ctx, torrent.ID, activeSince)
	if err != nil {
		return nil, fmt.Errorf("swarm summary: %w", err)
	}

	numWant := req.NumWant
	if numWant < 0 {
		numWant = cfg.NumWant
	} else if numWant > cfg.MaxNumWant {
		numWant = cfg.MaxNumWant
	}

	var peers []types.PeerEntry

	if numWant > 0 && req.Event != types.EventStopped {
		// Seeders have no use for other seeders.
		peers, err = t.store.SwarmPeers(ctx, torrent.ID, req.PeerID, user.ID, numWant, activeSince, delta.Seeding)
		if err != nil {
			return nil, fmt.Errorf("peer selection: %w", err)
		}
	}

	snatched := torrent.Snatched
	if delta.Completed {
		snatched++
	}

	return &AnnounceResponse{
		Interval:    cfg.AnnounceInterval,
		MinInterval: cfg.MinAnnounceInterval,
		Complete:    seeders,
		Incomplete:  leechers,
		Downloaded:  snatched,
		Peers:       peers,
		Compact:     req.Compact,
		NoPeerID:    req.NoPeerID,

		UserID:          user.ID,
		TorrentID:       torrent.ID,
		DeltaUploaded:   delta.Uploaded,
		DeltaDownloaded: delta.Downloaded,
		Completed:       delta.Completed,
	}, nil
}
