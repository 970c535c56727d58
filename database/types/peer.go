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

package types

import (
	"encoding/binary"
	"net"
)

// PeerProgress is one announce ledger row, keyed by (InfoHash, PeerID).
// Uploaded and Downloaded are per-session high-water marks; Left and Event
// are latest-wins.
type PeerProgress struct {
	InfoHash  TorrentHash
	PeerID    PeerID
	UserID    uint32
	TorrentID uint32

	Uploaded   uint64
	Downloaded uint64
	Left       uint64

	Event string
	IP    string
	Port  uint16

	LastAnnounce int64 // unix time
	Active       bool
}

// PeerEntry is the subset of a ledger row handed out in announce responses.
type PeerEntry struct {
	ID   PeerID
	IP   string
	Port uint16
}

// CompactAddressSize is the length of one peer in a compact peers string.
const CompactAddressSize = 6

// Compact returns the 6-byte BEP 23 representation. Peers without a valid
// IPv4 address report false and are skipped in compact responses.
func (p PeerEntry) Compact() ([CompactAddressSize]byte, bool) {
	var out [CompactAddressSize]byte

	ip := net.ParseIP(p.IP)
	if ip == nil {
		return out, false
	}

	ip4 := ip.To4()
	if ip4 == nil {
		return out, false
	}

	copy(out[:4], ip4)
	binary.BigEndian.PutUint16(out[4:], p.Port)

	return out, true
}

type RateLimit struct {
	UserID    uint32
	TorrentID uint32

	LastAnnounce int64 // unix time
	Count        uint32
	IP           string
}

type Completion struct {
	UserID      uint32
	TorrentID   uint32
	CompletedAt int64 // unix time
}

// TransferStanding is the reduced per-(user, torrent) accounting row the
// hit-and-run accountant works from: one completed torrent with transfer
// maxima taken across all of the user's peer sessions.
type TransferStanding struct {
	TorrentID uint32
	Size      uint64

	Uploaded   uint64
	Downloaded uint64

	CompletedAt  int64 // unix time
	LastSeededAt int64 // unix time, 0 when never seen seeding
}
