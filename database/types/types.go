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
	"database/sql/driver"
	"encoding/hex"
	"errors"
)

// TorrentHashSize is the size of a SHA-1 info hash digest.
const TorrentHashSize = 20

// TorrentHash is the raw 20-byte info hash identifying a torrent.
type TorrentHash [TorrentHashSize]byte

var (
	errWrongTorrentHashSize = errors.New("wrong torrent hash size")
	errWrongPeerIDSize      = errors.New("wrong peer id size")
	errNilValue             = errors.New("nil value")
	errInvalidType          = errors.New("invalid type")
)

func TorrentHashFromBytes(buf []byte) (h TorrentHash) {
	if len(buf) != TorrentHashSize {
		return
	}

	copy(h[:], buf)

	return h
}

func TorrentHashFromHex(s string) (h TorrentHash, err error) {
	if len(s) != TorrentHashSize*2 {
		return h, errWrongTorrentHashSize
	}

	if _, err = hex.Decode(h[:], []byte(s)); err != nil {
		return h, err
	}

	return h, nil
}

// Hex returns the lowercase hex form used as the storage key.
//
//goland:noinspection GoMixedReceiverTypes
func (h TorrentHash) Hex() string {
	var buf [TorrentHashSize * 2]byte

	hex.Encode(buf[:], h[:])

	return string(buf[:])
}

//goland:noinspection GoMixedReceiverTypes
func (h *TorrentHash) Scan(src any) error {
	if src == nil {
		return errNilValue
	} else if buf, ok := src.([]byte); ok {
		if len(buf) == TorrentHashSize*2 {
			_, err := hex.Decode((*h)[:], buf)
			return err
		}

		if len(buf) != TorrentHashSize {
			return errWrongTorrentHashSize
		}

		copy((*h)[:], buf)

		return nil
	}

	return errInvalidType
}

//goland:noinspection GoMixedReceiverTypes
func (h *TorrentHash) Value() (driver.Value, error) {
	return h.Hex(), nil
}

// PeerID Sent in tracker requests with client information
// https://www.bittorrent.org/beps/bep_0020.html
type PeerID [20]byte

func PeerIDFromRawString(buf string) (id PeerID) {
	if len(buf) != 20 {
		return
	}

	copy(id[:], buf)

	return id
}

//goland:noinspection GoMixedReceiverTypes
func (id *PeerID) Scan(src any) error {
	if src == nil {
		return errNilValue
	} else if buf, ok := src.([]byte); ok {
		if len(buf) != 20 {
			return errWrongPeerIDSize
		}

		copy((*id)[:], buf)

		return nil
	}

	return errInvalidType
}

//goland:noinspection GoMixedReceiverTypes
func (id *PeerID) Value() (driver.Value, error) {
	return (*id)[:], nil
}

// Announce events defined by BEP 3. An absent event key is an empty
// (periodic) announce.
const (
	EventNone      = ""
	EventStarted   = "started"
	EventStopped   = "stopped"
	EventCompleted = "completed"
)

func ValidEvent(event string) bool {
	switch event {
	case EventNone, EventStarted, EventStopped, EventCompleted:
		return true
	}

	return false
}

type UserTorrentPair struct {
	UserID    uint32
	TorrentID uint32
}
