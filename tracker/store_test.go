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
	"sync"
	"time"

	"nexustracker/database/types"
)

// memStore mirrors the SQL store's transactional semantics in maps guarded
// by one mutex, which is enough to exercise the core against the Store
// contract without a database.
type memStore struct {
	mu sync.Mutex

	users    map[string]*types.User
	torrents map[types.TorrentHash]*types.Torrent

	progress    map[progressKey]*types.PeerProgress
	aggregates  map[types.UserTorrentPair]*memAggregate
	completions map[types.UserTorrentPair]int64
	rateLimits  map[types.UserTorrentPair]*types.RateLimit
	hnrTotals   map[uint32]int
	invites     map[string]*types.Invite
}

type progressKey struct {
	Hash types.TorrentHash
	Peer types.PeerID
}

type memAggregate struct {
	Uploaded     uint64
	Downloaded   uint64
	LastSeededAt int64
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]*types.User),
		torrents:    make(map[types.TorrentHash]*types.Torrent),
		progress:    make(map[progressKey]*types.PeerProgress),
		aggregates:  make(map[types.UserTorrentPair]*memAggregate),
		completions: make(map[types.UserTorrentPair]int64),
		rateLimits:  make(map[types.UserTorrentPair]*types.RateLimit),
		hnrTotals:   make(map[uint32]int),
		invites:     make(map[string]*types.Invite),
	}
}

func (s *memStore) addUser(u types.User) *types.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[u.Passkey] = &u

	return &u
}

func (s *memStore) addTorrent(t types.Torrent) *types.Torrent {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.torrents[t.InfoHash] = &t

	return &t
}

func (s *memStore) UserByPasskey(_ context.Context, passkey string) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[passkey]
	if !ok {
		return nil, nil
	}

	clone := *u

	return &clone, nil
}

func (s *memStore) UserByID(_ context.Context, id uint32) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == id {
			clone := *u
			return &clone, nil
		}
	}

	return nil, nil
}

func (s *memStore) TorrentByInfoHash(_ context.Context, hash types.TorrentHash) (*types.Torrent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.torrents[hash]
	if !ok {
		return nil, nil
	}

	clone := *t

	return &clone, nil
}

func (s *memStore) RecordAnnounce(_ context.Context, report *types.PeerProgress) (*AnnounceDelta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := progressKey{Hash: report.InfoHash, Peer: report.PeerID}
	pair := types.UserTorrentPair{UserID: report.UserID, TorrentID: report.TorrentID}
	delta := &AnnounceDelta{Seeding: report.Left == 0}

	row, ok := s.progress[key]
	if !ok {
		clone := *report
		s.progress[key] = &clone
		delta.NewPeer = true
		delta.Uploaded = int64(report.Uploaded)
		delta.Downloaded = int64(report.Downloaded)
	} else {
		if report.Uploaded > row.Uploaded {
			delta.Uploaded = int64(report.Uploaded - row.Uploaded)
			row.Uploaded = report.Uploaded
		}
		if report.Downloaded > row.Downloaded {
			delta.Downloaded = int64(report.Downloaded - row.Downloaded)
			row.Downloaded = report.Downloaded
		}

		if row.Left != 0 && report.Left == 0 {
			if _, done := s.completions[pair]; !done {
				s.completions[pair] = report.LastAnnounce
				delta.Completed = true
				if t, found := s.torrents[report.InfoHash]; found {
					t.Snatched++
				}
			}
		}

		row.Left = report.Left
		row.Event = report.Event
		row.IP = report.IP
		row.Port = report.Port
		row.LastAnnounce = report.LastAnnounce
		row.Active = report.Active
	}

	agg, ok := s.aggregates[pair]
	if !ok {
		agg = &memAggregate{}
		s.aggregates[pair] = agg
	}

	if row := s.progress[key]; row.Uploaded > agg.Uploaded {
		agg.Uploaded = row.Uploaded
	}
	if row := s.progress[key]; row.Downloaded > agg.Downloaded {
		agg.Downloaded = row.Downloaded
	}

	if report.Left == 0 && report.Active {
		agg.LastSeededAt = report.LastAnnounce
	}

	for _, u := range s.users {
		if u.ID == report.UserID {
			u.Uploaded += uint64(delta.Uploaded)
			u.Downloaded += uint64(delta.Downloaded)
		}
	}

	return delta, nil
}

func (s *memStore) SwarmSummary(_ context.Context, torrentID uint32, activeSince time.Time) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var seeders, leechers int

	for _, row := range s.progress {
		if row.TorrentID != torrentID || !row.Active || row.LastAnnounce <= activeSince.Unix() {
			continue
		}

		if row.Left == 0 {
			seeders++
		} else {
			leechers++
		}
	}

	return seeders, leechers, nil
}

func (s *memStore) SwarmPeers(_ context.Context, torrentID uint32, exclude types.PeerID,
	excludeUserID uint32, limit int, activeSince time.Time, leechersOnly bool) ([]types.PeerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var peers []types.PeerEntry

	for _, row := range s.progress {
		if len(peers) >= limit {
			break
		}

		if row.TorrentID != torrentID || !row.Active || row.LastAnnounce <= activeSince.Unix() {
			continue
		}

		if row.PeerID == exclude || row.UserID == excludeUserID {
			continue
		}

		if leechersOnly && row.Left == 0 {
			continue
		}

		peers = append(peers, types.PeerEntry{ID: row.PeerID, IP: row.IP, Port: row.Port})
	}

	return peers, nil
}

func (s *memStore) RateLimit(_ context.Context, userID, torrentID uint32) (*types.RateLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rateLimits[types.UserTorrentPair{UserID: userID, TorrentID: torrentID}]
	if !ok {
		return nil, nil
	}

	clone := *rec

	return &clone, nil
}

func (s *memStore) UpsertRateLimit(_ context.Context, userID, torrentID uint32, ip string,
	now time.Time, window time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair := types.UserTorrentPair{UserID: userID, TorrentID: torrentID}

	rec, ok := s.rateLimits[pair]
	if !ok || rec.LastAnnounce <= now.Add(-window).Unix() {
		s.rateLimits[pair] = &types.RateLimit{
			UserID:       userID,
			TorrentID:    torrentID,
			LastAnnounce: now.Unix(),
			Count:        1,
			IP:           ip,
		}

		return nil
	}

	rec.Count++
	rec.LastAnnounce = now.Unix()
	rec.IP = ip

	return nil
}

func (s *memStore) TransferStandings(_ context.Context, userID uint32) ([]types.TransferStanding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var standings []types.TransferStanding

	for pair, completedAt := range s.completions {
		if pair.UserID != userID {
			continue
		}

		agg := s.aggregates[pair]
		if agg == nil {
			agg = &memAggregate{}
		}

		var size uint64

		for _, t := range s.torrents {
			if t.ID == pair.TorrentID {
				size = t.Size
			}
		}

		standings = append(standings, types.TransferStanding{
			TorrentID:    pair.TorrentID,
			Size:         size,
			Uploaded:     agg.Uploaded,
			Downloaded:   agg.Downloaded,
			CompletedAt:  completedAt,
			LastSeededAt: agg.LastSeededAt,
		})
	}

	return standings, nil
}

func (s *memStore) HitAndRunCounts(_ context.Context, userID uint32) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return 0, s.hnrTotals[userID], nil
}

func (s *memStore) CreateInvite(_ context.Context, invite *types.Invite, decrementQuota bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if decrementQuota {
		var creator *types.User

		for _, u := range s.users {
			if u.ID == invite.CreatedBy {
				creator = u
			}
		}

		if creator == nil || creator.Invites == 0 {
			return ErrQuotaExceeded
		}

		creator.Invites--
	}

	clone := *invite
	s.invites[invite.Code] = &clone

	return nil
}

func (s *memStore) ConsumeInvite(_ context.Context, code string, userID uint32, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	invite, ok := s.invites[code]
	if !ok {
		return ErrNotFound
	}

	if invite.UsedBy != nil {
		return ErrAlreadyConsumed
	}

	if !invite.Active {
		return ErrInactive
	}

	if now.Unix() >= invite.ExpiresAt {
		return ErrExpired
	}

	invite.UsedBy = &userID

	return nil
}

func (s *memStore) SetUserInvites(_ context.Context, userID uint32, count uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == userID {
			u.Invites = count
		}
	}

	return nil
}
