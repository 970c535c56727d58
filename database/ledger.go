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

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"nexustracker/collector"
	cdb "nexustracker/database/types"
	"nexustracker/tracker"
)

/*
 * RecordAnnounce applies one announce to the ledger in a single transaction:
 *
 *   1. lock and read the prior (info_hash, peer_id) row,
 *   2. upsert it with GREATEST() clamps on the transfer counters,
 *   3. fold the clamped maxima into the per-(user, torrent) aggregate,
 *   4. credit the raw deltas to the user's cumulative counters,
 *   5. record the completion when remaining crossed nonzero to zero.
 *
 * The SELECT ... FOR UPDATE serializes concurrent announces from the same
 * peer, which is what makes the delta computation in Go safe.
 */
func (db *Database) RecordAnnounce(ctx context.Context, report *cdb.PeerProgress) (*tracker.AnnounceDelta, error) {
	delta := &tracker.AnnounceDelta{Seeding: report.Left == 0}

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		// withTx may rerun us after a deadlock rollback.
		*delta = tracker.AnnounceDelta{Seeding: report.Left == 0}

		var (
			priorUp, priorDown, priorLeft uint64
			exists                        = true
		)

		err := tx.QueryRowContext(ctx,
			"SELECT uploaded, downloaded, remaining FROM peer_progress "+
				"WHERE info_hash = ? AND peer_id = ? FOR UPDATE",
			report.InfoHash.Hex(), report.PeerID[:]).Scan(&priorUp, &priorDown, &priorLeft)
		if errors.Is(err, sql.ErrNoRows) {
			exists = false
		} else if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO peer_progress (info_hash, peer_id, user_id, torrent_id, uploaded, downloaded, "+
				"remaining, event, ip, port, last_announce, active) "+
				"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) "+
				"ON DUPLICATE KEY UPDATE "+
				"uploaded = GREATEST(uploaded, VALUES(uploaded)), "+
				"downloaded = GREATEST(downloaded, VALUES(downloaded)), "+
				"remaining = VALUES(remaining), event = VALUES(event), ip = VALUES(ip), "+
				"port = VALUES(port), last_announce = VALUES(last_announce), active = VALUES(active)",
			report.InfoHash.Hex(), report.PeerID[:], report.UserID, report.TorrentID,
			report.Uploaded, report.Downloaded, report.Left, report.Event,
			report.IP, report.Port, report.LastAnnounce, report.Active)
		if err != nil {
			return err
		}

		if !exists {
			delta.NewPeer = true
			delta.Uploaded = int64(report.Uploaded)
			delta.Downloaded = int64(report.Downloaded)
		} else {
			if report.Uploaded > priorUp {
				delta.Uploaded = int64(report.Uploaded - priorUp)
			}
			if report.Downloaded > priorDown {
				delta.Downloaded = int64(report.Downloaded - priorDown)
			}
		}

		if delta.Uploaded > 0 || delta.Downloaded > 0 {
			_, err = tx.ExecContext(ctx,
				"UPDATE users SET uploaded = uploaded + ?, downloaded = downloaded + ? WHERE id = ?",
				delta.Uploaded, delta.Downloaded, report.UserID)
			if err != nil {
				return err
			}
		}

		var lastSeededAt int64
		if report.Left == 0 && report.Active {
			lastSeededAt = report.LastAnnounce
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO transfer_aggregates (user_id, torrent_id, uploaded, downloaded, last_seeded_at) "+
				"VALUES (?, ?, ?, ?, ?) "+
				"ON DUPLICATE KEY UPDATE "+
				"uploaded = GREATEST(uploaded, VALUES(uploaded)), "+
				"downloaded = GREATEST(downloaded, VALUES(downloaded)), "+
				"last_seeded_at = GREATEST(last_seeded_at, VALUES(last_seeded_at))",
			report.UserID, report.TorrentID,
			max64(report.Uploaded, priorUp), max64(report.Downloaded, priorDown), lastSeededAt)
		if err != nil {
			return err
		}

		if exists && priorLeft != 0 && report.Left == 0 {
			result, err := tx.ExecContext(ctx,
				"INSERT IGNORE INTO torrent_completions (user_id, torrent_id, completed_at) VALUES (?, ?, ?)",
				report.UserID, report.TorrentID, report.LastAnnounce)
			if err != nil {
				return err
			}

			rows, err := result.RowsAffected()
			if err != nil {
				return err
			}

			if rows == 1 {
				delta.Completed = true

				_, err = tx.ExecContext(ctx,
					"UPDATE torrents SET snatched = snatched + 1 WHERE id = ?", report.TorrentID)
				if err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	collector.IncrementAnnounces()

	if delta.Completed {
		collector.IncrementCompletions()
	}

	return delta, nil
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}

	return b
}

func (db *Database) SwarmSummary(ctx context.Context, torrentID uint32,
	activeSince time.Time) (seeders, leechers int, err error) {
	err = db.swarmSummaryStmt.QueryRowContext(ctx, torrentID, activeSince.Unix()).
		Scan(&seeders, &leechers)

	return seeders, leechers, err
}

func (db *Database) SwarmPeers(ctx context.Context, torrentID uint32, exclude cdb.PeerID,
	excludeUserID uint32, limit int, activeSince time.Time, leechersOnly bool) ([]cdb.PeerEntry, error) {
	stmt := db.swarmPeersStmt
	if leechersOnly {
		stmt = db.swarmLeechersStmt
	}

	rows, err := stmt.QueryContext(ctx, torrentID, activeSince.Unix(), exclude[:], excludeUserID, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	peers := make([]cdb.PeerEntry, 0, limit)

	for rows.Next() {
		var peer cdb.PeerEntry

		if err = rows.Scan(&peer.ID, &peer.IP, &peer.Port); err != nil {
			return nil, err
		}

		peers = append(peers, peer)
	}

	return peers, rows.Err()
}
