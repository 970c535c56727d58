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

	cdb "nexustracker/database/types"
)

func (db *Database) RateLimit(ctx context.Context, userID, torrentID uint32) (*cdb.RateLimit, error) {
	rec := &cdb.RateLimit{}

	err := db.rateLimitStmt.QueryRowContext(ctx, userID, torrentID).
		Scan(&rec.UserID, &rec.TorrentID, &rec.LastAnnounce, &rec.Count, &rec.IP)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return rec, nil
}

// UpsertRateLimit commits one admitted announce in a single conditional
// statement: the counter resets to 1 when the stored last_announce has
// fallen out of the window, and increments otherwise.
func (db *Database) UpsertRateLimit(ctx context.Context, userID, torrentID uint32, ip string,
	now time.Time, window time.Duration) error {
	return perform(func() error {
		_, err := db.upsertRateLimitStmt.ExecContext(ctx,
			userID, torrentID, now.Unix(), ip, now.Add(-window).Unix())
		return err
	})
}
