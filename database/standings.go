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

	cdb "nexustracker/database/types"
)

// TransferStandings returns one row per completed torrent for the user,
// joining the completion against the write-time transfer aggregate so the
// accountant never has to scan per-session ledger rows.
func (db *Database) TransferStandings(ctx context.Context, userID uint32) ([]cdb.TransferStanding, error) {
	rows, err := db.transferStandingsStmt.QueryContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var standings []cdb.TransferStanding

	for rows.Next() {
		var st cdb.TransferStanding

		err = rows.Scan(&st.TorrentID, &st.Size, &st.Uploaded, &st.Downloaded,
			&st.CompletedAt, &st.LastSeededAt)
		if err != nil {
			return nil, err
		}

		standings = append(standings, st)
	}

	return standings, rows.Err()
}

func (db *Database) HitAndRunCounts(ctx context.Context, userID uint32) (active, total int, err error) {
	err = db.hitAndRunCountsStmt.QueryRowContext(ctx, userID).Scan(&active, &total)

	return active, total, err
}
