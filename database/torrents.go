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

	cdb "nexustracker/database/types"
)

func (db *Database) TorrentByInfoHash(ctx context.Context, hash cdb.TorrentHash) (*cdb.Torrent, error) {
	torrent := &cdb.Torrent{}

	err := db.torrentByHashStmt.QueryRowContext(ctx, hash.Hex()).
		Scan(&torrent.ID, &torrent.InfoHash, &torrent.Size, &torrent.Snatched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return torrent, nil
}
