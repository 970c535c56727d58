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

// CreateInvite inserts the code and, when quota applies, decrements the
// creator's balance in the same transaction. The guarded UPDATE makes the
// pair atomic: no decrement without a code, no free code past zero quota.
func (db *Database) CreateInvite(ctx context.Context, invite *cdb.Invite, decrementQuota bool) error {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if decrementQuota {
			result, err := tx.ExecContext(ctx,
				"UPDATE users SET invites = invites - 1 WHERE id = ? AND invites > 0",
				invite.CreatedBy)
			if err != nil {
				return err
			}

			rows, err := result.RowsAffected()
			if err != nil {
				return err
			}

			if rows == 0 {
				return tracker.ErrQuotaExceeded
			}
		}

		result, err := tx.ExecContext(ctx,
			"INSERT INTO invite_codes (code, created_by, active, created_at, expires_at) "+
				"VALUES (?, ?, ?, ?, ?)",
			invite.Code, invite.CreatedBy, invite.Active, invite.CreatedAt, invite.ExpiresAt)
		if err != nil {
			return err
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}

		invite.ID = uint32(id)

		return nil
	})
	if err != nil {
		return err
	}

	collector.IncrementInvitesCreated()

	return nil
}

// ConsumeInvite is a compare-and-swap on the unused marker: the UPDATE only
// matches an unconsumed, active, unexpired row, so exactly one of any number
// of concurrent consumers can succeed. A miss is diagnosed with a follow-up
// read to report why.
func (db *Database) ConsumeInvite(ctx context.Context, code string, userID uint32, now time.Time) error {
	var rows int64

	err := perform(func() error {
		result, err := db.conn.ExecContext(ctx,
			"UPDATE invite_codes SET used_by = ? "+
				"WHERE code = ? AND used_by IS NULL AND active = 1 AND expires_at > ?",
			userID, code, now.Unix())
		if err != nil {
			return err
		}

		rows, err = result.RowsAffected()

		return err
	})
	if err != nil {
		return err
	}

	if rows == 1 {
		collector.IncrementInvitesConsumed()
		return nil
	}

	var (
		usedBy    sql.NullInt64
		active    bool
		expiresAt int64
	)

	err = db.conn.QueryRowContext(ctx,
		"SELECT used_by, active, expires_at FROM invite_codes WHERE code = ?", code).
		Scan(&usedBy, &active, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return tracker.ErrNotFound
	} else if err != nil {
		return err
	}

	switch {
	case usedBy.Valid:
		return tracker.ErrAlreadyConsumed
	case !active:
		return tracker.ErrInactive
	default:
		return tracker.ErrExpired
	}
}
