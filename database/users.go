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

func scanUser(row *sql.Row) (*cdb.User, error) {
	user := &cdb.User{}

	err := row.Scan(&user.ID, &user.Passkey, &user.Role,
		&user.Uploaded, &user.Downloaded, &user.Invites, &user.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *Database) UserByPasskey(ctx context.Context, passkey string) (*cdb.User, error) {
	return scanUser(db.userByPasskeyStmt.QueryRowContext(ctx, passkey))
}

func (db *Database) UserByID(ctx context.Context, id uint32) (*cdb.User, error) {
	return scanUser(db.userByIDStmt.QueryRowContext(ctx, id))
}

func (db *Database) SetUserInvites(ctx context.Context, userID uint32, count uint32) error {
	return perform(func() error {
		_, err := db.setUserInvitesStmt.ExecContext(ctx, count, userID)
		return err
	})
}
