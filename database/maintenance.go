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
	"log/slog"
	"time"
)

// MarkInactivePeers retires ledger rows not heard from since deadline. Rows
// are kept for accounting; only their swarm visibility is dropped.
func (db *Database) MarkInactivePeers(ctx context.Context, deadline time.Time) (int64, error) {
	var rows int64

	err := perform(func() error {
		result, err := db.markInactivePeersStmt.ExecContext(ctx, deadline.Unix())
		if err != nil {
			return err
		}

		rows, err = result.RowsAffected()

		return err
	})
	if err != nil {
		return 0, err
	}

	if rows > 0 {
		slog.Info("marked stale peers inactive", "count", rows)
	}

	return rows, nil
}

// FlagHitAndRuns materializes the grace-period verdict set-based: every
// completion whose aggregate is a full download below ratio, with no seeding
// inside the staleness window and the grace period elapsed, gains a
// hit_and_runs row. INSERT IGNORE keeps the historical count monotonic.
// Flags whose aggregate has since reached ratio are marked cleared, which
// removes them from the active count but not the total.
func (db *Database) FlagHitAndRuns(ctx context.Context, now time.Time,
	stalenessWindow, grace time.Duration) (int64, error) {
	var flagged int64

	err := perform(func() error {
		result, err := db.flagHitAndRunsStmt.ExecContext(ctx,
			now.Unix(), now.Add(-stalenessWindow).Unix(), now.Add(-grace).Unix())
		if err != nil {
			return err
		}

		flagged, err = result.RowsAffected()

		return err
	})
	if err != nil {
		return 0, err
	}

	err = perform(func() error {
		_, err := db.clearHitAndRunsStmt.ExecContext(ctx)
		return err
	})
	if err != nil {
		return flagged, err
	}

	if flagged > 0 {
		slog.Info("flagged hit and runs", "count", flagged)
	}

	return flagged, nil
}
