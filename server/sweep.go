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

package server

import (
	"context"
	"log/slog"
	"time"

	"nexustracker/collector"
	"nexustracker/config"
	"nexustracker/database"
	"nexustracker/tracker"
	"nexustracker/util"
)

// sweep is the periodic maintenance scheduler: it retires stale peers from
// swarm visibility and materializes hit-and-run flags once grace periods
// lapse. The announce hot path never does either.
func sweep(ctx context.Context, db *database.Database, cfg tracker.Config) {
	interval, _ := config.Section("intervals").GetDuration("sweep", 15*time.Minute)

	util.ContextTick(ctx, interval, func() {
		started := time.Now()

		if _, err := db.MarkInactivePeers(ctx, started.Add(-cfg.PeerInactivityInterval)); err != nil {
			slog.Error("stale peer sweep failed", "err", err)
		}

		if _, err := db.FlagHitAndRuns(ctx, started, cfg.PeerInactivityInterval, cfg.HitAndRunGrace); err != nil {
			slog.Error("hit and run sweep failed", "err", err)
		}

		collector.UpdateSweepTime(time.Since(started))
	})
}
