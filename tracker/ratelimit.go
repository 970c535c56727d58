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
	"fmt"
	"time"

	"nexustracker/database/types"
)

// rateLimitWindow is the sliding admission window per (user, torrent).
const rateLimitWindow = time.Hour

type RateLimitDecision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// decideRateLimit evaluates the sliding window against a snapshot of the
// stored record. The window has rolled over when lastAnnounce <= now - 1h;
// an announce exactly on the boundary starts a fresh window.
func decideRateLimit(rec *types.RateLimit, cfg Config, now time.Time) RateLimitDecision {
	if !cfg.RateLimitEnabled {
		return RateLimitDecision{Allowed: true}
	}

	if rec == nil || rec.LastAnnounce <= now.Add(-rateLimitWindow).Unix() {
		return RateLimitDecision{Allowed: true}
	}

	if int(rec.Count) < cfg.RatePerHour {
		return RateLimitDecision{Allowed: true}
	}

	retryAfter := time.Unix(rec.LastAnnounce, 0).Add(rateLimitWindow).Sub(now)

	return RateLimitDecision{Allowed: false, RetryAfter: retryAfter}
}

// CheckRateLimit is the read-only half of admission control; it never
// touches persistent state, so a caller can reject a request without
// inflating the window counter.
func (t *Tracker) CheckRateLimit(ctx context.Context, cfg Config, userID, torrentID uint32,
	now time.Time) (RateLimitDecision, error) {
	if !cfg.RateLimitEnabled {
		return RateLimitDecision{Allowed: true}, nil
	}

	rec, err := t.store.RateLimit(ctx, userID, torrentID)
	if err != nil {
		return RateLimitDecision{}, fmt.Errorf("rate limit lookup: %w", err)
	}

	return decideRateLimit(rec, cfg, now), nil
}

// UpdateRateLimit commits the admission: the store resets the counter to 1
// on window rollover or increments it otherwise, and records the latest ip.
func (t *Tracker) UpdateRateLimit(ctx context.Context, userID, torrentID uint32, ip string, now time.Time) error {
	if err := t.store.UpsertRateLimit(ctx, userID, torrentID, ip, now, rateLimitWindow); err != nil {
		return fmt.Errorf("rate limit update: %w", err)
	}

	return nil
}
