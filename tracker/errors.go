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
	"errors"
	"fmt"
	"time"
)

// The core is transport agnostic: it reports failures as structured error
// values and leaves status codes and wire formats to the caller. Storage
// failures are wrapped and propagated as-is, never swallowed.
var (
	ErrMalformedRequest      = errors.New("malformed request")
	ErrAuthenticationFailure = errors.New("authentication failure")
	ErrNotFound              = errors.New("not found")
	ErrPermissionDenied      = errors.New("permission denied")

	ErrInvitesDisabled = errors.New("invite creation is disabled")
	ErrQuotaExceeded   = errors.New("invite quota exceeded")
	ErrAlreadyConsumed = errors.New("invite code already consumed")
	ErrExpired         = errors.New("invite code expired")
	ErrInactive        = errors.New("invite code deactivated")
)

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}
