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
	"strings"
	"time"

	"nexustracker/database/types"
	"nexustracker/util"
)

const inviteCodeLength = 32

// CreateInvite issues a new invite code for user. In closed registration
// nobody can invite; in invite mode a non-staff user spends one unit of
// quota, atomically with the code insert, so a failed insert never costs an
// invite and a spent invite always has a usable code.
func (t *Tracker) CreateInvite(ctx context.Context, cfg Config, user *types.User,
	now time.Time) (*types.Invite, error) {
	if cfg.RegistrationMode == RegistrationClosed {
		return nil, ErrInvitesDisabled
	}

	decrementQuota := cfg.RegistrationMode == RegistrationInvite && !user.Role.Staff()
	if decrementQuota && user.Invites == 0 {
		return nil, ErrQuotaExceeded
	}

	invite := &types.Invite{
		Code:      util.RandLowerStringBytes(inviteCodeLength),
		CreatedBy: user.ID,
		Active:    true,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(cfg.InviteExpiry).Unix(),
	}

	if err := t.store.CreateInvite(ctx, invite, decrementQuota); err != nil {
		return nil, fmt.Errorf("invite creation: %w", err)
	}

	return invite, nil
}

// ConsumeInvite marks code as used by userID. Codes are case-insensitive;
// consumption is a compare-and-swap on the unused marker, so of two
// concurrent consumers exactly one succeeds and the other sees
// ErrAlreadyConsumed.
func (t *Tracker) ConsumeInvite(ctx context.Context, code string, userID uint32, now time.Time) error {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return fmt.Errorf("%w: empty invite code", ErrMalformedRequest)
	}

	return t.store.ConsumeInvite(ctx, code, userID, now)
}

// AssignInvites sets a user's invite quota. Only staff may assign;
// moderators are bound by the configured per-user ceiling, admins are not.
func (t *Tracker) AssignInvites(ctx context.Context, cfg Config, actor *types.User,
	targetUserID uint32, count int) error {
	if !actor.Role.Staff() {
		return ErrPermissionDenied
	}

	if count < 0 {
		return fmt.Errorf("%w: negative invite count", ErrMalformedRequest)
	}

	if actor.Role != types.RoleAdmin && count > cfg.MaxInvitesPerUser {
		return fmt.Errorf("%w: count %d exceeds per-user ceiling %d",
			ErrQuotaExceeded, count, cfg.MaxInvitesPerUser)
	}

	target, err := t.store.UserByID(ctx, targetUserID)
	if err != nil {
		return fmt.Errorf("user lookup: %w", err)
	}

	if target == nil {
		return fmt.Errorf("%w: unknown user %d", ErrNotFound, targetUserID)
	}

	if err := t.store.SetUserInvites(ctx, targetUserID, uint32(count)); err != nil {
		return fmt.Errorf("invite assignment: %w", err)
	}

	return nil
}
