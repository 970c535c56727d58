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

package types

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Staff reports whether the role is exempt from invite quotas and ceilings.
func (r Role) Staff() bool {
	return r == RoleModerator || r == RoleAdmin
}

type User struct {
	ID      uint32
	Passkey string
	Role    Role

	// Cumulative transfer counters, monotonic by construction: only
	// non-negative announce deltas are ever added.
	Uploaded   uint64
	Downloaded uint64

	Invites uint32
	Enabled bool
}

type Invite struct {
	ID        uint32
	Code      string
	CreatedBy uint32
	UsedBy    *uint32
	Active    bool
	CreatedAt int64 // unix time
	ExpiresAt int64
}
