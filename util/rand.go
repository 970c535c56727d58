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

package util

import (
	"crypto/rand"
	"encoding/binary"
)

const alphanumBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// lowerAlphanumBytes is used for tokens that must compare case-insensitively,
// such as invite codes.
const lowerAlphanumBytes = "abcdefghijklmnopqrstuvwxyz0123456789"

// Intn returns a uniform random int in [0, n). Draws above the largest
// multiple of n are rejected and redrawn, so no residue is favored.
func Intn(n int) int {
	if n <= 0 {
		panic("util: Intn bound must be positive")
	}

	limit := ^uint64(0) - ^uint64(0)%uint64(n)

	var b [8]byte

	for {
		if _, err := rand.Read(b[:]); err != nil {
			panic(err)
		}

		if v := binary.BigEndian.Uint64(b[:]); v < limit {
			return int(v % uint64(n))
		}
	}
}

// Rand returns a random int in the inclusive range [min, max].
func Rand(min int, max int) int {
	return Intn(max-min+1) + min
}

func RandStringBytes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumBytes[Intn(len(alphanumBytes))]
	}

	return string(b)
}

func RandLowerStringBytes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = lowerAlphanumBytes[Intn(len(lowerAlphanumBytes))]
	}

	return string(b)
}

func Btoa(a bool) string {
	if a {
		return "1"
	}

	return "0"
}
