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

type Torrent struct {
	ID       uint32
	InfoHash TorrentHash

	// Size is the declared payload size in bytes, summed over the manifest.
	Size     uint64
	Snatched uint32
}

// FileEntry is one row of a torrent's ordered file manifest.
type FileEntry struct {
	Path string `json:"path"`
	Size uint64 `json:"size"`
}
