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
	"bytes"
	"sync"
)

// BufferPool recycles response buffers sized for a typical announce reply.
type BufferPool struct {
	bufSize int
	pool    sync.Pool
}

func NewBufferPool(bufSize int) *BufferPool {
	p := &BufferPool{bufSize: bufSize}
	p.pool.New = func() any {
		return bytes.NewBuffer(make([]byte, 0, bufSize))
	}

	return p
}

func (pool *BufferPool) Take() (buf *bytes.Buffer) {
	buf = pool.pool.Get().(*bytes.Buffer)
	buf.Reset()

	return
}

// Give returns buf for reuse. Buffers that grew far past the pool size
// (full scrapes, long peer lists) are dropped so one burst does not pin
// their memory for the lifetime of the pool.
func (pool *BufferPool) Give(buf *bytes.Buffer) {
	if buf.Cap() > pool.bufSize*64 {
		return
	}

	pool.pool.Put(buf)
}
