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
	"bytes"
	"errors"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"nexustracker/bencode"
	"nexustracker/collector"
	"nexustracker/tracker"
)

func failure(reason string, buf *bytes.Buffer, interval time.Duration) {
	// Reset buffer to prevent reuse of any written bytes.
	buf.Reset()
	bencode.WriteFailure(buf, reason, interval)
}

// failWith maps a core error onto an HTTP status and a bencoded failure
// body. Torrent clients surface the failure reason string, so it carries
// the user-facing message; the status code is for everything else.
func failWith(ctx *fasthttp.RequestCtx, err error, buf *bytes.Buffer) int {
	var limited *tracker.RateLimitedError

	switch {
	case errors.As(err, &limited):
		retryAfter := limited.RetryAfter
		if retryAfter < time.Second {
			retryAfter = time.Second
		}

		ctx.Response.Header.Set("Retry-After", strconv.Itoa(int(retryAfter/time.Second)))
		failure("Rate limit exceeded", buf, retryAfter)
		collector.IncrementRateLimited()

		return fasthttp.StatusTooManyRequests
	case errors.Is(err, tracker.ErrMalformedRequest):
		failure("Malformed request", buf, 1*time.Hour)
		return fasthttp.StatusBadRequest
	case errors.Is(err, tracker.ErrAuthenticationFailure):
		failure("Your passkey is invalid", buf, 1*time.Hour)
		return fasthttp.StatusForbidden
	case errors.Is(err, tracker.ErrNotFound):
		failure("This torrent does not exist", buf, 5*time.Minute)
		return fasthttp.StatusNotFound
	default:
		failure("Internal error", buf, 5*time.Minute)
		return fasthttp.StatusInternalServerError
	}
}
