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
	"time"

	"github.com/valyala/fasthttp"

	"nexustracker/collector"
	"nexustracker/server/params"
)

func scrape(ctx *fasthttp.RequestCtx, passkey string, buf *bytes.Buffer) int {
	qp, err := params.ParseQuery(string(ctx.URI().QueryString()))
	if err != nil {
		failure("Malformed request - invalid query string", buf, 1*time.Hour)
		return fasthttp.StatusBadRequest
	}

	if len(qp.InfoHashes()) == 0 {
		failure("Malformed request - missing info_hash", buf, 1*time.Hour)
		return fasthttp.StatusBadRequest
	}

	resp, err := handler.core.Scrape(ctx, handler.cfg, passkey, qp.InfoHashes(), time.Now())
	if err != nil {
		return failWith(ctx, err, buf)
	}

	if err = resp.WriteBencode(buf); err != nil {
		panic(err)
	}

	collector.IncrementScrapes()

	return fasthttp.StatusOK
}
