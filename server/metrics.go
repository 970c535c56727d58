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
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"

	"nexustracker/config"
)

const bearerPrefix = "Bearer "

// metrics renders the tracker's registry in the Prometheus text format.
// The process-default registry (Go runtime metrics and anything else
// registered globally) is only included for callers holding the admin
// token.
func metrics(auth string, registry *prometheus.Registry, buf *bytes.Buffer) int {
	mfs, err := registry.Gather()
	if err != nil {
		slog.Error("error gathering metrics", "err", err)
		return fasthttp.StatusInternalServerError
	}

	for _, mf := range mfs {
		if _, err = expfmt.MetricFamilyToText(buf, mf); err != nil {
			slog.Error("error in converting metrics to text", "err", err)
			panic(err)
		}
	}

	n := len(bearerPrefix)
	if len(auth) > n && auth[:n] == bearerPrefix {
		adminToken, exists := config.Section("http").Get("admin_token", "")
		if exists && auth[n:] == adminToken {
			mfs, _ = prometheus.DefaultGatherer.Gather()

			for _, mf := range mfs {
				if _, err = expfmt.MetricFamilyToText(buf, mf); err != nil {
					slog.Error("error in converting metrics to text", "err", err)
					panic(err)
				}
			}
		}
	}

	return fasthttp.StatusOK
}
