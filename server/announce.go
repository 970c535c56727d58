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
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"nexustracker/config"
	cdb "nexustracker/database/types"
	"nexustracker/record"
	"nexustracker/server/params"
	"nexustracker/tracker"
	"nexustracker/util"
)

var privateIPBlocks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"10.0.0.0/8",     // RFC1918
		"172.16.0.0/12",  // RFC1918
		"192.168.0.0/16", // RFC1918
		"169.254.0.0/16", // RFC3927 link-local
		"100.64.0.0/10",  // RFC6598
	} {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			slog.Error("failed to parse cidr", "cidr", cidr, "err", err)
		} else {
			privateIPBlocks = append(privateIPBlocks, block)
		}
	}
}

func isPublicIPV4(ipAddr string) bool {
	ip := net.ParseIP(ipAddr)
	if ip == nil || ip.To4() == nil {
		return false
	}

	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return false
	}

	for _, block := range privateIPBlocks {
		if block.Contains(ip) {
			return false
		}
	}

	return true
}

// resolveIP prefers a client-supplied public IPv4, then the configured
// proxy header, then the socket address.
func resolveIP(ctx *fasthttp.RequestCtx, qp *params.QueryParam) string {
	if ip, exists := qp.Get("ip"); exists && isPublicIPV4(ip) {
		return ip
	}

	if ipv4, exists := qp.Get("ipv4"); exists && isPublicIPV4(ipv4) {
		return ipv4
	}

	if proxyHeader, exists := config.Section("http").Get("proxy_header", ""); exists {
		if ips := ctx.Request.Header.PeekAll(proxyHeader); len(ips) > 0 {
			return string(ips[0])
		}
	}

	remoteAddrString := ctx.RemoteAddr().String()
	if portIndex := strings.LastIndex(remoteAddrString, ":"); portIndex != -1 {
		return remoteAddrString[0:portIndex]
	}

	return ""
}

func announce(ctx *fasthttp.RequestCtx, passkey string, buf *bytes.Buffer) int {
	qp, err := params.ParseQuery(string(ctx.URI().QueryString()))
	if err != nil {
		failure("Malformed request - invalid query string", buf, 1*time.Hour)
		return fasthttp.StatusBadRequest
	}

	if len(qp.InfoHashes()) == 0 {
		failure("Malformed request - missing info_hash", buf, 1*time.Hour)
		return fasthttp.StatusBadRequest
	} else if len(qp.InfoHashes()) > 1 {
		failure("Malformed request - can only announce singular info_hash", buf, 1*time.Hour)
		return fasthttp.StatusBadRequest
	}

	peerID, exists := qp.Get("peer_id")
	if !exists {
		failure("Malformed request - missing peer_id", buf, 1*time.Hour)
		return fasthttp.StatusBadRequest
	}

	if len(peerID) != 20 {
		failure("Malformed request - invalid peer_id", buf, 1*time.Hour)
		return fasthttp.StatusBadRequest
	}

	port, exists := qp.GetUint16("port")
	if !exists || port == 0 {
		failure("Malformed request - missing or invalid port", buf, 1*time.Hour)
		return fasthttp.StatusBadRequest
	}

	uploaded, exists := qp.GetUint64("uploaded")
	if !exists {
		failure("Malformed request - missing uploaded", buf, 1*time.Hour)
		return fasthttp.StatusBadRequest
	}

	downloaded, exists := qp.GetUint64("downloaded")
	if !exists {
		failure("Malformed request - missing downloaded", buf, 1*time.Hour)
		return fasthttp.StatusBadRequest
	}

	left, exists := qp.GetUint64("left")
	if !exists {
		failure("Malformed request - missing left", buf, 1*time.Hour)
		return fasthttp.StatusBadRequest
	}

	event, _ := qp.Get("event")

	ipAddr := resolveIP(ctx, qp)
	if net.ParseIP(ipAddr) == nil {
		failure("Failed to parse IP address", buf, 1*time.Hour)
		return fasthttp.StatusBadRequest
	}

	numWant := -1
	if nw, exists := qp.GetInt("numwant"); exists && nw >= 0 {
		numWant = nw
	}

	compact, _ := qp.GetBool("compact")
	noPeerID, _ := qp.GetBool("no_peer_id")

	req := &tracker.AnnounceRequest{
		Passkey:    passkey,
		InfoHash:   qp.InfoHashes()[0],
		PeerID:     cdb.PeerIDFromRawString(peerID),
		IP:         ipAddr,
		Port:       port,
		Uploaded:   uploaded,
		Downloaded: downloaded,
		Left:       left,
		Event:      event,
		NumWant:    numWant,
		Compact:    compact,
		NoPeerID:   noPeerID,
	}

	resp, err := handler.core.Announce(ctx, handler.cfg, req)
	if err != nil {
		return failWith(ctx, err, buf)
	}

	// Spread announce intervals with a little random drift so rebooted
	// swarms do not reconverge on the same second.
	if handler.cfg.AnnounceDrift > 0 {
		resp.Interval += time.Duration(util.Rand(0, int(handler.cfg.AnnounceDrift/time.Second))) * time.Second
	}

	if err = resp.WriteBencode(buf); err != nil {
		panic(err)
	}

	go record.Record(resp.TorrentID, resp.UserID,
		resp.DeltaUploaded, resp.DeltaDownloaded, uploaded, event, ipAddr)

	return fasthttp.StatusOK
}
