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

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"nexustracker/bencode"
)

var (
	dump     bool
	announce string
	passkey  string
	help     bool
)

// provided at compile-time
var (
	BuildDate    = "0000-00-00T00:00:00+0000"
	BuildVersion = "development"
)

func init() {
	flag.BoolVar(&dump, "d", false, "Dumps torrent metadata from stdin as JSON instead of rewriting it")
	flag.StringVar(&announce, "a", "", "Announce URL to embed into the torrent")
	flag.StringVar(&passkey, "p", "", "Passkey to append to the announce URL")
	flag.BoolVar(&help, "h", false, "Prints this help message")
}

func main() {
	fmt.Fprintf(os.Stderr, "torrentfile for nexustracker, ver=%s date=%s runtime=%s\n\n",
		BuildVersion, BuildDate, runtime.Version())

	flag.Parse()

	if help || (!dump && announce == "") {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()

		return
	}

	metainfo, err := io.ReadAll(os.Stdin)
	if err != nil {
		panic(err)
	}

	if dump {
		val, err := bencode.Decode(metainfo)
		if err != nil {
			panic(err)
		}

		out, err := json.MarshalIndent(val, "", "\t")
		if err != nil {
			panic(err)
		}

		fmt.Println(string(out))

		return
	}

	announceURL := announce
	if passkey != "" {
		announceURL = bencode.AnnounceURLWithPasskey(announce, passkey)
	}

	rewritten, err := bencode.RewriteAnnounce(metainfo, announceURL)
	if err != nil {
		panic(err)
	}

	if _, err = os.Stdout.Write(rewritten); err != nil {
		panic(err)
	}
}
