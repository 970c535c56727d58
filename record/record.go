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

// Package record journals accepted announces to hourly JSON-lines files so
// site-side jobs can replay traffic without querying the tracker database.
package record

import (
	"bytes"
	"log/slog"
	"os"
	"strconv"
	"time"
)

var recordChan chan []byte

const eventsDir = "events"

func openEventFile(t time.Time) (*os.File, error) {
	return os.OpenFile(eventsDir+"/events_"+t.Format("2006-01-02T15")+".json",
		os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
}

// eventWriter appends journal lines to the current hourly file. The open
// function is a field so tests can fail rotation on demand.
type eventWriter struct {
	file *os.File
	hour time.Time
	open func(time.Time) (*os.File, error)
}

// write rotates on the hour boundary, then appends buf. A failed rotation
// drops the event and keeps the writer alive; the previous file stays open
// so rotation is retried on the next event instead of wedging the channel.
func (w *eventWriter) write(buf []byte, now time.Time) {
	if now.Hour() != w.hour.Hour() {
		next, err := w.open(now)
		if err != nil {
			slog.Error("failed to rotate event file, dropping event", "err", err)
			return
		}

		_ = w.file.Close()

		w.file = next
		w.hour = now
	}

	if _, err := w.file.Write(buf); err != nil {
		slog.Error("failed to write event", "err", err)
	}
}

// Init creates the events directory and starts the single writer goroutine.
// Files rotate on the hour boundary.
func Init() error {
	if err := os.Mkdir(eventsDir, 0755); err != nil && !os.IsExist(err) {
		return err
	}

	start := time.Now()

	recordFile, err := openEventFile(start)
	if err != nil {
		return err
	}

	recordChan = make(chan []byte)

	go func() {
		w := &eventWriter{file: recordFile, hour: start, open: openEventFile}

		for buf := range recordChan {
			w.write(buf, time.Now())
		}
	}()

	return nil
}

// formatEvent renders one journal line:
// [torrentID, userID, uploadedDelta, downloadedDelta, rawUploaded, "event", "ip"]
func formatEvent(torrentID, userID uint32, deltaUp, deltaDown int64, rawUp uint64, event, ip string) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 64))

	buf.WriteString("[")
	buf.WriteString(strconv.FormatUint(uint64(torrentID), 10))
	buf.WriteString(",")
	buf.WriteString(strconv.FormatUint(uint64(userID), 10))
	buf.WriteString(",")
	buf.WriteString(strconv.FormatInt(deltaUp, 10))
	buf.WriteString(",")
	buf.WriteString(strconv.FormatInt(deltaDown, 10))
	buf.WriteString(",")
	buf.WriteString(strconv.FormatUint(rawUp, 10))
	buf.WriteString(",\"")
	buf.WriteString(event)
	buf.WriteString("\",\"")
	buf.WriteString(ip)
	buf.WriteString("\"]\n")

	return buf.Bytes()
}

// Record journals one announce. Announces that moved no bytes are skipped.
func Record(torrentID, userID uint32, deltaUp, deltaDown int64, rawUp uint64, event, ip string) {
	if deltaUp == 0 && deltaDown == 0 {
		return
	}

	if recordChan == nil {
		return
	}

	recordChan <- formatEvent(torrentID, userID, deltaUp, deltaDown, rawUp, event, ip)
}
