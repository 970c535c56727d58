package bencode

import (
	"bytes"
	"time"
)

// WriteFailure writes a tracker failure dictionary without building a value
// tree, so the error path stays allocation free. A positive interval is
// included as both interval and min interval, in seconds.
func WriteFailure(buf *bytes.Buffer, reason string, interval time.Duration) {
	if interval < 0 {
		panic("bencode: negative interval")
	}

	buf.WriteByte('d')

	writeString(buf, "failure reason")
	writeString(buf, reason)

	if interval > 0 {
		writeString(buf, "interval")
		writeNumber(buf, int64(interval/time.Second))

		writeString(buf, "min interval")
		writeNumber(buf, int64(interval/time.Second))
	}

	buf.WriteByte('e')
}
