package bencode

import (
	"net/url"
	"strings"
)

// AnnounceURLWithPasskey embeds a user's passkey into a tracker announce URL.
func AnnounceURLWithPasskey(announceURL, passkey string) string {
	sep := "?"
	if strings.Contains(announceURL, "?") {
		sep = "&"
	}

	return announceURL + sep + "passkey=" + url.QueryEscape(passkey)
}

// RewriteAnnounce decodes .torrent metadata, points its top-level announce
// key at announceURL and re-encodes it. When an announce-list is present, a
// new tier holding announceURL is prepended and the original tiers are kept.
// Re-encoding emits dictionary keys in sorted order, so the info dictionary
// bytes (and therefore the info hash) survive the round trip unchanged.
func RewriteAnnounce(metainfo []byte, announceURL string) ([]byte, error) {
	dict, err := DecodeDict(metainfo)
	if err != nil {
		return nil, err
	}

	dict["announce"] = announceURL

	if raw, exists := dict["announce-list"]; exists {
		tiers, ok := raw.(List)
		if !ok {
			return nil, errMalformedf("announce-list is not a list")
		}

		dict["announce-list"] = append(List{List{announceURL}}, tiers...)
	}

	return EncodeBytes(dict)
}
