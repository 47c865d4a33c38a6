package artifact

import (
	"regexp"
	"strconv"
	"strings"
)

var unsafeSegment = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeSegment makes s safe as one path segment.
func SanitizeSegment(s string) string {
	out := unsafeSegment.ReplaceAllString(strings.TrimSpace(s), "-")
	out = strings.Trim(out, "-.")
	if out == "" {
		return "item"
	}
	return out
}

// BlobKey is the storage key for an upload of name@version by ownerID.
func BlobKey(kind Kind, ownerID uint, name, version string) string {
	return kind.Table() + "/" + strconv.FormatUint(uint64(ownerID), 10) + "/" +
		SanitizeSegment(name) + "/" + SanitizeSegment(version) + ".zip"
}

// DownloadFilename is the attachment name offered to clients.
func DownloadFilename(name, version string) string {
	return SanitizeSegment(name) + "-" + SanitizeSegment(version) + ".zip"
}
