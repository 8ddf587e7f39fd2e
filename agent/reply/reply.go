// Package reply isolates the user-facing portion of a model turn. The model
// is instructed to wrap conversational output in <reply></reply> markers so
// internal reasoning never reaches the terminal.
package reply

import "regexp"

const (
	OpenMarker  = "<reply>"
	CloseMarker = "</reply>"
)

// Non-greedy so only the first enclosed region is taken even when the text
// contains several marker pairs.
var replyPattern = regexp.MustCompile(`(?s)<reply>(.*?)</reply>`)

// Extract returns the first marker-delimited region of text. The second
// return is false when no marker pair is present; that is a degraded turn,
// not an error.
func Extract(text string) (string, bool) {
	match := replyPattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[1], true
}
