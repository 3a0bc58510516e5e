// Package match decides whether captured output satisfies a configured
// expectation.
package match

import "strings"

// Wildcard is the expected-output sentinel that matches any content,
// including empty.
const Wildcard = "*"

// Stream compares captured stream content against an expected pattern.
// A nil pattern means the stream is not checked and always matches.
// Literal patterns are compared after normalizing line endings; a
// difference limited to a single trailing newline is tolerated, any
// other difference is a mismatch.
func Stream(expected *string, actual []byte) bool {
	if expected == nil {
		return true
	}
	if *expected == Wildcard {
		return true
	}
	want := normalize(*expected)
	got := normalize(string(actual))
	if want == got {
		return true
	}
	return strings.TrimSuffix(want, "\n") == strings.TrimSuffix(got, "\n")
}

// normalize rewrites CRLF and bare CR line endings to LF so that
// expectations written on any platform compare equal.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
