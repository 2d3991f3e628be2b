// ABOUTME: Minimal query sanitization before full-text dispatch
// ABOUTME: Strips one stray symbol and makes the first word a fuzzy must-match

package jump

import "regexp"

var (
	// Whitespace here matches the JavaScript \s class, Unicode spaces included.
	reStray = regexp.MustCompile(`[^a-zA-Z0-9\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}]`)
	reWord  = regexp.MustCompile(`[a-zA-Z]{2,}`)
)

// Sanitize prepares raw input for the index. It removes only the first
// character that is neither alphanumeric nor whitespace, then rewrites only
// the first run of two or more letters w as "+w~1": required, with one edit
// of tolerance. The rest of the input is passed through untouched.
func Sanitize(input string) string {
	if loc := reStray.FindStringIndex(input); loc != nil {
		input = input[:loc[0]] + input[loc[1]:]
	}
	if loc := reWord.FindStringIndex(input); loc != nil {
		input = input[:loc[0]] + "+" + input[loc[0]:loc[1]] + "~1" + input[loc[1]:]
	}
	return input
}
