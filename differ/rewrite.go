package differ

import (
	"regexp"
	"strings"
)

// Rule is one ordered (pattern, replacement) pair applied to a line of
// diff's output. Patterns are anchored to a specific prefix or
// substring that diff is known to emit a synthetic path in, not to the
// whole line, so whatever follows (a timestamp, "differ"/"are
// identical") passes through untouched.
type Rule struct {
	pattern *regexp.Regexp
	replace string
}

// Apply returns line with the rule's pattern replaced by its
// replacement, or line unchanged if the pattern doesn't match.
func (r Rule) Apply(line string) string {
	return r.pattern.ReplaceAllString(line, r.replace)
}

// escapeReplacement quotes literal '$' so regexp.ReplaceAllString never
// interprets a user-supplied filename byte as a capture reference.
func escapeReplacement(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

// newPrefixRule builds a rule matching prefix immediately followed by
// synth at the start of a line, rewriting just that span to prefix+user.
// Used for unified mode's "--- " and "+++ " headers.
func newPrefixRule(prefix, synth, user string) Rule {
	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + regexp.QuoteMeta(synth))
	return Rule{
		pattern: pattern,
		replace: escapeReplacement(prefix + user),
	}
}

// newSubstringRule builds a rule matching prefix+synth anywhere in a
// line. Used for brief mode's "Files SYNTH and SYNTH ..." line, where
// the second filename isn't at the start of the line. This shares the
// same unanchored-substring weakness as the reference it's modeled on:
// operand content that happens to contain "<prefix><synth>" elsewhere in
// the line would be mangled too.
func newSubstringRule(prefix, synth, user string) Rule {
	pattern := regexp.MustCompile(regexp.QuoteMeta(prefix) + regexp.QuoteMeta(synth))
	return Rule{
		pattern: pattern,
		replace: escapeReplacement(prefix + user),
	}
}
