package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixRuleRewritesHeaderLine(t *testing.T) {
	rule := newPrefixRule("--- ", "/dev/fd/3", "host:remote.txt")
	assert.Equal(t,
		"--- host:remote.txt\t2024-01-01 00:00:00",
		rule.Apply("--- /dev/fd/3\t2024-01-01 00:00:00"))
}

func TestPrefixRuleLeavesOtherLinesAlone(t *testing.T) {
	rule := newPrefixRule("+++ ", "/dev/fd/4", "host:remote.txt")
	line := "some unrelated diff output"
	assert.Equal(t, line, rule.Apply(line))
}

func TestSubstringRuleRewritesSecondOperand(t *testing.T) {
	rule := newSubstringRule(" and ", "/dev/fd/4", "host:b.txt")
	assert.Equal(t,
		"Files a.txt and host:b.txt differ",
		rule.Apply("Files a.txt and /dev/fd/4 differ"))
}

func TestRuleEscapesDollarInReplacement(t *testing.T) {
	rule := newPrefixRule("--- ", "/dev/fd/3", "host:$weird$.txt")
	assert.Equal(t, "--- host:$weird$.txt", rule.Apply("--- /dev/fd/3"))
}

func TestRulesAppliedInRegistrationOrder(t *testing.T) {
	c := &Comparison{opts: Options{Mode: ModeUnified}}
	c.addRule(1, "/dev/fd/3", "left.txt")
	c.addRule(2, "/dev/fd/4", "right.txt")

	line1 := "--- /dev/fd/3\tsometime"
	line2 := "+++ /dev/fd/4\tsometime"
	for _, rule := range c.rules {
		line1 = rule.Apply(line1)
		line2 = rule.Apply(line2)
	}
	assert.Equal(t, "--- left.txt\tsometime", line1)
	assert.Equal(t, "+++ right.txt\tsometime", line2)
}

func TestAddRuleNoopWhenSynthEqualsUser(t *testing.T) {
	c := &Comparison{opts: Options{Mode: ModeUnified}}
	c.addRule(1, "same.txt", "same.txt")
	assert.Empty(t, c.rules)
}

func TestAddRuleSideBySideNeverRegisters(t *testing.T) {
	c := &Comparison{opts: Options{Mode: ModeSideBySide}}
	c.addRule(1, "/dev/fd/3", "left.txt")
	c.addRule(2, "/dev/fd/4", "right.txt")
	assert.Empty(t, c.rules)
}

func TestAddRuleNormalModeOnlyWithReportIdentical(t *testing.T) {
	plain := &Comparison{opts: Options{Mode: ModeNormal}}
	plain.addRule(1, "/dev/fd/3", "left.txt")
	assert.Empty(t, plain.rules)

	reporting := &Comparison{opts: Options{Mode: ModeNormal, ReportIdentical: true}}
	reporting.addRule(1, "/dev/fd/3", "left.txt")
	assert.Len(t, reporting.rules, 1)
}
