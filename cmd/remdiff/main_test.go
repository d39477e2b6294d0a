package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewxrjk/remdiff/differ"
)

func parseFor(t *testing.T, argv []string) *options {
	t.Helper()
	var opts options
	parser := newParser(&opts)
	_, err := parser.ParseArgs(argv)
	require.NoError(t, err)
	return &opts
}

func TestModeLastFlagWins(t *testing.T) {
	argv := []string{"-q", "-u", "a", "b"}
	opts := parseFor(t, argv)
	compOpts, err := buildOptions(argv, opts)
	require.NoError(t, err)
	assert.Equal(t, differ.ModeUnified, compOpts.Mode)
}

func TestModeUnifiedWithContextCount(t *testing.T) {
	argv := []string{"-U3", "a", "b"}
	opts := parseFor(t, argv)
	compOpts, err := buildOptions(argv, opts)
	require.NoError(t, err)
	assert.Equal(t, differ.ModeUnified, compOpts.Mode)
	require.NotNil(t, compOpts.Context)
	assert.Equal(t, 3, *compOpts.Context)
}

func TestModeSideBySideOverridesEarlierBrief(t *testing.T) {
	argv := []string{"--brief", "--side-by-side", "a", "b"}
	opts := parseFor(t, argv)
	compOpts, err := buildOptions(argv, opts)
	require.NoError(t, err)
	assert.Equal(t, differ.ModeSideBySide, compOpts.Mode)
}

func TestModeDefaultsToUnified(t *testing.T) {
	argv := []string{"a", "b"}
	opts := parseFor(t, argv)
	compOpts, err := buildOptions(argv, opts)
	require.NoError(t, err)
	assert.Equal(t, differ.ModeUnified, compOpts.Mode)
}

func TestNewFileAffectsBothPositions(t *testing.T) {
	argv := []string{"-N", "a", "b"}
	opts := parseFor(t, argv)
	compOpts, err := buildOptions(argv, opts)
	require.NoError(t, err)
	assert.True(t, compOpts.NewAsEmpty1)
	assert.True(t, compOpts.NewAsEmpty2)
}

func TestPassthruArgsRoundTrip(t *testing.T) {
	argv := []string{"--ignore-case", "--width=80", "a", "b"}
	opts := parseFor(t, argv)
	compOpts, err := buildOptions(argv, opts)
	require.NoError(t, err)
	assert.Contains(t, compOpts.ExtraArgs, "--ignore-case")
	assert.Contains(t, compOpts.ExtraArgs, "--width=80")
}
