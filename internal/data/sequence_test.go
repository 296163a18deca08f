package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSerial(t *testing.T) {
	assert.Equal(t, "MK202603001", formatSerial("MK202603", 1, 3))
	assert.Equal(t, "MK202603012", formatSerial("MK202603", 12, 3))
	assert.Equal(t, "RC202603150001", formatSerial("RC20260315", 1, 4))
	assert.Equal(t, "CS202603150042", formatSerial("CS20260315", 42, 4))
	// 序号超出位宽时不截断
	assert.Equal(t, "MK2026031000", formatSerial("MK202603", 1000, 3))
}

func TestParseSerialSeq(t *testing.T) {
	seq, err := parseSerialSeq("MK202603007", "MK202603", 3)
	require.NoError(t, err)
	assert.Equal(t, 7, seq)

	seq, err = parseSerialSeq("RC202603150123", "RC20260315", 4)
	require.NoError(t, err)
	assert.Equal(t, 123, seq)

	_, err = parseSerialSeq("MK20260307", "MK202603", 3)
	assert.Error(t, err)

	_, err = parseSerialSeq("MK202603abc", "MK202603", 3)
	assert.Error(t, err)
}

func TestSerialRoundTrip(t *testing.T) {
	prefix := "CS20260315"
	for seq := 1; seq <= 3; seq++ {
		serial := formatSerial(prefix, seq, 4)
		parsed, err := parseSerialSeq(serial, prefix, 4)
		require.NoError(t, err)
		assert.Equal(t, seq, parsed)
	}
}
