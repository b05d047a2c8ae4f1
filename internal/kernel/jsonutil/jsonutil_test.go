package jsonutil_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedaas-code/neoagent/internal/kernel/jsonutil"
)

func TestStripCodeFenceRemovesJSONFence(t *testing.T) {
	raw := "```json\n{\"a\":1}\n```"
	require.Equal(t, `{"a":1}`, jsonutil.StripCodeFence(raw))
}

func TestStripCodeFenceLeavesPlainJSONUnchanged(t *testing.T) {
	raw := `{"a":1}`
	require.Equal(t, raw, jsonutil.StripCodeFence(raw))
}

func TestStrictUnmarshalDecodesFencedObject(t *testing.T) {
	var out struct {
		HasScheduleIntent bool `json:"has_schedule_intent"`
	}
	err := jsonutil.StrictUnmarshal("```json\n{\"has_schedule_intent\": true}\n```", &out)
	require.NoError(t, err)
	require.True(t, out.HasScheduleIntent)
}

func TestStrictUnmarshalFailsOnGarbage(t *testing.T) {
	var out map[string]any
	err := jsonutil.StrictUnmarshal("not json at all", &out)
	require.Error(t, err)
}
