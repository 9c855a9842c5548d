package internal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatText, &buf)

	require.NoError(t, f.PrintSuccess("task created"))
	require.NoError(t, f.PrintError("task not found"))
	require.NoError(t, f.PrintTable([]string{"tin", "name"}, [][]string{{"1000123456", "Kampala Traders"}}))
	require.NoError(t, f.PrintResult("rendered text", map[string]int{"ignored": 1}))

	out := buf.String()
	assert.Contains(t, out, "✓ task created")
	assert.Contains(t, out, "✗ task not found")
	assert.Contains(t, out, "TIN         NAME")
	assert.Contains(t, out, "1000123456  Kampala Traders")
	assert.Contains(t, out, "rendered text\n")
	assert.NotContains(t, out, "ignored")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatJSON, &buf)

	require.NoError(t, f.PrintTable([]string{"tin", "name"}, [][]string{{"1000123456"}}))

	var got struct {
		Headers []string            `json:"headers"`
		Data    []map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []string{"tin", "name"}, got.Headers)
	assert.Equal(t, "", got.Data[0]["name"])

	buf.Reset()
	require.NoError(t, f.PrintResult("ignored", map[string]int{"count": 3}))
	assert.JSONEq(t, `{"count":3}`, buf.String())
}

func TestNewFormatter_DefaultsToText(t *testing.T) {
	_, ok := NewFormatter("yaml", &bytes.Buffer{}).(*TextFormatter)
	assert.True(t, ok)
}
