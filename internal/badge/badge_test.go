package badge

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/prwire/subscriber/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProducesFixedSizePNG(t *testing.T) {
	r := NewRenderer(&config.BadgeConfig{})

	data, err := r.Render("alice", 15000)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	bounds := img.Bounds()
	assert.Equal(t, Width, bounds.Dx())
	assert.Equal(t, Height, bounds.Dy())
}

func TestRenderHandlesEdgeInputs(t *testing.T) {
	r := NewRenderer(&config.BadgeConfig{})

	for _, tc := range []struct {
		username  string
		followers int
	}{
		{"@alice", 15000},
		{"", 0},
		{"alice", -5},
		{"a_very_long_handle_name", 1234567890},
	} {
		data, err := r.Render(tc.username, tc.followers)
		require.NoError(t, err)
		_, err = png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
	}
}

func TestRenderMissingFont(t *testing.T) {
	r := NewRenderer(&config.BadgeConfig{FontPath: "/nonexistent/font.ttf"})

	_, err := r.Render("alice", 15000)
	assert.Error(t, err)
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1,000"},
		{15000, "15,000"},
		{123456, "123,456"},
		{9999999, "9,999,999"},
		{10000000, "10,000,000"},
		{-42, "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCount(tt.in), "FormatCount(%d)", tt.in)
	}
}
