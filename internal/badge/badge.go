// Package badge renders the shareable verification image.
package badge

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fogleman/gg"
	"github.com/prwire/subscriber/internal/config"
)

// The share image uses the fixed Open Graph card size.
const (
	Width  = 1200
	Height = 630
)

// Renderer draws verification badge images.
type Renderer struct {
	threshold int
	fontPath  string
}

// NewRenderer creates a Renderer. When cfg.FontPath is set, that TrueType
// font is used for all text; otherwise the built-in bitmap face is used.
func NewRenderer(cfg *config.BadgeConfig) *Renderer {
	return &Renderer{
		threshold: cfg.Threshold(),
		fontPath:  cfg.FontPath,
	}
}

// Render produces a 1200×630 PNG for the given handle and follower count.
func (r *Renderer) Render(username string, followers int) ([]byte, error) {
	dc := gg.NewContext(Width, Height)

	// background
	grad := gg.NewLinearGradient(0, 0, Width, Height)
	grad.AddColorStop(0, parseHex("#0F172A"))
	grad.AddColorStop(1, parseHex("#1E293B"))
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, Width, Height)
	dc.Fill()

	// card
	const margin = 80.0
	dc.SetRGBA(0.12, 0.16, 0.23, 0.85)
	dc.DrawRoundedRectangle(margin, margin, Width-2*margin, Height-2*margin, 24)
	dc.Fill()
	dc.SetRGBA(1, 1, 1, 0.1)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(margin, margin, Width-2*margin, Height-2*margin, 24)
	dc.Stroke()

	if err := r.setFace(dc, 28); err != nil {
		return nil, err
	}
	dc.SetRGB255(160, 174, 192)
	dc.DrawStringAnchored("Verified by PRWIRE", Width/2, margin+60, 0.5, 0.5)

	if err := r.setFace(dc, 56); err != nil {
		return nil, err
	}
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored("@"+strings.TrimPrefix(username, "@"), Width/2, Height/2-70, 0.5, 0.5)

	if err := r.setFace(dc, 96); err != nil {
		return nil, err
	}
	dc.SetRGB255(59, 130, 246)
	dc.DrawStringAnchored(FormatCount(followers), Width/2, Height/2+30, 0.5, 0.5)

	if err := r.setFace(dc, 32); err != nil {
		return nil, err
	}
	dc.SetRGB255(160, 174, 192)
	label := "followers on X"
	if followers >= r.threshold {
		label = "verified followers on X"
	}
	dc.DrawStringAnchored(label, Width/2, Height/2+110, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode badge png: %w", err)
	}
	return buf.Bytes(), nil
}

// setFace loads the configured font at the given size, or keeps the default
// bitmap face when no font is configured.
func (r *Renderer) setFace(dc *gg.Context, size float64) error {
	if r.fontPath == "" {
		return nil
	}
	if err := dc.LoadFontFace(r.fontPath, size); err != nil {
		return fmt.Errorf("load badge font %s: %w", r.fontPath, err)
	}
	return nil
}

// FormatCount renders a follower count with thousands separators.
func FormatCount(n int) string {
	if n < 0 {
		n = 0
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// parseHex converts a #RRGGBB string into normalized color components. It is
// only used with compile-time constants, so parse failures fall back to black.
func parseHex(hex string) colorRGB {
	var r, g, b int
	fmt.Sscanf(strings.TrimPrefix(hex, "#"), "%02x%02x%02x", &r, &g, &b)
	return colorRGB{float64(r) / 255, float64(g) / 255, float64(b) / 255}
}

type colorRGB struct {
	r, g, b float64
}

func (c colorRGB) RGBA() (uint32, uint32, uint32, uint32) {
	return uint32(c.r * 0xffff), uint32(c.g * 0xffff), uint32(c.b * 0xffff), 0xffff
}
