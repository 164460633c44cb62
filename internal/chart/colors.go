package chart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Colors configures the widget palette. Empty fields take the defaults.
type Colors struct {
	Background string
	Line       string
	Text       string
	AreaTop    string
	AreaBottom string
	Up         string
	Down       string
	Grid       string
}

// DefaultColors is the palette used for unset fields.
var DefaultColors = Colors{
	Background: "white",
	Line:       "#2962FF",
	Text:       "black",
	AreaTop:    "#2962FF",
	AreaBottom: "rgba(41, 98, 255, 0.28)",
	Up:         "#26a69a",
	Down:       "#ef5350",
	Grid:       "#f0f3fa",
}

func (c Colors) withDefaults() Colors {
	d := DefaultColors
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	return Colors{
		Background: pick(c.Background, d.Background),
		Line:       pick(c.Line, d.Line),
		Text:       pick(c.Text, d.Text),
		AreaTop:    pick(c.AreaTop, d.AreaTop),
		AreaBottom: pick(c.AreaBottom, d.AreaBottom),
		Up:         pick(c.Up, d.Up),
		Down:       pick(c.Down, d.Down),
		Grid:       pick(c.Grid, d.Grid),
	}
}

// Validate reports the first color that cannot be parsed.
func (c Colors) Validate() error {
	_, err := c.resolve()
	return err
}

// palette is Colors resolved to drawing colors.
type palette struct {
	background, line, text, areaTop, areaBottom, up, down, grid drawing.Color
}

func (c Colors) resolve() (palette, error) {
	c = c.withDefaults()
	var p palette
	fields := []struct {
		name string
		in   string
		out  *drawing.Color
	}{
		{"background", c.Background, &p.background},
		{"line", c.Line, &p.line},
		{"text", c.Text, &p.text},
		{"area top", c.AreaTop, &p.areaTop},
		{"area bottom", c.AreaBottom, &p.areaBottom},
		{"up", c.Up, &p.up},
		{"down", c.Down, &p.down},
		{"grid", c.Grid, &p.grid},
	}
	for _, f := range fields {
		col, err := parseColor(f.in)
		if err != nil {
			return palette{}, fmt.Errorf("%s color: %w", f.name, err)
		}
		*f.out = col
	}
	return p, nil
}

var namedColors = map[string]drawing.Color{
	"white":       drawing.ColorWhite,
	"black":       drawing.ColorBlack,
	"transparent": drawing.ColorTransparent,
}

// parseColor accepts named colors, #rgb, #rrggbb and rgb()/rgba() notation.
func parseColor(s string) (drawing.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) != 3 && len(hex) != 6 {
			return drawing.Color{}, fmt.Errorf("invalid hex color %q", s)
		}
		if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
			return drawing.Color{}, fmt.Errorf("invalid hex color %q", s)
		}
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		return drawing.ColorFromHex(hex), nil
	}
	if strings.HasPrefix(s, "rgb") {
		open, end := strings.Index(s, "("), strings.LastIndex(s, ")")
		if open < 0 || end < open {
			return drawing.Color{}, fmt.Errorf("invalid color %q", s)
		}
		parts := strings.Split(s[open+1:end], ",")
		if len(parts) != 3 && len(parts) != 4 {
			return drawing.Color{}, fmt.Errorf("invalid color %q", s)
		}
		var rgb [3]uint8
		for i := 0; i < 3; i++ {
			v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
			if err != nil || v < 0 || v > 255 {
				return drawing.Color{}, fmt.Errorf("invalid color %q", s)
			}
			rgb[i] = uint8(v)
		}
		alpha := uint8(255)
		if len(parts) == 4 {
			a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
			if err != nil || a < 0 || a > 1 {
				return drawing.Color{}, fmt.Errorf("invalid color %q", s)
			}
			alpha = uint8(a*255 + 0.5)
		}
		return drawing.Color{R: rgb[0], G: rgb[1], B: rgb[2], A: alpha}, nil
	}
	return drawing.Color{}, fmt.Errorf("unsupported color %q", s)
}
