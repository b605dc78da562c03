// Package viz paints a grid of cell views as colored terminal text.
//
// A Painter decides one cell's color. Painters compose as plain functions:
// wrap one to handle empty slots, pick between two by a predicate, and so on.
package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cellworld.sim/internal/sim/cell"
)

type Painter func(v cell.View) lipgloss.Color

// Empty is the color for slots with no live cell.
const Empty = lipgloss.Color("236")

// Kin colors a cell by its lineage id at level, drawn from the 216-color
// ANSI cube so neighboring ids land on unrelated hues.
func Kin(level int) Painter {
	return func(v cell.View) lipgloss.Color {
		id, ok := v.Channel.ID(level)
		if !ok {
			return Empty
		}
		h := id * 0x9E3779B97F4A7C15
		return lipgloss.Color(fmt.Sprint(16 + (h>>58%36)*6 + h>>40%6))
	}
}

// Balance shades live cells on the grayscale ramp from 0 to hi. Debt is red.
func Balance(hi float64) Painter {
	return func(v cell.View) lipgloss.Color {
		if v.Balance < 0 {
			return lipgloss.Color("160")
		}
		if hi <= 0 {
			return lipgloss.Color("232")
		}
		step := int(min(v.Balance/hi, 1) * 23)
		return lipgloss.Color(fmt.Sprint(232 + step))
	}
}

// Alive fills empty slots with Empty before consulting p.
func Alive(p Painter) Painter {
	return func(v cell.View) lipgloss.Color {
		if !v.Alive {
			return Empty
		}
		return p(v)
	}
}

// When uses a where pred holds and b elsewhere.
func When(pred func(cell.View) bool, a, b Painter) Painter {
	return func(v cell.View) lipgloss.Color {
		if pred(v) {
			return a(v)
		}
		return b(v)
	}
}

// Render draws views row by row, width cells per row, two columns per cell.
func Render(views []cell.View, width int, p Painter) string {
	if width <= 0 {
		return ""
	}
	styles := map[lipgloss.Color]lipgloss.Style{}
	var sb strings.Builder
	for i, v := range views {
		if i > 0 && i%width == 0 {
			sb.WriteByte('\n')
		}
		c := p(v)
		st, ok := styles[c]
		if !ok {
			st = lipgloss.NewStyle().Foreground(c)
			styles[c] = st
		}
		sb.WriteString(st.Render("██"))
	}
	return sb.String()
}

// Header is a one-line caption in the same palette as Render.
func Header(worldID string, tick uint64, live, size int) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Render(worldID)
	body := lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).
		Render(fmt.Sprintf("tick %d  live %d/%d", tick, live, size))
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", body)
}
