package viz

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"cellworld.sim/internal/sim/cell"
	"cellworld.sim/internal/sim/channel"
)

func live(balance float64, ids ...uint64) cell.View {
	return cell.View{
		Alive:   true,
		Balance: balance,
		Channel: channel.Snapshot{Present: true, IDs: ids},
	}
}

func TestKin_SameIDSameColor(t *testing.T) {
	p := Kin(0)
	a, b, c := p(live(1, 7)), p(live(3, 7)), p(live(1, 8))
	if a != b {
		t.Fatalf("same id painted %s and %s", a, b)
	}
	if a == c {
		t.Fatalf("ids 7 and 8 share color %s", a)
	}
	if got := p(cell.View{}); got != Empty {
		t.Fatalf("empty slot = %s", got)
	}
	if got := Kin(3)(live(1, 7)); got != Empty {
		t.Fatalf("missing level = %s", got)
	}
}

func TestBalance_Ramp(t *testing.T) {
	p := Balance(10)
	cases := map[float64]lipgloss.Color{
		-1: "160",
		0:  "232",
		5:  "243",
		10: "255",
		50: "255",
	}
	for bal, want := range cases {
		if got := p(live(bal, 1)); got != want {
			t.Fatalf("balance %v: got %s want %s", bal, got, want)
		}
	}
}

func TestCompose(t *testing.T) {
	rich := func(v cell.View) bool { return v.Balance > 5 }
	gold := func(cell.View) lipgloss.Color { return "220" }
	p := Alive(When(rich, gold, Kin(0)))

	if got := p(cell.View{Balance: 9}); got != Empty {
		t.Fatalf("dead rich slot = %s", got)
	}
	if got := p(live(9, 1)); got != "220" {
		t.Fatalf("rich = %s", got)
	}
	if got, want := p(live(1, 1)), Kin(0)(live(1, 1)); got != want {
		t.Fatalf("poor = %s, want %s", got, want)
	}
}

func TestRender_Shape(t *testing.T) {
	views := []cell.View{live(1, 1), {}, live(2, 2), {}, {}, live(3, 3)}
	out := Render(views, 3, Alive(Kin(0)))
	rows := strings.Split(out, "\n")
	if len(rows) != 2 {
		t.Fatalf("rows = %d:\n%s", len(rows), out)
	}
	for i, r := range rows {
		if n := strings.Count(r, "██"); n != 3 {
			t.Fatalf("row %d has %d cells", i, n)
		}
	}
	if Render(views, 0, Kin(0)) != "" {
		t.Fatalf("zero width should render nothing")
	}
}
