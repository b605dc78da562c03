package starlark

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"cellworld.sim/internal/sim/peripheral"
	"cellworld.sim/internal/sim/substrate"
)

type recorder struct {
	substrate.Peripheral
	rng        *rand.Rand
	state      map[int]float64
	reproduced []int
	shared     []int
	heirs      []int
	sent       []substrate.Tag
}

func newRecorder() *recorder {
	return &recorder{rng: rand.New(rand.NewPCG(1, 1)), state: map[int]float64{}}
}

func (r *recorder) Facing() int                   { return 1 }
func (r *recorder) Update() uint64                { return 3 }
func (r *recorder) Rand() *rand.Rand              { return r.rng }
func (r *recorder) ReadState(idx int) float64     { return r.state[idx] }
func (r *recorder) WriteState(idx int, v float64) { r.state[idx] = v }
func (r *recorder) Reproduce(dir, level int, _ float64, _ bool) {
	r.reproduced = append(r.reproduced, dir, level)
}
func (r *recorder) SendResource(dir int, _, _, _ float64) { r.shared = append(r.shared, dir) }
func (r *recorder) SetHeir(dir int, _ uint64)             { r.heirs = append(r.heirs, dir) }
func (r *recorder) SendInterMessage(tag substrate.Tag, _ substrate.Registers) {
	r.sent = append(r.sent, tag)
}

const script = `
def step(cell):
    if cell.read(SLOT.stockpile) > 5:
        cell.reproduce(2, level=1, endowment=1.5)
    cell.write(0, cell.update)
    cell.send(7, [1.0])

def on_message(cell, tag, regs):
    cell.write(1, regs[0] + tag)
`

func TestProcess_StepAndMessageHandlers(t *testing.T) {
	prog, err := Compile("test.star", []byte(script))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	hw := NewHardware(2)
	hw.SetProgram(prog.Clone())
	if !hw.TryLaunchCore(4, 1) {
		t.Fatalf("launch should succeed when on_message is defined")
	}
	hw.SetRegisters(substrate.Registers{0.5})

	rec := newRecorder()
	rec.state[0] = 10
	hw.Process(1, rec)

	if len(rec.reproduced) != 2 || rec.reproduced[0] != 2 || rec.reproduced[1] != 1 {
		t.Fatalf("reproduce args: %v", rec.reproduced)
	}
	if rec.state[0] != 3 {
		t.Fatalf("write of update: %v", rec.state[0])
	}
	if rec.state[1] != 4.5 {
		t.Fatalf("on_message result: %v", rec.state[1])
	}
	if len(rec.sent) != 1 || rec.sent[0] != 7 {
		t.Fatalf("sent: %v", rec.sent)
	}
	if hw.NumBusyCores() != 0 {
		t.Fatalf("cores should retire")
	}
}

func TestCompile_RejectsEmptyScript(t *testing.T) {
	if _, err := Compile("empty.star", []byte("x = 1\n")); err == nil {
		t.Fatalf("expected error for script without handlers")
	}
	if _, err := Compile("bad.star", []byte("def step(:\n")); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestProcess_RuntimeErrorIsContained(t *testing.T) {
	prog, err := Compile("boom.star", []byte("def step(cell):\n    fail('boom')\n"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	hw := NewHardware(1)
	hw.SetProgram(prog)
	hw.Process(2, newRecorder())
}

func TestLoadFile_ShippedGrowerUsesFacingOffsets(t *testing.T) {
	prog, err := LoadFile("../../../../configs/grower.star")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	hw := NewHardware(1)
	hw.SetProgram(prog)

	rec := newRecorder()
	rec.state[peripheral.SlotStockpile] = 10
	rec.state[peripheral.SlotCellAge] = 500
	hw.Process(1, rec)

	if diff := cmp.Diff([]int{0, 0}, rec.reproduced); diff != "" {
		t.Fatalf("reproduce (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0}, rec.shared); diff != "" {
		t.Fatalf("share (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0}, rec.heirs); diff != "" {
		t.Fatalf("heir (-want +got):\n%s", diff)
	}
}
