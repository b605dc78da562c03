package family

import "slices"

// NoPos marks an absent parent.
const NoPos = -1

// Family records a living cell's place in its lineage.
type Family struct {
	ParentPos  int
	ChildPos   []int
	BirthTick  uint64
	CellGen    uint64
	PrevChan   uint64
	BirthLevel int
}

func NewFamily() *Family { return &Family{ParentPos: NoPos, BirthLevel: -1} }

// Set records a birth.
func (f *Family) Set(parentPos int, birthTick, cellGen, prevChan uint64, level int) {
	f.ParentPos = parentPos
	f.ChildPos = f.ChildPos[:0]
	f.BirthTick = birthTick
	f.CellGen = cellGen
	f.PrevChan = prevChan
	f.BirthLevel = level
}

func (f *Family) Clear() {
	f.ParentPos = NoPos
	f.ChildPos = f.ChildPos[:0]
	f.BirthTick, f.CellGen, f.PrevChan = 0, 0, 0
	f.BirthLevel = -1
}

// AddChildPos remembers a successful birth into pos.
func (f *Family) AddChildPos(pos int) {
	if !slices.Contains(f.ChildPos, pos) {
		f.ChildPos = append(f.ChildPos, pos)
	}
}

func (f *Family) IsParentPos(pos int) bool { return f.ParentPos != NoPos && f.ParentPos == pos }

func (f *Family) HasChildPos(pos int) bool { return slices.Contains(f.ChildPos, pos) }

// View is the part of a Family neighbors may read.
type View struct {
	ParentPos int
	ChildPos  []int
	BirthTick uint64
	PrevChan  uint64
}

func (f *Family) View() View {
	return View{
		ParentPos: f.ParentPos,
		ChildPos:  slices.Clone(f.ChildPos),
		BirthTick: f.BirthTick,
		PrevChan:  f.PrevChan,
	}
}

func (v View) IsParentPos(pos int) bool { return v.ParentPos != NoPos && v.ParentPos == pos }

func (v View) HasChildPos(pos int) bool { return slices.Contains(v.ChildPos, pos) }

// IsCellChild: the neighbor at neighPos is my child and names me as parent.
func IsCellChild(mine *Family, myPos int, neigh View, neighPos int) bool {
	return mine.HasChildPos(neighPos) && neigh.IsParentPos(myPos)
}

// IsCellParent: the neighbor at neighPos is my parent and lists me as a child.
func IsCellParent(mine *Family, myPos int, neigh View, neighPos int) bool {
	return mine.IsParentPos(neighPos) && neigh.HasChildPos(myPos)
}

// IsPropaguleChild: the neighbor was budded off from my top-level lineage.
func IsPropaguleChild(myTopID uint64, neigh View) bool {
	return neigh.PrevChan != 0 && neigh.PrevChan == myTopID
}

// IsPropaguleParent: I was budded off from the neighbor's top-level lineage.
func IsPropaguleParent(mine *Family, neighTopID uint64) bool {
	return mine.PrevChan != 0 && mine.PrevChan == neighTopID
}
