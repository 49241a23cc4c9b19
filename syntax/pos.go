package syntax

// Pos is a position within a shell source file, encoded as the 0-based
// byte offset into the source plus one. A zero Pos means "no position".
type Pos uint32

// Position is the human-readable form of a Pos: line and column are
// 1-based, Offset is 0-based.
type Position struct {
	Offset uint32
	Line   uint32
	Column uint32
}

func (p Pos) offset() uint32 {
	if p == 0 {
		return 0
	}
	return uint32(p) - 1
}

func posAdd(p Pos, n int) Pos {
	if p == 0 {
		return 0
	}
	return Pos(int(p) + n)
}

func posAddStr(p Pos, s string) Pos { return posAdd(p, len(s)) }

func posMax(p1, p2 Pos) Pos {
	if p2 > p1 {
		return p2
	}
	return p1
}

// lineOffsets maps a 0-based byte offset to a 1-based (line, column) pair
// given the accumulated offsets of the start of each line.
func lineOffsets(lines []uint32, offset uint32) (line, column uint32) {
	i, j := 0, len(lines)
	for i < j {
		h := i + (j-i)/2
		if lines[h] <= offset {
			i = h + 1
		} else {
			j = h
		}
	}
	i--
	if i < 0 {
		i = 0
	}
	return uint32(i + 1), offset - lines[i] + 1
}
