package rfbenc

// palette is an insertion-ordered set of distinct pixel words, as used
// by ZRLE (per-tile palette subencodings), Tight (mono/indexed filters)
// and TightPng (solid-fill detection). RRE/CoRRE and Hextile pick their
// background with modalWord instead.
type palette struct {
	order []uint32
	index map[uint32]int
}

func newPalette() *palette {
	return &palette{index: make(map[uint32]int)}
}

// add inserts word if not already present, returning its index. ok is
// false once the palette would grow past cap.
func (p *palette) add(word uint32, cap int) (idx int, ok bool) {
	if i, present := p.index[word]; present {
		return i, true
	}
	if len(p.order) >= cap {
		return 0, false
	}
	p.order = append(p.order, word)
	p.index[word] = len(p.order) - 1
	return len(p.order) - 1, true
}

func (p *palette) len() int { return len(p.order) }

// buildPalette scans pixel words in order, capping distinct entries at
// capSize. ok is false if the region has more than capSize distinct
// colors (the caller then falls back to a non-palette subencoding).
func buildPalette(words []uint32, capSize int) (*palette, bool) {
	p := newPalette()
	for _, w := range words {
		if _, ok := p.add(w, capSize); !ok {
			return p, false
		}
	}
	return p, true
}

// modalWord returns the most frequently occurring pixel word, used as
// the RRE/CoRRE background color.
func modalWord(words []uint32) uint32 {
	counts := make(map[uint32]int, 16)
	order := make([]uint32, 0, 16)
	for _, w := range words {
		if _, seen := counts[w]; !seen {
			order = append(order, w)
		}
		counts[w]++
	}
	best := order[0]
	bestCount := counts[best]
	for _, w := range order[1:] {
		if counts[w] > bestCount {
			best = w
			bestCount = counts[w]
		}
	}
	return best
}
