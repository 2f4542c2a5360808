package texture

import (
	"fmt"
	"sort"
)

// cluster is a run of palette positions and the colors parked in them.
// Blocks alias clusters rather than owning positions outright, which is
// how equal colors end up shared between blocks.
type cluster struct {
	colors map[Color]struct{}
	slots  map[int]struct{}
}

func (cl *cluster) free() int { return len(cl.slots) - len(cl.colors) }

// colorMap tracks which cluster owns each palette position while the
// compressed-texture palette is being allocated. It starts as one big
// free cluster spanning four positions per block.
type colorMap struct {
	at []*cluster
}

func newColorMap(positions int) *colorMap {
	free := &cluster{
		colors: make(map[Color]struct{}),
		slots:  make(map[int]struct{}, positions),
	}
	cm := &colorMap{at: make([]*cluster, positions)}
	for i := range cm.at {
		free.slots[i] = struct{}{}
		cm.at[i] = free
	}
	return cm
}

// window is one partition element: a cluster and its positions inside
// the probed range, ascending.
type window struct {
	c  *cluster
	in []int
}

// partition splits [base, base+need) into runs owned by one cluster
// each. Cluster positions are assumed contiguous within the range.
func (cm *colorMap) partition(base, need int) []window {
	var parts []window
	for p := base; p < base+need; {
		cl := cm.at[p]
		var in []int
		for q := range cl.slots {
			if q >= base && q < base+need {
				in = append(in, q)
			}
		}
		if len(in) == 0 {
			return nil
		}
		sort.Ints(in)
		parts = append(parts, window{cl, in})
		p = in[len(in)-1] + 1
	}
	return parts
}

// place finds the first even base position whose window can absorb the
// block's colors, reusing already-parked equal colors where possible.
func (cm *colorMap) place(colors []Color, need int) (int, error) {
	for base := 0; base+need <= len(cm.at); base += 2 {
		if cm.tryPlace(colors, need, base) {
			return base, nil
		}
	}
	return 0, fmt.Errorf("texture: no window for %d colors over %d positions: %w",
		len(colors), need, ErrPaletteOverflow)
}

// tryPlace attempts to commit the given colors into the window at base.
// Every assignment of the colors (padded with empty slots) onto the
// window's positions is tried until one fits each run's free capacity.
// On success the touched runs are split: the in-range part becomes a new
// cluster holding the incoming colors, and any colors the shrunk old run
// can no longer hold are dragged along into it.
func (cm *colorMap) tryPlace(colors []Color, need int, base int) bool {
	parts := cm.partition(base, need)
	if parts == nil {
		return false
	}
	for _, perm := range permutations(need) {
		split := make([]map[Color]struct{}, len(parts))
		pos := 0
		feasible := true
		for pi, part := range parts {
			set := make(map[Color]struct{})
			for i := range part.in {
				if k := perm[pos+i]; k < len(colors) {
					set[colors[k]] = struct{}{}
				}
			}
			pos += len(part.in)
			split[pi] = set
			fresh := 0
			for c := range set {
				if _, have := part.c.colors[c]; !have {
					fresh++
				}
			}
			if fresh > part.c.free() {
				feasible = false
				break
			}
		}
		if !feasible {
			continue
		}
		for pi, part := range parts {
			old := part.c
			next := &cluster{colors: split[pi], slots: make(map[int]struct{}, len(part.in))}
			for _, q := range part.in {
				next.slots[q] = struct{}{}
				delete(old.slots, q)
			}
			for c := range next.colors {
				delete(old.colors, c)
			}
			if excess := len(old.colors) - len(old.slots); excess > 0 {
				for _, c := range smallestColors(old.colors, excess) {
					delete(old.colors, c)
					next.colors[c] = struct{}{}
				}
			}
			for _, q := range part.in {
				cm.at[q] = next
			}
		}
		return true
	}
	return false
}

// compact pins one remaining color per position and materializes the
// final palette. Interior unused positions become opaque black, trailing
// unused positions are dropped.
func (cm *colorMap) compact() ([]Color, error) {
	out := make([]Color, len(cm.at))
	present := make([]bool, len(cm.at))
	for i := range cm.at {
		cl := cm.at[i]
		if len(cl.colors) == 0 {
			continue
		}
		c := smallestColors(cl.colors, 1)[0]
		if !cm.tryPlace([]Color{c}, 1, i) {
			return nil, fmt.Errorf("texture: cannot pin color %v at position %d: %w", c, i, ErrPaletteOverflow)
		}
		out[i] = c
		present[i] = true
	}
	end := len(out)
	for end > 0 && !present[end-1] {
		end--
	}
	out = out[:end]
	for i := range out {
		if !present[i] {
			out[i] = Color{0, 0, 0, 31}
		}
	}
	return out, nil
}
