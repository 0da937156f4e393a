package listing

// Window sizes used by the different layouts.
const (
	WindowNarrow  = 3
	WindowWide    = 5
	WindowDesktop = 7
)

// Window is the set of page buttons to render.
type Window struct {
	Pages   []int
	HasPrev bool
	HasNext bool
}

// PageWindow returns at most size page numbers around current. Near the
// start the window is anchored at page 1; further in it slides so current
// sits at index size/2. It is not re-anchored at the tail: pages past total
// are dropped, so the last windows can be shorter than size.
func PageWindow(current, total, size int) Window {
	if size < 1 {
		size = 1
	}
	w := Window{
		HasPrev: current > 1,
		HasNext: current < total,
	}

	if total <= size {
		w.Pages = pageRange(1, total)
		return w
	}

	half := size / 2
	if current <= half+1 {
		w.Pages = pageRange(1, size)
		return w
	}

	first := current - half
	last := first + size - 1
	if last > total {
		last = total
	}
	w.Pages = pageRange(first, last)
	return w
}

func pageRange(first, last int) []int {
	if last < first {
		return []int{}
	}
	out := make([]int, 0, last-first+1)
	for p := first; p <= last; p++ {
		out = append(out, p)
	}
	return out
}
