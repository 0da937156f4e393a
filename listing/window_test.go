package listing

import (
	"reflect"
	"testing"
)

func TestPageWindow(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		size     int
		want     []int
		wantPrev bool
		wantNext bool
	}{
		{"no pages", 1, 0, 5, []int{}, false, false},
		{"single page", 1, 1, 5, []int{1}, false, false},
		{"fits exactly", 3, 5, 5, []int{1, 2, 3, 4, 5}, true, true},
		{"fewer than window", 2, 3, 5, []int{1, 2, 3}, true, true},
		{"anchored at start", 1, 10, 5, []int{1, 2, 3, 4, 5}, false, true},
		{"anchor boundary", 3, 10, 5, []int{1, 2, 3, 4, 5}, true, true},
		{"slides past half", 4, 10, 5, []int{2, 3, 4, 5, 6}, true, true},
		{"centered", 7, 10, 5, []int{5, 6, 7, 8, 9}, true, true},
		{"tail is truncated", 9, 10, 5, []int{7, 8, 9, 10}, true, true},
		{"last page", 10, 10, 5, []int{8, 9, 10}, true, false},
		{"narrow", 5, 10, 3, []int{4, 5, 6}, true, true},
		{"desktop", 2, 20, 7, []int{1, 2, 3, 4, 5, 6, 7}, true, true},
		{"desktop sliding", 12, 20, 7, []int{9, 10, 11, 12, 13, 14, 15}, true, true},
		{"even width", 5, 10, 4, []int{3, 4, 5, 6}, true, true},
		{"zero width treated as one", 4, 10, 0, []int{4}, true, true},
		{"past the end", 14, 10, 5, []int{}, true, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := PageWindow(tc.current, tc.total, tc.size)
			if !reflect.DeepEqual(got.Pages, tc.want) {
				t.Fatalf("pages: got %v want %v", got.Pages, tc.want)
			}
			if got.HasPrev != tc.wantPrev || got.HasNext != tc.wantNext {
				t.Fatalf("prev/next: got %v/%v want %v/%v", got.HasPrev, got.HasNext, tc.wantPrev, tc.wantNext)
			}
		})
	}
}

func TestPageWindow_SmallTotalsListEveryPage(t *testing.T) {
	for _, size := range []int{WindowNarrow, WindowWide, WindowDesktop} {
		for total := 0; total <= size; total++ {
			for current := 1; current <= total; current++ {
				got := PageWindow(current, total, size).Pages
				if len(got) != total {
					t.Fatalf("size=%d total=%d current=%d: got %v", size, total, current, got)
				}
				for i, p := range got {
					if p != i+1 {
						t.Fatalf("size=%d total=%d current=%d: got %v", size, total, current, got)
					}
				}
			}
		}
	}
}

func TestPageWindow_NeverExceedsSizeOrTotal(t *testing.T) {
	for _, size := range []int{WindowNarrow, WindowWide, WindowDesktop} {
		for total := 1; total <= 30; total++ {
			for current := 1; current <= total; current++ {
				w := PageWindow(current, total, size)
				if len(w.Pages) > size {
					t.Fatalf("size=%d total=%d current=%d: window too wide %v", size, total, current, w.Pages)
				}
				found := false
				for _, p := range w.Pages {
					if p < 1 || p > total {
						t.Fatalf("size=%d total=%d current=%d: page %d out of range", size, total, current, p)
					}
					if p == current {
						found = true
					}
				}
				if !found {
					t.Fatalf("size=%d total=%d current=%d: current page missing from %v", size, total, current, w.Pages)
				}
			}
		}
	}
}
