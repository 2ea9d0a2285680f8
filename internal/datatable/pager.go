package datatable

import "strconv"

// Ellipsis is the label of a gap in a page list.
const Ellipsis = "..."

// PageLabel is either a 1-based page number or a gap.
type PageLabel struct {
	Page int
	Gap  bool
}

func (l PageLabel) String() string {
	if l.Gap {
		return Ellipsis
	}
	return strconv.Itoa(l.Page)
}

// PageNumbers lists the labels a pager shows for a 1-based current page.
// Up to seven pages are listed in full; past that the first and last pages
// are always shown around a three-page window, with a gap on each side that
// is not adjacent.
func PageNumbers(current, total int) []PageLabel {
	if total < 1 {
		total = 1
	}
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}

	if total <= 7 {
		out := make([]PageLabel, 0, total)
		for i := 1; i <= total; i++ {
			out = append(out, PageLabel{Page: i})
		}
		return out
	}

	out := []PageLabel{{Page: 1}}
	if current > 3 {
		out = append(out, PageLabel{Gap: true})
	}
	start := max(2, current-1)
	end := min(total-1, current+1)
	for i := start; i <= end; i++ {
		out = append(out, PageLabel{Page: i})
	}
	if current < total-2 {
		out = append(out, PageLabel{Gap: true})
	}
	return append(out, PageLabel{Page: total})
}
