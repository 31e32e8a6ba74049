package leadclient

import "fmt"

// PageSizeAll shows every lead on one page
const PageSizeAll = -1

// DefaultPageSize is the page size a fresh list starts with
const DefaultPageSize = 5

// PageSizes are the selectable page sizes
var PageSizes = []int{5, 10, 25, PageSizeAll}

// pageWindowSize is how many page links the pager shows at once
const pageWindowSize = 5

// pager tracks the current page over a collection of count rows
type pager struct {
	page int
	size int
}

func newPager() pager {
	return pager{size: DefaultPageSize}
}

func validPageSize(size int) bool {
	for _, s := range PageSizes {
		if s == size {
			return true
		}
	}
	return false
}

func (p *pager) setSize(size int) error {
	if !validPageSize(size) {
		return fmt.Errorf("unsupported page size %d", size)
	}
	p.size = size
	p.page = 0
	return nil
}

func (p pager) pageCount(count int) int {
	if count <= 0 {
		return 0
	}
	if p.size == PageSizeAll {
		return 1
	}
	return (count + p.size - 1) / p.size
}

// clamp keeps the page index inside [0, pageCount-1]
func (p *pager) clamp(count int) {
	last := p.pageCount(count) - 1
	if p.page > last {
		p.page = last
	}
	if p.page < 0 {
		p.page = 0
	}
}

// bounds returns the [start, end) slice of rows shown on the current page
func (p pager) bounds(count int) (int, int) {
	if p.size == PageSizeAll {
		return 0, count
	}
	start := p.page * p.size
	if start > count {
		start = count
	}
	end := start + p.size
	if end > count {
		end = count
	}
	return start, end
}

// window returns up to five page indexes around the current page
func (p pager) window(count int) []int {
	total := p.pageCount(count)
	if total == 0 {
		return nil
	}

	start := min(p.page-2, total-pageWindowSize)
	start = max(0, start)
	end := min(total-1, start+pageWindowSize-1)

	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}
