package livetable

// DefaultPageSize is the number of rows shown per table page.
const DefaultPageSize = 20

// Pager tracks the current page over a buffer of totalItems rows. The current
// page always lies in [1, TotalPages()].
type Pager struct {
	page  int
	size  int
	total int
}

// NewPager returns a pager on page 1. Non-positive sizes use DefaultPageSize.
func NewPager(size int) Pager {
	if size <= 0 {
		size = DefaultPageSize
	}
	return Pager{page: 1, size: size}
}

func (p *Pager) CurrentPage() int { return p.page }
func (p *Pager) PageSize() int    { return p.size }
func (p *Pager) TotalItems() int  { return p.total }

// TotalPages is ceil(total/size), never less than 1.
func (p *Pager) TotalPages() int {
	return max(1, (p.total+p.size-1)/p.size)
}

// GoToPage moves to page n. Out of range requests are rejected and leave the
// current page unchanged.
func (p *Pager) GoToPage(n int) bool {
	if n < 1 || n > p.TotalPages() {
		return false
	}
	p.page = n
	return true
}

// Reset sets a new item count and returns to page 1.
func (p *Pager) Reset(total int) {
	p.total = max(0, total)
	p.page = 1
}

// Bounds returns the half-open buffer range of the current page.
func (p *Pager) Bounds() (start, end int) {
	start = min((p.page-1)*p.size, p.total)
	end = min(start+p.size, p.total)
	return start, end
}
