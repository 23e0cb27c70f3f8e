package livetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagerFortyFiveItems(t *testing.T) {
	t.Parallel()

	p := NewPager(20)
	p.Reset(45)
	assert.Equal(t, 3, p.TotalPages())
	assert.Equal(t, 1, p.CurrentPage())

	assert.False(t, p.GoToPage(0))
	assert.Equal(t, 1, p.CurrentPage())
	assert.False(t, p.GoToPage(4))
	assert.Equal(t, 1, p.CurrentPage())

	assert.True(t, p.GoToPage(3))
	start, end := p.Bounds()
	assert.Equal(t, 40, start)
	assert.Equal(t, 45, end)

	// a refresh that shrinks the buffer
	p.Reset(5)
	assert.Equal(t, 1, p.CurrentPage())
	assert.Equal(t, 1, p.TotalPages())
}

func TestPagerBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		total     int
		page      int
		wantStart int
		wantEnd   int
		wantPages int
	}{
		{"empty", 0, 1, 0, 0, 1},
		{"single partial page", 7, 1, 0, 7, 1},
		{"exact multiple", 40, 2, 20, 40, 2},
		{"middle page", 45, 2, 20, 40, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewPager(0)
			p.Reset(tt.total)
			p.GoToPage(tt.page)
			start, end := p.Bounds()
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
			assert.Equal(t, tt.wantPages, p.TotalPages())
			assert.Equal(t, DefaultPageSize, p.PageSize())
		})
	}
}

func TestPagerInvariantHolds(t *testing.T) {
	t.Parallel()

	p := NewPager(20)
	for total := range 130 {
		p.Reset(total)
		for n := -1; n <= 9; n++ {
			p.GoToPage(n)
			assert.GreaterOrEqual(t, p.CurrentPage(), 1)
			assert.LessOrEqual(t, p.CurrentPage(), p.TotalPages())
		}
	}
}
