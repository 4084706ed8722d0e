package pagination

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffsetAndPages(t *testing.T) {
	tests := []struct {
		params     Params
		total      int64
		wantOffset int
		wantPages  int
	}{
		{Params{Page: 1, Size: 10}, 25, 0, 3},
		{Params{Page: 3, Size: 10}, 25, 20, 3},
		{Params{Page: 4, Size: 10}, 25, 30, 3},
		{Params{Page: 1, Size: 10}, 0, 0, 0},
		{Params{Page: 2, Size: 5}, 10, 5, 2},
		{Params{Page: 1, Size: 100}, 1, 0, 1},
		{Params{Page: math.MaxInt, Size: 10}, 1, math.MaxInt, 1},
		{Params{Page: math.MaxInt/10 + 1, Size: 10}, 1, math.MaxInt / 10 * 10, 1},
		{Params{Page: math.MaxInt/10 + 2, Size: 10}, 1, math.MaxInt, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wantOffset, tt.params.Offset(), "offset for %+v", tt.params)
		assert.Equal(t, tt.wantPages, tt.params.Pages(tt.total), "pages for %+v total=%d", tt.params, tt.total)
	}
}

func TestValidate(t *testing.T) {
	b := Bounds{DefaultSize: 10, MaxSize: 100}

	assert.Empty(t, b.Validate(Params{Page: 1, Size: 100}))

	errs := b.Validate(Params{Page: 0, Size: 101})
	if assert.Len(t, errs, 2) {
		assert.Equal(t, "page", errs[0].Field)
		assert.Equal(t, "size", errs[1].Field)
	}

	errs = b.Validate(Params{Page: 1, Size: 0})
	if assert.Len(t, errs, 1) {
		assert.Equal(t, "size", errs[0].Field)
	}
}
