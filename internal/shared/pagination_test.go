package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagerBounds(t *testing.T) {
	first := NewPager(PagerInput{BasePath: "/inscripciones", Page: 1, PageSize: 10, Shown: 10, TotalRecords: 25, TotalPages: 3})
	assert.False(t, first.HasPrev)
	assert.True(t, first.HasNext)
	assert.Equal(t, "/inscripciones?page=2", first.NextURL)
	assert.Equal(t, 1, first.StartIndex)
	assert.Equal(t, 10, first.EndIndex)

	last := NewPager(PagerInput{BasePath: "/inscripciones", Search: "paz", Page: 3, PageSize: 10, Shown: 5, TotalRecords: 25, TotalPages: 3})
	assert.True(t, last.HasPrev)
	assert.False(t, last.HasNext)
	assert.Equal(t, "/inscripciones?page=2&q=paz", last.PrevURL)
	assert.Equal(t, 21, last.StartIndex)
	assert.Equal(t, 25, last.EndIndex)
}

func TestPagerDisabledWhileBusy(t *testing.T) {
	p := NewPager(PagerInput{BasePath: "/pagos", Page: 2, PageSize: 15, TotalPages: 4, Busy: true})
	assert.False(t, p.HasPrev)
	assert.False(t, p.HasNext)
	assert.Empty(t, p.PrevURL)
}

func TestPagerEmptyCollection(t *testing.T) {
	p := NewPager(PagerInput{BasePath: "/logs", Page: 0, PageSize: 15})
	assert.Equal(t, 1, p.Page)
	assert.False(t, p.HasPrev)
	assert.False(t, p.HasNext)
	assert.Zero(t, p.StartIndex)
}
