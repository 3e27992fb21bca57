package listview

// RowView is one visible row with its presentation flags.
type RowView[R any] struct {
	Key      string
	Row      R
	Expanded bool
	Error    string
	busy     map[ActionKind]bool
}

// Busy reports whether the named action kind is in flight for the row.
func (v RowView[R]) Busy(kind string) bool {
	return v.busy[ActionKind(kind)]
}

// Summary is the row-independent part of a snapshot.
type Summary struct {
	Resource     Resource
	Loaded       int
	Shown        int
	Page         int
	PageSize     int
	TotalRecords int
	TotalPages   int
	Search       string
	Loading      bool
	Ready        bool
	Err          error
}

// CanPrev reports whether the Previous control is enabled.
func (s Summary) CanPrev() bool {
	return !s.Loading && s.Page > 1 && s.TotalPages > 0
}

// CanNext reports whether the Next control is enabled.
func (s Summary) CanNext() bool {
	return !s.Loading && s.Page < s.TotalPages
}

// Filtered reports whether a search term hides part of the loaded page.
func (s Summary) Filtered() bool {
	return s.Shown != s.Loaded
}

// Snapshot is an immutable copy of a controller's state, safe to render.
type Snapshot[R any] struct {
	Summary
	Rows []RowView[R]
}

// Snapshot copies the current state applying the local search filter.
func (c *Controller[R]) Snapshot() Snapshot[R] {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := Filter(c.items, c.search, c.binding.SearchFields)
	rows := make([]RowView[R], 0, len(idx))
	for _, i := range idx {
		key := c.binding.Key(c.items[i])
		rows = append(rows, RowView[R]{
			Key:      key,
			Row:      c.items[i],
			Expanded: c.expanded[key],
			Error:    c.rowErrors[key],
			busy:     c.dispatcher.InFlightKinds(key),
		})
	}
	return Snapshot[R]{Summary: c.summaryLocked(len(rows)), Rows: rows}
}

// Summary returns the row-independent state.
func (c *Controller[R]) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	shown := len(Filter(c.items, c.search, c.binding.SearchFields))
	return c.summaryLocked(shown)
}

func (c *Controller[R]) summaryLocked(shown int) Summary {
	return Summary{
		Resource:     c.binding.Resource,
		Loaded:       len(c.items),
		Shown:        shown,
		Page:         c.page,
		PageSize:     c.binding.PageSize,
		TotalRecords: c.totalRecords,
		TotalPages:   c.totalPages,
		Search:       c.search,
		Loading:      c.loading,
		Ready:        c.loaded,
		Err:          c.err,
	}
}
