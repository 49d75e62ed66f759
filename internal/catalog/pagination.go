package catalog

// NewPagination builds the pagination block for total rows. A page past the
// last one yields nil From/To and keeps the other fields consistent.
func NewPagination(total int64, page, perPage int) Pagination {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		page = 1
	}

	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}

	p := Pagination{
		CurrentPage: page,
		LastPage:    lastPage,
		PerPage:     perPage,
		Total:       total,
	}

	from := (page-1)*perPage + 1
	if int64(from) <= total {
		to := page * perPage
		if int64(to) > total {
			to = int(total)
		}
		p.From = &from
		p.To = &to
	}
	return p
}

// paginate slices items for the requested page.
func paginate(items []Item, page, perPage int) ([]Item, Pagination) {
	p := NewPagination(int64(len(items)), page, perPage)
	if p.From == nil {
		return []Item{}, p
	}
	return items[*p.From-1 : *p.To], p
}
