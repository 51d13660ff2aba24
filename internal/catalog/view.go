package catalog

// View is one shopper's listing state. It is not safe for concurrent use; the owning
// session serializes access.
type View struct {
	catalog  *Catalog
	criteria Criteria
	sort     SortKey
	page     int
	pageSize int
	search   string

	// lastAlias is the category query value already reconciled into criteria.
	lastAlias string
}

// NewView starts a view over the whole catalog on page 1.
func NewView(catalog *Catalog, pageSize int) *View {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	v := &View{catalog: catalog, pageSize: pageSize}
	v.Reset()
	return v
}

// Reset restores default criteria, sort and page.
func (v *View) Reset() {
	price := v.catalog.DefaultPriceRange()
	v.criteria = Criteria{Price: &price}
	v.sort = SortDefault
	v.page = 1
	v.search = ""
	v.lastAlias = ""
}

// Criteria returns a copy of the active criteria.
func (v *View) Criteria() Criteria { return v.criteria.Clone() }

// SortKey returns the active sort.
func (v *View) SortKey() SortKey { return v.sort }

// PageNumber returns the current page index.
func (v *View) PageNumber() int { return v.page }

// PageSize returns the configured page size.
func (v *View) PageSize() int { return v.pageSize }

// Search returns the last search term supplied.
func (v *View) Search() string { return v.search }

// SetCriteria replaces the criteria. A change resets the page to 1. A nil price range
// keeps the current one.
func (v *View) SetCriteria(criteria Criteria) error {
	next := criteria.Clone()
	if next.Price == nil {
		if v.criteria.Price != nil {
			price := *v.criteria.Price
			next.Price = &price
		}
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if !next.Equal(v.criteria) {
		v.criteria = next
		v.page = 1
	}
	return nil
}

// SetSort changes the sort key. A change resets the page to 1.
func (v *View) SetSort(key SortKey) {
	if key == "" {
		key = SortDefault
	}
	if key != v.sort {
		v.sort = key
		v.page = 1
	}
}

// SetPage moves to page n; values below 1 clamp to 1.
func (v *View) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	v.page = n
}

// SetSearch records the search term. It does not filter.
func (v *View) SetSearch(term string) { v.search = term }

// ApplyCategoryAlias merges the category named by a query alias into the criteria the first
// time that alias value is seen. It reports whether the criteria changed.
func (v *View) ApplyCategoryAlias(alias string) bool {
	if alias == "" || alias == v.lastAlias {
		return false
	}
	v.lastAlias = alias
	next, changed := MergeCategory(v.criteria, alias)
	if changed {
		v.criteria = next
		v.page = 1
	}
	return changed
}

// Result runs the pipeline for the current state.
func (v *View) Result() (Page, error) {
	return Run(v.catalog.products, v.criteria, v.sort, v.page, v.pageSize)
}
