package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestView(t *testing.T) *View {
	t.Helper()
	cat, err := Load("")
	require.NoError(t, err)
	return NewView(cat, DefaultPageSize)
}

func TestView_DefaultsSpanCatalog(t *testing.T) {
	view := newTestView(t)
	result, err := view.Result()
	require.NoError(t, err)
	require.Equal(t, 1, result.Page)
	require.Equal(t, 30, result.TotalItems)
	require.Len(t, result.Items, DefaultPageSize)
	require.Equal(t, 1, result.Items[0].ID)
}

func TestView_CriteriaAndSortChangesResetPage(t *testing.T) {
	view := newTestView(t)

	view.SetPage(3)
	view.SetSort(SortRating)
	require.Equal(t, 1, view.PageNumber())

	view.SetPage(2)
	view.SetSort(SortRating)
	require.Equal(t, 2, view.PageNumber(), "unchanged sort keeps the page")

	require.NoError(t, view.SetCriteria(Criteria{Brands: []string{"Sony"}}))
	require.Equal(t, 1, view.PageNumber())

	view.SetPage(2)
	require.NoError(t, view.SetCriteria(Criteria{Brands: []string{"Sony"}}))
	require.Equal(t, 2, view.PageNumber(), "identical criteria keep the page")
	require.NotNil(t, view.Criteria().Price, "omitted price range keeps the current bounds")
}

func TestView_RejectsInvalidCriteria(t *testing.T) {
	view := newTestView(t)
	err := view.SetCriteria(Criteria{Price: priceRange("80", "20")})
	require.True(t, errors.Is(err, ErrInvalidCriteria))
	require.Empty(t, view.Criteria().Brands)
}

func TestView_CategoryAliasReconciledOnce(t *testing.T) {
	view := newTestView(t)
	view.SetPage(2)

	require.True(t, view.ApplyCategoryAlias("laptops"))
	require.Equal(t, []string{"Laptops & Computers"}, view.Criteria().Categories)
	require.Equal(t, 1, view.PageNumber())

	require.NoError(t, view.SetCriteria(Criteria{}))
	require.False(t, view.ApplyCategoryAlias("laptops"), "same query value is not re-applied")
	require.Empty(t, view.Criteria().Categories)

	require.True(t, view.ApplyCategoryAlias("audio"))
	require.Equal(t, []string{"Audio Equipment"}, view.Criteria().Categories)
	require.False(t, view.ApplyCategoryAlias("unknown-alias"))

	result, err := view.Result()
	require.NoError(t, err)
	for _, p := range result.Items {
		require.Equal(t, "Audio Equipment", p.Category)
	}
}

func TestMergeCategoryKeepsExistingSelections(t *testing.T) {
	merged, changed := MergeCategory(Criteria{Categories: []string{"Accessories"}}, "phones")
	require.True(t, changed)
	require.Equal(t, []string{"Accessories", "Phones & PCs"}, merged.Categories)

	_, changed = MergeCategory(merged, "PHONES")
	require.False(t, changed)
}

func TestCatalogLookups(t *testing.T) {
	cat, err := Load("")
	require.NoError(t, err)

	product, err := cat.Product(4)
	require.NoError(t, err)
	require.Equal(t, "ASUS", product.Brand)

	_, err = cat.Product(999)
	require.ErrorIs(t, err, ErrNotFound)

	related, err := cat.Related(4, 0)
	require.NoError(t, err)
	require.LessOrEqual(t, len(related), 4)
	for _, p := range related {
		require.NotEqual(t, 4, p.ID)
		require.Equal(t, product.Category, p.Category)
	}

	require.Len(t, cat.Featured(6), 6)
	require.Equal(t, "99.99", cat.MaxPrice().String())

	facets := cat.Facets()
	require.Len(t, facets.Categories, 8)
	require.Contains(t, facets.Brands, "DEWALT")
	require.Len(t, facets.Colors, 8)
}

func TestParseRejectsBadRecords(t *testing.T) {
	_, err := Parse([]byte("products:\n  - id: 1\n    name: x\n    price: abc\n"))
	require.ErrorIs(t, err, ErrInvalidData)

	_, err = Parse([]byte("products:\n  - id: 1\n    name: a\n    price: \"1\"\n  - id: 1\n    name: b\n    price: \"2\"\n"))
	require.ErrorIs(t, err, ErrInvalidData)
	require.True(t, strings.Contains(err.Error(), "duplicate"))
}
