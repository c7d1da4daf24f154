package variable

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-generator/internal/row"
)

func TestSubstitute(t *testing.T) {
	r := row.Row{
		"brand":   "Nike",
		"product": "Air Max",
		"price":   129.99,
		"count":   3,
		"onSale":  true,
		"empty":   "",
		"nothing": nil,
		"launch":  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		"meta":    map[string]any{"sku": "AM-90"},
	}

	tests := []struct {
		name        string
		pattern     string
		want        string
		wantMissing []string
		wantEmpty   []string
	}{
		{"no tokens", "Summer Sale", "Summer Sale", nil, nil},
		{"single token", "{brand}", "Nike", nil, nil},
		{"mixed", "Buy {brand} {product} now", "Buy Nike Air Max now", nil, nil},
		{"float", "${price}", "$129.99", nil, nil},
		{"int and bool", "{count}-{onSale}", "3-true", nil, nil},
		{"time", "{launch}", "2024-05-01T00:00:00Z", nil, nil},
		{"nested path", "{meta.sku}", "AM-90", nil, nil},
		{"whitespace in token", "{ brand }", "Nike", nil, nil},
		{"missing", "{brand} {color}", "Nike ", []string{"color"}, nil},
		{"nil is missing", "{nothing}", "", []string{"nothing"}, nil},
		{"empty is not missing", "[{empty}]", "[]", nil, []string{"empty"}},
		{"fallback first wins", "{brand|product}", "Nike", nil, nil},
		{"fallback skips missing", "{color|brand}", "Nike", nil, nil},
		{"fallback skips empty", "{empty|product}", "Air Max", nil, nil},
		{"fallback all missing", "{color|size}", "", []string{"color"}, nil},
		{"fallback empty then missing", "{empty|color}", "", nil, []string{"empty"}},
		{"variation block untouched", "[[Buy|Shop]] {brand}", "[[Buy|Shop]] Nike", nil, nil},
		{"empty braces literal", "{}{brand}", "{}Nike", nil, nil},
		{"repeated token", "{brand}/{brand}", "Nike/Nike", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Substitute(tt.pattern, r)
			assert.Equal(t, tt.want, got.Text)

			var missing []string
			for _, w := range got.Warnings {
				missing = append(missing, w.Variable)
				assert.NotEmpty(t, w.Message)
			}
			assert.Equal(t, tt.wantMissing, missing)
			assert.Equal(t, tt.wantEmpty, got.EmptyVariables)
		})
	}
}

func TestSubstitute_NoTokensIsIdentity(t *testing.T) {
	for _, p := range []string{"", "plain", "a } b { c", "100% [[x|y]]", "{}"} {
		got := Substitute(p, row.Row{"x": 1})
		assert.Equal(t, p, got.Text)
		assert.Empty(t, got.Warnings)
	}
}

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		pattern string
		want    []string
	}{
		{"plain", []string{}},
		{"{a} {b} {a}", []string{"a", "b"}},
		{"{short|long} - {long}", []string{"short", "long"}},
		{"{ x | y | z }", []string{"x", "y", "z"}},
		{"{p.q}", []string{"p.q"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractVariables(tt.pattern), tt.pattern)
	}
	assert.False(t, HasVariables("none"))
	assert.True(t, HasVariables("{x}"))
}

func TestExpandVariations(t *testing.T) {
	got := ExpandVariations("[[Buy|Shop]] {brand} [[today|now]]", 0)
	assert.Equal(t, []string{
		"Buy {brand} today",
		"Buy {brand} now",
		"Shop {brand} today",
		"Shop {brand} now",
	}, got)

	assert.Equal(t, []string{"Buy {brand} today", "Buy {brand} now", "Shop {brand} today"},
		ExpandVariations("[[Buy|Shop]] {brand} [[today|now]]", 3))
	assert.Equal(t, []string{"no blocks"}, ExpandVariations("no blocks", 5))
}

func newCache(t testing.TB) *Cache {
	t.Helper()
	c, err := NewCache(64)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestCache(t *testing.T) {
	c := newCache(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tpl := c.Get("{brand} sale")
			assert.Equal(t, "Nike sale", tpl.Render(row.Row{"brand": "Nike"}).Text)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, c.Len())

	var none *Cache
	assert.Equal(t, "x", none.Get("x").Render(nil).Text)
	assert.Zero(t, none.Len())

	_, err := NewCache(MinCacheCapacity - 1)
	assert.Error(t, err)
}

func TestCache_Bounded(t *testing.T) {
	c := newCache(t)
	for i := 0; i < 1000; i++ {
		c.Get(fmt.Sprintf("{brand} %d", i))
	}
	assert.Eventually(t, func() bool { return c.Len() <= 64 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Nike 999", c.Get("{brand} 999").Render(row.Row{"brand": "Nike"}).Text)
}

func BenchmarkRender_Cached(b *testing.B) {
	c := newCache(b)
	r := row.Row{"brand": "Acme", "product": "Boots", "color": "red"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Get("{brand} {product} in {color|black}").Render(r)
	}
}
