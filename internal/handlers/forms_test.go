package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alextreichler/bookstore/internal/apperr"
	"github.com/alextreichler/bookstore/internal/store"
)

func formRequest(t *testing.T, values url.Values) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, r.ParseForm())
	return r
}

func TestBookFromFormCoercesBadNumbers(t *testing.T) {
	r := formRequest(t, url.Values{
		"titulo":           {"  Rayuela "},
		"stock":            {"-4"},
		"anio_publicacion": {"mil novecientos"},
		"precio":           {"abc"},
	})
	b := bookFromForm(r)
	assert.Equal(t, "Rayuela", b.Title)
	assert.Equal(t, 0, b.Stock)
	assert.Equal(t, 0, b.Year)
	assert.True(t, b.Price.IsZero())

	r = formRequest(t, url.Values{"precio": {"12,5"}, "stock": {"3"}})
	b = bookFromForm(r)
	assert.Equal(t, "12.50", b.Price.StringFixed(2))
	assert.Equal(t, 3, b.Stock)

	r = formRequest(t, url.Values{"precio": {"-3"}})
	assert.True(t, bookFromForm(r).Price.IsZero())
}

func TestCustomerFromForm(t *testing.T) {
	r := formRequest(t, url.Values{
		"nombre": {"Lucía"}, "ciudad": {"Sevilla"}, "activo": {"1"},
	})
	c := customerFromForm(r)
	assert.Equal(t, "Lucía", c.Name)
	assert.Equal(t, "Sevilla", c.Address.City)
	assert.True(t, c.Active)

	assert.False(t, customerFromForm(formRequest(t, url.Values{"nombre": {"X"}})).Active)
}

func TestSaleLinesFromForm(t *testing.T) {
	r := formRequest(t, url.Values{
		"libro_id": {"a", "", "b"},
		"cantidad": {"2", "7", "1"},
	})
	lines, err := saleLinesFromForm(r)
	require.NoError(t, err)
	assert.Equal(t, []store.SaleLine{{BookID: "a", Quantity: 2}, {BookID: "b", Quantity: 1}}, lines)
}

func TestSaleLinesFromFormRejects(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
	}{
		{"no lines", url.Values{"libro_id": {"", ""}, "cantidad": {"1", "1"}}},
		{"nothing submitted", url.Values{}},
		{"zero quantity", url.Values{"libro_id": {"a"}, "cantidad": {"0"}}},
		{"negative quantity", url.Values{"libro_id": {"a"}, "cantidad": {"-2"}}},
		{"non numeric", url.Values{"libro_id": {"a"}, "cantidad": {"dos"}}},
		{"missing quantity", url.Values{"libro_id": {"a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := saleLinesFromForm(formRequest(t, tt.values))
			require.Error(t, err)
			assert.Equal(t, apperr.Validation, apperr.KindOf(err))
		})
	}
}
