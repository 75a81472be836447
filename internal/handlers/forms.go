package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alextreichler/bookstore/internal/apperr"
	"github.com/alextreichler/bookstore/internal/models"
	"github.com/alextreichler/bookstore/internal/store"
)

func invalidForm(op string, err error) error {
	return apperr.Wrap(apperr.Validation, op, "El formulario no es válido.", err)
}

// formInt parses an integer field. Malformed input becomes zero.
func formInt(r *http.Request, field string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue(field)))
	if err != nil {
		return 0
	}
	return n
}

// formPrice parses a decimal price. Malformed or negative input becomes zero.
func formPrice(r *http.Request, field string) decimal.Decimal {
	raw := strings.ReplaceAll(strings.TrimSpace(r.FormValue(field)), ",", ".")
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}

func formText(r *http.Request, field string) string {
	return strings.TrimSpace(r.FormValue(field))
}

func bookFromForm(r *http.Request) *models.Book {
	stock := formInt(r, "stock")
	if stock < 0 {
		stock = 0
	}
	return &models.Book{
		Title:  formText(r, "titulo"),
		Author: formText(r, "autor"),
		Genre:  formText(r, "genero"),
		ISBN:   formText(r, "isbn"),
		Year:   formInt(r, "anio_publicacion"),
		Stock:  stock,
		Price:  formPrice(r, "precio"),
	}
}

func customerFromForm(r *http.Request) *models.Customer {
	return &models.Customer{
		Name:  formText(r, "nombre"),
		Email: formText(r, "email"),
		Phone: formText(r, "telefono"),
		Address: models.Address{
			Street:     formText(r, "calle"),
			City:       formText(r, "ciudad"),
			PostalCode: formText(r, "codigo_postal"),
		},
		Active: r.FormValue("activo") != "",
	}
}

// saleLinesFromForm pairs the repeated libro_id and cantidad fields by
// position. Rows without a book are ignored; a quantity that is not a
// positive integer rejects the whole submission.
func saleLinesFromForm(r *http.Request) ([]store.SaleLine, error) {
	const op = "handlers.saleLinesFromForm"
	bookIDs := r.Form["libro_id"]
	quantities := r.Form["cantidad"]

	var lines []store.SaleLine
	for i, id := range bookIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		raw := ""
		if i < len(quantities) {
			raw = strings.TrimSpace(quantities[i])
		}
		qty, err := strconv.Atoi(raw)
		if err != nil || qty <= 0 {
			return nil, apperr.Validationf(op, "La cantidad %q no es válida; usa un número entero mayor que cero.", raw)
		}
		lines = append(lines, store.SaleLine{BookID: id, Quantity: qty})
	}
	if len(lines) == 0 {
		return nil, apperr.Validationf(op, "Agrega al menos un libro a la venta.")
	}
	return lines, nil
}
