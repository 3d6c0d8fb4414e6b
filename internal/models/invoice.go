package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Customer is the invoice recipient
type Customer struct {
	Name    string `json:"name" toml:"name" yaml:"name" validate:"required,max=100"`
	Email   string `json:"email" toml:"email" yaml:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" toml:"phone" yaml:"phone" validate:"omitempty,max=20"`
	Address string `json:"address" toml:"address" yaml:"address" validate:"omitempty,max=200"`
}

// LineItem is one billed line. Quantity is a whole number of units.
type LineItem struct {
	Name      string  `json:"name" toml:"name" yaml:"name" validate:"required,max=100"`
	Quantity  int     `json:"quantity" toml:"quantity" yaml:"quantity" validate:"min=1"`
	UnitPrice float64 `json:"unit_price" toml:"unit_price" yaml:"unit_price" validate:"gte=0"`
}

// Cents rounds an amount to whole cents, the precision the server stores
// prices with.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FormatCents renders cents as a decimal amount ("1234" -> "12.34").
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// TotalCents returns quantity * unit price, with the unit price rounded to cents first
func (li LineItem) TotalCents() int64 {
	return int64(li.Quantity) * Cents(li.UnitPrice)
}

// Total returns quantity * unit price
func (li LineItem) Total() float64 {
	return float64(li.TotalCents()) / 100
}

// UnmarshalJSON accepts unit_price as a number or a decimal string ("9.99"),
// which is how the server serializes decimal fields.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	type plain LineItem
	aux := struct {
		*plain
		UnitPrice json.Number `json:"unit_price"`
	}{plain: (*plain)(li)}

	// Strict like the document decoder: a misspelled key must not vanish
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&aux); err != nil {
		return err
	}
	if aux.UnitPrice == "" {
		return nil
	}
	price, err := aux.UnitPrice.Float64()
	if err != nil {
		return fmt.Errorf("invalid unit_price %q: %w", aux.UnitPrice, err)
	}
	li.UnitPrice = price
	return nil
}

// Invoice is the source document submitted for rendering.
// ID and CreatedAt are assigned by the server.
type Invoice struct {
	ID          ArtifactID `json:"id,omitempty" toml:"-" yaml:"-"`
	CompanyName string     `json:"company_name" toml:"company_name" yaml:"company_name" validate:"required,max=100"`
	Address     string     `json:"address" toml:"address" yaml:"address" validate:"required,max=200"`
	Customer    Customer   `json:"customer" toml:"customer" yaml:"customer"`
	Items       []LineItem `json:"items" toml:"items" yaml:"items" validate:"required,min=1,dive"`
	CreatedAt   *time.Time `json:"created_at,omitempty" toml:"-" yaml:"-"`
}

// Total sums every line item.
func (inv *Invoice) Total() float64 {
	return float64(inv.TotalCents()) / 100
}

// TotalCents sums the line totals in cents
func (inv *Invoice) TotalCents() int64 {
	var total int64
	for _, item := range inv.Items {
		total += item.TotalCents()
	}
	return total
}

// Validate checks the invoice before any remote call is made.
// Returns *ValidationError describing every failing field.
func (inv *Invoice) Validate() error {
	err := validate.Struct(inv)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: []FieldError{{Field: "invoice", Message: err.Error()}}}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   trimNamespace(fe.Namespace()),
			Message: describeFieldError(fe),
		})
	}
	return &ValidationError{Fields: fields}
}

// trimNamespace drops the leading struct name ("Invoice.Items[0].Name" -> "Items[0].Name")
func trimNamespace(ns string) string {
	for i := 0; i < len(ns); i++ {
		if ns[i] == '.' {
			return ns[i+1:]
		}
	}
	return ns
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Kind().String() == "slice" {
			return "must contain at least one item"
		}
		return "is required"
	case "min":
		if fe.Field() == "Quantity" {
			return "must be greater than zero"
		}
		return "must contain at least one item"
	case "gte":
		return "cannot be negative"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "email":
		return "must be a valid email address"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
