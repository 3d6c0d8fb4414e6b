package preview

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/invoicer/internal/models"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func sampleInvoice() *models.Invoice {
	return &models.Invoice{
		CompanyName: "OmniSoft",
		Address:     "123 Bristol Road, London",
		Customer: models.Customer{
			Name:  "Rosalyn Yalow",
			Email: "rosalyn@example.com",
			Phone: "+44 20 7946 0000",
		},
		Items: []models.LineItem{
			{Name: "Widget", Quantity: 2, UnitPrice: 9.99},
			{Name: "Gadget | deluxe", Quantity: 3, UnitPrice: 14},
		},
	}
}

func TestInvoiceMarkdown(t *testing.T) {
	md := InvoiceMarkdown(sampleInvoice(), fixedNow)

	assert.True(t, strings.HasPrefix(md, "# Invoice\n"))
	assert.Contains(t, md, "**OmniSoft**")
	assert.Contains(t, md, "Date: 09:26:53, 14.03.2025")
	assert.Contains(t, md, "## Bill to")
	assert.Contains(t, md, "rosalyn@example.com")
	assert.Contains(t, md, "| Widget | 2 | 9.99 | 19.98 |")
	assert.Contains(t, md, `| Gadget \| deluxe | 3 | 14.00 | 42.00 |`)
	assert.Contains(t, md, "**Total: 61.98**")
}

func TestInvoiceMarkdown_ServerFields(t *testing.T) {
	inv := sampleInvoice()
	inv.ID = 42
	created := time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)
	inv.CreatedAt = &created
	inv.Customer = models.Customer{}

	md := InvoiceMarkdown(inv, fixedNow)
	assert.True(t, strings.HasPrefix(md, "# Invoice #42\n"))
	assert.Contains(t, md, "Date: 08:00:00, 01.12.2024")
	assert.NotContains(t, md, "Bill to")
}

func TestRenderInvoice(t *testing.T) {
	svc := NewService(arbor.NewLogger()).WithClock(func() time.Time { return fixedNow })

	pdf, err := svc.RenderInvoice(sampleInvoice())
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestRenderInvoice_Invalid(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	inv := sampleInvoice()
	inv.Items = nil

	_, err := svc.RenderInvoice(inv)
	var ve *models.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = svc.RenderInvoice(nil)
	assert.Error(t, err)
}

func TestRenderInvoice_ManyItemsAndUnicode(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	inv := sampleInvoice()
	inv.CompanyName = "Café Müller"
	for i := 0; i < 80; i++ {
		inv.Items = append(inv.Items, models.LineItem{Name: "Line item", Quantity: i + 1, UnitPrice: 1.5})
	}

	pdf, err := svc.RenderInvoice(inv)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestInvoiceMarkdown_TotalsAddUpInCents(t *testing.T) {
	inv := sampleInvoice()
	inv.Items = []models.LineItem{
		{Name: "Stamp", Quantity: 1, UnitPrice: 0.005},
		{Name: "Stamp", Quantity: 1, UnitPrice: 0.005},
		{Name: "Widget", Quantity: 3, UnitPrice: 1.15},
	}

	md := InvoiceMarkdown(inv, fixedNow)

	assert.Equal(t, 2, strings.Count(md, "| Stamp | 1 | 0.01 | 0.01 |"))
	assert.Contains(t, md, "| Widget | 3 | 1.15 | 3.45 |")
	assert.Contains(t, md, "**Total: 3.47**")
}
