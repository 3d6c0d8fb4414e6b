package preview

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/invoicer/internal/models"
)

// DateLayout matches the date line printed by the render worker's template.
const DateLayout = "15:04:05, 02.01.2006"

// InvoiceMarkdown lays the invoice out the same way the server template does:
// issuer, date, recipient, item table with per-line totals, grand total.
func InvoiceMarkdown(inv *models.Invoice, now time.Time) string {
	var b strings.Builder

	title := "Invoice"
	if inv.ID != 0 {
		title = fmt.Sprintf("Invoice #%d", inv.ID)
	}
	date := now
	if inv.CreatedAt != nil {
		date = *inv.CreatedAt
	}

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "**%s**\n", escape(inv.CompanyName))
	fmt.Fprintf(&b, "%s\n\n", escape(inv.Address))
	fmt.Fprintf(&b, "Date: %s\n\n", date.Format(DateLayout))

	if c := inv.Customer; c.Name != "" {
		b.WriteString("## Bill to\n\n")
		lines := []string{"**" + escape(c.Name) + "**"}
		for _, v := range []string{c.Email, c.Phone, c.Address} {
			if v != "" {
				lines = append(lines, escape(v))
			}
		}
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n\n")
	}

	b.WriteString("| Item | Qty | Unit price | Total |\n")
	b.WriteString("|------|----:|-----------:|------:|\n")
	for _, item := range inv.Items {
		fmt.Fprintf(&b, "| %s | %d | %s | %s |\n",
			escape(item.Name), item.Quantity, money(models.Cents(item.UnitPrice)), money(item.TotalCents()))
	}
	b.WriteString("\n---\n\n")
	fmt.Fprintf(&b, "**Total: %s**\n", money(inv.TotalCents()))

	return b.String()
}

// money formats an amount held in whole cents
func money(cents int64) string {
	return models.FormatCents(cents)
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	"*", `\*`,
	"_", `\_`,
	"#", `\#`,
	"`", "\\`",
	"\n", " ",
)

func escape(s string) string {
	return mdEscaper.Replace(strings.TrimSpace(s))
}
