// Package preview renders local draft PDFs of invoices.
//
// The layout follows the render worker's template so a draft can be checked
// before submission, without the remote service.
package preview

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/invoicer/internal/interfaces"
	"github.com/ternarybob/invoicer/internal/models"
)

// Service implements interfaces.PreviewService
type Service struct {
	logger arbor.ILogger
	now    func() time.Time
}

var _ interfaces.PreviewService = (*Service)(nil)

// NewService creates a new preview service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the clock used for the date line
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RenderInvoice validates the invoice and renders it to PDF bytes
func (s *Service) RenderInvoice(invoice *models.Invoice) ([]byte, error) {
	if invoice == nil {
		return nil, fmt.Errorf("invoice is required")
	}
	if err := invoice.Validate(); err != nil {
		return nil, err
	}
	title := invoice.CompanyName
	return s.ConvertMarkdownToPDF(InvoiceMarkdown(invoice, s.now()), title)
}

// ConvertMarkdownToPDF converts markdown content to a PDF byte slice
func (s *Service) ConvertMarkdownToPDF(markdown, title string) ([]byte, error) {
	s.logger.Debug().
		Int("markdown_len", len(markdown)).
		Str("title", title).
		Msg("Rendering preview PDF")

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("invoicer", true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 10)

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	r := &pdfRenderer{
		pdf:    pdf,
		source: source,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		size:   10,
	}
	if err := ast.Walk(doc, r.walk); err != nil {
		s.logger.Error().Err(err).Msg("Failed to lay out preview")
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate PDF output")
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	s.logger.Debug().Int("pdf_size", buf.Len()).Msg("Preview PDF generated")
	return buf.Bytes(), nil
}

// pdfRenderer walks the goldmark AST and draws onto fpdf.
// Only the node kinds produced by InvoiceMarkdown are drawn.
type pdfRenderer struct {
	pdf    *fpdf.Fpdf
	source []byte
	tr     func(string) string
	size   float64
	bold   bool
	italic bool
}

func (r *pdfRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont("Arial", style, r.size)
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			size := 12.0
			if node.Level == 1 {
				size = 16
			}
			r.pdf.SetFont("Arial", "B", size)
		} else {
			r.pdf.Ln(9)
			r.updateFont()
		}
	case *ast.Paragraph:
		if !entering {
			r.pdf.Ln(7)
		}
	case *ast.Text:
		if entering {
			r.pdf.Write(5, r.tr(string(node.Segment.Value(r.source))))
			if node.SoftLineBreak() || node.HardLineBreak() {
				r.pdf.Ln(5)
			}
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case *ast.ThematicBreak:
		if entering {
			r.pdf.Ln(2)
			left, _, right, _ := r.pdf.GetMargins()
			width, _ := r.pdf.GetPageSize()
			r.pdf.Line(left, r.pdf.GetY(), width-right, r.pdf.GetY())
			r.pdf.Ln(4)
		}
	case *extast.Table:
		if entering {
			r.renderTable(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) renderTable(table *extast.Table) {
	var rows [][]string
	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch child.(type) {
			case *extast.TableHeader, *extast.TableRow:
				var row []string
				for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
					row = append(row, r.cellText(cell))
				}
				rows = append(rows, row)
			}
		}
	}
	collect(table)
	if len(rows) == 0 {
		return
	}

	left, _, right, _ := r.pdf.GetMargins()
	pageWidth, _ := r.pdf.GetPageSize()
	usable := pageWidth - left - right

	// First column takes the remaining width
	numCols := len(rows[0])
	widths := make([]float64, numCols)
	rest := usable
	for i := 1; i < numCols; i++ {
		widths[i] = 28
		rest -= widths[i]
	}
	widths[0] = rest

	r.pdf.Ln(2)
	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont("Arial", "B", 9)
			r.pdf.SetFillColor(230, 230, 230)
		} else {
			r.pdf.SetFont("Arial", "", 9)
			r.pdf.SetFillColor(255, 255, 255)
		}
		for j := 0; j < numCols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			align := "R"
			if j == 0 {
				align = "L"
			}
			if j < len(table.Alignments) && table.Alignments[j] == extast.AlignLeft {
				align = "L"
			}
			r.pdf.CellFormat(widths[j], 7, r.tr(cell), "1", 0, align, true, 0, "")
		}
		r.pdf.Ln(-1)
	}
	r.pdf.Ln(3)
	r.updateFont()
}

func (r *pdfRenderer) cellText(cell ast.Node) string {
	var buf bytes.Buffer
	_ = ast.Walk(cell, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(r.source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}
