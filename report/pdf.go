package report

import (
	"fmt"
	"io"

	"codeberg.org/go-pdf/fpdf"
	"github.com/pkg/errors"

	"analysis_report_go/tables"
)

const (
	pdfMargin    = 10.0
	pdfCellH     = 5.0
	pdfTableFont = 7.0
)

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	w   float64
}

// WritePDF renders the report as a landscape A4 document.
func WritePDF(w io.Writer, c *Context) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(c.Header.Title, true)
	pageW, _ := pdf.GetPageSize()
	pw := &pdfWriter{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
		w:   pageW - 2*pdfMargin,
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, pdfCellH, pw.tr(fmt.Sprintf("%s %s - page %d", c.Header.Project, c.Header.Release, pdf.PageNo())),
			"", 0, "C", false, 0, "")
	})

	pw.header(c.Header)
	for _, s := range c.Sections {
		pw.section(s)
	}
	if err := pdf.Error(); err != nil {
		return errors.Wrap(err, "render pdf")
	}
	return errors.Wrap(pdf.Output(w), "write pdf")
}

func (p *pdfWriter) header(h Header) {
	p.pdf.AddPage()
	p.pdf.SetFont("Helvetica", "B", 20)
	p.pdf.CellFormat(0, 12, p.tr(h.Title), "", 1, "L", false, 0, "")
	p.pdf.SetFont("Helvetica", "", 11)
	p.pdf.CellFormat(0, 7, p.tr(fmt.Sprintf("Project: %s", h.Project)), "", 1, "L", false, 0, "")
	p.pdf.CellFormat(0, 7, p.tr(fmt.Sprintf("Release: %s", h.Release)), "", 1, "L", false, 0, "")
	p.pdf.CellFormat(0, 7, p.tr(fmt.Sprintf("Date: %s", h.Date)), "", 1, "L", false, 0, "")
	p.pdf.Ln(4)
	p.pdf.MultiCell(0, 6, p.tr(h.Blurb), "", "L", false)
}

func (p *pdfWriter) section(s *SectionContext) {
	p.pdf.AddPage()
	p.pdf.SetFont("Helvetica", "B", 16)
	p.pdf.CellFormat(0, 10, p.tr(s.Title), "", 1, "L", false, 0, "")
	if s.Blurb != "" {
		p.pdf.SetFont("Helvetica", "", 10)
		p.pdf.MultiCell(0, 5, p.tr(s.Blurb), "", "L", false)
		p.pdf.Ln(2)
	}
	for i, t := range s.Tables {
		p.table(t)
		for _, pc := range s.PlotsFor(i) {
			p.plot(pc)
		}
	}
}

func (p *pdfWriter) table(t *tables.Context) {
	p.pdf.SetFont("Helvetica", "B", 12)
	p.pdf.CellFormat(0, 8, p.tr(t.Title), "", 1, "L", false, 0, "")
	if t.Blurb != "" {
		p.pdf.SetFont("Helvetica", "", 9)
		p.pdf.MultiCell(0, 4.5, p.tr(t.Blurb), "", "L", false)
		p.pdf.Ln(1)
	}
	if len(t.Headings) == 0 {
		return
	}
	colW := p.w / float64(len(t.Headings))

	p.pdf.SetFont("Helvetica", "B", pdfTableFont)
	p.pdf.SetFillColor(232, 232, 232)
	for _, h := range t.Headings {
		p.pdf.CellFormat(colW, pdfCellH, p.fit(h.Value, colW), "1", 0, "L", true, 0, "")
	}
	p.pdf.Ln(-1)

	p.pdf.SetFont("Helvetica", "", pdfTableFont)
	for _, cr := range t.Data {
		for _, row := range cr.Rows {
			for _, h := range t.Headings {
				p.pdf.CellFormat(colW, pdfCellH, p.fit(FormatValue(row[h.Key]), colW), "1", 0, "L", false, 0, "")
			}
			p.pdf.Ln(-1)
		}
	}
	p.pdf.Ln(2)

	if len(t.Glossary) > 0 {
		p.pdf.SetFont("Helvetica", "", 7)
		for _, g := range t.Glossary {
			p.pdf.MultiCell(0, 3.5, p.tr(fmt.Sprintf("%s: %s", g.Key, g.Value)), "", "L", false)
		}
		p.pdf.Ln(2)
	}
}

// fit truncates s so it fits a cell of width w at the current font.
func (p *pdfWriter) fit(s string, w float64) string {
	s = p.tr(s)
	limit := w - 2*p.pdf.GetCellMargin()
	if p.pdf.GetStringWidth(s) <= limit {
		return s
	}
	for len(s) > 1 && p.pdf.GetStringWidth(s+"..") > limit {
		s = s[:len(s)-1]
	}
	return s + ".."
}

func (p *pdfWriter) plot(pc PlotContext) {
	p.pdf.SetFont("Helvetica", "B", 10)
	p.pdf.CellFormat(0, 6, p.tr(pc.Title), "", 1, "L", false, 0, "")
	if pc.Path == "" {
		p.pdf.SetFont("Helvetica", "I", 9)
		p.pdf.CellFormat(0, 6, p.tr(pc.Note), "", 1, "L", false, 0, "")
		return
	}
	opt := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	p.pdf.ImageOptions(pc.Path, p.pdf.GetX(), p.pdf.GetY(), p.w, 0, true, opt, 0, "")
	p.pdf.Ln(2)
}
