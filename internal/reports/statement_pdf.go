package reports

import (
	"io"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/lgndcraft2/ledger/internal/ledger"
	"github.com/lgndcraft2/ledger/internal/money"
)

const maxRows = 200

// Statement is everything printed on one PDF statement.
type Statement struct {
	Phone        string
	Period       Period
	Transactions []ledger.Transaction
	GeneratedAt  time.Time
}

// Filename is the download name for the statement.
func (s Statement) Filename() string {
	return "ledger-statement-" + s.Period.From.Format(dayLayout) + "-to-" + s.Period.To.Format(dayLayout) + ".pdf"
}

// WritePDF renders the statement to w.
func WritePDF(w io.Writer, s Statement) error {
	totals := Summarize(s.Transactions)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Ledger Statement")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, "Period: "+s.Period.String())
	pdf.Ln(5)
	pdf.Cell(0, 6, "Trader: "+maskPhone(s.Phone))
	pdf.Ln(10)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 10)

	sumW := []float64{45.5, 45.5, 45.5, 45.5}
	pdf.CellFormat(sumW[0], 10, "Sales", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[1], 10, "Purchases", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[2], 10, "Owed to you", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[3], 10, "You owe", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(sumW[0], 10, naira(totals.Sales), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[1], 10, naira(totals.Purchases), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[2], 10, naira(totals.OwedToYou), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[3], 10, naira(totals.OwedByYou), "1", 1, "C", false, 0, "")
	pdf.Ln(6)

	colW := []float64{24, 24, 50, 40, 22, 22}
	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(245, 245, 245)
		pdf.CellFormat(colW[0], 8, "DATE", "1", 0, "C", true, 0, "")
		pdf.CellFormat(colW[1], 8, "TYPE", "1", 0, "C", true, 0, "")
		pdf.CellFormat(colW[2], 8, "PARTY", "1", 0, "L", true, 0, "")
		pdf.CellFormat(colW[3], 8, "ITEM", "1", 0, "L", true, 0, "")
		pdf.CellFormat(colW[4], 8, "AMOUNT", "1", 0, "R", true, 0, "")
		pdf.CellFormat(colW[5], 8, "BALANCE", "1", 1, "R", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
	}
	header()

	pdf.SetTextColor(30, 30, 30)
	if len(s.Transactions) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, "No transactions in this period", "1", 1, "C", false, 0, "")
	}
	for i, t := range s.Transactions {
		if i >= maxRows {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(0, 8, "...truncated (too many rows)", "1", 1, "C", false, 0, "")
			break
		}
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}

		pdf.CellFormat(colW[0], 8, t.DisplayDate(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[1], 8, string(t.Type), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[2], 8, trimTo(t.Party, 28), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[3], 8, trimTo(t.Item, 22), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[4], 8, naira(t.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colW[5], 8, naira(t.Balance), "1", 1, "R", false, 0, "")
	}

	generated := s.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Generated "+generated.UTC().Format(time.RFC3339), "", 0, "C", false, 0, "")

	return pdf.Output(w)
}

// naira formats for the core PDF fonts, which have no naira sign.
func naira(a money.Amount) string {
	return strings.Replace(money.Format(a), "₦", "NGN ", 1)
}

func maskPhone(p string) string {
	p = strings.TrimSpace(p)
	if len(p) <= 4 {
		return p
	}
	return strings.Repeat("*", len(p)-4) + p[len(p)-4:]
}

func trimTo(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
