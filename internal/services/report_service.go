package services

import (
	"bytes"
	"fmt"
	"time"

	"loan-backend/internal/models"
	"loan-backend/internal/timeutil"

	"github.com/dustin/go-humanize"
	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"
)

const reportTitle = "Loan Desk"

// inr formats an amount with thousands separators and paise, e.g. "Rs. 8,333.33"
func inr(d decimal.Decimal) string {
	return "Rs. " + humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}

func displayDate(t time.Time) string {
	return timeutil.FormatIST(t, "02-Jan-2006")
}

func newReport(subtitle string, now time.Time) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, reportTitle+" - "+subtitle, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.FormatIST(now, "02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(5)
	return pdf
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, title, "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderStatement lays out a loan, its borrower and every installment with its payment state
func RenderStatement(loan *models.Loan, borrower *models.Borrower, now time.Time) ([]byte, error) {
	pdf := newReport("Loan Statement", now)

	section(pdf, "Borrower")
	pdf.CellFormat(95, 7, fmt.Sprintf("Name: %s", borrower.Name), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Phone: %s", borrower.Phone), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("S/O: %s", borrower.GuardianName), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("PAN: %s", borrower.PanID), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	section(pdf, fmt.Sprintf("Loan #%d (%s)", loan.ID, loan.Status))
	pdf.CellFormat(63, 7, fmt.Sprintf("Principal: %s", inr(loan.Principal)), "1", 0, "L", false, 0, "")
	pdf.CellFormat(63, 7, fmt.Sprintf("Rate: %s%% / month", loan.InterestRate.String()), "1", 0, "L", false, 0, "")
	pdf.CellFormat(64, 7, fmt.Sprintf("Duration: %d months", loan.DurationMonths), "1", 1, "L", false, 0, "")
	pdf.CellFormat(63, 7, fmt.Sprintf("Frequency: %s", loan.Frequency), "1", 0, "L", false, 0, "")
	pdf.CellFormat(63, 7, fmt.Sprintf("Start: %s", displayDate(loan.StartDate)), "1", 0, "L", false, 0, "")
	pdf.CellFormat(64, 7, fmt.Sprintf("Interest: %s", inr(loan.TotalInterest)), "1", 1, "L", false, 0, "")
	pdf.Ln(5)

	section(pdf, "Schedule")
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(200, 200, 200)
	headers := []struct {
		w     float64
		title string
	}{{10, "#"}, {25, "Due"}, {28, "Principal"}, {25, "Interest"}, {28, "Amount"}, {22, "Status"}, {25, "Paid On"}, {27, "Balance"}}
	for i, h := range headers {
		ln := 0
		if i == len(headers)-1 {
			ln = 1
		}
		pdf.CellFormat(h.w, 7, h.title, "1", ln, "C", true, 0, "")
	}

	pdf.SetFont("Arial", "", 9)
	paid, outstanding := decimal.Zero, decimal.Zero
	for _, inst := range loan.Installments {
		paidOn := "-"
		if inst.PaidAt != nil {
			paidOn = displayDate(*inst.PaidAt)
		}
		switch inst.Status {
		case models.InstallmentPaid:
			paid = paid.Add(inst.InstallmentAmount.Sub(inst.DueAmount))
			outstanding = outstanding.Add(inst.DueAmount)
		case models.InstallmentPending, models.InstallmentOverdue:
			outstanding = outstanding.Add(inst.InstallmentAmount)
		}
		pdf.CellFormat(10, 6, fmt.Sprintf("%d", inst.Number), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, displayDate(inst.DueDate), "1", 0, "C", false, 0, "")
		pdf.CellFormat(28, 6, inr(inst.PrincipalAmount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, inr(inst.InterestAmount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, inr(inst.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 6, string(inst.Status), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, paidOn, "1", 0, "C", false, 0, "")
		pdf.CellFormat(27, 6, inr(inst.DueAmount), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)

	if outstanding.IsPositive() {
		pdf.SetFillColor(255, 200, 200) // outstanding
	} else {
		pdf.SetFillColor(200, 255, 200)
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(95, 10, fmt.Sprintf("Principal paid: %s", inr(paid)), "1", 0, "C", true, 0, "")
	pdf.CellFormat(95, 10, fmt.Sprintf("Outstanding: %s", inr(outstanding)), "1", 1, "C", true, 0, "")

	return output(pdf)
}

// RenderReceipt is a one-page receipt for a ledger row; inst is set for collections
func RenderReceipt(t *models.Transaction, inst *models.Installment, now time.Time) ([]byte, error) {
	pdf := newReport("Receipt", now)

	section(pdf, fmt.Sprintf("Receipt #%06d", t.ID))
	pdf.CellFormat(95, 7, fmt.Sprintf("Date: %s", displayDate(t.CreatedAt)), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Type: %s / %s", t.Type, t.Category), "RB", 1, "L", false, 0, "")
	if t.BorrowerName != "" {
		pdf.CellFormat(95, 7, fmt.Sprintf("Borrower: %s", t.BorrowerName), "LB", 0, "L", false, 0, "")
		loan := "-"
		if t.LoanID != nil {
			loan = fmt.Sprintf("#%d", *t.LoanID)
		}
		pdf.CellFormat(95, 7, fmt.Sprintf("Loan: %s", loan), "RB", 1, "L", false, 0, "")
	}
	if t.CreatedByName != "" {
		pdf.CellFormat(190, 7, fmt.Sprintf("Recorded by: %s", t.CreatedByName), "LRB", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	if inst != nil {
		section(pdf, fmt.Sprintf("Installment #%d due %s", inst.Number, displayDate(inst.DueDate)))
		pdf.CellFormat(63, 7, fmt.Sprintf("Principal: %s", inr(inst.InstallmentAmount.Sub(inst.DueAmount))), "1", 0, "L", false, 0, "")
		pdf.CellFormat(63, 7, fmt.Sprintf("Interest: %s", inr(t.InterestAmount)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(64, 7, fmt.Sprintf("Extra: %s", inr(inst.ExtraAmount)), "1", 1, "L", false, 0, "")
		pdf.CellFormat(95, 7, fmt.Sprintf("Penalty (separate): %s", inr(inst.PenaltyAmount)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(95, 7, fmt.Sprintf("Shortfall: %s", inr(inst.DueAmount)), "1", 1, "L", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFillColor(200, 255, 200)
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(190, 10, fmt.Sprintf("Amount: %s", inr(t.Amount)), "1", 1, "C", true, 0, "")

	if t.Notes != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(190, 6, t.Notes, "", "L", false)
	}
	return output(pdf)
}
