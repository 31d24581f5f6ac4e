package bill

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Assemble builds the bill record to persist from the form, the latest
// receipt upload (nil when none finished) and the session email.
func Assemble(form FormValues, upload *PendingUpload, email string) *Bill {
	b := &Bill{
		Email:      email,
		Type:       form.Type,
		Name:       strings.TrimSpace(form.Name),
		Amount:     parseAmount(form.Amount),
		Date:       strings.TrimSpace(form.Date),
		VAT:        strings.TrimSpace(form.VAT),
		Pct:        parsePct(form.Pct),
		Commentary: form.Commentary,
		Status:     StatusPending,
	}

	if upload != nil {
		b.ID = upload.BillID
		b.FileURL = upload.FileURL
		b.FileName = upload.FileName
	}

	return b
}

func parseAmount(s string) Amount {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}
	}
	return NewAmount(d)
}

// parsePct keeps the integer part, falling back to DefaultPct for blank,
// non-numeric or zero input
func parsePct(s string) int {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return DefaultPct
	}
	pct := int(d.IntPart())
	if pct == 0 {
		return DefaultPct
	}
	return pct
}
