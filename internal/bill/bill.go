package bill

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the review state of a bill
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRefused:
		return true
	}
	return false
}

// Categories lists the expense types an employee can pick from
var Categories = []string{
	"Transports",
	"Restaurants et bars",
	"Hôtel et logement",
	"Services en ligne",
	"IT et électronique",
	"Equipement et matériel",
	"Fournitures de bureau",
}

// IsCategory reports whether name is a known expense type
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// DefaultPct is the VAT percentage used when the form leaves it blank
const DefaultPct = 20

// Bill represents an expense-report line item
type Bill struct {
	ID           string    `json:"id,omitempty"`
	Email        string    `json:"email"`
	Type         string    `json:"type"`
	Name         string    `json:"name"`
	Amount       Amount    `json:"amount"`
	Date         string    `json:"date"` // YYYY-MM-DD
	VAT          string    `json:"vat,omitempty"`
	Pct          int       `json:"pct"`
	Commentary   string    `json:"commentary,omitempty"`
	CommentAdmin string    `json:"commentAdmin,omitempty"`
	FileURL      string    `json:"fileUrl,omitempty"`
	FileName     string    `json:"fileName,omitempty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Amount is a currency amount encoded as a bare JSON number
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// MarshalJSON writes the amount without quotes
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}
