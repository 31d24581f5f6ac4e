// Package scanning reads expense details off receipt images with a vision model
package scanning

import (
	"fmt"
	"strings"

	"github.com/Ginzoh/bill-app-MK/internal/bill"
)

// ReceiptData contains extracted information from a receipt
type ReceiptData struct {
	Title  string  `json:"title"`
	Date   string  `json:"date"` // YYYY-MM-DD, empty when unreadable
	Amount float64 `json:"amount"`
	Type   string  `json:"type"` // one of bill.Categories, empty when unsure
}

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt analyzes a JPEG or PNG receipt and extracts metadata
	ScanReceipt(imageData []byte, contentType string) (*ReceiptData, error)
	// Close closes the scanner and releases resources
	Close() error
}

// receiptScanPrompt is shared by all providers
var receiptScanPrompt = fmt.Sprintf(`You are reading a receipt attached to an employee expense report. Extract:

1. **Title**: the merchant or business name followed by a short description, e.g. "SNCF - Paris Lyon".
2. **Date**: the transaction date in ISO 8601 format (YYYY-MM-DD).
3. **Amount**: the total paid including taxes, as a number (e.g. 42.75).
4. **Type**: the expense category, exactly one of: %s.

Return ONLY valid JSON in this exact format:
{
  "title": "Merchant - Description",
  "date": "YYYY-MM-DD",
  "amount": 0.00,
  "type": "Category"
}

If you cannot find a field, use null for it. Do not include any text before or after the JSON.`,
	strings.Join(bill.Categories, ", "))

// imageFormat maps a receipt MIME type to the short format name vision APIs expect
func imageFormat(contentType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png":
		return "png", nil
	case "image/jpeg", "image/jpg":
		return "jpeg", nil
	}
	return "", fmt.Errorf("unsupported receipt content type %q", contentType)
}
