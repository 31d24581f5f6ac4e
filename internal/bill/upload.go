package bill

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Store defines the remote bill API
type Store interface {
	// Create uploads a receipt and returns the provisional bill it was attached to
	Create(ctx context.Context, req CreateRequest) (*CreateResult, error)

	// Update persists the full bill, creating it when it has no ID
	Update(ctx context.Context, b *Bill) (*Bill, error)
}

// CreateRequest is the multipart payload sent when a receipt is selected
type CreateRequest struct {
	File  Attachment
	Email string
}

// CreateResult is what the store returns for an uploaded receipt
type CreateResult struct {
	ID       string          `json:"id"`
	FileURL  string          `json:"fileUrl"`
	FileName string          `json:"fileName"`
	Key      string          `json:"key"`
	Scan     *ScanSuggestion `json:"scan,omitempty"`
}

// ScanSuggestion holds values read off the receipt by the server, if it scans
type ScanSuggestion struct {
	Title  string  `json:"title"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
	Type   string  `json:"type,omitempty"`
}

// PendingUpload is the result of the latest successful receipt upload
type PendingUpload struct {
	BillID   string
	FileURL  string
	FileName string
	Scan     *ScanSuggestion
}

// UploadCoordinator uploads receipts and caches the latest result
type UploadCoordinator struct {
	store Store

	mu      sync.Mutex
	pending *PendingUpload
}

// NewUploadCoordinator creates an UploadCoordinator with no pending upload
func NewUploadCoordinator(store Store) *UploadCoordinator {
	return &UploadCoordinator{store: store}
}

// Upload sends file to the store on behalf of email. On success the result
// replaces the pending upload; on failure the previous one is kept.
func (u *UploadCoordinator) Upload(ctx context.Context, file Attachment, email string) (*PendingUpload, error) {
	res, err := u.store.Create(ctx, CreateRequest{File: file, Email: email})
	if err != nil {
		slog.Error("Failed to upload receipt", "filename", file.Name, "error", err)
		return nil, fmt.Errorf("uploading receipt: %w", err)
	}

	billID := res.Key
	if billID == "" {
		billID = res.ID
	}
	fileName := res.FileName
	if fileName == "" {
		fileName = file.Name
	}

	p := &PendingUpload{
		BillID:   billID,
		FileURL:  res.FileURL,
		FileName: fileName,
		Scan:     res.Scan,
	}

	u.mu.Lock()
	u.pending = p
	u.mu.Unlock()

	cp := *p
	return &cp, nil
}

// Snapshot returns a copy of the pending upload, or nil if none succeeded yet
func (u *UploadCoordinator) Snapshot() *PendingUpload {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.pending == nil {
		return nil
	}
	cp := *u.pending
	return &cp
}
