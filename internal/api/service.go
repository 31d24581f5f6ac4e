package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ginzoh/bill-app-MK/internal/bill"
	"github.com/Ginzoh/bill-app-MK/internal/scanning"
)

// ErrInvalidStatus is returned for a bill whose status is not a known one
var ErrInvalidStatus = errors.New("invalid bill status")

// IDGenerator generates unique IDs for bills
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles bill operations
type Service struct {
	db          DB
	storage     Storage
	scanner     scanning.Scanner
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service. scanner may be nil, in which case
// uploaded receipts are not scanned.
func NewService(db DB, storage Storage, scanner scanning.Scanner) *Service {
	return NewServiceWithDeps(db, storage, scanner, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, scanner scanning.Scanner, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		scanner:     scanner,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename keeps a short, filesystem-safe version of a receipt name
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = unsafeChars.ReplaceAllString(base, "")
	base = spaces.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// storedName extracts the storage name from a receipt URL
func storedName(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil || u.Path == "" {
		return ""
	}
	name, err := url.PathUnescape(path.Base(u.Path))
	if err != nil {
		return ""
	}
	return name
}

// CreateDraft stores an uploaded receipt and creates the provisional bill
// it belongs to. If a scanner is configured the receipt is scanned and the
// values read are returned as a suggestion.
func (s *Service) CreateDraft(filename string, data []byte, contentType, email string) (*bill.CreateResult, error) {
	v := bill.ValidateAttachment(filename)
	if !v.Accepted {
		return nil, bill.ErrUnsupportedType
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedName, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(v.Name)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	draft := &bill.Bill{
		ID:        id,
		Email:     email,
		FileURL:   s.storage.URL(savedName),
		FileName:  v.Name,
		Pct:       bill.DefaultPct,
		Status:    bill.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var suggestion *bill.ScanSuggestion
	if s.scanner != nil {
		if contentType == "" {
			contentType = bill.ContentTypeFor(v.Name)
		}
		scanned, err := s.scanner.ScanReceipt(data, contentType)
		if err != nil {
			slog.Warn("Failed to scan receipt",
				"filename", v.Name,
				"content_type", contentType,
				"file_size", len(data),
				"error", err,
			)
		} else {
			suggestion = &bill.ScanSuggestion{
				Title:  scanned.Title,
				Date:   scanned.Date,
				Amount: scanned.Amount,
				Type:   scanned.Type,
			}
		}
	}

	if err := s.db.SaveBill(draft); err != nil {
		if delErr := s.storage.Delete(savedName); delErr != nil {
			slog.Warn("Failed to delete file", "filename", savedName, "error", delErr)
		}
		return nil, fmt.Errorf("saving draft bill: %w", err)
	}

	return &bill.CreateResult{
		ID:       draft.ID,
		FileURL:  draft.FileURL,
		FileName: draft.FileName,
		Key:      draft.ID,
		Scan:     suggestion,
	}, nil
}

// CreateBill persists a complete bill under a new ID
func (s *Service) CreateBill(b *bill.Bill) (*bill.Bill, error) {
	if b.Status == "" {
		b.Status = bill.StatusPending
	}
	if !b.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, b.Status)
	}

	now := s.timeSource.Now()
	b.ID = s.idGenerator.Generate()
	b.CreatedAt = now
	b.UpdatedAt = now

	if err := s.db.SaveBill(b); err != nil {
		return nil, fmt.Errorf("saving bill: %w", err)
	}
	return b, nil
}

// UpdateBill replaces the bill stored under id. Receipt fields left empty
// by the caller keep their stored values.
func (s *Service) UpdateBill(id string, b *bill.Bill) (*bill.Bill, error) {
	if b.Status == "" {
		b.Status = bill.StatusPending
	}
	if !b.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, b.Status)
	}

	existing, err := s.db.GetBill(id)
	if err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}

	b.ID = existing.ID
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = s.timeSource.Now()
	if b.FileURL == "" {
		b.FileURL = existing.FileURL
		b.FileName = existing.FileName
	}

	if err := s.db.SaveBill(b); err != nil {
		return nil, fmt.Errorf("saving bill: %w", err)
	}
	return b, nil
}

// GetBill retrieves a bill by ID
func (s *Service) GetBill(id string) (*bill.Bill, error) {
	b, err := s.db.GetBill(id)
	if err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}
	return b, nil
}

// ListBills returns all bills, or only those of email when it is set
func (s *Service) ListBills(email string) ([]*bill.Bill, error) {
	bills, err := s.db.ListBills()
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}
	if email == "" {
		return bills, nil
	}

	filtered := make([]*bill.Bill, 0, len(bills))
	for _, b := range bills {
		if b.Email == email {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// DeleteBill removes a bill and its receipt file
func (s *Service) DeleteBill(id string) error {
	b, err := s.db.GetBill(id)
	if err != nil {
		return fmt.Errorf("getting bill for deletion: %w", err)
	}

	if name := storedName(b.FileURL); name != "" {
		if err := s.storage.Delete(name); err != nil {
			// Log error but continue with database deletion
			slog.Warn("Failed to delete file", "filename", name, "error", err)
		}
	}

	if err := s.db.DeleteBill(id); err != nil {
		return fmt.Errorf("deleting bill from database: %w", err)
	}
	return nil
}

// GetFile returns a stored receipt and its content type
func (s *Service) GetFile(name string) ([]byte, string, error) {
	data, err := s.storage.Get(name)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, bill.ContentTypeFor(name), nil
}
