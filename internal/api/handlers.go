package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Ginzoh/bill-app-MK/internal/bill"
)

// maxUploadSize bounds receipt uploads (phone photos can be large)
const maxUploadSize = int64(50 << 20)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// handleListBills returns all bills, filtered by the email query parameter
func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.service.ListBills(r.URL.Query().Get("email"))
	if err != nil {
		slog.Error("Error listing bills", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

// handleCreateBill accepts either a multipart receipt upload, which creates a
// draft, or a JSON bill, which is stored as is
func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		s.handleUploadReceipt(w, r)
		return
	}

	var b bill.Bill
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := s.service.CreateBill(&b)
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Error creating bill", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 50MB.")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSONError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	result, err := s.service.CreateDraft(header.Filename, data, header.Header.Get("Content-Type"), r.FormValue("email"))
	if err != nil {
		if errors.Is(err, bill.ErrUnsupportedType) {
			writeJSONError(w, http.StatusBadRequest, "Only JPG, JPEG and PNG receipts are accepted")
			return
		}
		slog.Error("Error creating draft bill", "filename", header.Filename, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// handleGetBill returns a single bill
func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	b, err := s.service.GetBill(chi.URLParam(r, "id"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleUpdateBill replaces a bill
func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	var b bill.Bill
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := s.service.UpdateBill(chi.URLParam(r, "id"), &b)
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteBill deletes a bill and its receipt
func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteBill(chi.URLParam(r, "id")); err != nil {
		s.writeLookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetFile serves a stored receipt
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetFile(chi.URLParam(r, "name"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "Bill not found")
		return
	}
	slog.Error("Error accessing bill", "error", err)
	writeJSONError(w, http.StatusInternalServerError, "Internal server error")
}
