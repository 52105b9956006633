package expense

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/finops-tools/reimburse-helper/internal/reconcile"
)

// maxUploadSize bounds multipart uploads; phone screenshots can be large.
const maxUploadSize = int64(50 << 20) // 50MB

// corsError writes an error response with CORS headers set.
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// jsonError writes a JSON error body with CORS headers set.
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// handleIndex serves the HTML interface.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// readUpload parses the multipart form and returns the uploaded file's
// name, bytes and content type.
func readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, string, bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		msg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			msg = "File is too large. Maximum size is 50MB."
		}
		jsonError(w, msg, http.StatusBadRequest)
		return "", nil, "", false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		msg := "No file provided"
		if err.Error() == "http: no such file" {
			msg = "No file was selected. Please choose a file to upload."
		}
		jsonError(w, msg, http.StatusBadRequest)
		return "", nil, "", false
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		jsonError(w, "File is too large. Maximum size is 50MB.", http.StatusBadRequest)
		return "", nil, "", false
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return "", nil, "", false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFromExt(header.Filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	return header.Filename, data, contentType, true
}

func contentTypeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleUploadInvoice handles invoice PDF upload and extraction.
func (s *Server) handleUploadInvoice(w http.ResponseWriter, r *http.Request) {
	filename, data, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}

	doc, err := s.service.ProcessInvoice(filename, data, contentType)
	if err != nil {
		slog.Error("Error processing invoice", "filename", filename, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleUploadBilling handles repayment screenshot upload and extraction.
func (s *Server) handleUploadBilling(w http.ResponseWriter, r *http.Request) {
	filename, data, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}

	doc, err := s.service.ProcessBilling(filename, data, contentType)
	if err != nil {
		slog.Error("Error processing billing", "filename", filename, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleListInvoices returns all stored invoice documents.
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	docs, err := s.service.ListInvoices()
	if err != nil {
		slog.Error("Error listing invoices", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []*InvoiceDocument{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(docs); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleListBillings returns all stored billing documents.
func (s *Server) handleListBillings(w http.ResponseWriter, r *http.Request) {
	docs, err := s.service.ListBillings()
	if err != nil {
		slog.Error("Error listing billings", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []*BillingDocument{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(docs); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleDeleteInvoice deletes an invoice document.
func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Invoice ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteInvoice(id); err != nil {
		corsError(w, "Error deleting invoice", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteBilling deletes a billing document.
func (s *Server) handleDeleteBilling(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Billing ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteBilling(id); err != nil {
		corsError(w, "Error deleting billing", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetInvoiceFile returns the stored file for an invoice document.
func (s *Server) handleGetInvoiceFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Invoice ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.service.GetInvoiceFile(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleGetBillingFile returns the stored file for a billing document.
func (s *Server) handleGetBillingFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Billing ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.service.GetBillingFile(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleReconcile runs a reconciliation pass. A mismatch is reported as 409
// so the UI can show the per-vendor gap; any other failure is a 500.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Reconcile()
	if err != nil {
		var mismatch *reconcile.MismatchError
		var mismatchSet *reconcile.MismatchSetError
		if errors.As(err, &mismatch) || errors.As(err, &mismatchSet) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		slog.Error("Error reconciling", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleReport streams the XLSX expense sheet for a verified ledger.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.ExportReport()
	if err != nil {
		var mismatch *reconcile.MismatchError
		var mismatchSet *reconcile.MismatchSetError
		if errors.As(err, &mismatch) || errors.As(err, &mismatchSet) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		slog.Error("Error exporting report", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="reimbursement.xlsx"`)
	w.Write(data)
}

// handleStaticCSS serves the CSS file.
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file.
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}
