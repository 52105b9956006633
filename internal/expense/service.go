package expense

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/finops-tools/reimburse-helper/internal/extract"
	"github.com/finops-tools/reimburse-helper/internal/ocr"
	"github.com/finops-tools/reimburse-helper/internal/reconcile"
	"github.com/finops-tools/reimburse-helper/internal/report"
)

// DocumentReader extracts the text layer from a PDF in memory.
type DocumentReader interface {
	ReadText(data []byte) (string, error)
}

// IDGenerator generates unique IDs for stored documents.
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamps, which also
// makes bbolt key order match upload order.
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// ReconcileResult is the verified output of a reconciliation pass.
type ReconcileResult struct {
	Entries   []reconcile.LedgerEntry `json:"entries"`
	Narrative string                  `json:"narrative"`
}

// Service wires uploads through extraction, reconciliation and reporting.
type Service struct {
	db          DB
	storage     Storage
	reader      DocumentReader
	recognizer  ocr.TextRecognizer
	policy      reconcile.Policy
	assembler   report.Assembler
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a Service with default ID generator and time source.
func NewService(db DB, storage Storage, reader DocumentReader, recognizer ocr.TextRecognizer, policy reconcile.Policy, assembler report.Assembler) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		reader:      reader,
		recognizer:  recognizer,
		policy:      policy,
		assembler:   assembler,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a Service with custom dependencies for testing.
func NewServiceWithDeps(db DB, storage Storage, reader DocumentReader, recognizer ocr.TextRecognizer, policy reconcile.Policy, assembler report.Assembler, idGen IDGenerator, timeSrc TimeSource) *Service {
	s := NewService(db, storage, reader, recognizer, policy, assembler)
	s.idGenerator = idGen
	s.timeSource = timeSrc
	return s
}

var (
	filenameJunk   = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpaces = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up phone-generated filenames before they become
// storage paths.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = filenameJunk.ReplaceAllString(base, "")
	base = filenameSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	const maxLen = 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "document"
	}

	return base + ext
}

// ProcessInvoice stores an invoice PDF, reads its text layer and extracts
// the vendor's financial facts. The stored file is removed again if
// extraction fails, so storage only ever holds documents the ledger can
// reference.
func (s *Service) ProcessInvoice(filename string, data []byte, contentType string) (*InvoiceDocument, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	text, err := s.reader.ReadText(data)
	if err != nil {
		slog.Error("Failed to read invoice text", "filename", filename, "error", err)
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("reading invoice text: %w", err)
	}

	record, err := extract.ParseInvoice(text, filename)
	if err != nil {
		slog.Error("Failed to extract invoice", "filename", filename, "error", err)
		s.storage.Delete(savedPath)
		return nil, err
	}

	doc := &InvoiceDocument{
		ID:             id,
		Filename:       filename,
		StoredPath:     savedPath,
		ContentType:    contentType,
		Vendor:         record.Vendor,
		Paid:           record.Paid,
		ServiceStart:   record.ServiceStart,
		ServiceThrough: record.ServiceThrough,
		CreatedAt:      now,
	}

	if err := s.db.SaveInvoice(doc); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving invoice to database: %w", err)
	}

	return doc, nil
}

// ProcessBilling stores a repayment screenshot, runs OCR (reusing cached
// text when the same bytes were seen before) and extracts the repayment
// amounts.
func (s *Service) ProcessBilling(filename string, data []byte, contentType string) (*BillingDocument, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	text, err := s.recognizeWithCache(data, contentType)
	if err != nil {
		slog.Error("Failed to recognize screenshot text",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("recognizing screenshot text: %w", err)
	}

	record, err := extract.ParseBilling(text, filename)
	if err != nil {
		slog.Error("Failed to extract billing", "filename", filename, "error", err)
		s.storage.Delete(savedPath)
		return nil, err
	}

	doc := &BillingDocument{
		ID:          id,
		Filename:    filename,
		StoredPath:  savedPath,
		ContentType: contentType,
		Vendor:      record.Vendor,
		USDAmount:   record.USDAmount,
		RMBAmount:   record.RMBAmount,
		CreatedAt:   now,
	}

	if err := s.db.SaveBilling(doc); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving billing to database: %w", err)
	}

	return doc, nil
}

// recognizeWithCache keys OCR results by content hash so re-uploading the
// same screenshot never costs a second backend call.
func (s *Service) recognizeWithCache(data []byte, contentType string) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	cached, err := s.db.GetCachedText(hash)
	if err != nil {
		return "", fmt.Errorf("reading ocr cache: %w", err)
	}
	if cached != "" {
		return cached, nil
	}

	text, err := s.recognizer.RecognizeText(data, contentType)
	if err != nil {
		return "", err
	}

	if err := s.db.SaveCachedText(hash, text); err != nil {
		slog.Warn("Failed to cache ocr text", "error", err)
	}
	return text, nil
}

// ListInvoices returns all stored invoice documents.
func (s *Service) ListInvoices() ([]*InvoiceDocument, error) {
	docs, err := s.db.ListInvoices()
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	return docs, nil
}

// ListBillings returns all stored billing documents.
func (s *Service) ListBillings() ([]*BillingDocument, error) {
	docs, err := s.db.ListBillings()
	if err != nil {
		return nil, fmt.Errorf("listing billings: %w", err)
	}
	return docs, nil
}

// DeleteInvoice removes an invoice document and its stored file.
func (s *Service) DeleteInvoice(id string) error {
	doc, err := s.db.GetInvoice(id)
	if err != nil {
		return fmt.Errorf("getting invoice for deletion: %w", err)
	}

	if err := s.storage.Delete(doc.StoredPath); err != nil {
		slog.Warn("Failed to delete file", "path", doc.StoredPath, "error", err)
	}

	if err := s.db.DeleteInvoice(id); err != nil {
		return fmt.Errorf("deleting invoice from database: %w", err)
	}
	return nil
}

// DeleteBilling removes a billing document and its stored file.
func (s *Service) DeleteBilling(id string) error {
	doc, err := s.db.GetBilling(id)
	if err != nil {
		return fmt.Errorf("getting billing for deletion: %w", err)
	}

	if err := s.storage.Delete(doc.StoredPath); err != nil {
		slog.Warn("Failed to delete file", "path", doc.StoredPath, "error", err)
	}

	if err := s.db.DeleteBilling(id); err != nil {
		return fmt.Errorf("deleting billing from database: %w", err)
	}
	return nil
}

// GetInvoiceFile retrieves the stored file behind an invoice document.
func (s *Service) GetInvoiceFile(id string) ([]byte, string, error) {
	doc, err := s.db.GetInvoice(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting invoice: %w", err)
	}

	data, err := s.storage.Get(doc.StoredPath)
	if err != nil {
		return nil, "", fmt.Errorf("getting invoice file: %w", err)
	}

	return data, doc.ContentType, nil
}

// GetBillingFile retrieves the stored file behind a billing document.
func (s *Service) GetBillingFile(id string) ([]byte, string, error) {
	doc, err := s.db.GetBilling(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting billing: %w", err)
	}

	data, err := s.storage.Get(doc.StoredPath)
	if err != nil {
		return nil, "", fmt.Errorf("getting billing file: %w", err)
	}

	return data, doc.ContentType, nil
}

// Reconcile runs a full reconciliation pass over every stored document and,
// on success, returns the ledger entries with the approval narrative.
func (s *Service) Reconcile() (*ReconcileResult, error) {
	invoices, billings, err := s.loadSources()
	if err != nil {
		return nil, err
	}

	entries, err := reconcile.Reconcile(invoices, billings, s.policy)
	if err != nil {
		return nil, err
	}

	return &ReconcileResult{
		Entries:   entries,
		Narrative: s.assembler.Narrative(entries),
	}, nil
}

// ExportReport renders the reconciled ledger as an XLSX expense sheet.
// Reconciliation runs again first: the report must never outlive a document
// change that broke the invariant.
func (s *Service) ExportReport() ([]byte, error) {
	result, err := s.Reconcile()
	if err != nil {
		return nil, err
	}
	return s.assembler.WorkbookBytes(result.Entries)
}

func (s *Service) loadSources() ([]reconcile.InvoiceSource, []reconcile.BillingSource, error) {
	invoiceDocs, err := s.db.ListInvoices()
	if err != nil {
		return nil, nil, fmt.Errorf("listing invoices: %w", err)
	}
	billingDocs, err := s.db.ListBillings()
	if err != nil {
		return nil, nil, fmt.Errorf("listing billings: %w", err)
	}

	invoices := make([]reconcile.InvoiceSource, 0, len(invoiceDocs))
	for _, doc := range invoiceDocs {
		invoices = append(invoices, reconcile.InvoiceSource{
			Label: doc.Filename,
			Record: extract.InvoiceRecord{
				Vendor:         doc.Vendor,
				Paid:           doc.Paid,
				ServiceStart:   doc.ServiceStart,
				ServiceThrough: doc.ServiceThrough,
			},
		})
	}
	billings := make([]reconcile.BillingSource, 0, len(billingDocs))
	for _, doc := range billingDocs {
		billings = append(billings, reconcile.BillingSource{
			Label: doc.Filename,
			Record: extract.BillingRecord{
				Vendor:    doc.Vendor,
				USDAmount: doc.USDAmount,
				RMBAmount: doc.RMBAmount,
			},
		})
	}
	return invoices, billings, nil
}
