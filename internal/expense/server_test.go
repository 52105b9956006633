package expense

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/finops-tools/reimburse-helper/internal/reconcile"
	"github.com/finops-tools/reimburse-helper/internal/report"
)

func multipartBody(fieldName, filename string, content []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(fieldName, filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(content)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		db         *mockDB
		storage    *mockStorage
		reader     *mockReader
		recognizer *mockRecognizer
		server     *Server
	)

	newServer := func(auth BasicAuth) *Server {
		service := NewServiceWithDeps(
			db, storage, reader, recognizer,
			reconcile.StopOnFirstMismatch,
			report.Assembler{CostCenter: "CC-1024", Category: "SaaS subscriptions"},
			&seqIDGenerator{}, &fixedTimeSource{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		)
		return NewServerWithMux(service, auth, http.NewServeMux())
	}

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		reader = &mockReader{text: githubInvoiceText}
		recognizer = &mockRecognizer{text: githubBillingText}
		server = newServer(BasicAuth{})
	})

	Describe("POST /api/invoices", func() {
		It("should extract and return the document", func() {
			body, contentType := multipartBody("file", "github-jan.pdf", []byte("%PDF"))
			req := httptest.NewRequest("POST", "/api/invoices", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			var doc InvoiceDocument
			Expect(json.Unmarshal(rec.Body.Bytes(), &doc)).To(Succeed())
			Expect(doc.Vendor.String()).To(Equal("github"))
			Expect(doc.Paid.StringFixed(2)).To(Equal("42.00"))
		})

		It("should reject a request with no file", func() {
			body, contentType := multipartBody("other", "x.pdf", []byte("%PDF"))
			req := httptest.NewRequest("POST", "/api/invoices", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			var resp map[string]string
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp).To(HaveKey("error"))
		})

		It("should surface extraction failures as 400 with the error message", func() {
			reader.text = "Some Unrelated Company"
			body, contentType := multipartBody("file", "mystery.pdf", []byte("%PDF"))
			req := httptest.NewRequest("POST", "/api/invoices", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("mystery.pdf"))
		})
	})

	Describe("POST /api/billings", func() {
		It("should extract and return the document", func() {
			body, contentType := multipartBody("file", "repay.png", []byte("png-bytes"))
			req := httptest.NewRequest("POST", "/api/billings", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			var doc BillingDocument
			Expect(json.Unmarshal(rec.Body.Bytes(), &doc)).To(Succeed())
			Expect(doc.USDAmount.StringFixed(2)).To(Equal("42.00"))
			Expect(doc.RMBAmount.StringFixed(2)).To(Equal("301.14"))
		})
	})

	Describe("GET /api/invoices", func() {
		It("should return an empty JSON array when nothing is stored", func() {
			req := httptest.NewRequest("GET", "/api/invoices", nil)
			rec := httptest.NewRecorder()

			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON("[]"))
		})
	})

	Describe("DELETE /api/invoices/{id}", func() {
		It("should delete a stored document", func() {
			body, contentType := multipartBody("file", "github-jan.pdf", []byte("%PDF"))
			req := httptest.NewRequest("POST", "/api/invoices", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)
			var doc InvoiceDocument
			Expect(json.Unmarshal(rec.Body.Bytes(), &doc)).To(Succeed())

			req = httptest.NewRequest("DELETE", "/api/invoices/"+doc.ID, nil)
			rec = httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNoContent))
		})
	})

	Describe("GET /api/reconcile", func() {
		uploadBoth := func() {
			body, contentType := multipartBody("file", "github-jan.pdf", []byte("%PDF"))
			req := httptest.NewRequest("POST", "/api/invoices", body)
			req.Header.Set("Content-Type", contentType)
			server.ServeHTTP(httptest.NewRecorder(), req)

			body, contentType = multipartBody("file", "repay.png", []byte("png-bytes"))
			req = httptest.NewRequest("POST", "/api/billings", body)
			req.Header.Set("Content-Type", contentType)
			server.ServeHTTP(httptest.NewRecorder(), req)
		}

		It("should return the ledger and narrative when totals match", func() {
			uploadBoth()

			req := httptest.NewRequest("GET", "/api/reconcile", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var result ReconcileResult
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
			Expect(result.Entries).To(HaveLen(1))
			Expect(result.Narrative).To(ContainSubstring("Total: USD 42.00"))
		})

		It("should return 409 with both totals on a mismatch", func() {
			recognizer.text = "GitHub\n￥286.80已入账\n交易地金额：40.00\n"
			uploadBoth()

			req := httptest.NewRequest("GET", "/api/reconcile", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusConflict))
			Expect(rec.Body.String()).To(ContainSubstring("42.00"))
			Expect(rec.Body.String()).To(ContainSubstring("40.00"))
		})
	})

	Describe("GET /api/report.xlsx", func() {
		It("should stream a workbook when the ledger reconciles", func() {
			body, contentType := multipartBody("file", "github-jan.pdf", []byte("%PDF"))
			req := httptest.NewRequest("POST", "/api/invoices", body)
			req.Header.Set("Content-Type", contentType)
			server.ServeHTTP(httptest.NewRecorder(), req)

			body, contentType = multipartBody("file", "repay.png", []byte("png-bytes"))
			req = httptest.NewRequest("POST", "/api/billings", body)
			req.Header.Set("Content-Type", contentType)
			server.ServeHTTP(httptest.NewRecorder(), req)

			req = httptest.NewRequest("GET", "/api/report.xlsx", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(ContainSubstring("spreadsheetml"))
			Expect(bytes.HasPrefix(rec.Body.Bytes(), []byte("PK"))).To(BeTrue())
		})

		It("should refuse with 409 when the ledger does not reconcile", func() {
			body, contentType := multipartBody("file", "github-jan.pdf", []byte("%PDF"))
			req := httptest.NewRequest("POST", "/api/invoices", body)
			req.Header.Set("Content-Type", contentType)
			server.ServeHTTP(httptest.NewRecorder(), req)

			req = httptest.NewRequest("GET", "/api/report.xlsx", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			server = newServer(BasicAuth{Username: "admin", Password: "secret"})
		})

		It("should reject requests without credentials", func() {
			req := httptest.NewRequest("GET", "/api/invoices", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Header().Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("should accept requests with valid credentials", func() {
			req := httptest.NewRequest("GET", "/api/invoices", nil)
			req.SetBasicAuth("admin", "secret")
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("should reject wrong credentials", func() {
			req := httptest.NewRequest("GET", "/api/invoices", nil)
			req.SetBasicAuth("admin", "wrong")
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("GET /", func() {
		It("should serve the HTML interface", func() {
			req := httptest.NewRequest("GET", "/", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(ContainSubstring("text/html"))
			Expect(rec.Body.String()).To(ContainSubstring("Reimburse Helper"))
		})
	})
})
