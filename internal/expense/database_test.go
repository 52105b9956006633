package expense

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/finops-tools/reimburse-helper/internal/extract"
)

var _ = Describe("BoltDB", func() {
	var db *BoltDB

	BeforeEach(func() {
		dbPath := filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newInvoice := func(id string) *InvoiceDocument {
		return &InvoiceDocument{
			ID:             id,
			Filename:       "github-jan.pdf",
			StoredPath:     id + "_github-jan.pdf",
			ContentType:    "application/pdf",
			Vendor:         extract.GitHub,
			Paid:           decimal.RequireFromString("42.00"),
			ServiceStart:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			ServiceThrough: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			CreatedAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		}
	}

	newBilling := func(id string) *BillingDocument {
		return &BillingDocument{
			ID:          id,
			Filename:    "repay.png",
			StoredPath:  id + "_repay.png",
			ContentType: "image/png",
			Vendor:      extract.GitHub,
			USDAmount:   decimal.RequireFromString("42.00"),
			RMBAmount:   decimal.RequireFromString("301.14"),
			CreatedAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		}
	}

	Describe("invoice documents", func() {
		It("should round-trip a document including the exact decimal", func() {
			doc := newInvoice("inv-1")
			Expect(db.SaveInvoice(doc)).To(Succeed())

			got, err := db.GetInvoice("inv-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Vendor).To(Equal(extract.GitHub))
			Expect(got.Paid.Equal(doc.Paid)).To(BeTrue())
			Expect(got.ServiceStart.Equal(doc.ServiceStart)).To(BeTrue())
		})

		It("should fail to get a missing document", func() {
			_, err := db.GetInvoice("missing")
			Expect(err).To(MatchError(ContainSubstring("invoice not found")))
		})

		It("should list documents in key order", func() {
			Expect(db.SaveInvoice(newInvoice("inv-1"))).To(Succeed())
			Expect(db.SaveInvoice(newInvoice("inv-2"))).To(Succeed())

			docs, err := db.ListInvoices()
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
			Expect(docs[0].ID).To(Equal("inv-1"))
			Expect(docs[1].ID).To(Equal("inv-2"))
		})

		It("should delete a document", func() {
			Expect(db.SaveInvoice(newInvoice("inv-1"))).To(Succeed())
			Expect(db.DeleteInvoice("inv-1")).To(Succeed())

			_, err := db.GetInvoice("inv-1")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("billing documents", func() {
		It("should round-trip a document with both amounts", func() {
			doc := newBilling("bil-1")
			Expect(db.SaveBilling(doc)).To(Succeed())

			got, err := db.GetBilling("bil-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.USDAmount.Equal(doc.USDAmount)).To(BeTrue())
			Expect(got.RMBAmount.Equal(doc.RMBAmount)).To(BeTrue())
		})

		It("should list and delete documents", func() {
			Expect(db.SaveBilling(newBilling("bil-1"))).To(Succeed())

			docs, err := db.ListBillings()
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))

			Expect(db.DeleteBilling("bil-1")).To(Succeed())
			docs, err = db.ListBillings()
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
		})
	})

	Describe("OCR cache", func() {
		It("should return empty text on a miss", func() {
			text, err := db.GetCachedText("deadbeef")
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(BeEmpty())
		})

		It("should round-trip cached text", func() {
			Expect(db.SaveCachedText("deadbeef", "GitHub\n￥301.14已入账")).To(Succeed())

			text, err := db.GetCachedText("deadbeef")
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("GitHub\n￥301.14已入账"))
		})
	})
})
