package expense

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	invoiceBucketName  = "invoices"
	billingBucketName  = "billings"
	ocrCacheBucketName = "ocr_cache"
)

// DB defines the persistence operations the service needs.
type DB interface {
	// SaveInvoice saves an invoice document.
	SaveInvoice(doc *InvoiceDocument) error

	// GetInvoice retrieves an invoice document by ID.
	GetInvoice(id string) (*InvoiceDocument, error)

	// ListInvoices returns all invoice documents in key order.
	ListInvoices() ([]*InvoiceDocument, error)

	// DeleteInvoice removes an invoice document.
	DeleteInvoice(id string) error

	// SaveBilling saves a billing document.
	SaveBilling(doc *BillingDocument) error

	// GetBilling retrieves a billing document by ID.
	GetBilling(id string) (*BillingDocument, error)

	// ListBillings returns all billing documents in key order.
	ListBillings() ([]*BillingDocument, error)

	// DeleteBilling removes a billing document.
	DeleteBilling(id string) error

	// GetCachedText returns previously recognized OCR text for a content
	// hash, or "" if none is cached.
	GetCachedText(hash string) (string, error)

	// SaveCachedText stores recognized OCR text under a content hash.
	SaveCachedText(hash, text string) error

	// Close closes the database.
	Close() error
}

// BoltDB implements DB using bbolt.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the database file and its buckets.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{invoiceBucketName, billingBucketName, ocrCacheBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveInvoice saves an invoice document.
func (b *BoltDB) SaveInvoice(doc *InvoiceDocument) error {
	return b.put(invoiceBucketName, doc.ID, doc)
}

// GetInvoice retrieves an invoice document by ID.
func (b *BoltDB) GetInvoice(id string) (*InvoiceDocument, error) {
	var doc *InvoiceDocument
	if err := b.get(invoiceBucketName, id, &doc, "invoice"); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListInvoices returns all invoice documents in key order. IDs are
// timestamp-derived, so key order is upload order.
func (b *BoltDB) ListInvoices() ([]*InvoiceDocument, error) {
	docs := make([]*InvoiceDocument, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(invoiceBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var doc InvoiceDocument
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("unmarshaling invoice: %w", err)
			}
			docs = append(docs, &doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// DeleteInvoice removes an invoice document.
func (b *BoltDB) DeleteInvoice(id string) error {
	return b.delete(invoiceBucketName, id)
}

// SaveBilling saves a billing document.
func (b *BoltDB) SaveBilling(doc *BillingDocument) error {
	return b.put(billingBucketName, doc.ID, doc)
}

// GetBilling retrieves a billing document by ID.
func (b *BoltDB) GetBilling(id string) (*BillingDocument, error) {
	var doc *BillingDocument
	if err := b.get(billingBucketName, id, &doc, "billing"); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListBillings returns all billing documents in key order.
func (b *BoltDB) ListBillings() ([]*BillingDocument, error) {
	docs := make([]*BillingDocument, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(billingBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var doc BillingDocument
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("unmarshaling billing: %w", err)
			}
			docs = append(docs, &doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// DeleteBilling removes a billing document.
func (b *BoltDB) DeleteBilling(id string) error {
	return b.delete(billingBucketName, id)
}

// GetCachedText returns cached OCR text for a content hash, "" on miss.
func (b *BoltDB) GetCachedText(hash string) (string, error) {
	var text string
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(ocrCacheBucketName))
		if data := bucket.Get([]byte(hash)); data != nil {
			text = string(data)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// SaveCachedText stores OCR text under a content hash.
func (b *BoltDB) SaveCachedText(hash, text string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(ocrCacheBucketName))
		return bucket.Put([]byte(hash), []byte(text))
	})
}

// Close closes the database.
func (b *BoltDB) Close() error {
	return b.db.Close()
}

func (b *BoltDB) put(bucketName, id string, doc any) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshaling document: %w", err)
		}
		return bucket.Put([]byte(id), data)
	})
}

func (b *BoltDB) get(bucketName, id string, out any, kind string) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%s not found: %s", kind, id)
		}
		return json.Unmarshal(data, out)
	})
}

func (b *BoltDB) delete(bucketName, id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.Delete([]byte(id))
	})
}
