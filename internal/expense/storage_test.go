package expense

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		It("should write the file and return its path", func() {
			savedPath, err := storage.Save("invoice.pdf", []byte("pdf content"))
			Expect(err).NotTo(HaveOccurred())
			Expect(savedPath).To(Equal("invoice.pdf"))
			Expect(filepath.Join(tmpDir, "invoice.pdf")).To(BeAnExistingFile())
		})
	})

	Describe("Get", func() {
		It("should read back saved content", func() {
			_, err := storage.Save("invoice.pdf", []byte("pdf content"))
			Expect(err).NotTo(HaveOccurred())

			data, err := storage.Get("invoice.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("pdf content")))
		})

		It("should fail for a missing file", func() {
			_, err := storage.Get("missing.pdf")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		It("should remove the file", func() {
			_, err := storage.Save("invoice.pdf", []byte("pdf content"))
			Expect(err).NotTo(HaveOccurred())

			Expect(storage.Delete("invoice.pdf")).To(Succeed())
			Expect(filepath.Join(tmpDir, "invoice.pdf")).NotTo(BeAnExistingFile())
		})

		It("should fail for a missing file", func() {
			Expect(storage.Delete("missing.pdf")).NotTo(Succeed())
		})
	})
})
