// Package ocr turns repayment screenshots into raw text. The extractor
// downstream only needs a faithful transcription; which vision backend
// produced it is invisible to the rest of the system.
package ocr

import "strings"

// TextRecognizer transcribes all visible text from a screenshot or photo.
type TextRecognizer interface {
	// RecognizeText returns the raw text content of the image.
	RecognizeText(imageData []byte, contentType string) (string, error)
	// Close releases backend resources.
	Close() error
}

// transcribePrompt asks vision models for a verbatim transcription. Keyword
// and amount extraction happen downstream against this raw text, so the
// model must not summarize or reformat.
const transcribePrompt = `Transcribe ALL text visible in this image, exactly as written, top to bottom.

Rules:
- Output one line of transcribed text per visual line in the image
- Preserve every character including currency symbols (￥, $), punctuation and numbers
- Do not translate, summarize, annotate or reorder anything
- Do not wrap the output in markdown code blocks
- Output nothing except the transcribed text`

// cleanResponse strips the markdown fences some models insist on adding.
func cleanResponse(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
