package audit

import "errors"

var (
	// ErrNoPrimarySource indicates neither a document nor a package was selected.
	ErrNoPrimarySource = errors.New("no primary source selected")
	// ErrExtraction wraps decoder and archive failures on user files.
	ErrExtraction = errors.New("content extraction failed")
	// ErrModelCall wraps transport and API failures of the generative model.
	ErrModelCall = errors.New("model call failed")
	// ErrMalformedResponse indicates the model reply does not match the result schema.
	ErrMalformedResponse = errors.New("malformed audit response")
	ErrEmptyMessage      = errors.New("message is required")
)

// User-facing messages.
const (
	MessageNoSource    = "Pilih salah satu sumber utama: PDF atau SCORM."
	MessageAuditFailed = "Gagal memproses audit. Silakan periksa format file Anda."
	FallbackReply      = "Koneksi terputus."
	DefaultAssetName   = "Aset Pembelajaran"
)
