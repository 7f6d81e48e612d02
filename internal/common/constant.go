package common

const (
	// SHA256HeaderName carries the stored SHA-256 digest on download responses.
	SHA256HeaderName = "X-Evidence-SHA256"

	// MD5HeaderName carries the stored MD5 digest on download responses.
	MD5HeaderName = "X-Evidence-MD5"

	// RequestIDHeaderName echoes the per-request trace id.
	RequestIDHeaderName = "X-Request-ID"

	// MaxUploadBytes is the upper bound for a single evidence file.
	MaxUploadBytes = 50_000_000
)
