package models

// StoredFile describes ciphertext written by the content store. Digests and
// size refer to the plaintext.
type StoredFile struct {
	Path      string
	SHA256    string
	MD5       string
	SizeBytes int64
	// IV is base64 encoded.
	IV string
}

// UploadCommand carries one upload request into the evidence service.
type UploadCommand struct {
	CaseID             int64
	ExistingEvidenceID *int64
	Title              string
	Description        string
	FileName           string
	MimeType           string
	DeviceInfo         string
	Content            []byte
}

// UploadResult confirms a stored version.
type UploadResult struct {
	EvidenceID        int64
	EvidenceVersionID int64
	VersionNumber     int
	SHA256            string
	MD5               string
}

// DownloadResult is decrypted content plus the digests recorded at upload.
type DownloadResult struct {
	Content  []byte
	MimeType string
	FileName string
	SHA256   string
	MD5      string
}
