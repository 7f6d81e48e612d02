// Package models defines server-side data models persisted in the database.
package models

import "time"

// Case is the investigation an evidence item belongs to. Only its existence
// matters to the evidence subsystem.
type Case struct {
	ID        int64
	Title     string
	CreatedAt time.Time
}

// Evidence is one logical item of evidence tied to exactly one case.
// Its case linkage never changes and rows are never deleted.
type Evidence struct {
	ID              int64
	CaseID          int64
	Title           string
	Description     string
	CreatedByUserID string
	CreatedAt       time.Time
}

// EvidenceVersion is an immutable snapshot of an evidence item's content.
type EvidenceVersion struct {
	ID               int64
	EvidenceID       int64
	VersionNumber    int
	OriginalFileName string
	// StoredFilePath is the content store locator of the ciphertext.
	StoredFilePath string
	SHA256         string
	MD5            string
	FileSizeBytes  int64
	MimeType       string
	// EncryptionIV is the base64 AES-CBC IV used for this version only.
	EncryptionIV     string
	DeviceInfo       string
	UploadedByUserID string
	UploadedAt       time.Time
}

// EvidenceItem is an evidence row with its versions, newest first.
type EvidenceItem struct {
	Evidence *Evidence
	Versions []*EvidenceVersion
}

// HashMatch is a version whose SHA-256 or MD5 matched a search.
type HashMatch struct {
	EvidenceVersionID int64
	EvidenceID        int64
	CaseID            int64
	VersionNumber     int
	OriginalFileName  string
	SHA256            string
	MD5               string
}
