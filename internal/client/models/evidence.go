// Package models holds the client-side view of the evidence API payloads.
package models

import "time"

// Upload is one file to send.
type Upload struct {
	CaseID             int64
	ExistingEvidenceID *int64
	Title              string
	Description        string
	DeviceInfo         string
	FileName           string
	MimeType           string
	Content            []byte
}

type UploadResult struct {
	EvidenceID        int64  `json:"evidenceId"`
	EvidenceVersionID int64  `json:"evidenceVersionId"`
	VersionNumber     int    `json:"versionNumber"`
	SHA256            string `json:"sha256Hash"`
	MD5               string `json:"md5Hash"`
}

type Version struct {
	ID               int64     `json:"id"`
	VersionNumber    int       `json:"versionNumber"`
	OriginalFileName string    `json:"originalFileName"`
	SHA256           string    `json:"sha256Hash"`
	MD5              string    `json:"md5Hash"`
	FileSizeBytes    int64     `json:"fileSizeBytes"`
	MimeType         string    `json:"mimeType"`
	DeviceInfo       string    `json:"deviceInfo"`
	UploadedByUserID string    `json:"uploadedByUserId"`
	UploadedAt       time.Time `json:"uploadedAtUtc"`
}

type Evidence struct {
	ID          int64     `json:"id"`
	CaseID      int64     `json:"caseId"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAtUtc"`
	Versions    []Version `json:"versions"`
}

type AccessEntry struct {
	ID                int64     `json:"id"`
	EvidenceVersionID int64     `json:"evidenceVersionId"`
	AccessedByUserID  string    `json:"accessedByUserId"`
	AccessType        string    `json:"accessType"`
	AccessedAt        time.Time `json:"accessedAtUtc"`
}

type HashMatch struct {
	EvidenceVersionID int64  `json:"evidenceVersionId"`
	EvidenceID        int64  `json:"evidenceId"`
	CaseID            int64  `json:"caseId"`
	VersionNumber     int    `json:"versionNumber"`
	OriginalFileName  string `json:"originalFileName"`
	SHA256            string `json:"sha256Hash"`
	MD5               string `json:"md5Hash"`
}

// Download is a fetched version with the server's digest headers.
type Download struct {
	Content  []byte
	MimeType string
	FileName string
	SHA256   string
	MD5      string
}
