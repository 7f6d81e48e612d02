package httpapi

import (
	"time"

	"github.com/dmitrijs2005/evidencevault/internal/server/models"
)

type uploadResponse struct {
	EvidenceID        int64  `json:"evidenceId"`
	EvidenceVersionID int64  `json:"evidenceVersionId"`
	VersionNumber     int    `json:"versionNumber"`
	SHA256            string `json:"sha256Hash"`
	MD5               string `json:"md5Hash"`
}

type versionDTO struct {
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

type evidenceDTO struct {
	ID          int64        `json:"id"`
	CaseID      int64        `json:"caseId"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	CreatedAt   time.Time    `json:"createdAtUtc"`
	Versions    []versionDTO `json:"versions"`
}

type accessLogDTO struct {
	ID                int64     `json:"id"`
	EvidenceVersionID int64     `json:"evidenceVersionId"`
	AccessedByUserID  string    `json:"accessedByUserId"`
	AccessType        string    `json:"accessType"`
	AccessedAt        time.Time `json:"accessedAtUtc"`
}

type hashMatchDTO struct {
	EvidenceVersionID int64  `json:"evidenceVersionId"`
	EvidenceID        int64  `json:"evidenceId"`
	CaseID            int64  `json:"caseId"`
	VersionNumber     int    `json:"versionNumber"`
	OriginalFileName  string `json:"originalFileName"`
	SHA256            string `json:"sha256Hash"`
	MD5               string `json:"md5Hash"`
}

func toEvidenceDTOs(items []*models.EvidenceItem) []evidenceDTO {
	out := make([]evidenceDTO, 0, len(items))
	for _, it := range items {
		ev := it.Evidence
		d := evidenceDTO{
			ID:        ev.ID,
			CaseID:    ev.CaseID,
			Title:     ev.Title,
			CreatedAt: ev.CreatedAt,
			Versions:  make([]versionDTO, 0, len(it.Versions)),
		}
		if ev.Description != "" {
			desc := ev.Description
			d.Description = &desc
		}
		for _, v := range it.Versions {
			d.Versions = append(d.Versions, versionDTO{
				ID:               v.ID,
				VersionNumber:    v.VersionNumber,
				OriginalFileName: v.OriginalFileName,
				SHA256:           v.SHA256,
				MD5:              v.MD5,
				FileSizeBytes:    v.FileSizeBytes,
				MimeType:         v.MimeType,
				DeviceInfo:       v.DeviceInfo,
				UploadedByUserID: v.UploadedByUserID,
				UploadedAt:       v.UploadedAt,
			})
		}
		out = append(out, d)
	}
	return out
}

func toAccessLogDTOs(rows []*models.EvidenceAccessLog) []accessLogDTO {
	out := make([]accessLogDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, accessLogDTO{
			ID:                r.ID,
			EvidenceVersionID: r.EvidenceVersionID,
			AccessedByUserID:  r.AccessedByUserID,
			AccessType:        r.AccessType.String(),
			AccessedAt:        r.AccessedAt,
		})
	}
	return out
}

func toHashMatchDTOs(matches []*models.HashMatch) []hashMatchDTO {
	out := make([]hashMatchDTO, 0, len(matches))
	for _, m := range matches {
		out = append(out, hashMatchDTO{
			EvidenceVersionID: m.EvidenceVersionID,
			EvidenceID:        m.EvidenceID,
			CaseID:            m.CaseID,
			VersionNumber:     m.VersionNumber,
			OriginalFileName:  m.OriginalFileName,
			SHA256:            m.SHA256,
			MD5:               m.MD5,
		})
	}
	return out
}
