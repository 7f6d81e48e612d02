package httpapi

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/dmitrijs2005/evidencevault/internal/server/auth"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
	"github.com/gorilla/mux"
)

const (
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 20

	defaultDeviceInfo = "Unknown"
)

// rawFileName returns the file name exactly as the client sent it.
// multipart.FileHeader.Filename has directory parts already stripped.
func rawFileName(h *multipart.FileHeader) string {
	_, params, err := mime.ParseMediaType(h.Header.Get("Content-Disposition"))
	if err != nil {
		return h.Filename
	}
	if name, ok := params["filename"]; ok {
		return name
	}
	return h.Filename
}

func (s *Server) maxUpload() int64 {
	if s.opts.MaxUploadBytes <= 0 || s.opts.MaxUploadBytes > common.MaxUploadBytes {
		return common.MaxUploadBytes
	}
	return s.opts.MaxUploadBytes
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil && id > 0
}

func caller(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		if err := s.opts.Health(r.Context()); err != nil {
			s.log.Warn(r.Context(), "health check failed", "error", err)
			writeProblem(w, r, http.StatusServiceUnavailable, "Service unavailable", "Database is not reachable.", nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload validates the multipart form before the service sees it:
// the file must be present, non-empty, within the size cap, have an allowed
// extension and a bare name.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.maxUpload()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
			badRequest(w, r, "File exceeds maximum allowed size (50 MB).")
			return
		}
		badRequest(w, r, "Request must be multipart/form-data.")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, r, "File is required.")
		return
	}
	defer file.Close()

	if header.Size == 0 {
		badRequest(w, r, "File is required.")
		return
	}
	if header.Size > limit {
		badRequest(w, r, "File exceeds maximum allowed size (50 MB).")
		return
	}

	form := uploadForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		DeviceInfo:  strings.TrimSpace(r.FormValue("deviceInfo")),
		FileName:    rawFileName(header),
		MimeType:    strings.TrimSpace(header.Header.Get("Content-Type")),
	}
	if form.DeviceInfo == "" {
		form.DeviceInfo = defaultDeviceInfo
	}

	var parseErrs []string
	if form.CaseID, err = strconv.ParseInt(r.FormValue("caseId"), 10, 64); err != nil {
		parseErrs = append(parseErrs, "CaseID must be a number.")
	}
	if raw := strings.TrimSpace(r.FormValue("existingEvidenceId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			parseErrs = append(parseErrs, "ExistingEvidenceID must be a number.")
		} else {
			form.ExistingEvidenceID = &id
		}
	}
	if len(parseErrs) > 0 {
		badRequest(w, r, parseErrs...)
		return
	}
	if err := s.validate.Struct(form); err != nil {
		badRequest(w, r, validationMessages(err)...)
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if int64(len(content)) > limit {
		badRequest(w, r, "File exceeds maximum allowed size (50 MB).")
		return
	}

	res, err := s.svc.Upload(r.Context(), caller(r), &models.UploadCommand{
		CaseID:             form.CaseID,
		ExistingEvidenceID: form.ExistingEvidenceID,
		Title:              form.Title,
		Description:        form.Description,
		FileName:           form.FileName,
		MimeType:           form.MimeType,
		DeviceInfo:         form.DeviceInfo,
		Content:            content,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		EvidenceID:        res.EvidenceID,
		EvidenceVersionID: res.EvidenceVersionID,
		VersionNumber:     res.VersionNumber,
		SHA256:            res.SHA256,
		MD5:               res.MD5,
	})
}

func (s *Server) handleListByCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := pathID(r, "caseId")
	if !ok {
		badRequest(w, r, "Case id must be positive.")
		return
	}

	items, err := s.svc.ListByCase(r.Context(), caller(r), caseID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvidenceDTOs(items))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	versionID, ok := pathID(r, "versionId")
	if !ok {
		badRequest(w, r, "Version id must be positive.")
		return
	}

	accessType := models.AccessDownload
	if raw := r.URL.Query().Get("accessType"); raw != "" {
		t, err := models.ParseAccessType(raw)
		if err != nil {
			badRequest(w, r, "accessType must be one of View, Download, Analysis.")
			return
		}
		accessType = t
	}

	res, err := s.svc.Download(r.Context(), caller(r), versionID, accessType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set(common.SHA256HeaderName, res.SHA256)
	h.Set(common.MD5HeaderName, res.MD5)
	h.Set("Content-Type", res.MimeType)
	h.Set("Content-Length", strconv.Itoa(len(res.Content)))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.FileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Content); err != nil {
		s.log.Warn(r.Context(), "download write failed", "version_id", versionID, "error", err)
	}
}

func (s *Server) handleAccessLog(w http.ResponseWriter, r *http.Request) {
	versionID, ok := pathID(r, "versionId")
	if !ok {
		badRequest(w, r, "Version id must be positive.")
		return
	}

	rows, err := s.svc.AccessHistory(r.Context(), caller(r), versionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccessLogDTOs(rows))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	matches, err := s.svc.SearchByHash(r.Context(), caller(r), r.URL.Query().Get("hash"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHashMatchDTOs(matches))
}
