package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/dmitrijs2005/evidencevault/internal/logging"
	"github.com/dmitrijs2005/evidencevault/internal/server/auth"
	"github.com/dmitrijs2005/evidencevault/internal/server/metrics"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

type fakeService struct {
	uploadCmd    *models.UploadCommand
	uploadCaller auth.Identity
	uploadRes    *models.UploadResult
	downloadType models.AccessType
	downloadRes  *models.DownloadResult
	items        []*models.EvidenceItem
	matches      []*models.HashMatch
	history      []*models.EvidenceAccessLog
	searched     string
	err          error
}

func (f *fakeService) Upload(ctx context.Context, c auth.Identity, cmd *models.UploadCommand) (*models.UploadResult, error) {
	f.uploadCmd, f.uploadCaller = cmd, c
	return f.uploadRes, f.err
}

func (f *fakeService) Download(ctx context.Context, c auth.Identity, id int64, t models.AccessType) (*models.DownloadResult, error) {
	f.downloadType = t
	return f.downloadRes, f.err
}

func (f *fakeService) ListByCase(ctx context.Context, c auth.Identity, id int64) ([]*models.EvidenceItem, error) {
	return f.items, f.err
}

func (f *fakeService) SearchByHash(ctx context.Context, c auth.Identity, h string) ([]*models.HashMatch, error) {
	f.searched = h
	return f.matches, f.err
}

func (f *fakeService) AccessHistory(ctx context.Context, c auth.Identity, id int64) ([]*models.EvidenceAccessLog, error) {
	return f.history, f.err
}

func newTestServer(t *testing.T, svc EvidenceService, opts Options) http.Handler {
	t.Helper()
	opts.Secret = testSecret
	s, err := NewServer(svc, metrics.New(), logging.Nop(), opts)
	require.NoError(t, err)
	return s.Handler()
}

func token(t *testing.T, roles ...auth.Role) string {
	t.Helper()
	tok, err := auth.GenerateToken("u-1", "ivan", roles, testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

type part struct {
	name, fileName, contentType, value string
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, p := range parts {
		if p.fileName == "" {
			require.NoError(t, mw.WriteField(p.name, p.value))
			continue
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.name, p.fileName))
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = io.WriteString(w, p.value)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func uploadRequest(t *testing.T, parts ...part) *http.Request {
	t.Helper()
	body, ct := multipartBody(t, parts...)
	req := httptest.NewRequest(http.MethodPost, "/evidence/upload", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", token(t, auth.RoleInvestigator))
	return req
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) Problem {
	t.Helper()
	assert.Equal(t, contentTypeProblem, rec.Header().Get("Content-Type"))
	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &fakeService{}, Options{Health: func(context.Context) error { return nil }})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h = newTestServer(t, &fakeService{}, Options{Health: func(context.Context) error { return errors.New("db down") }})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	h := newTestServer(t, &fakeService{}, Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Len(t, rec.Header().Get(common.RequestIDHeaderName), 36)
}

func TestAuthentication(t *testing.T) {
	h := newTestServer(t, &fakeService{}, Options{})

	for _, authz := range []string{"", "Bearer nope", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/evidence/case/1", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code, authz)
		p := decodeProblem(t, rec)
		assert.Equal(t, rec.Header().Get(common.RequestIDHeaderName), p.TraceID)
	}
}

func TestUpload_Success(t *testing.T) {
	svc := &fakeService{uploadRes: &models.UploadResult{EvidenceID: 3, EvidenceVersionID: 7, VersionNumber: 1, SHA256: "s", MD5: "m"}}
	h := newTestServer(t, svc, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t,
		part{name: "caseId", value: "1"},
		part{name: "title", value: "  Phone dump "},
		part{name: "file", fileName: "note.txt", contentType: "text/plain", value: "0123456789"},
	))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"evidenceId":3,"evidenceVersionId":7,"versionNumber":1,"sha256Hash":"s","md5Hash":"m"}`, rec.Body.String())

	require.NotNil(t, svc.uploadCmd)
	assert.Equal(t, int64(1), svc.uploadCmd.CaseID)
	assert.Nil(t, svc.uploadCmd.ExistingEvidenceID)
	assert.Equal(t, "Phone dump", svc.uploadCmd.Title)
	assert.Equal(t, "note.txt", svc.uploadCmd.FileName)
	assert.Equal(t, "text/plain", svc.uploadCmd.MimeType)
	assert.Equal(t, "Unknown", svc.uploadCmd.DeviceInfo)
	assert.Equal(t, []byte("0123456789"), svc.uploadCmd.Content)
	assert.Equal(t, "u-1", svc.uploadCaller.UserID)
}

func TestUpload_RejectedBeforeService(t *testing.T) {
	file := func(name, content string) part {
		return part{name: "file", fileName: name, contentType: "application/octet-stream", value: content}
	}
	tests := []struct {
		name    string
		parts   []part
		wantMsg string
	}{
		{"missing file", []part{{name: "caseId", value: "1"}, {name: "title", value: "t"}}, "File is required."},
		{"empty file", []part{{name: "caseId", value: "1"}, {name: "title", value: "t"}, file("a.txt", "")}, "File is required."},
		{"exe", []part{{name: "caseId", value: "1"}, {name: "title", value: "t"}, file("tool.exe", "MZ")}, "File type is not allowed."},
		{"uppercase ok ext but path", []part{{name: "caseId", value: "1"}, {name: "title", value: "t"}, file(`dir\a.TXT`, "x")}, "File name must not contain a path."},
		{"relative path", []part{{name: "caseId", value: "1"}, {name: "title", value: "t"}, file("../x.txt", "x")}, "File name must not contain a path."},
		{"traversal", []part{{name: "caseId", value: "1"}, {name: "title", value: "t"}, file("../../etc/note.txt", "x")}, "File name must not contain a path."},
		{"subdirectory", []part{{name: "caseId", value: "1"}, {name: "title", value: "t"}, file("dir/x.txt", "x")}, "File name must not contain a path."},
		{"script title", []part{{name: "caseId", value: "1"}, {name: "title", value: "<script>x</script>"}, file("a.txt", "x")}, "Title contains unsafe content."},
		{"missing title", []part{{name: "caseId", value: "1"}, file("a.txt", "x")}, "Title is required."},
		{"bad case", []part{{name: "caseId", value: "abc"}, {name: "title", value: "t"}, file("a.txt", "x")}, "CaseID must be a number."},
		{"zero case", []part{{name: "caseId", value: "0"}, {name: "title", value: "t"}, file("a.txt", "x")}, "CaseID must be greater than 0."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			h := newTestServer(t, svc, Options{})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, uploadRequest(t, tt.parts...))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			p := decodeProblem(t, rec)
			assert.Contains(t, p.Errors, tt.wantMsg)
			assert.Nil(t, svc.uploadCmd, "service must not be called")
		})
	}
}

func TestUpload_Oversize(t *testing.T) {
	svc := &fakeService{}
	h := newTestServer(t, svc, Options{MaxUploadBytes: 8})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t,
		part{name: "caseId", value: "1"},
		part{name: "title", value: "t"},
		part{name: "file", fileName: "a.txt", contentType: "text/plain", value: "0123456789"},
	))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.uploadCmd)
}

func TestDownload(t *testing.T) {
	svc := &fakeService{downloadRes: &models.DownloadResult{
		Content:  []byte("0123456789"),
		MimeType: "text/plain",
		FileName: "note.txt",
		SHA256:   "abc",
		MD5:      "def",
	}}
	h := newTestServer(t, svc, Options{})

	req := httptest.NewRequest(http.MethodGet, "/evidence/versions/7/download?accessType=analysis", nil)
	req.Header.Set("Authorization", token(t, auth.RoleForensicAnalyst))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0123456789", rec.Body.String())
	assert.Equal(t, "abc", rec.Header().Get(common.SHA256HeaderName))
	assert.Equal(t, "def", rec.Header().Get(common.MD5HeaderName))
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=note.txt`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, models.AccessAnalysis, svc.downloadType)
}

func TestDownload_DefaultAndInvalidAccessType(t *testing.T) {
	svc := &fakeService{downloadRes: &models.DownloadResult{MimeType: "text/plain", FileName: "a.txt"}}
	h := newTestServer(t, svc, Options{})

	req := httptest.NewRequest(http.MethodGet, "/evidence/versions/7/download", nil)
	req.Header.Set("Authorization", token(t, auth.RoleInvestigator))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.AccessDownload, svc.downloadType)

	req = httptest.NewRequest(http.MethodGet, "/evidence/versions/7/download?accessType=Print", nil)
	req.Header.Set("Authorization", token(t, auth.RoleInvestigator))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantDetail string
	}{
		{common.Errorf(common.ErrNotFound, "Evidence version not found."), http.StatusNotFound, "Evidence version not found."},
		{common.Errorf(common.ErrForbidden, "nope"), http.StatusForbidden, "nope"},
		{common.Errorf(common.ErrConflict, "retry"), http.StatusConflict, "retry"},
		{common.Errorf(common.ErrValidation, "bad hash"), http.StatusBadRequest, "bad hash"},
		{common.Errorf(common.ErrCrypto, "padding oracle details"), http.StatusInternalServerError, genericErrorDetail},
		{fmt.Errorf("pq: relation does not exist"), http.StatusInternalServerError, genericErrorDetail},
	}

	for _, tt := range tests {
		t.Run(tt.wantDetail, func(t *testing.T) {
			h := newTestServer(t, &fakeService{err: tt.err}, Options{})
			req := httptest.NewRequest(http.MethodGet, "/evidence/versions/9/download", nil)
			req.Header.Set("Authorization", token(t, auth.RoleInvestigator))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			p := decodeProblem(t, rec)
			assert.Equal(t, tt.wantStatus, p.Status)
			assert.Equal(t, tt.wantDetail, p.Detail)
			assert.NotNil(t, p.Errors)
		})
	}
}

func TestListByCase(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := &fakeService{items: []*models.EvidenceItem{{
		Evidence: &models.Evidence{ID: 3, CaseID: 1, Title: "Phone", CreatedAt: now},
		Versions: []*models.EvidenceVersion{{ID: 7, VersionNumber: 1, OriginalFileName: "note.txt", FileSizeBytes: 10, UploadedAt: now}},
	}}}
	h := newTestServer(t, svc, Options{})

	req := httptest.NewRequest(http.MethodGet, "/evidence/case/1", nil)
	req.Header.Set("Authorization", token(t, auth.RoleProsecutor))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []evidenceDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Description)
	require.Len(t, got[0].Versions, 1)
	assert.Equal(t, "note.txt", got[0].Versions[0].OriginalFileName)
}

func TestSearchAndAccessLog(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := &fakeService{
		matches: []*models.HashMatch{{EvidenceVersionID: 7, CaseID: 1}},
		history: []*models.EvidenceAccessLog{{ID: 1, EvidenceVersionID: 7, AccessedByUserID: "u-1", AccessType: models.AccessView, AccessedAt: now}},
	}
	h := newTestServer(t, svc, Options{})

	req := httptest.NewRequest(http.MethodGet, "/evidence/search?hash=ABCDEF", nil)
	req.Header.Set("Authorization", token(t, auth.RoleInvestigator))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ABCDEF", svc.searched)
	assert.Contains(t, rec.Body.String(), `"evidenceVersionId":7`)

	req = httptest.NewRequest(http.MethodGet, "/evidence/versions/7/access-log", nil)
	req.Header.Set("Authorization", token(t, auth.RoleInvestigator))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"accessType":"View"`)
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, &fakeService{}, Options{RateLimitRPS: 0.001, RateLimitBurst: 1})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	decodeProblem(t, rec)

	other := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	other.RemoteAddr = "10.0.0.9:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &fakeService{}, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `evidence_http_requests_total{code="200",route="/healthz"} 1`))
}

func TestNotFoundRoute(t *testing.T) {
	h := newTestServer(t, &fakeService{}, Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	decodeProblem(t, rec)
}
