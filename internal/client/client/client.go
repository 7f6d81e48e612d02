package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/evidencevault/internal/client/models"
	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/dmitrijs2005/evidencevault/internal/netx"
)

// HTTPClient talks to one evidence server with one bearer token.
type HTTPClient struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

func NewHTTPClient(baseURL, token string, timeout time.Duration) (*HTTPClient, error) {
	u, err := netx.ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{
		baseURL: u,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPClient) endpoint(path string, q url.Values) string {
	u := *c.baseURL
	u.Path = u.Path + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(body, &apiErr.Problem); err != nil {
		apiErr.Problem.Title = http.StatusText(resp.StatusCode)
	}
	return nil, apiErr
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, q), nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

// Ping checks /healthz.
func (c *HTTPClient) Ping(ctx context.Context) error {
	var out map[string]string
	return c.getJSON(ctx, "/healthz", nil, &out)
}

// Upload sends one file as a multipart form.
func (c *HTTPClient) Upload(ctx context.Context, u models.Upload) (*models.UploadResult, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	fields := [][2]string{
		{"caseId", strconv.FormatInt(u.CaseID, 10)},
		{"title", u.Title},
		{"description", u.Description},
		{"deviceInfo", u.DeviceInfo},
	}
	if u.ExistingEvidenceID != nil {
		fields = append(fields, [2]string{"existingEvidenceId", strconv.FormatInt(*u.ExistingEvidenceID, 10)})
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, err
		}
	}

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": "file", "filename": u.FileName}))
	ct := u.MimeType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(u.Content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/evidence/upload", nil), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out models.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListByCase(ctx context.Context, caseID int64) ([]models.Evidence, error) {
	var out []models.Evidence
	if err := c.getJSON(ctx, fmt.Sprintf("/evidence/case/%d", caseID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) SearchByHash(ctx context.Context, hash string) ([]models.HashMatch, error) {
	var out []models.HashMatch
	if err := c.getJSON(ctx, "/evidence/search", url.Values{"hash": {hash}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) AccessLog(ctx context.Context, versionID int64) ([]models.AccessEntry, error) {
	var out []models.AccessEntry
	if err := c.getJSON(ctx, fmt.Sprintf("/evidence/versions/%d/access-log", versionID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Download fetches a version and checks the body against the SHA-256 header.
// A mismatch returns ErrIntegrity together with the received content.
func (c *HTTPClient) Download(ctx context.Context, versionID int64, accessType string) (*models.Download, error) {
	var q url.Values
	if accessType != "" {
		q = url.Values{"accessType": {accessType}}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(fmt.Sprintf("/evidence/versions/%d/download", versionID), q), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(io.LimitReader(resp.Body, common.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}

	d := &models.Download{
		Content:  content,
		MimeType: resp.Header.Get("Content-Type"),
		SHA256:   resp.Header.Get(common.SHA256HeaderName),
		MD5:      resp.Header.Get(common.MD5HeaderName),
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		d.FileName = params["filename"]
	}

	sum := sha256.Sum256(content)
	if !strings.EqualFold(hex.EncodeToString(sum[:]), d.SHA256) {
		return d, fmt.Errorf("%w: sha256 header %q does not match received content", ErrIntegrity, d.SHA256)
	}
	return d, nil
}
