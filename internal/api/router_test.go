package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohits-web03/edudrive/internal/config"
	"github.com/rohits-web03/edudrive/internal/drive"
	"github.com/rohits-web03/edudrive/internal/notify"
	"github.com/rohits-web03/edudrive/internal/repositories"
	"github.com/rohits-web03/edudrive/internal/testutil"
)

const testSecret = "router-test-secret"

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
}

type client struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.Config{
		Port:      "0",
		JWTSecret: testSecret,
		Drive: config.DriveConfig{
			StorageLimit:      1 << 20,
			BandwidthLimit:    1 << 20,
			BandwidthWindow:   24 * time.Hour,
			WarnThresholds:    []int{80, 90},
			MaxFileSize:       64 << 10,
			BlockedExtensions: []string{".exe"},
			PresignTTL:        time.Minute,
			CopyPolicy:        "REQUEST",
		},
	}
	db := testutil.NewDB(t)
	bridge := notify.NewBridge(&notify.Recorder{}, zerolog.Nop())
	t.Cleanup(bridge.Wait)
	svc := drive.NewService(db, repositories.NewMemoryBlobStore(), bridge, cfg.Drive)
	return SetupRouter(cfg, svc, zerolog.Nop())
}

func newClient(t *testing.T, h http.Handler) *client {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": uuid.NewString(),
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return &client{t: t, handler: h, token: signed}
}

func (c *client) do(method, path string, body io.Reader, contentType string) (int, response) {
	c.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	var out response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (c *client) json(method, path, body string) (int, response) {
	return c.do(method, path, strings.NewReader(body), "application/json")
}

func (c *client) upload(name, content string, fields map[string]string) (int, response) {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(c.t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", name)
	require.NoError(c.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())
	return c.do(http.MethodPost, "/api/v1/drive/files", &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, r response) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.Data, &v))
	return v
}

type idOnly struct {
	ID uuid.UUID `json:"id"`
}

func TestRouter_HealthAndAuth(t *testing.T) {
	h := newTestRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	anon := &client{t: t, handler: h}
	status, _ := anon.do(http.MethodGet, "/api/v1/drive", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	forged := &client{t: t, handler: h, token: "not.a.jwt"}
	status, _ = forged.do(http.MethodGet, "/api/v1/drive", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := newClient(t, h).do(http.MethodGet, "/api/v1/drive", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
}

func TestRouter_FileLifecycle(t *testing.T) {
	h := newTestRouter(t)
	owner := newClient(t, h)

	status, body := owner.json(http.MethodPost, "/api/v1/drive/folders", `{"name":"Notes"}`)
	require.Equal(t, http.StatusCreated, status)
	folder := decode[idOnly](t, body)

	status, body = owner.upload("week1.txt", "limits and continuity", map[string]string{"folderId": folder.ID.String()})
	require.Equal(t, http.StatusCreated, status, body.Message)
	file := decode[struct{ File idOnly }](t, body).File

	// The same upload again is a duplicate unless the caller opts to skip.
	status, body = owner.upload("week1.txt", "limits and continuity", map[string]string{"folderId": folder.ID.String()})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_FOUND", body.Code)

	status, body = owner.upload("week1.txt", "limits and continuity", map[string]string{"duplicatePolicy": "skip"})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[drive.UploadResult](t, body).Skipped)

	status, body = owner.do(http.MethodGet, "/api/v1/drive/items?folderId="+folder.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, status)
	listing := decode[struct {
		Files []idOnly `json:"files"`
	}](t, body)
	require.Len(t, listing.Files, 1)
	assert.Equal(t, file.ID, listing.Files[0].ID)

	status, body = owner.do(http.MethodGet, "/api/v1/drive/files/"+file.ID.String()+"/download", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, decode[drive.DownloadResult](t, body).URL)

	stranger := newClient(t, h)
	status, body = stranger.do(http.MethodGet, "/api/v1/drive/files/"+file.ID.String()+"/download", nil, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body.Code)

	status, _ = owner.json(http.MethodPatch, "/api/v1/drive/files/"+file.ID.String(), `{"name":"week-1.txt","toRoot":true}`)
	require.Equal(t, http.StatusOK, status)

	status, _ = owner.do(http.MethodDelete, "/api/v1/drive/files/"+file.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, status)
	status, body = owner.do(http.MethodGet, "/api/v1/drive/files/"+file.ID.String()+"/download", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "FILE_NOT_FOUND", body.Code)

	status, _ = owner.do(http.MethodPost, "/api/v1/drive/files/"+file.ID.String()+"/restore", nil, "")
	require.Equal(t, http.StatusOK, status)

	status, body = owner.do(http.MethodGet, "/api/v1/drive/items", nil, "")
	require.Equal(t, http.StatusOK, status)
	root := decode[struct {
		Files []struct {
			Name string `json:"name"`
		} `json:"files"`
	}](t, body)
	require.Len(t, root.Files, 1)
	assert.Equal(t, "week-1.txt", root.Files[0].Name)
}

func TestRouter_RejectsBadInput(t *testing.T) {
	h := newTestRouter(t)
	c := newClient(t, h)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown field", http.MethodPost, "/api/v1/drive/folders", `{"name":"a","color":"red"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"missing name", http.MethodPost, "/api/v1/drive/folders", `{}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"traversal name", http.MethodPost, "/api/v1/drive/folders", `{"name":".."}`, http.StatusBadRequest, "INVALID_NAME"},
		{"bad id", http.MethodDelete, "/api/v1/drive/files/nope", ``, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown folder", http.MethodGet, "/api/v1/drive/items?folderId=" + uuid.NewString(), ``, http.StatusNotFound, "FOLDER_NOT_FOUND"},
		{"bad copy policy", http.MethodPatch, "/api/v1/drive", `{"allowCopying":"SOMETIMES"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"empty duplicate check", http.MethodPost, "/api/v1/drive/duplicates", `{"files":[]}`, http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := c.json(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
		})
	}

	status, body := c.upload("setup.exe", "MZ", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_FILE_TYPE", body.Code)
}

func TestRouter_CopyRequestFlow(t *testing.T) {
	h := newTestRouter(t)
	owner, requester := newClient(t, h), newClient(t, h)

	status, body := owner.upload("syllabus.pdf", "course outline", map[string]string{"isPublic": "true"})
	require.Equal(t, http.StatusCreated, status)
	file := decode[struct{ File idOnly }](t, body).File

	status, body = requester.json(http.MethodPost, "/api/v1/drive/files/"+file.ID.String()+"/copy-requests", `{}`)
	require.Equal(t, http.StatusAccepted, status)
	req := decode[struct{ Request idOnly }](t, body).Request

	status, body = owner.do(http.MethodGet, "/api/v1/drive/copy-requests", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]idOnly](t, body), 1)

	status, _ = requester.do(http.MethodPost, "/api/v1/drive/copy-requests/"+req.ID.String()+"/approve", nil, "")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = owner.do(http.MethodPost, "/api/v1/drive/copy-requests/"+req.ID.String()+"/approve", nil, "")
	require.Equal(t, http.StatusOK, status)

	status, body = requester.do(http.MethodGet, "/api/v1/drive/items", nil, "")
	require.Equal(t, http.StatusOK, status)
	listing := decode[struct {
		Files []idOnly `json:"files"`
	}](t, body)
	assert.Len(t, listing.Files, 1)
}
