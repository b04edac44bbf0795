package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"map-artifact-registry/auth"
	"map-artifact-registry/config"
	"map-artifact-registry/orm"
	"map-artifact-registry/preview"
	"map-artifact-registry/registry"
	"map-artifact-registry/registry/memoryRegistry"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	gifBytes = []byte("GIF89a\x01\x00\x01\x00")
)

type testAPI struct {
	router   *gin.Engine
	verifier *auth.Verifier
	store    *memoryRegistry.MemoryRegistry
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memoryRegistry.New()
	server, err := registry.NewServer(
		store,
		orm.NewMemoryRepository(),
		preview.NewMemoryCache(time.Minute),
		config.UploadConfig{
			GeneralPrefix:    "uploads",
			GeneratedPrefix:  "uploads/generated",
			AllowedMimeTypes: []string{"image/png", "image/jpeg"},
			MaxBytes:         1 << 10,
		},
	)
	require.NoError(t, err)

	verifier, err := auth.NewVerifier(config.AuthConfig{JWTSecret: "0123456789abcdef0123456789abcdef"})
	require.NoError(t, err)

	return &testAPI{
		router:   NewHandler(server, verifier, 1<<10).Router(),
		verifier: verifier,
		store:    store,
	}
}

func (a *testAPI) token(t *testing.T, email string) string {
	t.Helper()

	token, err := a.verifier.Issue("sub-"+email, email, time.Minute)
	require.NoError(t, err)

	return token
}

func (a *testAPI) do(t *testing.T, req *http.Request, email string) *httptest.ResponseRecorder {
	t.Helper()

	if email != "" {
		req.Header.Set("Authorization", "Bearer "+a.token(t, email))
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	return rec
}

func multipartRequest(
	t *testing.T,
	target string,
	fields map[string]string,
	filename, contentType string,
	content []byte,
) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	return req
}

func decodeRecord(t *testing.T, rec *httptest.ResponseRecorder) orm.ArtifactRecord {
	t.Helper()

	var record orm.ArtifactRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))

	return record
}

func decodeRecords(t *testing.T, rec *httptest.ResponseRecorder) []orm.ArtifactRecord {
	t.Helper()

	var records []orm.ArtifactRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))

	return records
}

func TestUploadAndList(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, multipartRequest(t, "/api/images",
		map[string]string{"name": "map1", "type": "generatedImage"},
		"map.png", "image/png", pngBytes,
	), "a@b.com")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	record := decodeRecord(t, rec)
	assert.Equal(t, "map1", record.Name)
	assert.Equal(t, orm.CategoryGenerated, record.Category)
	assert.True(t, record.IsOwnedBy("a@b.com"))
	assert.True(t, strings.HasPrefix(record.StoragePath, "/uploads/generated/"))

	rec = a.do(t, multipartRequest(t, "/api/images",
		map[string]string{"name": "photo", "type": "other"},
		"photo.png", "image/png", pngBytes,
	), "c@d.com")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tests := []struct {
		path  string
		email string
		names []string
	}{
		{"/api/images", "a@b.com", []string{"map1", "photo"}},
		{"/api/images/generated", "c@d.com", []string{"map1"}},
		{"/api/images/generated/mine", "a@b.com", []string{"map1"}},
		{"/api/images/generated/mine", "c@d.com", []string{}},
		{"/api/images/other", "a@b.com", []string{"photo"}},
		{"/api/images/other/mine", "c@d.com", []string{"photo"}},
		{"/api/images/other/mine", "a@b.com", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.path+" as "+tt.email, func(t *testing.T) {
			rec := a.do(t, httptest.NewRequest(http.MethodGet, tt.path, nil), tt.email)
			require.Equal(t, http.StatusOK, rec.Code)

			names := []string{}
			for _, r := range decodeRecords(t, rec) {
				names = append(names, r.Name)
			}
			assert.ElementsMatch(t, tt.names, names)
		})
	}

	t.Run("stored bytes are served", func(t *testing.T) {
		rec := a.do(t, httptest.NewRequest(http.MethodGet, record.StoragePath, nil), "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, pngBytes, rec.Body.Bytes())
	})
}

func TestUploadGenerated(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, multipartRequest(t, "/api/images/generated",
		map[string]string{"name": "gen"},
		"gen.png", "image/png", pngBytes,
	), "a@b.com")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	record := decodeRecord(t, rec)
	assert.Equal(t, orm.CategoryGenerated, record.Category)
	assert.True(t, strings.HasPrefix(record.StoragePath, "/uploads/generated/"))
}

func TestUploadErrors(t *testing.T) {
	a := newTestAPI(t)

	t.Run("gif is unsupported", func(t *testing.T) {
		rec := a.do(t, multipartRequest(t, "/api/images",
			map[string]string{"name": "anim", "type": "generatedImage"},
			"anim.gif", "image/gif", gifBytes,
		), "a@b.com")

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		assert.Contains(t, rec.Body.String(), "message")
		assert.Zero(t, a.store.Count())

		list := a.do(t, httptest.NewRequest(http.MethodGet, "/api/images", nil), "a@b.com")
		assert.Empty(t, decodeRecords(t, list))
	})

	t.Run("too large", func(t *testing.T) {
		big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, 2<<10)...)
		rec := a.do(t, multipartRequest(t, "/api/images",
			map[string]string{"name": "big"},
			"big.png", "image/png", big,
		), "a@b.com")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing image field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/images", strings.NewReader("name=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := a.do(t, req, "a@b.com")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := a.do(t, multipartRequest(t, "/api/images",
			map[string]string{"name": "map"},
			"map.png", "image/png", pngBytes,
		), "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Zero(t, a.store.Count())
	})
}

func TestDirectSave(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, jsonRequest(t, http.MethodPost, "/api/images/generated/save", map[string]string{
		"storagePath": "/x.png",
		"name":        "m",
		"owner":       "spoofed@evil.com",
	}), "u@x.com")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	record := decodeRecord(t, rec)
	assert.Equal(t, orm.CategoryGenerated, record.Category)
	assert.True(t, record.IsOwnedBy("u@x.com"))
	assert.Equal(t, "/x.png", record.StoragePath)

	list := a.do(t, httptest.NewRequest(http.MethodGet, "/api/images/generated/mine", nil), "u@x.com")
	require.Equal(t, http.StatusOK, list.Code)
	assert.Len(t, decodeRecords(t, list), 1)

	t.Run("missing path", func(t *testing.T) {
		rec := a.do(t, jsonRequest(t, http.MethodPost, "/api/images/generated/save", map[string]string{
			"name": "m",
		}), "u@x.com")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPreviews(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, multipartRequest(t, "/api/previews", nil, "gen.png", "image/png", pngBytes), "a@b.com")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var staged preview.Preview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &staged))
	require.NotEmpty(t, staged.ID)
	assert.NotContains(t, rec.Body.String(), "content")

	t.Run("owner can fetch", func(t *testing.T) {
		rec := a.do(t, httptest.NewRequest(http.MethodGet, "/api/previews/"+staged.ID, nil), "a@b.com")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, pngBytes, rec.Body.Bytes())
	})

	t.Run("others are forbidden", func(t *testing.T) {
		rec := a.do(t, jsonRequest(t, http.MethodPost, "/api/previews/"+staged.ID+"/save",
			map[string]string{"name": "stolen"}), "c@d.com")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("save promotes", func(t *testing.T) {
		rec := a.do(t, jsonRequest(t, http.MethodPost, "/api/previews/"+staged.ID+"/save",
			map[string]string{"name": "My map"}), "a@b.com")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		record := decodeRecord(t, rec)
		assert.Equal(t, "My map", record.Name)
		assert.Equal(t, orm.CategoryGenerated, record.Category)
		assert.Equal(t, 1, a.store.Count())
	})

	t.Run("promoted preview is gone", func(t *testing.T) {
		rec := a.do(t, httptest.NewRequest(http.MethodDelete, "/api/previews/"+staged.ID, nil), "a@b.com")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("discard", func(t *testing.T) {
		rec := a.do(t, multipartRequest(t, "/api/previews", nil, "gen.png", "image/png", pngBytes), "a@b.com")
		require.Equal(t, http.StatusCreated, rec.Code)
		var p preview.Preview
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

		rec = a.do(t, httptest.NewRequest(http.MethodDelete, "/api/previews/"+p.ID, nil), "a@b.com")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestServeArtifactErrors(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, httptest.NewRequest(http.MethodGet, "/uploads/missing.png", nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, httptest.NewRequest(http.MethodGet, "/uploads/generated/nested/x.png", nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = a.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "map_registry_http_request_duration_seconds")
}
