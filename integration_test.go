package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"map-artifact-registry/api"
	"map-artifact-registry/auth"
	"map-artifact-registry/config"
	"map-artifact-registry/orm"
	"map-artifact-registry/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testEnv struct {
	baseURL    string
	storageDir string
	verifier   *auth.Verifier
}

func configureServer(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	storageDir := t.TempDir()

	cfg, err := config.Load(appName,
		config.DefaultValue{Key: "log_level", Value: "debug"},
		config.DefaultValue{Key: "human_readable_output", Value: true},
		config.DefaultValue{Key: "persistence.type", Value: "filesystem"},
		config.DefaultValue{Key: "persistence.storage_dir", Value: storageDir},
		config.DefaultValue{Key: "database.type", Value: "memory"},
		config.DefaultValue{Key: "preview.type", Value: "memory"},
		config.DefaultValue{Key: "auth.jwt_secret", Value: "integration-secret-0123456789"},
	)
	require.NoError(t, err)

	records, err := orm.InitDB(ctx, cfg.Database)
	require.NoError(t, err)
	previews := initializePreviewCache(ctx, cfg.Preview)
	t.Cleanup(func() {
		_ = records.Close(ctx)
		_ = previews.Close()
	})

	server, err := registry.NewServer(
		initializeRegistryPersister(ctx, cfg.Persistence),
		records,
		previews,
		cfg.Upload,
	)
	require.NoError(t, err)

	verifier, err := auth.NewVerifier(cfg.Auth)
	require.NoError(t, err)

	httpServer := httptest.NewServer(api.NewHandler(server, verifier, cfg.Upload.MaxBytes).Router())
	t.Cleanup(httpServer.Close)

	return &testEnv{baseURL: httpServer.URL, storageDir: storageDir, verifier: verifier}
}

func (e *testEnv) request(
	t *testing.T,
	method, path, email, contentType string,
	body io.Reader,
) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.baseURL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if email != "" {
		token, err := e.verifier.Issue("sub-"+email, email, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func (e *testEnv) upload(t *testing.T, path, email string, fields map[string]string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="map.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return e.request(t, http.MethodPost, path, email, writer.FormDataContentType(), &body)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var value T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&value))

	return value
}

func TestEndToEnd(t *testing.T) {
	env := configureServer(t)

	resp := env.upload(t, "/api/images", "a@b.com", map[string]string{
		"name": "map1",
		"type": "generatedImage",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	generated := decode[orm.ArtifactRecord](t, resp)

	resp = env.upload(t, "/api/images", "a@b.com", map[string]string{"name": "plain"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	plain := decode[orm.ArtifactRecord](t, resp)

	t.Run("bytes land in the partitions on disk", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(generated.StoragePath, "/uploads/generated/"))
		assert.FileExists(t, filepath.Join(env.storageDir, filepath.FromSlash(generated.StoragePath)))

		assert.Equal(t, "/uploads", filepath.ToSlash(filepath.Dir(plain.StoragePath)))
		stored, err := os.ReadFile(filepath.Join(env.storageDir, filepath.FromSlash(plain.StoragePath)))
		require.NoError(t, err)
		assert.Equal(t, pngBytes, stored)
	})

	t.Run("queries split by category and owner", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, "/api/images/generated/mine", "a@b.com", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		mine := decode[[]orm.ArtifactRecord](t, resp)
		require.Len(t, mine, 1)
		assert.Equal(t, generated.ID, mine[0].ID)

		resp = env.request(t, http.MethodGet, "/api/images/other", "c@d.com", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		other := decode[[]orm.ArtifactRecord](t, resp)
		require.Len(t, other, 1)
		assert.Equal(t, plain.ID, other[0].ID)
	})

	t.Run("stored bytes are served", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, generated.StoragePath, "", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		content, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, content)
	})

	t.Run("direct save records an existing path", func(t *testing.T) {
		body := fmt.Sprintf(`{"storagePath":%q,"name":"copy"}`, generated.StoragePath)
		resp := env.request(t, http.MethodPost, "/api/images/generated/save", "u@x.com",
			"application/json", strings.NewReader(body))
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = env.request(t, http.MethodGet, "/api/images/generated/mine", "u@x.com", "", nil)
		mine := decode[[]orm.ArtifactRecord](t, resp)
		require.Len(t, mine, 1)
		assert.Equal(t, generated.StoragePath, mine[0].StoragePath)
	})
}

func TestHealthServerServing(t *testing.T) {
	port := freePort(t)
	server, err := startHealthServer(port)
	require.NoError(t, err)
	t.Cleanup(server.GracefulStop)

	conn, err := grpc.NewClient(
		fmt.Sprintf("localhost:%d", port),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: appName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func freePort(t *testing.T) int {
	t.Helper()

	listener, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	return port
}
