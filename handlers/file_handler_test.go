package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_ingest_backend/config"
	"go_ingest_backend/handlers"
	"go_ingest_backend/models"
	"go_ingest_backend/parsers"
	"go_ingest_backend/platform/cache"
	"go_ingest_backend/platform/events"
	"go_ingest_backend/platform/fanout"
	"go_ingest_backend/platform/storage"
	"go_ingest_backend/repository"
	"go_ingest_backend/routes"
	"go_ingest_backend/services"
	"go_ingest_backend/testutil"
)

type testServer struct {
	app     *fiber.App
	store   *testutil.MemoryFileStore
	bus     events.Bus
	gateway *fanout.Gateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	_, rsvc := testutil.NewRedis(t)
	c := cache.NewCacheService(cache.InitL1Cache(), rsvc, &cache.Config{L1TTL: time.Millisecond})
	store := testutil.NewMemoryFileStore()
	repo := repository.NewFilesRepository(store, c, time.Hour, nil)
	bus := events.NewRedisBus(rsvc.Rdb, nil)

	objects, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	worker := services.NewProcessingService(repo, bus, parsers.NewRegistry(objects), 2, nil)
	require.NoError(t, worker.Start(ctx))
	t.Cleanup(func() { _ = worker.Stop() })

	gw := fanout.NewGateway(bus, fanout.NewRegistry(16, nil), nil, 50*time.Millisecond)
	require.NoError(t, gw.Start(ctx))
	t.Cleanup(func() { _ = gw.Stop() })

	cfg := &config.Config{
		MaxFileSize:      1 << 20,
		AllowedMimeTypes: []string{parsers.MimeCSV, parsers.MimeJSON},
	}
	uploads := services.NewUploadService(repo, objects, bus, cfg)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Get("/health", handlers.Health)
	routes.RegisterFileRoutes(app, handlers.NewFileHandler(uploads, worker))
	routes.RegisterEventRoutes(app, handlers.NewEventsHandler(gw))

	return &testServer{app: app, store: store, bus: bus, gateway: gw}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	return resp.StatusCode, env
}

func (s *testServer) get(t *testing.T, path string) (int, envelope) {
	t.Helper()
	return s.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func uploadRequest(t *testing.T, field, filename, contentType, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = io.WriteString(part, body)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func (s *testServer) upload(t *testing.T, filename, body string) string {
	t.Helper()
	status, env := s.do(t, uploadRequest(t, "file", filename, "text/csv", body))
	require.Equal(t, fiber.StatusCreated, status, env.Error)

	var resp models.UploadResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, models.StatusPending, resp.Status)
	return resp.FileID
}

func (s *testServer) waitCompleted(t *testing.T, id string) {
	t.Helper()
	testutil.Eventually(t, 3*time.Second, func() bool {
		rec, err := s.store.GetByID(context.Background(), id)
		return err == nil && rec.Status == models.StatusCompleted
	})
}

const people = "name,age,city\nann,31,Berlin\nbob,42,Bern\ncid,25,Paris\ndee,42,Basel\n"

func TestUploadAndReadBack(t *testing.T) {
	s := newTestServer(t)
	id := s.upload(t, "people.csv", people)
	s.waitCompleted(t, id)

	status, env := s.get(t, "/api/status/"+id)
	require.Equal(t, fiber.StatusOK, status)
	var view services.FileStatusView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, models.StatusCompleted, view.Status)
	assert.Equal(t, "people.csv", view.OriginalName)

	status, env = s.get(t, "/api/data/"+id)
	require.Equal(t, fiber.StatusOK, status)
	var data services.ProcessedDataView
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotNil(t, data.ProcessedData)
	assert.Equal(t, 4, data.ProcessedData.Summary.RowCount)
	assert.Equal(t, []string{"name", "age", "city"}, data.ProcessedData.Columns)

	status, env = s.get(t, "/api/files/"+id)
	require.Equal(t, fiber.StatusOK, status)
	var rec models.FileRecord
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "text/csv", rec.MimeType)
}

func TestRowsFilterAndOrderedSort(t *testing.T) {
	s := newTestServer(t)
	id := s.upload(t, "people.csv", people)
	s.waitCompleted(t, id)

	q := url.Values{}
	q.Set("query", `{"city":"^b"}`)
	q.Set("sort", `{"age":-1,"name":1}`)
	status, env := s.get(t, "/api/files/"+id+"/data?"+q.Encode())
	require.Equal(t, fiber.StatusOK, status, env.Error)

	var page models.RowPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 3, page.Total)
	names := make([]any, 0, len(page.Data))
	for _, row := range page.Data {
		names = append(names, row["name"])
	}
	assert.Equal(t, []any{"bob", "dee", "ann"}, names)
	assert.Contains(t, page.Schema, "age")

	// reversed key order sorts by name first
	q.Set("sort", `{"name":-1,"age":-1}`)
	_, env = s.get(t, "/api/files/"+id+"/data?"+q.Encode())
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, "dee", page.Data[0]["name"])
}

func TestRowsRejectsBadParams(t *testing.T) {
	s := newTestServer(t)
	id := s.upload(t, "people.csv", people)
	s.waitCompleted(t, id)

	for _, raw := range []string{
		"sort=" + url.QueryEscape(`{"age":2}`),
		"sort=" + url.QueryEscape(`["age"]`),
		"query=" + url.QueryEscape(`{"city":"(("}`),
		"query=notjson",
		"page=0",
		"limit=abc",
	} {
		status, env := s.get(t, "/api/files/"+id+"/data?"+raw)
		assert.Equal(t, fiber.StatusBadRequest, status, raw)
		assert.False(t, env.Success)
		assert.NotEmpty(t, env.Error)
	}
}

func TestUploadRejections(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, uploadRequest(t, "other", "a.csv", "text/csv", "a\n1\n"))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, env.Error, "No file provided")

	status, env = s.do(t, uploadRequest(t, "file", "a.pdf", "application/pdf", "%PDF"))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Unsupported file type", env.Error)
	assert.False(t, env.Success)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	s := newTestServer(t)
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, s.upload(t, fmt.Sprintf("f%d.csv", i), "a\n1\n"))
	}

	status, env := s.get(t, "/api/files?page=1&limit=2")
	require.Equal(t, fiber.StatusOK, status)
	var body struct {
		Files      []models.FileRecord `json:"files"`
		Pagination models.Pagination   `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	require.Len(t, body.Files, 2)
	assert.Equal(t, ids[2], body.Files[0].ID)
	assert.Equal(t, ids[1], body.Files[1].ID)
	assert.Equal(t, int64(3), body.Pagination.Total)
	assert.Equal(t, int64(2), body.Pagination.TotalPages)
}

func TestDeleteThenNotFound(t *testing.T) {
	s := newTestServer(t)
	id := s.upload(t, "a.csv", "a\n1\n")
	s.waitCompleted(t, id)

	status, env := s.do(t, httptest.NewRequest(http.MethodDelete, "/api/files/"+id, nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)

	status, env = s.get(t, "/api/files/"+id)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.False(t, env.Success)

	status, _ = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/files/"+id, nil))
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRetryEndpoint(t *testing.T) {
	s := newTestServer(t)
	id := s.upload(t, "a.csv", "a\n1\n")
	s.waitCompleted(t, id)

	status, env := s.do(t, httptest.NewRequest(http.MethodPost, "/api/retry/"+id, nil))
	assert.Equal(t, fiber.StatusAccepted, status)
	assert.True(t, env.Success)
	s.waitCompleted(t, id)

	status, _ = s.do(t, httptest.NewRequest(http.MethodPost, "/api/retry/missing", nil))
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestPersistenceFailureIs500(t *testing.T) {
	s := newTestServer(t)
	s.store.FailWith(assert.AnError)

	status, env := s.get(t, "/api/files/any")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", env.Error)
}

func TestConnectionCounts(t *testing.T) {
	s := newTestServer(t)
	reg := s.gateway.Registry()
	reg.Add("f1")
	reg.Add("f1")
	reg.Add(fanout.AllKey)

	status, env := s.get(t, "/connections/f1")
	require.Equal(t, fiber.StatusOK, status)
	var one models.ConnectionStats
	require.NoError(t, json.Unmarshal(env.Data, &one))
	assert.Equal(t, models.ConnectionStats{FileID: "f1", Connections: 2}, one)

	_, env = s.get(t, "/connections")
	var all models.GlobalConnectionStats
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Equal(t, models.GlobalConnectionStats{GlobalConnections: 1, FileConnections: 2}, all)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
