package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/sakif/resumatch/internal/auth"
	"github.com/sakif/resumatch/internal/preprocess/pdftest"
	"github.com/sakif/resumatch/internal/server"
)

type fakeRenderer struct{}

func (fakeRenderer) RenderFirstPage(ctx context.Context, pdf []byte) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 16, 16)), nil
}

type fakeModels struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: "Match: 85%"}}}}},
	}, nil
}

func (f *fakeModels) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeModels) {
	t.Helper()
	models := &fakeModels{}
	srv, err := server.New(server.Config{
		DBPath:        ":memory:",
		SessionSecret: "0123456789abcdef0123",
		JPEGQuality:   75,
	}, server.Deps{
		Renderer:  fakeRenderer{},
		Models:    models,
		Passwords: auth.NewPasswordServiceForTest(1000),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, models
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, c *http.Client, url, body string) *http.Response {
	t.Helper()
	resp, err := c.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func upload(t *testing.T, c *http.Client, url, name string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("resume", name)
	require.NoError(t, err)
	_, _ = fw.Write(data)
	require.NoError(t, mw.Close())

	resp, err := c.Post(url, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestServer_ProtectedRoutesNeedLogin(t *testing.T) {
	ts, models := newTestServer(t)
	c := newClient(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/me"},
		{http.MethodGet, "/api/resumes"},
		{http.MethodPost, "/api/resumes/1/use"},
		{http.MethodDelete, "/api/resumes/1"},
		{http.MethodPost, "/api/assess/review"},
	} {
		req, _ := http.NewRequest(tc.method, ts.URL+tc.path, nil)
		resp, err := c.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
	assert.Zero(t, models.count())
}

func TestServer_EndToEnd(t *testing.T) {
	ts, models := newTestServer(t)
	c := newClient(t)

	resp := postJSON(t, c, ts.URL+"/api/signup", `{"email":"a@x.com","password":"pw1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, c, ts.URL+"/api/signup", `{"email":"a@x.com","password":"pw2"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = postJSON(t, c, ts.URL+"/api/login", `{"email":"a@x.com","password":"pw2"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, c, ts.URL+"/api/login", `{"email":"a@x.com","password":"pw1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Nothing loaded yet: the model must not be called.
	resp = postJSON(t, c, ts.URL+"/api/assess/review", `{"job_description":"Go developer"}`)
	require.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	assert.Zero(t, models.count())

	pdf := pdftest.Document(1)
	resp = upload(t, c, ts.URL+"/api/resumes", "cv.pdf", pdf)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var up struct {
		Resume struct {
			ID int64 `json:"id"`
		} `json:"resume"`
		Created bool `json:"created"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&up))
	assert.True(t, up.Created)

	// Same name and bytes: one row.
	resp = upload(t, c, ts.URL+"/api/resumes", "cv.pdf", pdf)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := c.Get(ts.URL + "/api/resumes")
	require.NoError(t, err)
	defer resp.Body.Close()
	var page struct {
		Items []struct {
			ID       int64  `json:"id"`
			FileName string `json:"file_name"`
		} `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "cv.pdf", page.Items[0].FileName)

	resp = postJSON(t, c, ts.URL+"/api/assess/match", `{"job_description":"Go developer"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Match: 85%", out["response"])
	assert.Equal(t, 1, models.count())

	// Deleting the loaded résumé unloads it.
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/resumes/"+jsonNumber(up.Resume.ID), nil)
	dresp, err := c.Do(req)
	require.NoError(t, err)
	dresp.Body.Close()
	require.Equal(t, http.StatusNoContent, dresp.StatusCode)

	resp = postJSON(t, c, ts.URL+"/api/assess/review", `{"job_description":"Go developer"}`)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	assert.Equal(t, 1, models.count())

	resp = postJSON(t, c, ts.URL+"/api/logout", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	meResp, err := c.Get(ts.URL + "/api/me")
	require.NoError(t, err)
	meResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, meResp.StatusCode)
}

func TestServer_UsersCannotTouchEachOthersResumes(t *testing.T) {
	ts, _ := newTestServer(t)

	alice, bob := newClient(t), newClient(t)
	for _, pair := range []struct {
		c     *http.Client
		email string
	}{{alice, "alice@x.com"}, {bob, "bob@x.com"}} {
		require.Equal(t, http.StatusCreated, postJSON(t, pair.c, ts.URL+"/api/signup", `{"email":"`+pair.email+`","password":"pw"}`).StatusCode)
		require.Equal(t, http.StatusOK, postJSON(t, pair.c, ts.URL+"/api/login", `{"email":"`+pair.email+`","password":"pw"}`).StatusCode)
	}

	resp := upload(t, alice, ts.URL+"/api/resumes", "alice.pdf", pdftest.Document(1))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var up struct {
		Resume struct {
			ID int64 `json:"id"`
		} `json:"resume"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&up))
	id := jsonNumber(up.Resume.ID)

	resp = postJSON(t, bob, ts.URL+"/api/resumes/"+id+"/use", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/resumes/"+id, nil)
	dresp, err := bob.Do(req)
	require.NoError(t, err)
	dresp.Body.Close()
	assert.Equal(t, http.StatusNotFound, dresp.StatusCode)

	// Alice still has it.
	resp = postJSON(t, alice, ts.URL+"/api/resumes/"+id+"/use", `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
