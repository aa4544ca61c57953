package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/abduss/easyshare/internal/auth"
	"github.com/abduss/easyshare/internal/blob"
	"github.com/abduss/easyshare/internal/file"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPServerCopiesTimeouts(t *testing.T) {
	cfg := testConfig().Server
	cfg.Host = "127.0.0.1"
	cfg.Port = 8080
	cfg.ReadHeaderTimeout = 3 * time.Second
	cfg.IdleTimeout = time.Minute

	srv := NewHTTPServer(cfg, http.NotFoundHandler())

	assert.Equal(t, "127.0.0.1:8080", srv.Addr)
	assert.Equal(t, 3*time.Second, srv.ReadHeaderTimeout)
	assert.Zero(t, srv.ReadTimeout)
	assert.Zero(t, srv.WriteTimeout)
	assert.Equal(t, time.Minute, srv.IdleTimeout)
}

func TestSlowUploadOutlastsHeaderTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	cfg.Server.ReadHeaderTimeout = 200 * time.Millisecond

	disk, err := blob.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	files := file.NewService(file.NewMemoryIndex(), disk, cfg.Storage.MaxUploadBytes)
	router, err := NewRouter(Dependencies{
		Config:      cfg,
		Blobs:       disk,
		AuthService: auth.NewService(auth.NewMemoryStore(), cfg.Auth),
		FileService: files,
	})
	require.NoError(t, err)

	ts := httptest.NewUnstartedServer(router)
	ts.Config = NewHTTPServer(cfg.Server, router)
	ts.Start()
	defer ts.Close()

	client := &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	form := url.Values{"username": {"slow"}, "password": {"Abc1!23"}, "confirmPassword": {"Abc1!23"}}
	resp, err := client.PostForm(ts.URL+"/register", form)
	require.NoError(t, err)
	resp.Body.Close()
	resp, err = client.PostForm(ts.URL+"/login", form)
	require.NoError(t, err)
	resp.Body.Close()
	require.Len(t, resp.Cookies(), 1)
	session := resp.Cookies()[0]

	// the body trickles in for three times the header timeout
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("file", "slow.bin")
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		chunk := bytes.Repeat([]byte("s"), 4096)
		for i := 0; i < 6; i++ {
			if _, err := part.Write(chunk); err != nil {
				pw.CloseWithError(err)
				return
			}
			time.Sleep(100 * time.Millisecond)
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/upload", pr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.AddCookie(session)

	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "Uploaded slow.bin", loc.Query().Get("notice"))
	assert.Empty(t, loc.Query().Get("error"))

	records, err := files.List(context.Background(), file.ListOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.EqualValues(t, 6*4096, records[0].SizeBytes)
	assert.True(t, strings.HasSuffix(records[0].StoredName, "slow.bin"))
}
