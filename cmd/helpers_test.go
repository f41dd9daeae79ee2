package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wallpaperd/config"
	"wallpaperd/services"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// TestHelper provides utilities for testing the HTTP API
type TestHelper struct {
	Server       *httptest.Server
	CDN          *httptest.Server
	App          *App
	WallpaperDir string
	LocalFile    string // file name of the "Local" wallpaper inside WallpaperDir
	cancel       context.CancelFunc
}

// NewTestHelper builds an App around a temp wallpaper directory and a fake CDN.
// The catalog lists three wallpapers: "Local" already on disk, "Aurora"
// available from the CDN and "Broken" whose image the CDN does not have.
func NewTestHelper(t *testing.T) *TestHelper {
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	png := encodePNG(t, 40, 80)

	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/aurora.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", fmt.Sprint(len(png)))
		w.Write(png)
	}))

	localFile := services.SafeFilename("Local") + ".png"
	require.NoError(t, os.WriteFile(filepath.Join(dir, localFile), png, 0644))

	manifest := fmt.Sprintf(`{"wallpapers": [
		{"name": "Local", "imageUrl": "%[1]s/local.png", "dateAdded": "2024-05-01T10:00:00Z"},
		{"name": "Aurora", "imageUrl": "%[1]s/aurora.png"},
		{"name": "Broken", "imageUrl": "%[1]s/missing.png"}
	]}`, cdn.URL)
	manifestPath := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifest), 0644))

	t.Setenv("WALLPAPER_DIR", dir)
	t.Setenv("CATALOG_URL", manifestPath)
	t.Setenv("DOWNLOAD_WORKERS", "1")

	cfg, err := config.Load("")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	app, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	app.Start()
	require.NoError(t, app.Menu.Load(ctx))

	return &TestHelper{
		Server:       httptest.NewServer(NewRouter(app)),
		CDN:          cdn,
		App:          app,
		WallpaperDir: dir,
		LocalFile:    localFile,
		cancel:       cancel,
	}
}

// Cleanup stops the servers and the app
func (h *TestHelper) Cleanup(t *testing.T) {
	h.Server.Close()
	h.CDN.Close()
	h.cancel()
	require.NoError(t, h.App.Close())
}

// MakeRequest makes an HTTP request to the test server
func (h *TestHelper) MakeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, h.Server.URL+path, reqBody)
	require.NoError(t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return resp
}

// GetJSON makes a GET request and unmarshals the JSON response
func (h *TestHelper) GetJSON(t *testing.T, path string, target interface{}) *http.Response {
	return h.doJSON(t, http.MethodGet, path, nil, target)
}

// PostJSON makes a POST request with a JSON body and unmarshals the response
func (h *TestHelper) PostJSON(t *testing.T, path string, body interface{}, target interface{}) *http.Response {
	return h.doJSON(t, http.MethodPost, path, body, target)
}

func (h *TestHelper) doJSON(t *testing.T, method, path string, body interface{}, target interface{}) *http.Response {
	resp := h.MakeRequest(t, method, path, body)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if target != nil {
		require.NoError(t, json.Unmarshal(data, target), "body: %s", data)
	}
	return resp
}

// ConnectWebSocket creates a WebSocket connection to the test server
func (h *TestHelper) ConnectWebSocket(t *testing.T, path string) *websocket.Conn {
	wsURL := "ws" + h.Server.URL[4:] + path // Replace http with ws

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	return conn
}

// wallpaperView mirrors the JSON of a wallpaper in API responses
type wallpaperView struct {
	Name       string `json:"name"`
	Selectable bool   `json:"selectable"`
	State      struct {
		State string `json:"state"`
		Error string `json:"error"`
		Asset *struct {
			ImagePath     string `json:"imagePath"`
			ThumbnailPath string `json:"thumbnailPath"`
			Width         int    `json:"width"`
			Height        int    `json:"height"`
		} `json:"asset"`
	} `json:"state"`
}

// WaitForState polls the wallpaper endpoint until the item reaches state
func (h *TestHelper) WaitForState(t *testing.T, name, state string) wallpaperView {
	var last wallpaperView
	require.Eventually(t, func() bool {
		var response struct {
			Wallpaper wallpaperView `json:"wallpaper"`
		}
		resp, err := http.Get(h.Server.URL + "/api/wallpapers/" + name)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
			return false
		}
		last = response.Wallpaper
		return last.State.State == state
	}, 5*time.Second, 20*time.Millisecond, "wallpaper %s never reached %s", name, state)
	return last
}

func encodePNG(t *testing.T, width, height int) []byte {
	img := imaging.New(width, height, color.NRGBA{R: 30, G: 90, B: 160, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}
