package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPIClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	api, err := NewAPIClientWithConfig("sct_"+strings.Repeat("00", 32), server.URL)
	require.NoError(t, err)
	return api
}

func TestAPIClient_Get(t *testing.T) {
	t.Run("sends the bearer token and decodes data", func(t *testing.T) {
		api := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "GET", r.Method)
			assert.Equal(t, "/documents", r.URL.Path)
			assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer sct_"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]string{"id": "doc-1"}})
		})

		resp, err := api.Get("/documents")

		require.NoError(t, err)
		var data map[string]string
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, "doc-1", data["id"])
	})

	t.Run("turns an error payload into an APIError", func(t *testing.T) {
		api := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "document not found"})
		})

		_, err := api.Get("/documents/missing")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Equal(t, "document not found", apiErr.Message)
	})

	t.Run("falls back to the raw body for non-JSON errors", func(t *testing.T) {
		api := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream exploded"))
		})

		_, err := api.Get("/ask")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
		assert.Contains(t, apiErr.Message, "upstream exploded")
	})
}

func TestAPIClient_Post(t *testing.T) {
	api := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Where are the fire exits?", body["question"])

		json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]string{"answer": "marked on each floor"}})
	})

	resp, err := api.Post("/ask", map[string]string{"question": "Where are the fire exits?"})

	require.NoError(t, err)
	assert.NotNil(t, resp.Data)
}

func TestAPIClient_Delete(t *testing.T) {
	api := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	resp, err := api.Delete("/documents/doc-1")

	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestAPIClient_PostFile(t *testing.T) {
	source := filepath.Join(t.TempDir(), "handbook.txt")
	require.NoError(t, os.WriteFile(source, []byte("evacuation routes"), 0644))

	api := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "handbook.txt", header.Filename)

		assert.Equal(t, "Campus Handbook", r.FormValue("title"))
		assert.Empty(t, r.FormValue("category"), "empty fields are not sent")

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]string{"id": "doc-1"}})
	})

	resp, err := api.PostFile("/documents/upload", source, map[string]string{
		"title":    "Campus Handbook",
		"category": "",
	})

	require.NoError(t, err)
	assert.NotNil(t, resp.Data)
}

func TestNewAPIClientWithCmd_Cascade(t *testing.T) {
	t.Run("environment beats the global config", func(t *testing.T) {
		useTempConfigDir(t)
		require.NoError(t, SaveGlobalConfig(&GlobalConfig{
			Token:  "sct_" + strings.Repeat("aa", 32),
			APIURL: "https://config.example.edu",
		}))
		t.Setenv(envToken, "sct_"+strings.Repeat("bb", 32))
		t.Setenv(envAPIURL, "https://env.example.edu")

		api, err := NewAPIClientWithCmd(nil)

		require.NoError(t, err)
		assert.Equal(t, "sct_"+strings.Repeat("bb", 32), api.token)
		assert.Equal(t, "https://env.example.edu", api.baseURL)
	})

	t.Run("falls back to the global config and default URL", func(t *testing.T) {
		useTempConfigDir(t)
		require.NoError(t, SaveGlobalConfig(&GlobalConfig{Token: "sct_" + strings.Repeat("cc", 32)}))
		t.Setenv(envToken, "")
		t.Setenv(envAPIURL, "")

		api, err := NewAPIClientWithCmd(nil)

		require.NoError(t, err)
		assert.Equal(t, "sct_"+strings.Repeat("cc", 32), api.token)
		assert.Equal(t, defaultAPIURL, api.baseURL)
	})

	t.Run("fails without any token", func(t *testing.T) {
		useTempConfigDir(t)
		t.Setenv(envToken, "")
		t.Setenv(envAPIURL, "")

		_, err := NewAPIClientWithCmd(nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), envToken)
	})
}
