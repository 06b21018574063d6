package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestdesk/stager/internal/domain"
)

func TestUploadBatch(t *testing.T) {
	var gotPath, gotAuth string
	var gotFiles []string
	var gotContents []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(32<<20))
		for _, fh := range r.MultipartForm.File["files"] {
			gotFiles = append(gotFiles, fh.Filename)
			f, err := fh.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(f)
			require.NoError(t, err)
			f.Close()
			gotContents = append(gotContents, string(data))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"files": []map[string]string{
				{"url": "https://cdn/one.jpg"},
				{"url": "https://cdn/two.jpg"},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, "svc-token")
	files := []UploadFile{
		{Filename: "one.jpg", Data: []byte("first")},
		{Filename: "two.jpg", Data: []byte("second")},
	}

	uploaded, err := client.UploadBatch(context.Background(), "acme", "images", files, "")
	require.NoError(t, err)

	assert.Equal(t, "/v1/acme/media/images", gotPath)
	assert.Equal(t, "Bearer svc-token", gotAuth)
	// Submission order must be preserved on the wire.
	assert.Equal(t, []string{"one.jpg", "two.jpg"}, gotFiles)
	assert.Equal(t, []string{"first", "second"}, gotContents)
	require.Len(t, uploaded, 2)
	assert.Equal(t, "https://cdn/one.jpg", uploaded[0].URL)
}

func TestUploadBatchCallerTokenWins(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"files": []map[string]string{}})
	}))
	defer server.Close()

	client := New(server.URL, "svc-token")
	_, err := client.UploadBatch(context.Background(), "acme", "images", nil, "caller-token")
	require.NoError(t, err)
	assert.Equal(t, "Bearer caller-token", gotAuth)
}

func TestUploadBatchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, "")
	_, err := client.UploadBatch(context.Background(), "acme", "images", []UploadFile{{Filename: "a.jpg"}}, "")
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestUploadBatchMalformedResponse(t *testing.T) {
	t.Run("not json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		}))
		defer server.Close()

		client := New(server.URL, "")
		_, err := client.UploadBatch(context.Background(), "acme", "images", []UploadFile{{Filename: "a.jpg"}}, "")
		assert.ErrorIs(t, err, ErrBadResponse)
	})

	t.Run("record without url", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"files": []map[string]string{{"name": "a.jpg"}}})
		}))
		defer server.Close()

		client := New(server.URL, "")
		_, err := client.UploadBatch(context.Background(), "acme", "images", []UploadFile{{Filename: "a.jpg"}}, "")
		assert.ErrorIs(t, err, ErrBadResponse)
	})
}

func TestSavePropertyCreate(t *testing.T) {
	var gotMethod, gotPath string
	var gotPayload domain.PropertyPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New(server.URL, "svc-token")
	payload := domain.PropertyPayload{
		Title:     "Sunny flat",
		MainImage: "https://cdn/main.jpg",
		Images:    []string{"https://cdn/main.jpg", "https://cdn/2.jpg"},
	}

	require.NoError(t, client.SaveProperty(context.Background(), "acme", payload, ""))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/v1/acme/properties", gotPath)
	assert.Equal(t, "Sunny flat", gotPayload.Title)
	assert.Equal(t, []string{"https://cdn/main.jpg", "https://cdn/2.jpg"}, gotPayload.Images)
}

func TestSavePropertyUpdate(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
	}))
	defer server.Close()

	client := New(server.URL, "")
	payload := domain.PropertyPayload{PropertyID: "prop-7", Title: "Updated"}

	require.NoError(t, client.SaveProperty(context.Background(), "acme", payload, ""))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/v1/acme/properties/prop-7", gotPath)
}

func TestSavePropertyFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "validation failed", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := New(server.URL, "")
	err := client.SaveProperty(context.Background(), "acme", domain.PropertyPayload{}, "")
	assert.ErrorIs(t, err, ErrRequestFailed)
}
