package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iskaald/icecold/pkg/api/handlers"
	"github.com/iskaald/icecold/pkg/service"
)

func writeData(w http.ResponseWriter, status int, data any, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"data":   data,
		"error":  errMsg,
	})
}

func TestNew(t *testing.T) {
	client := New("http://localhost:8080")
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.NotNil(t, client.httpClient)
}

func TestServices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		writeData(w, http.StatusOK, []service.DescriptorInfo{
			{Name: "logging", Priority: 0, State: "running"},
			{Name: "api", Priority: 100, State: "running"},
		}, "")
	}))
	defer server.Close()

	services, err := New(server.URL).Services()
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "api", services[1].Name)
}

func TestServiceNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.NotFound(w, "no service named ghost")
	}))
	defer server.Close()

	_, err := New(server.URL).Service("ghost")
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "no service named ghost", apiErr.Message)
}

func TestProblemMessage(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		want   string
	}{
		{
			name:   "ProblemDetail",
			write:  func(w http.ResponseWriter) { handlers.WriteProblem(w, http.StatusBadRequest, "Bad Request", "level must be one of debug, info") },
			status: http.StatusBadRequest,
			want:   "level must be one of debug, info",
		},
		{
			name:   "ProblemTitleOnly",
			write:  func(w http.ResponseWriter) { handlers.WriteProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "") },
			status: http.StatusServiceUnavailable,
			want:   "Service Unavailable",
		},
		{
			name:   "EnvelopeError",
			write:  func(w http.ResponseWriter) { writeData(w, http.StatusInternalServerError, nil, "registry unavailable") },
			status: http.StatusInternalServerError,
			want:   "registry unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.write(w)
			}))
			defer server.Close()

			_, err := New(server.URL).Service("any")
			require.Error(t, err)
			apiErr, ok := err.(*APIError)
			require.True(t, ok)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestExplain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/src/audio/mixer.go", r.URL.Query().Get("path"))
		assert.Equal(t, "warning", r.URL.Query().Get("level"))
		writeData(w, http.StatusOK, map[string]any{
			"path":    "/src/audio/mixer.go",
			"level":   "warning",
			"group":   "Audio",
			"matched": true,
			"emit":    true,
		}, "")
	}))
	defer server.Close()

	d, err := New(server.URL).Explain("/src/audio/mixer.go", "warning")
	require.NoError(t, err)
	assert.Equal(t, "Audio", d.Group)
	assert.True(t, d.Emit)
}

func TestReady(t *testing.T) {
	var ready atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ready.Load() {
			writeData(w, http.StatusOK, nil, "")
			return
		}
		writeData(w, http.StatusServiceUnavailable, nil, "startup not complete")
	}))
	defer server.Close()

	client := New(server.URL)
	ok, err := client.Ready()
	require.NoError(t, err)
	assert.False(t, ok)

	ready.Store(true)
	ok, err = client.Ready()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestQuit(t *testing.T) {
	t.Run("Granted", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			writeData(w, http.StatusOK, handlers.QuitResponse{Outcome: "granted", Consulted: 1}, "")
		}))
		defer server.Close()

		res, err := New(server.URL).Quit()
		require.NoError(t, err)
		assert.Equal(t, "granted", res.Outcome)
	})

	t.Run("VetoedReturnsBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeData(w, http.StatusConflict, handlers.QuitResponse{
				Outcome: "aborted",
				Vetoes:  []service.Veto{{Service: "editor", Reason: "unsaved changes"}},
			}, "quit aborted")
		}))
		defer server.Close()

		res, err := New(server.URL).Quit()
		require.Error(t, err)
		require.NotNil(t, res)
		assert.Equal(t, "aborted", res.Outcome)
		require.Len(t, res.Vetoes, 1)

		apiErr, ok := err.(*APIError)
		require.True(t, ok)
		assert.True(t, apiErr.IsConflict())
	})

	t.Run("Unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		res, err := New(url).Quit()
		assert.Error(t, err)
		assert.Nil(t, res)
	})
}
