package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/contactkeeper/backend/internal/cache"
	apperrors "github.com/contactkeeper/backend/internal/errors"
	"github.com/contactkeeper/backend/internal/metrics"
)

type fakeGitHub struct {
	calls   atomic.Int32
	lastURL atomic.Value
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	f.lastURL.Store(r.URL.String())
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/search/users":
		json.NewEncoder(w).Encode(map[string]any{
			"total_count": 1,
			"items": []map[string]any{
				{"login": "octocat", "avatar_url": "https://avatars.test/1", "html_url": "https://github.com/octocat"},
			},
		})
	case "/users/octocat":
		json.NewEncoder(w).Encode(map[string]any{
			"login": "octocat", "name": "The Octocat", "location": "San Francisco",
			"hireable": true, "followers": 10, "public_repos": 8, "html_url": "https://github.com/octocat",
		})
	case "/users/octocat/repos":
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "name": "hello-world", "html_url": "https://github.com/octocat/hello-world"},
		})
	case "/users/broken":
		w.WriteHeader(http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
	}
}

func newTestClient(t *testing.T, cfg Config, c Cache) (*Client, *fakeGitHub, *metrics.Metrics) {
	t.Helper()
	gh := &fakeGitHub{}
	srv := httptest.NewServer(gh)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	m := metrics.New()
	return NewClient(cfg, c, m), gh, m
}

func TestSearchUsers(t *testing.T) {
	client, gh, m := newTestClient(t, Config{}, nil)

	users, err := client.SearchUsers(context.Background(), "octo cat")
	if err != nil {
		t.Fatalf("SearchUsers: %v", err)
	}
	if len(users) != 1 || users[0].Login != "octocat" {
		t.Errorf("unexpected users: %+v", users)
	}
	if got := gh.lastURL.Load().(string); got != "/search/users?q=octo+cat" {
		t.Errorf("unexpected request URL %s", got)
	}
	if got := m.Counter(metrics.GitHubRequests); got != 1 {
		t.Errorf("expected 1 request counted, got %d", got)
	}
}

func TestGetUserRepos_OldestFive(t *testing.T) {
	client, gh, _ := newTestClient(t, Config{ClientID: "id", ClientSecret: "secret"}, nil)

	repos, err := client.GetUserRepos(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("GetUserRepos: %v", err)
	}
	if len(repos) != 1 || repos[0].Name != "hello-world" {
		t.Errorf("unexpected repos: %+v", repos)
	}

	want := "/users/octocat/repos?client_id=id&client_secret=secret&per_page=5&sort=created%3Aasc"
	if got := gh.lastURL.Load().(string); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestGetUser(t *testing.T) {
	client, _, _ := newTestClient(t, Config{}, nil)

	user, err := client.GetUser(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.Name != "The Octocat" || user.Hireable == nil || !*user.Hireable {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestErrors(t *testing.T) {
	client, _, m := newTestClient(t, Config{}, nil)

	if _, err := client.GetUser(context.Background(), "nobody"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := client.GetUser(context.Background(), "broken"); err == nil {
		t.Error("expected upstream error")
	}
	if got := m.Counter(metrics.GitHubFailures); got != 1 {
		t.Errorf("expected 1 failure counted, got %d", got)
	}
}

func TestCachesResponses(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	client, gh, _ := newTestClient(t, Config{CacheTTL: time.Minute}, c)

	for i := 0; i < 3; i++ {
		if _, err := client.GetUser(context.Background(), "octocat"); err != nil {
			t.Fatalf("GetUser: %v", err)
		}
	}
	if got := gh.calls.Load(); got != 1 {
		t.Errorf("expected 1 upstream call, got %d", got)
	}
}

func TestHandlers(t *testing.T) {
	client, _, _ := newTestClient(t, Config{}, nil)
	h := NewHandlers(client)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/github/search/users", apperrors.HandleFunc(h.SearchUsers))
	mux.HandleFunc("GET /api/github/users/{login}", apperrors.HandleFunc(h.GetUser))
	mux.HandleFunc("GET /api/github/users/{login}/repos", apperrors.HandleFunc(h.GetUserRepos))

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
	}{
		{"search", "/api/github/search/users?q=octocat", http.StatusOK, ""},
		{"empty query", "/api/github/search/users?q=", http.StatusBadRequest, apperrors.CodeValidationError},
		{"user", "/api/github/users/octocat", http.StatusOK, ""},
		{"repos", "/api/github/users/octocat/repos", http.StatusOK, ""},
		{"unknown user", "/api/github/users/nobody", http.StatusNotFound, apperrors.CodeNotFound},
		{"upstream failure", "/api/github/users/broken", http.StatusBadGateway, apperrors.CodeGitHubError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantCode == "" {
				return
			}
			var resp apperrors.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("expected %s, got %s", tt.wantCode, resp.Error.Code)
			}
		})
	}
}
