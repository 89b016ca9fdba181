package commands

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	fsrepo "KnowBase/internal/cli/repo/fs"
	"KnowBase/internal/config"
)

// fakeServer имитирует API базы знаний и запоминает тела PATCH-запросов.
type fakeServer struct {
	mu      sync.Mutex
	patches []map[string]json.RawMessage
	auth    []string
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/user/login":
			var m map[string]string
			_ = json.NewDecoder(r.Body).Decode(&m)
			if m["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid login or password"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":1,"login":"` + m["login"] + `","token":"tok-1"}`))
		case r.URL.Path == "/api/user/register":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"login already taken"}`))
		case r.URL.Path == "/api/cards" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"c1","title":"Printer offline"}`))
		case r.URL.Path == "/api/cards/c1" && r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`{"id":"c1","title":"Printer offline","category":"Printer","files":[{"name":"a.pdf","url":"http://kb/files/1/1.pdf"}],"videos":[]}`))
		case r.URL.Path == "/api/cards/c1" && r.Method == http.MethodPatch:
			b, _ := io.ReadAll(r.Body)
			var m map[string]json.RawMessage
			_ = json.Unmarshal(b, &m)
			f.mu.Lock()
			f.patches = append(f.patches, m)
			f.mu.Unlock()
			_, _ = w.Write([]byte(`{"id":"c1"}`))
		case r.URL.Path == "/api/files/upload":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"name":"b.txt","url":"http://kb/files/1/2.txt","size_bytes":5}`))
		case r.URL.Path == "/api/videos/embed":
			_, _ = w.Write([]byte(`{"kind":"embed","url":"https://youtu.be/x","embed_url":"https://www.youtube.com/embed/x"}`))
		case r.URL.Path == "/api/assistant":
			_, _ = w.Write([]byte(`{"response":"Reinstall the driver."}`))
		case r.URL.Path == "/api/admin/roles":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newFakeServer(t *testing.T) (*fakeServer, *config.Config) {
	t.Helper()
	withTempConfig(t)
	f := &fakeServer{}
	ts := httptest.NewServer(f.handler(t))
	t.Cleanup(ts.Close)
	return f, &config.Config{ServerURL: ts.URL}
}

func TestLogin_Run_SuccessAndErrors(t *testing.T) {
	_, cfg := newFakeServer(t)
	ctx := context.Background()

	out := withStdoutCapture(t, func() {
		if err := (loginCmd{}).Run(ctx, cfg, []string{"alice", "secret"}); err != nil {
			t.Fatalf("login should succeed: %v", err)
		}
	})
	if !strings.Contains(out, "Logged in as alice") {
		t.Fatalf("unexpected output: %s", out)
	}
	tok, err := fsrepo.AuthFSStore{}.Load()
	if err != nil || tok != "tok-1" {
		t.Fatalf("token not saved: %q %v", tok, err)
	}
	if login, _ := (fsrepo.AuthFSStore{}).LoadLogin(); login != "alice" {
		t.Fatalf("login not saved: %q", login)
	}

	err = (loginCmd{}).Run(ctx, cfg, []string{"alice", "bad"})
	if err == nil || err.Error() != "invalid login or password" {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if err := (loginCmd{}).Run(ctx, cfg, []string{"onlyLogin"}); err != ErrUsage {
		t.Fatalf("expected ErrUsage, got %v", err)
	}
}

func TestRegister_Run_Conflict(t *testing.T) {
	_, cfg := newFakeServer(t)
	err := (registerCmd{}).Run(context.Background(), cfg, []string{"alice", "pw", "Alice", "Smith"})
	if err == nil || err.Error() != "login already in use" {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestWriteCommands_RequireLogin(t *testing.T) {
	_, cfg := newFakeServer(t)
	ctx := context.Background()
	for _, run := range []func() error{
		func() error { return (cardAddCmd{}).Run(ctx, cfg, []string{"Printer", "t", "d"}) },
		func() error { return (cardDeleteCmd{}).Run(ctx, cfg, []string{"c1"}) },
		func() error { return (whoamiCmd{}).Run(ctx, cfg, nil) },
	} {
		if err := run(); err == nil || !strings.Contains(err.Error(), "not logged in") {
			t.Fatalf("expected not logged in, got %v", err)
		}
	}
}

func TestCardAdd_And_Edit(t *testing.T) {
	f, cfg := newFakeServer(t)
	ctx := context.Background()
	_ = fsrepo.AuthFSStore{}.Save("tok-1")

	out := withStdoutCapture(t, func() {
		if err := (cardAddCmd{}).Run(ctx, cfg, []string{"--author", "Ann", "Printer", "Printer offline", "Restart", "spooler"}); err != nil {
			t.Fatalf("card-add: %v", err)
		}
	})
	if !strings.Contains(out, "id:    c1") {
		t.Fatalf("unexpected output: %s", out)
	}

	if err := (cardEditCmd{}).Run(ctx, cfg, []string{"c1"}); err != ErrUsage {
		t.Fatalf("edit without fields must be usage error, got %v", err)
	}
	_ = withStdoutCapture(t, func() {
		if err := (cardEditCmd{}).Run(ctx, cfg, []string{"--author", "", "--title", "New", "c1"}); err != nil {
			t.Fatalf("card-edit: %v", err)
		}
	})
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.patches) != 1 {
		t.Fatalf("expected one patch, got %d", len(f.patches))
	}
	p := f.patches[0]
	if string(p["title"]) != `"New"` || string(p["author_name"]) != `""` {
		t.Fatalf("unexpected patch: %v", p)
	}
	if _, ok := p["description"]; ok {
		t.Fatalf("unset fields must not be sent: %v", p)
	}
	if f.auth[len(f.auth)-1] != "Bearer tok-1" {
		t.Fatalf("bearer token not sent")
	}
}

func TestAttach_AppendsFile(t *testing.T) {
	f, cfg := newFakeServer(t)
	_ = fsrepo.AuthFSStore{}.Save("tok-1")
	path := filepath.Join(t.TempDir(), "b.txt")
	_ = os.WriteFile(path, []byte("hello"), 0o600)

	_ = withStdoutCapture(t, func() {
		if err := (attachCmd{}).Run(context.Background(), cfg, []string{"c1", path}); err != nil {
			t.Fatalf("attach: %v", err)
		}
	})
	f.mu.Lock()
	defer f.mu.Unlock()
	var files []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(f.patches[0]["files"], &files); err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 2 || files[1].URL != "http://kb/files/1/2.txt" {
		t.Fatalf("existing files must be kept and new one appended: %+v", files)
	}
}

func TestVideoAdd_StripsEmbedURL(t *testing.T) {
	f, cfg := newFakeServer(t)
	_ = fsrepo.AuthFSStore{}.Save("tok-1")

	_ = withStdoutCapture(t, func() {
		if err := (videoAddCmd{}).Run(context.Background(), cfg, []string{"c1", "https://youtu.be/x", "Demo"}); err != nil {
			t.Fatalf("video-add: %v", err)
		}
	})
	f.mu.Lock()
	defer f.mu.Unlock()
	raw := string(f.patches[0]["videos"])
	if !strings.Contains(raw, `"kind":"embed"`) || strings.Contains(raw, "embed_url") {
		t.Fatalf("unexpected videos patch: %s", raw)
	}
}

func TestAsk_And_RoleSet(t *testing.T) {
	_, cfg := newFakeServer(t)
	ctx := context.Background()

	out := withStdoutCapture(t, func() {
		if err := (askCmd{}).Run(ctx, cfg, []string{"printer", "is", "offline"}); err != nil {
			t.Fatalf("ask: %v", err)
		}
	})
	if strings.TrimSpace(out) != "Reinstall the driver." {
		t.Fatalf("unexpected answer: %q", out)
	}
	if err := (askCmd{}).Run(ctx, cfg, []string{" "}); err != ErrUsage {
		t.Fatalf("expected ErrUsage, got %v", err)
	}

	_ = fsrepo.AuthFSStore{}.Save("tok-1")
	if err := (roleSetCmd{}).Run(ctx, cfg, []string{"x", "admin"}); err != ErrUsage {
		t.Fatalf("non-numeric id must be usage error, got %v", err)
	}
	out = withStdoutCapture(t, func() {
		if err := (roleSetCmd{}).Run(ctx, cfg, []string{"--revoke", "5", "user"}); err != nil {
			t.Fatalf("role-set: %v", err)
		}
	})
	if !strings.Contains(out, "revoked from 5") {
		t.Fatalf("unexpected output: %s", out)
	}
}
