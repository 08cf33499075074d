package gateway

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"nodegate/internal/logging"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "nodegate-test")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	if err := logging.InitLogger(&logging.Config{
		File:       filepath.Join(dir, "test.log"),
		MaxSize:    10,
		MaxBackups: 1,
		MaxAge:     1,
	}); err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

func writeHtpasswd(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "htpasswd")
	if err := os.WriteFile(path, []byte(lines), 0600); err != nil {
		t.Fatalf("Failed to write htpasswd file: %v", err)
	}
	return path
}

func TestHtpasswdVerifyBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to generate bcrypt hash: %v", err)
	}

	path := writeHtpasswd(t, "admin:"+string(hash)+"\n")
	auth, err := NewHtpasswdAuth(path)
	if err != nil {
		t.Fatalf("Failed to load htpasswd: %v", err)
	}

	if !auth.Verify("admin", "s3cret") {
		t.Error("expected valid credentials to verify")
	}
	if auth.Verify("admin", "wrong") {
		t.Error("expected wrong password to fail")
	}
	if auth.Verify("nobody", "s3cret") {
		t.Error("expected unknown user to fail")
	}
}

func TestHtpasswdVerifySHA(t *testing.T) {
	// {SHA} entry for password "hello" (base64 of sha1)
	path := writeHtpasswd(t, "ops:{SHA}qvTGHdzF6KLavt4PO0gs2a6pQ00=\n")
	auth, err := NewHtpasswdAuth(path)
	if err != nil {
		t.Fatalf("Failed to load htpasswd: %v", err)
	}

	if !auth.Verify("ops", "hello") {
		t.Error("expected SHA entry to verify")
	}
	if auth.Verify("ops", "goodbye") {
		t.Error("expected wrong password to fail")
	}
}

func TestHtpasswdSkipsCommentsAndBlanks(t *testing.T) {
	path := writeHtpasswd(t, "# comment line\n\nuser:plainpass\nbroken-line-without-colon\n")
	auth, err := NewHtpasswdAuth(path)
	if err != nil {
		t.Fatalf("Failed to load htpasswd: %v", err)
	}

	if !auth.Verify("user", "plainpass") {
		t.Error("expected plain entry to verify")
	}
	if auth.Verify("# comment line", "") {
		t.Error("comment lines must not become users")
	}
}

func TestHtpasswdMissingFile(t *testing.T) {
	if _, err := NewHtpasswdAuth(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing htpasswd file")
	}
}

func TestHtpasswdReload(t *testing.T) {
	path := writeHtpasswd(t, "first:pw1\n")
	auth, err := NewHtpasswdAuth(path)
	if err != nil {
		t.Fatalf("Failed to load htpasswd: %v", err)
	}

	if err := os.WriteFile(path, []byte("second:pw2\n"), 0600); err != nil {
		t.Fatalf("Failed to rewrite htpasswd file: %v", err)
	}
	if err := auth.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if auth.Verify("first", "pw1") {
		t.Error("expected removed user to fail after reload")
	}
	if !auth.Verify("second", "pw2") {
		t.Error("expected new user to verify after reload")
	}
}

func TestAuthMiddleware(t *testing.T) {
	path := writeHtpasswd(t, "admin:letmein\n")
	auth, err := NewHtpasswdAuth(path)
	if err != nil {
		t.Fatalf("Failed to load htpasswd: %v", err)
	}

	var failures int64
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), &failures)

	// No credentials
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="Restricted"` {
		t.Errorf("unexpected WWW-Authenticate header: %q", got)
	}

	// Wrong credentials
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin", "wrong")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong password, got %d", rec.Code)
	}

	// Valid credentials
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin", "letmein")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid credentials, got %d", rec.Code)
	}

	if failures != 2 {
		t.Errorf("expected 2 recorded auth failures, got %d", failures)
	}
}
