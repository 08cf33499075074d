package gateway

import (
	"bufio"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/bcrypt"

	"nodegate/internal/logging"
)

// AuthRealm is the Basic Auth realm presented to clients, matching the
// auth_basic directive in the site configuration.
const AuthRealm = "Restricted"

// HtpasswdAuth validates Basic Auth credentials against an htpasswd
// file. The file is managed externally; Reload picks up changes.
type HtpasswdAuth struct {
	path   string
	logger *logging.Logger

	mu    sync.RWMutex
	users map[string]string
}

// NewHtpasswdAuth loads the htpasswd file at path.
func NewHtpasswdAuth(path string) (*HtpasswdAuth, error) {
	a := &HtpasswdAuth{
		path:   path,
		logger: logging.GetGlobalLogger(),
		users:  make(map[string]string),
	}
	if err := a.Reload(); err != nil {
		return nil, err
	}
	return a, nil
}

// Reload re-reads the htpasswd file.
func (a *HtpasswdAuth) Reload() error {
	f, err := os.Open(a.path)
	if err != nil {
		return fmt.Errorf("failed to open htpasswd file: %w", err)
	}
	defer f.Close()

	users := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, hash, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		users[name] = hash
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read htpasswd file: %w", err)
	}

	a.mu.Lock()
	a.users = users
	a.mu.Unlock()

	a.logger.Info("Loaded %d credential(s) from %s", len(users), a.path)
	return nil
}

// Verify checks a username/password pair against the loaded entries.
// Supports bcrypt, {SHA}, and plain entries.
func (a *HtpasswdAuth) Verify(user, password string) bool {
	a.mu.RLock()
	hash, ok := a.users[user]
	a.mu.RUnlock()
	if !ok {
		return false
	}

	switch {
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	case strings.HasPrefix(hash, "{SHA}"):
		sum := sha1.Sum([]byte(password))
		encoded := base64.StdEncoding.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(hash[5:]), []byte(encoded)) == 1
	default:
		return subtle.ConstantTimeCompare([]byte(hash), []byte(password)) == 1
	}
}

// Middleware gates every request behind Basic Auth, responding with 401
// and a WWW-Authenticate challenge on failure.
func (a *HtpasswdAuth) Middleware(next http.Handler, failures *int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if !ok || !a.Verify(user, password) {
			if failures != nil {
				atomic.AddInt64(failures, 1)
			}
			w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", AuthRealm))
			http.Error(w, "401 Authorization Required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
