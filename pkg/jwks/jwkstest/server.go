// Package jwkstest serves JSON Web Key Sets for tests.
package jwkstest

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MicahParks/jwkset"
)

// Server is an httptest server publishing RSA keys.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	keys   map[string]*rsa.PublicKey
	raw    []byte
	status int
	hits   atomic.Int64
}

// NewServer starts a server publishing keys. It is closed on test cleanup.
func NewServer(tb testing.TB, keys map[string]*rsa.PublicKey) *Server {
	tb.Helper()
	s := &Server{keys: keys, status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	tb.Cleanup(s.Close)
	return s
}

// GenerateKey returns a 2048-bit RSA key or fails the test.
func GenerateKey(tb testing.TB) *rsa.PrivateKey {
	tb.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("generate rsa key: %v", err)
	}
	return k
}

// Hits reports how many requests were served.
func (s *Server) Hits() int64 {
	return s.hits.Load()
}

// SetStatus makes the server answer with status and an empty body.
func (s *Server) SetStatus(status int) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// SetKeys replaces the published keys.
func (s *Server) SetKeys(keys map[string]*rsa.PublicKey) {
	s.mu.Lock()
	s.keys, s.raw = keys, nil
	s.mu.Unlock()
}

// SetDocument publishes doc verbatim instead of the keys.
func (s *Server) SetDocument(doc []byte) {
	s.mu.Lock()
	s.raw = doc
	s.mu.Unlock()
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)

	s.mu.Lock()
	status, keys, raw := s.status, s.keys, s.raw
	s.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	if raw == nil {
		var err error
		if raw, err = publish(r, keys); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func publish(r *http.Request, keys map[string]*rsa.PublicKey) ([]byte, error) {
	store := jwkset.NewMemoryStorage()
	for kid, k := range keys {
		jwk, err := jwkset.NewJWKFromKey(k, jwkset.JWKOptions{
			Metadata: jwkset.JWKMetadataOptions{KID: kid, USE: jwkset.UseSig, ALG: jwkset.AlgRS256},
		})
		if err != nil {
			return nil, err
		}
		if err := store.KeyWrite(r.Context(), jwk); err != nil {
			return nil, err
		}
	}
	return store.JSONPublic(r.Context())
}
