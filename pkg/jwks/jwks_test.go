package jwks_test

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authcore/pkg/jwks"
	"github.com/dmitrymomot/authcore/pkg/jwks/jwkstest"
)

func TestKeySet_Key(t *testing.T) {
	t.Parallel()

	priv := jwkstest.GenerateKey(t)
	srv := jwkstest.NewServer(t, map[string]*rsa.PublicKey{"k1": &priv.PublicKey})
	ks := jwks.New(srv.URL, jwks.WithCache(jwks.NewCache(4, time.Hour)))

	key, err := ks.Key(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, 0, priv.PublicKey.N.Cmp(key.N))
	assert.Equal(t, priv.PublicKey.E, key.E)

	_, err = ks.Key(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), srv.Hits(), "second lookup must be served from cache")
}

func TestKeySet_UnknownKidDoesNotRefetch(t *testing.T) {
	t.Parallel()

	priv := jwkstest.GenerateKey(t)
	srv := jwkstest.NewServer(t, map[string]*rsa.PublicKey{"k1": &priv.PublicKey})
	ks := jwks.New(srv.URL, jwks.WithCache(jwks.NewCache(4, time.Hour)))

	_, err := ks.Key(context.Background(), "k1")
	require.NoError(t, err)

	_, err = ks.Key(context.Background(), "missing")
	require.ErrorIs(t, err, jwks.ErrKeyNotFound)
	assert.NotErrorIs(t, err, jwks.ErrFetch)
	assert.Equal(t, int64(1), srv.Hits())
}

func TestKeySet_SharedCacheByURL(t *testing.T) {
	t.Parallel()

	priv := jwkstest.GenerateKey(t)
	srv := jwkstest.NewServer(t, map[string]*rsa.PublicKey{"k1": &priv.PublicKey})
	shared := jwks.NewCache(4, time.Hour)

	_, err := jwks.New(srv.URL, jwks.WithCache(shared)).Key(context.Background(), "k1")
	require.NoError(t, err)
	_, err = jwks.New(srv.URL, jwks.WithCache(shared)).Key(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), srv.Hits())
}

func TestKeySet_FetchFailures(t *testing.T) {
	t.Parallel()

	t.Run("bad status", func(t *testing.T) {
		t.Parallel()
		srv := jwkstest.NewServer(t, nil)
		srv.SetStatus(http.StatusServiceUnavailable)
		ks := jwks.New(srv.URL, jwks.WithCache(jwks.NewCache(4, time.Hour)))

		_, err := ks.Key(context.Background(), "k1")
		require.ErrorIs(t, err, jwks.ErrFetch)
	})

	t.Run("failure is not cached", func(t *testing.T) {
		t.Parallel()
		priv := jwkstest.GenerateKey(t)
		srv := jwkstest.NewServer(t, map[string]*rsa.PublicKey{"k1": &priv.PublicKey})
		srv.SetStatus(http.StatusInternalServerError)
		ks := jwks.New(srv.URL, jwks.WithCache(jwks.NewCache(4, time.Hour)))

		_, err := ks.Key(context.Background(), "k1")
		require.ErrorIs(t, err, jwks.ErrFetch)

		srv.SetStatus(http.StatusOK)
		_, err = ks.Key(context.Background(), "k1")
		require.NoError(t, err)
	})

	t.Run("empty key set", func(t *testing.T) {
		t.Parallel()
		srv := jwkstest.NewServer(t, map[string]*rsa.PublicKey{})
		ks := jwks.New(srv.URL, jwks.WithCache(jwks.NewCache(4, time.Hour)))

		_, err := ks.Key(context.Background(), "k1")
		require.ErrorIs(t, err, jwks.ErrFetch)
		assert.ErrorIs(t, err, jwks.ErrNoKeys)
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()
		srv := jwkstest.NewServer(t, nil)
		url := srv.URL
		srv.Close()
		ks := jwks.New(url, jwks.WithCache(jwks.NewCache(4, time.Hour)))

		_, err := ks.Key(context.Background(), "k1")
		require.ErrorIs(t, err, jwks.ErrFetch)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		priv := jwkstest.GenerateKey(t)
		srv := jwkstest.NewServer(t, map[string]*rsa.PublicKey{"k1": &priv.PublicKey})
		ks := jwks.New(srv.URL, jwks.WithCache(jwks.NewCache(4, time.Hour)))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ks.Key(ctx, "k1")
		require.Error(t, err)
	})
}

func TestKeySet_DocumentFiltering(t *testing.T) {
	t.Parallel()

	priv := jwkstest.GenerateKey(t)
	jwk, err := jwkset.NewJWKFromKey(&priv.PublicKey, jwkset.JWKOptions{
		Metadata: jwkset.JWKMetadataOptions{KID: "good", USE: jwkset.UseSig, ALG: jwkset.AlgRS256},
	})
	require.NoError(t, err)
	good := jwk.Marshal()

	enc := good
	enc.KID, enc.USE = "enc", jwkset.UseEnc
	anonymous := good
	anonymous.KID = ""
	broken := good
	broken.KID, broken.N = "broken", "!!not-base64!!"
	ec := jwkset.JWKMarshal{KTY: jwkset.KtyEC, KID: "ec", CRV: jwkset.CrvP256, X: "AA", Y: "AA"}

	document := func(keys ...jwkset.JWKMarshal) []byte {
		raw, err := json.Marshal(jwkset.JWKSMarshal{Keys: keys})
		require.NoError(t, err)
		return raw
	}

	t.Run("keeps only rsa signing keys", func(t *testing.T) {
		t.Parallel()
		srv := jwkstest.NewServer(t, nil)
		srv.SetDocument(document(enc, anonymous, broken, ec, good))
		ks := jwks.New(srv.URL, jwks.WithCache(jwks.NewCache(4, time.Hour)))

		key, err := ks.Key(context.Background(), "good")
		require.NoError(t, err)
		assert.Equal(t, 0, priv.PublicKey.N.Cmp(key.N))

		for _, kid := range []string{"enc", "broken", "ec"} {
			_, err = ks.Key(context.Background(), kid)
			assert.ErrorIs(t, err, jwks.ErrKeyNotFound, kid)
		}
		assert.Equal(t, int64(1), srv.Hits())
	})

	t.Run("only malformed keys", func(t *testing.T) {
		t.Parallel()
		srv := jwkstest.NewServer(t, nil)
		srv.SetDocument(document(broken, enc))
		ks := jwks.New(srv.URL, jwks.WithCache(jwks.NewCache(4, time.Hour)))

		_, err := ks.Key(context.Background(), "broken")
		require.ErrorIs(t, err, jwks.ErrFetch)
		assert.ErrorIs(t, err, jwks.ErrNoKeys)
		assert.ErrorIs(t, err, jwks.ErrMalformedKey)
	})

	t.Run("not a key set", func(t *testing.T) {
		t.Parallel()
		srv := jwkstest.NewServer(t, nil)
		srv.SetDocument([]byte("<html>"))
		ks := jwks.New(srv.URL, jwks.WithCache(jwks.NewCache(4, time.Hour)))

		_, err := ks.Key(context.Background(), "good")
		require.ErrorIs(t, err, jwks.ErrFetch)
	})
}

func TestKeySet_ConcurrentMissesFetchOnce(t *testing.T) {
	t.Parallel()

	priv := jwkstest.GenerateKey(t)
	srv := jwkstest.NewServer(t, map[string]*rsa.PublicKey{"k1": &priv.PublicKey})
	ks := jwks.New(srv.URL, jwks.WithCache(jwks.NewCache(4, time.Hour)))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ks.Key(context.Background(), "k1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), srv.Hits())
}

func TestKeySet_ExpiredEntryRefetches(t *testing.T) {
	t.Parallel()

	priv := jwkstest.GenerateKey(t)
	srv := jwkstest.NewServer(t, map[string]*rsa.PublicKey{"k1": &priv.PublicKey})
	ks := jwks.New(srv.URL, jwks.WithCache(jwks.NewCache(4, time.Nanosecond)))

	_, err := ks.Key(context.Background(), "k1")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = ks.Key(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), srv.Hits())
}
