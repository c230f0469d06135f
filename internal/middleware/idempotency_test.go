package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func countingHandler(calls *int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"call":%d}`, n)
	})
}

func post(h http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/agent/collect/7", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_ReplaysResponse(t *testing.T) {
	_, client := newRedis(t)
	var calls int32
	h := Idempotency(client, time.Hour)(countingHandler(&calls, http.StatusCreated))

	first := post(h, "abc", `{"amount":100}`)
	second := post(h, "abc", `{"amount":100}`)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, `{"call":1}`, second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotency-Replayed"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotency_BodyMismatch(t *testing.T) {
	_, client := newRedis(t)
	var calls int32
	h := Idempotency(client, time.Hour)(countingHandler(&calls, http.StatusCreated))

	post(h, "abc", `{"amount":100}`)
	rec := post(h, "abc", `{"amount":200}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotency_InFlight(t *testing.T) {
	_, client := newRedis(t)
	var calls int32
	h := Idempotency(client, time.Hour)(countingHandler(&calls, http.StatusCreated))

	// a lock left by a request that has not finished yet
	pending := `{"state":"pending","hash":"` + sha(`{"amount":100}`) + `"}`
	require.NoError(t, client.Set(context.Background(), "idempotency:0:/api/agent/collect/7:abc", pending, time.Hour).Err())

	rec := post(h, "abc", `{"amount":100}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestIdempotency_ServerErrorReleasesKey(t *testing.T) {
	mr, client := newRedis(t)
	var calls int32
	h := Idempotency(client, time.Hour)(countingHandler(&calls, http.StatusInternalServerError))

	post(h, "abc", `{}`)
	assert.False(t, mr.Exists("idempotency:0:/api/agent/collect/7:abc"))
	post(h, "abc", `{}`)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotency_PassThrough(t *testing.T) {
	_, client := newRedis(t)
	var calls int32

	withoutKey := Idempotency(client, time.Hour)(countingHandler(&calls, http.StatusOK))
	post(withoutKey, "", `{}`)
	post(withoutKey, "", `{}`)

	withoutRedis := Idempotency(nil, time.Hour)(countingHandler(&calls, http.StatusOK))
	post(withoutRedis, "abc", `{}`)
	post(withoutRedis, "abc", `{}`)

	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func sha(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

func TestIdempotency_BodyTooLarge(t *testing.T) {
	mr, client := newRedis(t)
	var calls int32
	h := Idempotency(client, time.Hour)(countingHandler(&calls, http.StatusCreated))

	rec := post(h, "big", strings.Repeat("x", MaxIdempotentBody+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Empty(t, mr.Keys())

	rec = post(h, "big", strings.Repeat("x", MaxIdempotentBody))
	assert.Equal(t, http.StatusCreated, rec.Code)
}
