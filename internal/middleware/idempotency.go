package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"loan-backend/pkg/utils"
)

const IdempotencyHeader = "Idempotency-Key"

type idempotencyRecord struct {
	State  string `json:"state"` // pending | done
	Hash   string `json:"hash"`
	Status int    `json:"status,omitempty"`
	Body   []byte `json:"body,omitempty"`
}

// MaxIdempotentBody caps the body buffered for fingerprinting; it matches the JSON decode limit
const MaxIdempotentBody = 1 << 20

// Idempotency makes POSTs carrying an Idempotency-Key safe to retry. The first request
// takes a Redis lock; a retry with the same key and body replays the stored response,
// a concurrent retry or a different body gets 409. Requests without the header, or a
// nil client, pass straight through.
func Idempotency(client *redis.Client, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if client == nil || key == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxIdempotentBody))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					utils.Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
					return
				}
				utils.Error(w, http.StatusBadRequest, "Could not read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			hash := hex.EncodeToString(sum[:])
			userID, _ := GetUserIDFromContext(r.Context())
			redisKey := fmt.Sprintf("idempotency:%d:%s:%s", userID, r.URL.Path, key)
			ctx := r.Context()
			logger := LoggerFromContext(ctx)

			pending, _ := json.Marshal(idempotencyRecord{State: "pending", Hash: hash})
			acquired, err := client.SetNX(ctx, redisKey, pending, ttl).Result()
			if err != nil {
				// Redis trouble should not block collections
				logger.Warn("idempotency lock failed", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			if !acquired {
				raw, err := client.Get(ctx, redisKey).Bytes()
				if errors.Is(err, redis.Nil) {
					utils.Error(w, http.StatusConflict, "Request with this Idempotency-Key is being retried, try again")
					return
				}
				if err != nil {
					utils.Error(w, http.StatusServiceUnavailable, "Idempotency store unavailable")
					return
				}
				var rec idempotencyRecord
				if err := json.Unmarshal(raw, &rec); err != nil {
					utils.Error(w, http.StatusConflict, "Idempotency-Key is in an unknown state")
					return
				}
				switch {
				case rec.Hash != hash:
					utils.Error(w, http.StatusConflict, "Idempotency-Key was already used with a different request body")
				case rec.State != "done":
					utils.Error(w, http.StatusConflict, "A request with this Idempotency-Key is still in progress")
				default:
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("Idempotency-Replayed", "true")
					w.WriteHeader(rec.Status)
					w.Write(rec.Body)
				}
				return
			}

			capture := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)

			// The outcome is recorded even if the client has gone away
			ctx = context.WithoutCancel(ctx)

			// Server errors release the key so the client can retry
			if capture.status >= http.StatusInternalServerError {
				client.Del(ctx, redisKey)
				return
			}
			done, _ := json.Marshal(idempotencyRecord{State: "done", Hash: hash, Status: capture.status, Body: capture.buf.Bytes()})
			if err := client.Set(ctx, redisKey, done, ttl).Err(); err != nil {
				logger.Warn("idempotency store failed", slog.String("error", err.Error()))
			}
		})
	}
}

type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *captureWriter) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}
