package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	headerIngestTimestamp = "X-Ingest-Timestamp"
	headerIngestSignature = "X-Ingest-Signature"

	maxIngestBody = 16 << 20
)

// IngestAuthMiddleware checks the HMAC signature on snapshots pushed by the
// record store. The signature is hex(HMAC-SHA256(secret, timestamp + "\n" + body)).
type IngestAuthMiddleware struct {
	secret  []byte
	maxSkew time.Duration
	now     func() time.Time
}

// NewIngestAuthMiddleware constructs ingest auth middleware. A zero maxSkew
// disables the timestamp window.
func NewIngestAuthMiddleware(secret []byte, maxSkew time.Duration) *IngestAuthMiddleware {
	return &IngestAuthMiddleware{secret: secret, maxSkew: maxSkew, now: time.Now}
}

// Wrap rejects unsigned or stale requests and hands the verified body on.
func (m *IngestAuthMiddleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.secret) == 0 {
			http.Error(w, "ingest auth not configured", http.StatusUnauthorized)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBody))
		_ = r.Body.Close()
		if err != nil {
			http.Error(w, "read body error", http.StatusBadRequest)
			return
		}
		if err := m.verify(r.Header.Get(headerIngestTimestamp), r.Header.Get(headerIngestSignature), body); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (m *IngestAuthMiddleware) verify(timestamp, signature string, body []byte) error {
	timestamp = strings.TrimSpace(timestamp)
	signature = strings.ToLower(strings.TrimSpace(signature))
	if timestamp == "" || signature == "" {
		return fmt.Errorf("%w: missing headers", ErrBadSignature)
	}
	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: timestamp %q", ErrBadSignature, timestamp)
	}
	if m.maxSkew > 0 {
		skew := m.now().Sub(time.Unix(unix, 0))
		if skew < 0 {
			skew = -skew
		}
		if skew > m.maxSkew {
			return fmt.Errorf("%w: expired", ErrBadSignature)
		}
	}
	if !hmac.Equal([]byte(signature), []byte(ingestSignature(m.secret, timestamp, body))) {
		return fmt.Errorf("%w: mismatch", ErrBadSignature)
	}
	return nil
}

// SignIngest returns the timestamp and signature headers for body.
func SignIngest(secret []byte, now time.Time, body []byte) (timestamp, signature string) {
	timestamp = strconv.FormatInt(now.Unix(), 10)
	return timestamp, ingestSignature(secret, timestamp, body)
}

func ingestSignature(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp + "\n"))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
