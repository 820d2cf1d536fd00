package middleware

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/w3bsuki/strike-cart-go/internal/model"
)

func TestRecoverWritesJSON500(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	h := CorrelationID(Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(HeaderCorrelationID, "cid-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var body model.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.CorrelationID != "cid-7" {
		t.Fatalf("correlation id = %q, want cid-7", body.CorrelationID)
	}

	if !strings.Contains(buf.String(), "cid=cid-7") {
		t.Fatalf("panic log line lacks the correlation id: %q", buf.String())
	}
}
