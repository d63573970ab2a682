package httpmw

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func readAll(t *testing.T, limit int64, body string, declare bool) (int, error) {
	t.Helper()
	var readErr error
	h := MaxBody(limit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if !declare {
		req.ContentLength = -1
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code, readErr
}

func TestMaxBody_UnderAndAtLimit(t *testing.T) {
	for _, body := range []string{"", "abc", "0123456789"} {
		if _, err := readAll(t, 10, body, true); err != nil {
			t.Errorf("body %q: %v", body, err)
		}
	}
}

func TestMaxBody_DeclaredTooLarge(t *testing.T) {
	code, _ := readAll(t, 4, "too large", true)
	if code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", code)
	}
}

func TestMaxBody_ChunkedTooLarge(t *testing.T) {
	_, err := readAll(t, 4, "too large", false)
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) || mbe.Limit != 4 {
		t.Fatalf("err = %v, want MaxBytesError(4)", err)
	}
}
