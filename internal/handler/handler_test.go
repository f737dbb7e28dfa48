package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEnvelopeShape(t *testing.T) {
	t.Parallel()

	t.Run("message only omits data", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		writeMessage(w, http.StatusNotFound, "resource not found")

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
		if got := w.Header().Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q", got)
		}
		want := `{"message":"resource not found"}` + "\n"
		if w.Body.String() != want {
			t.Errorf("body = %q, want %q", w.Body.String(), want)
		}
	})

	t.Run("payload is nested under data", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		writeData(w, http.StatusOK, "Application found!", []string{"a1"})

		want := `{"message":"Application found!","data":["a1"]}` + "\n"
		if w.Body.String() != want {
			t.Errorf("body = %q, want %q", w.Body.String(), want)
		}
	})

	t.Run("internal errors never leak details", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		internalError(w)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
		want := `{"message":"Something went wrong"}` + "\n"
		if w.Body.String() != want {
			t.Errorf("body = %q, want %q", w.Body.String(), want)
		}
	})
}

func TestHello(t *testing.T) {
	t.Parallel()

	h := New()
	w := httptest.NewRecorder()
	h.Hello(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	message, _ := decodeEnvelope(t, w.Body.Bytes())
	if message == "" {
		t.Error("expected a non-empty message")
	}
}
