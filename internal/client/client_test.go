package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// TestActiveSessionID verifies the active-session lookup and the identity header.
func TestActiveSessionID(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/sessions/active" {
			t.Errorf("path = %q, want /api/v1/sessions/active", r.URL.Path)
		}
		if got := r.Header.Get("X-User-ID"); got != "7" {
			t.Errorf("X-User-ID = %q, want %q", got, "7")
		}
		json.NewEncoder(w).Encode(ActiveSession{Active: true, SessionID: &id})
	}))
	defer srv.Close()

	got, ok, err := New(srv.URL+"/", "").ActiveSessionID(context.Background(), 7)
	if err != nil {
		t.Fatalf("ActiveSessionID: %v", err)
	}
	if !ok || got != id {
		t.Errorf("got %v, %v, want %v, true", got, ok, id)
	}
}

// TestActiveSessionIDNone verifies an inactive response maps to false.
func TestActiveSessionIDNone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"active":false,"session_id":null}`))
	}))
	defer srv.Close()

	_, ok, err := New(srv.URL, "").ActiveSessionID(context.Background(), 1)
	if err != nil || ok {
		t.Errorf("got %v, %v, want false, nil", ok, err)
	}
}

// TestActiveSessionIDServerError verifies non-200 responses become errors.
func TestActiveSessionIDServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := New(srv.URL, "").ActiveSessionID(context.Background(), 1)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("err = %v, want status 500 error", err)
	}
}

// TestImportAlpha verifies the CSV body and API key are sent.
func TestImportAlpha(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q, want %q", got, "secret")
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "csv-data" {
			t.Errorf("body = %q, want %q", body, "csv-data")
		}
		json.NewEncoder(w).Encode(ImportResult{SessionsReceived: 2, SessionsImported: 1, SessionsSkipped: 1})
	}))
	defer srv.Close()

	res, err := New(srv.URL, "secret").ImportAlpha(context.Background(), 1, strings.NewReader("csv-data"))
	if err != nil {
		t.Fatalf("ImportAlpha: %v", err)
	}
	if res.SessionsImported != 1 || res.SessionsSkipped != 1 {
		t.Errorf("result = %+v", res)
	}
}
