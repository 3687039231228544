package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"storyreel/internal/services"
	"storyreel/internal/services/httpretry"
)

func newTestClient(t *testing.T, serverURL string, opts ...Option) (*Client, string) {
	t.Helper()
	cacheDir := filepath.Join(t.TempDir(), "cache")
	cfg := Config{
		APIKey:   "secret",
		BaseURL:  serverURL,
		Voices:   map[string]string{"narrator": "voice-a", "storyteller": "voice-b"},
		CacheDir: cacheDir,
	}
	opts = append([]Option{WithRetryPolicy(httpretry.Policy{MaxAttempts: 3, Sleeper: func(time.Duration) {}})}, opts...)
	return NewClient(cfg, opts...), cacheDir
}

func TestSynthesizeWritesAudioAndCaches(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/text-to-speech/voice-a" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("output_format"); got != "mp3_44100_128" {
			t.Errorf("unexpected output format %q", got)
		}
		if r.Header.Get("xi-api-key") != "secret" {
			t.Errorf("missing api key header")
		}
		var body ttsRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Text != "Once upon a time" || body.ModelID != "eleven_multilingual_v2" {
			t.Errorf("unexpected body %+v", body)
		}
		_, _ = w.Write([]byte("ID3-audio"))
	}))
	defer server.Close()

	client, cacheDir := newTestClient(t, server.URL)
	dir := t.TempDir()
	first := filepath.Join(dir, "job-1", "body.mp3")
	second := filepath.Join(dir, "job-2", "body.mp3")
	for _, dest := range []string{first, second} {
		if err := client.Synthesize(context.Background(), "voice-a", "  Once upon a time ", dest); err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		data, err := os.ReadFile(dest)
		if err != nil || string(data) != "ID3-audio" {
			t.Fatalf("unexpected audio %q (%v)", data, err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one provider call, got %d", calls.Load())
	}
	key := CacheKey("voice-a", "eleven_multilingual_v2", "Once upon a time")
	if _, err := os.Stat(filepath.Join(cacheDir, key+".mp3")); err != nil {
		t.Fatalf("cache entry missing: %v", err)
	}
}

func TestSynthesizeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)
	if err := client.Synthesize(context.Background(), "voice-a", "text", filepath.Join(t.TempDir(), "a.mp3")); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestSynthesizeFailureClasses(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer empty.Close()
	denied := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer denied.Close()

	cases := []struct {
		name   string
		url    string
		text   string
		marker error
	}{
		{"empty audio", empty.URL, "hello", services.ErrResourceExhausted},
		{"http failure", denied.URL, "hello", services.ErrExternalService},
		{"blank text", empty.URL, "   ", services.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, tc.url)
			err := client.Synthesize(context.Background(), "voice-a", tc.text, filepath.Join(t.TempDir(), "out.mp3"))
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
		})
	}
}

func TestResolveVoice(t *testing.T) {
	client, _ := newTestClient(t, "http://unused", WithPicker(func(n int) int { return n - 1 }))

	cases := map[string]string{
		"narrator":      "voice-a",
		"StoryTeller":   "voice-b",
		"random":        "voice-b",
		"raw-voice-id-": "raw-voice-id-",
	}
	for name, want := range cases {
		got, err := client.ResolveVoice(name)
		if err != nil {
			t.Fatalf("ResolveVoice(%q): %v", name, err)
		}
		if got != want {
			t.Errorf("ResolveVoice(%q) = %q, want %q", name, got, want)
		}
	}

	bare := NewClient(Config{DefaultVoice: "random"})
	if _, err := bare.ResolveVoice(""); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
