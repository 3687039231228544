package transcribe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"storyreel/internal/captions"
	"storyreel/internal/config"
	"storyreel/internal/services"
	"storyreel/internal/services/httpretry"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "merged-1.mp3")
	if err := os.WriteFile(path, []byte("fake-mp3"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenAITranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer token")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q", got)
		}
		if got := r.MultipartForm.Value["timestamp_granularities[]"]; !slices.Equal(got, []string{"word"}) {
			t.Errorf("timestamp_granularities = %v", got)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			data, _ := io.ReadAll(file)
			if string(data) != "fake-mp3" {
				t.Errorf("unexpected upload %q", data)
			}
		}
		_, _ = io.WriteString(w, `{"text":"hello world","words":[
			{"word":" world","start":0.6,"end":1.0},
			{"word":"hello","start":0.1,"end":0.5},
			{"word":"  ","start":1.0,"end":1.1}]}`)
	}))
	defer server.Close()

	client := NewOpenAI(OpenAIConfig{APIKey: "key", BaseURL: server.URL + "/v1", Language: "en"})
	words, err := client.Transcribe(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	want := []captions.WordTimestamp{{Word: "hello", Start: 0.1, End: 0.5}, {Word: "world", Start: 0.6, End: 1.0}}
	if !slices.Equal(words, want) {
		t.Fatalf("words = %+v, want %+v", words, want)
	}
}

func TestOpenAIEmptyTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"text":"","words":[]}`)
	}))
	defer server.Close()

	client := NewOpenAI(OpenAIConfig{APIKey: "key", BaseURL: server.URL})
	if _, err := client.Transcribe(context.Background(), writeAudio(t)); !errors.Is(err, services.ErrResourceExhausted) {
		t.Fatalf("expected resource exhausted, got %v", err)
	}
}

func TestOpenAIServerErrorIsExternal(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewOpenAI(OpenAIConfig{APIKey: "key", BaseURL: server.URL},
		WithRetryPolicy(httpretry.Policy{MaxAttempts: 2, Sleeper: func(time.Duration) {}}))
	_, err := client.Transcribe(context.Background(), writeAudio(t))
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestWhisperXTranscribe(t *testing.T) {
	audio := writeAudio(t)
	var gotArgs []string
	runner := func(ctx context.Context, name string, args ...string) error {
		if name != UVXCommand {
			t.Errorf("unexpected command %s", name)
		}
		gotArgs = args
		outputDir := args[slices.Index(args, "--output_dir")+1]
		payload := `{"segments":[{"words":[
			{"word":"Hello","start":0.0,"end":0.4},
			{"word":"42"},
			{"word":"there","start":0.5,"end":0.9}]}]}`
		return os.WriteFile(filepath.Join(outputDir, "merged-1.json"), []byte(payload), 0o644)
	}
	words, err := NewWhisperX(WhisperXConfig{Language: "en"}).WithCommandRunner(runner).Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(words) != 2 || words[0].Word != "Hello" || words[1].Word != "there" {
		t.Fatalf("unexpected words %+v", words)
	}
	if !slices.Contains(gotArgs, "--language") || !slices.Contains(gotArgs, DefaultWhisperXModel) {
		t.Fatalf("unexpected args %v", gotArgs)
	}
	entries, _ := os.ReadDir(filepath.Dir(audio))
	if len(entries) != 1 {
		t.Fatalf("whisperx output dir not removed: %v", entries)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Transcription.Provider = "whisperx"
	got, err := New(&cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(*WhisperX); !ok {
		t.Fatalf("expected WhisperX, got %T", got)
	}
	cfg.Transcription.Provider = "carrier-pigeon"
	if _, err := New(&cfg, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
