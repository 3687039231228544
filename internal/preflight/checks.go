package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"storyreel/internal/config"
	"storyreel/internal/deps"
	"storyreel/internal/language"
	"storyreel/internal/timeline"
)

const httpCheckTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFile verifies that a configured asset such as a font or avatar is a
// readable regular file.
func CheckFile(name, path string) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckSystemDeps evaluates the external binaries the config needs, plus the
// ffmpeg filters the composition graphs use.
func CheckSystemDeps(ctx context.Context, cfg *config.Config, lister deps.FilterLister) []deps.Status {
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	for _, status := range statuses {
		if status.Name == "FFmpeg" && status.Available {
			statuses = append(statuses, deps.CheckFFmpegFilters(ctx, status.Command, deps.RequiredFilters, lister))
			break
		}
	}
	return statuses
}

// CheckVoiceAPI verifies the speech synthesis key by requesting the account
// profile.
func CheckVoiceAPI(ctx context.Context, client *http.Client, baseURL, apiKey string) Result {
	const name = "Voice API"
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}
	return probe(ctx, client, name, base+"/v1/user", func(req *http.Request) {
		req.Header.Set("xi-api-key", strings.TrimSpace(apiKey))
	})
}

// CheckTranscription verifies the hosted transcription endpoint. The local
// whisperx provider has nothing to probe beyond the uvx binary, which
// CheckSystemDeps covers.
func CheckTranscription(ctx context.Context, client *http.Client, cfg config.Transcription) Result {
	const name = "Transcription API"
	if strings.EqualFold(cfg.Provider, "whisperx") {
		return Result{Name: name, Passed: true, Detail: "local whisperx, " + language.DisplayName(cfg.Language)}
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}
	return probe(ctx, client, name, base+"/models", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(cfg.APIKey))
	})
}

// CheckBackgroundClips reports how many background folders hold usable clips.
func CheckBackgroundClips(root string) Result {
	const name = "Background clips"
	entries, err := os.ReadDir(root)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", root, err)}
	}
	folders, clips := 0, 0
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		found, err := timeline.ListClips(filepath.Join(root, entry.Name()))
		if err != nil || len(found) == 0 {
			continue
		}
		folders++
		clips += len(found)
	}
	if folders == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (no folders with clips)", root)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d clips in %d folders", clips, folders)}
}

func probe(ctx context.Context, client *http.Client, name, url string, authorize func(*http.Request)) Result {
	if client == nil {
		client = &http.Client{Timeout: httpCheckTimeout}
	}
	checkCtx, cancel := context.WithTimeout(ctx, httpCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	authorize(req)
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeRequestError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "API reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

func summarizeRequestError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	return err.Error()
}
