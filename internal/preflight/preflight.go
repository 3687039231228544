package preflight

import (
	"context"
	"net/http"

	"storyreel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the local checks plus the voice and transcription API
// checks. Binary checks live in CheckSystemDeps because they report
// deps.Status values.
func RunAll(ctx context.Context, cfg *config.Config, client *http.Client) []Result {
	if cfg == nil {
		return nil
	}
	results := RunLocal(cfg)
	results = append(results, CheckVoiceAPI(ctx, client, cfg.Voice.BaseURL, cfg.Voice.APIKey))
	results = append(results, CheckTranscription(ctx, client, cfg.Transcription))
	return results
}

// RunLocal executes the directory and asset checks, which need no network.
func RunLocal(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Voice cache", cfg.Paths.VoiceCacheDir),
		CheckBackgroundClips(cfg.Paths.BackgroundDir),
		CheckFile("Caption font", cfg.Captions.FontPath),
	}
	if cfg.Label.FontPath != "" {
		results = append(results, CheckFile("Label font", cfg.Label.FontPath))
	}
	if cfg.Label.AvatarPath != "" {
		results = append(results, CheckFile("Label avatar", cfg.Label.AvatarPath))
	}
	if cfg.Publish.Enabled && cfg.Publish.Target == "youtube" {
		results = append(results, CheckFile("YouTube credentials", cfg.Publish.YouTubeServiceAccount))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
