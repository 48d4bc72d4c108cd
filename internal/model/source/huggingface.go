package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ekisa-team/scribe/internal/config"
)

const markerFilename = ".scribe-downloaded"

// HuggingFaceDownloader downloads model weights from Hugging Face using the
// hf CLI.
type HuggingFaceDownloader struct{}

// Download downloads the tier's weights to the local cache and returns the
// resolved model file path. Downloads that already match the marker file are
// skipped. One attempt only; the context bounds the whole download.
func (d *HuggingFaceDownloader) Download(ctx context.Context, profile *config.TierConfig, targetDir string) (string, error) {
	src, err := profile.GetSource()
	if err != nil {
		return "", fmt.Errorf("failed to get model source: %w", err)
	}

	hfSource, ok := src.(config.HuggingFaceSource)
	if !ok {
		return "", fmt.Errorf("invalid source type: %T", src)
	}

	repo := strings.TrimSpace(hfSource.Repo)
	if repo == "" {
		return "", fmt.Errorf("invalid repo name: %s", repo)
	}

	fullPath := filepath.Join(targetDir, repo)
	markerPath := filepath.Join(fullPath, markerFilename)
	markerContent := d.markerContent(repo, hfSource.Revision)

	if !hfSource.ForceDownload && !d.shouldRedownload(markerPath, markerContent) {
		slog.Info("Model already downloaded and up-to-date (marker match), skipping", "repo", repo, "path", fullPath)
		return resolveModelPath(fullPath, hfSource.Include)
	}

	if err := os.MkdirAll(fullPath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	args := []string{
		"download",
		repo,
		"--local-dir", fullPath,
	}

	if hfSource.Revision != "" {
		args = append(args, "--revision", hfSource.Revision)
	}
	for _, inc := range hfSource.Include {
		args = append(args, "--include", inc)
	}
	if hfSource.ForceDownload {
		args = append(args, "--force-download")
	}
	if hfSource.Token != "" {
		args = append(args, "--token", hfSource.Token)
	}

	slog.Info("Downloading model", "repo", repo, "path", fullPath)

	cmd := exec.CommandContext(ctx, "hf", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("download interrupted: %w", ctx.Err())
		}
		return "", fmt.Errorf("download failed: %w: %s", err, output)
	}

	if err := os.WriteFile(markerPath, []byte(markerContent), 0o644); err != nil {
		slog.Warn("Failed to write download marker", "path", markerPath, "error", err)
	}

	slog.Info("Model downloaded successfully", "repo", repo, "path", fullPath)

	return resolveModelPath(fullPath, hfSource.Include)
}

// markerContent generates the expected content of the marker file.
// Used to detect if we need to redownload due to config change.
func (d *HuggingFaceDownloader) markerContent(repo, revision string) string {
	return fmt.Sprintf("repo: %s\nrevision: %s\n", repo, revision)
}

// shouldRedownload checks if the model should be redownloaded by comparing marker content.
func (d *HuggingFaceDownloader) shouldRedownload(markerPath, expectedContent string) bool {
	content, err := os.ReadFile(markerPath)
	if err != nil {
		return true
	}

	if string(content) != expectedContent {
		slog.Info("Model config changed (marker mismatch), will redownload", "marker_path", markerPath)
		return true
	}

	return false
}

// resolveModelPath finds the actual model file based on include patterns.
// If no include patterns match a single file, the base directory is returned.
func resolveModelPath(baseDir string, includePatterns []string) (string, error) {
	if len(includePatterns) == 0 {
		return baseDir, nil
	}

	var fileMatches []string
	for _, pattern := range includePatterns {
		matches, err := filepath.Glob(filepath.Join(baseDir, pattern))
		if err != nil {
			slog.Warn("Invalid glob pattern", "pattern", pattern, "error", err)
			continue
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			fileMatches = append(fileMatches, match)
		}
	}

	switch len(fileMatches) {
	case 0:
		slog.Warn("No files matched include patterns, using base directory", "patterns", includePatterns)
		return baseDir, nil
	case 1:
		return fileMatches[0], nil
	default:
		// Multiple files; the backend loads a directory in that case.
		return baseDir, nil
	}
}
