// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package muxer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/model"
)

// ObjectStore is the slice of object storage the muxer needs: fetching
// staged inputs and writing the fused artifact back.
type ObjectStore interface {
	// Get opens the object at the locator for reading.
	Get(ctx context.Context, locator string) (io.ReadCloser, error)
	// Put writes the object at the locator and returns its size in bytes.
	Put(ctx context.Context, locator string, r io.Reader) (int64, error)
}

// MuxFailure reports a mux attempt the tool itself rejected: the exit code
// plus the stderr tail, which is the only useful diagnostic ffmpeg leaves
// behind.
type MuxFailure struct {
	ExitCode   int
	StderrTail []string
}

// Error implements the error interface.
func (f *MuxFailure) Error() string {
	return fmt.Sprintf("mux command exited %d: %s", f.ExitCode, strings.Join(f.StderrTail, " | "))
}

// MediaMuxer fuses a video track with optional narration audio and burned
// subtitles into a single artifact. One request maps to exactly one command
// invocation; retry decisions belong to the caller, which knows whether a
// degraded artifact is preferable to another attempt.
type MediaMuxer struct {
	store        ObjectStore
	runner       ProcessRunner
	commandPath  string // Path to the ffmpeg binary.
	scratchDir   string // Directory for staged inputs and the local output.
	outputBucket string // Bucket the fused artifact is uploaded to.
}

// NewMediaMuxer creates a muxer. scratchDir must exist and be writable.
func NewMediaMuxer(store ObjectStore, runner ProcessRunner, commandPath, scratchDir, outputBucket string) *MediaMuxer {
	return &MediaMuxer{
		store:        store,
		runner:       runner,
		commandPath:  commandPath,
		scratchDir:   scratchDir,
		outputBucket: outputBucket,
	}
}

// scratchSet tracks the temp files created for one mux attempt so they can
// be released together.
type scratchSet struct {
	paths []string
}

func (s *scratchSet) add(p string) { s.paths = append(s.paths, p) }

// release removes every tracked file. Removal failures are logged and
// swallowed; a leftover scratch file must never mask the mux outcome.
func (s *scratchSet) release() {
	for _, p := range s.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove scratch file", "path", p, "error", err)
		}
	}
}

// Mux fuses the request's tracks into one artifact.
//
// Inputs:
//   - ctx: the request context; cancellation kills the subprocess.
//   - req: the track locators, output format, and quality.
//
// Outputs:
//   - model.MuxResult: the artifact locator, size, and track flags.
//   - error: a MuxFailure for a rejected command, or the staging or upload
//     failure that prevented the attempt.
func (m *MediaMuxer) Mux(ctx context.Context, req model.MuxRequest) (model.MuxResult, error) {
	scratch := &scratchSet{}
	defer scratch.release()

	if req.VideoLocator == "" {
		return model.MuxResult{}, fmt.Errorf("mux request has no video track")
	}

	videoPath, err := m.stage(ctx, scratch, req.VideoLocator)
	if err != nil {
		return model.MuxResult{}, fmt.Errorf("failed to stage video track: %w", err)
	}

	hasAudio := false
	audioPath := ""
	if req.AudioLocator != "" {
		audioPath, err = m.stage(ctx, scratch, req.AudioLocator)
		if err != nil {
			return model.MuxResult{}, fmt.Errorf("failed to stage audio track: %w", err)
		}
		hasAudio = true
	}

	hasSubtitles := false
	subtitlePath := ""
	if req.SubtitleLocator != "" {
		subtitlePath, err = m.stage(ctx, scratch, req.SubtitleLocator)
		if err != nil {
			return model.MuxResult{}, fmt.Errorf("failed to stage subtitle track: %w", err)
		}
		hasSubtitles = true
	}

	format := req.OutputFormat
	if format == "" {
		format = "mp4"
	}
	outPath, err := m.scratchFile(scratch, "."+format)
	if err != nil {
		return model.MuxResult{}, err
	}

	args := buildArgs(videoPath, audioPath, subtitlePath, outPath, format, req.Quality)
	result, err := m.runner.Run(ctx, m.commandPath, args)
	if err != nil {
		return model.MuxResult{}, fmt.Errorf("mux command did not run: %w", err)
	}
	if result.ExitCode != 0 {
		return model.MuxResult{}, &MuxFailure{ExitCode: result.ExitCode, StderrTail: result.StderrTail}
	}

	out, err := os.Open(outPath)
	if err != nil {
		return model.MuxResult{}, fmt.Errorf("failed to open fused artifact: %w", err)
	}
	defer func() { _ = out.Close() }()

	locator := fmt.Sprintf("gs://%s/%s.%s", m.outputBucket, uuid.NewString(), format)
	size, err := m.store.Put(ctx, locator, out)
	if err != nil {
		return model.MuxResult{}, fmt.Errorf("failed to upload fused artifact: %w", err)
	}

	slog.InfoContext(ctx, "mux complete",
		"artifact", locator,
		"size_bytes", size,
		"has_audio", hasAudio,
		"has_subtitles", hasSubtitles)

	return model.MuxResult{
		OutputLocator: locator,
		SizeBytes:     size,
		HasAudio:      hasAudio,
		HasSubtitles:  hasSubtitles,
		Merged:        true,
	}, nil
}

// stage copies a remote object into the scratch directory and returns the
// local path. The file extension comes from the locator, or from content
// sniffing when the locator has none, so ffmpeg can infer the demuxer.
func (m *MediaMuxer) stage(ctx context.Context, scratch *scratchSet, locator string) (string, error) {
	src, err := m.store.Get(ctx, locator)
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	local, err := m.scratchFile(scratch, path.Ext(locator))
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(local, os.O_WRONLY, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to copy %s: %w", locator, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	if path.Ext(local) == "" {
		return m.renameBySniff(scratch, local)
	}
	return local, nil
}

// renameBySniff gives an extension-less staged file the extension implied
// by its magic bytes.
func (m *MediaMuxer) renameBySniff(scratch *scratchSet, local string) (string, error) {
	kind, err := filetype.MatchFile(local)
	if err != nil || kind == filetype.Unknown {
		return local, nil
	}
	renamed := local + "." + kind.Extension
	if err := os.Rename(local, renamed); err != nil {
		return local, nil
	}
	// Track the new name; the old one no longer exists.
	for i, p := range scratch.paths {
		if p == local {
			scratch.paths[i] = renamed
		}
	}
	return renamed, nil
}

// scratchFile creates an empty tracked file in the scratch directory.
func (m *MediaMuxer) scratchFile(scratch *scratchSet, ext string) (string, error) {
	f, err := os.CreateTemp(m.scratchDir, "mux-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}
	scratch.add(name)
	return name, nil
}

// buildArgs assembles the ffmpeg invocation. The video track always maps
// through; audio maps with aac and -shortest so the clip ends with the
// shorter track; subtitles burn in through the subtitles video filter.
func buildArgs(videoPath, audioPath, subtitlePath, outPath, format string, quality string) []string {
	args := []string{"-y", "-hide_banner", "-i", videoPath}
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}

	args = append(args, "-map", "0:v:0")
	if audioPath != "" {
		args = append(args, "-map", "1:a:0", "-c:a", "aac", "-shortest")
	}

	if subtitlePath != "" {
		args = append(args, "-vf", "subtitles="+subtitlePath)
	}

	switch quality {
	case "low":
		args = append(args, "-crf", "30", "-preset", "faster")
	case "high":
		args = append(args, "-crf", "18", "-preset", "slow")
	default:
		args = append(args, "-crf", "23", "-preset", "medium")
	}

	return append(args, "-f", format, outPath)
}
