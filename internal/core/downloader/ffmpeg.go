package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/gruf/go-ffmpreg/ffmpreg"
	"codeberg.org/gruf/go-ffmpreg/wasm"
	"github.com/rs/zerolog/log"
	"github.com/tetratelabs/wazero"

	"github.com/byAyes/wbot/internal/core/media"
)

// FFmpegAvailable checks if ffmpeg is installed and available in PATH
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// Encoder runs one ffmpeg invocation. in and out are absolute paths that
// also appear in args.
type Encoder interface {
	Name() string
	Encode(ctx context.Context, args []string, in, out string) error
}

// NewEncoder returns the system ffmpeg when installed, otherwise the
// embedded WASM build.
func NewEncoder() Encoder {
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return &ExecEncoder{Path: path}
	}
	return WasmEncoder{}
}

// ExecEncoder runs the system ffmpeg binary
type ExecEncoder struct {
	Path string
}

func (e *ExecEncoder) Name() string { return "ffmpeg" }

func (e *ExecEncoder) Encode(ctx context.Context, args []string, _, _ string) error {
	full := append([]string{"-hide_banner", "-loglevel", "error", "-threads", "1"}, args...)
	cmd := exec.CommandContext(ctx, e.Path, full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// WasmEncoder runs ffmpeg compiled to WebAssembly inside wazero. The input
// and output directories are mounted at their host paths.
type WasmEncoder struct{}

func (WasmEncoder) Name() string { return "ffmpeg-wasm" }

func (WasmEncoder) Encode(ctx context.Context, args []string, in, out string) error {
	inputDir := filepath.Dir(in)
	outputDir := filepath.Dir(out)

	var stderr bytes.Buffer
	rc, err := ffmpreg.Ffmpeg(ctx, wasm.Args{
		Stderr: &stderr,
		Stdout: io.Discard,
		Args:   append([]string{"-hide_banner", "-loglevel", "error"}, args...),
		Config: func(cfg wazero.ModuleConfig) wazero.ModuleConfig {
			return cfg.WithFSConfig(wazero.NewFSConfig().
				WithDirMount(inputDir, inputDir).
				WithDirMount(outputDir, outputDir))
		},
	})
	if err != nil {
		return fmt.Errorf("ffmpeg wasm failed: %w", err)
	}
	if rc != 0 {
		return fmt.Errorf("ffmpeg wasm exited with code %d: %s", rc, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Transcoder converts validated artifacts to mp3 (audio) or mp4 (video)
type Transcoder struct {
	Encoder Encoder
	// Validator, when set, probes the encoded output
	Validator Validator
	// ForceReencode encodes even when the container already matches
	ForceReencode bool
}

// NewTranscoder picks an encoder for this host
func NewTranscoder(validator Validator, forceReencode bool) *Transcoder {
	return &Transcoder{
		Encoder:       NewEncoder(),
		Validator:     validator,
		ForceReencode: forceReencode,
	}
}

// NeedsTranscode reports whether art must be encoded to reach its target format.
func (t *Transcoder) NeedsTranscode(art *media.Artifact) bool {
	return t.ForceReencode || art.Format != art.Kind.OrVideo().TargetFormat()
}

// Transcode returns art unchanged when no encode is needed. Otherwise the
// encoded file replaces it: the source file is deleted and the new artifact
// is returned. Failures wrap media.ErrTranscodeFailed.
func (t *Transcoder) Transcode(ctx context.Context, art *media.Artifact) (*media.Artifact, error) {
	kind := art.Kind.OrVideo()
	target := kind.TargetFormat()
	if !t.NeedsTranscode(art) {
		log.Debug().Str("component", "transcode").Str("format", art.Format).Msg("container already matches, skipping encode")
		return art, nil
	}

	in, err := filepath.Abs(art.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrTranscodeFailed, err)
	}
	out := filepath.Join(filepath.Dir(in), "final."+target)
	if out == in {
		out = filepath.Join(filepath.Dir(in), "final-encoded."+target)
	}

	logger := log.With().Str("component", "transcode").Str("encoder", t.Encoder.Name()).Str("target", target).Logger()
	start := time.Now()
	if err := t.Encoder.Encode(ctx, encodeArgs(kind, in, out), in, out); err != nil {
		os.Remove(out)
		logger.Error().Err(err).Msg("encode failed")
		return nil, fmt.Errorf("%w: %v", media.ErrTranscodeFailed, err)
	}

	var result *media.Artifact
	if t.Validator != nil {
		result, err = Validate(ctx, t.Validator, out, kind)
		if err != nil {
			return nil, fmt.Errorf("%w: encoded output: %v", media.ErrTranscodeFailed, err)
		}
	} else {
		st, err := os.Stat(out)
		if err != nil || st.Size() == 0 {
			os.Remove(out)
			return nil, fmt.Errorf("%w: encoder produced no output", media.ErrTranscodeFailed)
		}
		result = &media.Artifact{Path: out, Kind: kind, Format: target, Size: st.Size(), Validated: true}
	}
	result.Title = art.Title

	if err := os.Remove(in); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("could not remove pre-transcode file")
	}
	logger.Info().Dur("took", time.Since(start)).Str("size", formatBytes(result.Size)).Msg("encode finished")
	return result, nil
}

func encodeArgs(kind media.Kind, in, out string) []string {
	if kind == media.KindAudio {
		return []string{
			"-i", in,
			"-vn",
			"-c:a", "libmp3lame",
			"-b:a", "192k",
			"-f", "mp3",
			"-y",
			out,
		}
	}
	return []string{
		"-i", in,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-f", "mp4",
		"-y",
		out,
	}
}
