package downloader

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/byAyes/wbot/internal/core/media"
)

// ProbeInfo is what a validator learned about a file
type ProbeInfo struct {
	Format   string
	Duration float64
	HasAudio bool
	HasVideo bool
}

// Validator checks that a file is a playable media container
type Validator interface {
	Probe(ctx context.Context, path string) (*ProbeInfo, error)
}

// NewValidator prefers ffprobe and falls back to the pure-Go probe when it
// is not installed.
func NewValidator(ffprobePath string) Validator {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if p, err := exec.LookPath(ffprobePath); err == nil {
		return &FFProbe{Path: p}
	}
	log.Warn().Str("component", "validator").Msg("ffprobe not found, using native probe")
	return NativeProbe{}
}

// FFProbe validates by running ffprobe
type FFProbe struct {
	Path string
}

func (p *FFProbe) Probe(ctx context.Context, path string) (*ProbeInfo, error) {
	cmd := exec.CommandContext(ctx, p.Path,
		"-v", "error",
		"-show_entries", "format=format_name,duration:stream=codec_type",
		"-of", "json",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if !gjson.ValidBytes(out) {
		return nil, fmt.Errorf("ffprobe: unreadable output")
	}

	info := &ProbeInfo{
		Format:   normalizeFormatName(gjson.GetBytes(out, "format.format_name").String()),
		Duration: gjson.GetBytes(out, "format.duration").Float(),
	}
	for _, s := range gjson.GetBytes(out, "streams.#.codec_type").Array() {
		switch s.String() {
		case "audio":
			info.HasAudio = true
		case "video":
			info.HasVideo = true
		}
	}
	if !info.HasAudio && !info.HasVideo {
		return nil, fmt.Errorf("ffprobe: no audio or video stream")
	}
	return info, nil
}

// normalizeFormatName maps ffprobe's comma separated demuxer list to an extension
func normalizeFormatName(name string) string {
	switch {
	case name == "mp3":
		return "mp3"
	case strings.Contains(name, "mp4"):
		return "mp4"
	case strings.Contains(name, "webm"):
		return "webm"
	case strings.Contains(name, "matroska"):
		return "mkv"
	case name == "ogg":
		return "ogg"
	case name == "flac":
		return "flac"
	case name == "wav":
		return "wav"
	case name == "aac":
		return "aac"
	}
	return name
}

// NativeProbe validates without external binaries. mp3, flac and wav get
// a decode of their first frames; the other containers get a structural
// walk that catches truncation but not corrupt payloads. Only ffprobe
// checks that the streams actually decode.
type NativeProbe struct{}

var errUnknownContainer = errors.New("unknown container")

func (NativeProbe) Probe(_ context.Context, path string) (*ProbeInfo, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	info := &ProbeInfo{Format: format}
	switch format {
	case "mp3":
		info.HasAudio = true
		info.Duration, err = probeMP3(path)
	case "flac":
		info.HasAudio = true
		info.Duration, err = probeFLAC(path)
	case "wav":
		info.HasAudio = true
		info.Duration, err = probeWAV(path)
	case "mp4", "m4a", "mov":
		info.HasAudio = true
		info.HasVideo = format != "m4a"
		err = probeBMFF(path)
	case "webm", "mkv":
		info.HasAudio = true
		info.HasVideo = true
		err = probeEBML(path)
	case "ogg":
		info.HasAudio = true
		err = probeOgg(path)
	case "aac":
		info.HasAudio = true
		info.Duration, err = probeADTS(path)
	case "html":
		err = fmt.Errorf("file is an html page")
	default:
		err = errUnknownContainer
	}
	if err != nil {
		return nil, fmt.Errorf("native probe %s: %w", format, err)
	}
	return info, nil
}

func probeMP3(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 4096)
	if _, err := io.ReadFull(d, buf); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	// Length is in bytes of 16-bit stereo PCM
	if l := d.Length(); l > 0 && d.SampleRate() > 0 {
		return float64(l) / 4 / float64(d.SampleRate()), nil
	}
	return 0, nil
}

func probeFLAC(path string) (float64, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	if _, err := stream.ParseNext(); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	if stream.Info.SampleRate == 0 {
		return 0, nil
	}
	return float64(stream.Info.NSamples) / float64(stream.Info.SampleRate), nil
}

func probeWAV(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return 0, fmt.Errorf("invalid wav header")
	}
	dur, err := d.Duration()
	if err != nil {
		return 0, err
	}
	return dur.Seconds(), nil
}

// probeBMFF walks the top-level boxes and requires a movie header.
func probeBMFF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	size := st.Size()

	var offset int64
	hdr := make([]byte, 16)
	for offset < size {
		if _, err := f.ReadAt(hdr[:8], offset); err != nil {
			return fmt.Errorf("truncated box at %d", offset)
		}
		boxSize := int64(binary.BigEndian.Uint32(hdr[0:4]))
		boxType := string(hdr[4:8])
		switch boxSize {
		case 0:
			boxSize = size - offset
		case 1:
			if _, err := f.ReadAt(hdr[8:16], offset+8); err != nil {
				return fmt.Errorf("truncated box at %d", offset)
			}
			boxSize = int64(binary.BigEndian.Uint64(hdr[8:16]))
		}
		if boxSize < 8 || offset+boxSize > size {
			return fmt.Errorf("box %q overruns file", boxType)
		}
		if boxType == "moov" {
			return nil
		}
		offset += boxSize
	}
	return fmt.Errorf("no moov box")
}

// Validate probes the file at path. On failure the file is deleted and the
// error wraps media.ErrArtifactInvalid.
func Validate(ctx context.Context, v Validator, path string, kind media.Kind) (*media.Artifact, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrArtifactInvalid, err)
	}

	info, err := v.Probe(ctx, path)
	if err == nil && st.Size() == 0 {
		err = fmt.Errorf("empty file")
	}
	if err == nil && kind == media.KindAudio && !info.HasAudio {
		err = fmt.Errorf("no audio stream")
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn().Err(rmErr).Str("path", path).Msg("could not remove invalid artifact")
		}
		return nil, fmt.Errorf("%w: %v", media.ErrArtifactInvalid, err)
	}

	return &media.Artifact{
		Path:      path,
		Kind:      kind,
		Format:    info.Format,
		Size:      st.Size(),
		Validated: true,
	}, nil
}
