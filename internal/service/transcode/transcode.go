// Package transcode converts captured media fragments into normalized
// audio artifacts by invoking the external ffmpeg binary.
package transcode

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// The classifier model expects mono 22.05kHz Vorbis audio with low-frequency
// noise removed. The left channel is kept because the capture rig wires the
// primary microphone there.
const (
	filterChain = "highpass=f=80,pan=mono|c0=FL"
	sampleRate  = "22050"
	quality     = "10"
)

// Transcoder runs ffmpeg to produce audio artifacts.
type Transcoder struct {
	binary string
}

// New creates a Transcoder using the given ffmpeg binary path.
func New(binary string) *Transcoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Transcoder{binary: binary}
}

// AudioPath derives the artifact path for a source media file: the same
// base name with an .ogg extension, as a sibling of the source.
func AudioPath(mediaPath string) string {
	if idx := strings.LastIndexByte(mediaPath, '.'); idx > strings.LastIndexByte(mediaPath, '/') {
		return mediaPath[:idx] + ".ogg"
	}
	return mediaPath + ".ogg"
}

// ToOgg converts a source media file to its sibling .ogg artifact,
// overwriting any existing output. Returns the artifact path. Encoder
// failure propagates with captured ffmpeg output; there is no retry at
// this layer.
func (t *Transcoder) ToOgg(ctx context.Context, mediaPath string) (string, error) {
	dest := AudioPath(mediaPath)
	args := buildArgs(mediaPath, dest)
	cmd := exec.CommandContext(ctx, t.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg transcode: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return dest, nil
}

func buildArgs(src, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-af", filterChain,
		"-ar", sampleRate,
		"-q:a", quality,
		dest,
	}
}
