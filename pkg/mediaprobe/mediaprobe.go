// Package mediaprobe shells out to ffprobe and ffmpeg for stream metadata and
// representative-frame extraction. The binary paths are configurable so the
// service can run against a static build in containers.
package mediaprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// StreamInfo carries the technical metadata of the primary media stream.
type StreamInfo struct {
	Width    int
	Height   int
	Duration float64
}

// Prober wraps the external ffmpeg/ffprobe binaries.
type Prober struct {
	ffmpegPath  string
	ffprobePath string
}

// New constructs a prober using the given binary paths.
func New(ffmpegPath, ffprobePath string) *Prober {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

type ffprobeOutput struct {
	Streams []struct {
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		Duration string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe returns the metadata of the first stream in the file.
func (p *Prober) Probe(ctx context.Context, file string) (StreamInfo, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		file,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return StreamInfo{}, fmt.Errorf("ffprobe failed: %w: %s", err, stderr.String())
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		return StreamInfo{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(parsed.Streams) == 0 {
		return StreamInfo{}, fmt.Errorf("no streams found in %s", file)
	}

	stream := parsed.Streams[0]
	info := StreamInfo{Width: stream.Width, Height: stream.Height}

	if duration, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
		info.Duration = duration
	} else if duration, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		info.Duration = duration
	}

	return info, nil
}

// ExtractFrame writes a single video frame taken at the given offset to output.
func (p *Prober) ExtractFrame(ctx context.Context, input, output string, offset time.Duration) error {
	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-ss", strconv.FormatFloat(offset.Seconds(), 'f', -1, 64),
		"-i", input,
		"-frames:v", "1",
		"-y",
		output,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg frame extraction failed: %w: %s", err, stderr.String())
	}

	return nil
}
