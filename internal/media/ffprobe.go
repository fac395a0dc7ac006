package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/stwalsh4118/gravmusic/internal/logger"
)

// Default timeout for a single FFprobe execution
const defaultProbeTimeout = 30 * time.Second

// Common errors
var (
	ErrFFprobeNotFound = errors.New("ffprobe not found in PATH")
	ErrFileNotFound    = errors.New("file not found or not readable")
	ErrInvalidFile     = errors.New("invalid or corrupted audio file")
	ErrTimeout         = errors.New("ffprobe execution timed out")
)

// FFprobeResult represents the top-level JSON output from FFprobe
type FFprobeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream represents a single stream in the probed resource
type Stream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`
	CodecLongName string `json:"codec_long_name"`
	CodecType     string `json:"codec_type"` // "audio", "video" (cover art)
	Duration      string `json:"duration,omitempty"`
	BitRate       string `json:"bit_rate,omitempty"`
	Channels      int    `json:"channels,omitempty"`
	SampleRate    string `json:"sample_rate,omitempty"`
	ChannelLayout string `json:"channel_layout,omitempty"`
}

// Format represents the container information
type Format struct {
	Filename       string `json:"filename"`
	NbStreams      int    `json:"nb_streams"`
	FormatName     string `json:"format_name"`
	FormatLongName string `json:"format_long_name"`
	Duration       string `json:"duration"`
	Size           string `json:"size"`
	BitRate        string `json:"bit_rate"`
}

// AudioMetadata is the subset of probe output the player uses
type AudioMetadata struct {
	Duration   float64 // seconds
	Codec      string  // e.g. "mp3", "flac"
	SampleRate int
	Channels   int
	BitRate    int64
}

// CheckFFprobeInstalled checks if FFprobe is available in PATH
func CheckFFprobeInstalled() error {
	_, err := exec.LookPath("ffprobe")
	if err != nil {
		return ErrFFprobeNotFound
	}
	return nil
}

// ProbeFile executes FFprobe on a file path or URL and returns its metadata
func ProbeFile(ctx context.Context, target string, timeout time.Duration) (*AudioMetadata, error) {
	if err := CheckFFprobeInstalled(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	logger.Log.Debug().
		Str("target", target).
		Msg("Probing audio with FFprobe")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx,
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		target,
	)

	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Log.Warn().
				Str("target", target).
				Msg("FFprobe execution timed out")
			return nil, ErrTimeout
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			logger.Log.Warn().
				Str("target", target).
				Str("stderr", string(exitErr.Stderr)).
				Msg("FFprobe execution failed")
			return nil, fmt.Errorf("%w: %s", ErrInvalidFile, exitErr.Stderr)
		}

		logger.Log.Warn().
			Err(err).
			Str("target", target).
			Msg("FFprobe command failed")
		return nil, fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}

	var result FFprobeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	metadata, err := extractMetadata(&result)
	if err != nil {
		return nil, fmt.Errorf("failed to extract metadata: %w", err)
	}

	logger.Log.Debug().
		Str("target", target).
		Float64("duration", metadata.Duration).
		Str("codec", metadata.Codec).
		Msg("Probed audio")

	return metadata, nil
}

// extractMetadata converts FFprobeResult to AudioMetadata
func extractMetadata(result *FFprobeResult) (*AudioMetadata, error) {
	metadata := &AudioMetadata{}

	var audioStream *Stream
	for i := range result.Streams {
		if result.Streams[i].CodecType == "audio" {
			audioStream = &result.Streams[i]
			break
		}
	}

	if audioStream != nil {
		metadata.Codec = audioStream.CodecName
		metadata.Channels = audioStream.Channels
		if rate, err := strconv.Atoi(audioStream.SampleRate); err == nil {
			metadata.SampleRate = rate
		}
		if d, err := strconv.ParseFloat(audioStream.Duration, 64); err == nil {
			metadata.Duration = d
		}
	}

	// Fall back to the container duration (common for VBR mp3)
	if metadata.Duration <= 0 && result.Format.Duration != "" {
		if d, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
			metadata.Duration = d
		}
	}

	if result.Format.BitRate != "" {
		if rate, err := strconv.ParseInt(result.Format.BitRate, 10, 64); err == nil {
			metadata.BitRate = rate
		}
	}

	if metadata.Duration <= 0 {
		return nil, fmt.Errorf("%w: could not determine duration", ErrInvalidFile)
	}

	return metadata, nil
}
