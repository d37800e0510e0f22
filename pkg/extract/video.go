package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"smartaset/pkg/domain"
)

// FrameCount is the number of stills taken from each video.
const FrameCount = 3

// VideoInfo is the metadata needed before seeking.
type VideoInfo struct {
	Duration float64
	Width    int
	Height   int
}

// FrameSampler takes stills from a video with ffprobe/ffmpeg.
type FrameSampler struct {
	runner  CommandRunner
	ffmpeg  string
	ffprobe string
	logger  *slog.Logger
}

// NewFrameSampler builds a sampler; empty paths fall back to the tools on PATH.
func NewFrameSampler(runner CommandRunner, ffmpegPath, ffprobePath string, logger *slog.Logger) *FrameSampler {
	if runner == nil {
		runner = ExecRunner{}
	}
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	if strings.TrimSpace(ffprobePath) == "" {
		ffprobePath = "ffprobe"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameSampler{runner: runner, ffmpeg: ffmpegPath, ffprobe: ffprobePath, logger: logger}
}

// FrameTimestamps returns the seek points for a clip: 0.5s, the midpoint and
// 0.5s before the end, each clamped into [0, max(duration-0.05, 0)].
func FrameTimestamps(duration float64) []float64 {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		duration = 0
	}
	upper := math.Max(duration-0.05, 0)
	raw := []float64{0.5, duration / 2, duration - 0.5}
	out := make([]float64, len(raw))
	for i, ts := range raw {
		out[i] = math.Min(math.Max(ts, 0), upper)
	}
	return out
}

// Sample probes the video, then captures one frame per timestamp strictly in
// sequence. A capture that yields no frame is skipped.
func (s *FrameSampler) Sample(ctx context.Context, path string) ([]domain.ImagePart, error) {
	info, err := s.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	frames := make([]domain.ImagePart, 0, FrameCount)
	for _, ts := range FrameTimestamps(info.Duration) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := s.capture(ctx, path, ts)
		if err != nil {
			s.logger.Warn("video frame skipped", "path", path, "at", ts, "err", err)
			continue
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// Probe reads duration and frame size.
func (s *FrameSampler) Probe(ctx context.Context, path string) (VideoInfo, error) {
	out, err := s.runner.Run(ctx, s.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "json",
		path,
	)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("probe video: %w", err)
	}
	var resp probeOutput
	if err := json.Unmarshal(out, &resp); err != nil {
		return VideoInfo{}, fmt.Errorf("parse probe output: %w", err)
	}
	if len(resp.Streams) == 0 {
		return VideoInfo{}, fmt.Errorf("probe video: no video stream")
	}
	info := VideoInfo{Width: resp.Streams[0].Width, Height: resp.Streams[0].Height}
	if d := strings.TrimSpace(resp.Format.Duration); d != "" && d != "N/A" {
		info.Duration, err = strconv.ParseFloat(d, 64)
		if err != nil {
			return VideoInfo{}, fmt.Errorf("parse duration %q: %w", d, err)
		}
	}
	return info, nil
}

func (s *FrameSampler) capture(ctx context.Context, path string, at float64) (domain.ImagePart, error) {
	raster, err := s.runner.Run(ctx, s.ffmpeg,
		"-v", "error",
		"-ss", strconv.FormatFloat(at, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	if err != nil {
		return domain.ImagePart{}, err
	}
	if len(raster) == 0 {
		return domain.ImagePart{}, fmt.Errorf("no frame at %.3fs", at)
	}
	return toJPEG(raster)
}

type probeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}
