// Package ffmpeg shells out to the ffmpeg binary to embed a cover image
// into a video container.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/you/tg-thumbnailer/internal/logx"
)

// Muxer runs ffmpeg as a subprocess. Success is the process exiting zero;
// the output file is not inspected.
type Muxer struct {
	bin string
}

func New(bin string) *Muxer {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Muxer{bin: bin}
}

// coverArgs builds the fixed argument set: copy every stream from both
// inputs, re-encode only the cover to PNG and mark it attached_pic.
func coverArgs(videoPath, coverPath, outPath string) []string {
	return []string{
		"-i", videoPath, "-i", coverPath,
		"-map", "0", "-map", "1",
		"-c", "copy", "-c:v:1", "png",
		"-disposition:v:1", "attached_pic",
		"-y", outPath,
	}
}

// AttachCover muxes coverPath into videoPath as embedded cover art, writing
// the result to outPath. No timeout beyond ctx; a hung ffmpeg blocks this
// one run only.
func (m *Muxer) AttachCover(ctx context.Context, videoPath, coverPath, outPath string) error {
	cmd := exec.CommandContext(ctx, m.bin, coverArgs(videoPath, coverPath, outPath)...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	lw := logx.NewLineWriter(map[string]string{"proc": "ffmpeg"}, zerolog.DebugLevel)
	lw.Pipe(stderr)

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}
