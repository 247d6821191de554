// Package pipeline runs the per-message video flow: preconditions, blob
// downloads, cover mux, upload, cleanup. One linear pass, no retries.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/you/tg-thumbnailer/internal/logx"
	"github.com/you/tg-thumbnailer/internal/store"
)

// Plan size limits.
const (
	LimitFree    = 2 << 30 // 2 GiB
	LimitPremium = 4 << 30 // 4 GiB
)

var (
	// ErrNoThumbnail: the user has no stored thumbnail to attach.
	ErrNoThumbnail = errors.New("no thumbnail set")
	// ErrTooLarge: the incoming file exceeds the user's plan limit.
	ErrTooLarge = errors.New("file exceeds plan limit")
	// errMux marks a muxer failure so it gets its own user-facing edit.
	errMux = errors.New("mux failed")
)

// Downloader fetches a platform blob into destDir and returns the local path.
type Downloader interface {
	Download(ctx context.Context, fileID, destDir string) (string, error)
}

// Messenger is the slice of the platform the pipeline talks back through.
type Messenger interface {
	Reply(chatID int64, replyTo int, text string) (messageID int, err error)
	Edit(chatID int64, messageID int, text string) error
	SendVideo(chatID int64, replyTo int, path, caption string) error
}

// Muxer attaches a cover image to a video file.
type Muxer interface {
	AttachCover(ctx context.Context, videoPath, coverPath, outPath string) error
}

// Job is one inbound video to process.
type Job struct {
	UserID    int64
	ChatID    int64
	MessageID int
	FileID    string
	FileSize  int64
}

// Runner owns the dependencies of one pipeline instance. Two jobs from the
// same user may run concurrently and interleave against the store; the
// replace-on-write thumbnail semantics make that a known, accepted race.
type Runner struct {
	store          *store.Store
	files          Downloader
	msg            Messenger
	mux            Muxer
	tmpDir         string
	defaultCaption string
}

func NewRunner(s *store.Store, files Downloader, msg Messenger, mux Muxer, tmpDir, defaultCaption string) *Runner {
	return &Runner{
		store:          s,
		files:          files,
		msg:            msg,
		mux:            mux,
		tmpDir:         tmpDir,
		defaultCaption: defaultCaption,
	}
}

// Run drives one job to completion. Precondition failures are replied to
// directly; once the status message is up, every outcome is an edit of it.
func (r *Runner) Run(ctx context.Context, job Job) error {
	thumb, err := r.store.Thumbnail(job.UserID)
	if errors.Is(err, store.ErrNotFound) {
		_, _ = r.msg.Reply(job.ChatID, job.MessageID, "❌ Please set a thumbnail first by sending a photo.")
		return ErrNoThumbnail
	}
	if err != nil {
		return err
	}

	limit, label := int64(LimitFree), "2GB"
	if u, err := r.store.User(job.UserID); err == nil && u.IsPremium {
		limit, label = LimitPremium, "4GB"
	}
	if job.FileSize > limit {
		_, _ = r.msg.Reply(job.ChatID, job.MessageID, "❌ File too large! Max size: "+label)
		return ErrTooLarge
	}

	statusID, err := r.msg.Reply(job.ChatID, job.MessageID, "🔄 Processing video...")
	if err != nil {
		return err
	}

	err = r.execute(ctx, job, thumb.FileRef)
	switch {
	case err == nil:
		_ = r.msg.Edit(job.ChatID, statusID, "✅ Video processed successfully!")
	case errors.Is(err, errMux):
		l := logx.FromCtx(ctx)
		l.Error().Err(err).Msg("mux failed")
		_ = r.msg.Edit(job.ChatID, statusID, "❌ Failed to process video.")
	default:
		l := logx.FromCtx(ctx)
		l.Error().Err(err).Msg("processing failed")
		_ = r.msg.Edit(job.ChatID, statusID, "❌ Processing failed.")
	}
	return err
}

// execute is the acquire→mux→deliver stretch. Every local path produced is
// removed before return, success or not.
func (r *Runner) execute(ctx context.Context, job Job, thumbRef string) error {
	if err := os.MkdirAll(r.tmpDir, 0o755); err != nil {
		return err
	}

	var produced []string
	defer func() {
		for _, p := range produced {
			_ = os.Remove(p) // best effort; already-gone is fine
		}
	}()

	videoPath, err := r.files.Download(ctx, job.FileID, r.tmpDir)
	if videoPath != "" {
		produced = append(produced, videoPath)
	}
	if err != nil {
		return fmt.Errorf("download video: %w", err)
	}

	thumbPath, err := r.files.Download(ctx, thumbRef, r.tmpDir)
	if thumbPath != "" {
		produced = append(produced, thumbPath)
	}
	if err != nil {
		return fmt.Errorf("download thumbnail: %w", err)
	}

	outPath := filepath.Join(r.tmpDir, fmt.Sprintf("output_%d_%s.mp4", job.UserID, newULID()))
	produced = append(produced, outPath)
	if err := r.mux.AttachCover(ctx, videoPath, thumbPath, outPath); err != nil {
		return fmt.Errorf("%w: %v", errMux, err)
	}

	caption := r.defaultCaption
	if c, err := r.store.Caption(job.UserID); err == nil {
		caption = c.CaptionText
	}

	if err := r.msg.SendVideo(job.ChatID, job.MessageID, outPath, caption); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

func newULID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
