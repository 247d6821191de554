package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/tg-thumbnailer/internal/store"
)

type fakeFiles struct {
	fail  map[string]bool
	calls []string
}

func (f *fakeFiles) Download(_ context.Context, fileID, destDir string) (string, error) {
	f.calls = append(f.calls, fileID)
	if f.fail[fileID] {
		return "", errors.New("download failed")
	}
	path := filepath.Join(destDir, fileID+".bin")
	if err := os.WriteFile(path, []byte("blob:"+fileID), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type sentVideo struct {
	path    string
	caption string
}

type fakeMsg struct {
	replies []string
	edits   []string
	videos  []sentVideo
	nextID  int
}

func (f *fakeMsg) Reply(_ int64, _ int, text string) (int, error) {
	f.replies = append(f.replies, text)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeMsg) Edit(_ int64, _ int, text string) error {
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeMsg) SendVideo(_ int64, _ int, path, caption string) error {
	f.videos = append(f.videos, sentVideo{path: path, caption: caption})
	return nil
}

type fakeMux struct {
	err   error
	calls [][3]string
}

func (f *fakeMux) AttachCover(_ context.Context, videoPath, coverPath, outPath string) error {
	f.calls = append(f.calls, [3]string{videoPath, coverPath, outPath})
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outPath, []byte("muxed"), 0o644)
}

type env struct {
	store  *store.Store
	files  *fakeFiles
	msg    *fakeMsg
	mux    *fakeMux
	tmpDir string
	runner *Runner
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)

	e := &env{
		store:  s,
		files:  &fakeFiles{fail: map[string]bool{}},
		msg:    &fakeMsg{},
		mux:    &fakeMux{},
		tmpDir: t.TempDir(),
	}
	e.runner = NewRunner(s, e.files, e.msg, e.mux, e.tmpDir, "default caption")
	return e
}

func (e *env) tmpFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.tmpDir)
	require.NoError(t, err)
	var names []string
	for _, ent := range entries {
		names = append(names, ent.Name())
	}
	return names
}

func job(size int64) Job {
	return Job{UserID: 100, ChatID: 55, MessageID: 7, FileID: "video-1", FileSize: size}
}

func TestRun_NoThumbnail(t *testing.T) {
	e := newEnv(t)

	err := e.runner.Run(context.Background(), job(1<<20))

	assert.ErrorIs(t, err, ErrNoThumbnail)
	require.Len(t, e.msg.replies, 1)
	assert.Contains(t, e.msg.replies[0], "set a thumbnail first")
	assert.Empty(t, e.files.calls, "no download before preconditions pass")
}

func TestRun_FileTooLarge(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.SaveThumbnail(100, "thumb-1"))

	err := e.runner.Run(context.Background(), job(LimitFree+1))

	assert.ErrorIs(t, err, ErrTooLarge)
	require.Len(t, e.msg.replies, 1)
	assert.Contains(t, e.msg.replies[0], "2GB")
	assert.Empty(t, e.files.calls)
}

func TestRun_PremiumLimit(t *testing.T) {
	e := newEnv(t)
	_, err := e.store.GetOrCreateUser(100, "", "", "", false)
	require.NoError(t, err)
	require.NoError(t, e.store.SetPremium(100, true))
	require.NoError(t, e.store.SaveThumbnail(100, "thumb-1"))

	// over the free limit but under the premium one
	require.NoError(t, e.runner.Run(context.Background(), job(3<<30)))
	assert.Len(t, e.msg.videos, 1)

	// over the premium limit too
	err = e.runner.Run(context.Background(), job(LimitPremium+1))
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Contains(t, e.msg.replies[len(e.msg.replies)-1], "4GB")
}

func TestRun_Success_DefaultCaption(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.SaveThumbnail(100, "thumb-1"))

	require.NoError(t, e.runner.Run(context.Background(), job(1<<30)))

	assert.Equal(t, []string{"video-1", "thumb-1"}, e.files.calls)

	require.Len(t, e.mux.calls, 1)
	call := e.mux.calls[0]
	assert.Equal(t, filepath.Join(e.tmpDir, "video-1.bin"), call[0])
	assert.Equal(t, filepath.Join(e.tmpDir, "thumb-1.bin"), call[1])
	assert.Contains(t, call[2], "output_100_")

	require.Len(t, e.msg.videos, 1)
	assert.Equal(t, call[2], e.msg.videos[0].path)
	assert.Equal(t, "default caption", e.msg.videos[0].caption)

	require.NotEmpty(t, e.msg.edits)
	assert.Contains(t, e.msg.edits[len(e.msg.edits)-1], "successfully")

	assert.Empty(t, e.tmpFiles(t), "no residual temp files")
}

func TestRun_Success_StoredCaptionWins(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.SaveThumbnail(100, "thumb-1"))
	require.NoError(t, e.store.SaveCaption(100, "my caption"))

	require.NoError(t, e.runner.Run(context.Background(), job(1<<20)))

	require.Len(t, e.msg.videos, 1)
	assert.Equal(t, "my caption", e.msg.videos[0].caption)
}

func TestRun_MuxFailure(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.SaveThumbnail(100, "thumb-1"))
	e.mux.err = errors.New("exit status 1")

	err := e.runner.Run(context.Background(), job(1<<20))

	require.Error(t, err)
	assert.Empty(t, e.msg.videos, "no upload after mux failure")
	require.NotEmpty(t, e.msg.edits)
	assert.Contains(t, e.msg.edits[len(e.msg.edits)-1], "Failed to process video")
	assert.Empty(t, e.tmpFiles(t), "downloads removed on failure path")
}

func TestRun_DownloadFailure(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.SaveThumbnail(100, "thumb-1"))
	e.files.fail["thumb-1"] = true

	err := e.runner.Run(context.Background(), job(1<<20))

	require.Error(t, err)
	assert.Empty(t, e.mux.calls, "mux never invoked")
	assert.Empty(t, e.msg.videos)
	require.NotEmpty(t, e.msg.edits)
	assert.Contains(t, e.msg.edits[len(e.msg.edits)-1], "Processing failed")
	assert.Empty(t, e.tmpFiles(t), "partial downloads removed")
}

func TestRun_StatusIsSingleMessage(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.SaveThumbnail(100, "thumb-1"))

	require.NoError(t, e.runner.Run(context.Background(), job(1<<20)))

	// one status reply, outcomes delivered as edits of it
	require.Len(t, e.msg.replies, 1)
	assert.Contains(t, e.msg.replies[0], "Processing")
	assert.Len(t, e.msg.edits, 1)
}
