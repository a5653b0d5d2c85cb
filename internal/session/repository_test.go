package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribe-dev/scribe/internal/testutil"
)

var epoch = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestRepo(t *testing.T) (*Repository, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "sessions")
	clock := testutil.NewClock(epoch)
	return NewRepository(root, WithClock(clock.Now)), root
}

// snapshot returns the content of every regular file under dir keyed by
// relative path.
func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		files[rel] = testutil.ReadFile(t, path)
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestAddSegmentScenario(t *testing.T) {
	repo, _ := newTestRepo(t)
	src := t.TempDir()

	_, err := repo.AddSegment("hello", testutil.WriteAudio(t, src, "a.wav"), 0)
	require.NoError(t, err)

	active, ok := repo.Active()
	require.True(t, ok)
	assert.Equal(t, "hello\n", testutil.ReadFile(t, filepath.Join(active.Dir, AggregateFile)))

	_, err = repo.AddSegment("world", testutil.WriteAudio(t, src, "b.wav"), 1.5)
	require.NoError(t, err)

	active, _ = repo.Active()
	assert.Equal(t, "hello\n\nworld\n", testutil.ReadFile(t, filepath.Join(active.Dir, AggregateFile)))
	require.Len(t, active.Segments, 2)
	assert.Equal(t, 1, active.Segments[0].ID)
	assert.Equal(t, 2, active.Segments[1].ID)
	assert.Equal(t, 1.5, active.Segments[1].Duration)

	newText, err := repo.RetranscribeLast(func(audioPath string) (string, error) {
		assert.Equal(t, filepath.Join(active.Dir, "audio", "seg002.wav"), audioPath)
		return "earth", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "earth", newText)

	assert.Equal(t, "hello\n\nearth\n", testutil.ReadFile(t, filepath.Join(active.Dir, AggregateFile)))
	assert.Equal(t, "earth\n", testutil.ReadFile(t, filepath.Join(active.Dir, "transcripts", "seg002.txt")))
	assert.Equal(t, "hello\n", testutil.ReadFile(t, filepath.Join(active.Dir, "transcripts", "seg001.txt")))
}

func TestAddSegmentLayout(t *testing.T) {
	repo, root := newTestRepo(t)
	src := t.TempDir()
	audio := testutil.WriteAudio(t, src, "take.flac")

	seg, err := repo.AddSegment("  padded text \n", audio, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, seg.ID)
	assert.Equal(t, "audio/seg001.flac", seg.Audio)
	assert.Equal(t, "transcripts/seg001.txt", seg.Text)
	assert.Equal(t, epoch.Add(time.Second), seg.Timestamp)

	id := repo.ActiveID()
	assert.Equal(t, "20250314-092653", id)
	dir := filepath.Join(root, id)

	_, err = os.Stat(audio)
	assert.True(t, os.IsNotExist(err), "source audio should have been moved")
	assert.Equal(t, "RIFF-fake-take.flac", testutil.ReadFile(t, filepath.Join(dir, "audio", "seg001.flac")))
	assert.Equal(t, "padded text\n", testutil.ReadFile(t, filepath.Join(dir, "transcripts", "seg001.txt")))

	var idx Index
	require.NoError(t, json.Unmarshal([]byte(testutil.ReadFile(t, filepath.Join(dir, IndexFile))), &idx))
	assert.Equal(t, epoch, idx.CreatedAt)
	require.Len(t, idx.Segments, 1)
	assert.Equal(t, seg, idx.Segments[0])
}

func TestAddSegmentEmptyTextIsNoop(t *testing.T) {
	repo, root := newTestRepo(t)
	audio := testutil.WriteAudio(t, t.TempDir(), "a.wav")

	for _, text := range []string{"", "   \n\t"} {
		seg, err := repo.AddSegment(text, audio, 0)
		require.NoError(t, err)
		assert.Zero(t, seg)
	}

	assert.Empty(t, repo.ActiveID())
	_, err := os.Stat(root)
	assert.True(t, os.IsNotExist(err), "no session directory should be created")
	_, err = os.Stat(audio)
	assert.NoError(t, err, "audio must stay where it was")

	seg, err := repo.AddSegment("first", audio, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, seg.ID, "empty adds must not allocate ids")
}

func TestAddSegmentAudioMoveFallback(t *testing.T) {
	repo, _ := newTestRepo(t)
	src := t.TempDir()

	missing := filepath.Join(src, "gone.wav")
	seg1, err := repo.AddSegment("one", missing, 0)
	require.NoError(t, err)
	assert.Equal(t, missing, seg1.Audio, "failed move records the original path")

	seg2, err := repo.AddSegment("two", testutil.WriteAudio(t, src, "b.wav"), 0)
	require.NoError(t, err)
	assert.Equal(t, "audio/seg002.wav", seg2.Audio)

	seg3, err := repo.AddSegment("three", filepath.Join(src, "also-gone.wav"), 0)
	require.NoError(t, err)

	active, _ := repo.Active()
	ids := []int{}
	for _, s := range active.Segments {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []int{1, 2, 3}, ids)
	assert.Equal(t, 3, seg3.ID)
	assert.Equal(t, "one\n\ntwo\n\nthree\n", testutil.ReadFile(t, filepath.Join(active.Dir, AggregateFile)))
}

func TestAddSegmentAudioAlreadyInPlace(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.AddSegment("hello", testutil.WriteAudio(t, t.TempDir(), "a.wav"), 0)
	require.NoError(t, err)

	active, _ := repo.Active()
	inPlace := filepath.Join(active.Dir, "audio", "seg002.wav")
	testutil.WriteAudio(t, filepath.Dir(inPlace), "seg002.wav")

	seg, err := repo.AddSegment("again", inPlace, 0)
	require.NoError(t, err)
	assert.Equal(t, "audio/seg002.wav", seg.Audio)
}

func TestAggregateMatchesSegmentFiles(t *testing.T) {
	repo, _ := newTestRepo(t)
	src := t.TempDir()

	texts := []string{"alpha", "  beta  ", "gamma\n\n", "delta"}
	for i, text := range texts {
		_, err := repo.AddSegment(text, testutil.WriteAudio(t, src, SegmentName(i)+".wav"), 0)
		require.NoError(t, err)

		active, _ := repo.Active()
		onDisk, err := ReadSegmentTexts(active.Dir, active.Segments)
		require.NoError(t, err)
		assert.Equal(t, BuildAggregate(onDisk), testutil.ReadFile(t, filepath.Join(active.Dir, AggregateFile)))
	}
}

func TestRetranscribeFailureLeavesFilesUntouched(t *testing.T) {
	repo, _ := newTestRepo(t)
	src := t.TempDir()
	_, err := repo.AddSegment("hello", testutil.WriteAudio(t, src, "a.wav"), 0)
	require.NoError(t, err)
	_, err = repo.AddSegment("world", testutil.WriteAudio(t, src, "b.wav"), 0)
	require.NoError(t, err)

	active, _ := repo.Active()
	before := snapshot(t, active.Dir)

	modelErr := errors.New("model crashed")
	_, err = repo.RetranscribeLast(func(string) (string, error) { return "", modelErr })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranscription)
	assert.ErrorIs(t, err, modelErr)
	assert.Equal(t, before, snapshot(t, active.Dir))

	_, err = repo.RetranscribeLast(func(string) (string, error) { return "  \n", nil })
	assert.ErrorIs(t, err, ErrEmptyTranscript)
	assert.Equal(t, before, snapshot(t, active.Dir))
}

func TestRetranscribeRebuildsFromDisk(t *testing.T) {
	repo, _ := newTestRepo(t)
	src := t.TempDir()
	_, err := repo.AddSegment("hello", testutil.WriteAudio(t, src, "a.wav"), 0)
	require.NoError(t, err)
	_, err = repo.AddSegment("world", testutil.WriteAudio(t, src, "b.wav"), 0)
	require.NoError(t, err)

	active, _ := repo.Active()
	// Hand-edit segment 1 behind the repository's back.
	require.NoError(t, os.WriteFile(filepath.Join(active.Dir, "transcripts", "seg001.txt"), []byte("hi there\n"), 0644))

	_, err = repo.RetranscribeLast(func(string) (string, error) { return "earth", nil })
	require.NoError(t, err)
	assert.Equal(t, "hi there\n\nearth\n", testutil.ReadFile(t, filepath.Join(active.Dir, AggregateFile)))
}

func TestRetranscribeWithoutSegments(t *testing.T) {
	repo, _ := newTestRepo(t)
	called := false
	_, err := repo.RetranscribeLast(func(string) (string, error) {
		called = true
		return "x", nil
	})
	assert.ErrorIs(t, err, ErrNoSegments)
	assert.False(t, called)
}

func TestNewSessionStartsFreshSession(t *testing.T) {
	repo, root := newTestRepo(t)
	src := t.TempDir()

	_, err := repo.AddSegment("first session", testutil.WriteAudio(t, src, "a.wav"), 0)
	require.NoError(t, err)
	firstID := repo.ActiveID()
	before := snapshot(t, filepath.Join(root, firstID))

	repo.NewSession()
	assert.Empty(t, repo.ActiveID())
	_, ok := repo.Active()
	assert.False(t, ok)

	seg, err := repo.AddSegment("second session", testutil.WriteAudio(t, src, "b.wav"), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, seg.ID)
	assert.NotEqual(t, firstID, repo.ActiveID())
	assert.Equal(t, before, snapshot(t, filepath.Join(root, firstID)))
}

func TestSessionIDsUniqueWithinSameSecond(t *testing.T) {
	root := filepath.Join(t.TempDir(), "sessions")
	frozen := func() time.Time { return epoch }
	repo := NewRepository(root, WithClock(frozen))
	src := t.TempDir()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		_, err := repo.AddSegment("text", testutil.WriteAudio(t, src, SegmentName(i)+".wav"), 0)
		require.NoError(t, err)
		id := repo.ActiveID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		repo.NewSession()
	}

	ids, err := repo.ListSessions("")
	require.NoError(t, err)
	assert.Equal(t, []string{"20250314-092653", "20250314-092654", "20250314-092655"}, ids)
}

func TestCreatedAtMatchesAdvancedID(t *testing.T) {
	repo, root := newTestRepo(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, epoch.Format(IDLayout)), 0755))

	_, err := repo.AddSegment("text", testutil.WriteAudio(t, t.TempDir(), "a.wav"), 0)
	require.NoError(t, err)
	id := repo.ActiveID()
	assert.Equal(t, "20250314-092654", id)

	idx, err := repo.LoadIndex(id)
	require.NoError(t, err)
	fromID, err := ParseID(id)
	require.NoError(t, err)
	assert.Equal(t, fromID, idx.CreatedAt)
}

func TestBlankSegmentFileLeavesNoGap(t *testing.T) {
	repo, _ := newTestRepo(t)
	src := t.TempDir()
	for i, text := range []string{"a", "b", "c", "d"} {
		_, err := repo.AddSegment(text, testutil.WriteAudio(t, src, SegmentName(i)+".wav"), 0)
		require.NoError(t, err)
	}
	active, _ := repo.Active()
	for _, name := range []string{"seg002.txt", "seg003.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(active.Dir, "transcripts", name), []byte("  \n"), 0644))
	}

	_, err := repo.RetranscribeLast(func(string) (string, error) { return "d", nil })
	require.NoError(t, err)
	assert.Equal(t, "a\n\nd\n", testutil.ReadFile(t, filepath.Join(active.Dir, AggregateFile)))
}

func TestRename(t *testing.T) {
	repo, root := newTestRepo(t)
	assert.ErrorIs(t, repo.Rename("x"), ErrNoActiveSession)

	_, err := repo.AddSegment("hello", testutil.WriteAudio(t, t.TempDir(), "a.wav"), 0)
	require.NoError(t, err)
	id := repo.ActiveID()

	require.NoError(t, repo.Rename("  Standup notes "))

	idx, err := repo.LoadIndex(id)
	require.NoError(t, err)
	assert.Equal(t, "Standup notes", idx.Name)
	assert.Len(t, idx.Segments, 1)
	assert.DirExists(t, filepath.Join(root, id), "directory keeps its id")
}

func TestListSessions(t *testing.T) {
	repo, root := newTestRepo(t)

	ids, err := repo.ListSessions("")
	require.NoError(t, err)
	assert.Empty(t, ids, "missing root lists nothing")

	src := t.TempDir()
	for i := 0; i < 3; i++ {
		_, err := repo.AddSegment("text", testutil.WriteAudio(t, src, SegmentName(i)+".wav"), 0)
		require.NoError(t, err)
		repo.NewSession()
	}

	// Noise that must be ignored.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-session"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "20990101-000000"), []byte("file"), 0644))
	corrupt := filepath.Join(root, "20200101-000000")
	require.NoError(t, os.MkdirAll(corrupt, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(corrupt, IndexFile), []byte("{not json"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "20200102-000000"), 0755))

	ids, err = repo.ListSessions("")
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.IsIncreasing(t, ids)

	ids, err = repo.ListSessions("092655")
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	ids, err = repo.ListSessions("nomatch")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLoadAggregate(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.AddSegment("hello", testutil.WriteAudio(t, t.TempDir(), "a.wav"), 0)
	require.NoError(t, err)
	id := repo.ActiveID()
	repo.NewSession()

	text, err := repo.LoadAggregate(id)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", text)

	_, err = repo.LoadAggregate("20000101-000000")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = repo.LoadAggregate("../../etc")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestResumeContinuesNumbering(t *testing.T) {
	repo, root := newTestRepo(t)
	src := t.TempDir()
	_, err := repo.AddSegment("one", testutil.WriteAudio(t, src, "a.wav"), 0)
	require.NoError(t, err)
	_, err = repo.AddSegment("two", testutil.WriteAudio(t, src, "b.wav"), 0)
	require.NoError(t, err)
	id := repo.ActiveID()

	// Leftover artifact from an add that crashed before the index was updated.
	testutil.WriteAudio(t, filepath.Join(root, id, "audio"), "seg003.wav")

	other := NewRepository(root, WithClock(testutil.NewClock(epoch.Add(time.Hour)).Now))
	require.NoError(t, other.Resume(id))

	seg, err := other.AddSegment("four", testutil.WriteAudio(t, src, "c.wav"), 0)
	require.NoError(t, err)
	assert.Equal(t, 4, seg.ID, "ids never land on an orphaned artifact")
	assert.Equal(t, "one\n\ntwo\n\nfour\n", testutil.ReadFile(t, filepath.Join(root, id, AggregateFile)))
	assert.Equal(t, "RIFF-fake-seg003.wav", testutil.ReadFile(t, filepath.Join(root, id, "audio", "seg003.wav")))
}

func TestResumeMissingSession(t *testing.T) {
	repo, _ := newTestRepo(t)
	assert.ErrorIs(t, repo.Resume("20000101-000000"), ErrSessionNotFound)
	assert.ErrorIs(t, repo.Resume("bogus"), ErrInvalidID)
	assert.Empty(t, repo.ActiveID())
}

func TestAddSegmentStartFailureStaysIdle(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "sessions")
	// A regular file where the root directory should be.
	require.NoError(t, os.WriteFile(root, []byte("x"), 0644))

	repo := NewRepository(root)
	audio := testutil.WriteAudio(t, t.TempDir(), "a.wav")
	_, err := repo.AddSegment("hello", audio, 0)
	require.Error(t, err)
	assert.Empty(t, repo.ActiveID())
	_, statErr := os.Stat(audio)
	assert.NoError(t, statErr, "audio untouched when the session could not start")
}
