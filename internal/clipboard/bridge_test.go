package clipboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobersnip/TextShortcutter/internal/desktop"
)

type fakeClipboard struct {
	mu       sync.Mutex
	content  string
	readErr  error
	writeErr func(text string) error
	block    chan struct{}
	writes   []string
}

func (c *fakeClipboard) ReadText() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return "", c.readErr
	}
	return c.content, nil
}

func (c *fakeClipboard) WriteText(text string) error {
	c.mu.Lock()
	block := c.block
	c.mu.Unlock()
	if block != nil && text != "expansion" {
		<-block
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, text)
	if c.writeErr != nil {
		if err := c.writeErr(text); err != nil {
			return err
		}
	}
	c.content = text
	return nil
}

func (c *fakeClipboard) Content() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content
}

// fakeApp records what was on the clipboard when the paste keystroke arrived.
type fakeApp struct {
	cb       *fakeClipboard
	err      error
	received []string
	target   desktop.Window
}

func (a *fakeApp) SendPaste(ctx context.Context, target desktop.Window) error {
	if a.err != nil {
		return a.err
	}
	a.target = target
	a.received = append(a.received, a.cb.Content())
	return nil
}

func TestPasteRestoresOriginal(t *testing.T) {
	cb := &fakeClipboard{content: "user data"}
	app := &fakeApp{cb: cb}
	b := NewBridge(cb, app, 10*time.Millisecond, time.Second)

	res, err := b.Paste(context.Background(), "Oh my gosh!", desktop.Window{ID: "1", App: "editor"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Oh my gosh!"}, app.received)
	assert.Equal(t, "editor", string(app.target.App))
	assert.Equal(t, "user data", cb.Content())
	assert.True(t, res.Pasted)
	assert.True(t, res.Restored)
	assert.False(t, res.SnapshotUnavailable)
	assert.NoError(t, res.RestoreErr)
}

func TestPasteInjectionFailureStillRestores(t *testing.T) {
	cb := &fakeClipboard{content: "user data"}
	app := &fakeApp{cb: cb, err: errors.New("no focused window")}
	b := NewBridge(cb, app, 10*time.Millisecond, time.Second)

	res, err := b.Paste(context.Background(), "Oh my gosh!", desktop.Window{})
	require.Error(t, err)
	assert.True(t, IsKind(err, PasteInjectionFailed))
	assert.False(t, res.Pasted)
	assert.True(t, res.Restored)
	assert.Equal(t, "user data", cb.Content())
}

func TestPasteCancelledBeforeInjection(t *testing.T) {
	cb := &fakeClipboard{content: "user data"}
	app := &fakeApp{cb: cb}
	b := NewBridge(cb, app, time.Hour, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Paste(ctx, "Oh my gosh!", desktop.Window{})
	assert.True(t, IsKind(err, PasteInjectionFailed))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, app.received, "no partial paste")
	assert.Equal(t, "user data", cb.Content())
}

func TestPasteSnapshotUnavailable(t *testing.T) {
	cb := &fakeClipboard{readErr: errors.New("no clipboard owner")}
	app := &fakeApp{cb: cb}
	b := NewBridge(cb, app, 10*time.Millisecond, time.Second)

	res, err := b.Paste(context.Background(), "text", desktop.Window{})
	require.NoError(t, err)
	assert.True(t, res.SnapshotUnavailable)
	assert.False(t, res.Restored)
	assert.Equal(t, []string{"text"}, cb.writes, "nothing written back")
}

func TestPasteRestoreFailureIsNonFatal(t *testing.T) {
	cb := &fakeClipboard{content: "user data"}
	cb.writeErr = func(text string) error {
		if text == "user data" {
			return errors.New("clipboard busy")
		}
		return nil
	}
	app := &fakeApp{cb: cb}
	b := NewBridge(cb, app, 10*time.Millisecond, time.Second)

	res, err := b.Paste(context.Background(), "expansion", desktop.Window{})
	require.NoError(t, err)
	assert.True(t, res.Pasted)
	assert.True(t, IsKind(res.RestoreErr, RestoreFailed))
}

func TestPasteRestoreTimeout(t *testing.T) {
	cb := &fakeClipboard{content: "user data", block: make(chan struct{})}
	defer close(cb.block)
	app := &fakeApp{cb: cb}
	b := NewBridge(cb, app, 10*time.Millisecond, 50*time.Millisecond)

	start := time.Now()
	res, err := b.Paste(context.Background(), "expansion", desktop.Window{})
	require.NoError(t, err)
	assert.ErrorIs(t, res.RestoreErr, ErrRestoreTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPasteWriteFailure(t *testing.T) {
	cb := &fakeClipboard{content: "user data"}
	cb.writeErr = func(text string) error {
		if text == "expansion" {
			return errors.New("denied")
		}
		return nil
	}
	app := &fakeApp{cb: cb}
	b := NewBridge(cb, app, 10*time.Millisecond, time.Second)

	_, err := b.Paste(context.Background(), "expansion", desktop.Window{})
	assert.True(t, IsKind(err, WriteFailed))
	assert.Empty(t, app.received)
	assert.Equal(t, "user data", cb.Content())
}

func TestPasteWaitsRestoreDelay(t *testing.T) {
	cb := &fakeClipboard{content: "user data"}
	app := &fakeApp{cb: cb}
	b := NewBridge(cb, app, 80*time.Millisecond, time.Second)

	start := time.Now()
	_, err := b.Paste(context.Background(), "x", desktop.Window{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestPastesAreSerialized(t *testing.T) {
	cb := &fakeClipboard{content: "user data"}
	app := &fakeApp{cb: cb}
	b := NewBridge(cb, app, 5*time.Millisecond, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Paste(context.Background(), "x", desktop.Window{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, "user data", cb.Content())
}

func TestLateRestoreLandsBeforeNextPaste(t *testing.T) {
	cb := &fakeClipboard{content: "user data", block: make(chan struct{})}
	app := &fakeApp{cb: cb}
	b := NewBridge(cb, app, 5*time.Millisecond, 50*time.Millisecond)

	res, err := b.Paste(context.Background(), "expansion", desktop.Window{})
	require.NoError(t, err)
	require.ErrorIs(t, res.RestoreErr, ErrRestoreTimeout)

	close(cb.block)
	res, err = b.Paste(context.Background(), "expansion", desktop.Window{})
	require.NoError(t, err)
	assert.True(t, res.Restored)
	assert.NoError(t, res.RestoreErr)
	assert.Equal(t, "user data", cb.Content())
}

func TestFailedLateRestoreKeepsFirstSnapshot(t *testing.T) {
	cb := &fakeClipboard{content: "user data", block: make(chan struct{})}
	failures := 1
	cb.writeErr = func(text string) error {
		if text == "user data" && failures > 0 {
			failures--
			return errors.New("clipboard owner gone")
		}
		return nil
	}
	app := &fakeApp{cb: cb}
	b := NewBridge(cb, app, 5*time.Millisecond, 50*time.Millisecond)

	_, err := b.Paste(context.Background(), "expansion", desktop.Window{})
	require.NoError(t, err)

	close(cb.block)
	res, err := b.Paste(context.Background(), "expansion", desktop.Window{})
	require.NoError(t, err)
	assert.True(t, res.Restored)
	assert.Equal(t, "user data", cb.Content(), "the expansion left behind is not taken for user data")
}

func TestPasteRefusedWhileRestoreStuck(t *testing.T) {
	cb := &fakeClipboard{content: "user data", block: make(chan struct{})}
	defer close(cb.block)
	app := &fakeApp{cb: cb}
	b := NewBridge(cb, app, 5*time.Millisecond, 30*time.Millisecond)

	_, err := b.Paste(context.Background(), "expansion", desktop.Window{})
	require.NoError(t, err)

	_, err = b.Paste(context.Background(), "expansion", desktop.Window{})
	assert.True(t, IsKind(err, ClipboardBusy))
	assert.Len(t, app.received, 1, "no second keystroke")

	cb.mu.Lock()
	defer cb.mu.Unlock()
	assert.Equal(t, []string{"expansion"}, cb.writes)
}
