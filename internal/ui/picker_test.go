package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobersnip/TextShortcutter/internal/store"
)

type staticLister struct {
	items   []store.Expansion
	queries []string
}

func (l *staticLister) Listing(q string) []store.Expansion {
	l.queries = append(l.queries, q)
	var out []store.Expansion
	for _, e := range l.items {
		if strings.Contains(e.Shortcut, q) {
			out = append(out, e)
		}
	}
	return out
}

func testItems() []store.Expansion {
	return []store.Expansion{
		{ID: "1", Shortcut: "omg", Body: "Oh my gosh!", Enabled: true},
		{ID: "2", Shortcut: "omw", Body: "On my way", Description: "travel", Enabled: true},
		{ID: "3", Shortcut: "brb", Body: "be right back\nsoon", Enabled: true},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func feed(m tea.Model, keys ...string) tea.Model {
	for _, k := range keys {
		m, _ = m.Update(key(k))
	}
	return m
}

func TestPickerSelectsWithArrows(t *testing.T) {
	l := &staticLister{items: testItems()}
	m := feed(newPickerModel(l, l.items), "down", "down", "down", "up", "enter").(pickerModel)
	assert.Equal(t, "2", m.chosen)
	assert.False(t, m.cancelled)
}

func TestPickerFiltersAsYouType(t *testing.T) {
	l := &staticLister{items: testItems()}
	m := feed(newPickerModel(l, l.items), "b").(pickerModel)
	assert.Equal(t, []string{"b"}, l.queries)
	require.Len(t, m.items, 1)

	m = feed(m, "enter").(pickerModel)
	assert.Equal(t, "3", m.chosen)
}

func TestPickerEscCancels(t *testing.T) {
	l := &staticLister{items: testItems()}
	m := feed(newPickerModel(l, l.items), "esc").(pickerModel)
	assert.True(t, m.cancelled)
	assert.Empty(t, m.chosen)
}

func TestPickerEnterOnEmptyListDoesNothing(t *testing.T) {
	l := &staticLister{items: testItems()}
	m := feed(newPickerModel(l, l.items), "z", "enter").(pickerModel)
	assert.Empty(t, m.items)
	assert.Empty(t, m.chosen)
	assert.Contains(t, m.View(), "no matching expansions")
}

func TestPickerViewShowsPreview(t *testing.T) {
	l := &staticLister{items: testItems()}
	v := newPickerModel(l, l.items).View()
	assert.Contains(t, v, "omg")
	assert.Contains(t, v, "travel")
	assert.Contains(t, v, "be right back …")
}

func TestConfirmModel(t *testing.T) {
	m := feed(confirmModel{shortcut: "omg"}, "y").(confirmModel)
	assert.True(t, m.answer)

	m = feed(confirmModel{shortcut: "omg"}, "enter").(confirmModel)
	assert.False(t, m.answer)
	assert.True(t, m.done)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	assert.Equal(t, strings.Repeat("x", 40)+"…", preview(strings.Repeat("x", 50)))
}

func TestPickerCancelledContext(t *testing.T) {
	l := &staticLister{items: testItems()}
	p := NewPicker(l, nil, strings.NewReader(""), &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sel, err := p.RenderSelection(ctx, l.items)
	require.NoError(t, err)
	assert.True(t, sel.Cancelled)
}

type recordingNotifier struct {
	kinds    []Kind
	messages []string
}

func (r *recordingNotifier) Notify(k Kind, msg string) {
	r.kinds = append(r.kinds, k)
	r.messages = append(r.messages, msg)
}

func TestPickerForwardsNotify(t *testing.T) {
	rn := &recordingNotifier{}
	p := NewPicker(&staticLister{}, rn, nil, nil)
	p.Notify(KindWarning, "restore failed")
	assert.Equal(t, []Kind{KindWarning}, rn.kinds)
}

func TestNewNotifierDisabled(t *testing.T) {
	_, ok := NewNotifier(false).(LogNotifier)
	assert.True(t, ok)
}
