package action_test

import (
	"sync"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/action"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/render"
)

type notice struct {
	Level string
	Text  string
}

// fakeTimeline records what the bridge shows
type fakeTimeline struct {
	mu        sync.Mutex
	views     []*render.View
	notices   []notice
	postbacks []map[string]any
	deeplinks []string
	shown     []*action.Confirmation
	resolved  []*action.Confirmation
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeTimeline() *fakeTimeline {
	return &fakeTimeline{done: make(chan struct{})}
}

func (f *fakeTimeline) closed() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *fakeTimeline) Show(view *render.View) error {
	if f.closed() {
		return action.ErrTimelineClosed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, view)
	return nil
}

func (f *fakeTimeline) Notice(level, text string) error {
	if f.closed() {
		return action.ErrTimelineClosed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice{Level: level, Text: text})
	return nil
}

func (f *fakeTimeline) Postback(payload map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postbacks = append(f.postbacks, payload)
}

func (f *fakeTimeline) OpenDeeplink(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deeplinks = append(f.deeplinks, url)
	return nil
}

func (f *fakeTimeline) Done() <-chan struct{} {
	return f.done
}

func (f *fakeTimeline) ConfirmationShown(c *action.Confirmation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, c)
}

func (f *fakeTimeline) ConfirmationResolved(c *action.Confirmation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, c)
}

func (f *fakeTimeline) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

func (f *fakeTimeline) Views() []*render.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*render.View(nil), f.views...)
}

func (f *fakeTimeline) Notices() []notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notice(nil), f.notices...)
}

func (f *fakeTimeline) Postbacks() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.postbacks...)
}

func (f *fakeTimeline) Resolved() []*action.Confirmation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*action.Confirmation(nil), f.resolved...)
}
