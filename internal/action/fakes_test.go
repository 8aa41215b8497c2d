package action

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rahul/crazyagent/internal/uitree"
)

type fakeNode string

func (n fakeNode) Text() string { return string(n) }

// fakeProvider finds every element unless told otherwise and records calls.
type fakeProvider struct {
	mu sync.Mutex

	missing      map[string]bool // targets never found
	appearsAfter map[string]int  // targets found only from the nth lookup on
	rejectClick  bool
	rejectType   bool
	rejectBack   bool
	findErr      error
	panicOnClick bool

	lookups  map[string]int
	clicks   []string
	typed    []string
	launched []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		missing:      map[string]bool{},
		appearsAfter: map[string]int{},
		lookups:      map[string]int{},
	}
}

func (f *fakeProvider) lookup(key string) (uitree.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups[key]++
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.missing[key] {
		return nil, uitree.ErrNoMatch
	}
	if n, ok := f.appearsAfter[key]; ok && f.lookups[key] < n {
		return nil, uitree.ErrNoMatch
	}
	return fakeNode(key), nil
}

func (f *fakeProvider) FindByText(ctx context.Context, text string, exact bool) (uitree.Node, error) {
	return f.lookup(text)
}

func (f *fakeProvider) FindEditable(ctx context.Context, hint string) (uitree.Node, error) {
	return f.lookup("editable:" + hint)
}

func (f *fakeProvider) Click(ctx context.Context, n uitree.Node) (bool, error) {
	if f.panicOnClick {
		panic("node recycled")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, n.Text())
	return !f.rejectClick, nil
}

func (f *fakeProvider) SetText(ctx context.Context, n uitree.Node, text string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typed = append(f.typed, text)
	return !f.rejectType, nil
}

func (f *fakeProvider) PressBack(ctx context.Context) (bool, error) {
	return !f.rejectBack, nil
}

func (f *fakeProvider) ScrollForward(ctx context.Context) (bool, error)  { return true, nil }
func (f *fakeProvider) ScrollBackward(ctx context.Context) (bool, error) { return true, nil }

func (f *fakeProvider) LaunchApp(ctx context.Context, packageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if packageID == "com.missing" {
		return uitree.ErrNotInstalled
	}
	if packageID == "com.broken" {
		return errors.New("activity crashed")
	}
	f.launched = append(f.launched, packageID)
	return nil
}

func (f *fakeProvider) lookupCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups[key]
}

// delays records requested pauses without sleeping.
type delays struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (d *delays) delay(ctx context.Context, dur time.Duration) error {
	d.mu.Lock()
	d.calls = append(d.calls, dur)
	d.mu.Unlock()
	return ctx.Err()
}

func (d *delays) recorded() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Duration(nil), d.calls...)
}
