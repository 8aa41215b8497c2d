package chrome

import (
	"context"
	"testing"

	"github.com/rahul/crazyagent/internal/uitree"
	"github.com/stretchr/testify/assert"
)

type otherNode struct{}

func (otherNode) Text() string { return "" }

func TestLaunchApp_UnknownPackageIsNotInstalled(t *testing.T) {
	p := New(Options{LaunchURLs: map[string]string{"com.google.android.youtube": "https://m.youtube.com"}})

	err := p.LaunchApp(context.Background(), "com.whatsapp")
	assert.ErrorIs(t, err, uitree.ErrNotInstalled)
	assert.Nil(t, p.browserCtx, "browser must not start for an unknown package")
}

func TestForeignNodesAreRejected(t *testing.T) {
	p := New(Options{})
	ctx := context.Background()

	ok, err := p.Click(ctx, otherNode{})
	assert.False(t, ok)
	assert.ErrorIs(t, err, errForeignNode)

	ok, err = p.SetText(ctx, otherNode{}, "hi")
	assert.False(t, ok)
	assert.ErrorIs(t, err, errForeignNode)
}

func TestElementSelector(t *testing.T) {
	el := element{ref: "7", text: "Send"}
	assert.Equal(t, "Send", el.Text())
	assert.Equal(t, `[data-agent-ref="7"]`, el.selector())
}

func TestFindScriptQuotesNeedle(t *testing.T) {
	script := findScript(`say "hi"`, true, false)
	assert.Contains(t, script, `const needle = "say \"hi\"".toLowerCase();`)
	assert.Contains(t, script, "const exact = true, editableOnly = false;")
	assert.Contains(t, script, `el.getAttribute("data-agent-ref")`)

	script = findScript("", false, true)
	assert.Contains(t, script, "const exact = false, editableOnly = true;")
}

func TestStateAndScrollScripts(t *testing.T) {
	assert.Contains(t, stateScript(`[data-agent-ref="3"]`), `document.querySelector("[data-agent-ref=\"3\"]")`)
	assert.Contains(t, scrollScript(1), "window.scrollBy(0, 1 *")
	assert.Contains(t, scrollScript(-1), "window.scrollBy(0, -1 *")
}

func TestNewDefaultsTimeout(t *testing.T) {
	assert.Equal(t, defaultTimeout, New(Options{}).opts.Timeout)
}

func TestStart_HonorsContext(t *testing.T) {
	p := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Start(ctx), context.Canceled)
	assert.Nil(t, p.browserCtx, "browser must not start for a cancelled context")
}

func TestProvidersCanGoHome(t *testing.T) {
	var _ uitree.Homer = New(Options{})
	var _ uitree.Homer = &uitree.Tree{}
}
