// Package chrome drives a Chromium browser as a UI tree provider. Elements
// are located by a depth-first walk of the live DOM and tagged with a
// reference attribute so later actions can address them by selector.
package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/rahul/crazyagent/internal/uitree"
)

const (
	refAttr        = "data-agent-ref"
	defaultTimeout = 30 * time.Second
)

var errForeignNode = errors.New("node does not belong to this browser")

type Options struct {
	Headless bool
	// LaunchURLs maps an app package identifier to the page that stands in
	// for it. Packages without an entry are reported as not installed.
	LaunchURLs map[string]string
	Timeout    time.Duration
}

// element is a DOM node located by a previous search.
type element struct {
	ref  string
	text string
}

func (e element) Text() string { return e.text }

func (e element) selector() string {
	return fmt.Sprintf(`[%s="%s"]`, refAttr, e.ref)
}

// Provider implements uitree.Provider and uitree.Launcher. The browser is
// started lazily on first use and restarted if it goes away.
type Provider struct {
	opts Options

	mu            sync.Mutex
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

func New(opts Options) *Provider {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Provider{opts: opts}
}

// Start launches the browser if it is not already running and waits for it
// to accept commands, or for ctx to be done.
func (p *Provider) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.run(ctx)
}

func (p *Provider) browser() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browserCtx != nil {
		select {
		case <-p.browserCtx.Done():
			p.cleanup()
		default:
			return p.browserCtx, nil
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", p.opts.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	p.allocCtx, p.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	p.browserCtx, p.browserCancel = chromedp.NewContext(p.allocCtx)

	if err := chromedp.Run(p.browserCtx); err != nil {
		p.cleanup()
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	return p.browserCtx, nil
}

func (p *Provider) cleanup() {
	if p.browserCancel != nil {
		p.browserCancel()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
	p.browserCtx = nil
	p.allocCtx = nil
}

// Close shuts the browser down. The provider may be used again afterwards.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleanup()
	return nil
}

// run executes actions against the browser, bounded by the configured
// timeout and by ctx.
func (p *Provider) run(ctx context.Context, actions ...chromedp.Action) error {
	bctx, err := p.browser()
	if err != nil {
		return err
	}
	actionCtx, cancel := context.WithTimeout(bctx, p.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(actionCtx, actions...)
}

func (p *Provider) LaunchApp(ctx context.Context, packageID string) error {
	url, ok := p.opts.LaunchURLs[packageID]
	if !ok {
		return fmt.Errorf("%w: %s", uitree.ErrNotInstalled, packageID)
	}
	return p.run(ctx, chromedp.Navigate(url))
}

type match struct {
	Found bool   `json:"found"`
	Ref   string `json:"ref"`
	Text  string `json:"text"`
}

func (p *Provider) find(ctx context.Context, needle string, exact, editableOnly bool) (uitree.Node, error) {
	var m match
	if err := p.run(ctx, chromedp.Evaluate(findScript(needle, exact, editableOnly), &m)); err != nil {
		return nil, err
	}
	if !m.Found {
		return nil, uitree.ErrNoMatch
	}
	return element{ref: m.Ref, text: m.Text}, nil
}

func (p *Provider) FindByText(ctx context.Context, text string, exact bool) (uitree.Node, error) {
	return p.find(ctx, text, exact, false)
}

func (p *Provider) FindEditable(ctx context.Context, hint string) (uitree.Node, error) {
	return p.find(ctx, hint, false, true)
}

func (p *Provider) Click(ctx context.Context, n uitree.Node) (bool, error) {
	el, ok := n.(element)
	if !ok {
		return false, errForeignNode
	}
	var st elementState
	if err := p.run(ctx, chromedp.Evaluate(stateScript(el.selector()), &st)); err != nil {
		return false, err
	}
	if !st.Present || st.Disabled {
		return false, nil
	}
	if err := p.run(ctx, chromedp.Click(el.selector(), chromedp.ByQuery)); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) SetText(ctx context.Context, n uitree.Node, text string) (bool, error) {
	el, ok := n.(element)
	if !ok {
		return false, errForeignNode
	}
	var st elementState
	if err := p.run(ctx, chromedp.Evaluate(stateScript(el.selector()), &st)); err != nil {
		return false, err
	}
	if !st.Present || st.Disabled || !st.Editable {
		return false, nil
	}

	sel := el.selector()
	actions := []chromedp.Action{chromedp.Focus(sel, chromedp.ByQuery)}
	if !st.ContentEditable {
		actions = append(actions, chromedp.SetValue(sel, "", chromedp.ByQuery))
	}
	actions = append(actions, input.InsertText(text))
	if err := p.run(ctx, actions...); err != nil {
		return false, err
	}
	return true, nil
}

// PressBack reports false when there is no history to go back to.
func (p *Provider) PressBack(ctx context.Context) (bool, error) {
	var canGoBack bool
	if err := p.run(ctx, chromedp.Evaluate(`window.history.length > 1`, &canGoBack)); err != nil {
		return false, err
	}
	if !canGoBack {
		return false, nil
	}
	if err := p.run(ctx, chromedp.NavigateBack()); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) PressHome(ctx context.Context) (bool, error) {
	if err := p.run(ctx, chromedp.Navigate("about:blank")); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) ScrollForward(ctx context.Context) (bool, error) {
	return p.scroll(ctx, 1)
}

func (p *Provider) ScrollBackward(ctx context.Context) (bool, error) {
	return p.scroll(ctx, -1)
}

func (p *Provider) scroll(ctx context.Context, direction int) (bool, error) {
	var moved bool
	if err := p.run(ctx, chromedp.Evaluate(scrollScript(direction), &moved)); err != nil {
		return false, err
	}
	return moved, nil
}

type elementState struct {
	Present         bool `json:"present"`
	Disabled        bool `json:"disabled"`
	Editable        bool `json:"editable"`
	ContentEditable bool `json:"contentEditable"`
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

const editableJS = `el => el.isContentEditable || el.tagName === "TEXTAREA" ||
		(el.tagName === "INPUT" && !["button", "submit", "reset", "checkbox", "radio", "hidden", "image", "file"].includes(el.type))`

func findScript(needle string, exact, editableOnly bool) string {
	return fmt.Sprintf(`(() => {
	const needle = %s.toLowerCase();
	const exact = %t, editableOnly = %t;
	const editable = %s;
	const labels = el => {
		let own = "";
		for (const c of el.childNodes) if (c.nodeType === Node.TEXT_NODE) own += c.textContent;
		return [own.trim(), el.getAttribute("aria-label") || "", el.getAttribute("title") || "",
			el.getAttribute("alt") || "", el.getAttribute("placeholder") || ""];
	};
	const matches = el => {
		if (editableOnly && !editable(el)) return false;
		if (needle === "") return editableOnly;
		return labels(el).some(s => exact ? s.toLowerCase() === needle : s.toLowerCase().includes(needle));
	};
	const root = document.body || document.documentElement;
	const walker = document.createTreeWalker(root, NodeFilter.SHOW_ELEMENT);
	for (let el = walker.currentNode; el; el = walker.nextNode()) {
		if (!matches(el)) continue;
		let ref = el.getAttribute(%[5]q);
		if (!ref) {
			window.__agentRefs = (window.__agentRefs || 0) + 1;
			ref = String(window.__agentRefs);
			el.setAttribute(%[5]q, ref);
		}
		return {found: true, ref: ref, text: labels(el).find(s => s !== "") || ""};
	}
	return {found: false, ref: "", text: ""};
})()`, jsString(needle), exact, editableOnly, editableJS, refAttr)
}

func stateScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return {present: false};
	const editable = %s;
	return {present: true, disabled: !!el.disabled || el.getAttribute("aria-disabled") === "true",
		editable: editable(el), contentEditable: el.isContentEditable};
})()`, jsString(selector), editableJS)
}

func scrollScript(direction int) string {
	return fmt.Sprintf(`(() => {
	const before = window.scrollY;
	window.scrollBy(0, %d * Math.round(window.innerHeight * 0.8));
	return window.scrollY !== before;
})()`, direction)
}
