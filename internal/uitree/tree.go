package uitree

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Element is a node of an in-memory tree.
type Element struct {
	Label       string     `yaml:"text"`
	Description string     `yaml:"description,omitempty"`
	Hint        string     `yaml:"hint,omitempty"`
	Editable    bool       `yaml:"editable,omitempty"`
	Clickable   bool       `yaml:"clickable,omitempty"`
	Disabled    bool       `yaml:"disabled,omitempty"` // actions on it are rejected
	Children    []*Element `yaml:"children,omitempty"`

	clicks int
}

func (e *Element) Text() string {
	return e.Label
}


// Tree is a Provider and Launcher over a static element tree. It is used for
// dry runs and as a fixture in tests.
type Tree struct {
	mu        sync.Mutex
	Root      *Element `yaml:"root"`
	Installed []string `yaml:"installed"`

	launched    []string
	backPresses int
	scroll      int
}

// LoadTree reads a tree fixture from a YAML file.
func LoadTree(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree file: %w", err)
	}
	var t Tree
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tree file: %w", err)
	}
	if t.Root == nil {
		return nil, fmt.Errorf("tree file %s has no root element", path)
	}
	return &t, nil
}

func (t *Tree) FindByText(ctx context.Context, text string, exact bool) (Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	found := t.walk(func(e *Element) bool {
		if exact {
			return strings.EqualFold(e.Label, text) || strings.EqualFold(e.Description, text)
		}
		return containsFold(e.Label, text) || containsFold(e.Description, text)
	})
	if found == nil {
		return nil, ErrNoMatch
	}
	return found, nil
}

func (t *Tree) FindEditable(ctx context.Context, hint string) (Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	found := t.walk(func(e *Element) bool {
		if !e.Editable {
			return false
		}
		if hint == "" {
			return true
		}
		return containsFold(e.Label, hint) || containsFold(e.Description, hint) || containsFold(e.Hint, hint)
	})
	if found == nil {
		return nil, ErrNoMatch
	}
	return found, nil
}

func (t *Tree) Click(ctx context.Context, n Node) (bool, error) {
	e, err := t.element(n)
	if err != nil {
		return false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if e.Disabled {
		return false, nil
	}
	e.clicks++
	return true, nil
}

func (t *Tree) SetText(ctx context.Context, n Node, text string) (bool, error) {
	e, err := t.element(n)
	if err != nil {
		return false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if e.Disabled || !e.Editable {
		return false, nil
	}
	e.Label = text
	return true, nil
}

func (t *Tree) PressBack(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.backPresses++
	return true, nil
}

// PressHome clears the launch history.
func (t *Tree) PressHome(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.launched = nil
	return true, nil
}

func (t *Tree) ScrollForward(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scroll++
	return true, nil
}

func (t *Tree) ScrollBackward(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.scroll == 0 {
		return false, nil
	}
	t.scroll--
	return true, nil
}

func (t *Tree) LaunchApp(ctx context.Context, packageID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !slices.Contains(t.Installed, packageID) {
		return fmt.Errorf("%w: %s", ErrNotInstalled, packageID)
	}
	t.launched = append(t.launched, packageID)
	return nil
}

// Launched returns the package identifiers launched so far, oldest first.
func (t *Tree) Launched() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.launched)
}

// Clicks returns how many accepted clicks n received.
func (t *Tree) Clicks(n Node) int {
	e, err := t.element(n)
	if err != nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return e.clicks
}

// BackPresses returns the number of back navigations performed.
func (t *Tree) BackPresses() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.backPresses
}

// AllText collects the non-blank label and description of every node.
func (t *Tree) AllText() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var texts []string
	t.walk(func(e *Element) bool {
		for _, s := range []string{e.Label, e.Description} {
			if strings.TrimSpace(s) != "" {
				texts = append(texts, s)
			}
		}
		return false
	})
	return texts
}

// Clickable returns every clickable node in document order.
func (t *Tree) Clickable() []*Element {
	t.mu.Lock()
	defer t.mu.Unlock()

	var nodes []*Element
	t.walk(func(e *Element) bool {
		if e.Clickable {
			nodes = append(nodes, e)
		}
		return false
	})
	return nodes
}

// walk visits the tree depth-first and returns the first element for which
// match returns true. Caller must hold t.mu.
func (t *Tree) walk(match func(*Element) bool) *Element {
	if t.Root == nil {
		return nil
	}
	var visit func(e *Element) *Element
	visit = func(e *Element) *Element {
		if match(e) {
			return e
		}
		for _, child := range e.Children {
			if child == nil {
				continue
			}
			if found := visit(child); found != nil {
				return found
			}
		}
		return nil
	}
	return visit(t.Root)
}

func (t *Tree) element(n Node) (*Element, error) {
	e, ok := n.(*Element)
	if !ok || e == nil {
		return nil, fmt.Errorf("uitree: node %T does not belong to this tree", n)
	}
	return e, nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
