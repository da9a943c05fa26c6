package page

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Element is a scripted interactive element on a MemoryPage.
type Element struct {
	Tag     string
	Label   string
	Value   string
	Options []string
}

// MemoryDriver is an in-process Driver with scripted pages. It backs unit
// tests and the CLI replay dry-run, where re-executing a recorded step log
// must not require a real browser.
type MemoryDriver struct {
	mu     sync.Mutex
	pages  []*MemoryPage
	closed bool
}

// NewMemoryDriver creates an empty in-memory driver.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{}
}

// NewPage allocates a blank scripted page.
func (d *MemoryDriver) NewPage(ctx context.Context) (Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDriverClosed
	}
	p := &MemoryPage{elements: make(map[string]*Element)}
	d.pages = append(d.pages, p)
	return p, nil
}

// Pages returns every page the driver has created, including closed ones.
func (d *MemoryDriver) Pages() []*MemoryPage {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*MemoryPage, len(d.pages))
	copy(out, d.pages)
	return out
}

// Close closes the driver and all its pages.
func (d *MemoryDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	for _, p := range d.pages {
		p.Close()
	}
	return nil
}

// MemoryPage is a scripted page. Test setups populate elements with
// SetElement and inject failures with FailNext.
type MemoryPage struct {
	mu       sync.Mutex
	url      string
	title    string
	elements map[string]*Element
	history  []string
	scrollX  int
	scrollY  int
	front    bool
	closed   bool
	nextErr  error
}

// SetElement scripts an element under the given ref.
func (p *MemoryPage) SetElement(ref string, el Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	copied := el
	p.elements[ref] = &copied
}

// Element returns the scripted element for ref, if any.
func (p *MemoryPage) Element(ref string) (Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[ref]
	if !ok {
		return Element{}, false
	}
	return *el, true
}

// FailNext makes the next action on this page return err.
func (p *MemoryPage) FailNext(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextErr = err
}

// History returns the navigation history.
func (p *MemoryPage) History() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.history))
	copy(out, p.history)
	return out
}

func (p *MemoryPage) begin() error {
	if p.closed {
		return ErrPageClosed
	}
	if p.nextErr != nil {
		err := p.nextErr
		p.nextErr = nil
		return err
	}
	return nil
}

func (p *MemoryPage) lookup(ref string) (*Element, error) {
	el, ok := p.elements[ref]
	if !ok {
		return nil, fmt.Errorf("%w: ref %q", ErrElementNotFound, ref)
	}
	return el, nil
}

// Navigate records the navigation and derives a title from the URL host.
func (p *MemoryPage) Navigate(ctx context.Context, rawURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(); err != nil {
		return err
	}
	p.url = rawURL
	p.history = append(p.history, rawURL)
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		p.title = u.Host
	} else {
		p.title = rawURL
	}
	return nil
}

func (p *MemoryPage) Click(ctx context.Context, ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(); err != nil {
		return err
	}
	_, err := p.lookup(ref)
	return err
}

func (p *MemoryPage) Fill(ctx context.Context, ref, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(); err != nil {
		return err
	}
	el, err := p.lookup(ref)
	if err != nil {
		return err
	}
	el.Value = value
	return nil
}

func (p *MemoryPage) SelectOption(ctx context.Context, ref string, values []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(); err != nil {
		return err
	}
	el, err := p.lookup(ref)
	if err != nil {
		return err
	}
	for _, v := range values {
		found := false
		for _, opt := range el.Options {
			if opt == v {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: option %q on ref %q", ErrElementNotFound, v, ref)
		}
	}
	el.Value = strings.Join(values, ",")
	return nil
}

func (p *MemoryPage) PressKey(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.begin()
}

func (p *MemoryPage) Hover(ctx context.Context, ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(); err != nil {
		return err
	}
	_, err := p.lookup(ref)
	return err
}

func (p *MemoryPage) Drag(ctx context.Context, fromRef, toRef string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(); err != nil {
		return err
	}
	if _, err := p.lookup(fromRef); err != nil {
		return err
	}
	_, err := p.lookup(toRef)
	return err
}

func (p *MemoryPage) Upload(ctx context.Context, ref string, paths []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(); err != nil {
		return err
	}
	el, err := p.lookup(ref)
	if err != nil {
		return err
	}
	el.Value = strings.Join(paths, ",")
	return nil
}

func (p *MemoryPage) Scroll(ctx context.Context, deltaX, deltaY int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(); err != nil {
		return err
	}
	p.scrollX += deltaX
	p.scrollY += deltaY
	return nil
}

// Screenshot encodes a real 1x1 PNG so downstream asset files are valid images.
func (p *MemoryPage) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Snapshot renders the scripted elements as an indented accessibility listing.
func (p *MemoryPage) Snapshot(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(); err != nil {
		return "", err
	}
	refs := make([]string, 0, len(p.elements))
	for ref := range p.elements {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	var sb strings.Builder
	fmt.Fprintf(&sb, "- page %q [url=%s]\n", p.title, p.url)
	for _, ref := range refs {
		el := p.elements[ref]
		fmt.Fprintf(&sb, "  - %s %q [ref=%s]", el.Tag, el.Label, ref)
		if el.Value != "" {
			fmt.Fprintf(&sb, " value=%q", el.Value)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (p *MemoryPage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *MemoryPage) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

func (p *MemoryPage) BringToFront(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(); err != nil {
		return err
	}
	p.front = true
	return nil
}

func (p *MemoryPage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
