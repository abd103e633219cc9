package render

import (
	"sync"
)

// Script is a script element placed on the surface.
type Script struct {
	Src   string            `json:"src"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Inline is an element mounted into a named container.
type Inline struct {
	ContainerID string `json:"container_id"`
	HTML        string `json:"html,omitempty"`
	ScriptSrc   string `json:"script_src,omitempty"`
}

// ClickRedirect is the url the presentation layer navigates to when the creative is clicked.
type ClickRedirect struct {
	URL string `json:"url"`
}

// View is a point-in-time copy of a Document, safe to serialize.
type View struct {
	Scripts       []Script       `json:"scripts"`
	Inlines       []Inline       `json:"inlines"`
	ClickRedirect *ClickRedirect `json:"click_redirect,omitempty"`
}

// Document is an in-memory render surface. One Document backs one gate session.
// All methods are safe for concurrent use.
type Document struct {
	mu       sync.Mutex
	scripts  []Script
	inlines  []Inline
	redirect *ClickRedirect
}

func NewDocument() *Document {
	return &Document{}
}

func (d *Document) HasScript(src string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.indexOfScript(src) >= 0
}

// InjectScript appends a script unless one with the same src is already present.
// It reports whether the script was added.
func (d *Document) InjectScript(src string, attrs map[string]string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.indexOfScript(src) >= 0 {
		return false
	}
	d.scripts = append(d.scripts, Script{Src: src, Attrs: copyAttrs(attrs)})
	return true
}

// MountInline places el in its container, replacing whatever was mounted there before.
func (d *Document) MountInline(el Inline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.inlines {
		if d.inlines[i].ContainerID == el.ContainerID {
			d.inlines[i] = el
			return
		}
	}
	d.inlines = append(d.inlines, el)
}

func (d *Document) BindClickRedirect(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.redirect = &ClickRedirect{URL: url}
}

// Reset clears the surface. Scripts stay: a loaded global tag cannot be unloaded from a page.
func (d *Document) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inlines = nil
	d.redirect = nil
}

func (d *Document) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := View{
		Scripts: make([]Script, len(d.scripts)),
		Inlines: make([]Inline, len(d.inlines)),
	}
	for i, s := range d.scripts {
		v.Scripts[i] = Script{Src: s.Src, Attrs: copyAttrs(s.Attrs)}
	}
	copy(v.Inlines, d.inlines)
	if d.redirect != nil {
		r := *d.redirect
		v.ClickRedirect = &r
	}
	return v
}

func (d *Document) indexOfScript(src string) int {
	for i := range d.scripts {
		if d.scripts[i].Src == src {
			return i
		}
	}
	return -1
}

func copyAttrs(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
