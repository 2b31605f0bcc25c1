package helpers

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Builder writes markup for components assembled in Go. The first write
// error sticks and later writes become no-ops.
type Builder struct {
	w   io.Writer
	err error
}

// NewBuilder wraps w.
func NewBuilder(w io.Writer) *Builder {
	return &Builder{w: w}
}

// Raw writes trusted markup verbatim.
func (b *Builder) Raw(parts ...string) {
	for _, part := range parts {
		if b.err != nil {
			return
		}
		_, b.err = io.WriteString(b.w, part)
	}
}

// Text writes escaped character data.
func (b *Builder) Text(value string) {
	b.Raw(templ.EscapeString(value))
}

// Attr writes ` name="value"` with the value escaped.
func (b *Builder) Attr(name, value string) {
	b.Raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// AttrIf writes the attribute only when value is non-empty.
func (b *Builder) AttrIf(name, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	b.Attr(name, value)
}

// Flag writes a boolean attribute when on is true.
func (b *Builder) Flag(name string, on bool) {
	if on {
		b.Raw(" ", name)
	}
}

// Render writes a nested component.
func (b *Builder) Render(ctx context.Context, c templ.Component) {
	if b.err != nil || c == nil {
		return
	}
	b.err = c.Render(ctx, b.w)
}

// Err returns the first write error.
func (b *Builder) Err() error {
	return b.err
}

// Component adapts a builder callback to templ.Component.
func Component(fn func(ctx context.Context, b *Builder)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		b := NewBuilder(w)
		fn(ctx, b)
		return b.Err()
	})
}
