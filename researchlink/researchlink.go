// Package researchlink builds links for searching an album by hand, for when no cover
// turned up. Each source is a text/template rendering a URL from a [Query].
package researchlink

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"text/template"
)

var (
	ErrDuplicateSource = errors.New("duplicate source")
	ErrNotURL          = errors.New("template did not produce an http url")
)

type Query struct {
	Artist string
	Album  string
	Track  string
}

// Terms is the non-empty fields of the query joined by spaces, for plain search boxes.
func (q Query) Terms() string {
	var terms []string
	for _, t := range []string{q.Artist, q.Album, q.Track} {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return strings.Join(terms, " ")
}

type Link struct {
	Name, URL string
}

type Builder struct {
	names     []string
	templates map[string]*template.Template
}

func (b *Builder) AddSource(name, templRaw string) error {
	if name == "" {
		return fmt.Errorf("source needs a name")
	}
	if slices.Contains(b.names, name) {
		return fmt.Errorf("%w: %q", ErrDuplicateSource, name)
	}
	templ, err := template.New(name).Funcs(funcMap).Option("missingkey=error").Parse(templRaw)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	if b.templates == nil {
		b.templates = map[string]*template.Template{}
	}
	b.names = append(b.names, name)
	b.templates[name] = templ
	return nil
}

// Names returns source names in the order they were added.
func (b *Builder) Names() []string {
	return slices.Clone(b.names)
}

// Build renders every source for q. Sources that fail are left out and reported together.
func (b *Builder) Build(q Query) ([]Link, error) {
	var links []Link
	var errs []error
	for _, name := range b.names {
		var buff strings.Builder
		if err := b.templates[name].Execute(&buff, q); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		u, err := url.Parse(buff.String())
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("%s: %w: %q", name, ErrNotURL, buff.String()))
			continue
		}
		links = append(links, Link{Name: name, URL: u.String()})
	}
	return links, errors.Join(errs...)
}

var funcMap = template.FuncMap{
	"query": url.QueryEscape,
	"path":  url.PathEscape,
	"lower": strings.ToLower,
}
