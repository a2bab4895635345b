// Package routing declares URL routes as data so they can be checked,
// composed and reversed before being handed to an httprouter.Router.
package routing

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

var (
	ErrDuplicateRoute = errors.New("duplicate route")
	ErrDuplicateName  = errors.New("duplicate route name")
	ErrUnknownRoute   = errors.New("unknown route name")
	ErrMissingParam   = errors.New("missing route parameter")
)

type Route struct {
	Method string
	Path   string
	Handle httprouter.Handle
	Name   string
}

// Table is an ordered list of routes. Order is the order of registration.
type Table struct {
	routes []Route
}

// Path appends a single route. Patterns are relative ("incoming-call/") or
// absolute ("/incoming-call/"); both mean the same thing.
func (t *Table) Path(method, pattern string, h httprouter.Handle, name string) *Table {
	t.routes = append(t.routes, Route{
		Method: method,
		Path:   join("", pattern),
		Handle: h,
		Name:   name,
	})
	return t
}

func (t *Table) GET(pattern string, h httprouter.Handle, name string) *Table {
	return t.Path(http.MethodGet, pattern, h, name)
}

func (t *Table) POST(pattern string, h httprouter.Handle, name string) *Table {
	return t.Path(http.MethodPost, pattern, h, name)
}

func (t *Table) PUT(pattern string, h httprouter.Handle, name string) *Table {
	return t.Path(http.MethodPut, pattern, h, name)
}

func (t *Table) DELETE(pattern string, h httprouter.Handle, name string) *Table {
	return t.Path(http.MethodDelete, pattern, h, name)
}

// Include appends every route of sub below prefix.
func (t *Table) Include(prefix string, sub *Table) *Table {
	for _, r := range sub.routes {
		r.Path = join(prefix, r.Path)
		t.routes = append(t.routes, r)
	}
	return t
}

// Routes returns a copy of the flattened routes.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Validate checks that no (method, path) pair and no name is declared twice.
func (t *Table) Validate() error {
	seen := map[string]int{}
	names := map[string]int{}
	for i, r := range t.routes {
		key := r.Method + " " + r.Path
		if j, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s (entries %d and %d)", ErrDuplicateRoute, key, j, i)
		}
		seen[key] = i
		if r.Name == "" {
			continue
		}
		if j, ok := names[r.Name]; ok {
			return fmt.Errorf("%w: %q (entries %d and %d)", ErrDuplicateName, r.Name, j, i)
		}
		names[r.Name] = i
	}
	return nil
}

// Mount validates the table and registers every route on router.
// Nothing is registered when validation fails.
func (t *Table) Mount(router *httprouter.Router) error {
	if err := t.Validate(); err != nil {
		return err
	}
	for _, r := range t.routes {
		router.Handle(r.Method, r.Path, r.Handle)
	}
	return nil
}

// Lookup returns the named route.
func (t *Table) Lookup(name string) (Route, bool) {
	for _, r := range t.routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// Reverse builds the path of a named route, filling :param and *catchall
// segments with params in order.
func (t *Table) Reverse(name string, params ...string) (string, error) {
	r, ok := t.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoute, name)
	}

	segments := strings.Split(r.Path, "/")
	n := 0
	for i, s := range segments {
		if s == "" || (s[0] != ':' && s[0] != '*') {
			continue
		}
		if n >= len(params) {
			return "", fmt.Errorf("%w: %s in %q", ErrMissingParam, s, name)
		}
		segments[i] = params[n]
		n++
	}
	return strings.Join(segments, "/"), nil
}

func join(prefix, pattern string) string {
	p := strings.Trim(prefix, "/")
	s := strings.TrimPrefix(pattern, "/")
	switch {
	case p == "":
		return "/" + s
	case s == "":
		return "/" + p + "/"
	default:
		return "/" + p + "/" + s
	}
}
