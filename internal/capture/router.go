// Package capture turns live HTTP traffic into normalized exchanges, on the
// client side as an http.RoundTripper and on the server side as middleware,
// and stores them as a JSON Lines log.
package capture

import (
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Router resolves concrete request paths to the path templates they were
// served by. It is safe for concurrent use.
type Router struct {
	mu     sync.RWMutex
	routes []route
}

type route struct {
	template string
	segments []string
	literals int
}

// NewRouter creates a router knowing templates
func NewRouter(templates ...string) *Router {
	r := &Router{}
	for _, t := range templates {
		r.Add(t)
	}
	return r
}

// Add registers a path template such as /pets/{id}
func (r *Router) Add(template string) {
	segs := split(template)
	literals := 0
	for _, s := range segs {
		if !isParam(s) {
			literals++
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.routes {
		if existing.template == template {
			return
		}
	}
	r.routes = append(r.routes, route{template: template, segments: segs, literals: literals})
	// most specific first: /pets/mine beats /pets/{id}
	sort.SliceStable(r.routes, func(i, j int) bool {
		return r.routes[i].literals > r.routes[j].literals
	})
}

// Match returns the template serving path and the values of its
// parameters. Unknown paths are their own template.
func (r *Router) Match(path string) (string, map[string]string) {
	segs := split(path)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rt := range r.routes {
		if params, ok := rt.match(segs); ok {
			return rt.template, params
		}
	}
	return path, nil
}

func (rt route) match(segs []string) (map[string]string, bool) {
	if len(segs) != len(rt.segments) {
		return nil, false
	}
	var params map[string]string
	for i, s := range rt.segments {
		if isParam(s) {
			if segs[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			v, err := url.PathUnescape(segs[i])
			if err != nil {
				v = segs[i]
			}
			params[s[1:len(s)-1]] = v
			continue
		}
		if s != segs[i] {
			return nil, false
		}
	}
	return params, true
}

// matchTail matches template against the trailing segments of path
func matchTail(template, path string) (map[string]string, bool) {
	tsegs, psegs := split(template), split(path)
	if len(psegs) < len(tsegs) {
		return nil, false
	}
	rt := route{template: template, segments: tsegs}
	return rt.match(psegs[len(psegs)-len(tsegs):])
}

func split(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func isParam(seg string) bool {
	return len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}'
}
