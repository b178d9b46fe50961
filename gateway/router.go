package gateway

import (
	"net/http"
	"sort"
	"strings"
)

const wildcard = "*"

// Per-segment match scores. A literal counts double a wildcard, so a route
// with a literal tail like /*/deleted always outranks the equally long
// generic /*/* and a fully literal route outranks everything at its depth.
const (
	literalScore  = 2
	wildcardScore = 1
)

// Params holds the path values captured by a route's wildcards, keyed by
// the parameter names the route was registered with.
type Params map[string]string

// HandlerFunc handles one dispatched request.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, params Params)

type route struct {
	method   string
	pattern  string
	segments []string
	params   []string
	score    int
	handler  HandlerFunc
}

// Router dispatches requests across wildcard patterns by specificity.
// Matching requires the method and segment count to agree; among matching
// patterns the highest precomputed score wins, with registration order
// breaking ties.
type Router struct {
	routes   []route
	notFound HandlerFunc
}

func NewRouter() *Router {
	return &Router{
		notFound: func(w http.ResponseWriter, r *http.Request, _ Params) {
			writeError(w, newError(CodeRequestInvalid, "no route matches %s %s", r.Method, r.URL.Path))
		},
	}
}

// Handle registers a pattern such as "/*/*/link/*" together with the names
// its wildcards bind to, in order. The table is kept sorted by score so
// dispatch is a linear scan stopping at the first match.
func (router *Router) Handle(method, pattern string, params []string, handler HandlerFunc) {
	segments := splitPath(pattern)
	score := 0
	for _, segment := range segments {
		if segment == wildcard {
			score += wildcardScore
		} else {
			score += literalScore
		}
	}

	router.routes = append(router.routes, route{
		method:   method,
		pattern:  pattern,
		segments: segments,
		params:   params,
		score:    score,
		handler:  handler,
	})
	sort.SliceStable(router.routes, func(i, j int) bool {
		return router.routes[i].score > router.routes[j].score
	})
}

// NotFound replaces the handler invoked when no pattern matches.
func (router *Router) NotFound(handler HandlerFunc) {
	router.notFound = handler
}

func (router *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segments := splitPath(r.URL.Path)
	for _, rt := range router.routes {
		if rt.method != r.Method || len(rt.segments) != len(segments) {
			continue
		}
		if params, ok := rt.match(segments); ok {
			rt.handler(w, r, params)
			return
		}
	}
	router.notFound(w, r, nil)
}

func (rt *route) match(segments []string) (Params, bool) {
	var params Params
	captured := 0
	for idx, segment := range rt.segments {
		if segment == wildcard {
			if captured < len(rt.params) {
				if params == nil {
					params = Params{}
				}
				params[rt.params[captured]] = segments[idx]
			}
			captured++
			continue
		}
		if segment != segments[idx] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
