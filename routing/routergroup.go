package routing

import (
	"fmt"
	"net/http"
	"strings"
)

type RouteGroup struct {
	Router          // [Embedded Interface]
	Prefix          string
	HandlerWrappers []HandlerWrapper // Group Handler Wrappers
}

// Ensure RouteGroup implements Router
var _ Router = (*RouteGroup)(nil)

// Handle registers "<method> <subpath>" or "<subpath>" under the group prefix.
// Group wrappers run before the route's own wrappers:
//
//	grp1 -> ... -> grpN -> hnd1 -> ... -> hndN -> handler
func (g *RouteGroup) Handle(subpattern string, handler http.Handler, handlerWrappers ...HandlerWrapper) {
	var fullPattern string
	if method, subpath, ok := strings.Cut(subpattern, " "); ok {
		fullPattern = method + " " + g.Prefix + subpath
	} else {
		fullPattern = g.Prefix + subpattern
	}
	if strings.Contains(fullPattern, "//") {
		panic(fmt.Sprintf("routing: malformed pattern %q", fullPattern))
	}
	wrapped := wrap(wrap(handler, handlerWrappers), g.HandlerWrappers)
	g.Router.Handle(fullPattern, wrapped)
}

func (g *RouteGroup) HandleFunc(subpattern string, handleFunc func(http.ResponseWriter, *http.Request), handlerWrappers ...HandlerWrapper) {
	g.Handle(subpattern, http.HandlerFunc(handleFunc), handlerWrappers...)
}

// Group on *RouteGroup makes a Subgroup
//
//	router.Group("/api/", func(api *RouteGroup) {
//	  api.Group("v1/", func(v1 *RouteGroup) {
//	    v1.Handle("GET layouts", layoutsHandler)  // "GET /api/v1/layouts"
//	  })
//	})
func (g *RouteGroup) Group(subPrefix string, batch func(*RouteGroup), handlerWrappers ...HandlerWrapper) *RouteGroup {
	wrappers := make([]HandlerWrapper, 0, len(g.HandlerWrappers)+len(handlerWrappers))
	wrappers = append(append(wrappers, g.HandlerWrappers...), handlerWrappers...)
	subg := &RouteGroup{
		Router:          g.Router,
		Prefix:          g.Prefix + subPrefix,
		HandlerWrappers: wrappers,
	}
	batch(subg)
	return subg
}
