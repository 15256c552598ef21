package routing

import "net/http"

// Router is satisfied by both the root BaseRouter and a RouteGroup,
// so route tables can be written once and mounted at either level
type Router interface {
	Handle(pattern string, handler http.Handler, handlerWrappers ...HandlerWrapper)
	HandleFunc(pattern string, handleFunc func(http.ResponseWriter, *http.Request), handlerWrappers ...HandlerWrapper)
	Group(prefix string, batch func(*RouteGroup), handlerWrappers ...HandlerWrapper) *RouteGroup
}
