package routing

import "net/http"

// HandlerWrapper acts as a middleware: Wrap returns a handler that runs extra
// logic around the inner handler's ServeHTTP(w,r)
type HandlerWrapper interface {
	Wrap(http.Handler) http.Handler
}

// WrapperFunc adapts a plain middleware func to HandlerWrapper
type WrapperFunc func(http.Handler) http.Handler

func (f WrapperFunc) Wrap(inner http.Handler) http.Handler {
	return f(inner)
}

// wrap nests handler so that wrappers[0] runs first
func wrap(handler http.Handler, wrappers []HandlerWrapper) http.Handler {
	for i := len(wrappers) - 1; i >= 0; i-- {
		handler = wrappers[i].Wrap(handler)
	}
	return handler
}
