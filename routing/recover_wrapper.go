package routing

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/zeptools/fieldticket/responses"
)

// Recover turns a panicking handler into a 500 JSON answer
var Recover HandlerWrapper = WrapperFunc(RecoverWrapper)

func RecoverWrapper(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec) // the server aborts the response quietly
			}
			log.Printf("[PANIC] %s %s recovered: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
			responses.WriteSimpleErrorJSON(w, http.StatusInternalServerError, "internal server error")
		}()
		inner.ServeHTTP(w, r)
	})
}
