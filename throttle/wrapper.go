package throttle

import (
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/zeptools/fieldticket/requests"
	"github.com/zeptools/fieldticket/responses"
)

// IPWrapper limits a route per client IP using the bucket group groupID.
// It satisfies routing.HandlerWrapper
type IPWrapper struct {
	Store   *BucketStore[string]
	GroupID string
	Now     func() time.Time // optional
}

func (iw *IPWrapper) Wrap(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		if iw.Now != nil {
			now = iw.Now()
		}
		ip := requests.GetClientIP(r)
		if !iw.Store.Allow(iw.GroupID, ip, now) {
			retry := time.Second
			if b, ok := iw.Store.GetBucket(iw.GroupID, ip); ok {
				retry = max(b.RetryAfter(now), time.Second)
			}
			log.Printf("[WARN][Throttle] %s blocked on %s", ip, iw.GroupID)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			responses.WriteErrorJSON(w, http.StatusTooManyRequests, responses.CodeThrottled, "too many requests")
			return
		}
		inner.ServeHTTP(w, r)
	})
}
