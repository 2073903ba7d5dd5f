package middleware

import (
	"net/http"
	"time"

	"github.com/2beens/bodylog/pkg"

	log "github.com/sirupsen/logrus"
)

func LogRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func(begin time.Time) {
				ip, err := pkg.ReadUserIP(r)
				if err != nil {
					ip = "unknown"
				}
				log.WithFields(log.Fields{
					"method":   r.Method,
					"path":     r.URL.Path,
					"ip":       ip,
					"ua":       r.Header.Get("User-Agent"),
					"duration": time.Since(begin).String(),
				}).Trace(" ====> request")
			}(time.Now())
			next.ServeHTTP(w, r)
		})
	}
}
