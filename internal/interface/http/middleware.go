package httpservice

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/strait-labs/straitd/internal/interface/http/handlers"
	"github.com/strait-labs/straitd/pkg/errors"
)

var somethingWentWrong = errors.INTERNAL_ERROR.New("something went wrong")

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		log.Debugf(
			"%s %s: %d in %s", r.Method, r.URL.Path, ww.Status(), time.Since(start),
		)
	})
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				log.Errorf("panic-recovery middleware recovered from panic: %v", rvr)
				log.Errorf("stack trace: %v", string(debug.Stack()))
				handlers.WriteError(w, somethingWentWrong)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func corsHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	})
}

// operatorGate rejects admin requests whose token does not match the
// operator authority. The application layer checks the token again, the gate
// only keeps unauthorized calls from reaching it.
func operatorGate(operator domain.Authority) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := domain.Authority(r.Header.Get(handlers.OperatorTokenHeader))
			if !token.Matches(operator) {
				handlers.WriteError(
					w, errors.UNAUTHORIZED.New("operator authority required"),
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
