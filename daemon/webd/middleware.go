package webd

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	ghandlers "github.com/gorilla/handlers"
)

// TokenEnv names the environment variable holding the token that guards write routes.
const TokenEnv = "CATMOTION_TOKEN"

// tokenAuthenticationMiddleware checks the Authorization header, or the api_token query param,
// against $CATMOTION_TOKEN. It returns 403 Forbidden on mismatch.
// If no token is set, it allows all requests.
func tokenAuthenticationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		validToken := os.Getenv(TokenEnv)
		if validToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := r.Header.Get("Authorization")
		if token == "" {
			token = r.URL.Query().Get("api_token")
		}
		if token != validToken {
			slog.Warn("Invalid token",
				"method", r.Method, "url", r.URL.String(),
				"remote", r.RemoteAddr, "user-agent", r.UserAgent())
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func permissiveCorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Add("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")
		next.ServeHTTP(w, r)
	})
}

func contentTypeMiddlewareFunc(contentType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", contentType)
			next.ServeHTTP(w, r)
		})
	}
}

// writeLog logs one request line through the default slog logger.
func writeLog(_ io.Writer, params ghandlers.LogFormatterParams) {
	host, _, err := net.SplitHostPort(params.Request.RemoteAddr)
	if err != nil {
		host = params.Request.RemoteAddr
	}
	for _, v := range params.Request.Header.Values("X-Forwarded-For") {
		host += "->" + v
	}
	slog.Info("HTTP",
		"host", host,
		"method", params.Request.Method,
		"uri", params.URL.RequestURI(),
		"status", params.StatusCode,
		"size", params.Size,
		"elapsed", time.Since(params.TimeStamp).Round(time.Microsecond))
}

func loggingMiddleware(next http.Handler) http.Handler {
	return ghandlers.CustomLoggingHandler(io.Discard, next, writeLog)
}
