package server

import (
	"io/ioutil"
	"mime"
	"net/http"

	"github.com/rs/xid"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"chatroom-api/internal/storage/zapadapter"
)

// readJSONBody pre-processes a request expected to carry a JSON body:
// it checks the Content-Type header and that the body is non-empty valid JSON.
// On failure the response is already written and false is returned.
// Unlike a middleware it can sit inside handlers that dispatch on method,
// since GET routes on the same path carry no body at all.
func readJSONBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	contentType := r.Header.Get("Content-Type")
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			http.Error(w, "Malformed Content-Type header", http.StatusBadRequest)
			return nil, false
		}

		if mt != "application/json" {
			http.Error(w, "Content-Type header must be application/json", http.StatusUnsupportedMediaType)
			return nil, false
		}
	}

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Can not read request body", http.StatusBadRequest)
		return nil, false
	}

	if len(body) == 0 {
		http.Error(w, "No body provided", http.StatusBadRequest)
		return nil, false
	}

	if err := fastjson.ValidateBytes(body); err != nil {
		http.Error(w, "Malformed JSON", http.StatusBadRequest)
		return nil, false
	}

	return body, true
}

func log(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := xid.New().String()

		ctx := zapadapter.NewContextWithID(r.Context(), id)
		rwID := r.WithContext(ctx)

		logger.Info("incoming http request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("uri", r.URL.RequestURI()),
			zap.String("ip", r.RemoteAddr),
		)

		next.ServeHTTP(w, rwID)
	})
}
