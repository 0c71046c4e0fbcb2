package web

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"
)

// ComponentResponse is what a page handler returns for rendering
type ComponentResponse struct {
	Error     error
	Message   string
	Code      int
	Component templ.Component
}

// ComponentHandler renders the component returned by the wrapped function,
// or writes the error response it describes
type ComponentHandler func(http.ResponseWriter, *http.Request) *ComponentResponse

func (fn ComponentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := fn(w, r)
	if resp == nil {
		return
	}

	if resp.Error != nil {
		code := resp.Code
		if code == 0 {
			code = http.StatusInternalServerError
		}
		msg := resp.Message
		if msg == "" {
			msg = http.StatusText(code)
		}
		log.Error().Err(resp.Error).Str("path", r.URL.Path).Int("status", code).Msg(msg)
		http.Error(w, msg, code)
		return
	}

	if resp.Component == nil {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if resp.Code != 0 {
		w.WriteHeader(resp.Code)
	}
	if err := resp.Component.Render(r.Context(), w); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to render component")
	}
}
