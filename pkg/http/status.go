package xhttp

import "github.com/valyala/fasthttp"

const (
	StatusOK                    = fasthttp.StatusOK
	StatusBadRequest            = fasthttp.StatusBadRequest
	StatusUnauthorized          = fasthttp.StatusUnauthorized
	StatusNotFound              = fasthttp.StatusNotFound
	StatusRequestTimeout        = fasthttp.StatusRequestTimeout
	StatusRequestEntityTooLarge = fasthttp.StatusRequestEntityTooLarge
	StatusUnprocessableEntity   = fasthttp.StatusUnprocessableEntity
	StatusInternalServerError   = fasthttp.StatusInternalServerError
	StatusServiceUnavailable    = fasthttp.StatusServiceUnavailable
)

func StatusText(code int) string {
	return fasthttp.StatusMessage(code)
}
