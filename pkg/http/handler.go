package http

import "github.com/labstack/echo/v4"

// Handler registers a group of routes on the server's Echo instance, such as
// the forecast API and its progress stream.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
