package handler

import "github.com/labstack/echo/v4"

// Handlers that map an error to a status themselves use respondError; every
// other error is returned up to the central error handler, which resolves
// the status from the error's sentinel.
func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{jsonKeyError: message})
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{jsonKeyMessage: message})
}
