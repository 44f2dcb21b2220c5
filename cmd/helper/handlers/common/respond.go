// Package common holds response helpers shared by the helper's handlers.
package common

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

const MaxBodyBytes = 1 << 20

// Fail writes the {ok:false, error} envelope every endpoint uses.
func Fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]any{"ok": false, "error": msg})
}

// DecodeJSON reads the request body into v. Decoding errors are rendered as
// 400 "Invalid JSON: ..." by the caller via InvalidJSON.
func DecodeJSON(c echo.Context, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(c.Response(), c.Request().Body, MaxBodyBytes))
	return dec.Decode(v)
}

func InvalidJSON(c echo.Context, err error) error {
	return Fail(c, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
}
