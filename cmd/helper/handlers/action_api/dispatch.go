// Package action_api runs dispatcher actions for the extension.
package action_api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/browserutility/cmd/helper/handlers/common"
	"thirdcoast.systems/browserutility/internal/actions"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, req actions.Request) actions.Response
}

// HandleDispatch decodes an action request and answers with exactly one
// response. The :action path parameter wins over the body's action field.
// Action failures are reported in the envelope with a 200 status.
func HandleDispatch(d Dispatcher) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req actions.Request
		if err := common.DecodeJSON(c, &req); err != nil {
			return common.InvalidJSON(c, err)
		}
		if name := c.Param("action"); name != "" {
			req.Action = name
		}
		return c.JSON(http.StatusOK, d.Dispatch(c.Request().Context(), req))
	}
}
