package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	apperrors "deal-service/pkg/errors"

	"github.com/labstack/echo/v4"
)

const contentTypeJSON = "application/json"

// decodeBodyLimit bounds the strict decoder to the same size as the global
// body-limit middleware so the two never disagree on what is too large.
const decodeBodyLimit int64 = 1 << 20

// decodeStrictJSON decodes the request body into dst, rejecting unknown
// fields and trailing content. Decode failures come back as validation
// errors so the central error handler renders them as 400s; handlers
// return them as-is.
func decodeStrictJSON(c echo.Context, dst interface{}) error {
	contentType := strings.ToLower(c.Request().Header.Get(echo.HeaderContentType))
	if !strings.HasPrefix(contentType, contentTypeJSON) {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, msgContentTypeJSONRequired)
	}

	dec := json.NewDecoder(io.LimitReader(c.Request().Body, decodeBodyLimit))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return apperrors.Validation(msgInvalidRequestBody)
	}
	if dec.Decode(&struct{}{}) != io.EOF {
		return apperrors.Validation(msgInvalidRequestBody)
	}

	return nil
}
