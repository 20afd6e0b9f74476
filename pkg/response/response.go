package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type PaginatedResponse struct {
	Success    bool  `json:"success"`
	Data       any   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int   `json:"totalPages"`
}

func Ok(c echo.Context, data any) error {
	return OkWithMessage(c, "", data)
}

func OkWithMessage(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Accepted(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusAccepted, SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, ErrorResponse{
		Success: false,
		Error:   message,
	})
}

func BadRequest(c echo.Context, err error) error {
	return errorJSON(c, http.StatusBadRequest, err.Error())
}

func BadRequestWithMessage(c echo.Context, message string) error {
	return errorJSON(c, http.StatusBadRequest, message)
}

func Unauthorized(c echo.Context) error {
	return errorJSON(c, http.StatusUnauthorized, "Invalid or missing API key")
}

func NotFound(c echo.Context, message string) error {
	return errorJSON(c, http.StatusNotFound, message)
}

// Conflict reports a request that clashes with in-progress work, such as a
// manual tick while another tick is running.
func Conflict(c echo.Context, err error) error {
	return errorJSON(c, http.StatusConflict, err.Error())
}

func UnprocessableEntity(c echo.Context, err error) error {
	return errorJSON(c, http.StatusUnprocessableEntity, err.Error())
}

func InternalServerError(c echo.Context, err error) error {
	return errorJSON(c, http.StatusInternalServerError, err.Error())
}

func BadGateway(c echo.Context, err error) error {
	return errorJSON(c, http.StatusBadGateway, err.Error())
}

func ServiceUnavailable(c echo.Context, message string) error {
	return errorJSON(c, http.StatusServiceUnavailable, message)
}

func Paginated(c echo.Context, data any, page, pageSize int, totalCount int64) error {
	totalPages := int(totalCount) / pageSize
	if int(totalCount)%pageSize > 0 {
		totalPages++
	}

	return c.JSON(http.StatusOK, PaginatedResponse{
		Success:    true,
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	})
}
