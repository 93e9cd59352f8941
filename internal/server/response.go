package server

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// APIError implements huma.StatusError so every error response carries
// the unified {success, error} shape.
type APIError struct {
	status  int
	Success bool   `json:"success"`
	Err     string `json:"error"`
}

func (e *APIError) Error() string  { return e.Err }
func (e *APIError) GetStatus() int { return e.status }

// InitErrors overrides huma's default error factory with the unified
// error format.
func InitErrors() {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		detail := msg
		if len(errs) > 0 {
			parts := make([]string, len(errs))
			for i, e := range errs {
				parts[i] = e.Error()
			}
			detail = msg + ": " + strings.Join(parts, "; ")
		}
		return &APIError{status: status, Success: false, Err: detail}
	}
}

// DataBody is the success response body containing data.
type DataBody[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// DataOutput is the huma output wrapper for data responses.
type DataOutput[T any] struct {
	Body DataBody[T]
}

// OK wraps data in a success response.
func OK[T any](data T) *DataOutput[T] {
	return &DataOutput[T]{Body: DataBody[T]{Success: true, Data: data}}
}

// MsgBody is the success response body for message-only responses.
type MsgBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type MsgOutput struct {
	Body MsgBody
}

func Msg(message string) *MsgOutput {
	return &MsgOutput{Body: MsgBody{Success: true, Message: message}}
}
