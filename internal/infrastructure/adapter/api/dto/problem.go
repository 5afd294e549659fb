package dto

import "net/http"

// ContentTypeProblem is the media type for RFC 9457 problem documents
const ContentTypeProblem = "application/problem+json"

// Problem is an RFC 9457 problem document, the error body for every
// non-2xx response
type Problem struct {
	Status   int    `json:"status"`
	Title    string `json:"title"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// BadRequestProblem builds a 400 problem
func BadRequestProblem(detail, instance string) Problem {
	return Problem{
		Status:   http.StatusBadRequest,
		Title:    "Bad request",
		Detail:   detail,
		Instance: instance,
	}
}

// UnprocessableEntityProblem builds a 422 problem
func UnprocessableEntityProblem(detail, instance string) Problem {
	return Problem{
		Status:   http.StatusUnprocessableEntity,
		Title:    "Unprocessable entity",
		Detail:   detail,
		Instance: instance,
	}
}

// ConflictProblem builds a 409 problem
func ConflictProblem(detail, instance string) Problem {
	return Problem{
		Status:   http.StatusConflict,
		Title:    "Conflict",
		Detail:   detail,
		Instance: instance,
	}
}

// NotFoundProblem builds a 404 problem
func NotFoundProblem(detail, instance string) Problem {
	return Problem{
		Status:   http.StatusNotFound,
		Title:    "Not found",
		Detail:   detail,
		Instance: instance,
	}
}

// InternalServerErrorProblem builds a 500 problem without internal detail
func InternalServerErrorProblem(instance string) Problem {
	return Problem{
		Status:   http.StatusInternalServerError,
		Title:    "Internal server error",
		Instance: instance,
	}
}
