package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is the error envelope used by the sequencer API, assigning a unique
// error code and also specifying which HTTP Status is used.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// MarshalJSON returns a JSON containing Err.Error() and Code. Field HTTPstatus is ignored.
//
// Example output: {"error":"resource not found","code":40001}
func (e Error) MarshalJSON() ([]byte, error) {
	// This anon struct is needed to actually include the error string,
	// since it wouldn't be marshaled otherwise. (json.Marshal doesn't call Err.Error())
	return json.Marshal(
		struct {
			Err  string `json:"error"`
			Code int    `json:"code"`
		}{
			Err:  e.Err.Error(),
			Code: e.Code,
		})
}

// UnmarshalJSON decodes the {"error":...,"code":...} envelope into e.
func (e *Error) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Err  string `json:"error"`
		Code int    `json:"code"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	e.Err = fmt.Errorf("%s", envelope.Err)
	e.Code = envelope.Code
	return nil
}

// Error returns the Message contained inside the APIerror
func (e Error) Error() string {
	return e.Err.Error()
}

// Withf returns a copy of APIerror with the Sprintf formatted string appended at the end of e.Err
func (e Error) Withf(format string, args ...any) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, fmt.Sprintf(format, args...)),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// With returns a copy of APIerror with the string appended at the end of e.Err
func (e Error) With(s string) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, s),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithErr returns a copy of APIerror with err.Error() appended at the end of e.Err
func (e Error) WithErr(err error) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, err.Error()),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// ErrorFromResponse builds the api.Error carried by a non-2xx response body.
// If the body is not the standard error envelope, a generic Error with the
// HTTP status is returned so callers always get something sensible.
func ErrorFromResponse(status int, body []byte) Error {
	apiErr := Error{}
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Err == nil {
		return Error{
			Err:        fmt.Errorf("%s", http.StatusText(status)),
			HTTPstatus: status,
		}
	}
	apiErr.HTTPstatus = status
	return apiErr
}
