package weberr

import "errors"

type responder interface {
	Response() (body interface{}, status int)
}

// Response extracts the HTTP body and status carried by err, if any.
func Response(err error) (body interface{}, status int, ok bool) {
	var re responder
	if errors.As(err, &re) {
		body, code := re.Response()
		return body, code, true
	}
	return nil, 0, false
}

type responseError struct {
	error
	body   interface{}
	status int
}

func (e *responseError) Response() (interface{}, int) {
	return e.body, e.status
}

func (e *responseError) Unwrap() error {
	return e.error
}

type fielder interface {
	Fields() map[string]interface{}
}

// Fields extracts the logging fields carried by err, if any.
func Fields(err error) (fields map[string]interface{}, ok bool) {
	var fe fielder
	if errors.As(err, &fe) {
		return fe.Fields(), true
	}
	return nil, false
}

type fieldsError struct {
	error
	fields map[string]interface{}
}

func (e *fieldsError) Fields() map[string]interface{} { return e.fields }

func (e *fieldsError) Unwrap() error { return e.error }
