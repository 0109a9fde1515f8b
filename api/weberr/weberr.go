// Package weberr attaches response and logging behaviors to errors so
// that handlers can return a single error value and have the middleware
// decide what the client and the logs see.
package weberr

// Opt decorates an error with an additional behavior.
type Opt func(error) error

// Wrap applies the given behaviors to err. A nil err stays nil.
func Wrap(err error, opts ...Opt) error {
	if err == nil {
		return nil
	}
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

// WithResponse makes the error render as the given body and status.
func WithResponse(body interface{}, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

// WithFields attaches logging fields to the error. Fields already
// carried by a wrapped error are preserved, with the new ones taking
// precedence on key collisions.
func WithFields(fields map[string]interface{}) Opt {
	return func(err error) error {
		if prev, ok := Fields(err); ok {
			merged := make(map[string]interface{}, len(prev)+len(fields))
			for k, v := range prev {
				merged[k] = v
			}
			for k, v := range fields {
				merged[k] = v
			}
			fields = merged
		}
		return &fieldsError{error: err, fields: fields}
	}
}
