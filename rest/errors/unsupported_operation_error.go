package errors

type UnsupportedOperationError struct {
	msg string
}

func (e *UnsupportedOperationError) Error() string {
	return e.msg
}

func NewUnsupportedOperationError(text string) error {
	return &UnsupportedOperationError{text}
}
