package errors

type MissingValuesError struct {
	msg string
}

func (e *MissingValuesError) Error() string {
	return e.msg
}

func NewMissingValuesError(text string) error {
	return &MissingValuesError{text}
}
