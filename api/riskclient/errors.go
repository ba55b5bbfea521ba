package riskclient

import (
	"errors"
	"fmt"
)

// GenericMessage is surfaced when the service gives no error text.
const GenericMessage = "Bir hata oluştu"

// RemoteServiceError is a response outside 2xx, or a 2xx body that could not
// be decoded. Message is the service's own error string.
type RemoteServiceError struct {
	Call    string
	Status  int
	Message string
	Err     error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Call, e.Message, e.Status)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// TransportError is a failure before any response arrived.
type TransportError struct {
	Call string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Call, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UserMessage extracts the text a user should see for err: the service's
// message for remote errors, the underlying cause for transport errors.
func UserMessage(err error) string {
	var rse *RemoteServiceError
	if errors.As(err, &rse) {
		return rse.Message
	}
	var te *TransportError
	if errors.As(err, &te) && te.Err != nil {
		return te.Err.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
