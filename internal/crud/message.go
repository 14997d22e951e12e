package crud

import "fmt"

// Severity of a user-visible notification.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Message is a transient notification produced by a view operation.
// StatusCode is set when the message reports an HTTP status from the store.
type Message struct {
	Severity   Severity `json:"severity"`
	Text       string   `json:"text"`
	StatusCode int      `json:"statusCode,omitempty"`
}

func (m Message) String() string {
	return fmt.Sprintf("[%s] %s", m.Severity, m.Text)
}

func infof(format string, args ...any) Message {
	return Message{Severity: SeverityInfo, Text: fmt.Sprintf(format, args...)}
}

func errorf(format string, args ...any) Message {
	return Message{Severity: SeverityError, Text: fmt.Sprintf(format, args...)}
}

func statusf(code int, format string) Message {
	return Message{Severity: SeverityInfo, Text: fmt.Sprintf(format, code), StatusCode: code}
}

// HasError reports whether any of msgs is an error.
func HasError(msgs []Message) bool {
	for _, m := range msgs {
		if m.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Failed reports an error or a request the store rejected among msgs.
func Failed(msgs []Message) bool {
	for _, m := range msgs {
		if m.Severity == SeverityError || m.StatusCode != 0 {
			return true
		}
	}
	return false
}
