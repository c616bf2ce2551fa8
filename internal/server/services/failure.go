package services

import "fmt"

// Failure marks an expected, user-visible refusal (unknown user, wrong
// password, locked account, ...). The dispatcher sends Reason verbatim to
// the client; every other error is treated as an infrastructure fault and
// answered with a generic message.
type Failure struct {
	Reason string
}

func (f *Failure) Error() string {
	return f.Reason
}

func failf(format string, args ...any) error {
	return &Failure{Reason: fmt.Sprintf(format, args...)}
}
