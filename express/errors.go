package express

import "fmt"

// ArgumentError is raised, as a panic, when a facade method is called with
// arguments the legacy API rejects. Wrap recovers it and hands it to the
// instance's error handling like any other chain error.
type ArgumentError struct {
	Op  string
	Msg string
}

func (e *ArgumentError) Error() string {
	return e.Op + ": " + e.Msg
}

func argumentError(op, format string, args ...interface{}) *ArgumentError {
	return &ArgumentError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// toError turns a recovered panic value into an error.
func toError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("express: panic: %v", r)
}
