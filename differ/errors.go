// Package differ drives a local `diff` process against one or two
// operands that may live on remote hosts reached over SFTP, rewriting
// diff's output so that synthetic paths never leak to the user.
package differ

import "fmt"

// ArgumentError reports a Comparison configured with an unsupported
// mode. (The CLI reports a wrong number of operands itself.)
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string { return e.Message }

// IsDirectoryError reports that an operand resolved to a directory.
// Comparison refuses to hand a directory to diff.
type IsDirectoryError struct {
	Operand string
}

func (e *IsDirectoryError) Error() string {
	return fmt.Sprintf("%s: is a directory", e.Operand)
}
