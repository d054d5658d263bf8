package core

import "errors"

// ErrWouldBlock is returned by non-blocking operations that are not ready
// yet. It is a normal outcome: poll again later.
var ErrWouldBlock = errors.New("operation would block")

// Block turns a non-blocking operation into a blocking one by polling it
// until it returns something other than ErrWouldBlock.
func Block(poll func() error) error {
	for {
		err := poll()
		if err != ErrWouldBlock {
			return err
		}
	}
}
