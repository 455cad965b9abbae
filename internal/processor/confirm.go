package processor

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirmer decides whether a batch keeps going after a file failed. It is
// called synchronously and blocks the batch until it answers.
type Confirmer interface {
	Continue(err error) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(err error) bool

func (f ConfirmFunc) Continue(err error) bool {
	return f(err)
}

// AlwaysContinue never stops a batch.
var AlwaysContinue = ConfirmFunc(func(error) bool { return true })

// LineConfirmer asks on w and reads one answer line from r. Only "n" or "no"
// (any case) stops the batch; end of input stops it as well.
type LineConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func NewLineConfirmer(r io.Reader, w io.Writer) *LineConfirmer {
	return &LineConfirmer{in: bufio.NewReader(r), out: w}
}

func (c *LineConfirmer) Continue(err error) bool {
	fmt.Fprint(c.out, "Continue? (yes/no, y/n) ")
	line, readErr := c.in.ReadString('\n')
	if readErr != nil && line == "" {
		fmt.Fprintln(c.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "n", "no":
		return false
	default:
		return true
	}
}
