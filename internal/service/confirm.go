package service

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// TerminalConfirmer is the native confirmation fallback: a blocking yes/no
// prompt on the terminal.
type TerminalConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminalConfirmer(in io.Reader, out io.Writer) *TerminalConfirmer {
	return &TerminalConfirmer{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (c *TerminalConfirmer) Confirm(message string) bool {
	fmt.Fprintf(c.out, "%s [y/N]: ", message)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// AutoConfirmer accepts every prompt. Used for non-interactive runs where
// consent was given up front via configuration or flags.
type AutoConfirmer struct{}

func (AutoConfirmer) Confirm(string) bool { return true }
