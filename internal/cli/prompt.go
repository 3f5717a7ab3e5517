package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// stdin is swapped out by tests.
var stdin io.Reader = os.Stdin

// promptSecret asks for a value without echoing it when stdin is a
// terminal, and reads one line otherwise.
func promptSecret(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)

	if f, ok := stdin.(*os.File); ok {
		fd := int(f.Fd())
		if term.IsTerminal(fd) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(w)
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(string(b)), nil
		}
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
