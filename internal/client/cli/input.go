package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/evidencevault/internal/common"
	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

var errNoToken = errors.New("no bearer token: use --token, EVIDENCE_TOKEN or run in a terminal")

func fdOf(v any) (int, bool) {
	f, ok := v.(*os.File)
	if !ok {
		return 0, false
	}
	return int(f.Fd()), true
}

// promptToken reads a token without echo when in is a terminal.
func promptToken(in io.Reader, w io.Writer) (string, error) {
	fd, ok := fdOf(in)
	if !ok || !isTerminal(fd) {
		return "", errNoToken
	}
	if _, err := fmt.Fprint(w, "Bearer token: "); err != nil {
		return "", err
	}
	b, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(b)

	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", errNoToken
	}
	return token, nil
}

// writesToTerminal reports whether w is an interactive terminal.
func writesToTerminal(w io.Writer) bool {
	fd, ok := fdOf(w)
	return ok && isTerminal(fd)
}
