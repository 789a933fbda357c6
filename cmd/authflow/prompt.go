// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/term"
)

// prompter reads form fields from the terminal. Secrets are read without
// echo when input is a terminal; otherwise every answer is one line.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

// Line prompts for a visible value.
func (p *prompter) Line(label string) (string, error) {
	_, _ = fmt.Fprintf(p.out, "%s: ", label)
	return p.readLine()
}

// Secret prompts for a value that must not be echoed.
func (p *prompter) Secret(label string) (string, error) {
	_, _ = fmt.Fprintf(p.out, "%s: ", label)
	if !p.tty {
		return p.readLine()
	}
	b, err := term.ReadPassword(p.fd)
	_, _ = fmt.Fprintln(p.out)
	if err != nil {
		return "", oops.Code("PROMPT_FAILED").Wrapf(err, "read %s", strings.ToLower(label))
	}
	return string(b), nil
}

func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", oops.Code("PROMPT_FAILED").Public("No input.").Errorf("unexpected end of input")
		}
		return "", oops.Code("PROMPT_FAILED").Wrapf(err, "read input")
	}
	return strings.TrimRight(line, "\r\n"), nil
}
