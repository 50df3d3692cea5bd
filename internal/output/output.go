// SPDX-License-Identifier: Apache-2.0

// Package output renders command results and errors either as human text
// or as JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/akihiro/storectl/internal/secret"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Result is one printable command outcome.
type Result interface {
	// Human returns the text printed in human mode, without a trailing
	// newline.
	Human() string
}

// PasswordRead carries a secret the user asked to see.
type PasswordRead struct {
	Password string `json:"password"`
}

func (r PasswordRead) Human() string { return r.Password }

// NewPasswordRead opens s for printing.
func NewPasswordRead(s secret.Secret) (PasswordRead, error) {
	v, err := s.Reveal()
	if err != nil {
		return PasswordRead{}, err
	}
	return PasswordRead{Password: v}, nil
}

type PasswordWritten struct {
	Store string `json:"store"`
}

func (r PasswordWritten) Human() string {
	return "Password successfully written to " + r.Store
}

type PasswordRemoved struct {
	Store   string `json:"store"`
	Removed bool   `json:"removed"`
}

func (r PasswordRemoved) Human() string {
	if r.Removed {
		return "Password successfully removed from " + r.Store
	}
	return "No password found in " + r.Store + ", nothing was removed"
}

// Printer writes results to Out and errors to Err.
type Printer struct {
	Out  io.Writer
	Err  io.Writer
	JSON bool

	errorStyle lipgloss.Style
	color      bool
}

// New returns a printer. Errors are coloured only in human mode, when
// color is true and errw is a terminal.
func New(out, errw io.Writer, jsonMode, color bool) *Printer {
	p := &Printer{Out: out, Err: errw, JSON: jsonMode}
	p.color = color && !jsonMode && IsTerminal(errw)
	p.errorStyle = lipgloss.NewRenderer(errw).NewStyle().Foreground(lipgloss.Color("9"))
	return p
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Print writes r.
func (p *Printer) Print(r Result) error {
	if p.JSON {
		return json.NewEncoder(p.Out).Encode(r)
	}
	_, err := fmt.Fprintln(p.Out, r.Human())
	return err
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// Error writes err to Err: a JSON object in JSON mode, one line otherwise.
func (p *Printer) Error(err error) {
	msg := oneLine(err.Error())
	if p.JSON {
		code := storeerr.CodeOf(err)
		if code == "" {
			code = storeerr.CodeCLIInputInvalid
		}
		_ = json.NewEncoder(p.Err).Encode(map[string]errorBody{"error": {
			Code:    string(code),
			Message: msg,
			Context: storeerr.FieldsOf(err),
		}})
		return
	}
	line := "Error: " + msg
	if p.color {
		line = p.errorStyle.Render(line)
	}
	fmt.Fprintln(p.Err, line)
}

// oneLine joins the lines of s with single spaces.
func oneLine(s string) string {
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.Join(lines, " ")
}
