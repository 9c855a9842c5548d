package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/amasuba/uraics-revenue-assurance/internal/router"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive audit search session",
	Long: `Start an interactive session. Type a question per line; 'history'
prints the transcript and 'exit' or Ctrl-D ends the session.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Answer a single question",
	Example: `  tatis ask "search 1000123456"
  tatis ask high impact cases for risk R003 -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.router()
		if err != nil {
			return err
		}
		reply := r.Handle(cmd.Context(), router.NewSession(uuid.NewString()), strings.Join(args, " "))
		return formatter(cmd).PrintResult(reply.Text, reply)
	},
}

var (
	promptColor    = color.New(color.FgCyan, color.Bold)
	assistantColor = color.New(color.FgWhite)
	problemColor   = color.New(color.FgYellow)
)

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.router()
	if err != nil {
		return err
	}
	session := router.NewSession(uuid.NewString())
	a.logger.Debug("chat session started", "session", session.ID)

	in := os.Stdin
	interactive := term.IsTerminal(int(in.Fd()))
	out := cmd.OutOrStdout()

	var lines lineReader
	if interactive {
		state, err := term.MakeRaw(int(in.Fd()))
		if err != nil {
			return err
		}
		defer term.Restore(int(in.Fd()), state)

		t := term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{in, os.Stdout}, promptColor.Sprint("tatis> "))
		if w, _, err := term.GetSize(int(in.Fd())); err == nil {
			_ = t.SetSize(w, 0)
		}
		lines, out = t, t
		fmt.Fprintln(out, "TATIS - Tax Audit Intelligent Search. Type 'help' for examples, 'exit' to quit.")
	} else {
		lines = &scannerReader{bufio.NewScanner(in)}
	}

	for {
		if err := cmd.Context().Err(); err != nil {
			return err
		}

		line, err := lines.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		text := strings.TrimSpace(line)
		switch strings.ToLower(text) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "history":
			for _, turn := range session.Transcript() {
				fmt.Fprintf(out, "[%s] %s: %s\n", turn.At.Format("15:04:05"), turn.Role, turn.Content)
			}
			continue
		}

		reply := r.Handle(cmd.Context(), session, text)
		c := assistantColor
		if reply.Kind == router.KindError || reply.Kind == router.KindEmpty {
			c = problemColor
		}
		fmt.Fprintln(out, c.Sprint(reply.Text))
		fmt.Fprintln(out)
	}
}

// lineReader is satisfied by *term.Terminal and scannerReader.
type lineReader interface {
	ReadLine() (string, error)
}

type scannerReader struct {
	s *bufio.Scanner
}

func (r *scannerReader) ReadLine() (string, error) {
	if r.s.Scan() {
		return r.s.Text(), nil
	}
	if err := r.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
