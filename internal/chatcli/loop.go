package chatcli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/domain"
)

const (
	banner  = "Customer Service Chatbot"
	goodbye = "Goodbye! Have a great day!"
)

// Handler produces a reply for one message.
type Handler interface {
	Handle(ctx context.Context, message, username string) string
}

// Options tunes a chat session.
type Options struct {
	// Username skips the username prompt when set.
	Username string
}

type styles struct {
	title lipgloss.Style
	bot   lipgloss.Style
	user  lipgloss.Style
	err   lipgloss.Style
	muted lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		title: r.NewStyle().Bold(true),
		bot:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		user:  r.NewStyle().Foreground(lipgloss.Color("2")),
		err:   r.NewStyle().Foreground(lipgloss.Color("1")),
		muted: r.NewStyle().Faint(true),
	}
}

type session struct {
	out     io.Writer
	lines   <-chan string
	handler Handler
	logger  *zap.Logger
	styles  styles
}

// Run drives an interactive conversation until the user quits, input ends or
// ctx is cancelled. A panic while handling a message is reported and the
// conversation continues.
func Run(ctx context.Context, in io.Reader, out io.Writer, handler Handler, logger *zap.Logger, opts Options) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &session{
		out:     out,
		lines:   readLines(in),
		handler: handler,
		logger:  logger,
		styles:  newStyles(out),
	}

	s.printf("%s\n%s\n\n", s.styles.title.Render(banner), strings.Repeat("=", 50))

	username := opts.Username
	if strings.TrimSpace(username) == "" {
		s.printf("Enter your username: ")
		line, ok := s.next(ctx)
		if !ok {
			return s.farewell(ctx)
		}
		username = line
	}
	username = domain.NormalizeUsername(username)
	s.printf("Welcome, %s!\n\n", username)
	logger.Info("chat session started", zap.String("username", username))

	for {
		s.printf("%s ", s.styles.user.Render(username+":"))
		line, ok := s.next(ctx)
		if !ok {
			return s.farewell(ctx)
		}
		input := strings.TrimSpace(line)
		switch strings.ToLower(input) {
		case "quit", "exit", "bye":
			s.printf("%s\n", goodbye)
			logger.Info("chat session ended", zap.String("username", username))
			return nil
		case "":
			continue
		}

		s.printf("%s\n", s.styles.muted.Render("Processing..."))
		reply, err := s.handle(ctx, input, username)
		if err != nil {
			logger.Error("message handling failed", zap.Error(err))
			s.printf("%s\n", s.styles.err.Render(fmt.Sprintf("Error: %v", err)))
			s.printf("Please try again or type 'quit' to exit.\n\n")
			continue
		}
		s.printf("%s %s\n\n", s.styles.bot.Render("Bot:"), reply)
	}
}

func (s *session) handle(ctx context.Context, message, username string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return s.handler.Handle(ctx, message, username), nil
}

// next returns the next input line, or false when input ends or ctx is done.
func (s *session) next(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-s.lines:
		return line, ok
	}
}

func (s *session) farewell(ctx context.Context) error {
	s.printf("\n\n%s\n", goodbye)
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

// readLines feeds input lines to a channel that closes at EOF. The reader
// goroutine is abandoned if Run returns before input ends.
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
