package chatcli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recordingHandler struct {
	calls []string
	reply func(message string) string
}

func (h *recordingHandler) Handle(_ context.Context, message, username string) string {
	h.calls = append(h.calls, username+"|"+message)
	if h.reply != nil {
		return h.reply(message)
	}
	return "echo " + message
}

func TestRun_Conversation(t *testing.T) {
	in := strings.NewReader("\nhello\n   \nwhere is abc12\nQuit\nignored\n")
	var out bytes.Buffer
	h := &recordingHandler{}

	if err := Run(context.Background(), in, &out, h, zap.NewNop(), Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"guest|hello", "guest|where is abc12"}
	if strings.Join(h.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", h.calls, want)
	}
	text := out.String()
	for _, fragment := range []string{
		"Customer Service Chatbot",
		strings.Repeat("=", 50),
		"Enter your username: ",
		"Welcome, guest!",
		"Processing...",
		"Bot:",
		"echo hello",
		"echo where is abc12",
		"Goodbye! Have a great day!",
	} {
		if !strings.Contains(text, fragment) {
			t.Errorf("output missing %q:\n%s", fragment, text)
		}
	}
	if strings.Count(text, "Processing...") != 2 {
		t.Errorf("blank input should not be processed:\n%s", text)
	}
}

func TestRun_PresetUsernameAndExitWords(t *testing.T) {
	for _, word := range []string{"exit", "BYE", "quit"} {
		t.Run(word, func(t *testing.T) {
			h := &recordingHandler{}
			var out bytes.Buffer
			in := strings.NewReader("hi\n" + word + "\nafter\n")
			if err := Run(context.Background(), in, &out, h, nil, Options{Username: "alice"}); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(h.calls) != 1 || h.calls[0] != "alice|hi" {
				t.Fatalf("calls = %v", h.calls)
			}
			if strings.Contains(out.String(), "Enter your username") {
				t.Error("username prompt shown despite preset username")
			}
		})
	}
}

func TestRun_RecoversFromPanics(t *testing.T) {
	h := &recordingHandler{reply: func(message string) string {
		if message == "boom" {
			panic("pipeline exploded")
		}
		return "fine"
	}}
	var out bytes.Buffer
	in := strings.NewReader("bob\nboom\nstill there?\n")
	if err := Run(context.Background(), in, &out, h, zap.NewNop(), Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Error: pipeline exploded") || !strings.Contains(text, "Please try again or type 'quit' to exit.") {
		t.Fatalf("panic not reported:\n%s", text)
	}
	if !strings.Contains(text, "fine") || len(h.calls) != 2 {
		t.Fatalf("loop did not continue: calls=%v\n%s", h.calls, text)
	}
	if !strings.HasSuffix(strings.TrimSpace(text), "Goodbye! Have a great day!") {
		t.Errorf("EOF should say goodbye:\n%s", text)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	var out bytes.Buffer
	go func() {
		done <- Run(ctx, pr, &out, &recordingHandler{}, nil, Options{Username: "alice"})
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
