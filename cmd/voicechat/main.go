// Command voicechat opens a realtime voice session for quick testing
// without the vision pipeline. Text mode: type a message, read the
// agent's transcript. Audio playback is not wired; agent replies are
// shown as transcripts only.
//
// Usage:
//
//	voicechat                        # default instructions
//	voicechat -prompt "Desk Assistant"
//	voicechat -voice marin -debug
//
// In-chat commands:
//
//	/scene <text>   inject a scene description as conversation context
//	/quit           close the session
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/argus-vision/go-argus/internal/config"
	ilog "github.com/argus-vision/go-argus/internal/log"
	"github.com/argus-vision/go-argus/pkg/prompts"
	"github.com/argus-vision/go-argus/pkg/voice"
)

const defaultInstructions = `You are a helpful voice assistant. Keep replies brief.`

func main() {
	server := flag.String("server", config.ServerURL(), "Detection backend URL (mints session tokens)")
	voiceName := flag.String("voice", "", "Agent voice (cedar, marin, alloy, echo, shimmer)")
	promptName := flag.String("prompt", "", "Load instructions from the prompt store by name")
	instructions := flag.String("instructions", "", "Literal instructions (overrides -prompt)")
	timeout := flag.Duration("timeout", 30*time.Second, "Connection timeout")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := config.LogLevel()
	if *debug {
		level = "debug"
	}
	ilog.Init(level)

	apiKey := config.APIKey()

	system, err := resolveInstructions(*server, apiKey, *promptName, *instructions)
	if err != nil {
		log.Fatalf("❌ Instructions: %v", err)
	}

	opts := []voice.Option{
		voice.WithInstructions(system),
		voice.WithTimeout(*timeout),
	}
	if *voiceName != "" {
		opts = append(opts, voice.WithVoice(*voiceName))
	}

	session, err := voice.NewSession(voice.NewBackendTokenSource(*server, apiKey), opts...)
	if err != nil {
		log.Fatalf("❌ Session error: %v", err)
	}

	session.OnTranscript(func(role, text string, isFinal bool) {
		if !isFinal || text == "" {
			return
		}
		if role == voice.RoleUser {
			fmt.Printf("🗣️  you: %s\n", text)
		} else {
			fmt.Printf("🤖 agent: %s\n", text)
		}
	})
	session.OnError(func(err error) {
		fmt.Printf("⚠️  %v\n", err)
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("🎤 Realtime Voice Session Test")
	fmt.Printf("   Backend: %s\n", *server)
	fmt.Print("   Connecting... ")
	if err := session.Connect(ctx); err != nil {
		fmt.Println()
		log.Fatalf("❌ Connect failed: %v", err)
	}
	fmt.Println("✅")
	fmt.Println("   Type a message, /scene <text>, or /quit")
	fmt.Println()
	defer session.Close()

	lines := readLines()
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\n👋 Goodbye!")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !handleLine(session, line) {
				fmt.Println("👋 Goodbye!")
				return
			}
		}
	}
}

// handleLine dispatches one input line. Returns false to quit.
func handleLine(session *voice.Session, line string) bool {
	switch {
	case line == "":
		return true
	case line == "/quit":
		return false
	case strings.HasPrefix(line, "/scene "):
		desc := strings.TrimSpace(strings.TrimPrefix(line, "/scene "))
		if err := session.SendSceneContext(desc); err != nil {
			fmt.Printf("⚠️  Scene failed: %v\n", err)
		} else {
			fmt.Println("📷 Scene context sent")
		}
	default:
		if err := session.SendUserText(line); err != nil {
			fmt.Printf("⚠️  Send failed: %v\n", err)
		}
	}
	return true
}

// readLines feeds stdin lines to a channel so the main loop can also
// watch for interrupts.
func readLines() <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				return
			}
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()
	return lines
}

// resolveInstructions picks literal instructions, a stored prompt, or
// the built-in default, in that order.
func resolveInstructions(server, apiKey, promptName, literal string) (string, error) {
	if literal != "" {
		return literal, nil
	}
	if promptName == "" {
		return defaultInstructions, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := prompts.NewClient(server, apiKey).FindByName(ctx, promptName)
	if err != nil {
		return "", fmt.Errorf("load prompt %q: %w", promptName, err)
	}
	fmt.Printf("📋 Loaded prompt %q (id %d)\n", p.Name, p.ID)
	return p.Content, nil
}
