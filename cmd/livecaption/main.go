// Command livecaption streams the default microphone into a live
// transcription session and renders captions in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	realtime "github.com/lumenvoice/lumen-core/core"
	"github.com/lumenvoice/lumen-core/core/audio/miniaudio"
	"github.com/lumenvoice/lumen-core/core/events"
)

func main() {
	_ = godotenv.Load()

	model := flag.String("model", "lumen-live-1", "speech model to transcribe with")
	language := flag.String("language", "", "expected language hint, e.g. en-US")
	flag.Parse()

	if err := run(*model, *language); err != nil {
		fmt.Fprintln(os.Stderr, "livecaption:", err)
		os.Exit(1)
	}
}

func run(model, language string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client, err := realtime.NewClient()
	if err != nil {
		return err
	}

	var sessionOpts []realtime.SessionOption
	if language != "" {
		sessionOpts = append(sessionOpts, realtime.WithLanguage(language))
	}
	session, err := client.ConnectTranscription(ctx, model, sessionOpts...)
	if err != nil {
		return err
	}
	defer session.Close()

	device, err := miniaudio.NewClient()
	if err != nil {
		return err
	}
	defer device.Close()

	source, err := device.CaptureSource(32)
	if err != nil {
		return err
	}

	go func() {
		if err := session.StreamFrom(ctx, source); err != nil {
			log.Println("Streaming ended with error:", err)
		}
	}()

	eventCh := make(chan events.Event)
	go func() {
		defer close(eventCh)
		for event := range session.Events() {
			select {
			case eventCh <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	program := tea.NewProgram(initialModel(eventCh), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
