package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"quote-orchestrator/internal/config"
	"quote-orchestrator/internal/convo"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Drive one quote conversation from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, os.Stderr)
			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			a.start(cmd.Context())
			return runChat(cmd.Context(), a.service, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

type turnHandler interface {
	HandleMessage(ctx context.Context, req convo.Request) (*convo.Response, error)
}

// runChat reads operator lines until EOF or the end of the conversation.
func runChat(ctx context.Context, conv turnHandler, in io.Reader, out io.Writer) error {
	bot := color.New(color.FgCyan)
	meta := color.New(color.Faint)
	prompt := color.New(color.FgGreen, color.Bold)

	var sessionID string
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, meta.Sprint("Escribí un mensaje para empezar. Ctrl+D para salir."))
	for {
		fmt.Fprint(out, prompt.Sprint("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		resp, err := conv.HandleMessage(ctx, convo.Request{SessionID: sessionID, Message: line})
		if err != nil {
			return err
		}
		sessionID = resp.SessionID
		fmt.Fprintln(out, bot.Sprint(resp.ReplyText))
		fmt.Fprintln(out, meta.Sprintf("[%s]", resp.State))
		if resp.EndSession {
			return nil
		}
	}
}
