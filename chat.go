package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tanpawarit/Chative-Callcenter-Agent/agent/agents/orchestrator"
	statex "github.com/tanpawarit/Chative-Callcenter-Agent/agent/state"
)

const chatGreeting = "Merhaba, size nasıl yardımcı olabilirim?"

func newChatCmd() *cobra.Command {
	var customerID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the agent from the terminal",
		Long:  "chat runs one call in the terminal. Commands: 'quit' exits, 'reset' clears the conversation, 'end' closes the call, 'ana menü' returns to the dispatcher.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wireApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return runChat(cmd.Context(), a.orch, customerID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id bound to the call")
	return cmd
}

func runChat(ctx context.Context, orch *orchestrator.Orchestrator, customerID string, in io.Reader, out io.Writer) error {
	if _, err := orch.StartSession(ctx, customerID); err != nil {
		return err
	}
	defer func() {
		if orch.SessionID() == "" {
			return
		}
		if err := orch.EndSession(context.WithoutCancel(ctx), "", nil, ""); err != nil {
			log.Warn().Err(err).Msg("end session on exit")
		}
	}()

	fmt.Fprintln(out, "Komutlar: 'quit' (çıkış), 'reset' (konuşmayı sıfırla), 'end' (görüşmeyi sonlandır), 'ana menü' (dağıtıcıya dön)")
	fmt.Fprintf(out, "\nAsistan [%s]: %s\n", layerTag(orch.Snapshot()), chatGreeting)

	scanner := bufio.NewScanner(in)
	for {
		tag := layerTag(orch.Snapshot())
		fmt.Fprintf(out, "\nKullanıcı [%s]: ", tag)
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(text) {
		case "":
			continue
		case "quit":
			return nil
		case "end":
			if err := orch.EndSession(ctx, "", nil, ""); err != nil {
				log.Warn().Err(err).Msg("end session")
			}
			fmt.Fprintln(out, "--- GÖRÜŞME SONLANDIRILDI ---")
			continue
		case "reset":
			orch.ResetConversation()
			fmt.Fprintln(out, "--- KONUŞMA SIFIRLANDI ---")
			continue
		}

		reply := orch.ProcessMessage(ctx, text)
		fmt.Fprintf(out, "\nAsistan [%s]: %s\n", tag, reply)
	}
}

func layerTag(sess statex.Session) string {
	if sess.Layer == statex.LayerSpecialist && sess.ActiveSpecialist != "" {
		return "Specialist (" + sess.ActiveSpecialist + ")"
	}
	return "Dispatcher"
}
