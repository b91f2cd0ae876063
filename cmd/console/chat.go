package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gtm-console/internal/domain"
	"gtm-console/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat with the backend agent",
	Long: `Interactive chat with the backend agent.

Type a message and press enter. Commands:
  /actions      list quick conversation starters
  /use N        send quick action N
  /status       show connection status
  exit | salir  leave the chat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger := zap.NewExample()
		if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
			logger = zap.NewNop()
		}
		defer logger.Sync()

		s := newSession(cfg, logger)
		defer s.Stop()

		out := cmd.OutOrStdout()
		s.Subscribe(printEvent(out))
		for _, m := range s.Messages() {
			printMessage(out, m)
		}

		if err := s.Start(cmd.Context()); err != nil {
			return err
		}
		return chatLoop(s, bufio.NewReader(cmd.InOrStdin()), out)
	},
}

func init() {
	chatCmd.Flags().Bool("quiet", false, "disable log output")
}

func chatLoop(s *session.Session, reader *bufio.Reader, out io.Writer) error {
	fmt.Fprintln(out, "---- Chat (type 'exit' to leave) ----")
	for {
		fmt.Fprint(out, "You > ")
		text, err := reader.ReadString('\n')
		if err != nil && text == "" {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		text = strings.TrimSpace(text)

		switch {
		case text == "":
			continue
		case strings.EqualFold(text, "exit") || strings.EqualFold(text, "salir"):
			fmt.Fprintln(out, "Leaving chat...")
			return nil
		case text == "/status":
			printStatus(out, s.Status())
			continue
		case text == "/actions":
			for i, a := range s.QuickActions() {
				fmt.Fprintf(out, "[%d] %s\n", i, a)
			}
			continue
		case strings.HasPrefix(text, "/use "):
			idx, convErr := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(text, "/use ")))
			if convErr != nil || !s.UseQuickAction(idx) {
				fmt.Fprintln(out, "Quick action unavailable.")
				continue
			}
			if !s.SubmitInput() {
				fmt.Fprintln(out, "Message not sent.")
			}
		default:
			if !s.Submit(text) {
				fmt.Fprintf(out, "Message not sent: backend is %s.\n", s.Status().State)
				continue
			}
		}
		s.Wait()
	}
}

// printEvent puede recibir eventos del loop del monitor, de Poll y de la
// goroutine del dispatcher a la vez.
func printEvent(out io.Writer) session.Subscriber {
	var (
		mu        sync.Mutex
		lastState domain.HealthState
	)
	return func(evt session.Event) {
		mu.Lock()
		defer mu.Unlock()
		switch evt.Type {
		case session.EventMessageAppended:
			if evt.Message != nil && evt.Message.Role != domain.RoleUser {
				printMessage(out, *evt.Message)
			}
		case session.EventStatusUpdated:
			if evt.Status != nil && evt.Status.State != lastState {
				lastState = evt.Status.State
				printStatus(out, *evt.Status)
			}
		}
	}
}

func printMessage(w io.Writer, m domain.Message) {
	who := "Agent"
	switch m.Role {
	case domain.RoleUser:
		who = "You"
	case domain.RoleSystem:
		who = "System"
	}
	fmt.Fprintf(w, "\n[%s] %s > %s\n", m.Timestamp.Local().Format("15:04"), who, m.Content)
}

func printStatus(w io.Writer, st domain.ConnectionStatus) {
	label := "Connecting..."
	switch st.State {
	case domain.HealthHealthy:
		label = "Connected"
	case domain.HealthUnhealthy:
		label = "Disconnected: " + st.Message
	}
	fmt.Fprintf(w, "\n(status) %s\n", label)
}
