package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/chris/dayplan/internal/llm"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the planning assistant (single exchange when stdin is piped)",
	RunE:  runChat,
}

var (
	chatFresh   bool
	chatHistory int
)

func init() {
	chatCmd.Flags().BoolVar(&chatFresh, "fresh", false, "Start without the stored conversation")
	chatCmd.Flags().IntVar(&chatHistory, "history", 20, "Number of stored messages to resume from")
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	var history []llm.Message
	if !chatFresh {
		if history, err = a.planner.LoadHistory(chatHistory); err != nil {
			return err
		}
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	out := cmd.OutOrStdout()
	prompt := func() {
		if interactive {
			fmt.Fprint(out, "dayplan> ")
		}
	}

	if interactive && len(history) > 0 {
		fmt.Fprintf(out, "(已载入 %d 条历史消息，/clear 清空)\n", len(history))
	}
	prompt()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			prompt()
			continue
		case "exit", "quit":
			return nil
		case "/clear":
			if err := a.db.ClearHistory(a.userID); err != nil {
				return err
			}
			history = nil
			fmt.Fprintln(out, "🧹 对话记录已清空。")
			prompt()
			continue
		}

		reply, newHistory, err := a.planner.Chat(ctx, history, input)
		switch {
		case err != nil && !interactive:
			return err
		case err != nil:
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		default:
			printReply(out, reply.Content, reply.Summary)
			history = newHistory
		}

		if !interactive {
			return nil // single exchange in pipe mode
		}
		prompt()
	}
	return scanner.Err()
}

func printReply(w io.Writer, content, summary string) {
	fmt.Fprintln(w, content)
	if summary != "" {
		fmt.Fprintf(w, "\n🧠 记忆摘要：\n%s\n", summary)
	}
}
