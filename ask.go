package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer one question and exit",
		ArgsUsage: `"<question>"`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "print the pipeline trace, generated statement and errors",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if question == "" {
				return fmt.Errorf("expected a question")
			}

			a, err := setup(ctx, cmd, "error", nil)
			if err != nil {
				return err
			}
			defer a.Close()

			answer := askWithSpinner(ctx, a.ask, "", question)
			fmt.Println(answer.Text)
			if cmd.Bool("debug") {
				return printDebug(answer.Debug)
			}
			return nil
		},
	}
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive conversation; /history shows it, /clear forgets it, exit quits",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := setup(ctx, cmd, "error", nil)
			if err != nil {
				return err
			}
			defer a.Close()
			return chat(ctx, a.ask)
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Report whether questions can be answered",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := setup(ctx, cmd, "error", nil)
			if err != nil {
				return err
			}
			defer a.Close()

			status := a.ask.Status(ctx)
			fmt.Println(status.Message)
			for _, t := range status.Tables {
				fmt.Printf("  %-30s %10s rows  %3d columns\n", t.Name, services.FormatCount(t.RowCount), t.ColumnCount)
			}
			if !status.LLMConfigured {
				fmt.Println("No text-generation service is configured")
			}
			if !status.Ready {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// askWithSpinner shows a spinner on stderr while the pipeline runs.
func askWithSpinner(ctx context.Context, ask services.AskService, sessionID, question string) *models.Answer {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriter(os.Stderr),
		spinner.WithSuffix(" Thinking..."),
		spinner.WithHiddenCursor(true))
	s.Start()
	defer s.Stop()
	return ask.Ask(ctx, sessionID, question)
}

func printDebug(debug *models.AnswerDebug) error {
	if debug == nil {
		return nil
	}
	enc := json.NewEncoder(os.Stderr)
	enc.SetIndent("", "  ")
	return enc.Encode(debug)
}

func chat(ctx context.Context, ask services.AskService) error {
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".ekaya_ask_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("start readline: %w", err)
	}
	defer rl.Close()

	sessionID := uuid.NewString()
	fmt.Println(ask.Status(ctx).Message)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/clear":
			if err := ask.ClearHistory(ctx, sessionID); err != nil {
				return err
			}
			fmt.Println("Conversation cleared")
			continue
		case "/history":
			turns, err := ask.History(ctx, sessionID)
			if err != nil {
				return err
			}
			for _, turn := range turns {
				fmt.Printf("[%s] you> %s\n      %s\n", turn.AskedAt.Format("15:04:05"), turn.Question, turn.Answer)
			}
			continue
		}

		answer := askWithSpinner(ctx, ask, sessionID, line)
		fmt.Printf("assistant> %s\n", answer.Text)

		if ctx.Err() != nil {
			return nil
		}
	}
}
