package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/coursechat-go/internal/bootstrap"
	"github.com/0xcro3dile/coursechat-go/internal/config"
	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
	"github.com/0xcro3dile/coursechat-go/internal/pkg/logger"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "coursechat",
		Short:         "Answer questions about a university course catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to the YAML config file")

	cmd.AddCommand(
		newServeCmd(opts),
		newAskCmd(opts),
		newFetchCmd(opts),
		newIndexCmd(opts),
	)
	return cmd
}

// openApp loads configuration, installs the logger and wires the App.
func openApp(opts *rootOptions) (*bootstrap.App, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	l := logger.Configure(logger.Config{
		Level:  logger.LogLevel(cfg.Logging.Level),
		Pretty: cfg.PrettyLogs(),
	})
	return bootstrap.New(cfg, l)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(cmd.Context())
		},
	}
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var historyPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question; reads it from stdin when no argument is given",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if question == "" {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				question = line
			}

			history, err := readHistory(historyPath)
			if err != nil {
				return err
			}

			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			answer, err := app.Ask(cmd.Context(), &entities.ChatRequest{Question: question, History: history})
			if err != nil {
				return err
			}
			return printAnswer(cmd.OutOrStdout(), answer, asJSON)
		},
	}
	cmd.Flags().StringVar(&historyPath, "history", "", "JSON file with prior turns: [{\"role\": \"user\", \"content\": \"...\"}]")
	cmd.Flags().BoolVar(&asJSON, "json", false, "always print the answer as JSON")
	return cmd
}

func newFetchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the course catalog to the configured catalog path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := app.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d courses\n", n)
			return nil
		},
	}
}

func newIndexCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuild the retrieval index from the catalog file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := app.Index(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks\n", n)
			return nil
		},
	}
}

func readLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading question: %w", err)
	}
	return "", nil
}

func readHistory(path string) ([]entities.ChatMessage, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	var history []entities.ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("parsing history %s: %w", path, err)
	}
	return history, nil
}

// printAnswer writes plain oracle text as is and structured answers as JSON.
func printAnswer(w io.Writer, answer *entities.Answer, asJSON bool) error {
	if answer.Plain && !asJSON {
		_, err := fmt.Fprintln(w, answer.Text)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(answer)
}
