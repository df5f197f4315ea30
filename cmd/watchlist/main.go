package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"watchlist/internal/app"
	"watchlist/internal/config"
	"watchlist/internal/editor"
	"watchlist/internal/engine"
	"watchlist/internal/render"
	"watchlist/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Track what you are watching",
	Long: `watchlist keeps movies, TV shows and anime in a plain data file, one record per line.
- Records: title, year, medium, watch status and position, ongoing flag, site links, last update.
- Names: list-details, edit and remove select every record with that exact title.
- Edits: the file is rewritten through a temp file and swapped in with one rename, so a failed edit never loses data.
- History: append, edit and remove are journaled to a small SQLite file; view it with 'watchlist history'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	app.ConfigureEnv(viper.GetViper())
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP(app.KeyWorkspace, "w", ".", "workspace directory")
	flags.StringP(app.KeyDataFile, "d", "", "data file (default watchlist.jsonl)")
	flags.StringP(app.KeyTempFile, "t", "", "temp file used by edit and remove (default watchlist.temp.jsonl)")
	flags.String(app.KeyConfig, "", "config file (default <workspace>/watchlist.yml)")
	flags.String(app.KeyHistory, "", "history journal path; empty in config disables it")
	flags.String(app.KeyLogLevel, "", "log level (debug, info, warn, error)")
	flags.Bool(app.KeyJSON, false, "output JSON")
	for _, key := range []string{app.KeyWorkspace, app.KeyDataFile, app.KeyTempFile, app.KeyConfig, app.KeyHistory, app.KeyLogLevel, app.KeyJSON} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}
}

func registerCommands() {
	rootCmd.AddCommand(listAllCmd())
	rootCmd.AddCommand(listDetailsCmd())
	rootCmd.AddCommand(appendCmd())
	rootCmd.AddCommand(editCmd())
	rootCmd.AddCommand(removeCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
}

func listAllCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "list-all",
		Aliases: []string{"l"},
		Short:   "List every record",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), false, func(ctx context.Context, s app.Settings, e engine.Engine) error {
				f, err := outputFormat(s, format)
				if err != nil {
					return err
				}
				items, err := e.ListAll(ctx)
				if err != nil {
					return err
				}
				return render.Items(cmd.OutOrStdout(), f, items)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format: text, json, yaml, toml")
	return cmd
}

func listDetailsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "list-details <name>",
		Aliases: []string{"d"},
		Short:   "Show every record with this title",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), false, func(ctx context.Context, s app.Settings, e engine.Engine) error {
				f, err := outputFormat(s, format)
				if err != nil {
					return err
				}
				items, err := e.Details(ctx, args[0])
				if err != nil {
					return err
				}
				return render.Details(cmd.OutOrStdout(), f, items)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format: text, json, yaml, toml")
	return cmd
}

func appendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "append",
		Aliases: []string{"a"},
		Short:   "Add a record interactively",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), true, func(ctx context.Context, s app.Settings, e engine.Engine) error {
				item, err := e.Create(ctx, newSession(cmd))
				if err != nil {
					return err
				}
				if s.JSON {
					return render.Structured(cmd.OutOrStdout(), render.FormatJSON, "item", render.NewView(item))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "appended %q to %s\n", item.Title, s.DataFile)
				return nil
			})
		},
	}
	return cmd
}

func editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "edit <name>",
		Aliases: []string{"e"},
		Short:   "Edit every record with this title",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), true, func(ctx context.Context, s app.Settings, e engine.Engine) error {
				res, err := e.Edit(ctx, args[0], newSession(cmd))
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), s, "edited", res)
			})
		},
	}
	return cmd
}

func removeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"r"},
		Short:   "Remove every record with this title",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), true, func(ctx context.Context, s app.Settings, e engine.Engine) error {
				res, err := e.Remove(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), s, "removed", res)
			})
		},
	}
	return cmd
}

func historyCmd() *cobra.Command {
	var (
		title  string
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"h"},
		Short:   "Show recent appends, edits and removals",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), true, func(ctx context.Context, s app.Settings, e engine.Engine) error {
				f, err := outputFormat(s, format)
				if err != nil {
					return err
				}
				entries, err := e.History(ctx, title, limit)
				if err != nil {
					return err
				}
				return render.History(cmd.OutOrStdout(), f, entries)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "only entries for this title")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")
	cmd.Flags().StringVar(&format, "format", "", "output format: text, json, yaml, toml")
	return cmd
}

func serveCmd() *cobra.Command {
	var basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only HTTP view of the records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings()
			if err != nil {
				return err
			}
			logger := s.Logger(cmd.ErrOrStderr())
			e, closeFn, err := s.OpenEngine(cmd.Context(), logger, true)
			if err != nil {
				return err
			}
			defer closeFn()
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: basePath,
				Auth:     server.AuthConfig{JWTSecret: s.JWTSecret},
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: s.ServeAddr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			auth := "open"
			if s.JWTSecret != "" {
				auth = "bearer"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s%s (auth: %s)\n", s.DataFile, s.ServeAddr, basePath, auth)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "", "listen address (default from config serve.addr)")
	cmd.Flags().String("jwt-secret", "", "HS256 secret; enables bearer auth")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	_ = viper.BindPFlag(app.KeyServeAddr, cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag(app.KeyJWTSecret, cmd.Flags().Lookup("jwt-secret"))
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create watchlist.yml",
		Long:  "Settings come from flags, then WATCHLIST_* env vars, then watchlist.yml in the workspace, then built-in defaults.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings()
			if err != nil {
				return err
			}
			cfg := s.Config()
			if s.JSON {
				return render.Structured(cmd.OutOrStdout(), render.FormatJSON, "config", cfg)
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default watchlist.yml into the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString(app.KeyWorkspace)
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(workspace, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func settings() (app.Settings, error) {
	return app.Resolve(viper.GetViper())
}

func withEngine(ctx context.Context, journal bool, fn func(context.Context, app.Settings, engine.Engine) error) error {
	s, err := settings()
	if err != nil {
		return err
	}
	e, closeFn, err := s.OpenEngine(ctx, s.Logger(nil), journal)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, s, e)
}

// newSession reads answers from stdin. Prompts go to stdout on a terminal and
// to stderr otherwise, so piped output carries only the result.
func newSession(cmd *cobra.Command) *editor.Session {
	var out io.Writer = cmd.OutOrStdout()
	if !render.IsTerminal(os.Stdin) {
		out = cmd.ErrOrStderr()
	}
	return editor.NewSession(cmd.InOrStdin(), out)
}

func outputFormat(s app.Settings, flag string) (render.Format, error) {
	if flag == "" && s.JSON {
		return render.FormatJSON, nil
	}
	return render.ParseFormat(flag)
}

func printResult(w io.Writer, s app.Settings, verb string, res engine.Result) error {
	if s.JSON {
		return render.Structured(w, render.FormatJSON, "result", map[string]any{
			"title":   res.Title,
			"matched": res.Matched,
			"kept":    res.Summary.Kept,
			"changed": res.Summary.Changed,
			"removed": res.Summary.Removed,
			"skipped": res.Summary.Skipped,
			"dropped": res.Summary.Dropped(),
		})
	}
	n := res.Summary.Changed
	if verb == "removed" {
		n = res.Summary.Removed
	}
	fmt.Fprintf(w, "%s %d of %d record(s) titled %q\n", verb, n, res.Matched, res.Title)
	if n := res.Summary.Dropped(); n > 0 {
		fmt.Fprintf(w, "warning: dropped %d malformed line(s) while rewriting %s\n", n, s.DataFile)
	}
	return nil
}
