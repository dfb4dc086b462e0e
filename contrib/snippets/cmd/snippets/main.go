package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/couchbase/docs-sdk-go/contrib/snippets"
	"github.com/couchbase/docs-sdk-go/contrib/snippets/preview"
	"github.com/couchbase/docs-sdk-go/pkg/logger"
	"github.com/couchbase/docs-sdk-go/pkg/tracing"
)

var (
	logLevel     string
	includeTests bool
	extensions   []string
)

var rootCmd = &cobra.Command{
	Use:   "snippets",
	Short: "Work with documentation tags in example sources",
	Long: `Lists, extracts, checks and previews the tagged regions that the
documentation includes from the example programs.`,
	SilenceUsage: true,
}

var listCmd = &cobra.Command{
	Use:   "list [root]",
	Short: "List the tags of every file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := scan(args)
		if err != nil {
			return err
		}

		outputJSON, _ := cmd.Flags().GetBool("json")
		if outputJSON {
			out := make(map[string][]string, len(files))
			for _, f := range files {
				out[f.Name] = f.Tags()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		for _, f := range files {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", f.Name, strings.Join(f.Tags(), ", "))
		}
		return nil
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <tag>",
	Short: "Print the text of a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag := args[0]
		path, _ := cmd.Flags().GetString("file")
		root, _ := cmd.Flags().GetString("root")
		keepIndent, _ := cmd.Flags().GetBool("keep-indent")

		var (
			f   *snippets.File
			err error
		)
		if path != "" {
			f, err = snippets.ParseFile(path)
			if err != nil {
				return err
			}
		} else {
			files, scanErr := scan([]string{root})
			if scanErr != nil {
				return scanErr
			}
			var ok bool
			if f, ok = snippets.Find(files, tag); !ok {
				return fmt.Errorf("%w: %s under %s", snippets.ErrTagNotFound, tag, root)
			}
		}

		var opts []snippets.ExtractOption
		if !keepIndent {
			opts = append(opts, snippets.WithDedent())
		}
		text, err := f.Extract(tag, opts...)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [root]",
	Short: "Report unbalanced or duplicated tags",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := scan(args)
		if err != nil {
			return err
		}

		regions := 0
		for _, f := range files {
			regions += len(f.Regions)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d regions in %d files, all balanced\n", regions, len(files))
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview [root]",
	Short: "Serve the snippets and reload them as the sources change",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		log, err := newLogger()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tp, shutdownTracing, err := tracing.Init(ctx, "snippets-preview", log)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Failed to flush traces")
			}
		}()

		root := rootArg(args)
		s, err := preview.New(root, scanOptions(), log)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           otelhttp.NewHandler(s, "preview", otelhttp.WithTracerProvider(tp)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info().Str("addr", addr).Str("root", root).Msg("Serving snippets")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			return s.Watch(ctx)
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func rootArg(args []string) string {
	if len(args) == 0 || args[0] == "" {
		return "."
	}
	return args[0]
}

func scanOptions() snippets.ScanOptions {
	return snippets.ScanOptions{Extensions: extensions, IncludeTests: includeTests}
}

func scan(args []string) ([]*snippets.File, error) {
	return snippets.Scan(rootArg(args), scanOptions())
}

func newLogger() (zerolog.Logger, error) {
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return zerolog.Nop(), err
	}
	logData, err := logger.New().FromBuffer(os.Stderr).Console().WithLevel(level).Make()
	if err != nil {
		return zerolog.Nop(), err
	}
	return logData.Logger, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&includeTests, "include-tests", false, "Also read _test.go files")
	rootCmd.PersistentFlags().StringSliceVar(&extensions, "ext", []string{".go"}, "File extensions to read")

	listCmd.Flags().Bool("json", false, "Output as JSON")

	extractCmd.Flags().String("file", "", "Read the tag from this file instead of searching")
	extractCmd.Flags().String("root", ".", "Directory to search for the tag")
	extractCmd.Flags().Bool("keep-indent", false, "Keep the indentation of the source")

	previewCmd.Flags().String("addr", "localhost:8080", "Address to listen on")

	rootCmd.AddCommand(listCmd, extractCmd, checkCmd, previewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
