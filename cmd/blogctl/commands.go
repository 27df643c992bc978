package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/solm0/solmee-xyz-keystone/application/commands"
	"github.com/solm0/solmee-xyz-keystone/application/queries"
	"github.com/solm0/solmee-xyz-keystone/application/services"
	"github.com/solm0/solmee-xyz-keystone/domain/core/document"
)

// maxParallelFiles bounds how many documents extract reads at once
const maxParallelFiles = 8

type fileExtraction struct {
	File            string   `json:"file"`
	Text            string   `json:"text"`
	Keywords        []string `json:"keywords"`
	Targets         []string `json:"targets"`
	DroppedSubtrees int      `json:"droppedSubtrees"`
	Issues          []string `json:"issues,omitempty"`
}

func newExtractCmd(load loader) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "extract <file>...",
		Short: "Print text, keywords and link targets of editor documents without writing anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, cleanup, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			results := make([]fileExtraction, len(args))
			g, _ := errgroup.WithContext(cmd.Context())
			g.SetLimit(maxParallelFiles)
			for i, path := range args {
				g.Go(func() error {
					doc, report, err := readDocument(path)
					if err != nil {
						return err
					}
					extraction := container.Pipeline.Extract(doc)
					results[i] = fileExtraction{
						File:            path,
						Text:            extraction.Text,
						Keywords:        nonNil(extraction.Keywords),
						Targets:         nonNil(extraction.Targets),
						DroppedSubtrees: report.Dropped(),
						Issues:          report.Issues,
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, results)
			}
			for _, r := range results {
				_, _ = fmt.Fprintf(out, "== %s\n", r.File)
				_, _ = fmt.Fprintf(out, "keywords: %s\n", strings.Join(r.Keywords, ", "))
				_, _ = fmt.Fprintf(out, "targets: %s\n", strings.Join(r.Targets, ", "))
				if r.DroppedSubtrees > 0 {
					_, _ = fmt.Fprintf(out, "dropped: %d\n", r.DroppedSubtrees)
				}
				_, _ = fmt.Fprintf(out, "text:\n%s\n", r.Text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newProcessCmd(load loader) *cobra.Command {
	var operation, title, previous string

	cmd := &cobra.Command{
		Use:   "process <article-id> <file>",
		Short: "Run the content pipeline for an article against the configured store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, cleanup, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			body, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			command := commands.ProcessContentCommand{
				ArticleID: args[0],
				Operation: operation,
				Title:     title,
				Document:  body,
			}
			if previous != "" {
				if command.PreviousDocument, err = os.ReadFile(previous); err != nil {
					return fmt.Errorf("read previous document: %w", err)
				}
			}

			result, err := container.Dispatcher.Dispatch(cmd.Context(), command)
			if result != nil {
				printResult(cmd.OutOrStdout(), result)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "update", "lifecycle operation: create|update")
	cmd.Flags().StringVar(&title, "title", "", "title used when create registers the article")
	cmd.Flags().StringVar(&previous, "previous", "", "document before the change")
	return cmd
}

func printResult(out io.Writer, result *services.ContentResult) {
	if result.Keywords != nil {
		_, _ = fmt.Fprintf(out, "keywords: %s\n", strings.Join(result.Keywords.Keywords, ", "))
		if len(result.Keywords.Created) > 0 {
			_, _ = fmt.Fprintf(out, "created: %s\n", strings.Join(result.Keywords.Created, ", "))
		}
	} else {
		_, _ = fmt.Fprintf(out, "keywords failed: %v\n", result.KeywordsErr)
	}
	if result.Links != nil {
		_, _ = fmt.Fprintf(out, "connected: %s\n", strings.Join(result.Links.Delta.Connect, ", "))
		_, _ = fmt.Fprintf(out, "disconnected: %s\n", strings.Join(result.Links.Delta.Disconnect, ", "))
	} else {
		_, _ = fmt.Fprintf(out, "links failed: %v\n", result.LinksErr)
	}
}

func newGraphCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "graph <article-id>",
		Short: "Print an article's keywords and links as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, cleanup, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			graph, err := container.Graph.Handle(cmd.Context(), queries.GetArticleGraphQuery{ArticleID: args[0]})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), graph)
		},
	}
}

func newKeywordsCmd(load loader) *cobra.Command {
	var prefix string
	var limit int

	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "List the keyword vocabulary in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, cleanup, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := container.Keywords.Handle(cmd.Context(), queries.ListKeywordsQuery{Prefix: prefix, Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, kw := range result.Keywords {
				_, _ = fmt.Fprintf(out, "%s\t%s\n", kw.ID, kw.Name)
			}
			if len(result.Keywords) < result.Total {
				_, _ = fmt.Fprintf(out, "(%d of %d)\n", len(result.Keywords), result.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only names starting with prefix")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of keywords (0 for all)")
	return cmd
}

func readDocument(path string) (document.Document, document.Report, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, document.Report{}, fmt.Errorf("read %s: %w", path, err)
	}
	doc, report := document.Decode(body)
	return doc, report, nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
