package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/skillrec/internal/cli"
	"github.com/hyperjump/skillrec/internal/extract"
	"github.com/hyperjump/skillrec/internal/models"
	"github.com/hyperjump/skillrec/internal/recommend"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

// maxQueryBytes bounds job-description files and piped input.
const maxQueryBytes = 10 << 20

var (
	queryFile    string
	outputFormat string
	searchLimit  int
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [query]",
	Short: "Recommend assessments for a hiring query or job description",
	Long: `Recommend assessments for a hiring query. The query is all arguments joined by
spaces, the text of --file (pdf, docx, odt, rtf or plain text), or standard input.
With no query on a terminal you are prompted for one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		query, err := readQuery(args, queryFile, os.Stdin, isTerminal(os.Stdin))
		if err != nil {
			return err
		}
		s, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		rec, err := s.engine.Recommend(cmd.Context(), query)
		if err != nil {
			return err
		}
		return cli.WriteRecommendation(cmd.OutOrStdout(), rec, format)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "List the catalog entries nearest to a query without generation",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		query, err := readQuery(args, queryFile, os.Stdin, isTerminal(os.Stdin))
		if err != nil {
			return err
		}
		s, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		limit := searchLimit
		if limit <= 0 {
			limit = s.cfg.Recommend.ResponseK
		}
		hits, err := s.engine.Search(cmd.Context(), query, limit)
		if err != nil {
			return err
		}
		results := recommend.RankedEntries(hits)
		return cli.WriteSearchResults(cmd.OutOrStdout(), &models.SearchResponse{
			Query:   query,
			Total:   len(results),
			Results: results,
		}, format)
	},
}

var buildIndexCmd = &cobra.Command{
	Use:   "build-index",
	Short: "Rebuild the vector index from the catalog file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := setup(cmd.Context(), recommend.WithForceBuild())
		if err != nil {
			return err
		}
		defer s.Close()

		m := s.engine.Index().Manifest()
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d assessments into %s (model %s, %d dimensions)\n",
			m.Count, s.cfg.Index.Dir, m.ModelID, m.Dimensions)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd, searchCmd, buildIndexCmd)

	for _, c := range []*cobra.Command{recommendCmd, searchCmd} {
		c.Flags().StringVarP(&queryFile, "file", "f", "", "read the query from a job-description file")
		c.Flags().StringVarP(&outputFormat, "output", "o", "text", "output format: text or json")
	}
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "number of results (default recommend.response_k)")
}

// readQuery resolves the query from args, a file, a prompt or in, in that order.
func readQuery(args []string, file string, in io.Reader, interactive bool) (string, error) {
	joined := strings.TrimSpace(strings.Join(args, " "))
	var (
		query string
		err   error
	)
	switch {
	case file != "" && joined != "":
		return "", errors.New("pass either a query or --file, not both")
	case file != "":
		query, err = extract.NewExtractor(maxQueryBytes).Extract(file)
		if errors.Is(err, extract.ErrEmpty) {
			return "", fmt.Errorf("%s contains no text", file)
		}
	case joined != "":
		query = joined
	case interactive:
		query, err = promptQuery()
	default:
		var data []byte
		data, err = io.ReadAll(io.LimitReader(in, maxQueryBytes))
		query = string(data)
	}
	if err != nil {
		return "", err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("query is empty")
	}
	return query, nil
}

func promptQuery() (string, error) {
	p := promptui.Prompt{
		Label: "Job description or hiring query",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("query must not be empty")
			}
			return nil
		},
	}
	return p.Run()
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
