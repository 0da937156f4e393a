package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shopassist/domain"
	"shopassist/listing"
)

// filterFlags are the listing filters shared by browse, search, export and
// the shell's filter command.
type filterFlags struct {
	query      string
	category   string
	brand      string
	minPrice   float64
	maxPrice   float64
	clearPrice bool
	perPage    int
}

func (f *filterFlags) bind(cmd *cobra.Command, withQuery bool) {
	if withQuery {
		cmd.Flags().StringVar(&f.query, "query", "", "free-text search")
	}
	cmd.Flags().StringVar(&f.category, "category", "", "category")
	cmd.Flags().StringVar(&f.brand, "brand", "", "brand")
	cmd.Flags().Float64Var(&f.minPrice, "min-price", 0, "min price")
	cmd.Flags().Float64Var(&f.maxPrice, "max-price", 0, "max price")
	cmd.Flags().IntVar(&f.perPage, "per-page", 0, "products per page")
}

// patch turns the flags the user actually set into a FilterPatch.
func (f *filterFlags) patch(cmd *cobra.Command) domain.FilterPatch {
	var p domain.FilterPatch
	flags := cmd.Flags()
	if flags.Changed("query") {
		p.Query = &f.query
	}
	if flags.Changed("category") {
		p.Category = &f.category
	}
	if flags.Changed("brand") {
		p.Brand = &f.brand
	}
	if flags.Changed("min-price") {
		v := f.minPrice
		p.MinPrice = &v
	}
	if flags.Changed("max-price") {
		v := f.maxPrice
		p.MaxPrice = &v
	}
	if f.clearPrice {
		p.ClearMinPrice, p.ClearMaxPrice = true, true
	}
	if flags.Changed("per-page") && f.perPage > 0 {
		n := f.perPage
		p.PerPage = &n
	}
	return p
}

func (f *filterFlags) criteria(cmd *cobra.Command, page int) domain.FilterCriteria {
	crit := domain.DefaultCriteria()
	crit.PerPage = cfg.PerPage
	crit = crit.Apply(f.patch(cmd))
	if page > 1 {
		crit = crit.WithPage(page)
	}
	return crit
}

func windowSize(flag int) int {
	if flag > 0 {
		return flag
	}
	return cfg.Window
}

// runListing issues exactly one request for crit and prints the result.
func runListing(cmd *cobra.Command, crit domain.FilterCriteria, window int, output string) error {
	ctl := listing.NewController(api,
		listing.WithLogger(slog.Default()),
		listing.WithTimeout(cfg.Timeout),
		listing.WithPerPage(cfg.PerPage),
		listing.WithCriteria(crit),
	)
	defer ctl.Close()

	start := time.Now()
	ctl.Refresh()
	st, err := ctl.Wait(cmd.Context())
	if err != nil {
		return err
	}
	slog.Debug("listing fetched",
		"query", crit.Query,
		"page", crit.Page,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return printListing(st, windowSize(window), output)
}

func init() {
	// browse
	var bFilters filterFlags
	var bPage, bWindow int
	var bOutput string
	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "List products, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListing(cmd, bFilters.criteria(cmd, bPage), bWindow, bOutput)
		},
	}
	bFilters.bind(browseCmd, true)
	browseCmd.Flags().IntVar(&bPage, "page", 1, "page")
	browseCmd.Flags().IntVar(&bWindow, "window", 0, "page buttons to show (default from config)")
	browseCmd.Flags().StringVar(&bOutput, "output", "", "output format")
	rootCmd.AddCommand(browseCmd)

	// search
	var sFilters filterFlags
	var sPage, sWindow int
	var sOutput string
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search products by relevance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			if strings.TrimSpace(q) == "" {
				return errors.New("query required")
			}
			crit := sFilters.criteria(cmd, sPage)
			crit.Query = q
			return runListing(cmd, crit, sWindow, sOutput)
		},
	}
	sFilters.bind(searchCmd, false)
	searchCmd.Flags().IntVar(&sPage, "page", 1, "page")
	searchCmd.Flags().IntVar(&sWindow, "window", 0, "page buttons to show (default from config)")
	searchCmd.Flags().StringVar(&sOutput, "output", "", "output format")
	rootCmd.AddCommand(searchCmd)

	// product
	productCmd := &cobra.Command{
		Use:   "product <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid product id %q", args[0])
			}
			p, err := api.GetProduct(cmd.Context(), id)
			if err != nil {
				if domain.IsProductNotFoundError(err) {
					fmt.Fprintln(os.Stderr, err)
					return nil
				}
				return err
			}
			printJSON(p)
			return nil
		},
	}
	rootCmd.AddCommand(productCmd)

	// categories / brands
	rootCmd.AddCommand(
		optionsCmd("categories", "List product categories", func(ctx context.Context) ([]string, error) {
			return api.Categories(ctx)
		}),
		optionsCmd("brands", "List product brands", func(ctx context.Context) ([]string, error) {
			return api.Brands(ctx)
		}),
	)

	// export
	var eFilters filterFlags
	var exportFile string
	var exportWorkers int
	exportCmd := &cobra.Command{
		Use:   "export --file <file>",
		Short: "Export every matching product to JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if exportFile == "" {
				return errors.New("--file required")
			}
			start := time.Now()
			out, err := listing.CollectAll(cmd.Context(), api, eFilters.criteria(cmd, 1), exportWorkers)
			if err != nil {
				slog.Error("export failed", "error", err)
				return err
			}
			b, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(exportFile, b, 0o644); err != nil {
				return err
			}
			slog.Info("products exported",
				"file", exportFile,
				"count", len(out),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil
		},
	}
	eFilters.bind(exportCmd, true)
	exportCmd.Flags().StringVar(&exportFile, "file", "", "output file")
	exportCmd.Flags().IntVar(&exportWorkers, "workers", listing.MaxExportWorkers, "concurrent page requests")
	rootCmd.AddCommand(exportCmd)
}

// optionsCmd builds a command printing one filter option list.
func optionsCmd(use, short string, get func(context.Context) ([]string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := get(cmd.Context())
			if err != nil {
				return err
			}
			for _, v := range values {
				fmt.Println(v)
			}
			return nil
		},
	}
}
