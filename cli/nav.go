package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shopassist/domain"
)

// navCommands returns the shell-only commands driving the shared listing.
// They are rebuilt for every shell so their flags start clean.
func navCommands() []*cobra.Command {
	show := func(cmd *cobra.Command) error {
		st, err := controller().Wait(cmd.Context())
		if err != nil {
			return err
		}
		return printListing(st, cfg.Window, "")
	}

	nextCmd := &cobra.Command{
		Use:   "next",
		Short: "Go to the next page",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := controller().Wait(cmd.Context())
			if err != nil {
				return err
			}
			if st.Status.Kind != domain.StatusSuccess {
				return errors.New("no listing loaded; try retry")
			}
			res := st.Status.Result
			if res.CurrentPage >= res.TotalPages {
				fmt.Println("already on the last page")
				return nil
			}
			controller().SetPage(res.CurrentPage + 1)
			return show(cmd)
		},
	}

	prevCmd := &cobra.Command{
		Use:   "prev",
		Short: "Go to the previous page",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := controller().Wait(cmd.Context())
			if err != nil {
				return err
			}
			if st.Status.Kind != domain.StatusSuccess {
				return errors.New("no listing loaded; try retry")
			}
			if st.Status.Result.CurrentPage <= 1 {
				fmt.Println("already on the first page")
				return nil
			}
			controller().SetPage(st.Status.Result.CurrentPage - 1)
			return show(cmd)
		},
	}

	pageCmd := &cobra.Command{
		Use:   "page <n>",
		Short: "Jump to a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid page %q", args[0])
			}
			controller().SetPage(n)
			return show(cmd)
		},
	}

	var f filterFlags
	filterCmd := &cobra.Command{
		Use:   "filter [query words]",
		Short: "Change filters; the listing returns to page 1",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := f.patch(cmd)
			if len(args) > 0 {
				q := strings.Join(args, " ")
				p.Query = &q
			}
			controller().ApplyFilterPatch(p)
			return show(cmd)
		},
	}
	f.bind(filterCmd, true)
	filterCmd.Flags().BoolVar(&f.clearPrice, "clear-price", false, "drop both price bounds")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear every filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			controller().Reset()
			return show(cmd)
		},
	}

	retryCmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-issue the current request",
		RunE: func(cmd *cobra.Command, args []string) error {
			controller().Refresh()
			return show(cmd)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return show(cmd)
		},
	}

	optsCmd := &cobra.Command{
		Use:   "options",
		Short: "Print the available categories and brands",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := controller().Wait(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("categories: %s\n", strings.Join(st.Categories, ", "))
			fmt.Printf("brands: %s\n", strings.Join(st.Brands, ", "))
			return nil
		},
	}

	return []*cobra.Command{nextCmd, prevCmd, pageCmd, filterCmd, resetCmd, retryCmd, showCmd, optsCmd}
}
