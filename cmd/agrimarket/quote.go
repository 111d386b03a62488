package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/itsneelabh/agrimarket/pkg/cart"
	"github.com/itsneelabh/agrimarket/pkg/catalog"
)

func newQuoteCmd(opts *rootOptions) *cobra.Command {
	var seedFile string
	cmd := &cobra.Command{
		Use:   "quote <catalog>/<item>[=quantity]...",
		Short: "Price a cart without storing it",
		Long: `Builds a cart from catalog items and prints the subtotal, tax and total.
Quantities use the same parsing as the cart API, so "=3", "=2.9" and "=abc"
behave as they would in a cart.

Example:
  agrimarket quote marketplace/mkt-1=2 shop/shop-3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(opts, seedFile)
			if err != nil {
				return err
			}
			summary, err := quote(reg, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, summary)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "ITEM\tQTY\tUNIT\tTOTAL\t")
			for _, li := range summary.Items {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t\n", li.Name, li.Quantity,
					cart.FormatAmount(li.UnitPrice), cart.FormatAmount(li.LineTotal()))
			}
			fmt.Fprintf(tw, "Subtotal\t\t\t%s\t\n", summary.Display.Subtotal)
			fmt.Fprintf(tw, "Tax\t\t\t%s\t\n", summary.Display.Tax)
			fmt.Fprintf(tw, "Total\t\t\t%s\t\n", summary.Display.Total)
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&seedFile, "file", "", "YAML catalog file merged over the built-in catalogs")
	return cmd
}

// quote adds each referenced item once, merging repeats, then applies the
// requested quantity text
func quote(reg *catalog.Registry, refs []string) (cart.Summary, error) {
	ledger := cart.NewLedger()
	for _, ref := range refs {
		path, qty, hasQty := strings.Cut(ref, "=")
		catName, id, ok := strings.Cut(path, "/")
		if !ok {
			return cart.Summary{}, fmt.Errorf("invalid item reference %q, want <catalog>/<item>", ref)
		}
		c, item, err := reg.Item(catName, id)
		if err != nil {
			return cart.Summary{}, err
		}
		if !c.Purchasable {
			return cart.Summary{}, fmt.Errorf("%s items cannot be added to a cart", c.Name)
		}
		li := cart.LineItem{ID: item.ID, Name: item.Name, Vendor: item.Vendor, UnitPrice: item.Price, Quantity: 1}
		if err := ledger.Add(li, cart.MergeDuplicates); err != nil {
			return cart.Summary{}, err
		}
		if hasQty {
			ledger.SetQuantityText(item.ID, qty)
		}
	}
	return cart.Summarize("", ledger), nil
}
