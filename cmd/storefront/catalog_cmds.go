package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/spf13/cobra"
)

func productsCmd(c *cli) *cobra.Command {
	var (
		category string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List catalog products",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := c.load()
			if err != nil {
				return err
			}
			backend, err := newBackendClient(cfg, log, nil)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
			defer cancel()
			products, err := catalog.NewGateway(backend).ListProducts(ctx)
			if err != nil {
				return err
			}
			products = catalog.FilterByCategory(products, category)

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, products)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tWEIGHT\tPRICE\tSTOCK")
			for _, p := range products {
				stock := "in stock"
				if !p.InStock {
					stock = "out"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, p.Weight, p.Price.StringFixed(2), stock)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", catalog.AllCategories, "only show this category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func categoriesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List catalog categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := c.load()
			if err != nil {
				return err
			}
			backend, err := newBackendClient(cfg, log, nil)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
			defer cancel()
			categories, err := catalog.NewGateway(backend).ListCategories(ctx)
			if err != nil {
				return err
			}
			for _, name := range categories {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func orderCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "order <id>",
		Short: "Show a placed order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := c.load()
			if err != nil {
				return err
			}
			backend, err := newBackendClient(cfg, log, nil)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
			defer cancel()
			order, err := orders.NewClient(backend).GetOrder(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), order)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
