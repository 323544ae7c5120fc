package main

import (
	"github.com/FranksOps/trendscout/internal/trends/explore"
	"github.com/spf13/cobra"
)

func (a *app) exploreClient() (*explore.Client, error) {
	f, err := a.fetcher(true)
	if err != nil {
		return nil, err
	}
	tz := a.cfg.TZ
	return explore.New(f, explore.Options{
		BaseURL:   a.cfg.Endpoints.Base,
		HL:        a.cfg.HL,
		TZ:        &tz,
		Timeframe: a.cfg.Timeframe,
		Logger:    a.logger,
	}), nil
}

func trendingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Print today's trending searches and rising related queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			client, err := a.exploreClient()
			if err != nil {
				return err
			}
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			p.Client = client

			return a.finish(p.RunTrending(cmd.Context(), a.stdout, a.cfg.Keywords))
		},
	}
	cmd.Flags().StringSlice("keywords", nil, "keywords to compare (default \"trending products,viral products\")")
	cmd.Flags().Bool("all", false, "print rising queries for every keyword, not only the first")
	_ = a.v.BindPFlag("keywords", cmd.Flags().Lookup("keywords"))
	_ = a.v.BindPFlag("output.all_keywords", cmd.Flags().Lookup("all"))
	return cmd
}

func relatedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "related <term> [term...]",
		Short: "Print rising related queries for the given terms",
		Args:  cobra.RangeArgs(1, explore.MaxKeywords),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			client, err := a.exploreClient()
			if err != nil {
				return err
			}
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			p.Client = client
			p.AllKeywords = true

			return a.finish(p.RunRelated(cmd.Context(), a.stdout, args))
		},
	}
}
