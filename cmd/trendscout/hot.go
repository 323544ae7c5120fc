package main

import (
	"github.com/FranksOps/trendscout/internal/trends/google"
	"github.com/spf13/cobra"
)

func hotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hot",
		Short: "Print the realtime trending list from the hottrends endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			f, err := a.fetcher(false)
			if err != nil {
				return err
			}
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			p.Hot = google.NewHot(f, a.cfg.Endpoints.Hot, a.logger)
			p.HL = baseLanguage(a.cfg.HL)

			return a.finish(p.RunHot(cmd.Context(), a.stdout))
		},
	}
}
