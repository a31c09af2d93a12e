package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tablescout/tablescout/internal/locality"
	"github.com/tablescout/tablescout/internal/model"
	"github.com/tablescout/tablescout/internal/rank"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Filter and rank a fetched venue batch",
	Long:  "Reads an already-fetched reservation search response, resolves the city to a reference coordinate, and applies availability, price, and time-window filters plus the chosen sort.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		file, _ := cmd.Flags().GetString("file")
		city, _ := cmd.Flags().GetString("city")
		startClock, _ := cmd.Flags().GetString("time-start")
		endClock, _ := cmd.Flags().GetString("time-end")
		prices, _ := cmd.Flags().GetIntSlice("price")
		availableOnly, _ := cmd.Flags().GetBool("available-only")
		sortFlag, _ := cmd.Flags().GetString("sort")
		output, _ := cmd.Flags().GetString("output")

		if sortFlag == "" {
			sortFlag = cfg.Search.Sort
		}
		sortMode, err := rank.ParseSortMode(sortFlag)
		if err != nil {
			return err
		}
		if output == "" {
			output = cfg.Search.Output
		}

		f, err := os.Open(file)
		if err != nil {
			return eris.Wrapf(err, "search: open %s", file)
		}
		defer f.Close() //nolint:errcheck

		resp, err := model.DecodeBatch(f)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		resolver := locality.NewResolver(newGeocodeCache(st))
		res, err := resolver.Resolve(ctx, city)
		if err != nil {
			return err
		}

		venues := locality.FilterByLocality(resp.Search.Hits, res)
		eng := rank.New(venues, rank.WithReference(res.Coordinate))

		if availableOnly {
			eng = rank.New(eng.WithAvailability(), rank.WithReference(res.Coordinate))
		}
		if startClock != "" && endClock != "" {
			startMin, err := parseClock(startClock)
			if err != nil {
				return err
			}
			endMin, err := parseClock(endClock)
			if err != nil {
				return err
			}
			eng = rank.New(eng.CombinedFilter(startMin, endMin, prices), rank.WithReference(res.Coordinate))
		} else if len(prices) > 0 {
			eng = rank.New(eng.ByPriceTier(prices), rank.WithReference(res.Coordinate))
		}

		ranked := eng.SortBy(sortMode)

		if _, err := st.RecordSearch(ctx, city, res.Coordinate, len(ranked)); err != nil {
			zap.L().Warn("search: record failed", zap.Error(err))
		}

		return renderSearch(cmd.OutOrStdout(), output, city, res, ranked)
	},
}

// parseClock converts a "15:04" wall-clock string to minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, eris.Wrapf(err, "search: parse time %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func init() {
	searchCmd.Flags().String("file", "", "path to a fetched search response (JSON)")
	searchCmd.Flags().String("city", "", "city or area to search")
	searchCmd.Flags().String("time-start", "", "earliest reservation time (HH:MM)")
	searchCmd.Flags().String("time-end", "", "latest reservation time (HH:MM)")
	searchCmd.Flags().IntSlice("price", nil, "price tiers to keep (1-3); empty keeps all")
	searchCmd.Flags().Bool("available-only", false, "keep only venues with open slots")
	searchCmd.Flags().String("sort", "", "sort mode: rating, distance, availability, default")
	searchCmd.Flags().String("output", "", "output format: text, json, yaml")
	_ = searchCmd.MarkFlagRequired("file")
	_ = searchCmd.MarkFlagRequired("city")

	rootCmd.AddCommand(searchCmd)
}
