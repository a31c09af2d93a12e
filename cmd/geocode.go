package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tablescout/tablescout/internal/model"
	"github.com/tablescout/tablescout/pkg/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode cache operations",
	Long:  "Resolve free-text locations through the quota-gated geocode cache and inspect its usage.",
}

var geocodeResolveCmd = &cobra.Command{
	Use:   "resolve <query>",
	Short: "Resolve a location to coordinates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cache := newGeocodeCache(st)

		res, err := cache.Resolve(ctx, args[0])
		if err != nil {
			return err
		}

		if !res.Matched {
			if res.Source == geocode.SourceQuota {
				quota, statsErr := cache.QuotaStats(ctx)
				if statsErr != nil {
					return statsErr
				}
				fmt.Printf("Daily geocoding quota reached (%d/%d)\n", quota.Used, quota.Limit)
				return nil
			}
			fmt.Println("No coordinates found")
			return nil
		}

		fmt.Printf("%.4f, %.4f (%s)\n", res.Coordinate.Lat, res.Coordinate.Lng, res.Source)
		return nil
	},
}

var geocodeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show quota usage and cache size",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cache := newGeocodeCache(st)

		quota, err := cache.QuotaStats(ctx)
		if err != nil {
			return err
		}
		stats, err := cache.CacheStats(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Quota (%s): %d/%d\n", quota.Date, quota.Used, quota.Limit)
		fmt.Printf("Cached locations: %d\n", stats.TotalCached)
		return nil
	},
}

var geocodeImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-load pre-resolved locations into the cache",
	Long:  "Reads a JSON array of {query, lat, lng} records and seeds the geocode cache without spending provider quota. Existing entries with the same normalized query are overwritten.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		file, _ := cmd.Flags().GetString("file")
		f, err := os.Open(file)
		if err != nil {
			return eris.Wrapf(err, "geocode import: open %s", file)
		}
		defer f.Close() //nolint:errcheck

		var records []struct {
			Query string  `json:"query"`
			Lat   float64 `json:"lat"`
			Lng   float64 `json:"lng"`
		}
		if err := json.NewDecoder(f).Decode(&records); err != nil {
			return eris.Wrapf(err, "geocode import: decode %s", file)
		}

		entries := make([]model.GeocodeEntry, 0, len(records))
		for _, rec := range records {
			if rec.Query == "" {
				continue
			}
			entries = append(entries, model.GeocodeEntry{
				NormalizedQuery: geocode.Normalize(rec.Query),
				OriginalQuery:   rec.Query,
				Lat:             rec.Lat,
				Lng:             rec.Lng,
			})
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.ImportGeocodes(ctx, entries)
		if err != nil {
			return err
		}

		fmt.Printf("Imported %d locations\n", n)
		return nil
	},
}

func init() {
	geocodeImportCmd.Flags().String("file", "", "path to a JSON array of {query, lat, lng} records")
	_ = geocodeImportCmd.MarkFlagRequired("file")

	geocodeCmd.AddCommand(geocodeResolveCmd)
	geocodeCmd.AddCommand(geocodeStatsCmd)
	geocodeCmd.AddCommand(geocodeImportCmd)
	rootCmd.AddCommand(geocodeCmd)
}
