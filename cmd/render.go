package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/tablescout/tablescout/internal/locality"
	"github.com/tablescout/tablescout/internal/model"
	"github.com/tablescout/tablescout/internal/rank"
)

// maxSlotTimes caps how many slot times are shown per venue.
const maxSlotTimes = 4

// searchOutput is the rendered result of a search run.
type searchOutput struct {
	City     string           `json:"city" yaml:"city"`
	Location model.Coordinate `json:"location" yaml:"location"`
	Source   string           `json:"source" yaml:"source"`
	Total    int              `json:"total" yaml:"total"`
	Venues   []venueView      `json:"venues" yaml:"venues"`
}

// venueView is one display-ready venue row.
type venueView struct {
	Name          string   `json:"name" yaml:"name"`
	Locality      string   `json:"locality,omitempty" yaml:"locality,omitempty"`
	Neighborhood  string   `json:"neighborhood,omitempty" yaml:"neighborhood,omitempty"`
	Cuisine       []string `json:"cuisine,omitempty" yaml:"cuisine,omitempty"`
	Price         string   `json:"price,omitempty" yaml:"price,omitempty"`
	Rating        float64  `json:"rating,omitempty" yaml:"rating,omitempty"`
	Slots         int      `json:"slots" yaml:"slots"`
	Times         []string `json:"times,omitempty" yaml:"times,omitempty"`
	DistanceMiles *float64 `json:"distance_miles,omitempty" yaml:"distance_miles,omitempty"`
	About         string   `json:"about,omitempty" yaml:"about,omitempty"`
}

func renderSearch(w io.Writer, format, city string, res *locality.Resolution, venues []model.Venue) error {
	out := searchOutput{
		City:     city,
		Location: res.Coordinate,
		Source:   res.Source,
		Total:    len(venues),
		Venues:   make([]venueView, 0, len(venues)),
	}
	for i := range venues {
		out.Venues = append(out.Venues, buildView(&venues[i], res.Coordinate))
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(out), "render: encode json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(out); err != nil {
			enc.Close() //nolint:errcheck
			return eris.Wrap(err, "render: encode yaml")
		}
		return eris.Wrap(enc.Close(), "render: encode yaml")
	case "text", "":
		renderText(w, out)
		return nil
	default:
		return eris.Errorf("render: unknown output format %q", format)
	}
}

func buildView(v *model.Venue, ref model.Coordinate) venueView {
	view := venueView{
		Name:     rank.DisplayName(v),
		Locality: v.Locality,
		Cuisine:  rank.CuisineTypes(v),
		Price:    rank.PriceLabel(v),
		Slots:    v.SlotCount(),
	}

	if n, ok := rank.Neighborhood(v); ok {
		view.Neighborhood = n
	}
	if v.Rating != nil {
		view.Rating = v.Rating.Average
	}
	if v.Geo != nil {
		d := rank.Haversine(ref, *v.Geo)
		view.DistanceMiles = &d
	}
	if body, ok := rank.ContentFor(v, "about"); ok {
		view.About = body
	}

	for i, s := range v.Slots() {
		if i == maxSlotTimes {
			break
		}
		view.Times = append(view.Times, rank.FormatSlotTime(s))
	}

	return view
}

func renderText(w io.Writer, out searchOutput) {
	fmt.Fprintf(w, "%d venues near %s (%.4f, %.4f)\n\n", out.Total, out.City, out.Location.Lat, out.Location.Lng)
	for _, v := range out.Venues {
		line := v.Name
		if v.Price != "" {
			line += "  " + v.Price
		}
		if v.Rating > 0 {
			line += fmt.Sprintf("  %.1f", v.Rating)
		}
		if v.DistanceMiles != nil {
			line += fmt.Sprintf("  %.1f mi", *v.DistanceMiles)
		}
		fmt.Fprintln(w, line)

		if len(v.Times) > 0 {
			fmt.Fprintf(w, "  %d slots: %s\n", v.Slots, strings.Join(v.Times, ", "))
		} else {
			fmt.Fprintf(w, "  %d slots\n", v.Slots)
		}
	}
}
