package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"castlemap/pkg/commons"
	"castlemap/pkg/config"
	"castlemap/pkg/dataset"
	"castlemap/pkg/geo"
	"castlemap/pkg/model"
	"castlemap/pkg/overpass"
	"castlemap/pkg/wikidata"
)

func (a *app) wikidataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wikidata <output_json>",
		Short: "Page through the Wikidata castle query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := a.requestClient()
			if err != nil {
				return err
			}
			client := wikidata.NewClient(rc, &a.cfg.Wikidata, a.logger)
			client.CacheResponses = a.cfg.Cache.Enabled

			rows, err := client.FetchCastles(cmd.Context())
			if err != nil {
				return fmt.Errorf("wikidata fetch failed: %w", err)
			}
			if rows == nil {
				rows = []model.WikidataCastle{}
			}

			if err := dataset.WriteJSON(args[0], rows, false); err != nil {
				return err
			}
			a.logger.Info("Wrote Wikidata records", "count", len(rows), "path", args[0])
			return nil
		},
	}
}

func (a *app) osmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "osm <output_json>",
		Short: "Download castle features from the Overpass API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := a.requestClient()
			if err != nil {
				return err
			}
			client := overpass.NewClient(rc, &a.cfg.Overpass, a.logger)
			client.CacheResponses = a.cfg.Cache.Enabled

			raw, resp, err := client.Fetch(cmd.Context())
			if err != nil {
				return fmt.Errorf("overpass fetch failed: %w", err)
			}

			if err := dataset.WriteRaw(args[0], raw); err != nil {
				return err
			}
			a.logger.Info("Wrote OSM dump", "elements", len(resp.Elements), "path", args[0])
			return nil
		},
	}
}

func (a *app) thumbsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "thumbs <wd_json> <output_json>",
		Short: "Fetch thumbnail and license metadata from Wikimedia Commons",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []model.WikidataCastle
			if err := dataset.ReadJSON(args[0], &rows); err != nil {
				return err
			}

			rc, err := a.requestClient()
			if err != nil {
				return err
			}
			client := commons.NewClient(rc, &a.cfg.Commons, a.logger)
			client.CacheResponses = a.cfg.Cache.Enabled

			thumbs, err := client.FetchAll(cmd.Context(), rows)
			if err != nil {
				return fmt.Errorf("commons fetch failed: %w", err)
			}

			if err := dataset.WriteJSON(args[1], thumbs, true); err != nil {
				return err
			}
			a.logger.Info("Wrote thumbnail records", "count", len(thumbs), "path", args[1])
			return nil
		},
	}
}

func (a *app) normalizeCommand() *cobra.Command {
	var thumbsPath string

	cmd := &cobra.Command{
		Use:   "normalize <wd_json> <osm_json> <output_json>",
		Short: "Merge the Wikidata and OSM dumps into the castle schema",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := dataset.LoadWikidata(args[0])
			if err != nil {
				return err
			}
			elements, err := dataset.LoadElements(args[1])
			if err != nil {
				return err
			}

			castles := dataset.Normalize(wd, elements, time.Now())

			if thumbsPath != "" {
				thumbs, err := dataset.LoadThumbnails(thumbsPath)
				if err != nil {
					return err
				}
				applied := dataset.ApplyThumbnails(castles, thumbs)
				a.logger.Info("Applied image credits", "count", applied)
			}

			unplaced := 0
			for i := range castles {
				if castles[i].Coords.IsZero() {
					unplaced++
				}
			}
			if unplaced > 0 {
				a.logger.Warn("Castles without a position are kept but left off the map", "count", unplaced)
			}

			if err := dataset.WriteJSON(args[2], castles, false); err != nil {
				return err
			}
			a.logger.Info("Normalized castles", "count", len(castles), "wikidata_records", len(wd), "osm_elements", len(elements), "path", args[2])
			return nil
		},
	}
	cmd.Flags().StringVar(&thumbsPath, "thumbs", "", "thumbnail mapping from 'castles thumbs' used for image license and credit")
	return cmd
}

func (a *app) splitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "split <castles_json> <output_dir>",
		Short: "Write one castle file per country code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			castles, err := dataset.LoadCastles(args[0])
			if err != nil {
				return err
			}
			codes, err := dataset.WriteCountryChunks(args[1], castles)
			if err != nil {
				return err
			}
			a.logger.Info("Wrote country files", "countries", len(codes), "castles", len(castles), "dir", args[1])
			return nil
		},
	}
}

func (a *app) geojsonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "geojson <castles_json> <output_geojson>",
		Short: "Export castles as a GeoJSON FeatureCollection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			castles, err := dataset.LoadCastles(args[0])
			if err != nil {
				return err
			}
			data, err := geo.Marshal(castles)
			if err != nil {
				return err
			}
			if err := dataset.WriteRaw(args[1], data); err != nil {
				return err
			}
			a.logger.Info("Wrote GeoJSON", "features", len(castles), "path", args[1])
			return nil
		},
	}
}

func (a *app) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <castles_json>",
		Short: "Print per-country counts of a merged dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			castles, err := dataset.LoadCastles(args[0])
			if err != nil {
				return err
			}

			bound := geo.Bound(a.cfg.Wikidata.Bounds)
			outside := 0
			for i := range castles {
				if !geo.InBounds(bound, castles[i].Coords) {
					outside++
				}
			}
			if outside > 0 {
				a.logger.Warn("Castles outside the Wikidata bounding box", "count", outside)
			}

			return renderStats(cmd.OutOrStdout(), dataset.Summarize(castles))
		},
	}
}

func (a *app) initConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "init-config",
		Short:       "Write the default config file if it does not exist",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoSetup: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.GenerateDefault(a.configPath); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config file generated: %s\n", a.configPath)
			return nil
		},
	}
}
