// flow-inspect loads a movement dataset and prints its aggregates without a
// display, for sanity-checking data before pointing the viewer at it.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/alecthomas/kong"

	"github.com/flowatlas/migration-globe/pkg/flowengine"
	"github.com/flowatlas/migration-globe/pkg/sources"
)

var cli struct {
	Dataset string `help:"Movement dataset CSV URL or file path." default:"${dataset_url}"`
	Country string `help:"Aggregate around this country instead of globally."`
	Role    string `help:"Selection role when --country is set." enum:"origin,destination" default:"origin"`
	Limit   int    `help:"Maximum aggregates to print (0 = all)." default:"0"`
	NoCache bool   `help:"Bypass the local download cache."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("flow-inspect"),
		kong.Description("Print per-country movement aggregates from a dataset."),
		kong.Vars{"dataset_url": sources.MigrationDatasetURL},
	)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	rows, err := loadRows(cli.Dataset)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	cfg := flowengine.DefaultConfig()
	matcher := flowengine.NewCountryMatcher(flowengine.DefaultCountryAliases)
	edges, _, err := flowengine.BuildEdges(rows, cfg, matcher)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	var aggs []flowengine.CountryAggregate
	if cli.Country != "" {
		aggs = flowengine.AggregateForSelection(edges, matcher.Normalize(cli.Country), nil)
		fmt.Printf("Flows touching %s (%s):\n", cli.Country, cli.Role)
	} else {
		aggs = flowengine.AggregateGlobal(edges)
		fmt.Println("Global aggregates by origin:")
	}

	total := 0
	for i, a := range aggs {
		if cli.Limit > 0 && i >= cli.Limit {
			break
		}
		fmt.Printf("%-32s %10d  (%.2f, %.2f)\n",
			a.Country, a.TotalCount, a.RepresentativePoint.Lon, a.RepresentativePoint.Lat)
		total += a.TotalCount
	}
	fmt.Printf("\n%d edges, %d aggregates, %d total movements listed\n", len(edges), len(aggs), total)
}

func loadRows(dataset string) ([]flowengine.RowRecord, error) {
	if _, err := os.Stat(dataset); err == nil {
		f, err := os.Open(dataset)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Printf("Error closing dataset file: %v", err)
			}
		}()
		return sources.ParseMovementCSV(f)
	}
	return sources.LoadMovementDataset(dataset, nil, !cli.NoCache)
}
