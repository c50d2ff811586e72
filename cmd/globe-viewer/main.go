package main

import (
	"log"
	"os"

	"github.com/alecthomas/kong"
	"github.com/hajimehoshi/ebiten/v2"
	_ "github.com/silbinarywolf/preferdiscretegpu"

	"github.com/flowatlas/migration-globe/pkg/flowengine"
	"github.com/flowatlas/migration-globe/pkg/sources"
	"github.com/flowatlas/migration-globe/pkg/utils"
)

var cli struct {
	Dataset  string `help:"Movement dataset CSV URL." default:"${dataset_url}"`
	WorldMap string `help:"World map GeoJSON URL." default:"${worldmap_url}"`
	FeedURL  string `help:"Optional websocket URL streaming live movement records."`
	AudioDir string `help:"Directory of MP3 files for the ambient soundtrack."`

	Width    int     `help:"Internal rendering width." default:"1920"`
	Height   int     `help:"Internal rendering height." default:"1080"`
	Scale    float64 `help:"Projection scale." default:"300"`
	TPS      int     `help:"Ticks per second (engine updates)." default:"30"`
	Headless bool    `help:"Run without a local window."`

	DotSpeed   float64 `help:"Base dot progress per tick." default:"0.002"`
	DotSpacing float64 `help:"Progress offset between dots on an edge." default:"0.06"`
	MinDots    int     `help:"Minimum dots per edge." default:"1"`
	DotFactor  float64 `help:"Movement count per extra dot." default:"100"`

	CacheDir string `help:"Directory for the on-disk dataset cache." default:"data/flow-cache"`
	NoCache  bool   `help:"Bypass all local caches."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("globe-viewer"),
		kong.Description("Interactive world map of migration flows."),
		kong.Vars{
			"dataset_url":  sources.MigrationDatasetURL,
			"worldmap_url": sources.WorldGeoJSONURL,
		},
	)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg := flowengine.Config{
		DotAnimationSpeed: cli.DotSpeed,
		DotSpacing:        cli.DotSpacing,
		MinimumDots:       cli.MinDots,
		DotCountFactor:    cli.DotFactor,
	}

	var store *utils.DatasetStore
	if !cli.NoCache {
		var err error
		store, err = utils.OpenDatasetStore(cli.CacheDir)
		if err != nil {
			log.Printf("Dataset cache unavailable, continuing without: %v", err)
		} else {
			defer func() {
				if err := store.Close(); err != nil {
					log.Printf("Error closing dataset cache: %v", err)
				}
			}()
		}
	}

	rows, err := sources.LoadMovementDataset(cli.Dataset, store, !cli.NoCache)
	if err != nil {
		log.Fatalf("Failed to load movement dataset: %v", err)
	}

	matcher := flowengine.NewCountryMatcher(flowengine.DefaultCountryAliases)
	session := flowengine.NewSession(cfg, flowengine.GreatCircleSampler{})
	gen := session.BeginIngest()
	edges, states, err := flowengine.BuildEdges(rows, cfg, matcher)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}
	session.CompleteIngest(gen, edges, states)
	log.Printf("Ingested %d movement edges", session.EdgeCount())

	engine := flowengine.NewEngine(cli.Width, cli.Height, cli.Scale, session)
	engine.SetNormalizer(matcher)
	world, err := sources.LoadWorldGeoJSON(cli.WorldMap, !cli.NoCache)
	if err != nil {
		log.Fatalf("Failed to load world map: %v", err)
	}
	if err := engine.LoadWorldMap(world); err != nil {
		log.Fatalf("Failed to rasterize world map: %v", err)
	}

	if cli.FeedURL != "" {
		feed := flowengine.NewFlowFeed(cli.FeedURL, store, func(rows []flowengine.RowRecord) {
			if !engine.EnqueueRows(rows) {
				log.Printf("Dropping feed batch of %d rows (queue full)", len(rows))
			}
		})
		go feed.Listen()
	}

	if cli.AudioDir != "" {
		player := flowengine.NewSoundtrackPlayer(cli.AudioDir, engine.SetNowPlaying)
		player.Start()
		defer player.Shutdown()
	}

	ebiten.SetTPS(cli.TPS)
	if cli.Headless {
		log.Println("Running in HEADLESS mode (Rendering active).")
	} else {
		ebiten.SetWindowSize(1280, 720)
		ebiten.SetWindowTitle("Migration Flow Globe")
	}
	if err := ebiten.RunGame(engine); err != nil {
		log.Fatal(err)
	}
}
