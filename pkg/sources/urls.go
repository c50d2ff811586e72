package sources

const (
	// MigrationDatasetURL is the default bilateral migration CSV export.
	MigrationDatasetURL = "https://map.kmcd.dev/data/migration/bilateral-flows.csv"

	// WorldGeoJSONURL provides the country polygons for the background map.
	WorldGeoJSONURL = "https://raw.githubusercontent.com/johan/world.geo.json/master/countries.geo.json"
)
