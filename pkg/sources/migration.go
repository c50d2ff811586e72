// Package sources loads movement datasets and map geometry from remote or
// cached local files.
package sources

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"

	"github.com/flowatlas/migration-globe/pkg/utils"
)

// ParseMovementCSV reads a header-driven CSV of movement records into raw
// row maps. Every field stays a string; interpretation (and the decision of
// which rows to drop) belongs to the engine's ingestion. Short rows are
// padded with empty fields rather than rejected.
func ParseMovementCSV(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", len(rows)+2, err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadMovementDataset fetches and parses a movement CSV, preferring the
// parsed-row cache in the store when present. A nil store skips row caching;
// the raw download still goes through the file cache unless disabled.
func LoadMovementDataset(url string, store *utils.DatasetStore, useCache bool) ([]map[string]string, error) {
	if store != nil && useCache {
		rows, err := store.GetRows(url)
		if err != nil {
			log.Printf("[dataset] Row cache read failed, refetching: %v", err)
		} else if rows != nil {
			log.Printf("[dataset] Using %d cached rows for %s", len(rows), url)
			return rows, nil
		}
	}

	r, err := utils.GetCachedReader(url, useCache, "[dataset]")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Printf("Error closing dataset reader: %v", err)
		}
	}()

	rows, err := ParseMovementCSV(r)
	if err != nil {
		return nil, err
	}
	if store != nil && useCache {
		if err := store.PutRows(url, rows); err != nil {
			log.Printf("[dataset] Row cache write failed: %v", err)
		}
	}
	return rows, nil
}

// LoadWorldGeoJSON fetches the background map polygons.
func LoadWorldGeoJSON(url string, useCache bool) ([]byte, error) {
	r, err := utils.GetCachedReader(url, useCache, "[worldmap]")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Printf("Error closing world map reader: %v", err)
		}
	}()
	return io.ReadAll(r)
}
