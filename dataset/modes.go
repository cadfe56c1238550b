package dataset

import (
	"fmt"
	"path/filepath"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// File names of the three mode datasets inside the data directory.
const (
	BusFile  = "BUS_Dataset.csv"
	DARTFile = "DART_Dataset.csv"
	LUASFile = "LUAS_Dataset.csv"
)

// DART columns the cleaning pass fills.
var (
	FacilityColumns = []string{
		"ATM",
		"Wi-Fi & Internet Access",
		"Refreshments",
		"Phone Charging",
		"Ticket Vending Machine",
		"Smart Card Enabled",
	}
	dartUnknownColumns = append([]string{"Weekend Working", "Eircode"}, FacilityColumns...)
)

const (
	Unknown        = "Unknown"
	AddressMissing = "Address Missing"
)

// Datasets holds one table per transport mode, keyed by "BUS", "DART" and "LUAS".
type Datasets map[string]*Table

// Get returns the table for a mode.
func (d Datasets) Get(mode string) (*Table, bool) {
	t, ok := d[mode]
	return t, ok
}

// LoadAll loads the three mode files from dir, fills the DART gaps and
// normalises text in every table.
func LoadAll(dir string, logger *zap.Logger) (Datasets, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	files := map[string]string{"BUS": BusFile, "DART": DARTFile, "LUAS": LUASFile}

	out := make(Datasets, len(files))
	for mode, name := range files {
		t, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("load %s dataset: %w", mode, err)
		}
		t.Missing = t.MissingCounts()
		if mode == "DART" {
			if err := CleanDART(t); err != nil {
				return nil, err
			}
		}
		t.Normalize()
		out[mode] = t

		logger.Info("Dataset loaded",
			zap.String("mode", mode),
			zap.String("file", name),
			zap.Int("rows", t.Len()),
			zap.Int("columns", len(t.Columns)),
			zap.Int("missing", lo.Sum(lo.Values(t.Missing))),
		)
	}
	return out, nil
}

// CleanDART fills the DART facility columns and Eircode with "Unknown" and a
// missing station address with "Address Missing". Columns the file does not
// carry are skipped.
func CleanDART(t *Table) error {
	for _, c := range dartUnknownColumns {
		if !t.Has(c) {
			continue
		}
		if err := t.FillMissing(c, Unknown); err != nil {
			return err
		}
	}
	if t.Has("Station Address") {
		return t.FillMissing("Station Address", AddressMissing)
	}
	return nil
}
