package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/listenupapp/liveplan/internal/aggregate"
)

// WriteCSV mirrors one table as CSV with a header row.
func WriteCSV(path string, t *aggregate.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Header()); err != nil {
		return err
	}
	if err := w.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return f.Close()
}
