// Package main provides refconvert, a converter that turns published WHO
// and CDC growth reference releases (CSV) into the JSON tables the refdata
// package embeds.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/percentile-data/growth.report/internal/refdata"
	"github.com/percentile-data/growth.report/internal/security"
)

var (
	outDir    = flag.String("out", "internal/refdata/data", "Output directory for converted JSON tables")
	sourceArg = flag.String("source", "", "Source the CSV files come from: who or cdc")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -source who|cdc [options] file.csv [file.csv ...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Growth Reference Table Converter\n\n")
		fmt.Fprintf(os.Stderr, "Converts published WHO and CDC reference releases into the JSON tables\n")
		fmt.Fprintf(os.Stderr, "embedded by the server:\n")
		fmt.Fprintf(os.Stderr, "  - the metric is read from the file name, the sex from the file name (WHO)\n")
		fmt.Fprintf(os.Stderr, "    or the Sex column (CDC)\n")
		fmt.Fprintf(os.Stderr, "  - week-indexed infancy releases are moved onto the month axis\n")
		fmt.Fprintf(os.Stderr, "  - releases covering the same table are merged, later files winning overlaps\n")
		fmt.Fprintf(os.Stderr, "  - output files follow the {metric}_{sex}_{source}.json convention\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -source who wfa_boys_0-to-13-weeks.csv wfa_boys_0-to-5-years.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -source cdc -out ./tables wtageinf.csv lenageinf.csv\n", os.Args[0])
	}
	flag.Parse()

	if *sourceArg == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	source, err := refdata.ParseSource(*sourceArg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if source == refdata.SourceFenton {
		log.Fatal("fenton tables are maintained by hand, not converted")
	}

	tables := map[tableKey][]refdata.RawRow{}
	for _, path := range flag.Args() {
		if err := convertFile(path, source, tables); err != nil {
			log.Fatalf("failed to convert %s: %v", path, err)
		}
	}
	if len(tables) == 0 {
		log.Fatal("no tables produced")
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	for key, rows := range tables {
		name := security.SanitizeFilename(fmt.Sprintf("%s_%s_%s.json", key.metric, key.sex, source))
		outPath := filepath.Join(*outDir, name)
		if err := security.ValidatePathWithinDirectory(outPath, *outDir); err != nil {
			log.Fatalf("refusing to write %s: %v", outPath, err)
		}

		combined := combineRows(rows)
		data, err := json.MarshalIndent(combined, "", " ")
		if err != nil {
			log.Fatalf("failed to encode %s: %v", name, err)
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			log.Fatalf("failed to write %s: %v", outPath, err)
		}
		log.Printf("wrote %s (%d rows)", outPath, len(combined))
	}
}
