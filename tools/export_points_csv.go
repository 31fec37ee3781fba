package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/store"
)

func main() {
	var (
		dbPath  = flag.String("db", "data/stream-anomaly.db", "BoltDB path")
		outPath = flag.String("out", "points.csv", "output CSV file")
	)
	flag.Parse()

	st, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	f, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"ts", "time_index", "value", "detectors_flagging"}); err != nil {
		fmt.Fprintf(os.Stderr, "write header: %v\n", err)
		os.Exit(1)
	}

	n := 0
	err = st.IterateSamples(func(sm store.Sample) bool {
		flagged := make([]string, 0, len(sm.Verdicts))
		for name, anomalous := range sm.Verdicts {
			if anomalous {
				flagged = append(flagged, name)
			}
		}
		sort.Strings(flagged)
		row := []string{
			sm.When.UTC().Format(time.RFC3339),
			strconv.FormatFloat(sm.TimeIndex, 'f', -1, 64),
			strconv.FormatFloat(sm.Value, 'f', -1, 64),
			strings.Join(flagged, ";"),
		}
		if err := w.Write(row); err != nil {
			fmt.Fprintf(os.Stderr, "write row: %v\n", err)
			return false
		}
		n++
		return true
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "iterate samples: %v\n", err)
		os.Exit(1)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "finalize csv: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Exported %d points to %s\n", n, *outPath)
}
