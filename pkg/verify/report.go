package verify

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// WriteReports persists the results of a run per spec.md §6: one
// subdirectory per k with a details.csv, top-level robustness.csv and
// stability.csv with one row per k aggregating counts across test
// points, a runtime.txt, and a JSON backup
// of the input configuration.
func WriteReports(dir string, summaries map[int]*Summary, details map[int][]DetailRow, cfg any, elapsed time.Duration) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	ks := sortedSummaryKeys(summaries)

	for _, k := range ks {
		if err := writeDetailCSV(dir, k, details[k]); err != nil {
			return err
		}
	}
	if err := writeRobustnessCSV(dir, summaries, ks); err != nil {
		return err
	}
	if err := writeStabilityCSV(dir, summaries, ks); err != nil {
		return err
	}
	if err := writeRuntime(dir, elapsed); err != nil {
		return err
	}
	return writeConfigBackup(dir, cfg)
}

func sortedSummaryKeys(summaries map[int]*Summary) []int {
	ks := make([]int, 0, len(summaries))
	for k := range summaries {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	return ks
}

func writeDetailCSV(dir string, k int, rows []DetailRow) error {
	kDir := filepath.Join(dir, fmt.Sprintf("k=%d", k))
	if err := os.MkdirAll(kDir, 0o755); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(kDir, "details.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Robust", "Stable", "Classification"}); err != nil {
		return err
	}
	for _, row := range rows {
		labels := make([]string, len(row.Outcome.Labels))
		for i, l := range row.Outcome.Labels {
			labels[i] = strconv.Itoa(l)
		}
		record := []string{
			row.Outcome.Robust.String(),
			row.Outcome.Stable.String(),
			strings.Join(labels, ";"),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Error()
}

func writeRobustnessCSV(dir string, summaries map[int]*Summary, ks []int) error {
	f, err := os.Create(filepath.Join(dir, "robustness.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"k", "robust", "non_robust", "unknown_robust"}); err != nil {
		return err
	}
	for _, k := range ks {
		s := summaries[k]
		record := []string{
			strconv.Itoa(k),
			strconv.Itoa(s.Robust),
			strconv.Itoa(s.NonRobust),
			strconv.Itoa(s.UnknownRobust),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Error()
}

func writeStabilityCSV(dir string, summaries map[int]*Summary, ks []int) error {
	f, err := os.Create(filepath.Join(dir, "stability.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"k", "stable", "unstable", "unknown_stable", "skipped"}); err != nil {
		return err
	}
	for _, k := range ks {
		s := summaries[k]
		record := []string{
			strconv.Itoa(k),
			strconv.Itoa(s.Stable),
			strconv.Itoa(s.Unstable),
			strconv.Itoa(s.UnknownStable),
			strconv.Itoa(s.Skipped),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Error()
}

func writeRuntime(dir string, elapsed time.Duration) error {
	seconds := int(elapsed.Round(time.Second).Seconds())
	return os.WriteFile(filepath.Join(dir, "runtime.txt"), []byte(strconv.Itoa(seconds)+"\n"), 0o644)
}

func writeConfigBackup(dir string, cfg any) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}
