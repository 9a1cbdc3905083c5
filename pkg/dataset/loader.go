package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/abstract-ml/knave/pkg/knaveerr"
)

// Loader loads a Dataset from a file path, per spec §6's
// "dataset_format" configuration surface.
type Loader interface {
	Load(path string) (*Dataset, error)
}

// LoaderFactory resolves a declared dataset_format to its Loader.
func LoaderFactory(format string) (Loader, error) {
	switch format {
	case "csv":
		return CSVLoader{}, nil
	case "libsvm":
		return LibSVMLoader{}, nil
	default:
		return nil, knaveerr.NewConfigError("dataset_format", fmt.Sprintf("unknown format %q (want csv or libsvm)", format))
	}
}

// CSVLoader reads label-in-column-0 CSV files: every remaining column
// is a feature, in declared order.
type CSVLoader struct{}

// Load implements Loader.
func (CSVLoader) Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, knaveerr.NewDataError(path, err.Error())
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var points [][]float64
	var labels []int
	lineNo := 0
	for {
		lineNo++
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, knaveerr.NewDataError(path, fmt.Sprintf("line %d: %s", lineNo, err))
		}
		if len(record) < 2 {
			return nil, knaveerr.NewDataError(path, fmt.Sprintf("line %d: need a label and at least one feature", lineNo))
		}

		label, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, knaveerr.NewDataError(path, fmt.Sprintf("line %d: invalid label %q", lineNo, record[0]))
		}

		point := make([]float64, len(record)-1)
		for i, field := range record[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, knaveerr.NewDataError(path, fmt.Sprintf("line %d: invalid feature %q", lineNo, field))
			}
			point[i] = v
		}

		labels = append(labels, label)
		points = append(points, point)
	}

	if len(points) == 0 {
		return nil, knaveerr.NewDataError(path, "empty dataset")
	}

	return New(points, labels), nil
}

// LibSVMLoader reads sparse LIBSVM/SVMLight files: `label idx:value
// idx:value ...`, 1-based indices. Dimension isn't declared, so
// loading is a two-pass process — the first pass finds the maximum
// index seen, the second expands every row to that width.
type LibSVMLoader struct{}

// Load implements Loader.
func (LibSVMLoader) Load(path string) (*Dataset, error) {
	rows, maxIdx, err := scanLibSVM(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, knaveerr.NewDataError(path, "empty dataset")
	}

	points := make([][]float64, len(rows))
	labels := make([]int, len(rows))
	for i, row := range rows {
		point := make([]float64, maxIdx)
		for _, pair := range row.pairs {
			point[pair.index-1] = pair.value
		}
		points[i] = point
		labels[i] = row.label
	}

	return New(points, labels), nil
}

type libsvmPair struct {
	index int
	value float64
}

type libsvmRow struct {
	label int
	pairs []libsvmPair
}

func scanLibSVM(path string) ([]libsvmRow, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, knaveerr.NewDataError(path, err.Error())
	}
	defer f.Close()

	var rows []libsvmRow
	maxIdx := 0
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		label, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, 0, knaveerr.NewDataError(path, fmt.Sprintf("line %d: invalid label %q", lineNo, fields[0]))
		}

		row := libsvmRow{label: label}
		for _, tok := range fields[1:] {
			idxStr, valStr, ok := strings.Cut(tok, ":")
			if !ok {
				return nil, 0, knaveerr.NewDataError(path, fmt.Sprintf("line %d: malformed feature token %q", lineNo, tok))
			}
			idx, err := strconv.Atoi(idxStr)
			if err != nil || idx < 1 {
				return nil, 0, knaveerr.NewDataError(path, fmt.Sprintf("line %d: invalid feature index %q", lineNo, idxStr))
			}
			val, err := strconv.ParseFloat(valStr, 64)
			if err != nil {
				return nil, 0, knaveerr.NewDataError(path, fmt.Sprintf("line %d: invalid feature value %q", lineNo, valStr))
			}
			if idx > maxIdx {
				maxIdx = idx
			}
			row.pairs = append(row.pairs, libsvmPair{index: idx, value: val})
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, knaveerr.NewDataError(path, err.Error())
	}
	return rows, maxIdx, nil
}
