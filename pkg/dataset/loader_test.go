package dataset

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestCSVLoaderBasic(t *testing.T) {
	path := writeTemp(t, "train.csv", "0,0.0,0.0\n0,1.0,0.0\n1,0.0,1.0\n1,1.0,1.0\n")

	ds, err := CSVLoader{}.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ds.Points) != 4 {
		t.Fatalf("got %d points, want 4", len(ds.Points))
	}
	if !reflect.DeepEqual(ds.Classes, []int{0, 1}) {
		t.Errorf("classes = %v, want [0 1]", ds.Classes)
	}
	if !reflect.DeepEqual(ds.Points[2], []float64{0.0, 1.0}) {
		t.Errorf("point 2 = %v, want [0 1]", ds.Points[2])
	}
}

func TestCSVLoaderMalformedRow(t *testing.T) {
	path := writeTemp(t, "bad.csv", "0,1.0,2.0\n1,notanumber,2.0\n")

	_, err := CSVLoader{}.Load(path)
	if err == nil {
		t.Fatal("expected a data error for the malformed row")
	}
}

func TestCSVLoaderEmpty(t *testing.T) {
	path := writeTemp(t, "empty.csv", "")

	_, err := CSVLoader{}.Load(path)
	if err == nil {
		t.Fatal("expected a data error for an empty dataset")
	}
}

func TestLibSVMLoaderBasic(t *testing.T) {
	path := writeTemp(t, "train.libsvm", "+1 1:0.5 3:1.0\n-1 2:2.0\n")

	ds, err := LibSVMLoader{}.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ds.Points) != 2 {
		t.Fatalf("got %d points, want 2", len(ds.Points))
	}
	if len(ds.Points[0]) != 3 {
		t.Fatalf("dense width = %d, want 3 (max index seen)", len(ds.Points[0]))
	}
	want := []float64{0.5, 0, 1.0}
	if !reflect.DeepEqual(ds.Points[0], want) {
		t.Errorf("point 0 = %v, want %v", ds.Points[0], want)
	}
}

func TestLibSVMLoaderMalformedToken(t *testing.T) {
	path := writeTemp(t, "bad.libsvm", "1 1-0.5\n")

	_, err := LibSVMLoader{}.Load(path)
	if err == nil {
		t.Fatal("expected a data error for the malformed feature token")
	}
}

func TestLoaderFactory(t *testing.T) {
	if _, err := LoaderFactory("csv"); err != nil {
		t.Errorf("csv: %v", err)
	}
	if _, err := LoaderFactory("libsvm"); err != nil {
		t.Errorf("libsvm: %v", err)
	}
	if _, err := LoaderFactory("parquet"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestInferRanges(t *testing.T) {
	points := [][]float64{{0, 5}, {2, 3}, {-1, 9}}
	ranges := inferRanges(points)
	want := []FeatureRange{{Lo: -1, Hi: 2}, {Lo: 3, Hi: 9}}
	if !reflect.DeepEqual(ranges, want) {
		t.Errorf("ranges = %v, want %v", ranges, want)
	}
}
