package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"

	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// Writer persists row sets. Write may be called once per package.
type Writer interface {
	Write(t *Tables) error
	Close() error
}

type csvFile struct {
	f afero.File
	w *csv.Writer
}

// CSVWriter appends rows to animation.csv and one CSV per asset table.
type CSVWriter struct {
	files map[string]*csvFile
}

// NewCSVWriter creates the CSV files under dir and writes their headers.
func NewCSVWriter(fsys afero.Fs, dir string) (*CSVWriter, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	cw := &CSVWriter{files: make(map[string]*csvFile)}
	open := func(name string, header []string) error {
		f, err := fsys.Create(filepath.Join(dir, name+".csv"))
		if err != nil {
			return err
		}
		w := csv.NewWriter(f)
		cw.files[name] = &csvFile{f: f, w: w}
		return w.Write(header)
	}

	if err := open(AnimationTable, AnimationHeader); err != nil {
		return nil, multierr.Append(err, cw.Close())
	}
	for _, name := range AssetTables() {
		if err := open(string(name), AssetHeader); err != nil {
			return nil, multierr.Append(err, cw.Close())
		}
	}
	return cw, nil
}

func (cw *CSVWriter) Write(t *Tables) error {
	anim := cw.files[AnimationTable].w
	for _, r := range t.Animations {
		if err := anim.Write(r.Strings()); err != nil {
			return err
		}
	}
	for _, name := range AssetTables() {
		w := cw.files[string(name)].w
		for _, r := range t.Assets[name] {
			if err := w.Write(r.Strings()); err != nil {
				return err
			}
		}
	}

	var err error
	for _, f := range cw.files {
		f.w.Flush()
		err = multierr.Append(err, f.w.Error())
	}
	return err
}

func (cw *CSVWriter) Close() error {
	var err error
	for _, f := range cw.files {
		f.w.Flush()
		err = multierr.Combine(err, f.w.Error(), f.f.Close())
	}
	return err
}

// ReadAssets reads an asset table written by CSVWriter.
func ReadAssets(r io.Reader) ([]AssetRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(AssetHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range AssetHeader {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected column %d: got %q, want %q", i, header[i], col)
		}
	}

	var rows []AssetRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, AssetRow{
			PackageName: rec[0],
			PartName:    rec[1],
			Record: asset.Record{
				ID:       rec[2],
				ParentID: rec[3],
				Name:     rec[4],
				Type:     asset.Type(rec[5]),
				Value:    asset.ParseValue(rec[6]),
			},
		})
	}
	return rows, nil
}

// ReadAssetsFile opens path on fsys and reads it with ReadAssets.
func ReadAssetsFile(fsys afero.Fs, path string) ([]AssetRow, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAssets(f)
}
