package table

import (
	"fmt"
	"path/filepath"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

func stringSchema(cols []string) *arrow.Schema {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c, Type: arrow.BinaryTypes.String}
	}
	return arrow.NewSchema(fields, nil)
}

var (
	AnimationSchema = stringSchema(AnimationHeader)
	AssetSchema     = stringSchema(AssetHeader)
)

type arrowFile struct {
	f      afero.File
	w      *ipc.FileWriter
	schema *arrow.Schema
}

// ArrowWriter writes the same tables as CSVWriter as Arrow IPC files, one
// record batch per Write call.
type ArrowWriter struct {
	mem   memory.Allocator
	files map[string]*arrowFile
}

// NewArrowWriter creates the .arrow files under dir.
func NewArrowWriter(fsys afero.Fs, dir string, mem memory.Allocator) (*ArrowWriter, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	aw := &ArrowWriter{mem: mem, files: make(map[string]*arrowFile)}
	open := func(name string, schema *arrow.Schema) error {
		f, err := fsys.Create(filepath.Join(dir, name+".arrow"))
		if err != nil {
			return err
		}
		w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
		if err != nil {
			f.Close()
			return fmt.Errorf("arrow writer for %s: %w", name, err)
		}
		aw.files[name] = &arrowFile{f: f, w: w, schema: schema}
		return nil
	}

	if err := open(AnimationTable, AnimationSchema); err != nil {
		return nil, multierr.Append(err, aw.Close())
	}
	for _, name := range AssetTables() {
		if err := open(string(name), AssetSchema); err != nil {
			return nil, multierr.Append(err, aw.Close())
		}
	}
	return aw, nil
}

func (aw *ArrowWriter) Write(t *Tables) error {
	anim := make([][]string, 0, len(t.Animations))
	for _, r := range t.Animations {
		anim = append(anim, r.Strings())
	}
	if err := aw.writeBatch(AnimationTable, anim); err != nil {
		return err
	}

	for _, name := range AssetTables() {
		rows := make([][]string, 0, len(t.Assets[name]))
		for _, r := range t.Assets[name] {
			rows = append(rows, r.Strings())
		}
		if err := aw.writeBatch(string(name), rows); err != nil {
			return err
		}
	}
	return nil
}

func (aw *ArrowWriter) writeBatch(name string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	af := aw.files[name]

	b := array.NewRecordBuilder(aw.mem, af.schema)
	defer b.Release()
	for _, row := range rows {
		for i, v := range row {
			b.Field(i).(*array.StringBuilder).Append(v)
		}
	}

	rec := b.NewRecord()
	defer rec.Release()
	if err := af.w.Write(rec); err != nil {
		return fmt.Errorf("write %s batch: %w", name, err)
	}
	return nil
}

func (aw *ArrowWriter) Close() error {
	var err error
	for _, af := range aw.files {
		err = multierr.Combine(err, af.w.Close(), af.f.Close())
	}
	return err
}
