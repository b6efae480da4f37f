package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gnemet/SlideGraph/internal/pipeline"
	"github.com/spf13/afero"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run ./scripts/context_extractor <pptx_path>")
	}
	if err := run(context.Background(), afero.NewOsFs(), os.Args[1], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// run extracts one package and writes the result to w as indented JSON.
func run(ctx context.Context, fsys afero.Fs, path string, w io.Writer) error {
	p := pipeline.New(fsys, nil, nil, nil, pipeline.Options{})
	res, err := p.ProcessPackage(ctx, path)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
