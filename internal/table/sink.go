package table

import (
	"context"

	"github.com/gnemet/SlideGraph/internal/asset"
	"go.uber.org/multierr"
)

// Sink feeds every package result to a set of writers.
type Sink struct {
	writers []Writer
}

func NewSink(writers ...Writer) *Sink {
	return &Sink{writers: writers}
}

func (s *Sink) Consume(_ context.Context, res *asset.PackageResult) error {
	t := FromPackage(res)
	var err error
	for _, w := range s.writers {
		err = multierr.Append(err, w.Write(t))
	}
	return err
}

func (s *Sink) Close() error {
	var err error
	for _, w := range s.writers {
		err = multierr.Append(err, w.Close())
	}
	return err
}
