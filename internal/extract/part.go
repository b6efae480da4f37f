package extract

import (
	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/gnemet/SlideGraph/internal/pptx"
	"go.uber.org/zap"
)

// Part runs every extraction over one parsed part.
func (e *Extractor) Part(part *pptx.Part) asset.PartResult {
	res := asset.PartResult{
		Name:        part.Name,
		Path:        part.Path,
		Category:    part.Category,
		Table:       part.Table,
		Behaviors:   e.Behaviors(part.Root),
		Transitions: e.Transitions(part.Root),
		Assets:      e.assets(part.Root, part.Rels, e.log.With(zap.String("part", part.Path))),
	}
	res.TimingCount, res.BehaviorCount = e.Consistency(part.Root)

	if !res.Consistent() {
		e.log.Warn("animation count mismatch",
			zap.String("part", part.Path),
			zap.Int("behaviors", len(res.Behaviors)),
			zap.Int("transitions", len(res.Transitions)),
			zap.Int("timing_elements", res.TimingCount),
			zap.Int("behavior_elements", res.BehaviorCount),
		)
	}
	return res
}
