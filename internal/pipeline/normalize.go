package pipeline

import (
	"context"
	"errors"

	"github.com/JonMunkholm/storefront/internal/core"
	"github.com/JonMunkholm/storefront/internal/merge"
)

// Normalize merges every partition into the normalized dataset.
func (p *Pipeline) Normalize(ctx context.Context) (report *merge.Report, err error) {
	r := p.begin(ctx, CommandNormalize)
	defer func() { p.end(r, report, err) }()

	release, err := p.lock(r)
	if err != nil {
		return nil, err
	}
	defer release()

	err = p.stage(r, StageMerge, core.KindPersist, func(ctx context.Context) (string, error) {
		rep, err := p.engine.Run(ctx, p.cfg.Paths.Partitions(), p.cfg.Paths.OutputDir)
		report = rep
		if err != nil {
			if errors.Is(err, core.ErrMissingInput) {
				err = core.Fail(core.KindMissingInput, StageMerge, err)
			}
			return "", err
		}
		p.observeMerge(rep)
		return rep.Summary(), nil
	})
	return report, err
}

func (p *Pipeline) observeMerge(r *merge.Report) {
	p.metrics.AddDropped("missing_required", r.DroppedMissingRequired)
	p.metrics.AddDropped("duplicate", r.Duplicates)
	p.metrics.AddDropped("out_of_range", r.OutOfRange)
	p.metrics.AddDropped("missing_coordinates", r.MissingCoordinates)
	p.metrics.SetZoneRows(r.Zones)
}
