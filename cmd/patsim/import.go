package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/patsim/internal/domain/candidate"
	patentrepo "github.com/kailas-cloud/patsim/internal/repository/patent"
	pqsource "github.com/kailas-cloud/patsim/internal/source/parquet"
)

func importCommand(c *cli.Context) error {
	a, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer a.close()

	if err = a.connectStore(c.Context); err != nil {
		return err
	}
	repo := patentrepo.New(a.store, a.cfg.Storage.KeyPrefix, a.cfg.Storage.MaxPrefixLen)
	src := pqsource.New(c.String("parquet-dir"))

	start := time.Now()
	total, skipped := 0, 0
	err = src.Each(c.Context, func(batch []candidate.Patent) error {
		usable := batch[:0:0]
		for _, p := range batch {
			if p.Record.ID() == "" || len(p.Fingerprint) == 0 {
				skipped++
				continue
			}
			usable = append(usable, p)
		}
		n, importErr := repo.Import(c.Context, usable)
		if importErr != nil {
			return fmt.Errorf("import batch at %d: %w", total, importErr)
		}
		total += n
		a.logger.Debug("Imported batch", zap.Int("records", n), zap.Int("total", total))
		return nil
	})
	if err != nil {
		return err
	}

	a.logger.Info("Import completed",
		zap.String("dir", c.String("parquet-dir")),
		zap.Int("records", total),
		zap.Int("skipped", skipped),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
