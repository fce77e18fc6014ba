package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/patsim/internal/domain/patent"
	"github.com/kailas-cloud/patsim/internal/extract/xmldoc"
	"github.com/kailas-cloud/patsim/internal/report"
	similaruc "github.com/kailas-cloud/patsim/internal/usecase/similar"
)

func searchCommand(c *cli.Context) error {
	a, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer a.close()

	doc, err := xmldoc.ParseFile(c.String("xml"))
	if err != nil {
		return fmt.Errorf("read reference: %w", err)
	}
	if err = a.buildSearch(c.Context); err != nil {
		return err
	}

	out, err := a.similar.Search(c.Context, queryFromFlags(c, doc))
	if err != nil {
		return fmt.Errorf("search %s: %w", doc.PublicationNumber(), err)
	}

	switch out.Status {
	case similaruc.StatusEmptyPredicate:
		a.logger.Warn("Reference has no usable classification codes",
			zap.String("publication_number", doc.PublicationNumber()))
	case similaruc.StatusNoCandidates:
		a.logger.Warn("No similar documents found",
			zap.String("publication_number", doc.PublicationNumber()))
	}

	if err = writeResults(c, out); err != nil {
		return err
	}
	if n := c.Int("preview"); n > 0 && len(out.Hits()) > 0 {
		if err = report.WritePreview(c.App.ErrWriter, out.Hits(), n); err != nil {
			return err
		}
	}
	return nil
}

// queryFromFlags maps explicitly set flags onto query overrides.
func queryFromFlags(c *cli.Context, doc patent.Document) similaruc.Query {
	q := similaruc.Query{Document: doc}
	if c.IsSet("k") {
		k := c.Int("k")
		q.K = &k
	}
	if c.IsSet("min-score") {
		s := c.Float64("min-score")
		q.MinScore = &s
	}
	if c.IsSet("prefix-len") {
		p := c.Int("prefix-len")
		q.PrefixLen = &p
	}
	return q
}

func writeResults(c *cli.Context, out similaruc.Outcome) error {
	var w io.Writer = c.App.Writer
	if path := c.String("out"); path != "" {
		f, err := os.Create(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	if err := report.WriteCSV(w, out.Hits(), report.CSVOptions{BOM: c.Bool("bom")}); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
