package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/raster-pipeline/internal/catalog"
	"github.com/ironsheep/raster-pipeline/internal/catapi"
	"github.com/ironsheep/raster-pipeline/internal/imaging"
	"github.com/ironsheep/raster-pipeline/internal/storage"
)

// Output subdirectories below Request.OutputDir.
const (
	OriginalsDir = "originals"
	ProcessedDir = "processed"
)

// Source is the acquisition collaborator.
type Source interface {
	Search(ctx context.Context, limit int) ([]catapi.Record, error)
	Fetch(ctx context.Context, url string) (imaging.Array, error)
}

// Sink is the persistence collaborator.
type Sink interface {
	SaveAsync(ctx context.Context, img *imaging.Image, dir string) <-chan storage.SaveResult
}

// Recorder receives an entry for every persisted file.
type Recorder interface {
	Record(ctx context.Context, e catalog.Entry) error
}

// Pipeline wires a source, a transform pool and a sink together.
type Pipeline struct {
	source       Source
	sink         Sink
	recorder     Recorder
	logger       *logrus.Logger
	workers      int
	persistLimit int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder records every saved file, for example in the catalog.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithWorkers sets the transform pool size. n <= 0 means one per CPU.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithPersistLimit caps the number of concurrent writes. n <= 0 means no cap.
func WithPersistLimit(n int) Option {
	return func(p *Pipeline) { p.persistLimit = n }
}

// New creates a pipeline.
func New(source Source, sink Sink, logger *logrus.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{source: source, sink: sink, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Request describes one batch.
type Request struct {
	// Count is the number of images to acquire.
	Count int

	// Op is the transformation applied to every image.
	Op Op

	// OutputDir is the batch directory, resolved by the Sink. Results are
	// written to OutputDir/processed and originals to OutputDir/originals.
	OutputDir string

	// SaveOriginals also persists every fetched image unmodified.
	SaveOriginals bool
}

// fetched is an acquired image with the record it came from.
type fetched struct {
	record catapi.Record
	image  *imaging.Image
}

// Run executes one batch. It returns an error only for requests that cannot
// start; per-item failures are reported in the Report.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	if req.Count < 1 {
		return nil, fmt.Errorf("%w: count %d", ErrInvalidRequest, req.Count)
	}
	if err := Validate(req.Op); err != nil {
		return nil, err
	}

	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Op: req.Op.Name(), Requested: req.Count}
	log := p.logger.WithFields(logrus.Fields{"run_id": report.RunID, "op": report.Op})
	log.WithField("stage", StageRequested.String()).Infof("Processing %d images", req.Count)

	items := p.fetch(ctx, req.Count, report, log)
	report.Fetched = len(items)
	if len(items) == 0 {
		report.Empty = true
		report.Elapsed = time.Since(start)
		log.Warn("No images fetched, nothing to process")
		report.Log(p.logger)
		return report, nil
	}

	originalsDone := make(chan []storage.SaveResult, 1)
	if req.SaveOriginals {
		go func() {
			originals := make([]*imaging.Image, len(items))
			for i, it := range items {
				originals[i] = it.image
			}
			originalsDone <- p.persist(ctx, originals, filepath.Join(req.OutputDir, OriginalsDir))
		}()
	} else {
		originalsDone <- nil
	}

	processed := p.transform(req.Op, items, report, log)

	log.WithField("stage", StagePersisting.String()).Debugf("Saving %d images", len(processed))
	byIndex := make(map[int]fetched, len(items))
	for _, it := range items {
		byIndex[it.image.Index()] = it
	}

	results := p.persist(ctx, processed, filepath.Join(req.OutputDir, ProcessedDir))
	for i, res := range results {
		img := processed[i]
		src := byIndex[img.Index()]
		if res.Err != nil {
			report.PersistFailed++
			se := report.fail(StagePersisting, img.Index(), src.record.ID, res.Err)
			log.WithField("stage", StagePersisting.String()).WithError(se).Warn("Failed to save image")
			continue
		}
		report.Persisted++
		report.Items = append(report.Items, Outcome{Index: img.Index(), ID: src.record.ID, Name: img.Name(), Path: res.Path})
		p.record(ctx, report.RunID, src.record.ID, img, res.Path, catalog.StageProcessed, log)
	}

	for i, res := range <-originalsDone {
		img := items[i].image
		if res.Err != nil {
			report.PersistFailed++
			se := report.fail(StagePersisting, img.Index(), items[i].record.ID, res.Err)
			log.WithField("stage", StagePersisting.String()).WithError(se).Warn("Failed to save original")
			continue
		}
		report.OriginalsSaved++
		p.record(ctx, report.RunID, items[i].record.ID, img, res.Path, catalog.StageOriginal, log)
	}

	report.Elapsed = time.Since(start)
	report.Log(p.logger)
	return report, nil
}

// fetch searches the source and downloads every record concurrently.
// Indices are assigned before any download starts and each download writes
// only its own slot, so the returned images are in index order.
func (p *Pipeline) fetch(ctx context.Context, count int, report *Report, log *logrus.Entry) []fetched {
	log = log.WithField("stage", StageFetching.String())

	records, err := p.source.Search(ctx, count)
	if err != nil {
		se := report.fail(StageFetching, 0, "", err)
		log.WithError(se).Error("Image search failed")
		return nil
	}
	log.Debugf("Search returned %d records", len(records))

	images := make([]*imaging.Image, len(records))
	errs := make([]error, len(records))

	var g errgroup.Group
	for i, rec := range records {
		index := i + 1
		g.Go(func() error {
			a, err := p.source.Fetch(ctx, rec.URL)
			if err != nil {
				errs[i] = err
				return nil
			}
			images[i], errs[i] = imaging.New(imaging.Info{
				Index:  index,
				Name:   rec.ID,
				Ext:    rec.Ext,
				Origin: rec.URL,
				Tags:   rec.Breeds,
			}, a)
			return nil
		})
	}
	_ = g.Wait()

	var out []fetched
	for i, rec := range records {
		if errs[i] != nil {
			report.Skipped++
			se := report.fail(StageFetching, i+1, rec.ID, errs[i])
			log.WithFields(logrus.Fields{"index": i + 1, "state": StageSkipped.String()}).WithError(se).Warn("Skipping image")
			continue
		}
		out = append(out, fetched{record: rec, image: images[i]})
	}
	return out
}

// transform runs op over every item on a fresh worker pool and rebuilds
// the entities from the index-sorted results.
func (p *Pipeline) transform(op Op, items []fetched, report *Report, log *logrus.Entry) []*imaging.Image {
	log = log.WithField("stage", StageTransforming.String())

	pool := NewPool(p.workers)
	defer pool.Close()

	tasks := make([]Task, len(items))
	byIndex := make(map[int]fetched, len(items))
	for i, it := range items {
		tasks[i] = Task{Index: it.image.Index(), Op: op, Buffer: it.image.Array()}
		byIndex[it.image.Index()] = it
	}
	log.Debugf("Dispatching %d tasks to %d workers", len(tasks), pool.NumWorkers())

	var out []*imaging.Image
	for _, res := range pool.Process(tasks) {
		src := byIndex[res.Index]
		err := res.Err
		var img *imaging.Image
		if err == nil {
			img, err = src.image.Derive(res.Suffix, res.Buffer)
		}
		if err != nil {
			report.TransformFailed++
			se := report.fail(StageTransforming, res.Index, src.record.ID, err)
			log.WithField("index", res.Index).WithError(se).Warn("Transform failed")
			continue
		}
		report.Transformed++
		out = append(out, img)
	}
	return out
}

// persist saves every image through the sink and returns the results in
// the order of images. At most persistLimit saves are in flight when a
// limit is configured.
func (p *Pipeline) persist(ctx context.Context, images []*imaging.Image, dir string) []storage.SaveResult {
	results := make([]storage.SaveResult, len(images))

	var g errgroup.Group
	if p.persistLimit > 0 {
		g.SetLimit(p.persistLimit)
	}
	for i, img := range images {
		g.Go(func() error {
			results[i] = <-p.sink.SaveAsync(ctx, img, dir)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Pipeline) record(ctx context.Context, runID, sourceID string, img *imaging.Image, path, stage string, log *logrus.Entry) {
	if p.recorder == nil {
		return
	}
	err := p.recorder.Record(ctx, catalog.Entry{
		RunID:    runID,
		Index:    img.Index(),
		SourceID: sourceID,
		Name:     img.Name(),
		Ext:      img.Ext(),
		Path:     path,
		Origin:   img.Origin(),
		Kind:     img.Kind().String(),
		Stage:    stage,
		Tags:     img.Tags(),
	})
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("Failed to record image in catalog")
	}
}
