// Package cleaner removes generated content.
package cleaner

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/storage"
	"github.com/tigerroll/eventgen/pkg/generator/core/config"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/repository"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// Slugs of the default terms attached to generated events.
const (
	generatedCategorySlug = "generated"
	automatedTagSlug      = "automated"
)

const generatedFilePrefix = "eventgen-"

// Report counts what a clear removed.
type Report struct {
	Records map[model.EntityKind]int64
	Terms   int64
	Files   int
}

func newReport() Report {
	return Report{Records: map[model.EntityKind]int64{}}
}

// Cleaner deletes records, terms and stored upload files.
type Cleaner struct {
	repo       repository.ContentRepository
	storage    storage.StorageConnectionResolver
	storageRef string
	bucket     string
}

// NewCleaner creates a Cleaner.
func NewCleaner(cfg *config.Config, repo repository.ContentRepository, resolver storage.StorageConnectionResolver) *Cleaner {
	return &Cleaner{
		repo:       repo,
		storage:    resolver,
		storageRef: cfg.EventGen.Infrastructure.StorageRef,
		bucket:     cfg.EventGen.Generator.UploadBucket,
	}
}

// ClearGenerated removes generated venues, organizers, events and uploads,
// the files behind those uploads along with orphaned generated files, and the
// default category and tag.
func (c *Cleaner) ClearGenerated(ctx context.Context) (Report, error) {
	report := newReport()
	generated := model.Filter{GeneratedOnly: true}

	files, err := c.removeUploadFiles(ctx, generated)
	report.Files = files
	if err != nil {
		return report, err
	}
	for _, kind := range []model.EntityKind{model.KindVenue, model.KindOrganizer, model.KindEvent, model.KindUpload} {
		n, err := c.repo.Delete(ctx, kind, generated)
		if err != nil {
			return report, err
		}
		report.Records[kind] = n
	}
	for _, term := range []struct{ taxonomy, slug string }{
		{model.TaxonomyEventCategory, generatedCategorySlug},
		{model.TaxonomyTag, automatedTagSlug},
	} {
		n, err := c.repo.DeleteTerms(ctx, term.taxonomy, term.slug)
		if err != nil {
			return report, err
		}
		report.Terms += n
	}
	c.log("generated", report)
	return report, nil
}

// ClearAll removes every venue, organizer and event, and every event category.
func (c *Cleaner) ClearAll(ctx context.Context) (Report, error) {
	report := newReport()
	for _, kind := range []model.EntityKind{model.KindVenue, model.KindOrganizer, model.KindEvent} {
		n, err := c.repo.Delete(ctx, kind, model.Filter{})
		if err != nil {
			return report, err
		}
		report.Records[kind] = n
	}
	n, err := c.repo.DeleteTerms(ctx, model.TaxonomyEventCategory, "")
	if err != nil {
		return report, err
	}
	report.Terms = n
	c.log("all", report)
	return report, nil
}

// removeUploadFiles deletes the stored files of the uploads matching filter,
// then sweeps generated files no upload record points at any more. Files of
// uploads outside filter are left alone. Every file is attempted; failures
// are reported together.
func (c *Cleaner) removeUploadFiles(ctx context.Context, filter model.Filter) (int, error) {
	const op = "Cleaner.removeUploadFiles"

	conn, err := c.storage.ResolveStorageConnection(ctx, c.storageRef)
	if err != nil {
		return 0, exception.NewStorageWriteError(op, fmt.Sprintf("failed to resolve storage '%s'", c.storageRef), err)
	}
	matched, err := c.repo.ListIDs(ctx, model.KindUpload, filter)
	if err != nil {
		return 0, err
	}
	all, err := c.repo.ListIDs(ctx, model.KindUpload, model.Filter{})
	if err != nil {
		return 0, err
	}
	remove := make(map[int64]bool, len(matched))
	for _, id := range matched {
		remove[id] = true
	}

	var merr *multierror.Error
	removed := 0
	known := make(map[string]bool, len(all))
	for _, id := range all {
		name, err := c.repo.ReadMetaValue(ctx, id, model.MetaAttachedFile)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		if name == "" {
			continue
		}
		known[name] = true
		if !remove[id] {
			continue
		}
		if err := conn.DeleteObject(ctx, c.bucket, name); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("upload %d: %w", id, err))
			continue
		}
		removed++
	}

	var orphans []string
	err = conn.ListObjects(ctx, c.bucket, "", func(name string) error {
		if !known[name] && isGeneratedFile(name) {
			orphans = append(orphans, name)
		}
		return nil
	})
	if err != nil {
		merr = multierror.Append(merr, err)
	}
	for _, name := range orphans {
		if err := conn.DeleteObject(ctx, c.bucket, name); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("orphaned file '%s': %w", name, err))
			continue
		}
		logger.Debugf("Removed orphaned upload file '%s'.", name)
		removed++
	}

	if err := merr.ErrorOrNil(); err != nil {
		return removed, exception.NewStorageWriteError(op, "failed to remove upload files", err)
	}
	return removed, nil
}

// isGeneratedFile reports whether name follows the upload creator's naming.
func isGeneratedFile(name string) bool {
	base := path.Base(name)
	return strings.HasPrefix(base, generatedFilePrefix) && strings.HasSuffix(base, ".png")
}

func (c *Cleaner) log(scope string, r Report) {
	logger.WithFields(logger.Fields{
		"scope":      scope,
		"venues":     r.Records[model.KindVenue],
		"organizers": r.Records[model.KindOrganizer],
		"events":     r.Records[model.KindEvent],
		"uploads":    r.Records[model.KindUpload],
		"terms":      r.Terms,
		"files":      r.Files,
	}).Info("Content cleared.")
}

// Module provides the Cleaner.
var Module = fx.Provide(NewCleaner)
