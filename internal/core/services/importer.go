package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
	"github.com/custodia-labs/north/internal/core/ports/driving"
	"github.com/custodia-labs/north/internal/logger"
)

// Ensure DirectoryImporter implements the interface.
var _ driving.DirectoryImporter = (*DirectoryImporter)(nil)

// DirectoryImporter loads a vault of markdown notes into the company
// directory and work log collections.
type DirectoryImporter struct {
	loader  driven.VaultLoader
	backend driven.SearchBackend
}

// NewDirectoryImporter creates an importer over the loader and backend.
func NewDirectoryImporter(loader driven.VaultLoader, backend driven.SearchBackend) *DirectoryImporter {
	return &DirectoryImporter{loader: loader, backend: backend}
}

// Import reads the vault at dir and upserts every parsed note. Keys
// are derived from the note contents, so re-importing an edited vault
// overwrites entries instead of duplicating them.
func (i *DirectoryImporter) Import(ctx context.Context, dir string) (*driving.ImportReport, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: empty vault path", domain.ErrInvalidInput)
	}

	contents, err := i.loader.Load(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("load vault: %w", err)
	}

	report := &driving.ImportReport{Skipped: contents.Skipped}

	companies := i.backend.Companies()
	for _, company := range contents.Companies {
		if company.Name == "" {
			report.Skipped++
			continue
		}
		if err := companies.Upsert(ctx, slug(company.Name), company); err != nil {
			return nil, fmt.Errorf("import company %s: %w", company.Name, err)
		}
		report.Companies++
	}

	worklog := i.backend.WorkLog()
	for _, entry := range contents.WorkLog {
		if entry.Company == "" && entry.Project == "" {
			report.Skipped++
			continue
		}
		if err := worklog.Upsert(ctx, workEntryID(entry), entry); err != nil {
			return nil, fmt.Errorf("import work entry for %s: %w", entry.Company, err)
		}
		report.WorkEntries++
	}

	logger.Info("Imported %d companies, %d work entries (%d skipped)",
		report.Companies, report.WorkEntries, report.Skipped)
	return report, nil
}

var nonSlugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slug turns a name into a stable directory key.
func slug(name string) string {
	return strings.Trim(nonSlugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// workEntryID derives a stable key from the fields that identify an
// engagement: the company, the project and the leading scope item.
func workEntryID(entry domain.WorkEntry) string {
	scope := "general"
	if len(entry.Scope) > 0 {
		scope = entry.Scope[0]
	}
	seed := slug(entry.Company) + "#" + slug(entry.Project) + "#" + slug(scope)
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(seed)).String()
}
