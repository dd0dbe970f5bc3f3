// Package vault reads an Obsidian-style folder of markdown notes with
// YAML frontmatter into the contractor directory and work log.
package vault

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
	"github.com/custodia-labs/north/internal/logger"
)

// Ensure Loader implements the interface.
var _ driven.VaultLoader = (*Loader)(nil)

// Loader reads a vault from the local filesystem.
type Loader struct{}

// New creates a vault loader.
func New() *Loader {
	return &Loader{}
}

// Load walks dir and parses every markdown note. A note's frontmatter
// "type" field decides whether it is a company or a work log entry;
// notes with no usable frontmatter or an unknown type are counted as
// skipped, never fatal.
func (l *Loader) Load(ctx context.Context, dir string) (*driven.VaultContents, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	contents := &driven.VaultContents{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping %s: %v", path, err)
			contents.Skipped++
			return nil
		}

		meta, body, err := parseNote(raw)
		if err != nil {
			logger.Debug("skipping %s: %v", path, err)
			contents.Skipped++
			return nil
		}

		switch strings.ToLower(meta.str("type")) {
		case "company":
			contents.Companies = append(contents.Companies, companyFromNote(meta))
		case "worklog":
			contents.WorkLog = append(contents.WorkLog, workEntryFromNote(meta, body))
		default:
			contents.Skipped++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk vault: %w", err)
	}
	return contents, nil
}

// companyFromNote maps company frontmatter onto the directory entry.
// Office phone wins over mobile when both are present.
func companyFromNote(meta note) domain.Company {
	phone := meta.str("office_phone")
	if phone == "" {
		phone = meta.str("mobile_phone")
	}
	if phone == "" {
		phone = meta.str("phone")
	}

	emails := meta.list("email")
	for i, e := range emails {
		emails[i] = strings.ToLower(e)
	}

	return domain.Company{
		Name:     meta.str("company"),
		Services: meta.list("services"),
		Phone:    phone,
		Email:    emails,
		Hired:    meta.boolean("hired"),
		Notes:    meta.str("notes"),
	}
}

// workEntryFromNote maps work log frontmatter onto a work entry. The
// performance notes and lessons learned live in the note body, not
// the frontmatter.
func workEntryFromNote(meta note, body string) domain.WorkEntry {
	return domain.WorkEntry{
		Company:          meta.str("company"),
		Project:          meta.str("project"),
		Scope:            meta.scope(),
		Tags:             meta.list("tags"),
		Cost:             meta.number("cost"),
		Status:           meta.str("status"),
		Rehire:           meta.str("rehire"),
		PerformanceNotes: performanceNotes(body),
		KnowledgeGained:  knowledgeGained(body),
	}
}
