package index

import (
	"strconv"
	"strings"

	"github.com/custodia-labs/north/internal/core/domain"
)

// Projections flatten each record type into the named filterable
// fields and the text handed to Bleve and the embedder. The field
// names match the canonical constants in domain so filters built by
// the strategy layer apply unchanged.

func documentProjection(d domain.Document) (map[string]string, string) {
	fields := map[string]string{
		domain.FieldSourceID:    d.SourceID,
		domain.FieldName:        d.Name,
		domain.FieldPath:        d.Path,
		domain.FieldProject:     d.Project,
		domain.FieldContractor:  d.Contractor,
		domain.FieldVendor:      d.Vendor,
		domain.FieldDocType:     d.DocType,
		domain.FieldContentHash: d.ContentHash,
		"invoice_number":        d.InvoiceNumber,
	}
	text := joinText(d.Name, d.Project, d.Contractor, d.DocType, d.Content)
	return fields, text
}

func chunkProjection(c domain.DocumentChunk) (map[string]string, string) {
	fields := map[string]string{
		domain.FieldParentID:   c.ParentID,
		domain.FieldName:       c.ParentName,
		domain.FieldPath:       c.Path,
		domain.FieldProject:    c.Project,
		domain.FieldContractor: c.Contractor,
		domain.FieldVendor:     c.Vendor,
		domain.FieldDocType:    c.DocType,
	}
	text := joinText(c.ParentName, c.Project, c.Contractor, c.Content)
	return fields, text
}

func companyProjection(c domain.Company) (map[string]string, string) {
	fields := map[string]string{
		domain.FieldCompany:  c.Name,
		domain.FieldName:     c.Name,
		domain.FieldServices: strings.Join(c.Services, " "),
		"notes":              c.Notes,
		"hired":              strconv.FormatBool(c.Hired),
	}
	text := joinText(c.Name, strings.Join(c.Services, " "), c.Notes)
	return fields, text
}

func workEntryProjection(w domain.WorkEntry) (map[string]string, string) {
	fields := map[string]string{
		domain.FieldCompany: w.Company,
		domain.FieldProject: w.Project,
		domain.FieldTags:    strings.Join(w.Tags, " "),
		"scope":             strings.Join(w.Scope, " "),
		"status":            w.Status,
		"performance":       strings.Join(w.PerformanceNotes, " "),
		"knowledge":         w.KnowledgeGained,
	}
	text := joinText(
		w.Company,
		w.Project,
		strings.Join(w.Scope, " "),
		strings.Join(w.Tags, " "),
		strings.Join(w.PerformanceNotes, " "),
		w.KnowledgeGained,
	)
	return fields, text
}

func joinText(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
