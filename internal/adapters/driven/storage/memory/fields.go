package memory

import (
	"strconv"
	"strings"

	"github.com/custodia-labs/north/internal/core/domain"
)

// Field projections flatten records into the named searchable fields.
// The names match the canonical field constants in domain so filters
// built by the strategy layer apply unchanged.

// DocumentFields projects a document for matching and filtering.
func DocumentFields(d domain.Document) map[string]string {
	return map[string]string{
		domain.FieldSourceID:    d.SourceID,
		domain.FieldName:        d.Name,
		domain.FieldPath:        d.Path,
		domain.FieldContent:     d.Content,
		domain.FieldProject:     d.Project,
		domain.FieldContractor:  d.Contractor,
		domain.FieldVendor:      d.Vendor,
		domain.FieldDocType:     d.DocType,
		domain.FieldContentHash: d.ContentHash,
		"invoice_number":        d.InvoiceNumber,
	}
}

// ChunkFields projects a chunk for matching and filtering.
func ChunkFields(c domain.DocumentChunk) map[string]string {
	return map[string]string{
		domain.FieldParentID:   c.ParentID,
		domain.FieldName:       c.ParentName,
		domain.FieldPath:       c.Path,
		domain.FieldContent:    c.Content,
		domain.FieldProject:    c.Project,
		domain.FieldContractor: c.Contractor,
		domain.FieldVendor:     c.Vendor,
		domain.FieldDocType:    c.DocType,
	}
}

// CompanyFields projects a directory entry for matching and filtering.
func CompanyFields(c domain.Company) map[string]string {
	return map[string]string{
		domain.FieldCompany:  c.Name,
		domain.FieldName:     c.Name,
		domain.FieldServices: strings.Join(c.Services, " "),
		"notes":              c.Notes,
		"hired":              strconv.FormatBool(c.Hired),
	}
}

// WorkEntryFields projects a work entry for matching and filtering.
func WorkEntryFields(w domain.WorkEntry) map[string]string {
	return map[string]string{
		domain.FieldCompany: w.Company,
		domain.FieldProject: w.Project,
		domain.FieldTags:    strings.Join(w.Tags, " "),
		"scope":             strings.Join(w.Scope, " "),
		"status":            w.Status,
		"performance":       strings.Join(w.PerformanceNotes, " "),
		"knowledge":         w.KnowledgeGained,
	}
}
