package extract

import (
	"context"
	"strconv"
	"strings"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driven"
)

// Ensure TextExtractor implements the interface.
var _ driven.Extractor = (*TextExtractor)(nil)

// textExtensions are the plain-text formats this extractor handles.
var textExtensions = map[string]bool{
	".txt": true,
	".md":  true,
	".csv": true,
	".log": true,
}

// TextExtractor extracts plain-text files. Metadata is inferred from
// the file path and from common patterns in the content.
type TextExtractor struct{}

// NewTextExtractor creates a plain-text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Supports reports whether the extension is a plain-text format.
func (e *TextExtractor) Supports(ext string) bool {
	return textExtensions[strings.ToLower(ext)]
}

// Extract decodes the bytes as UTF-8 and infers metadata.
func (e *TextExtractor) Extract(_ context.Context, item domain.SourceItem, raw []byte) (*driven.ExtractResult, error) {
	text := strings.ToValidUTF8(string(raw), "")

	meta := metadataFromPath(item.Path)
	mergeContentMetadata(&meta, text)
	if meta.DocType == "" {
		meta.DocType = inferDocType(item.Path, text)
	}

	return &driven.ExtractResult{Text: text, Meta: meta}, nil
}

// metadataFromPath reads project, contractor and document type out of
// the folder structure. Nothing is hardcoded to particular projects:
// project folders are recognised by containing a digit (addresses like
// "305 Regency"), contractors by sitting under a HIRED or CONTRACTOR
// folder.
func metadataFromPath(path string) domain.DocumentMeta {
	var meta domain.DocumentMeta

	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		// The last component is the file name, never a folder.
		isFolder := i < len(parts)-1

		if isFolder && i < 4 && meta.Project == "" && containsDigit(part) {
			meta.Project = part
		}

		if isFolder && i > 0 {
			prev := strings.ToUpper(parts[i-1])
			if strings.Contains(prev, "HIRED") || strings.Contains(prev, "CONTRACTOR") || strings.Contains(prev, "VENDOR") {
				meta.Contractor = part
			}
		}

		partLower := strings.ToLower(part)
		for _, docType := range []string{"invoice", "contract", "agreement", "report", "w9", "insurance"} {
			if strings.Contains(partLower, docType) {
				meta.DocType = docType
				break
			}
		}
	}

	return meta
}

// mergeContentMetadata fills invoice fields and the vendor from the
// document text. Path-derived fields win when both are present.
func mergeContentMetadata(meta *domain.DocumentMeta, text string) {
	if m := invoiceNumberPattern.FindStringSubmatch(text); m != nil {
		meta.InvoiceNumber = m[1]
	}
	if amount, ok := largestAmount(text); ok {
		meta.InvoiceAmount = amount
	}
	if m := datePattern.FindStringSubmatch(text); m != nil {
		meta.InvoiceDate = strings.TrimSpace(m[1])
	}
	if meta.Vendor == "" {
		meta.Vendor = findVendor(text)
	}
}

// largestAmount finds dollar amounts near total/balance keywords and
// returns the largest, which is usually the invoice total.
func largestAmount(text string) (float64, bool) {
	var amounts []float64
	for _, m := range amountPattern.FindAllStringSubmatch(text, -1) {
		// Labelled amounts capture in group 1, bare dollar amounts in 2.
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		raw = strings.ReplaceAll(raw, ",", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			amounts = append(amounts, v)
		}
	}
	if len(amounts) == 0 {
		return 0, false
	}
	max := amounts[0]
	for _, v := range amounts[1:] {
		if v > max {
			max = v
		}
	}
	return max, true
}

// findVendor looks for an explicit vendor line, then falls back to
// scanning the top of the document for a company-suffixed line.
func findVendor(text string) string {
	if m := vendorPattern.FindStringSubmatch(text); m != nil {
		if v := cleanVendor(m[1]); v != "" {
			return v
		}
	}

	lines := strings.Split(text, "\n")
	if len(lines) > 40 {
		lines = lines[:40]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) < 3 || headerPattern.MatchString(line) {
			continue
		}
		if companySuffixPattern.MatchString(line) {
			if v := cleanVendor(line); v != "" {
				return v
			}
		}
	}
	return ""
}

func cleanVendor(raw string) string {
	v := strings.Join(strings.Fields(raw), " ")
	v = strings.Trim(v, " ,.-:")
	if len(v) <= 3 || len(v) >= 100 {
		return ""
	}
	return v
}

// inferDocType classifies the document from indicator words in the
// path or the opening content.
func inferDocType(path, content string) string {
	pathLower := strings.ToLower(path)
	contentLower := strings.ToLower(content)
	if len(contentLower) > 1000 {
		contentLower = contentLower[:1000]
	}

	for _, t := range docTypeOrder {
		for _, indicator := range docTypeIndicators[t] {
			if strings.Contains(pathLower, indicator) || strings.Contains(contentLower, indicator) {
				return t
			}
		}
	}
	return ""
}

// docTypeOrder fixes the check order so classification is
// deterministic.
var docTypeOrder = []string{"invoice", "contract", "report", "w9", "insurance", "receipt", "change_order"}

var docTypeIndicators = map[string][]string{
	"invoice":      {"invoice", "bill", "statement", "remittance"},
	"contract":     {"agreement", "contract", "terms and conditions", "contractor"},
	"report":       {"report", "analysis", "assessment", "evaluation", "summary"},
	"w9":           {"w-9", "w9", "taxpayer identification"},
	"insurance":    {"insurance", "certificate of insurance", "coi", "liability", "coverage"},
	"receipt":      {"receipt", "payment received", "transaction"},
	"change_order": {"change order", "modification", "amendment", "variation"},
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
