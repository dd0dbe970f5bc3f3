package extract

import "regexp"

// Content patterns are deliberately vendor-agnostic: they match the
// labels found on most invoices rather than any particular layout.
var (
	invoiceNumberPattern = regexp.MustCompile(`(?i)(?:invoice|inv|bill|reference)\s*#?\s*:?\s*([A-Z0-9][A-Z0-9-]+)`)

	amountPattern = regexp.MustCompile(`(?i)(?:total|amount\s*due|balance)\s*:?\s*\$?\s*([\d,]+\.?\d*)|\$\s*([\d,]+\.?\d*)`)

	datePattern = regexp.MustCompile(`(?i)date[d]?\s*:?\s*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\w+\s+\d{1,2},?\s+\d{4})`)

	vendorPattern = regexp.MustCompile(`(?im)^(?:from|vendor|contractor|company|remit to|bill from|supplier|payee)\s*:?\s*(.+)$`)

	companySuffixPattern = regexp.MustCompile(`(?i)\b(LLC|L\.L\.C\.|Inc\.?|Incorporated|Corp\.?|Corporation|Company|Co\.|Ltd\.?|Limited|Partners|Partnership|Group|Associates|Enterprises)\b`)

	headerPattern = regexp.MustCompile(`(?i)^(invoice|remit to|bill to|ship to|date|amount|total|subtotal|tax|terms|due on receipt|balance due)\b`)
)
