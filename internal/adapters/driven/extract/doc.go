// Package extract turns raw file bytes into indexable text and
// construction metadata.
//
// Extractors are selected by file extension through a Registry. The
// plaintext extractor handles .txt, .md, .csv and .log files and pulls
// metadata out of both the file path (project folders, hired
// contractor folders) and the content (invoice numbers, amounts,
// dates, vendor names). Binary formats such as PDF and Word documents
// need a dedicated extractor; without one the registry reports them as
// unsupported.
package extract
