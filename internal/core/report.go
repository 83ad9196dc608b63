package core

import "strings"

// DateBasis selects which posting date feeds time bucketing.
type DateBasis string

const (
	BasisBooking DateBasis = "booking"
	BasisValuta  DateBasis = "valuta"
)

// ParseDateBasis validates a wire-format basis string; empty defaults to booking.
func ParseDateBasis(s string) (DateBasis, error) {
	switch b := DateBasis(strings.TrimSpace(strings.ToLower(s))); b {
	case "":
		return BasisBooking, nil
	case BasisBooking, BasisValuta:
		return b, nil
	default:
		return "", ErrInvalidBasis
	}
}

// ReportBucket is the time resolution of a report series.
type ReportBucket string

const (
	BucketMonth   ReportBucket = "month"
	BucketQuarter ReportBucket = "quarter"
	BucketYear    ReportBucket = "year"
)

// ParseReportBucket validates a wire-format bucket string; empty defaults to month.
func ParseReportBucket(s string) (ReportBucket, error) {
	switch b := ReportBucket(strings.TrimSpace(strings.ToLower(s))); b {
	case "":
		return BucketMonth, nil
	case BucketMonth, BucketQuarter, BucketYear:
		return b, nil
	default:
		return "", ErrInvalidBucket
	}
}

// ReportCompare selects the comparison window of a report.
type ReportCompare string

const (
	CompareNone           ReportCompare = "none"
	ComparePreviousPeriod ReportCompare = "previous_period"
	ComparePreviousYear   ReportCompare = "previous_year"
)

// ParseReportCompare validates a wire-format compare string; empty defaults to none.
func ParseReportCompare(s string) (ReportCompare, error) {
	switch c := ReportCompare(strings.TrimSpace(strings.ToLower(s))); c {
	case "":
		return CompareNone, nil
	case CompareNone, ComparePreviousPeriod, ComparePreviousYear:
		return c, nil
	default:
		return "", ErrInvalidCompare
	}
}

// EntityKind names the leaf level of the report hierarchy: the posting's
// counterparty, or the account itself when no counterparty is set.
type EntityKind string

const (
	EntityContact  EntityKind = "contact"
	EntitySecurity EntityKind = "security"
	EntityAccount  EntityKind = "account"
)

// ReportParams fully determines an aggregation report. Identical params over
// unchanged data yield an identical report, which makes results cacheable.
type ReportParams struct {
	From         Date          `json:"from"`
	To           Date          `json:"to"`
	Basis        DateBasis     `json:"basis"`
	Bucket       ReportBucket  `json:"bucket"`
	Kinds        []PostingKind `json:"kinds,omitempty"`
	Compare      ReportCompare `json:"compare"`
	NetDividends bool          `json:"net_dividends"`
}

// ReportLine is the per-bucket series plus totals carried by every node of the
// report tree. Comparison fields are nil unless a comparison window was built.
type ReportLine struct {
	PerBucket    []Money `json:"per_bucket_cents"`
	Total        Money   `json:"total_cents"`
	CompareTotal *Money  `json:"compare_total_cents,omitempty"`
	Delta        *Money  `json:"delta_cents,omitempty"`
}

// EntityNode is a leaf of the report tree: one counterparty under a category.
type EntityNode struct {
	Kind EntityKind `json:"kind"`
	ID   int64      `json:"id"`
	Name string     `json:"name"`
	Line ReportLine `json:"line"`
}

// CategoryNode groups entities under one category. ID 0 is the unlabelled
// "uncategorized" group.
type CategoryNode struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	Line     ReportLine   `json:"line"`
	Entities []EntityNode `json:"entities"`
}

// TypeNode is the top level of the hierarchy: one posting kind.
type TypeNode struct {
	Kind       PostingKind    `json:"kind"`
	Line       ReportLine     `json:"line"`
	Categories []CategoryNode `json:"categories"`
}

// Report is the hierarchical time-bucketed summary returned by the
// aggregation endpoint.
type Report struct {
	Params       ReportParams `json:"params"`
	BucketLabels []string     `json:"bucket_labels"`
	Types        []TypeNode   `json:"types"`
	Total        ReportLine   `json:"total"`
}

// PostingAggregate is one pre-computed monthly rollup row. Every posting write
// maintains two of these per affected month, one per date basis.
type PostingAggregate struct {
	UserID     int64
	Basis      DateBasis
	Year       int
	Month      int
	Kind       PostingKind
	CategoryID int64
	EntityKind EntityKind
	EntityID   int64
	SumCents   int64
	TaxCents   int64
	Count      int64
}

// Entity returns the counterparty reference of a posting for aggregation:
// securities win over contacts, and the account is the fallback.
func (p Posting) Entity() (EntityKind, int64) {
	if p.SecurityID != 0 {
		return EntitySecurity, p.SecurityID
	}
	if p.ContactID != 0 {
		return EntityContact, p.ContactID
	}
	return EntityAccount, p.AccountID
}

// DateFor returns the posting date for the given basis.
func (p Posting) DateFor(basis DateBasis) Date {
	if basis == BasisValuta {
		return p.ValutaDate
	}
	return p.BookingDate
}
