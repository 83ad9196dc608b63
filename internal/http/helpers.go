package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"finbook/internal/core"
	"finbook/internal/storage"
)

// pathID parses the {id} path segment as a numeric ID.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

func queryInt64(r *http.Request, key string) int64 {
	v, _ := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	return v
}

func queryInt(r *http.Request, key string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(key))
	return v
}

// queryDate parses an optional YYYY-MM-DD query parameter; missing values
// yield the zero date.
func queryDate(r *http.Request, key string) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// postingFilter builds the shared posting list/export filter from query
// parameters.
func postingFilter(r *http.Request) (storage.PostingFilter, error) {
	from, err := queryDate(r, "from")
	if err != nil {
		return storage.PostingFilter{}, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return storage.PostingFilter{}, err
	}

	f := storage.PostingFilter{
		From:       from,
		To:         to,
		AccountID:  queryInt64(r, "account_id"),
		CategoryID: queryInt64(r, "category_id"),
		ContactID:  queryInt64(r, "contact_id"),
		SecurityID: queryInt64(r, "security_id"),
		Limit:      queryInt(r, "limit"),
		Offset:     queryInt(r, "offset"),
	}

	if v := r.URL.Query().Get("basis"); v != "" {
		basis, err := core.ParseDateBasis(v)
		if err != nil {
			return storage.PostingFilter{}, err
		}
		f.Basis = basis
	}
	if v := r.URL.Query().Get("kind"); v != "" {
		kind, err := core.ParsePostingKind(v)
		if err != nil {
			return storage.PostingFilter{}, err
		}
		f.Kind = kind
	}
	return f, nil
}

// reportParams builds report parameters from query values. Validation and
// defaulting happen in the report service.
func reportParams(r *http.Request) (core.ReportParams, error) {
	from, err := queryDate(r, "from")
	if err != nil {
		return core.ReportParams{}, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return core.ReportParams{}, err
	}

	p := core.ReportParams{
		From:         from,
		To:           to,
		Basis:        core.DateBasis(r.URL.Query().Get("basis")),
		Bucket:       core.ReportBucket(r.URL.Query().Get("bucket")),
		Compare:      core.ReportCompare(r.URL.Query().Get("compare")),
		NetDividends: queryBool(r, "net_dividends"),
	}
	if kinds := strings.TrimSpace(r.URL.Query().Get("kinds")); kinds != "" {
		for _, k := range strings.Split(kinds, ",") {
			p.Kinds = append(p.Kinds, core.PostingKind(strings.TrimSpace(k)))
		}
	}
	return p, nil
}
