package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"finbook/internal/cache"
	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/storage"
)

// ReportService builds hierarchical, time-bucketed summaries from the
// pre-computed monthly aggregates. The tree has three levels: posting kind,
// category, entity (the posting's security, contact or account). Results are
// cached per user until the next write.
type ReportService struct {
	repo   *storage.Repository
	cache  *cache.LRUCache[core.Report]
	logger *log.Logger
}

func NewReportService(repo *storage.Repository, cacheSize int, cacheTTL time.Duration, logger *log.Logger) *ReportService {
	return &ReportService{
		repo:   repo,
		cache:  cache.NewLRUCache[core.Report](cacheSize, cacheTTL),
		logger: logger.WithComponent(log.ComponentReports),
	}
}

// Cache exposes the underlying cache for cleanup registration.
func (s *ReportService) Cache() *cache.LRUCache[core.Report] { return s.cache }

// Invalidate drops every cached report of one user. Called after each write.
func (s *ReportService) Invalidate(userID int64) {
	s.cache.DeletePrefix(userCachePrefix(userID))
}

func userCachePrefix(userID int64) string {
	return fmt.Sprintf("u%d|", userID)
}

func cacheKey(userID int64, p core.ReportParams) string {
	kinds := make([]string, len(p.Kinds))
	for i, k := range p.Kinds {
		kinds[i] = string(k)
	}
	sort.Strings(kinds)
	return fmt.Sprintf("%s%s|%s|%s|%s|%s|%t|%s",
		userCachePrefix(userID), p.From, p.To, p.Basis, p.Bucket, p.Compare,
		p.NetDividends, strings.Join(kinds, ","))
}

// Build computes (or serves from cache) the report for the given parameters.
// The window snaps to whole months: From's month through To's month.
func (s *ReportService) Build(ctx context.Context, userID int64, params core.ReportParams) (core.Report, error) {
	if err := normalizeParams(&params); err != nil {
		return core.Report{}, err
	}

	key := cacheKey(userID, params)
	if report, ok := s.cache.Get(key); ok {
		return report, nil
	}

	report, err := s.build(ctx, userID, params)
	if err != nil {
		return core.Report{}, err
	}
	s.cache.Set(key, report)
	return report, nil
}

func normalizeParams(p *core.ReportParams) error {
	var err error
	if p.Basis, err = core.ParseDateBasis(string(p.Basis)); err != nil {
		return err
	}
	if p.Bucket, err = core.ParseReportBucket(string(p.Bucket)); err != nil {
		return err
	}
	if p.Compare, err = core.ParseReportCompare(string(p.Compare)); err != nil {
		return err
	}
	for i, k := range p.Kinds {
		if p.Kinds[i], err = core.ParsePostingKind(string(k)); err != nil {
			return err
		}
	}
	if p.From.IsZero() || p.To.IsZero() || p.To.Before(p.From) {
		return core.ErrInvalidRange
	}
	// Snap to month boundaries; aggregates are monthly.
	p.From = core.NewDate(p.From.Year(), p.From.Month(), 1)
	p.To = core.NewDate(p.To.Year(), p.To.Month(), core.DaysInMonth(p.To.Year(), p.To.Month()))
	if monthIndex(p.To.Year(), p.To.Month())-monthIndex(p.From.Year(), p.From.Month()) >= 10*12 {
		return core.ErrInvalidRange
	}
	return nil
}

func monthIndex(year, month int) int { return year*12 + month }

func (s *ReportService) build(ctx context.Context, userID int64, params core.ReportParams) (core.Report, error) {
	window := newBucketWindow(params.From, params.To, params.Bucket)

	var current, compare []core.PostingAggregate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.repo.QueryAggregates(gctx, userID, params.Basis,
			params.From.Year(), params.From.Month(), params.To.Year(), params.To.Month())
		return err
	})
	if params.Compare != core.CompareNone {
		compareFrom, compareTo := compareWindow(params)
		g.Go(func() error {
			var err error
			compare, err = s.repo.QueryAggregates(gctx, userID, params.Basis,
				compareFrom.Year(), compareFrom.Month(), compareTo.Year(), compareTo.Month())
			return err
		})
	}

	names := namesLookup{}
	g.Go(func() error { return names.load(gctx, s.repo, userID) })

	if err := g.Wait(); err != nil {
		return core.Report{}, err
	}

	builder := newTreeBuilder(window, params)
	for _, row := range current {
		builder.add(row)
	}
	if params.Compare != core.CompareNone {
		for _, row := range compare {
			builder.addCompare(row)
		}
	}

	report := builder.finish(&names)
	report.Params = params
	s.logger.DebugContext(ctx, "report built",
		log.FieldUserID, userID,
		log.FieldBasis, params.Basis,
		log.FieldBucket, params.Bucket)
	return report, nil
}

// compareWindow derives the comparison month range. previous_period shifts the
// window back by its own length; previous_year by exactly twelve months.
func compareWindow(p core.ReportParams) (core.Date, core.Date) {
	if p.Compare == core.ComparePreviousYear {
		return p.From.AddMonths(-12), p.To.AddMonths(-12)
	}
	span := monthIndex(p.To.Year(), p.To.Month()) - monthIndex(p.From.Year(), p.From.Month()) + 1
	return p.From.AddMonths(-span), p.To.AddMonths(-span)
}

// bucketWindow maps a (year, month) pair onto a bucket index and carries the
// display labels for the series.
type bucketWindow struct {
	bucket bucketIndexer
	labels []string
}

// bucketIndexer converts months to bucket indices.
type bucketIndexer interface {
	index(year, month int) int
	label(year, month int) string
}

type monthIndexer struct{ startYear, startMonth int }

func (m monthIndexer) index(year, month int) int {
	return monthIndex(year, month) - monthIndex(m.startYear, m.startMonth)
}
func (m monthIndexer) label(year, month int) string { return fmt.Sprintf("%04d-%02d", year, month) }

type quarterIndexer struct{ startYear, startQuarter int }

func (q quarterIndexer) index(year, month int) int {
	quarter := (month-1)/3 + 1
	return (year*4 + quarter) - (q.startYear*4 + q.startQuarter)
}
func (q quarterIndexer) label(year, month int) string {
	return fmt.Sprintf("%04d-Q%d", year, (month-1)/3+1)
}

type yearIndexer struct{ startYear int }

func (y yearIndexer) index(year, _ int) int    { return year - y.startYear }
func (y yearIndexer) label(year, _ int) string { return fmt.Sprintf("%04d", year) }

func newBucketWindow(from, to core.Date, bucket core.ReportBucket) *bucketWindow {
	var indexer bucketIndexer
	switch bucket {
	case core.BucketQuarter:
		indexer = quarterIndexer{startYear: from.Year(), startQuarter: from.Quarter()}
	case core.BucketYear:
		indexer = yearIndexer{startYear: from.Year()}
	default:
		indexer = monthIndexer{startYear: from.Year(), startMonth: from.Month()}
	}

	w := &bucketWindow{bucket: indexer}
	// Zero-filled labels for every bucket in the window, even empty ones.
	seen := -1
	for d := from; !d.After(to); d = d.AddMonths(1) {
		if idx := indexer.index(d.Year(), d.Month()); idx > seen {
			w.labels = append(w.labels, indexer.label(d.Year(), d.Month()))
			seen = idx
		}
	}
	return w
}

func (w *bucketWindow) size() int { return len(w.labels) }

// treeBuilder accumulates aggregate rows into the kind/category/entity tree.
type treeBuilder struct {
	window *bucketWindow
	params core.ReportParams

	lines        map[lineKey]*core.ReportLine
	compareSums  map[lineKey]int64
	compareTotal int64
	hasCompare   bool
	total        core.ReportLine
}

type lineKey struct {
	kind       core.PostingKind
	categoryID int64
	entityKind core.EntityKind
	entityID   int64
}

func newTreeBuilder(window *bucketWindow, params core.ReportParams) *treeBuilder {
	return &treeBuilder{
		window:      window,
		params:      params,
		lines:       map[lineKey]*core.ReportLine{},
		compareSums: map[lineKey]int64{},
		hasCompare:  params.Compare != core.CompareNone,
		total:       core.ReportLine{PerBucket: make([]core.Money, window.size())},
	}
}

// value extracts an aggregate row's contribution, netting withheld tax out of
// dividend and interest rows when requested.
func (b *treeBuilder) value(row core.PostingAggregate) int64 {
	if b.params.NetDividends && (row.Kind == core.KindDividend || row.Kind == core.KindInterest) {
		return row.SumCents - row.TaxCents
	}
	return row.SumCents
}

func (b *treeBuilder) wantKind(kind core.PostingKind) bool {
	if len(b.params.Kinds) == 0 {
		return true
	}
	for _, k := range b.params.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (b *treeBuilder) add(row core.PostingAggregate) {
	if !b.wantKind(row.Kind) {
		return
	}
	idx := b.window.bucket.index(row.Year, row.Month)
	if idx < 0 || idx >= b.window.size() {
		return
	}
	key := lineKey{row.Kind, row.CategoryID, row.EntityKind, row.EntityID}
	line, ok := b.lines[key]
	if !ok {
		line = &core.ReportLine{PerBucket: make([]core.Money, b.window.size())}
		b.lines[key] = line
	}
	v := b.value(row)
	line.PerBucket[idx].Cents += v
	line.Total.Cents += v
	b.total.PerBucket[idx].Cents += v
	b.total.Total.Cents += v
}

func (b *treeBuilder) addCompare(row core.PostingAggregate) {
	if !b.wantKind(row.Kind) {
		return
	}
	v := b.value(row)
	b.compareSums[lineKey{row.Kind, row.CategoryID, row.EntityKind, row.EntityID}] += v
	b.compareTotal += v
}

// finish assembles the sorted tree. Types follow the fixed kind order,
// categories and entities sort by name. Category and type lines are the sums
// of their children.
func (b *treeBuilder) finish(names *namesLookup) core.Report {
	type categoryAccum struct {
		line     core.ReportLine
		compare  int64
		entities []core.EntityNode
	}
	type typeAccum struct {
		line       core.ReportLine
		compare    int64
		categories map[int64]*categoryAccum
	}

	types := map[core.PostingKind]*typeAccum{}
	for key, line := range b.lines {
		ta, ok := types[key.kind]
		if !ok {
			ta = &typeAccum{
				line:       core.ReportLine{PerBucket: make([]core.Money, b.window.size())},
				categories: map[int64]*categoryAccum{},
			}
			types[key.kind] = ta
		}
		ca, ok := ta.categories[key.categoryID]
		if !ok {
			ca = &categoryAccum{line: core.ReportLine{PerBucket: make([]core.Money, b.window.size())}}
			ta.categories[key.categoryID] = ca
		}

		compareSum := b.compareSums[key]
		node := core.EntityNode{
			Kind: key.entityKind,
			ID:   key.entityID,
			Name: names.entity(key.entityKind, key.entityID),
			Line: *line,
		}
		if b.hasCompare {
			attachCompare(&node.Line, compareSum)
		}
		ca.entities = append(ca.entities, node)

		for i := range line.PerBucket {
			ca.line.PerBucket[i].Cents += line.PerBucket[i].Cents
			ta.line.PerBucket[i].Cents += line.PerBucket[i].Cents
		}
		ca.line.Total.Cents += line.Total.Cents
		ta.line.Total.Cents += line.Total.Cents
		ca.compare += compareSum
		ta.compare += compareSum
	}

	report := core.Report{
		BucketLabels: b.window.labels,
		Total:        b.total,
	}
	if b.hasCompare {
		attachCompare(&report.Total, b.compareTotal)
	}

	for _, kind := range core.PostingKinds {
		ta, ok := types[kind]
		if !ok {
			continue
		}
		typeNode := core.TypeNode{Kind: kind, Line: ta.line}
		if b.hasCompare {
			attachCompare(&typeNode.Line, ta.compare)
		}
		for categoryID, ca := range ta.categories {
			catNode := core.CategoryNode{
				ID:       categoryID,
				Name:     names.category(categoryID),
				Line:     ca.line,
				Entities: ca.entities,
			}
			if b.hasCompare {
				attachCompare(&catNode.Line, ca.compare)
			}
			sort.Slice(catNode.Entities, func(i, j int) bool {
				return catNode.Entities[i].Name < catNode.Entities[j].Name
			})
			typeNode.Categories = append(typeNode.Categories, catNode)
		}
		sort.Slice(typeNode.Categories, func(i, j int) bool {
			return typeNode.Categories[i].Name < typeNode.Categories[j].Name
		})
		report.Types = append(report.Types, typeNode)
	}
	return report
}

func attachCompare(line *core.ReportLine, compareCents int64) {
	compareTotal := core.Money{Cents: compareCents}
	delta := core.Money{Cents: line.Total.Cents - compareCents}
	line.CompareTotal = &compareTotal
	line.Delta = &delta
}

// namesLookup resolves IDs to display names for the report tree.
type namesLookup struct {
	accounts   map[int64]string
	contacts   map[int64]string
	securities map[int64]string
	categories map[int64]string
}

func (n *namesLookup) load(ctx context.Context, repo *storage.Repository, userID int64) error {
	accounts, err := repo.ListAccounts(ctx, userID, false)
	if err != nil {
		return err
	}
	contacts, err := repo.ListContacts(ctx, userID, false)
	if err != nil {
		return err
	}
	securities, err := repo.ListSecurities(ctx, userID, false)
	if err != nil {
		return err
	}
	categories, err := repo.ListCategories(ctx, userID, false)
	if err != nil {
		return err
	}

	n.accounts = make(map[int64]string, len(accounts))
	for _, a := range accounts {
		n.accounts[a.ID] = a.Name
	}
	n.contacts = make(map[int64]string, len(contacts))
	for _, c := range contacts {
		n.contacts[c.ID] = c.Name
	}
	n.securities = make(map[int64]string, len(securities))
	for _, s := range securities {
		n.securities[s.ID] = s.Name
	}
	n.categories = make(map[int64]string, len(categories))
	for _, c := range categories {
		n.categories[c.ID] = c.Name
	}
	return nil
}

func (n *namesLookup) entity(kind core.EntityKind, id int64) string {
	var name string
	switch kind {
	case core.EntitySecurity:
		name = n.securities[id]
	case core.EntityContact:
		name = n.contacts[id]
	case core.EntityAccount:
		name = n.accounts[id]
	}
	if name == "" {
		return fmt.Sprintf("%s %d", kind, id)
	}
	return name
}

func (n *namesLookup) category(id int64) string {
	if id == 0 {
		return "Uncategorized"
	}
	if name := n.categories[id]; name != "" {
		return name
	}
	return fmt.Sprintf("category %d", id)
}
