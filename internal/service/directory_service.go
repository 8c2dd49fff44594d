package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/noah-isme/jnv-alumni-api/internal/models"
	"github.com/noah-isme/jnv-alumni-api/pkg/cache"
	appErrors "github.com/noah-isme/jnv-alumni-api/pkg/errors"
	"github.com/noah-isme/jnv-alumni-api/pkg/export"
	"github.com/noah-isme/jnv-alumni-api/pkg/textnorm"
)

const (
	defaultDirectoryPageSize = 24
	maxDirectoryPageSize     = 100
	facetLimit               = 5

	unknownSupporterName  = "Unknown"
	unknownSupporterEmail = "N/A"
)

var directoryRecordsKey = cache.Key("directory", "records")

type directoryRepository interface {
	FindByID(ctx context.Context, id string) (*models.AlumniRecord, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.AlumniRecord, error)
	ListAll(ctx context.Context) ([]models.AlumniRecord, error)
}

// DirectoryPage is one page of projected entries.
type DirectoryPage struct {
	Entries    []models.DirectoryEntry
	Pagination models.Pagination
}

// ExportFile is a rendered directory export.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// DirectoryService answers directory queries over a cached snapshot of all records.
type DirectoryService struct {
	repo     directoryRepository
	cache    *CacheService
	metrics  *MetricsService
	cacheTTL time.Duration
	pageSize int
	logger   *zap.Logger
	now      func() time.Time
}

// NewDirectoryService constructs the service. cache may be nil.
func NewDirectoryService(repo directoryRepository, cacheSvc *CacheService, metrics *MetricsService, cacheTTL time.Duration, pageSize int, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = defaultDirectoryPageSize
	}
	if pageSize > maxDirectoryPageSize {
		pageSize = maxDirectoryPageSize
	}
	return &DirectoryService{repo: repo, cache: cacheSvc, metrics: metrics, cacheTTL: cacheTTL, pageSize: pageSize, logger: logger, now: time.Now}
}

// Access loads the viewer and checks they may see the directory.
func (s *DirectoryService) Access(ctx context.Context, viewerID string) (*models.AlumniRecord, error) {
	viewer, err := loadViewer(ctx, s.repo, viewerID)
	if err != nil {
		return nil, err
	}
	if err := requireDirectoryAccess(viewer); err != nil {
		return nil, err
	}
	return viewer, nil
}

// Snapshot returns every record, from cache when possible.
func (s *DirectoryService) Snapshot(ctx context.Context) ([]models.AlumniRecord, bool, error) {
	var records []models.AlumniRecord
	if s.cache.Get(ctx, directoryRecordsKey, &records) {
		return records, true, nil
	}
	start := time.Now()
	records, err := s.repo.ListAll(ctx)
	s.metrics.ObserveDBQuery("alumni_list_all", time.Since(start))
	if err != nil {
		return nil, false, remoteError(err, "failed to load directory")
	}
	s.cache.Set(ctx, directoryRecordsKey, records, s.cacheTTL)
	return records, false, nil
}

// InvalidateDirectory drops the cached snapshot. Callers invoke it after every mutation.
func (s *DirectoryService) InvalidateDirectory(ctx context.Context) {
	if s == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.Key("directory", "*")); err != nil {
		s.logger.Warn("directory cache not invalidated", zap.Error(err))
	}
}

// List returns approved records matching filter, projected for the viewer.
func (s *DirectoryService) List(ctx context.Context, viewerID string, filter models.AlumniFilter) (*DirectoryPage, bool, error) {
	viewer, err := s.Access(ctx, viewerID)
	if err != nil {
		return nil, false, err
	}
	records, hit, err := s.Snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	approved, _ := Split(records)
	matched := FilterRecords(approved, filter)
	SortRecords(matched, filter.SortBy, filter.SortOrder)
	return s.paginate(matched, viewer, filter.Page, filter.PageSize), hit, nil
}

// Pending lists records awaiting approval with their supporters resolved.
func (s *DirectoryService) Pending(ctx context.Context, viewerID string) ([]models.DirectoryEntry, bool, error) {
	viewer, err := s.Access(ctx, viewerID)
	if err != nil {
		return nil, false, err
	}
	records, hit, err := s.Snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	_, pending := Split(records)

	ids := make([]string, 0)
	seen := make(map[string]struct{})
	for _, r := range pending {
		for _, id := range r.SupportedBy {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	supporters, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, hit, remoteError(err, "failed to resolve supporters")
	}
	byID := make(map[string]models.AlumniRecord, len(supporters))
	for _, sup := range supporters {
		byID[sup.ID] = sup
	}

	entries := make([]models.DirectoryEntry, 0, len(pending))
	for i := range pending {
		entry := Project(&pending[i], viewer)
		entry.Supporters = make([]models.Supporter, 0, len(pending[i].SupportedBy))
		for _, id := range pending[i].SupportedBy {
			sup, ok := byID[id]
			if !ok {
				entry.Supporters = append(entry.Supporters, models.Supporter{ID: id, Name: unknownSupporterName, Email: unknownSupporterEmail})
				continue
			}
			entry.Supporters = append(entry.Supporters, models.Supporter{ID: id, Name: sup.FullName, Email: sup.Email})
		}
		entries = append(entries, entry)
	}
	return entries, hit, nil
}

// Facets returns the most common professions and current cities among approved records.
func (s *DirectoryService) Facets(ctx context.Context, viewerID string) (*models.DirectoryFacets, bool, error) {
	if _, err := s.Access(ctx, viewerID); err != nil {
		return nil, false, err
	}
	records, hit, err := s.Snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	approved, _ := Split(records)

	professions := make([]string, 0, len(approved))
	cities := make([]string, 0, len(approved))
	for _, r := range approved {
		professions = append(professions, r.Profession)
		cities = append(cities, r.CurrentCity)
	}
	return &models.DirectoryFacets{
		Professions: topValues(professions, facetLimit),
		Cities:      topValues(cities, facetLimit),
	}, hit, nil
}

// Schools groups approved records by school.
func (s *DirectoryService) Schools(ctx context.Context, viewerID string) ([]models.SchoolSummary, bool, error) {
	if _, err := s.Access(ctx, viewerID); err != nil {
		return nil, false, err
	}
	records, hit, err := s.Snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	approved, _ := Split(records)
	return groupSchools(approved), hit, nil
}

// SchoolMembers lists approved records of the school identified by slug.
func (s *DirectoryService) SchoolMembers(ctx context.Context, viewerID, slug string, filter models.AlumniFilter) (*DirectoryPage, bool, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "school slug is required")
	}
	filter.SchoolSlug = slug
	page, hit, err := s.List(ctx, viewerID, filter)
	if err != nil {
		return nil, hit, err
	}
	if page.Pagination.TotalCount == 0 {
		return nil, hit, appErrors.Clone(appErrors.ErrNotFound, "school not found")
	}
	return page, hit, nil
}

// Export renders the approved directory. Only privileged viewers may export.
func (s *DirectoryService) Export(ctx context.Context, viewerID string, format export.Format) (*ExportFile, error) {
	viewer, err := loadViewer(ctx, s.repo, viewerID)
	if err != nil {
		return nil, err
	}
	if err := requirePrivileged(viewer); err != nil {
		return nil, err
	}
	file, rows, err := s.Render(ctx, format)
	if err != nil {
		return nil, err
	}
	s.logger.Info("directory exported", zap.String("viewer_id", viewer.ID), zap.String("format", string(format)), zap.Int("rows", rows))
	return file, nil
}

// Render produces the export file without an access check and reports how many rows it holds.
// Callers outside the HTTP surface, such as the admin CLI, use it directly.
func (s *DirectoryService) Render(ctx context.Context, format export.Format) (*ExportFile, int, error) {
	records, _, err := s.Snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}
	approved, _ := Split(records)
	SortRecords(approved, models.SortByFullName, "asc")

	renderer := export.For(format)
	payload, err := renderer.Render(directoryDataset(approved))
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    "alumni-directory-" + s.now().UTC().Format("20060102") + "." + renderer.Extension(),
		ContentType: renderer.ContentType(),
		Payload:     payload,
	}, len(approved), nil
}

func (s *DirectoryService) paginate(records []models.AlumniRecord, viewer *models.AlumniRecord, page, size int) *DirectoryPage {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = s.pageSize
	}
	if size > maxDirectoryPageSize {
		size = maxDirectoryPageSize
	}
	total := len(records)
	start := total
	if page-1 <= total/size {
		start = (page - 1) * size
		if start > total {
			start = total
		}
	}
	end := start + size
	if end > total {
		end = total
	}

	entries := make([]models.DirectoryEntry, 0, end-start)
	for i := start; i < end; i++ {
		entries = append(entries, Project(&records[i], viewer))
	}
	return &DirectoryPage{
		Entries:    entries,
		Pagination: models.Pagination{Page: page, PageSize: size, TotalCount: total},
	}
}

// Split partitions records into approved and pending, preserving order.
func Split(records []models.AlumniRecord) (approved, pending []models.AlumniRecord) {
	approved = make([]models.AlumniRecord, 0, len(records))
	pending = make([]models.AlumniRecord, 0)
	for _, r := range records {
		if r.IsApproved() {
			approved = append(approved, r)
		} else {
			pending = append(pending, r)
		}
	}
	return approved, pending
}

// Project shapes a record for viewer. Contact numbers are shown to privileged viewers only.
func Project(record *models.AlumniRecord, viewer *models.AlumniRecord) models.DirectoryEntry {
	entry := models.DirectoryEntry{
		ID:               record.ID,
		FullName:         record.FullName,
		Email:            record.Email,
		Role:             record.Role,
		UserRole:         record.UserRole,
		Status:           record.Status,
		BloodGroup:       record.BloodGroup,
		Profession:       record.Profession,
		ProfessionOther:  record.ProfessionOther,
		OrganisationName: record.OrganisationName,
		WorkRole:         record.WorkRole,
		School:           record.School,
		PhotoURL:         record.PhotoURL,
		JoinedYear:       record.JoinedYear,
		PassedOutYear:    record.PassedOutYear,
		JoinedClass:      record.JoinedClass,
		PassedOutClass:   record.PassedOutClass,
		CurrentCity:      record.CurrentCity,
		CurrentState:     record.CurrentState,
		WorkCity:         record.WorkCity,
		WorkState:        record.WorkState,
		SupportCount:     len(record.SupportedBy),
		CreatedAt:        record.CreatedAt,
	}
	if viewer != nil && viewer.UserRole.IsPrivileged() {
		entry.Mobile = record.Mobile
	}
	return entry
}

// FilterRecords applies the search and equality filters.
func FilterRecords(records []models.AlumniRecord, filter models.AlumniFilter) []models.AlumniRecord {
	query := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]models.AlumniRecord, 0, len(records))
	for _, r := range records {
		if filter.PassedOutYear != 0 && r.PassedOutYear != filter.PassedOutYear {
			continue
		}
		if filter.Profession != "" && !strings.EqualFold(r.Profession, strings.TrimSpace(filter.Profession)) {
			continue
		}
		if filter.Role != "" && r.Role != filter.Role {
			continue
		}
		if filter.SchoolSlug != "" && (r.School == "" || textnorm.Slugify(r.School) != filter.SchoolSlug) {
			continue
		}
		if query != "" && !matchesSearch(&r, query) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesSearch(r *models.AlumniRecord, query string) bool {
	for _, field := range []string{r.FullName, r.Email, r.Profession, r.OrganisationName, r.CurrentCity, r.CurrentState, r.School, r.WorkCity} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// SortRecords orders records in place. Names use English collation ignoring case.
// fullName defaults to ascending; passedOutYear and createdAt default to descending.
func SortRecords(records []models.AlumniRecord, sortBy, order string) {
	col := collate.New(language.English, collate.IgnoreCase)
	byName := func(a, b *models.AlumniRecord) int {
		if c := col.CompareString(a.FullName, b.FullName); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	}

	var cmp func(a, b *models.AlumniRecord) int
	desc := false
	switch sortBy {
	case models.SortByPassedOutYear:
		desc = order != "asc"
		cmp = func(a, b *models.AlumniRecord) int {
			return a.PassedOutYear - b.PassedOutYear
		}
	case models.SortByCreatedAt:
		desc = order != "asc"
		cmp = func(a, b *models.AlumniRecord) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	default:
		desc = order == "desc"
		cmp = byName
	}

	sort.SliceStable(records, func(i, j int) bool {
		c := cmp(&records[i], &records[j])
		if c == 0 {
			return byName(&records[i], &records[j]) < 0
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// topValues counts title-cased values and keeps the limit most frequent, ties alphabetical.
func topValues(values []string, limit int) []models.FacetValue {
	counts := make(map[string]int)
	for _, v := range values {
		v = textnorm.TitleCase(v)
		if v == "" {
			continue
		}
		counts[v]++
	}
	out := make([]models.FacetValue, 0, len(counts))
	for v, n := range counts {
		out = append(out, models.FacetValue{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func groupSchools(records []models.AlumniRecord) []models.SchoolSummary {
	bySlug := make(map[string]*models.SchoolSummary)
	for _, r := range records {
		if r.School == "" {
			continue
		}
		slug := textnorm.Slugify(r.School)
		if slug == "" {
			continue
		}
		summary, ok := bySlug[slug]
		if !ok {
			summary = &models.SchoolSummary{Name: r.School, Slug: slug}
			bySlug[slug] = summary
		}
		summary.Count++
	}
	out := make([]models.SchoolSummary, 0, len(bySlug))
	for _, summary := range bySlug {
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

var exportHeaders = []string{"Full Name", "Email", "Mobile", "Role", "Batch", "Profession", "Organisation", "City", "State", "School"}

func directoryDataset(records []models.AlumniRecord) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for _, r := range records {
		profession := r.Profession
		if r.ProfessionOther != "" {
			profession = r.ProfessionOther
		}
		rows = append(rows, map[string]string{
			"Full Name":    r.FullName,
			"Email":        r.Email,
			"Mobile":       r.Mobile,
			"Role":         string(r.Role),
			"Batch":        strconv.Itoa(r.JoinedYear) + "-" + strconv.Itoa(r.PassedOutYear),
			"Profession":   profession,
			"Organisation": r.OrganisationName,
			"City":         r.CurrentCity,
			"State":        r.CurrentState,
			"School":       r.School,
		})
	}
	return export.Dataset{Title: "Alumni Directory", Headers: exportHeaders, Rows: rows}
}
