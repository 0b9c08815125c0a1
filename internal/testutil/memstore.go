// Package testutil holds test doubles shared by the service and handler
// tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GTDGit/gradeshop_api/internal/models"
	"github.com/GTDGit/gradeshop_api/internal/repository"
)

type memState struct {
	nextID        int
	lookups       map[models.LookupKind][]models.Lookup
	products      []models.Product
	grades        []models.Grade
	templates     []models.GradeTemplate
	colorVariants []models.ColorVariant
	sizeVariants  []models.SizeVariant
	gradeLinks    []models.ProductColorGrade
}

func newMemState() *memState {
	return &memState{lookups: map[models.LookupKind][]models.Lookup{}}
}

func (s *memState) clone() *memState {
	c := &memState{
		nextID:        s.nextID,
		lookups:       make(map[models.LookupKind][]models.Lookup, len(s.lookups)),
		products:      append([]models.Product(nil), s.products...),
		grades:        append([]models.Grade(nil), s.grades...),
		templates:     append([]models.GradeTemplate(nil), s.templates...),
		colorVariants: append([]models.ColorVariant(nil), s.colorVariants...),
		sizeVariants:  append([]models.SizeVariant(nil), s.sizeVariants...),
		gradeLinks:    append([]models.ProductColorGrade(nil), s.gradeLinks...),
	}
	for k, v := range s.lookups {
		c.lookups[k] = append([]models.Lookup(nil), v...)
	}
	return c
}

func (s *memState) id() int {
	s.nextID++
	return s.nextID
}

// MemStore is an in-memory repository.Store. Transactions work on a copy of
// the state that replaces the committed state when fn succeeds.
type MemStore struct {
	mu    *sync.Mutex
	state *memState
	root  *MemStore
	inTx  bool
	hooks map[string]func() error
}

var _ repository.Store = (*MemStore)(nil)

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{mu: &sync.Mutex{}, state: newMemState(), hooks: map[string]func() error{}}
}

// Hook registers fn to run before method; a non-nil error is returned by
// the method without touching state. Pass nil to remove the hook.
func (m *MemStore) Hook(method string, fn func() error) {
	r := m.base()
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		delete(r.hooks, method)
		return
	}
	r.hooks[method] = fn
}

// FailOn makes method return err on every call.
func (m *MemStore) FailOn(method string, err error) {
	m.Hook(method, func() error { return err })
}

func (m *MemStore) base() *MemStore {
	if m.root != nil {
		return m.root
	}
	return m
}

// begin locks the store and runs the hook of method.
func (m *MemStore) begin(method string) (func(), error) {
	m.mu.Lock()
	b := m.base()
	var hook func() error
	if b == m {
		hook = m.hooks[method]
	} else {
		b.mu.Lock()
		hook = b.hooks[method]
		b.mu.Unlock()
	}
	if hook != nil {
		m.mu.Unlock()
		if err := hook(); err != nil {
			return nil, err
		}
		m.mu.Lock()
	}
	return m.mu.Unlock, nil
}

// WithTx implements repository.Store.
func (m *MemStore) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if m.inTx {
		return fn(m)
	}
	unlock, err := m.begin("WithTx")
	if err != nil {
		return err
	}
	tx := &MemStore{mu: &sync.Mutex{}, state: m.state.clone(), root: m, inTx: true}
	unlock()

	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = tx.state
	m.mu.Unlock()
	return nil
}

// Count returns the number of rows of a table: products, grades,
// grade_templates, color_variants, size_variants, product_color_grades or a
// lookup kind.
func (m *MemStore) Count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch table {
	case "products":
		return len(m.state.products)
	case "grades":
		return len(m.state.grades)
	case "grade_templates":
		return len(m.state.templates)
	case "color_variants":
		return len(m.state.colorVariants)
	case "size_variants":
		return len(m.state.sizeVariants)
	case "product_color_grades":
		return len(m.state.gradeLinks)
	}
	return len(m.state.lookups[models.LookupKind(table)])
}

func (m *MemStore) lookupName(kind models.LookupKind, id int) string {
	for _, l := range m.state.lookups[kind] {
		if l.ID == id {
			return l.Name
		}
	}
	return ""
}

// FindLookup implements repository.LookupStore.
func (m *MemStore) FindLookup(ctx context.Context, kind models.LookupKind, name string) (*models.Lookup, error) {
	unlock, err := m.begin("FindLookup")
	if err != nil {
		return nil, err
	}
	defer unlock()
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown lookup kind %q", kind)
	}
	for _, l := range m.state.lookups[kind] {
		if l.Name == name {
			out := l
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

// CreateLookup implements repository.LookupStore.
func (m *MemStore) CreateLookup(ctx context.Context, kind models.LookupKind, name, description string) (int, error) {
	unlock, err := m.begin("CreateLookup")
	if err != nil {
		return 0, err
	}
	defer unlock()
	if !kind.Valid() {
		return 0, fmt.Errorf("unknown lookup kind %q", kind)
	}
	for _, l := range m.state.lookups[kind] {
		if l.Name == name {
			return 0, repository.ErrConstraintRace
		}
	}
	l := models.Lookup{ID: m.state.id(), Name: name, Description: description, CreatedAt: time.Now()}
	m.state.lookups[kind] = append(m.state.lookups[kind], l)
	return l.ID, nil
}

// SeedLookup inserts a lookup row directly, bypassing hooks.
func (m *MemStore) SeedLookup(kind models.LookupKind, name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := models.Lookup{ID: m.state.id(), Name: name, CreatedAt: time.Now()}
	m.state.lookups[kind] = append(m.state.lookups[kind], l)
	return l.ID
}

// ListLookups implements repository.LookupStore.
func (m *MemStore) ListLookups(ctx context.Context, kind models.LookupKind) ([]models.Lookup, error) {
	unlock, err := m.begin("ListLookups")
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := append([]models.Lookup(nil), m.state.lookups[kind]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) productIndex(match func(p *models.Product) bool) int {
	for i := range m.state.products {
		if match(&m.state.products[i]) {
			return i
		}
	}
	return -1
}

// GetProductByCode implements repository.ProductStore.
func (m *MemStore) GetProductByCode(ctx context.Context, code string) (*models.Product, error) {
	unlock, err := m.begin("GetProductByCode")
	if err != nil {
		return nil, err
	}
	defer unlock()
	i := m.productIndex(func(p *models.Product) bool { return p.Code == code })
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	out := m.state.products[i]
	return &out, nil
}

// GetProductByID implements repository.ProductStore.
func (m *MemStore) GetProductByID(ctx context.Context, id int) (*models.Product, error) {
	unlock, err := m.begin("GetProductByID")
	if err != nil {
		return nil, err
	}
	defer unlock()
	i := m.productIndex(func(p *models.Product) bool { return p.ID == id })
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	out := m.state.products[i]
	return &out, nil
}

// CreateProduct implements repository.ProductStore.
func (m *MemStore) CreateProduct(ctx context.Context, p *models.Product) error {
	unlock, err := m.begin("CreateProduct")
	if err != nil {
		return err
	}
	defer unlock()
	if m.productIndex(func(x *models.Product) bool { return x.Code == p.Code }) >= 0 {
		return fmt.Errorf("%w: products_code_key", repository.ErrDuplicateKey)
	}
	if p.StockStrategy == "" {
		p.StockStrategy = models.StockPerSize
	}
	p.ID = m.state.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.state.products = append(m.state.products, *p)
	return nil
}

// PatchProduct implements repository.ProductStore.
func (m *MemStore) PatchProduct(ctx context.Context, id int, patch models.ProductPatch) error {
	unlock, err := m.begin("PatchProduct")
	if err != nil {
		return err
	}
	defer unlock()
	i := m.productIndex(func(p *models.Product) bool { return p.ID == id })
	if i < 0 {
		return repository.ErrNotFound
	}
	p := &m.state.products[i]
	if patch.Name != "" {
		p.Name = patch.Name
	}
	if patch.CategoryID != nil {
		p.CategoryID = *patch.CategoryID
	}
	if patch.TypeID != nil {
		p.TypeID = *patch.TypeID
	}
	if patch.GenderID != nil {
		g := *patch.GenderID
		p.GenderID = &g
	}
	if patch.Description != "" {
		p.Description = patch.Description
	}
	if patch.SuggestedPrice != nil {
		v := *patch.SuggestedPrice
		p.SuggestedPrice = &v
	}
	if patch.AllowOversell != nil {
		p.AllowOversell = *patch.AllowOversell
	}
	p.UpdatedAt = time.Now()
	return nil
}

// SetStockStrategy implements repository.ProductStore.
func (m *MemStore) SetStockStrategy(ctx context.Context, id int, strategy models.StockStrategy) error {
	unlock, err := m.begin("SetStockStrategy")
	if err != nil {
		return err
	}
	defer unlock()
	i := m.productIndex(func(p *models.Product) bool { return p.ID == id })
	if i < 0 {
		return repository.ErrNotFound
	}
	m.state.products[i].StockStrategy = strategy
	return nil
}

// ListProducts implements repository.ProductStore.
func (m *MemStore) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]models.Product, int, error) {
	unlock, err := m.begin("ListProducts")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	search := strings.ToLower(filter.Search)

	var matched []models.Product
	for _, p := range m.state.products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.Code), search) {
			continue
		}
		if filter.CategoryID > 0 && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.IsActive != nil && p.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})

	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

// FindGrade implements repository.GradeStore.
func (m *MemStore) FindGrade(ctx context.Context, name string) (*models.Grade, error) {
	unlock, err := m.begin("FindGrade")
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, g := range m.state.grades {
		if g.Name == name {
			out := g
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetGrade implements repository.GradeStore.
func (m *MemStore) GetGrade(ctx context.Context, id int) (*models.Grade, error) {
	unlock, err := m.begin("GetGrade")
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, g := range m.state.grades {
		if g.ID == id {
			out := g
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

// CreateGrade implements repository.GradeStore.
func (m *MemStore) CreateGrade(ctx context.Context, name, description string) (int, error) {
	unlock, err := m.begin("CreateGrade")
	if err != nil {
		return 0, err
	}
	defer unlock()
	for _, g := range m.state.grades {
		if g.Name == name {
			return 0, repository.ErrConstraintRace
		}
	}
	g := models.Grade{ID: m.state.id(), Name: name, Description: description, CreatedAt: time.Now()}
	m.state.grades = append(m.state.grades, g)
	return g.ID, nil
}

// ListGrades implements repository.GradeStore.
func (m *MemStore) ListGrades(ctx context.Context) ([]models.Grade, error) {
	unlock, err := m.begin("ListGrades")
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := append([]models.Grade(nil), m.state.grades...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateGradeTemplate implements repository.GradeStore.
func (m *MemStore) CreateGradeTemplate(ctx context.Context, t *models.GradeTemplate) error {
	unlock, err := m.begin("CreateGradeTemplate")
	if err != nil {
		return err
	}
	defer unlock()
	if t.RequiredQuantity < 0 {
		return fmt.Errorf("required_quantity must be >= 0")
	}
	for _, x := range m.state.templates {
		if x.GradeID == t.GradeID && x.SizeID == t.SizeID {
			return fmt.Errorf("%w: grade_templates_grade_id_size_id_key", repository.ErrDuplicateKey)
		}
	}
	t.ID = m.state.id()
	m.state.templates = append(m.state.templates, *t)
	return nil
}

// ListGradeTemplates implements repository.GradeStore.
func (m *MemStore) ListGradeTemplates(ctx context.Context, gradeID int) ([]models.GradeTemplate, error) {
	unlock, err := m.begin("ListGradeTemplates")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []models.GradeTemplate
	for _, t := range m.state.templates {
		if t.GradeID == gradeID {
			t.SizeName = m.lookupName(models.LookupSize, t.SizeID)
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateGradeTemplateQuantity implements repository.GradeStore.
func (m *MemStore) UpdateGradeTemplateQuantity(ctx context.Context, gradeID, sizeID, quantity int) error {
	unlock, err := m.begin("UpdateGradeTemplateQuantity")
	if err != nil {
		return err
	}
	defer unlock()
	for i := range m.state.templates {
		t := &m.state.templates[i]
		if t.GradeID == gradeID && t.SizeID == sizeID {
			t.RequiredQuantity = quantity
			return nil
		}
	}
	return repository.ErrNotFound
}

// FindColorVariant implements repository.VariantStore.
func (m *MemStore) FindColorVariant(ctx context.Context, productID, colorID int) (*models.ColorVariant, error) {
	unlock, err := m.begin("FindColorVariant")
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, cv := range m.state.colorVariants {
		if cv.ProductID == productID && cv.ColorID == colorID {
			cv.ColorName = m.lookupName(models.LookupColor, cv.ColorID)
			return &cv, nil
		}
	}
	return nil, repository.ErrNotFound
}

// CountColorVariants implements repository.VariantStore.
func (m *MemStore) CountColorVariants(ctx context.Context, productID int) (int, error) {
	unlock, err := m.begin("CountColorVariants")
	if err != nil {
		return 0, err
	}
	defer unlock()
	n := 0
	for _, cv := range m.state.colorVariants {
		if cv.ProductID == productID {
			n++
		}
	}
	return n, nil
}

// CreateColorVariant implements repository.VariantStore.
func (m *MemStore) CreateColorVariant(ctx context.Context, cv *models.ColorVariant) error {
	unlock, err := m.begin("CreateColorVariant")
	if err != nil {
		return err
	}
	defer unlock()
	for _, x := range m.state.colorVariants {
		if x.ProductID == cv.ProductID && x.ColorID == cv.ColorID {
			return fmt.Errorf("%w: color_variants_product_id_color_id_key", repository.ErrDuplicateKey)
		}
	}
	if cv.ImageStatus == "" {
		cv.ImageStatus = models.ImageNone
	}
	cv.ID = m.state.id()
	cv.CreatedAt = time.Now()
	m.state.colorVariants = append(m.state.colorVariants, *cv)
	return nil
}

// CreateSizeVariant implements repository.VariantStore.
func (m *MemStore) CreateSizeVariant(ctx context.Context, sv *models.SizeVariant) error {
	unlock, err := m.begin("CreateSizeVariant")
	if err != nil {
		return err
	}
	defer unlock()
	for _, x := range m.state.sizeVariants {
		if x.ProductID == sv.ProductID && x.ColorID == sv.ColorID && x.SizeID == sv.SizeID {
			sv.ID = x.ID
			return nil
		}
	}
	sv.ID = m.state.id()
	sv.CreatedAt = time.Now()
	m.state.sizeVariants = append(m.state.sizeVariants, *sv)
	return nil
}

// LinkGrade implements repository.VariantStore.
func (m *MemStore) LinkGrade(ctx context.Context, productID, colorID, gradeID int) (int, error) {
	unlock, err := m.begin("LinkGrade")
	if err != nil {
		return 0, err
	}
	defer unlock()
	return m.linkGrade(productID, colorID, gradeID), nil
}

func (m *MemStore) linkGrade(productID, colorID, gradeID int) int {
	for _, x := range m.state.gradeLinks {
		if x.ProductID == productID && x.ColorID == colorID && x.GradeID == gradeID {
			return x.ID
		}
	}
	link := models.ProductColorGrade{ID: m.state.id(), ProductID: productID, ColorID: colorID, GradeID: gradeID}
	m.state.gradeLinks = append(m.state.gradeLinks, link)
	return link.ID
}

// ListColorVariants implements repository.VariantStore.
func (m *MemStore) ListColorVariants(ctx context.Context, productID int) ([]models.ColorVariant, error) {
	unlock, err := m.begin("ListColorVariants")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []models.ColorVariant
	for _, cv := range m.state.colorVariants {
		if cv.ProductID == productID {
			cv.ColorName = m.lookupName(models.LookupColor, cv.ColorID)
			out = append(out, cv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsMainCatalog != out[j].IsMainCatalog {
			return out[i].IsMainCatalog
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListSizeVariants implements repository.VariantStore.
func (m *MemStore) ListSizeVariants(ctx context.Context, productID int) ([]models.SizeVariant, error) {
	unlock, err := m.begin("ListSizeVariants")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []models.SizeVariant
	for _, sv := range m.state.sizeVariants {
		if sv.ProductID == productID {
			sv.SizeName = m.lookupName(models.LookupSize, sv.SizeID)
			out = append(out, sv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ColorID != out[j].ColorID {
			return out[i].ColorID < out[j].ColorID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListPendingImages implements repository.VariantStore.
func (m *MemStore) ListPendingImages(ctx context.Context, limit int) ([]models.ColorVariant, error) {
	unlock, err := m.begin("ListPendingImages")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []models.ColorVariant
	for _, cv := range m.state.colorVariants {
		if cv.ImageStatus == models.ImagePending && len(out) < limit {
			out = append(out, cv)
		}
	}
	return out, nil
}

// UpdateColorVariantImage implements repository.VariantStore.
func (m *MemStore) UpdateColorVariantImage(ctx context.Context, id int, ref string, status models.ImageStatus) error {
	unlock, err := m.begin("UpdateColorVariantImage")
	if err != nil {
		return err
	}
	defer unlock()
	for i := range m.state.colorVariants {
		if m.state.colorVariants[i].ID == id {
			r := ref
			m.state.colorVariants[i].ImageRef = &r
			m.state.colorVariants[i].ImageStatus = status
			return nil
		}
	}
	return repository.ErrNotFound
}

// GetSizeStock implements repository.StockStore.
func (m *MemStore) GetSizeStock(ctx context.Context, productID, colorID, sizeID int) (int, error) {
	unlock, err := m.begin("GetSizeStock")
	if err != nil {
		return 0, err
	}
	defer unlock()
	for _, sv := range m.state.sizeVariants {
		if sv.ProductID == productID && sv.ColorID == colorID && sv.SizeID == sizeID {
			return sv.Stock, nil
		}
	}
	return 0, repository.ErrNotFound
}

// SetSizeStock implements repository.StockStore.
func (m *MemStore) SetSizeStock(ctx context.Context, productID, colorID, sizeID, quantity int) error {
	unlock, err := m.begin("SetSizeStock")
	if err != nil {
		return err
	}
	defer unlock()
	for i := range m.state.sizeVariants {
		sv := &m.state.sizeVariants[i]
		if sv.ProductID == productID && sv.ColorID == colorID && sv.SizeID == sizeID {
			sv.Stock = quantity
			return nil
		}
	}
	return repository.ErrNotFound
}

// GetGradeStock implements repository.StockStore.
func (m *MemStore) GetGradeStock(ctx context.Context, productID, colorID, gradeID int) (int, error) {
	unlock, err := m.begin("GetGradeStock")
	if err != nil {
		return 0, err
	}
	defer unlock()
	for _, x := range m.state.gradeLinks {
		if x.ProductID == productID && x.ColorID == colorID && x.GradeID == gradeID {
			return x.StockQuantity, nil
		}
	}
	return 0, repository.ErrNotFound
}

// SetGradeStock implements repository.StockStore.
func (m *MemStore) SetGradeStock(ctx context.Context, productID, colorID, gradeID, quantity int) error {
	unlock, err := m.begin("SetGradeStock")
	if err != nil {
		return err
	}
	defer unlock()
	id := m.linkGrade(productID, colorID, gradeID)
	for i := range m.state.gradeLinks {
		if m.state.gradeLinks[i].ID == id {
			m.state.gradeLinks[i].StockQuantity = quantity
		}
	}
	return nil
}

// ListGradeStock implements repository.StockStore.
func (m *MemStore) ListGradeStock(ctx context.Context, productID int) ([]models.ProductColorGrade, error) {
	unlock, err := m.begin("ListGradeStock")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []models.ProductColorGrade
	for _, x := range m.state.gradeLinks {
		if x.ProductID != productID {
			continue
		}
		for _, g := range m.state.grades {
			if g.ID == x.GradeID {
				x.GradeName = g.Name
			}
		}
		out = append(out, x)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ColorID != out[j].ColorID {
			return out[i].ColorID < out[j].ColorID
		}
		return out[i].GradeName < out[j].GradeName
	})
	return out, nil
}

// RefreshStockTotals implements repository.StockStore.
func (m *MemStore) RefreshStockTotals(ctx context.Context, productID int, strategy models.StockStrategy) error {
	unlock, err := m.begin("RefreshStockTotals")
	if err != nil {
		return err
	}
	defer unlock()
	for i := range m.state.colorVariants {
		cv := &m.state.colorVariants[i]
		if cv.ProductID != productID {
			continue
		}
		total := 0
		switch strategy {
		case models.StockPerSize:
			for _, sv := range m.state.sizeVariants {
				if sv.ProductID == productID && sv.ColorID == cv.ColorID {
					total += sv.Stock
				}
			}
		case models.StockPerGrade:
			for _, x := range m.state.gradeLinks {
				if x.ProductID == productID && x.ColorID == cv.ColorID {
					total += x.StockQuantity
				}
			}
		default:
			return fmt.Errorf("unknown stock strategy %q", strategy)
		}
		cv.StockTotal = total
	}
	return nil
}
