package application

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cobrify/stock-service/internal/domain"
)

// Repositories hand out copies so that in-memory mutations only become
// visible through Save, the same as a database round trip.

func cloneStock(s domain.StockLevel) domain.StockLevel {
	s.WarehouseStocks = append([]domain.WarehouseStock(nil), s.WarehouseStocks...)
	return s
}

type fakeIngredientRepo struct {
	mu      sync.Mutex
	items   map[string]*domain.Ingredient
	events  []domain.DomainEvent
	saves   int
	saveErr error
	findErr error
}

func newFakeIngredientRepo(ingredients ...*domain.Ingredient) *fakeIngredientRepo {
	f := &fakeIngredientRepo{items: make(map[string]*domain.Ingredient)}
	for _, ing := range ingredients {
		f.put(ing)
	}
	return f
}

func (f *fakeIngredientRepo) put(ing *domain.Ingredient) {
	c := *ing
	c.StockLevel = cloneStock(ing.StockLevel)
	c.ClearDomainEvents()
	f.items[ing.ID] = &c
}

func (f *fakeIngredientRepo) get(id string) *domain.Ingredient {
	f.mu.Lock()
	defer f.mu.Unlock()
	ing, ok := f.items[id]
	if !ok {
		return nil
	}
	c := *ing
	c.StockLevel = cloneStock(ing.StockLevel)
	return &c
}

func (f *fakeIngredientRepo) Save(ctx context.Context, ing *domain.Ingredient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if stored, ok := f.items[ing.ID]; ok && stored.Version != ing.Version {
		return domain.ErrConcurrentModification
	}
	ing.Version++
	f.saves++
	f.events = append(f.events, ing.GetDomainEvents()...)
	ing.ClearDomainEvents()
	f.put(ing)
	return nil
}

func (f *fakeIngredientRepo) FindByID(ctx context.Context, businessID, id string) (*domain.Ingredient, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.get(id), nil
}

func (f *fakeIngredientRepo) FindAll(ctx context.Context, businessID string) ([]*domain.Ingredient, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	ids := make([]string, 0, len(f.items))
	for id := range f.items {
		ids = append(ids, id)
	}
	f.mu.Unlock()

	result := make([]*domain.Ingredient, 0, len(ids))
	for _, id := range ids {
		result = append(result, f.get(id))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (f *fakeIngredientRepo) FindLowStock(ctx context.Context, businessID string) ([]*domain.Ingredient, error) {
	all, err := f.FindAll(ctx, businessID)
	if err != nil {
		return nil, err
	}
	low := make([]*domain.Ingredient, 0)
	for _, ing := range all {
		if ing.IsLowStock() {
			low = append(low, ing)
		}
	}
	return low, nil
}

func (f *fakeIngredientRepo) Delete(ctx context.Context, businessID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return domain.ErrIngredientNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeProductRepo struct {
	mu     sync.Mutex
	items  map[string]*domain.Product
	events []domain.DomainEvent
	// conflicts makes the next n saves fail with a version conflict
	conflicts int
}

func newFakeProductRepo(products ...*domain.Product) *fakeProductRepo {
	f := &fakeProductRepo{items: make(map[string]*domain.Product)}
	for _, p := range products {
		f.put(p)
	}
	return f
}

func (f *fakeProductRepo) put(p *domain.Product) {
	c := *p
	c.StockLevel = cloneStock(p.StockLevel)
	c.ClearDomainEvents()
	f.items[p.ID] = &c
}

func (f *fakeProductRepo) get(id string) *domain.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil
	}
	c := *p
	c.StockLevel = cloneStock(p.StockLevel)
	return &c
}

func (f *fakeProductRepo) Save(ctx context.Context, p *domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflicts > 0 {
		f.conflicts--
		return domain.ErrConcurrentModification
	}
	if stored, ok := f.items[p.ID]; ok && stored.Version != p.Version {
		return domain.ErrConcurrentModification
	}
	p.Version++
	f.events = append(f.events, p.GetDomainEvents()...)
	p.ClearDomainEvents()
	f.put(p)
	return nil
}

func (f *fakeProductRepo) FindByID(ctx context.Context, businessID, id string) (*domain.Product, error) {
	return f.get(id), nil
}

func (f *fakeProductRepo) FindAll(ctx context.Context, businessID string) ([]*domain.Product, error) {
	f.mu.Lock()
	ids := make([]string, 0, len(f.items))
	for id := range f.items {
		ids = append(ids, id)
	}
	f.mu.Unlock()

	result := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		result = append(result, f.get(id))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type fakePurchaseRepo struct {
	items map[string]*domain.Purchase
}

func newFakePurchaseRepo() *fakePurchaseRepo {
	return &fakePurchaseRepo{items: make(map[string]*domain.Purchase)}
}

func (f *fakePurchaseRepo) Save(ctx context.Context, p *domain.Purchase) error {
	f.items[p.ID] = p
	return nil
}

func (f *fakePurchaseRepo) FindByID(ctx context.Context, businessID, id string) (*domain.Purchase, error) {
	return f.items[id], nil
}

func (f *fakePurchaseRepo) FindAll(ctx context.Context, businessID, ingredientID string) ([]*domain.Purchase, error) {
	result := make([]*domain.Purchase, 0)
	for _, p := range f.items {
		if ingredientID == "" || p.IngredientID == ingredientID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (f *fakePurchaseRepo) Delete(ctx context.Context, businessID, id string) error {
	if _, ok := f.items[id]; !ok {
		return domain.ErrPurchaseNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeRecipeRepo struct {
	mu    sync.Mutex
	items map[string]*domain.Recipe
	saves int
}

func newFakeRecipeRepo(recipes ...*domain.Recipe) *fakeRecipeRepo {
	f := &fakeRecipeRepo{items: make(map[string]*domain.Recipe)}
	for _, r := range recipes {
		f.items[r.ID] = r
	}
	return f
}

func (f *fakeRecipeRepo) Save(ctx context.Context, r *domain.Recipe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.items[r.ID] = r
	return nil
}

func (f *fakeRecipeRepo) FindByID(ctx context.Context, businessID, id string) (*domain.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id], nil
}

func (f *fakeRecipeRepo) FindByProductID(ctx context.Context, businessID, productID string) (*domain.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.items {
		if r.ProductID == productID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRecipeRepo) FindAll(ctx context.Context, businessID string) ([]*domain.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*domain.Recipe, 0, len(f.items))
	for _, r := range f.items {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ProductName < result[j].ProductName })
	return result, nil
}

func (f *fakeRecipeRepo) Delete(ctx context.Context, businessID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return domain.ErrRecipeNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeMovementRepo struct {
	movements []*domain.StockMovement
}

func (f *fakeMovementRepo) Append(ctx context.Context, movements ...*domain.StockMovement) error {
	f.movements = append(f.movements, movements...)
	return nil
}

func (f *fakeMovementRepo) Find(ctx context.Context, businessID string, filter domain.MovementFilter) ([]*domain.StockMovement, error) {
	result := make([]*domain.StockMovement, 0)
	for _, m := range f.movements {
		if filter.EntityID != "" && m.EntityID != filter.EntityID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		if filter.SaleID != "" && m.RelatedSaleID != filter.SaleID {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}

func (f *fakeMovementRepo) ofType(t domain.MovementType) []*domain.StockMovement {
	result := make([]*domain.StockMovement, 0)
	for _, m := range f.movements {
		if m.Type == t {
			result = append(result, m)
		}
	}
	return result
}

type fakeProductionRepo struct {
	productions []*domain.Production
	lastFilter  domain.ProductionFilter
}

func (f *fakeProductionRepo) Save(ctx context.Context, p *domain.Production) error {
	f.productions = append(f.productions, p)
	return nil
}

func (f *fakeProductionRepo) FindAll(ctx context.Context, businessID string, filter domain.ProductionFilter) ([]*domain.Production, error) {
	f.lastFilter = filter
	result := make([]*domain.Production, 0)
	for _, p := range f.productions {
		if filter.Mode != "" && p.Mode != filter.Mode {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.ProductName), strings.ToLower(filter.Search)) {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

type fakeWarehouseRepo struct {
	items []*domain.Warehouse
}

func (f *fakeWarehouseRepo) Save(ctx context.Context, w *domain.Warehouse) error {
	for i, existing := range f.items {
		if existing.ID == w.ID {
			f.items[i] = w
			return nil
		}
	}
	f.items = append(f.items, w)
	return nil
}

func (f *fakeWarehouseRepo) FindByID(ctx context.Context, businessID, id string) (*domain.Warehouse, error) {
	for _, w := range f.items {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, nil
}

func (f *fakeWarehouseRepo) FindAll(ctx context.Context, businessID string) ([]*domain.Warehouse, error) {
	return append([]*domain.Warehouse(nil), f.items...), nil
}

func (f *fakeWarehouseRepo) ClearDefault(ctx context.Context, businessID, exceptID string) error {
	for _, w := range f.items {
		if w.ID != exceptID {
			w.IsDefault = false
		}
	}
	return nil
}

func (f *fakeWarehouseRepo) Delete(ctx context.Context, businessID, id string) error {
	for i, w := range f.items {
		if w.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrWarehouseNotFound
}

// fakeTx runs fn directly; rollback is not emulated
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type testStore struct {
	ingredients *fakeIngredientRepo
	products    *fakeProductRepo
	movements   *fakeMovementRepo
	tx          *fakeTx
}

func newTestStore(ingredients []*domain.Ingredient, products []*domain.Product) *testStore {
	return &testStore{
		ingredients: newFakeIngredientRepo(ingredients...),
		products:    newFakeProductRepo(products...),
		movements:   &fakeMovementRepo{},
		tx:          &fakeTx{},
	}
}

func (s *testStore) store() StockStore {
	return StockStore{
		Ingredients: s.ingredients,
		Products:    s.products,
		Movements:   s.movements,
		Tx:          s.tx,
	}
}

func mustIngredient(name, unit string, stock, cost, minimum float64) *domain.Ingredient {
	ing, err := domain.NewIngredient("biz-1", name, "", unit, stock, domain.NewMoney(cost), minimum)
	if err != nil {
		panic(err)
	}
	return ing
}

func mustProduct(name string, stock, price float64) *domain.Product {
	p, err := domain.NewProduct("biz-1", name, domain.UnitPiece, domain.NewMoney(price), stock)
	if err != nil {
		panic(err)
	}
	return p
}
