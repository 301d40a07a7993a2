package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/cobrify/stock-service/internal/domain"
	"github.com/cobrify/stock-service/pkg/cloudevents"
	sharedmongo "github.com/cobrify/stock-service/pkg/mongodb"
	pkgtesting "github.com/cobrify/stock-service/pkg/testing"
)

const testBusiness = "biz-test"

type RepositoryIntegrationTestSuite struct {
	suite.Suite
	container *pkgtesting.MongoDBContainer
	client    *sharedmongo.Client
	repos     *Repositories
	ctx       context.Context
}

func TestRepositoryIntegrationTestSuite(t *testing.T) {
	pkgtesting.SkipIfShort(t)
	suite.Run(t, new(RepositoryIntegrationTestSuite))
}

func (s *RepositoryIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := pkgtesting.NewMongoDBContainer(s.ctx)
	s.Require().NoError(err)
	s.container = container

	mongoClient, err := container.GetClient(s.ctx)
	s.Require().NoError(err)
	s.client = sharedmongo.Wrap(mongoClient, "stock_test")

	s.repos = NewRepositories(s.client, cloudevents.NewEventFactory(cloudevents.SourceStock), nil)
	s.Require().NoError(s.repos.EnsureIndexes(s.ctx))
}

func (s *RepositoryIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close(s.ctx)
	}
	if s.container != nil {
		s.Require().NoError(s.container.Close(s.ctx))
	}
}

func (s *RepositoryIntegrationTestSuite) TearDownTest() {
	for _, name := range []string{
		CollectionIngredients, CollectionProducts, CollectionPurchases, CollectionRecipes,
		CollectionMovements, CollectionProductions, CollectionWarehouses, "outbox_events",
	} {
		_, _ = s.client.Collection(name).DeleteMany(s.ctx, bson.M{})
	}
}

func (s *RepositoryIntegrationTestSuite) newIngredient(name string, stock, minimum float64) *domain.Ingredient {
	ing, err := domain.NewIngredient(testBusiness, name, "secos", "kg", stock, domain.NewMoney(3), minimum)
	s.Require().NoError(err)
	return ing
}

func (s *RepositoryIntegrationTestSuite) TestIngredient_SaveBumpsVersion() {
	ing := s.newIngredient("Harina", 10, 0)
	s.Require().NoError(s.repos.Ingredients.Save(s.ctx, ing))
	s.Equal(int64(1), ing.Version)

	ing.Credit("wh-1", 5)
	s.Require().NoError(s.repos.Ingredients.Save(s.ctx, ing))
	s.Equal(int64(2), ing.Version)

	stored, err := s.repos.Ingredients.FindByID(s.ctx, testBusiness, ing.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored)
	s.Equal(int64(2), stored.Version)
	s.Equal(15.0, stored.CurrentStock)
	s.Len(stored.WarehouseStocks, 1)
	s.Equal(15.0, stored.StockInWarehouse("wh-1"))
	s.True(stored.AverageCost.Equal(domain.NewMoney(3)))
}

func (s *RepositoryIntegrationTestSuite) TestIngredient_StaleVersionIsRejected() {
	ing := s.newIngredient("Azúcar", 4, 0)
	s.Require().NoError(s.repos.Ingredients.Save(s.ctx, ing))

	first, err := s.repos.Ingredients.FindByID(s.ctx, testBusiness, ing.ID)
	s.Require().NoError(err)
	second, err := s.repos.Ingredients.FindByID(s.ctx, testBusiness, ing.ID)
	s.Require().NoError(err)

	first.Deduct("", 1)
	s.Require().NoError(s.repos.Ingredients.Save(s.ctx, first))

	second.Deduct("", 2)
	err = s.repos.Ingredients.Save(s.ctx, second)
	s.True(errors.Is(err, domain.ErrConcurrentModification))
	s.Equal(int64(1), second.Version)

	stored, err := s.repos.Ingredients.FindByID(s.ctx, testBusiness, ing.ID)
	s.Require().NoError(err)
	s.Equal(3.0, stored.CurrentStock)
}

func (s *RepositoryIntegrationTestSuite) TestIngredient_SaveAdoptsUnversionedDocument() {
	ing := s.newIngredient("Sal", 7, 0)
	_, err := s.client.Collection(CollectionIngredients).InsertOne(s.ctx, bson.M{
		"_id":          ing.ID,
		"businessId":   testBusiness,
		"name":         "Sal",
		"purchaseUnit": "kg",
		"currentStock": 7.0,
	})
	s.Require().NoError(err)

	legacy, err := s.repos.Ingredients.FindByID(s.ctx, testBusiness, ing.ID)
	s.Require().NoError(err)
	s.Require().NotNil(legacy)
	s.Equal(int64(0), legacy.Version)

	legacy.Deduct("", 2)
	s.Require().NoError(s.repos.Ingredients.Save(s.ctx, legacy))
	s.Equal(int64(1), legacy.Version)

	stored, err := s.repos.Ingredients.FindByID(s.ctx, testBusiness, ing.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stored.Version)
	s.Equal(5.0, stored.CurrentStock)

	// a second writer still holding version 0 loses
	ing.Deduct("", 1)
	err = s.repos.Ingredients.Save(s.ctx, ing)
	s.True(errors.Is(err, domain.ErrConcurrentModification))
}

func (s *RepositoryIntegrationTestSuite) TestIngredient_EventsGoToOutboxInTransaction() {
	ing := s.newIngredient("Leche", 10, 5)
	s.Require().NoError(s.repos.Ingredients.Save(s.ctx, ing))

	ing.CheckLowStock(ing.Deduct("", 6))
	s.Require().Len(ing.GetDomainEvents(), 1)

	err := s.client.WithinTransaction(s.ctx, func(ctx context.Context) error {
		return s.repos.Ingredients.Save(ctx, ing)
	})
	s.Require().NoError(err)
	s.Empty(ing.GetDomainEvents())

	events, err := s.repos.Outbox.FindByAggregateID(s.ctx, ing.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(cloudevents.LowStockAlert, events[0].EventType)
	s.Equal(testBusiness, events[0].BusinessID)
}

func (s *RepositoryIntegrationTestSuite) TestTransactionRollbackDiscardsAllWrites() {
	ing := s.newIngredient("Queso", 2, 0)
	movement := domain.NewStockMovement(ing, testBusiness, domain.MovementAdjustment, 2, domain.StockChange{Before: 0, After: 2}, "alta")

	err := s.client.WithinTransaction(s.ctx, func(ctx context.Context) error {
		if err := s.repos.Ingredients.Save(ctx, ing); err != nil {
			return err
		}
		if err := s.repos.Movements.Append(ctx, movement); err != nil {
			return err
		}
		return errors.New("abort")
	})
	s.Require().Error(err)

	stored, err := s.repos.Ingredients.FindByID(s.ctx, testBusiness, ing.ID)
	s.Require().NoError(err)
	s.Nil(stored)

	movements, err := s.repos.Movements.Find(s.ctx, testBusiness, domain.MovementFilter{})
	s.Require().NoError(err)
	s.Empty(movements)
}

func (s *RepositoryIntegrationTestSuite) TestIngredient_FindLowStock() {
	s.Require().NoError(s.repos.Ingredients.Save(s.ctx, s.newIngredient("Sal", 1, 2)))
	s.Require().NoError(s.repos.Ingredients.Save(s.ctx, s.newIngredient("Aceite", 8, 2)))
	s.Require().NoError(s.repos.Ingredients.Save(s.ctx, s.newIngredient("Agua", 0, 0)))

	low, err := s.repos.Ingredients.FindLowStock(s.ctx, testBusiness)
	s.Require().NoError(err)
	s.Require().Len(low, 1)
	s.Equal("Sal", low[0].Name)
}

func (s *RepositoryIntegrationTestSuite) TestMovement_FindFilters() {
	ing := s.newIngredient("Tomate", 0, 0)
	sale := domain.NewStockMovement(ing, testBusiness, domain.MovementSale, 1, domain.StockChange{WarehouseID: "wh-1", Before: 3, After: 2}, "Venta: Pizza")
	purchase := domain.NewStockMovement(ing, testBusiness, domain.MovementPurchase, 3, domain.StockChange{WarehouseID: "wh-2", Before: 0, After: 3}, "Compra - Sin proveedor")
	transfer := domain.NewStockMovement(ing, testBusiness, domain.MovementTransfer, -1, domain.StockChange{Before: 2, After: 2}, "Transferencia")
	transfer.FromWarehouseID = "wh-1"
	transfer.ToWarehouseID = "wh-3"
	s.Require().NoError(s.repos.Movements.Append(s.ctx, sale, purchase, transfer))

	byWarehouse, err := s.repos.Movements.Find(s.ctx, testBusiness, domain.MovementFilter{WarehouseID: "wh-1"})
	s.Require().NoError(err)
	s.Len(byWarehouse, 2)

	byType, err := s.repos.Movements.Find(s.ctx, testBusiness, domain.MovementFilter{Type: domain.MovementPurchase})
	s.Require().NoError(err)
	s.Require().Len(byType, 1)
	s.Equal(purchase.ID, byType[0].ID)

	limited, err := s.repos.Movements.Find(s.ctx, testBusiness, domain.MovementFilter{EntityID: ing.ID, Limit: 1})
	s.Require().NoError(err)
	s.Len(limited, 1)
}

func (s *RepositoryIntegrationTestSuite) TestProduction_FindAllFilters() {
	product, err := domain.NewProduct(testBusiness, "Pan de Molde", "unidad", domain.NewMoney(8), 0)
	s.Require().NoError(err)

	recipeRun, err := domain.NewProduction(testBusiness, product, 10, domain.ProductionRecipe, "", "", "u1")
	s.Require().NoError(err)
	manualRun, err := domain.NewProduction(testBusiness, product, 5, domain.ProductionManual, "", "", "u1")
	s.Require().NoError(err)
	manualRun.CreatedAt = time.Now().UTC().AddDate(0, 0, -3)

	s.Require().NoError(s.repos.Productions.Save(s.ctx, recipeRun))
	s.Require().NoError(s.repos.Productions.Save(s.ctx, manualRun))

	manual, err := s.repos.Productions.FindAll(s.ctx, testBusiness, domain.ProductionFilter{Mode: domain.ProductionManual})
	s.Require().NoError(err)
	s.Require().Len(manual, 1)
	s.Equal(manualRun.ID, manual[0].ID)

	searched, err := s.repos.Productions.FindAll(s.ctx, testBusiness, domain.ProductionFilter{Search: "molde"})
	s.Require().NoError(err)
	s.Len(searched, 2)

	today := time.Now().UTC()
	recent, err := s.repos.Productions.FindAll(s.ctx, testBusiness, domain.ProductionFilter{DateFrom: &today, DateTo: &today})
	s.Require().NoError(err)
	s.Require().Len(recent, 1)
	s.Equal(recipeRun.ID, recent[0].ID)
}

func (s *RepositoryIntegrationTestSuite) TestRecipe_FindByProductReturnsOldest() {
	lines := []domain.RecipeLine{{Kind: domain.ItemIngredient, ItemID: "ing-1", ItemName: "Harina", Quantity: 1, Unit: "kg"}}

	older, err := domain.NewRecipe(testBusiness, "prod-1", "Pan", lines, 1, "")
	s.Require().NoError(err)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer, err := domain.NewRecipe(testBusiness, "prod-1", "Pan", lines, 2, "")
	s.Require().NoError(err)

	s.Require().NoError(s.repos.Recipes.Save(s.ctx, newer))
	s.Require().NoError(s.repos.Recipes.Save(s.ctx, older))

	found, err := s.repos.Recipes.FindByProductID(s.ctx, testBusiness, "prod-1")
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(older.ID, found.ID)

	missing, err := s.repos.Recipes.FindByProductID(s.ctx, testBusiness, "prod-2")
	s.Require().NoError(err)
	s.Nil(missing)
}

func (s *RepositoryIntegrationTestSuite) TestWarehouse_ClearDefault() {
	main, err := domain.NewWarehouse(testBusiness, "Principal", "", "", true)
	s.Require().NoError(err)
	branch, err := domain.NewWarehouse(testBusiness, "Sucursal", "", "branch-1", true)
	s.Require().NoError(err)
	s.Require().NoError(s.repos.Warehouses.Save(s.ctx, main))
	s.Require().NoError(s.repos.Warehouses.Save(s.ctx, branch))

	s.Require().NoError(s.repos.Warehouses.ClearDefault(s.ctx, testBusiness, branch.ID))

	all, err := s.repos.Warehouses.FindAll(s.ctx, testBusiness)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.False(all[0].IsDefault)
	s.True(all[1].IsDefault)

	s.ErrorIs(s.repos.Warehouses.Delete(s.ctx, testBusiness, "nope"), domain.ErrWarehouseNotFound)
}

func (s *RepositoryIntegrationTestSuite) TestPurchase_FindAllByIngredient() {
	ing := s.newIngredient("Harina", 0, 0)
	p1, err := domain.NewPurchase(ing, 5, "kg", domain.NewMoney(2), "Molino", "F-1", "", time.Now().UTC().Add(-time.Hour))
	s.Require().NoError(err)
	p2, err := domain.NewPurchase(ing, 500, "g", domain.NewMoney(0.01), "", "", "", time.Time{})
	s.Require().NoError(err)
	other, err := domain.NewPurchase(s.newIngredient("Sal", 0, 0), 1, "kg", domain.NewMoney(1), "", "", "", time.Time{})
	s.Require().NoError(err)

	for _, p := range []*domain.Purchase{p1, p2, other} {
		s.Require().NoError(s.repos.Purchases.Save(s.ctx, p))
	}

	purchases, err := s.repos.Purchases.FindAll(s.ctx, testBusiness, ing.ID)
	s.Require().NoError(err)
	s.Require().Len(purchases, 2)
	s.Equal(p2.ID, purchases[0].ID)
	s.True(purchases[1].TotalCost.Equal(domain.NewMoney(10)))

	all, err := s.repos.Purchases.FindAll(s.ctx, testBusiness, "")
	s.Require().NoError(err)
	s.Len(all, 3)
}
