package domain

// ItemKind tags what a recipe line or movement refers to
type ItemKind string

const (
	ItemIngredient ItemKind = "ingredient"
	ItemProduct    ItemKind = "product"
)

// IsValid checks if the item kind is known
func (k ItemKind) IsValid() bool {
	switch k {
	case ItemIngredient, ItemProduct:
		return true
	default:
		return false
	}
}

// StockItem is anything whose stock can be consumed by a recipe line.
// Ingredients and finished products both implement it.
type StockItem interface {
	ItemID() string
	ItemName() string
	Kind() ItemKind
	StockUnit() string
	UnitCost() Money
	Stock() *StockLevel
	AddDomainEvent(event DomainEvent)
}

// eventRecorder collects domain events until the aggregate is saved
type eventRecorder struct {
	domainEvents []DomainEvent
}

func (r *eventRecorder) AddDomainEvent(event DomainEvent) {
	r.domainEvents = append(r.domainEvents, event)
}

func (r *eventRecorder) ClearDomainEvents() {
	r.domainEvents = nil
}

func (r *eventRecorder) GetDomainEvents() []DomainEvent {
	return r.domainEvents
}
