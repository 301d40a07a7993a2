package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Money is a decimal monetary amount in the business currency.
// It is stored as Decimal128 in MongoDB and as a JSON number over the wire.
type Money struct {
	amount decimal.Decimal
}

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrInvalidMoney   = errors.New("invalid money value")
)

// NewMoney creates Money from a float amount
func NewMoney(amount float64) Money {
	return Money{amount: decimal.NewFromFloat(amount)}
}

// MoneyFromDecimal wraps a decimal amount
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{amount: d}
}

// ParseMoney parses a decimal string such as "12.50"
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidMoney, s)
	}
	return Money{amount: d}, nil
}

// ZeroMoney returns a zero amount
func ZeroMoney() Money {
	return Money{amount: decimal.Zero}
}

// Decimal returns the underlying decimal amount
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Float64 returns the amount as a float, for metrics and display only
func (m Money) Float64() float64 {
	return m.amount.InexactFloat64()
}

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsPositive() bool { return m.amount.IsPositive() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Mul multiplies the amount by a quantity
func (m Money) Mul(qty float64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromFloat(qty))}
}

// Div divides the amount by a quantity
func (m Money) Div(qty float64) (Money, error) {
	if qty == 0 {
		return Money{}, ErrDivisionByZero
	}
	return Money{amount: m.amount.Div(decimal.NewFromFloat(qty))}, nil
}

// Round rounds half away from zero to the given decimal places
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.Round(places)}
}

func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// String returns the amount with two decimals
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// MarshalJSON writes the amount as a JSON number
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.amount.String()), nil
}

// UnmarshalJSON accepts numbers and quoted decimal strings
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		m.amount = decimal.Zero
		return nil
	}
	return m.amount.UnmarshalJSON(data)
}

// MarshalBSONValue implements bson.ValueMarshaler
func (m Money) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d128, err := primitive.ParseDecimal128(m.amount.String())
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidMoney, err)
	}
	return bson.MarshalValue(d128)
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler. Legacy documents
// stored plain doubles and integers, both are accepted.
func (m *Money) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bsontype.Decimal128:
		d, err := decimal.NewFromString(raw.Decimal128().String())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMoney, err)
		}
		m.amount = d
	case bsontype.Double:
		m.amount = decimal.NewFromFloat(raw.Double())
	case bsontype.Int32:
		m.amount = decimal.NewFromInt32(raw.Int32())
	case bsontype.Int64:
		m.amount = decimal.NewFromInt(raw.Int64())
	case bsontype.String:
		d, err := decimal.NewFromString(raw.StringValue())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMoney, err)
		}
		m.amount = d
	case bsontype.Null, bsontype.Undefined:
		m.amount = decimal.Zero
	default:
		return fmt.Errorf("%w: unexpected bson type %s", ErrInvalidMoney, t)
	}

	return nil
}
