package cart

import (
	"testing"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/RoyceAzure/lab/assia/internal/parser"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CartTestSuite struct {
	suite.Suite
	cart *Cart
}

func TestCartTestSuite(t *testing.T) {
	suite.Run(t, new(CartTestSuite))
}

func (suite *CartTestSuite) SetupTest() {
	suite.cart = New()
}

func card(name, price string) model.ProductCard {
	return model.ProductCard{
		Name:         name,
		PriceDisplay: price,
		Price:        parser.ParsePrice(price),
	}
}

func (suite *CartTestSuite) TestAddMergesByIdentity() {
	suite.cart.Add(card("**Bíblia de Estudo**", "Preço: $49.90"))
	line := suite.cart.Add(card("  bíblia   DE estudo ", "Preço: $10.00"))

	require.Equal(suite.T(), 1, suite.cart.Len(), "相同 identity 不應該新增第二筆")
	assert.Equal(suite.T(), 2, line.Quantity)
	// 先加入的價格與名稱保留
	assert.Equal(suite.T(), "Bíblia de Estudo", line.Name)
	assert.True(suite.T(), decimal.RequireFromString("49.90").Equal(line.UnitPrice))
	assert.True(suite.T(), decimal.RequireFromString("99.80").Equal(suite.cart.Subtotal()))
}

func (suite *CartTestSuite) TestSubtotalAfterNAdds() {
	price := decimal.RequireFromString("12.35")
	for i := 0; i < 7; i++ {
		suite.cart.Add(model.ProductCard{Name: "**Harpa**", PriceDisplay: "Preço: $12.35"})
	}
	assert.True(suite.T(), price.Mul(decimal.NewFromInt(7)).Equal(suite.cart.Subtotal()))
	assert.Equal(suite.T(), 7, suite.cart.ItemCount())
}

func (suite *CartTestSuite) TestUnitPriceFromDisplay() {
	testCases := []struct {
		name     string
		card     model.ProductCard
		expected string
	}{
		{
			name:     "只有 price_display",
			card:     model.ProductCard{Name: "**Livro A**", PriceDisplay: "Preço: $49.90"},
			expected: "49.90",
		},
		{
			name:     "忽略卡片上的 Price",
			card:     model.ProductCard{Name: "**Livro B**", PriceDisplay: "Preço: $19.50", Price: decimal.NewFromInt(-500)},
			expected: "19.50",
		},
		{
			name:     "逗號小數",
			card:     model.ProductCard{Name: "**Livro C**", PriceDisplay: "R$ 7,25"},
			expected: "7.25",
		},
		{
			name:     "無法解析時為 0",
			card:     model.ProductCard{Name: "**Livro D**", PriceDisplay: "Consulte", Price: decimal.NewFromInt(10)},
			expected: "0",
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			line := suite.cart.Add(tc.card)
			assert.True(suite.T(), decimal.RequireFromString(tc.expected).Equal(line.UnitPrice), line.UnitPrice.String())
		})
	}
}

func (suite *CartTestSuite) TestRemove() {
	suite.cart.Add(card("**Livro A**", "Preço: $1.00"))
	suite.cart.Add(card("**Livro B**", "Preço: $2.00"))
	before := suite.cart.Lines()

	// 不存在的 identity 不改變購物車
	assert.False(suite.T(), suite.cart.Remove("livro-c"))
	assert.Equal(suite.T(), before, suite.cart.Lines())

	assert.True(suite.T(), suite.cart.Remove("livro-a"))
	lines := suite.cart.Lines()
	require.Len(suite.T(), lines, 1)
	assert.Equal(suite.T(), "livro-b", lines[0].Identity)
}

func (suite *CartTestSuite) TestLinesAreCopies() {
	suite.cart.Add(card("**Livro A**", "Preço: $1.00"))
	lines := suite.cart.Lines()
	lines[0].Quantity = 99

	assert.Equal(suite.T(), 1, suite.cart.Lines()[0].Quantity)
}

func (suite *CartTestSuite) TestTotalAndClear() {
	fee := decimal.RequireFromString("6.99")
	assert.True(suite.T(), decimal.Zero.Equal(suite.cart.Total(fee)), "空購物車不計運費")

	suite.cart.Add(card("**Livro A**", "Preço: $3.01"))
	assert.True(suite.T(), decimal.RequireFromString("10.00").Equal(suite.cart.Total(fee)))

	suite.cart.Clear()
	assert.True(suite.T(), suite.cart.IsEmpty())
	assert.True(suite.T(), decimal.Zero.Equal(suite.cart.Subtotal()))
}

func TestIdentity(t *testing.T) {
	testCases := []struct {
		name     string
		expected string
	}{
		{name: "**Bíblia de Estudo**", expected: "bíblia-de-estudo"},
		{name: "  Harpa\tCristã  Grande ", expected: "harpa-cristã-grande"},
		{name: "**ÚNICO**", expected: "único"},
		{name: "", expected: ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Identity(tc.name))
	}
}
