package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cobrify/stock-service/internal/application"
)

func TestWriteStockByBranch(t *testing.T) {
	var buf bytes.Buffer
	err := WriteStockByBranch(&buf, []application.BranchStockDTO{
		{ItemID: "ing-1", ItemKind: "ingredient", Name: "Harina", Unit: "kg", Stock: 12.5},
		{ItemID: "prod-1", ItemKind: "product", Name: "Pan", Unit: "unidad", Stock: 3},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(stockSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, stockHeadings, rows[0])
	assert.Equal(t, []string{"Harina", "ingredient", "kg", "12.5"}, rows[1])
	assert.Equal(t, []string{"Pan", "product", "unidad", "3"}, rows[2])
}

func TestWriteStockByBranch_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStockByBranch(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(stockSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestStockByBranchFilename(t *testing.T) {
	assert.Equal(t, "stock-all.xlsx", StockByBranchFilename(""))
	assert.Equal(t, "stock-br-7.xlsx", StockByBranchFilename("br-7"))
}
