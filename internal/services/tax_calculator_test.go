package services

import (
	"testing"

	"backend/internal/models/enums"

	"github.com/stretchr/testify/require"
)

func TestComputeTaxes_S1HappyPath(t *testing.T) {
	result, err := ComputeTaxes([]LineInput{
		{ProductCode: "SKU-1", Description: "widget", Cantidad: 1, PrecioUnit: 100, TarifaIVA: 15},
	}, false)
	require.NoError(t, err)

	require.Equal(t, 100.0, result.Summary.TotalSinImpuestos)
	require.Equal(t, 15.0, result.Summary.TotalIVA)
	require.Equal(t, 115.0, result.Summary.ImporteTotal)
	require.Len(t, result.Aggregates, 1)
	require.Equal(t, enums.TaxCode15, result.Aggregates[0].CodigoPorcentaje)
}

func TestComputeTaxes_NormalizesFractionalTariff(t *testing.T) {
	result, err := ComputeTaxes([]LineInput{
		{Cantidad: 2, PrecioUnit: 10, TarifaIVA: 0.12},
	}, false)
	require.NoError(t, err)
	require.Equal(t, enums.TaxCode12, result.Lines[0].TaxCode)
	require.Equal(t, 2.4, result.Summary.TotalIVA)
}

func TestComputeTaxes_UnsupportedTariffHardErrorsByDefault(t *testing.T) {
	_, err := ComputeTaxes([]LineInput{
		{Cantidad: 1, PrecioUnit: 10, TarifaIVA: 8},
	}, false)
	require.Error(t, err)
}

func TestComputeTaxes_UnsupportedTariffDegradesWhenLenient(t *testing.T) {
	result, err := ComputeTaxes([]LineInput{
		{Cantidad: 1, PrecioUnit: 10, TarifaIVA: 8},
	}, true)
	require.NoError(t, err)
	require.Equal(t, enums.TaxCode0, result.Lines[0].TaxCode)
	require.Equal(t, 0.0, result.Summary.TotalIVA)
}

func TestComputeTaxes_AggregatesMultipleLinesByTariff(t *testing.T) {
	result, err := ComputeTaxes([]LineInput{
		{Cantidad: 1, PrecioUnit: 50, TarifaIVA: 12},
		{Cantidad: 1, PrecioUnit: 50, TarifaIVA: 12},
		{Cantidad: 1, PrecioUnit: 20, TarifaIVA: 0},
	}, false)
	require.NoError(t, err)
	require.Len(t, result.Aggregates, 2)
	require.Equal(t, 20.0, result.Summary.Subtotal0)
	require.Equal(t, 100.0, result.Summary.SubtotalIVA)
}

func TestComputeTaxes_RejectsEmptyLines(t *testing.T) {
	_, err := ComputeTaxes(nil, false)
	require.Error(t, err)
}
