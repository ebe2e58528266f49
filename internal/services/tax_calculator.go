package services

import (
	"fmt"
	"math"

	"backend/internal/errors"
	"backend/internal/models/enums"
)

// tariffRow maps a normalized IVA percentage to the SRI codebook pair used
// on the wire: codigo (tax type, always "2" for IVA on these documents) and
// codigoPorcentaje (enums.TaxCode).
type tariffRow struct {
	codigo           string
	codigoPorcentaje enums.TaxCode
}

var supportedTariffs = map[float64]tariffRow{
	0:  {codigo: "2", codigoPorcentaje: enums.TaxCode0},
	5:  {codigo: "2", codigoPorcentaje: enums.TaxCode5},
	12: {codigo: "2", codigoPorcentaje: enums.TaxCode12},
	15: {codigo: "2", codigoPorcentaje: enums.TaxCode15},
}

// LineInput is a single caller-supplied invoice detail line prior to tax
// computation.
type LineInput struct {
	ProductCode string
	Description string
	Cantidad    float64
	PrecioUnit  float64
	Descuento   float64
	TarifaIVA   float64
}

// LineDetail is a fully computed invoice detail line, ready for the XML
// assembler and for persistence as an InvoiceLine.
type LineDetail struct {
	ProductCode string
	Description string
	Cantidad    float64
	PrecioUnit  float64
	Descuento   float64
	Base        float64
	TaxCode     enums.TaxCode
	TarifaIVA   float64
	Valor       float64
	LineTotal   float64
}

// TaxAggregate sums bases and tax amounts across every line sharing a
// tariff, one entry per distinct codigoPorcentaje present on the invoice.
type TaxAggregate struct {
	Codigo           string
	CodigoPorcentaje enums.TaxCode
	TarifaIVA        float64
	BaseImponible    float64
	Valor            float64
}

// TaxSummary is the invoice-level total block.
type TaxSummary struct {
	TotalSinImpuestos float64
	TotalDescuento    float64
	TotalIVA          float64
	ImporteTotal      float64
	Subtotal0         float64
	SubtotalIVA       float64
}

// TaxCalculationResult bundles per-line, per-tariff, and invoice-level
// output of ComputeTaxes.
type TaxCalculationResult struct {
	Lines      []LineDetail
	Aggregates []TaxAggregate
	Summary    TaxSummary
}

// ComputeTaxes normalizes each line, looks up its tariff in the supported
// codebook, and aggregates taxable bases and tax amounts by tariff.
//
// A tariff outside {0, 5, 12, 15} is a hard error unless lenient is true, in
// which case it is treated as 0% rather than silently misreporting tax
// owed to the authority.
func ComputeTaxes(lines []LineInput, lenient bool) (*TaxCalculationResult, error) {
	if len(lines) == 0 {
		return nil, errors.ErrValidationFailed.WithMessage("invoice must contain at least one line")
	}

	aggByCode := map[enums.TaxCode]*TaxAggregate{}
	var aggOrder []enums.TaxCode

	result := &TaxCalculationResult{}

	for i, in := range lines {
		tarifa := normalizeTariff(in.TarifaIVA)

		row, ok := supportedTariffs[tarifa]
		if !ok {
			if !lenient {
				return nil, errors.ErrUnsupportedTaxTariff.WithMessage(
					fmt.Sprintf("line %d: unsupported IVA tariff %.4f", i, in.TarifaIVA))
			}
			row = supportedTariffs[0]
			tarifa = 0
		}

		base := in.Cantidad*in.PrecioUnit - in.Descuento
		valor := base * tarifa / 100

		detail := LineDetail{
			ProductCode: in.ProductCode,
			Description: in.Description,
			Cantidad:    in.Cantidad,
			PrecioUnit:  in.PrecioUnit,
			Descuento:   in.Descuento,
			Base:        base,
			TaxCode:     row.codigoPorcentaje,
			TarifaIVA:   tarifa,
			Valor:       valor,
			LineTotal:   round2(base + valor),
		}
		result.Lines = append(result.Lines, detail)

		agg, ok := aggByCode[row.codigoPorcentaje]
		if !ok {
			agg = &TaxAggregate{Codigo: row.codigo, CodigoPorcentaje: row.codigoPorcentaje, TarifaIVA: tarifa}
			aggByCode[row.codigoPorcentaje] = agg
			aggOrder = append(aggOrder, row.codigoPorcentaje)
		}
		agg.BaseImponible += base
		agg.Valor += valor

		result.Summary.TotalSinImpuestos += base
		result.Summary.TotalDescuento += in.Descuento
		result.Summary.TotalIVA += valor

		if row.codigoPorcentaje == enums.TaxCode0 {
			result.Summary.Subtotal0 += base
		} else {
			result.Summary.SubtotalIVA += base
		}
	}

	for _, code := range aggOrder {
		agg := aggByCode[code]
		result.Aggregates = append(result.Aggregates, TaxAggregate{
			Codigo:           agg.Codigo,
			CodigoPorcentaje: agg.CodigoPorcentaje,
			TarifaIVA:        agg.TarifaIVA,
			BaseImponible:    round2(agg.BaseImponible),
			Valor:            round2(agg.Valor),
		})
	}

	result.Summary.ImporteTotal = result.Summary.TotalSinImpuestos + result.Summary.TotalIVA

	result.Summary.TotalSinImpuestos = round2(result.Summary.TotalSinImpuestos)
	result.Summary.TotalDescuento = round2(result.Summary.TotalDescuento)
	result.Summary.TotalIVA = round2(result.Summary.TotalIVA)
	result.Summary.ImporteTotal = round2(result.Summary.ImporteTotal)
	result.Summary.Subtotal0 = round2(result.Summary.Subtotal0)
	result.Summary.SubtotalIVA = round2(result.Summary.SubtotalIVA)

	for i := range result.Lines {
		result.Lines[i].Base = round2(result.Lines[i].Base)
		result.Lines[i].Valor = round2(result.Lines[i].Valor)
	}

	return result, nil
}

// normalizeTariff treats any value in (0, 1) as a fraction and scales it to
// a percentage, so callers may send 0.15 or 15 interchangeably.
func normalizeTariff(tarifa float64) float64 {
	if tarifa > 0 && tarifa < 1 {
		return tarifa * 100
	}
	return tarifa
}

// round2 rounds half-away-from-zero to two decimal places. Used only at the
// formatting boundary; aggregation above accumulates at full float64
// precision.
func round2(v float64) float64 {
	if v >= 0 {
		return math.Floor(v*100+0.5) / 100
	}
	return math.Ceil(v*100-0.5) / 100
}
