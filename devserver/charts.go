package devserver

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/pithecene-io/plandesk/types"
)

const (
	chartWidth  = 120
	chartHeight = 60
)

var chartBars = map[types.ChartKind]struct {
	fill    color.RGBA
	heights []int
}{
	types.ChartFlows:    {color.RGBA{R: 0x2e, G: 0x86, B: 0xc1, A: 0xff}, []int{40, 44, 47, 50, 38, 30, 26, 22}},
	types.ChartBalances: {color.RGBA{R: 0x27, G: 0xae, B: 0x60, A: 0xff}, []int{20, 28, 36, 45, 52, 48, 41, 33}},
}

// RenderChart draws a small bar chart PNG for kind.
func RenderChart(kind types.ChartKind) ([]byte, error) {
	bars, ok := chartBars[kind]
	if !ok {
		return nil, fmt.Errorf("unknown chart type %q", kind)
	}

	img := image.NewRGBA(image.Rect(0, 0, chartWidth, chartHeight))
	for y := 0; y < chartHeight; y++ {
		for x := 0; x < chartWidth; x++ {
			img.Set(x, y, color.White)
		}
	}

	barWidth := chartWidth / len(bars.heights)
	for i, h := range bars.heights {
		for x := i*barWidth + 2; x < (i+1)*barWidth-2; x++ {
			for y := chartHeight - h; y < chartHeight; y++ {
				img.Set(x, y, bars.fill)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

// SampleInputs returns the structured-inputs record served for Done queries.
func SampleInputs() map[string]any {
	return map[string]any{
		"retirementPlanningSimulationInputs": map[string]any{
			"retireePersonalData": map[string]any{
				"currentAge":     58,
				"retirementAge":  65,
				"lifeExpectancy": 95,
				"state":          "CA",
			},
			"accounts": []any{
				map[string]any{"accountType": "401k", "balance": 420000, "date": "2026-01-01"},
				map[string]any{"accountType": "Roth IRA", "balance": 85000, "date": "2026-01-01"},
				map[string]any{"accountType": "Brokerage", "balance": 105000, "date": "2026-01-01"},
			},
			"investorAssumptions": map[string]any{
				"riskTolerance":      "moderate",
				"annualContribution": 23000,
			},
		},
		"simulationSettingsAndAssumptionsDto": map[string]any{
			"simulations":   1000,
			"inflationRate": 0.025,
			"returnModel":   "monte-carlo",
		},
	}
}
