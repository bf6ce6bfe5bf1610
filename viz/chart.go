package viz

import (
	"sync"

	"github.com/notargets/avs/chart2d"
	utils2 "github.com/notargets/avs/utils"
)

/*
LiveChart renders the evolving flame on screen while the run advances:
temperature normalized by TRef together with the species mass fractions,
against x. Rank 0 drives it with its own slab, so with more than one
rank the chart shows rank 0's window into the domain.
*/
type LiveChart struct {
	TRef     float64
	plotOnce sync.Once
	chart    *chart2d.Chart2D
	colorMap *utils2.ColorMap
}

func NewLiveChart(TRef float64) *LiveChart {
	return &LiveChart{TRef: TRef}
}

func (lc *LiveChart) Update(xCenters []float64, f CellFields) {
	if lc == nil {
		return
	}
	lc.plotOnce.Do(func() {
		var (
			xmin, xmax = float32(xCenters[0]), float32(xCenters[len(xCenters)-1])
			fmin, fmax = float32(-0.1), float32(1.4)
		)
		lc.chart = chart2d.NewChart2D(1920, 1280, xmin, xmax, fmin, fmax)
		lc.colorMap = utils2.NewColorMap(-1, 1, 1)
		go lc.chart.Plot()
	})
	pSeries := func(name string, y []float64, color float32) {
		if err := lc.chart.AddSeries(name, xCenters, y,
			chart2d.NoGlyph, chart2d.Solid, lc.colorMap.GetRGB(color)); err != nil {
			panic("unable to add graph series")
		}
	}
	tNorm := make([]float64, len(f.Temperature))
	for i, T := range f.Temperature {
		tNorm[i] = T / lc.TRef
	}
	pSeries("T/Tref", tNorm, -0.9)
	for i, name := range f.SpeciesNames {
		color := -0.5 + 1.4*float32(i)/float32(len(f.SpeciesNames))
		pSeries("Y_"+name, f.MassFractions[i], color)
	}
}
