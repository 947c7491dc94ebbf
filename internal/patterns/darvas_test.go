package patterns

import (
	"testing"
	"time"

	"stage-scanner/internal/model"
)

func barSeries(bars [][3]float64) model.PriceSeries {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	series := make(model.PriceSeries, len(bars))
	for i, b := range bars {
		series[i] = model.PricePoint{
			Date:   start.AddDate(0, 0, i),
			Open:   b[2],
			High:   b[0],
			Low:    b[1],
			Close:  b[2],
			Volume: 1000,
		}
	}
	return series
}

func TestDarvasShortSeries(t *testing.T) {
	series := barSeries([][3]float64{{10, 9, 9.5}})
	box := DetectDarvas(series, DefaultDarvasConfig())
	if box.Status != model.DarvasForming {
		t.Fatalf("过短序列应报 forming, 实际 %s", box.Status)
	}
	if box.Top != nil || box.Bottom != nil {
		t.Fatal("过短序列不应有箱体边界")
	}
}

func TestDarvasConfirmedBox(t *testing.T) {
	// 高点 20 之后连续 3 根未创新高设定箱顶, 再持续 3 根确认箱体。
	series := barSeries([][3]float64{
		{18, 17, 17.5},
		{20, 18, 19},   // candidate high 20
		{19, 17, 18},   // 1 session below
		{19, 16.5, 17}, // 2
		{19, 16, 17},   // 3 -> top set at 20, bottom tracking from 16
		{19, 16, 18},   // forming 1
		{19.5, 15.5, 18}, // forming 2, bottom -> 15.5
		{19, 16, 18},   // forming 3 -> confirmed
	})
	box := DetectDarvas(series, DefaultDarvasConfig())
	if box.Status != model.DarvasConfirmed {
		t.Fatalf("应确认箱体, 实际 %s", box.Status)
	}
	if box.Top == nil || *box.Top != 20 {
		t.Fatalf("箱顶应为 20, 实际 %v", box.Top)
	}
	if box.Bottom == nil || *box.Bottom != 15.5 {
		t.Fatalf("箱底应为 15.5, 实际 %v", box.Bottom)
	}
}

func TestDarvasBreakout(t *testing.T) {
	series := barSeries([][3]float64{
		{18, 17, 17.5},
		{20, 18, 19},
		{19, 17, 18},
		{19, 16.5, 17},
		{19, 16, 17},
		{19, 16, 18},
		{19.5, 15.5, 18},
		{19, 16, 18},
		{21, 19, 20.5}, // close above top 20
	})
	box := DetectDarvas(series, DefaultDarvasConfig())
	if box.Status != model.DarvasBrokenUp {
		t.Fatalf("收盘突破箱顶应报 broken_up, 实际 %s", box.Status)
	}
}

func TestDarvasBreakdown(t *testing.T) {
	series := barSeries([][3]float64{
		{18, 17, 17.5},
		{20, 18, 19},
		{19, 17, 18},
		{19, 16.5, 17},
		{19, 16, 17},
		{19, 16, 18},
		{19.5, 15.5, 18},
		{19, 16, 18},
		{16, 14, 15}, // close below bottom 15.5
	})
	box := DetectDarvas(series, DefaultDarvasConfig())
	if box.Status != model.DarvasBrokenDown {
		t.Fatalf("收盘跌破箱底应报 broken_down, 实际 %s", box.Status)
	}
}

func TestDarvasNewHighResetsForming(t *testing.T) {
	// 箱顶设定后突破在确认前刷新高点, 检测应重新寻找箱体。
	series := barSeries([][3]float64{
		{18, 17, 17.5},
		{20, 18, 19},
		{19, 17, 18},
		{19, 16.5, 17},
		{19, 16, 17},
		{22, 19, 21}, // new high before confirmation
	})
	box := DetectDarvas(series, DefaultDarvasConfig())
	if box.Status != model.DarvasForming {
		t.Fatalf("确认前创新高应回到 forming, 实际 %s", box.Status)
	}
	if box.Top != nil {
		t.Fatalf("重置后不应保留箱顶, 实际 %v", *box.Top)
	}
}

func TestDarvasDeterministic(t *testing.T) {
	series := barSeries([][3]float64{
		{18, 17, 17.5},
		{20, 18, 19},
		{19, 17, 18},
		{19, 16.5, 17},
		{19, 16, 17},
		{19, 16, 18},
		{19.5, 15.5, 18},
		{19, 16, 18},
	})
	first := DetectDarvas(series, DefaultDarvasConfig())
	second := DetectDarvas(series, DefaultDarvasConfig())
	if first.Status != second.Status || *first.Top != *second.Top || *first.Bottom != *second.Bottom {
		t.Fatal("同一序列重复检测结果应一致")
	}
}
