package tiering

import (
	"math"
	"testing"

	"stage-scanner/internal/model"
)

func verdict(mut func(*model.ExternalVerdict)) *model.ExternalVerdict {
	v := &model.ExternalVerdict{
		RawBullishSignal: true,
		ConfidenceScore:  85,
		MarketStructure:  "Uptrend",
		TechnicalTriggers: model.TechnicalTriggers{
			EntryZone: "100",
			StopLoss:  "95",
			Target1:   "120",
		},
		VolumeConfirmation: true,
		Reasoning:          "Breakout on strong volume",
	}
	if mut != nil {
		mut(v)
	}
	return v
}

func TestDecideLateStageNeverReady(t *testing.T) {
	v := verdict(func(v *model.ExternalVerdict) { v.ConfidenceScore = 100 })
	d := Decide(Inputs{
		Stage:   model.StageLate2,
		Verdict: v,
		Darvas:  model.DarvasBox{Status: model.DarvasBrokenUp},
	}, DefaultConfig())

	if d.Bullish {
		t.Fatal("Late Stage 2 无论外部信号如何都不应看多")
	}
	if d.Tier != model.TierNotYet {
		t.Fatalf("Late Stage 2 应降级为 Not Yet, 实际 %s", d.Tier)
	}
	if !d.Divergence {
		t.Fatal("外部看多与规则相左应记录分歧")
	}
}

func TestDecideReadyNowEarlyWithVolume(t *testing.T) {
	d := Decide(Inputs{
		Stage:   model.StageEarly2,
		Verdict: verdict(nil),
	}, DefaultConfig())

	if !d.Bullish {
		t.Fatal("Early Stage 2 + 量能确认应看多")
	}
	if d.Tier != model.TierReadyNow {
		t.Fatalf("应为 Ready Now, 实际 %s", d.Tier)
	}
	if d.RiskReward == nil || math.Abs(*d.RiskReward-4) > 1e-9 {
		t.Fatalf("盈亏比应为 4, 实际 %v", d.RiskReward)
	}
	if d.Divergence {
		t.Fatal("内外一致不应记录分歧")
	}
}

func TestDecideUnknownRiskRewardFailsClosed(t *testing.T) {
	v := verdict(func(v *model.ExternalVerdict) {
		v.TechnicalTriggers = model.TechnicalTriggers{
			EntryZone: "near resistance",
			StopLoss:  "below support",
			Target1:   "prior high",
		}
	})
	d := Decide(Inputs{Stage: model.StageEarly2, Verdict: v}, DefaultConfig())

	if d.RiskReward != nil {
		t.Fatalf("无法解析的触发价盈亏比应为 nil, 实际 %v", *d.RiskReward)
	}
	if d.Tier == model.TierReadyNow {
		t.Fatal("盈亏比未知时不应给 Ready Now")
	}
}

func TestDecideEarningsBlackout(t *testing.T) {
	days := 3
	d := Decide(Inputs{
		Stage:          model.StageEarly2,
		Verdict:        verdict(nil),
		DaysToEarnings: &days,
	}, DefaultConfig())

	if d.Tier == model.TierReadyNow {
		t.Fatal("财报临近时不应给 Ready Now")
	}
}

func TestDecideUnknownEarningsDoesNotBlock(t *testing.T) {
	d := Decide(Inputs{
		Stage:   model.StageEarly2,
		Verdict: verdict(nil),
	}, DefaultConfig())
	if d.Tier != model.TierReadyNow {
		t.Fatalf("财报日期未知不应阻断 Ready Now, 实际 %s", d.Tier)
	}
}

func TestDecideDarvasBreakoutPath(t *testing.T) {
	v := verdict(func(v *model.ExternalVerdict) {
		v.VolumeConfirmation = false
		v.PullbackBounce = true
	})
	d := Decide(Inputs{
		Stage:   model.StageMid2,
		Metrics: model.SeriesMetrics{Available: true, LastClose: 120, SMAFast: 110},
		Verdict: v,
		Darvas:  model.DarvasBox{Status: model.DarvasBrokenUp},
	}, DefaultConfig())

	if !d.Bullish {
		t.Fatal("Mid Stage 2 + 回踩反弹应看多")
	}
	if d.Tier != model.TierReadyNow {
		t.Fatalf("箱体突破配合信号应为 Ready Now, 实际 %s", d.Tier)
	}
}

func TestDecideNilVerdictDegrades(t *testing.T) {
	// Setting Up and Ready Now both need an external verdict; a failed
	// analysis stays Not Yet no matter how promising the stage looks.
	cases := map[string]Inputs{
		"early stage 2": {Stage: model.StageEarly2},
		"transition":    {Stage: model.Stage1To2},
		"basing with rising slow sma": {
			Stage:   model.Stage1Basing,
			Metrics: model.SeriesMetrics{Available: true, SlowSlopePct: 0.1},
		},
		"mid stage 2 pullback": {
			Stage:   model.StageMid2,
			Metrics: model.SeriesMetrics{Available: true, LastClose: 100, SMAFast: 99},
		},
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			d := Decide(in, DefaultConfig())
			if d.Bullish {
				t.Fatal("无外部结论不应看多")
			}
			if d.Divergence {
				t.Fatal("无外部结论谈不上分歧")
			}
			if d.RiskReward != nil {
				t.Fatal("无外部结论盈亏比应为 nil")
			}
			if d.Tier != model.TierNotYet {
				t.Fatalf("应为 Not Yet, 实际 %s", d.Tier)
			}
		})
	}
}

func TestDecideSettingUpBasing(t *testing.T) {
	v := verdict(func(v *model.ExternalVerdict) {
		v.RawBullishSignal = false
		v.VolumeConfirmation = false
	})
	d := Decide(Inputs{
		Stage:   model.Stage1Basing,
		Metrics: model.SeriesMetrics{Available: true, SlowSlopePct: 0.1},
		Verdict: v,
	}, DefaultConfig())
	if d.Tier != model.TierSettingUp {
		t.Fatalf("慢线企稳的 Basing 应为 Setting Up, 实际 %s", d.Tier)
	}
}

func TestDecideSettingUpMidPullback(t *testing.T) {
	v := verdict(func(v *model.ExternalVerdict) {
		v.VolumeConfirmation = false
		v.PullbackBounce = false
	})
	d := Decide(Inputs{
		Stage:   model.StageMid2,
		Metrics: model.SeriesMetrics{Available: true, LastClose: 100, SMAFast: 99},
		Verdict: v,
	}, DefaultConfig())

	if d.Bullish {
		t.Fatal("无确认信号不应看多")
	}
	if !d.Divergence {
		t.Fatal("外部原始看多与规则结论相左应记录分歧")
	}
	if d.Tier != model.TierSettingUp {
		t.Fatalf("回踩快线等待确认应为 Setting Up, 实际 %s", d.Tier)
	}
}

func TestRiskRewardParsing(t *testing.T) {
	cases := []struct {
		name     string
		triggers model.TechnicalTriggers
		want     *float64
	}{
		{
			name:     "plain numbers",
			triggers: model.TechnicalTriggers{EntryZone: "100", StopLoss: "95", Target1: "120"},
			want:     ptr(4.0),
		},
		{
			name:     "dollar signs and range",
			triggers: model.TechnicalTriggers{EntryZone: "$100 - $104", StopLoss: "$96", Target1: "$114"},
			want:     ptr(2.0),
		},
		{
			name:     "to range",
			triggers: model.TechnicalTriggers{EntryZone: "98 to 102", StopLoss: "94", Target1: "112"},
			want:     ptr(2.0),
		},
		{
			name:     "thousands separator",
			triggers: model.TechnicalTriggers{EntryZone: "1,000", StopLoss: "950", Target1: "1,200"},
			want:     ptr(4.0),
		},
		{
			name:     "risk is zero",
			triggers: model.TechnicalTriggers{EntryZone: "100", StopLoss: "100", Target1: "120"},
			want:     nil,
		},
		{
			name:     "target below entry",
			triggers: model.TechnicalTriggers{EntryZone: "100", StopLoss: "95", Target1: "90"},
			want:     nil,
		},
		{
			name:     "unparseable",
			triggers: model.TechnicalTriggers{EntryZone: "breakout level", StopLoss: "95", Target1: "120"},
			want:     nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RiskReward(tc.triggers)
			switch {
			case tc.want == nil && got != nil:
				t.Fatalf("期望 nil, 实际 %v", *got)
			case tc.want != nil && got == nil:
				t.Fatalf("期望 %v, 实际 nil", *tc.want)
			case tc.want != nil && math.Abs(*got-*tc.want) > 1e-9:
				t.Fatalf("期望 %v, 实际 %v", *tc.want, *got)
			}
		})
	}
}

func ptr(v float64) *float64 { return &v }
