package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var errRate = errors.New("rate limited")

func newTestOrchestrator(opts Options) (*Orchestrator, *[]time.Duration) {
	o := New(opts, zerolog.Nop())
	var delays []time.Duration
	o.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return o, &delays
}

func TestRunIsolatesItemFailure(t *testing.T) {
	o, _ := newTestOrchestrator(Options{ServiceRetries: 0})

	calls := make(map[string]int)
	items := make([]Item, 0, 10)
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("item-%d", i)
		fail := i == 2
		items = append(items, Item{
			Key: key,
			Do: func(ctx context.Context) error {
				calls[key]++
				if fail {
					return errors.New("schema rejected")
				}
				return nil
			},
		})
	}

	summary, err := o.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("批处理不应整体失败: %v", err)
	}
	if summary.Processed != 10 || summary.Succeeded != 9 || summary.Failed != 1 {
		t.Fatalf("计数不正确: %+v", summary)
	}
	for i := 0; i < 10; i++ {
		if calls[fmt.Sprintf("item-%d", i)] == 0 {
			t.Fatalf("第 %d 项未被处理", i)
		}
	}
	if summary.Results[2].State != StateFailed {
		t.Fatalf("失败项状态应为 failed, 实际 %s", summary.Results[2].State)
	}
	if summary.Results[3].State != StateSucceeded {
		t.Fatalf("失败项不应影响后续项, 实际 %s", summary.Results[3].State)
	}
}

func TestRunRateLimitBackoffExhausted(t *testing.T) {
	o, delays := newTestOrchestrator(Options{
		RateLimitRetries: 3,
		RateLimitBase:    2 * time.Second,
		IsRateLimited:    func(err error) bool { return errors.Is(err, errRate) },
	})

	attempts := 0
	summary, err := o.Run(context.Background(), []Item{{
		Key: "always-429",
		Do: func(ctx context.Context) error {
			attempts++
			return errRate
		},
	}})
	if err != nil {
		t.Fatalf("限流失败不应终止批次: %v", err)
	}

	if attempts != 3 {
		t.Fatalf("限流重试上限为 3 次尝试, 实际 %d", attempts)
	}
	if summary.Results[0].State != StateFailed {
		t.Fatalf("重试耗尽应为 failed, 实际 %s", summary.Results[0].State)
	}

	// 退避序列应为 base, base*2, 严格递增。
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("期望 %d 次退避, 实际 %d", len(want), len(*delays))
	}
	for i, d := range *delays {
		if d != want[i] {
			t.Fatalf("第 %d 次退避期望 %s, 实际 %s", i+1, want[i], d)
		}
		if i > 0 && d <= (*delays)[i-1] {
			t.Fatal("退避间隔应严格递增")
		}
	}
}

func TestRunRateLimitThenSuccess(t *testing.T) {
	o, delays := newTestOrchestrator(Options{
		RateLimitRetries: 5,
		RateLimitBase:    time.Second,
		IsRateLimited:    func(err error) bool { return errors.Is(err, errRate) },
	})

	attempts := 0
	summary, err := o.Run(context.Background(), []Item{{
		Key: "recovers",
		Do: func(ctx context.Context) error {
			attempts++
			if attempts == 1 {
				return errRate
			}
			return nil
		},
	}})
	if err != nil {
		t.Fatalf("恢复后的项不应报错: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("应成功 1 项, 实际 %+v", summary)
	}
	if summary.Results[0].Attempts != 2 {
		t.Fatalf("应为 2 次尝试, 实际 %d", summary.Results[0].Attempts)
	}
	if len(*delays) != 1 || (*delays)[0] != time.Second {
		t.Fatalf("首次限流退避应为 1s, 实际 %v", *delays)
	}
}

func TestRunServiceErrorRetries(t *testing.T) {
	o, delays := newTestOrchestrator(Options{
		ServiceRetries: 2,
		ServiceBackoff: 3 * time.Second,
	})

	attempts := 0
	summary, err := o.Run(context.Background(), []Item{{
		Key: "flaky",
		Do: func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("malformed response")
			}
			return nil
		},
	}})
	if err != nil {
		t.Fatalf("服务错误重试后成功不应报错: %v", err)
	}
	if summary.Succeeded != 1 || attempts != 3 {
		t.Fatalf("应在第 3 次尝试成功, 实际 attempts=%d summary=%+v", attempts, summary)
	}
	// 线性退避: 3s, 6s。
	want := []time.Duration{3 * time.Second, 6 * time.Second}
	for i, d := range *delays {
		if d != want[i] {
			t.Fatalf("第 %d 次退避期望 %s, 实际 %s", i+1, want[i], d)
		}
	}
}

func TestRunCancellationReturnsPartialSummary(t *testing.T) {
	o, _ := newTestOrchestrator(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	items := []Item{
		{Key: "a", Do: func(ctx context.Context) error { return nil }},
		{Key: "b", Do: func(ctx context.Context) error {
			cancel()
			return nil
		}},
		{Key: "c", Do: func(ctx context.Context) error {
			t.Fatal("取消后不应继续处理")
			return nil
		}},
	}

	summary, err := o.Run(ctx, items)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("取消后应返回 context.Canceled, 实际 %v", err)
	}
	if summary.Processed != 2 {
		t.Fatalf("已完成的结果应保留, 实际 %+v", summary)
	}
}
