// Package retry は任意の操作に対する上限付きリトライを提供する。
// 待機時間は線形バックオフ（baseDelay * 試行回数）で、ジッターは付与しない。
package retry

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultMaxAttempts はデフォルトの最大試行回数。
	DefaultMaxAttempts = 3
	// DefaultBaseDelay はデフォルトの基本待機時間。
	DefaultBaseDelay = 1 * time.Second
)

// SleepFunc は待機処理。テストでは実時間を待たない実装に差し替える。
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy はリトライの設定を保持する。
// ゼロ値のフィールドはデフォルト値で補完される。
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       SleepFunc
}

// DefaultPolicy はデフォルト設定（3回、1秒）のPolicyを返す。
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Delay はattempt回目（1始まり）の失敗後に待機する時間を返す。
func (p Policy) Delay(attempt int) time.Duration {
	return p.baseDelay() * time.Duration(attempt)
}

func (p Policy) maxAttempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

func (p Policy) baseDelay() time.Duration {
	if p.BaseDelay < 0 {
		return 0
	}
	if p.BaseDelay == 0 {
		return DefaultBaseDelay
	}
	return p.BaseDelay
}

func (p Policy) sleep() SleepFunc {
	if p.Sleep != nil {
		return p.Sleep
	}
	return sleepContext
}

// Do はopを最大MaxAttempts回実行する。
// 失敗するたびに baseDelay * 試行回数 だけ待機してから再試行する。
// エラーの種類による分類は行わず、すべてのエラーを同じように再試行する。
// 全試行が失敗した場合は最後のエラーをそのまま返す。
// 待機中にctxがキャンセルされた場合は最後のエラーとctxのエラーを結合して返す。
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	maxAttempts := p.maxAttempts()
	sleep := p.sleep()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt < maxAttempts {
			if sleepErr := sleep(ctx, p.Delay(attempt)); sleepErr != nil {
				return zero, errors.Join(lastErr, sleepErr)
			}
		}
	}

	return zero, lastErr
}

// sleepContext はdだけ待機する。ctxがキャンセルされた場合は即座に戻る。
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
