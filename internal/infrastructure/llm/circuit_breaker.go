package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/diarist/server/internal/domain/service"
	"go.uber.org/zap"
)

// CircuitState 熔断器状态
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker 连续失败达到阈值后打开，冷却时间过后放行一次探测请求
type CircuitBreaker struct {
	mu               sync.Mutex
	state            CircuitState
	failures         int
	failureThreshold int
	cooldown         time.Duration
	openedAt         time.Time
	now              func() time.Time
}

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		now:              time.Now,
	}
}

// Allow 判断是否放行
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) >= cb.cooldown {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess 成功后关闭熔断器
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure 记录一次失败；半开状态下任何失败都会重新打开
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.state == CircuitHalfOpen || cb.failures >= cb.failureThreshold {
		cb.state = CircuitOpen
		cb.openedAt = cb.now()
	}
}

// State 当前状态
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// ErrCircuitOpen 熔断器打开时返回，分类为 transient
var ErrCircuitOpen = errors.New("model provider temporarily unavailable (503)")

// GuardedProvider 用熔断器包装供应商。用户取消和请求错误不计入失败。
type GuardedProvider struct {
	inner   Provider
	breaker *CircuitBreaker
	logger  *zap.Logger
}

// WithCircuitBreaker 包装供应商
func WithCircuitBreaker(p Provider, cb *CircuitBreaker, logger *zap.Logger) *GuardedProvider {
	return &GuardedProvider{inner: p, breaker: cb, logger: logger.With(zap.String("provider", p.Name()))}
}

var _ Provider = (*GuardedProvider)(nil)

func (g *GuardedProvider) Name() string { return g.inner.Name() }

// StreamTurn 委托给内部供应商
func (g *GuardedProvider) StreamTurn(ctx context.Context, req *service.TurnRequest, onDelta func(string)) (*service.StreamedTurn, error) {
	if !g.breaker.Allow() {
		return nil, service.ClassifyError(ErrCircuitOpen, g.inner.Name(), req.Model)
	}

	turn, err := g.inner.StreamTurn(ctx, req, onDelta)
	if err == nil {
		g.breaker.RecordSuccess()
		return turn, nil
	}

	classified := service.ClassifyError(err, g.inner.Name(), req.Model)
	switch classified.Kind {
	case service.ErrKindCancelled, service.ErrKindBadRequest, service.ErrKindContentFilter:
	default:
		g.breaker.RecordFailure()
		if g.breaker.State() == CircuitOpen {
			g.logger.Warn("Model provider circuit opened", zap.Error(err))
		}
	}
	return nil, classified
}
