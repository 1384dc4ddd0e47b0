package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossfield/investigation-engine/internal/domain/entity"
	"github.com/crossfield/investigation-engine/internal/domain/investigation"
	"github.com/crossfield/investigation-engine/internal/service/agents"
	"github.com/crossfield/investigation-engine/internal/service/orchestration"
)

// stubAgent scripts successive outcomes for one domain
type stubAgent struct {
	domain   investigation.AgentDomain
	calls    atomic.Int64
	mu       sync.Mutex
	outcomes []error // nil entry = success
	delay    time.Duration
}

func (a *stubAgent) Domain() investigation.AgentDomain { return a.domain }

func (a *stubAgent) Execute(ctx context.Context, input agents.ExecutionInput) (*investigation.AgentResult, error) {
	n := a.calls.Add(1)

	if a.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.delay):
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if int(n) <= len(a.outcomes) {
		if err := a.outcomes[n-1]; err != nil {
			return nil, err
		}
	}
	return investigation.NewSuccessResult(input.Entity.ID, a.domain, 0.4, 0.8, nil), nil
}

func testInput(domain investigation.AgentDomain) agents.ExecutionInput {
	return agents.ExecutionInput{
		InvestigationID: uuid.New(),
		Entity:          entity.Ref{ID: "user123", Type: entity.TypeUser},
	}
}

func retryDecision() *orchestration.Decision {
	return &orchestration.Decision{
		BulletproofRequirements: []orchestration.Requirement{
			orchestration.RequirementCircuitBreaker,
			orchestration.RequirementRetryLogic,
			orchestration.RequirementFailSoft,
		},
	}
}

func failSoftDecision() *orchestration.Decision {
	return &orchestration.Decision{
		BulletproofRequirements: []orchestration.Requirement{orchestration.RequirementFailSoft},
	}
}

func testConfig() Config {
	return Config{
		CallTimeout:      time.Second,
		MaxAttempts:      3,
		InitialBackoff:   time.Millisecond,
		MaxBackoff:       5 * time.Millisecond,
		FailureThreshold: 3,
		BreakerCooldown:  50 * time.Millisecond,
	}
}

func TestService_Invoke_Success(t *testing.T) {
	c := NewService(testConfig(), nil, zap.NewNop())
	agent := &stubAgent{domain: investigation.DomainNetwork}

	result := c.Invoke(context.Background(), agent, testInput(agent.domain), failSoftDecision())

	require.NotNil(t, result)
	assert.True(t, result.Succeeded())
	assert.Equal(t, "user123", result.EntityID)
	assert.Equal(t, investigation.DomainNetwork, result.AgentDomain)
	assert.Equal(t, int64(1), agent.calls.Load())
}

func TestService_Invoke_RetriesThenSucceeds(t *testing.T) {
	c := NewService(testConfig(), nil, zap.NewNop())
	agent := &stubAgent{
		domain:   investigation.DomainLogs,
		outcomes: []error{errors.New("transient"), errors.New("transient"), nil},
	}

	result := c.Invoke(context.Background(), agent, testInput(agent.domain), retryDecision())

	assert.True(t, result.Succeeded())
	assert.Equal(t, int64(3), agent.calls.Load())
}

func TestService_Invoke_NoRetryWithoutRequirement(t *testing.T) {
	c := NewService(testConfig(), nil, zap.NewNop())
	agent := &stubAgent{
		domain:   investigation.DomainLogs,
		outcomes: []error{errors.New("transient"), nil},
	}

	result := c.Invoke(context.Background(), agent, testInput(agent.domain), failSoftDecision())

	assert.False(t, result.Succeeded())
	assert.Equal(t, int64(1), agent.calls.Load())
}

func TestService_Invoke_BreakerOpensAndShortCircuits(t *testing.T) {
	c := NewService(testConfig(), nil, zap.NewNop())
	agent := &stubAgent{
		domain: investigation.DomainLocation,
		outcomes: []error{
			errors.New("down"), errors.New("down"), errors.New("down"),
			errors.New("down"), errors.New("down"), errors.New("down"),
		},
	}
	input := testInput(agent.domain)

	// Three consecutive failures open the breaker
	for i := 0; i < 3; i++ {
		result := c.Invoke(context.Background(), agent, input, failSoftDecision())
		assert.False(t, result.Succeeded())
	}
	assert.Equal(t, int64(3), agent.calls.Load())
	assert.Equal(t, StateOpen, c.BreakerSnapshot(input.InvestigationID, agent.domain).State)

	// Subsequent calls short-circuit without invoking the agent
	result := c.Invoke(context.Background(), agent, input, failSoftDecision())
	assert.False(t, result.Succeeded())
	assert.Equal(t, "circuit_open", result.Error)
	assert.Equal(t, int64(3), agent.calls.Load())
}

func TestService_Invoke_ProbeClosesBreaker(t *testing.T) {
	c := NewService(testConfig(), nil, zap.NewNop())
	agent := &stubAgent{
		domain:   investigation.DomainLocation,
		outcomes: []error{errors.New("down"), errors.New("down"), errors.New("down"), nil},
	}
	input := testInput(agent.domain)

	for i := 0; i < 3; i++ {
		c.Invoke(context.Background(), agent, input, failSoftDecision())
	}
	require.Equal(t, StateOpen, c.BreakerSnapshot(input.InvestigationID, agent.domain).State)

	// After cooldown the next call is a half-open probe; its success closes the breaker
	time.Sleep(60 * time.Millisecond)
	result := c.Invoke(context.Background(), agent, input, failSoftDecision())

	assert.True(t, result.Succeeded())
	assert.Equal(t, StateClosed, c.BreakerSnapshot(input.InvestigationID, agent.domain).State)
}

func TestService_Invoke_BreakerIsolatedPerInvestigation(t *testing.T) {
	c := NewService(testConfig(), nil, zap.NewNop())
	agent := &stubAgent{
		domain:   investigation.DomainDevice,
		outcomes: []error{errors.New("down"), errors.New("down"), errors.New("down")},
	}
	inputA := testInput(agent.domain)

	for i := 0; i < 3; i++ {
		c.Invoke(context.Background(), agent, inputA, failSoftDecision())
	}
	require.Equal(t, StateOpen, c.BreakerSnapshot(inputA.InvestigationID, agent.domain).State)

	// A different investigation against the same domain is unaffected
	inputB := testInput(agent.domain)
	result := c.Invoke(context.Background(), agent, inputB, failSoftDecision())
	assert.True(t, result.Succeeded())
}

func TestService_Invoke_TimeoutProducesFailedResult(t *testing.T) {
	cfg := testConfig()
	cfg.CallTimeout = 20 * time.Millisecond
	c := NewService(cfg, nil, zap.NewNop())
	agent := &stubAgent{domain: investigation.DomainNetwork, delay: 200 * time.Millisecond}

	result := c.Invoke(context.Background(), agent, testInput(agent.domain), failSoftDecision())

	require.NotNil(t, result)
	assert.False(t, result.Succeeded())
	assert.Contains(t, result.Error, "agent call timed out")
}

func TestService_Invoke_CancelledContext(t *testing.T) {
	c := NewService(testConfig(), nil, zap.NewNop())
	agent := &stubAgent{domain: investigation.DomainNetwork, delay: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := c.Invoke(ctx, agent, testInput(agent.domain), retryDecision())

	require.NotNil(t, result)
	assert.False(t, result.Succeeded())
}

func TestService_Invoke_ConcurrentEntitiesShareBreaker(t *testing.T) {
	c := NewService(testConfig(), nil, zap.NewNop())
	agent := &stubAgent{domain: investigation.DomainLogs}
	invID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := agents.ExecutionInput{
				InvestigationID: invID,
				Entity:          entity.Ref{ID: uuid.NewString(), Type: entity.TypeUser},
			}
			result := c.Invoke(context.Background(), agent, input, failSoftDecision())
			assert.True(t, result.Succeeded())
		}(i)
	}
	wg.Wait()

	snap := c.BreakerSnapshot(invID, agent.domain)
	assert.Equal(t, StateClosed, snap.State)
	assert.InDelta(t, 1.0, snap.SuccessRate, 0.001)
}

func TestService_Release(t *testing.T) {
	c := NewService(testConfig(), nil, zap.NewNop())
	agent := &stubAgent{
		domain:   investigation.DomainDevice,
		outcomes: []error{errors.New("down"), errors.New("down"), errors.New("down")},
	}
	input := testInput(agent.domain)

	for i := 0; i < 3; i++ {
		c.Invoke(context.Background(), agent, input, failSoftDecision())
	}
	require.Equal(t, StateOpen, c.BreakerSnapshot(input.InvestigationID, agent.domain).State)

	c.Release(input.InvestigationID)

	// A fresh breaker is created after release
	assert.Equal(t, StateClosed, c.BreakerSnapshot(input.InvestigationID, agent.domain).State)
}
