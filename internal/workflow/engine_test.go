package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"orderflow/internal/adapter/persistence/repository"
	"orderflow/internal/domain/entities"
)

// fakeTasks scripts task outcomes per call.
type fakeTasks struct {
	mu    sync.Mutex
	calls map[string]int

	initialize func(ctx context.Context, call int) error
	payment    func(ctx context.Context, call int) (entities.PaymentResult, error)
	complete   func(ctx context.Context, call int) error
	cancel     func(ctx context.Context, call int) error
}

func newFakeTasks(paymentStatus string) *fakeTasks {
	return &fakeTasks{
		calls: make(map[string]int),
		payment: func(context.Context, int) (entities.PaymentResult, error) {
			return entities.PaymentResult{Status: paymentStatus}, nil
		},
	}
}

func (f *fakeTasks) count(task string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[task]
}

func (f *fakeTasks) bump(task string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[task]++
	return f.calls[task]
}

func (f *fakeTasks) InitializeOrder(ctx context.Context, sub entities.OrderSubmission) (entities.Order, error) {
	n := f.bump("initialize")
	if f.initialize != nil {
		if err := f.initialize(ctx, n); err != nil {
			return entities.Order{}, err
		}
	}
	return entities.Order{ID: sub.ID, OwnerID: sub.OwnerID, Status: entities.OrderStatusInitialized}, nil
}

func (f *fakeTasks) ProcessPayment(ctx context.Context, ownerID, orderID string) (entities.PaymentResult, error) {
	n := f.bump("payment")
	return f.payment(ctx, n)
}

func (f *fakeTasks) CompleteOrder(ctx context.Context, ownerID, orderID string) (entities.Order, error) {
	n := f.bump("complete")
	if f.complete != nil {
		if err := f.complete(ctx, n); err != nil {
			return entities.Order{}, err
		}
	}
	return entities.Order{ID: orderID, OwnerID: ownerID, Status: entities.OrderStatusCompleted}, nil
}

func (f *fakeTasks) CancelOrder(ctx context.Context, ownerID, orderID string) (entities.Order, error) {
	n := f.bump("cancel")
	if f.cancel != nil {
		if err := f.cancel(ctx, n); err != nil {
			return entities.Order{}, err
		}
	}
	return entities.Order{ID: orderID, OwnerID: ownerID, Status: entities.OrderStatusCancelled}, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	attempts map[string]int
	failures map[string]int
	finished []entities.ExecutionState
}

func (o *recordingObserver) TaskAttempted(task string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attempts == nil {
		o.attempts, o.failures = make(map[string]int), make(map[string]int)
	}
	o.attempts[task]++
	if err != nil {
		o.failures[task]++
	}
}

func (o *recordingObserver) ExecutionFinished(state entities.ExecutionState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, state)
}

type engineFixture struct {
	engine *Engine
	repo   *repository.ExecutionMemoryRepository
	tasks  *fakeTasks
	sleeps []time.Duration
}

func newEngineFixture(t *testing.T, tasks *fakeTasks, policy RetryPolicy) *engineFixture {
	t.Helper()
	f := &engineFixture{repo: repository.NewExecutionMemoryRepository(), tasks: tasks}
	f.engine = NewEngine(f.repo, tasks, policy, "worker-1", 4)
	f.engine.sleep = func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return ctx.Err()
	}
	return f
}

func (f *engineFixture) register(t *testing.T, body string) entities.Execution {
	t.Helper()
	sub, err := entities.ParseOrderSubmission([]byte(body))
	if err != nil {
		t.Fatalf("parse submission: %v", err)
	}
	exec, created, err := f.repo.CreateIfAbsent(context.Background(), entities.NewExecution(sub, time.Now().UTC()))
	if err != nil || !created {
		t.Fatalf("register execution: created=%v err=%v", created, err)
	}
	return exec
}

func statesOf(e entities.Execution) []entities.ExecutionState {
	out := make([]entities.ExecutionState, 0, len(e.History))
	for _, h := range e.History {
		out = append(out, h.To)
	}
	return out
}

func equalStates(a, b []entities.ExecutionState) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 30 * time.Second, TaskTimeout: time.Second}
}

func TestEngine_Run_ApprovedPaymentCompletes(t *testing.T) {
	tasks := newFakeTasks(entities.PaymentStatusOK)
	f := newEngineFixture(t, tasks, testPolicy())
	obs := &recordingObserver{}
	f.engine.SetObserver(obs)
	exec := f.register(t, `{"id":"o1","user_id":"u1","amount":100}`)

	final, err := f.engine.Run(context.Background(), exec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.State != entities.ExecutionStateCompleted {
		t.Fatalf("expected COMPLETED, got %s", final.State)
	}
	if final.PaymentStatus != "ok" {
		t.Fatalf("expected payment status to be recorded, got %q", final.PaymentStatus)
	}
	want := []entities.ExecutionState{
		entities.ExecutionStateInitializing,
		entities.ExecutionStateProcessingPayment,
		entities.ExecutionStateCompleting,
		entities.ExecutionStateCompleted,
	}
	if !equalStates(statesOf(final), want) {
		t.Fatalf("unexpected history %v", statesOf(final))
	}
	if tasks.count("initialize") != 1 || tasks.count("payment") != 1 || tasks.count("complete") != 1 || tasks.count("cancel") != 0 {
		t.Fatalf("unexpected task calls %v", tasks.calls)
	}
	if final.LeaseOwner != "" || final.FinishedAt.IsZero() {
		t.Fatalf("terminal execution must release its lease and record its finish, got %+v", final)
	}

	stored, _ := f.repo.GetByID(context.Background(), exec.ID)
	if stored.State != entities.ExecutionStateCompleted || stored.Version != final.Version {
		t.Fatalf("expected persisted terminal state, got %s v%d", stored.State, stored.Version)
	}
	if len(obs.finished) != 1 || obs.finished[0] != entities.ExecutionStateCompleted {
		t.Fatalf("expected one finished event, got %v", obs.finished)
	}
	if obs.attempts["process_payment"] != 1 || obs.failures["process_payment"] != 0 {
		t.Fatalf("unexpected observer counts %v %v", obs.attempts, obs.failures)
	}
}

func TestEngine_Run_NonOKPaymentCancels(t *testing.T) {
	for _, status := range []string{"declined", "", "OK", "ok "} {
		t.Run("status "+status, func(t *testing.T) {
			tasks := newFakeTasks(status)
			f := newEngineFixture(t, tasks, testPolicy())
			exec := f.register(t, `{"id":"o2","user_id":"u1","amount":100}`)

			final, err := f.engine.Run(context.Background(), exec)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if final.State != entities.ExecutionStateCancelled {
				t.Fatalf("expected CANCELLED, got %s", final.State)
			}
			if tasks.count("cancel") != 1 || tasks.count("complete") != 0 {
				t.Fatalf("unexpected task calls %v", tasks.calls)
			}
		})
	}
}

func TestEngine_Run_RetryCeiling(t *testing.T) {
	for _, maxAttempts := range []int{1, 3, 5} {
		tasks := newFakeTasks(entities.PaymentStatusOK)
		tasks.initialize = func(context.Context, int) error { return errors.New("dependency unavailable") }
		policy := testPolicy()
		policy.MaxAttempts = maxAttempts
		f := newEngineFixture(t, tasks, policy)
		exec := f.register(t, `{"id":"o3","user_id":"u1"}`)

		final, err := f.engine.Run(context.Background(), exec)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if final.State != entities.ExecutionStateFailed {
			t.Fatalf("max %d: expected FAILED, got %s", maxAttempts, final.State)
		}
		if got := tasks.count("initialize"); got != maxAttempts {
			t.Fatalf("max %d: expected exactly %d attempts, got %d", maxAttempts, maxAttempts, got)
		}
		if final.Attempt != maxAttempts {
			t.Fatalf("max %d: expected attempt counter %d, got %d", maxAttempts, maxAttempts, final.Attempt)
		}
		if len(f.sleeps) != maxAttempts-1 {
			t.Fatalf("max %d: expected %d backoffs, got %v", maxAttempts, maxAttempts-1, f.sleeps)
		}
		if !strings.Contains(final.LastError, "dependency unavailable") {
			t.Fatalf("expected last error to be kept, got %q", final.LastError)
		}
		if tasks.count("payment") != 0 {
			t.Fatalf("failed execution must not move on")
		}
	}
}

func TestEngine_Run_TransientFailureRecovers(t *testing.T) {
	tasks := newFakeTasks("")
	tasks.payment = func(_ context.Context, call int) (entities.PaymentResult, error) {
		if call < 3 {
			return entities.PaymentResult{}, errors.New("gateway timeout")
		}
		return entities.PaymentResult{Status: "ok"}, nil
	}
	f := newEngineFixture(t, tasks, testPolicy())
	exec := f.register(t, `{"id":"o4","user_id":"u1"}`)

	final, err := f.engine.Run(context.Background(), exec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.State != entities.ExecutionStateCompleted {
		t.Fatalf("expected COMPLETED, got %s", final.State)
	}
	if tasks.count("payment") != 3 {
		t.Fatalf("expected 3 payment attempts, got %d", tasks.count("payment"))
	}
	if final.Attempt != 0 || final.LastError != "" {
		t.Fatalf("attempt counter must reset on success, got %d %q", final.Attempt, final.LastError)
	}
	if len(f.sleeps) != 2 || f.sleeps[0] != time.Second || f.sleeps[1] != 2*time.Second {
		t.Fatalf("expected exponential backoff, got %v", f.sleeps)
	}
}

func TestEngine_Run_TerminalTaskFailureNeverStrandsOrder(t *testing.T) {
	tasks := newFakeTasks(entities.PaymentStatusOK)
	tasks.complete = func(context.Context, int) error { return errors.New("table unavailable") }
	f := newEngineFixture(t, tasks, testPolicy())
	exec := f.register(t, `{"id":"o5","user_id":"u1"}`)

	final, err := f.engine.Run(context.Background(), exec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.State != entities.ExecutionStateFailed {
		t.Fatalf("expected FAILED, got %s", final.State)
	}
	if tasks.count("complete") != 3 {
		t.Fatalf("expected complete to be retried to the ceiling, got %d", tasks.count("complete"))
	}
}

func TestEngine_Run_PanicCountsAsFailure(t *testing.T) {
	tasks := newFakeTasks(entities.PaymentStatusOK)
	tasks.complete = func(_ context.Context, call int) error {
		if call == 1 {
			panic("nil map write")
		}
		return nil
	}
	f := newEngineFixture(t, tasks, testPolicy())
	exec := f.register(t, `{"id":"o6","user_id":"u1"}`)

	final, err := f.engine.Run(context.Background(), exec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.State != entities.ExecutionStateCompleted {
		t.Fatalf("expected COMPLETED, got %s", final.State)
	}
	if tasks.count("complete") != 2 {
		t.Fatalf("expected a retry after the panic, got %d calls", tasks.count("complete"))
	}

	found := false
	for _, h := range final.History {
		if h.Event == string(EventTaskFailed) && strings.Contains(h.Error, ErrTaskPanicked.Error()) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the panic to be recorded as a failed attempt, got %+v", final.History)
	}
}

func TestEngine_Run_TimeoutCountsAsFailure(t *testing.T) {
	tasks := newFakeTasks(entities.PaymentStatusOK)
	tasks.initialize = func(ctx context.Context, call int) error {
		if call == 1 {
			<-ctx.Done()
			// Late success: returned only after the deadline.
			return nil
		}
		return nil
	}
	policy := testPolicy()
	policy.TaskTimeout = 20 * time.Millisecond
	f := newEngineFixture(t, tasks, policy)
	exec := f.register(t, `{"id":"o7","user_id":"u1"}`)

	final, err := f.engine.Run(context.Background(), exec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.State != entities.ExecutionStateCompleted {
		t.Fatalf("expected COMPLETED, got %s", final.State)
	}
	if tasks.count("initialize") != 2 {
		t.Fatalf("expected the timed out attempt to be retried, got %d calls", tasks.count("initialize"))
	}
	if !strings.Contains(final.History[1].Error, ErrTaskTimeout.Error()) {
		t.Fatalf("expected a timeout failure in history, got %+v", final.History[1])
	}
}

func TestEngine_Run_TimeoutBoundsTaskIgnoringContext(t *testing.T) {
	release := make(chan struct{})
	returned := make(chan struct{})
	tasks := newFakeTasks(entities.PaymentStatusOK)
	tasks.initialize = func(context.Context, int) error {
		defer close(returned)
		<-release
		return nil
	}
	policy := testPolicy()
	policy.MaxAttempts = 1
	policy.TaskTimeout = 20 * time.Millisecond
	f := newEngineFixture(t, tasks, policy)
	exec := f.register(t, `{"id":"o7b","user_id":"u1"}`)

	start := time.Now()
	final, err := f.engine.Run(context.Background(), exec)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed > time.Second {
		t.Fatalf("expected the attempt to end at the task timeout, took %s", elapsed)
	}
	if final.State != entities.ExecutionStateFailed {
		t.Fatalf("expected FAILED, got %s", final.State)
	}
	if !strings.Contains(final.LastError, ErrTaskTimeout.Error()) {
		t.Fatalf("expected a timeout error, got %q", final.LastError)
	}

	// The abandoned call finishing later must not change the recorded outcome.
	close(release)
	<-returned
	stored, err := f.repo.GetByID(context.Background(), exec.ID)
	if err != nil {
		t.Fatalf("get execution: %v", err)
	}
	if stored.State != entities.ExecutionStateFailed || stored.Version != final.Version {
		t.Fatalf("expected the late result to be discarded, got %s v%d", stored.State, stored.Version)
	}
}

func TestEngine_Run_MalformedStoredPayloadFails(t *testing.T) {
	tasks := newFakeTasks(entities.PaymentStatusOK)
	f := newEngineFixture(t, tasks, testPolicy())
	exec := f.register(t, `{"id":"o8","user_id":"u1"}`)

	stored, _ := f.repo.GetByID(context.Background(), exec.ID)
	stored.Payload = []byte(`{`)
	if _, err := f.repo.Update(context.Background(), stored); err != nil {
		t.Fatalf("corrupt payload: %v", err)
	}

	final, err := f.engine.Run(context.Background(), exec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.State != entities.ExecutionStateFailed {
		t.Fatalf("expected FAILED, got %s", final.State)
	}
	if tasks.count("initialize") != 0 {
		t.Fatalf("task must not run on an unreadable payload")
	}
}

func TestEngine_Run_TerminalIsNoop(t *testing.T) {
	tasks := newFakeTasks(entities.PaymentStatusOK)
	f := newEngineFixture(t, tasks, testPolicy())
	exec := f.register(t, `{"id":"o9","user_id":"u1"}`)

	first, err := f.engine.Run(context.Background(), exec)
	if err != nil || first.State != entities.ExecutionStateCompleted {
		t.Fatalf("first run: state=%s err=%v", first.State, err)
	}

	// A stale copy still in INITIALIZING must not restart the workflow.
	again, err := f.engine.Run(context.Background(), exec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.State != entities.ExecutionStateCompleted || again.Version != first.Version {
		t.Fatalf("expected the stored terminal execution untouched, got %s v%d", again.State, again.Version)
	}
	if tasks.count("initialize") != 1 || tasks.count("complete") != 1 {
		t.Fatalf("tasks must not run again, got %v", tasks.calls)
	}
}

func TestEngine_Run_RespectsForeignLease(t *testing.T) {
	tasks := newFakeTasks(entities.PaymentStatusOK)
	f := newEngineFixture(t, tasks, testPolicy())
	exec := f.register(t, `{"id":"o10","user_id":"u1"}`)

	leased, _ := f.repo.GetByID(context.Background(), exec.ID)
	leased.LeaseOwner = "worker-2"
	leased.LeaseExpiresAt = time.Now().UTC().Add(time.Hour)
	if _, err := f.repo.Update(context.Background(), leased); err != nil {
		t.Fatalf("lease: %v", err)
	}

	_, err := f.engine.Run(context.Background(), exec)
	if !errors.Is(err, ErrLeaseHeld) {
		t.Fatalf("expected ErrLeaseHeld, got %v", err)
	}
	if tasks.count("initialize") != 0 {
		t.Fatalf("no task may run under another worker's lease")
	}

	// Once the lease expires the execution can be taken over.
	f.engine.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	final, err := f.engine.Run(context.Background(), exec)
	if err != nil || final.State != entities.ExecutionStateCompleted {
		t.Fatalf("expected takeover to complete, state=%s err=%v", final.State, err)
	}
}

func TestEngine_Run_UnregisteredExecution(t *testing.T) {
	f := newEngineFixture(t, newFakeTasks(entities.PaymentStatusOK), testPolicy())
	sub, _ := entities.ParseOrderSubmission([]byte(`{"id":"o11","user_id":"u1"}`))

	if _, err := f.engine.Run(context.Background(), entities.NewExecution(sub, time.Now())); err == nil {
		t.Fatalf("expected an error for an execution missing from the registry")
	}
}

func TestEngine_Run_CancelledContextLeavesExecutionResumable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tasks := newFakeTasks(entities.PaymentStatusOK)
	tasks.payment = func(_ context.Context, call int) (entities.PaymentResult, error) {
		if call == 1 {
			cancel()
			return entities.PaymentResult{}, context.Canceled
		}
		return entities.PaymentResult{Status: "ok"}, nil
	}
	f := newEngineFixture(t, tasks, testPolicy())
	exec := f.register(t, `{"id":"o12","user_id":"u1"}`)

	suspended, err := f.engine.Run(ctx, exec)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if suspended.State != entities.ExecutionStateProcessingPayment || suspended.Attempt != 0 {
		t.Fatalf("shutdown must not count as an attempt, got %s attempt=%d", suspended.State, suspended.Attempt)
	}

	final, err := f.engine.Run(context.Background(), exec)
	if err != nil || final.State != entities.ExecutionStateCompleted {
		t.Fatalf("expected resume to complete, state=%s err=%v", final.State, err)
	}
}

func TestEngine_Dispatch_RunsOncePerExecution(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	tasks := newFakeTasks(entities.PaymentStatusOK)
	tasks.initialize = func(context.Context, int) error {
		started <- struct{}{}
		<-release
		return nil
	}
	f := newEngineFixture(t, tasks, testPolicy())
	exec := f.register(t, `{"id":"o13","user_id":"u1"}`)

	f.engine.Dispatch(exec)
	<-started
	f.engine.Dispatch(exec)
	close(release)
	f.engine.Wait()

	if tasks.count("initialize") != 1 {
		t.Fatalf("expected a single run, got %d initialize calls", tasks.count("initialize"))
	}
	stored, _ := f.repo.GetByID(context.Background(), exec.ID)
	if stored.State != entities.ExecutionStateCompleted {
		t.Fatalf("expected COMPLETED, got %s", stored.State)
	}
}

func TestEngine_Dispatch_ParallelExecutions(t *testing.T) {
	tasks := newFakeTasks(entities.PaymentStatusOK)
	f := newEngineFixture(t, tasks, testPolicy())
	f.engine.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	ids := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		exec := f.register(t, `{"id":"p`+string(rune('a'+i))+`","user_id":"u1"}`)
		ids = append(ids, exec.ID)
		f.engine.Dispatch(exec)
	}
	f.engine.Wait()

	for _, id := range ids {
		stored, _ := f.repo.GetByID(context.Background(), id)
		if stored.State != entities.ExecutionStateCompleted {
			t.Fatalf("execution %s: expected COMPLETED, got %s", id, stored.State)
		}
	}
}
