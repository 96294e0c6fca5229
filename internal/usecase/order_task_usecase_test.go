package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"orderflow/internal/adapter/persistence/repository"
	"orderflow/internal/domain/entities"
	mock_interfaces "orderflow/internal/usecase/interfaces/mocks"

	"go.uber.org/mock/gomock"
)

func mustSubmission(t *testing.T, body string) entities.OrderSubmission {
	t.Helper()
	sub, err := entities.ParseOrderSubmission([]byte(body))
	if err != nil {
		t.Fatalf("parse submission: %v", err)
	}
	return sub
}

func TestOrderTaskUseCase_Validations(t *testing.T) {
	t.Run("repository not configured", func(t *testing.T) {
		uc := NewOrderTaskUseCase(nil, nil, nil)
		if _, err := uc.InitializeOrder(context.Background(), entities.OrderSubmission{ID: "o1", OwnerID: "u1"}); !errors.Is(err, ErrOrderRepositoryNotSet) {
			t.Fatalf("expected ErrOrderRepositoryNotSet, got %v", err)
		}
		if _, err := uc.ProcessPayment(context.Background(), "u1", "o1"); !errors.Is(err, ErrOrderRepositoryNotSet) {
			t.Fatalf("expected ErrOrderRepositoryNotSet, got %v", err)
		}
		if _, err := uc.CompleteOrder(context.Background(), "u1", "o1"); !errors.Is(err, ErrOrderRepositoryNotSet) {
			t.Fatalf("expected ErrOrderRepositoryNotSet, got %v", err)
		}
	})

	t.Run("blank identity", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		uc := NewOrderTaskUseCase(repo, nil, nil)

		if _, err := uc.InitializeOrder(context.Background(), entities.OrderSubmission{ID: " ", OwnerID: "u1"}); !errors.Is(err, ErrInvalidOrderIdentity) {
			t.Fatalf("expected ErrInvalidOrderIdentity, got %v", err)
		}
		if _, err := uc.CancelOrder(context.Background(), "", "o1"); !errors.Is(err, ErrInvalidOrderIdentity) {
			t.Fatalf("expected ErrInvalidOrderIdentity, got %v", err)
		}
	})
}

func TestOrderTaskUseCase_InitializeOrder(t *testing.T) {
	t.Run("creates initialized order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		uc := NewOrderTaskUseCase(repo, nil, nil)
		sub := mustSubmission(t, `{"id":"o1","user_id":"u1","amount":100}`)

		repo.EXPECT().CreateIfAbsent(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, o entities.Order) (entities.Order, bool, error) {
				if o.ID != "o1" || o.OwnerID != "u1" || o.Status != entities.OrderStatusInitialized || o.Amount != 100 {
					t.Fatalf("unexpected order written: %+v", o)
				}
				if string(o.Payload) != string(sub.Raw) {
					t.Fatalf("expected submitted payload to be stored, got %s", o.Payload)
				}
				return o, true, nil
			})

		o, err := uc.InitializeOrder(context.Background(), sub)
		if err != nil || o.Status != entities.OrderStatusInitialized {
			t.Fatalf("expected initialized order, got %+v err=%v", o, err)
		}
	})

	t.Run("existing order is a no-op", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		uc := NewOrderTaskUseCase(repo, nil, nil)
		existing := entities.Order{ID: "o1", OwnerID: "u1", Status: entities.OrderStatusPaymentProcessed}

		repo.EXPECT().CreateIfAbsent(gomock.Any(), gomock.Any()).Return(existing, false, nil)

		o, err := uc.InitializeOrder(context.Background(), mustSubmission(t, `{"id":"o1","user_id":"u1"}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if o.Status != entities.OrderStatusPaymentProcessed {
			t.Fatalf("expected the stored row back, got %+v", o)
		}
	})

	t.Run("repository error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		uc := NewOrderTaskUseCase(repo, nil, nil)

		repo.EXPECT().CreateIfAbsent(gomock.Any(), gomock.Any()).Return(entities.Order{}, false, errors.New("db"))

		if _, err := uc.InitializeOrder(context.Background(), mustSubmission(t, `{"id":"o1","user_id":"u1"}`)); err == nil || err.Error() != "db" {
			t.Fatalf("expected db error, got %v", err)
		}
	})
}

func TestOrderTaskUseCase_InitializeOrder_Twice_OneRecord(t *testing.T) {
	repo := repository.NewOrderMemoryRepository()
	uc := NewOrderTaskUseCase(repo, nil, nil)
	sub := mustSubmission(t, `{"id":"o1","user_id":"u1","amount":100}`)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := uc.InitializeOrder(context.Background(), sub); err != nil {
				t.Errorf("initialize: %v", err)
			}
		}()
	}
	wg.Wait()

	if _, err := uc.InitializeOrder(context.Background(), sub); err != nil {
		t.Fatalf("re-initialize: %v", err)
	}
	o, _ := repo.GetByID(context.Background(), "u1", "o1")
	if o.Status != entities.OrderStatusInitialized {
		t.Fatalf("expected one initialized order, got %+v", o)
	}
	if deleted, _ := repo.Delete(context.Background(), "u1", "o1"); !deleted {
		t.Fatalf("expected the order to exist")
	}
	if deleted, _ := repo.Delete(context.Background(), "u1", "o1"); deleted {
		t.Fatalf("expected exactly one order record")
	}
}

func TestOrderTaskUseCase_ProcessPayment(t *testing.T) {
	initialized := entities.Order{ID: "o1", OwnerID: "u1", Status: entities.OrderStatusInitialized, Amount: 100}

	t.Run("approved payment is recorded as ok", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		gateway := mock_interfaces.NewMockIPaymentGateway(ctrl)
		uc := NewOrderTaskUseCase(repo, gateway, nil)

		repo.EXPECT().GetByID(gomock.Any(), "u1", "o1").Return(initialized, nil)
		gateway.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, payload json.RawMessage) (string, string, json.RawMessage, error) {
				var req map[string]any
				if err := json.Unmarshal(payload, &req); err != nil {
					t.Fatalf("unexpected request payload: %v", err)
				}
				if req["transaction_amount"] != float64(100) || req["external_reference"] != "u1:o1" {
					t.Fatalf("unexpected request payload: %v", req)
				}
				return "pay-1", "approved", json.RawMessage(`{}`), nil
			})
		repo.EXPECT().RecordPayment(gomock.Any(), "u1", "o1", entities.PaymentResult{Status: "ok", PaymentID: "pay-1"}).
			Return(entities.Order{ID: "o1", OwnerID: "u1", Status: entities.OrderStatusPaymentProcessed, PaymentStatus: "ok"}, nil)

		res, err := uc.ProcessPayment(context.Background(), "u1", "o1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Approved() || res.PaymentID != "pay-1" || res.Recorded {
			t.Fatalf("unexpected result %+v", res)
		}
	})

	t.Run("rejected payment is recorded as declined", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		gateway := mock_interfaces.NewMockIPaymentGateway(ctrl)
		uc := NewOrderTaskUseCase(repo, gateway, nil)

		repo.EXPECT().GetByID(gomock.Any(), "u1", "o1").Return(initialized, nil)
		gateway.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).Return("pay-2", "rejected", nil, nil)
		repo.EXPECT().RecordPayment(gomock.Any(), "u1", "o1", entities.PaymentResult{Status: "declined", PaymentID: "pay-2"}).
			Return(entities.Order{ID: "o1", OwnerID: "u1", Status: entities.OrderStatusPaymentProcessed, PaymentStatus: "declined"}, nil)

		res, err := uc.ProcessPayment(context.Background(), "u1", "o1")
		if err != nil || res.Approved() || res.Status != "declined" {
			t.Fatalf("expected declined result, got %+v err=%v", res, err)
		}
	})

	t.Run("recorded outcome is returned without re-authorizing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		gateway := mock_interfaces.NewMockIPaymentGateway(ctrl)
		uc := NewOrderTaskUseCase(repo, gateway, nil)

		repo.EXPECT().GetByID(gomock.Any(), "u1", "o1").Return(entities.Order{
			ID: "o1", OwnerID: "u1", Status: entities.OrderStatusCompleted, PaymentStatus: "ok", PaymentID: "pay-1",
		}, nil)

		res, err := uc.ProcessPayment(context.Background(), "u1", "o1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != "ok" || res.PaymentID != "pay-1" || !res.Recorded {
			t.Fatalf("expected recorded outcome, got %+v", res)
		}
	})

	t.Run("order not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		uc := NewOrderTaskUseCase(repo, nil, nil)

		repo.EXPECT().GetByID(gomock.Any(), "u1", "o1").Return(entities.Order{}, nil)

		if _, err := uc.ProcessPayment(context.Background(), "u1", "o1"); !errors.Is(err, ErrOrderNotFound) {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("gateway not configured", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		uc := NewOrderTaskUseCase(repo, nil, nil)

		repo.EXPECT().GetByID(gomock.Any(), "u1", "o1").Return(initialized, nil)

		if _, err := uc.ProcessPayment(context.Background(), "u1", "o1"); !errors.Is(err, ErrPaymentGatewayNotSet) {
			t.Fatalf("expected ErrPaymentGatewayNotSet, got %v", err)
		}
	})

	t.Run("gateway error is a task failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		gateway := mock_interfaces.NewMockIPaymentGateway(ctrl)
		uc := NewOrderTaskUseCase(repo, gateway, nil)

		repo.EXPECT().GetByID(gomock.Any(), "u1", "o1").Return(initialized, nil)
		gateway.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).Return("", "", nil, errors.New("mp down"))

		if _, err := uc.ProcessPayment(context.Background(), "u1", "o1"); err == nil || err.Error() != "mp down" {
			t.Fatalf("expected mp down error, got %v", err)
		}
	})

	t.Run("empty provider status", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		gateway := mock_interfaces.NewMockIPaymentGateway(ctrl)
		uc := NewOrderTaskUseCase(repo, gateway, nil)

		repo.EXPECT().GetByID(gomock.Any(), "u1", "o1").Return(initialized, nil)
		gateway.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).Return("pay-3", " ", nil, nil)

		if _, err := uc.ProcessPayment(context.Background(), "u1", "o1"); !errors.Is(err, ErrPaymentGatewayEmptyReply) {
			t.Fatalf("expected ErrPaymentGatewayEmptyReply, got %v", err)
		}
	})

	t.Run("lost conditional write keeps the earlier outcome", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		gateway := mock_interfaces.NewMockIPaymentGateway(ctrl)
		uc := NewOrderTaskUseCase(repo, gateway, nil)

		gomock.InOrder(
			repo.EXPECT().GetByID(gomock.Any(), "u1", "o1").Return(initialized, nil),
			gateway.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).Return("pay-4", "approved", nil, nil),
			repo.EXPECT().RecordPayment(gomock.Any(), "u1", "o1", gomock.Any()).Return(entities.Order{}, nil),
			repo.EXPECT().GetByID(gomock.Any(), "u1", "o1").Return(entities.Order{
				ID: "o1", OwnerID: "u1", Status: entities.OrderStatusPaymentProcessed, PaymentStatus: "declined", PaymentID: "pay-0",
			}, nil),
		)

		res, err := uc.ProcessPayment(context.Background(), "u1", "o1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != "declined" || res.PaymentID != "pay-0" || !res.Recorded {
			t.Fatalf("expected the earlier outcome, got %+v", res)
		}
	})

	t.Run("status conflict without payment", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		uc := NewOrderTaskUseCase(repo, nil, nil)

		repo.EXPECT().GetByID(gomock.Any(), "u1", "o1").Return(entities.Order{ID: "o1", OwnerID: "u1", Status: entities.OrderStatusCancelled}, nil)

		if _, err := uc.ProcessPayment(context.Background(), "u1", "o1"); !errors.Is(err, ErrOrderStatusConflict) {
			t.Fatalf("expected ErrOrderStatusConflict, got %v", err)
		}
	})
}

func TestOrderTaskUseCase_CompleteOrder(t *testing.T) {
	t.Run("completes and publishes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		publisher := mock_interfaces.NewMockINotificationPublisher(ctrl)
		uc := NewOrderTaskUseCase(repo, nil, publisher)

		repo.EXPECT().TransitionStatus(gomock.Any(), "u1", "o1", entities.OrderStatusPaymentProcessed, entities.OrderStatusCompleted).
			Return(entities.Order{ID: "o1", OwnerID: "u1", Status: entities.OrderStatusCompleted}, nil)
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, n entities.OrderNotification) error {
				if n.OrderID != "o1" || n.OwnerID != "u1" || n.Outcome != entities.OrderOutcomeCompleted {
					t.Fatalf("unexpected notification %+v", n)
				}
				return nil
			})

		o, err := uc.CompleteOrder(context.Background(), "u1", "o1")
		if err != nil || o.Status != entities.OrderStatusCompleted {
			t.Fatalf("expected completed order, got %+v err=%v", o, err)
		}
	})

	t.Run("already completed republishes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		publisher := mock_interfaces.NewMockINotificationPublisher(ctrl)
		uc := NewOrderTaskUseCase(repo, nil, publisher)

		repo.EXPECT().TransitionStatus(gomock.Any(), "u1", "o1", gomock.Any(), gomock.Any()).Return(entities.Order{}, nil)
		repo.EXPECT().GetByID(gomock.Any(), "u1", "o1").Return(entities.Order{ID: "o1", OwnerID: "u1", Status: entities.OrderStatusCompleted}, nil)
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		if _, err := uc.CompleteOrder(context.Background(), "u1", "o1"); err != nil {
			t.Fatalf("expected no-op success, got %v", err)
		}
	})

	t.Run("cancelled order cannot complete", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		publisher := mock_interfaces.NewMockINotificationPublisher(ctrl)
		uc := NewOrderTaskUseCase(repo, nil, publisher)

		repo.EXPECT().TransitionStatus(gomock.Any(), "u1", "o1", gomock.Any(), gomock.Any()).Return(entities.Order{}, nil)
		repo.EXPECT().GetByID(gomock.Any(), "u1", "o1").Return(entities.Order{ID: "o1", OwnerID: "u1", Status: entities.OrderStatusCancelled}, nil)

		if _, err := uc.CompleteOrder(context.Background(), "u1", "o1"); !errors.Is(err, ErrOrderStatusConflict) {
			t.Fatalf("expected ErrOrderStatusConflict, got %v", err)
		}
	})

	t.Run("publish failure does not fail the task", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		publisher := mock_interfaces.NewMockINotificationPublisher(ctrl)
		uc := NewOrderTaskUseCase(repo, nil, publisher)

		repo.EXPECT().TransitionStatus(gomock.Any(), "u1", "o1", gomock.Any(), gomock.Any()).
			Return(entities.Order{ID: "o1", OwnerID: "u1", Status: entities.OrderStatusCompleted}, nil)
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("sns down"))

		if _, err := uc.CompleteOrder(context.Background(), "u1", "o1"); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
	})

	t.Run("repository error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mock_interfaces.NewMockIOrderRepository(ctrl)
		uc := NewOrderTaskUseCase(repo, nil, nil)

		repo.EXPECT().TransitionStatus(gomock.Any(), "u1", "o1", gomock.Any(), gomock.Any()).Return(entities.Order{}, errors.New("db"))

		if _, err := uc.CompleteOrder(context.Background(), "u1", "o1"); err == nil || err.Error() != "db" {
			t.Fatalf("expected db error, got %v", err)
		}
	})
}

func TestOrderTaskUseCase_CancelOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mock_interfaces.NewMockIOrderRepository(ctrl)
	publisher := mock_interfaces.NewMockINotificationPublisher(ctrl)
	uc := NewOrderTaskUseCase(repo, nil, publisher)

	repo.EXPECT().TransitionStatus(gomock.Any(), "u1", "o2", entities.OrderStatusPaymentProcessed, entities.OrderStatusCancelled).
		Return(entities.Order{ID: "o2", OwnerID: "u1", Status: entities.OrderStatusCancelled}, nil)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, n entities.OrderNotification) error {
			if n.OrderID != "o2" || n.Outcome != entities.OrderOutcomeCancelled {
				t.Fatalf("unexpected notification %+v", n)
			}
			return nil
		})

	o, err := uc.CancelOrder(context.Background(), "u1", "o2")
	if err != nil || o.Status != entities.OrderStatusCancelled {
		t.Fatalf("expected cancelled order, got %+v err=%v", o, err)
	}
}

func TestOrderTaskUseCase_TerminalStatusNeverRegresses(t *testing.T) {
	repo := repository.NewOrderMemoryRepository()
	uc := NewOrderTaskUseCase(repo, nil, nil)
	ctx := context.Background()

	if _, err := uc.InitializeOrder(ctx, mustSubmission(t, `{"id":"o1","user_id":"u1"}`)); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := repo.RecordPayment(ctx, "u1", "o1", entities.PaymentResult{Status: "ok"}); err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if _, err := uc.CompleteOrder(ctx, "u1", "o1"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := uc.CancelOrder(ctx, "u1", "o1"); !errors.Is(err, ErrOrderStatusConflict) {
		t.Fatalf("expected a stale cancel to be refused, got %v", err)
	}
	if _, err := uc.InitializeOrder(ctx, mustSubmission(t, `{"id":"o1","user_id":"u1"}`)); err != nil {
		t.Fatalf("re-initialize: %v", err)
	}
	o, _ := repo.GetByID(ctx, "u1", "o1")
	if o.Status != entities.OrderStatusCompleted {
		t.Fatalf("expected completed to stick, got %s", o.Status)
	}
}
