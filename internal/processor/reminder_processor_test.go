package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	gateway "github.com/nimasrn/policy-desk/internal/gateways"
	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/internal/queue"
	"github.com/nimasrn/policy-desk/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct{ mock.Mock }

func (m *MockSender) SendWhatsApp(ctx context.Context, req *gateway.SendRequest) (*gateway.SendResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.SendResponse), args.Error(1)
}

type dispatchFixture struct {
	mr        *miniredis.Miniredis
	sender    *MockSender
	logs      *repository.ReminderLogRepository
	policies  *repository.PolicyRepository
	processor *ReminderDispatchProcessor
	job       model.ReminderJob
	msg       *queue.Message
}

func newDispatchFixture(t *testing.T, maxRetries int) *dispatchFixture {
	t.Helper()
	ctx := context.Background()

	db := repository.SetupTestDB(t)
	policies := repository.NewPolicyRepository(db)
	logs := repository.NewReminderLogRepository(db)

	p := &model.Policy{
		OwnerID:       "owner",
		PolicyNumber:  "POL-1",
		ClientName:    "Asha",
		ContactNumber: "9876543210",
		InsuranceType: model.LifeInsurance,
		ActiveDate:    time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
		ExpiryDate:    time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
		Status:        model.PolicyActive,
	}
	require.NoError(t, policies.InsertMany(ctx, []*model.Policy{p}))

	entry := &model.ReminderLog{
		PolicyID:     p.ID,
		OwnerID:      p.OwnerID,
		Message:      "Dear Asha",
		Status:       model.ReminderPending,
		ReminderDate: "2025-03-01",
		DaysToExpiry: 7,
	}
	created, err := logs.Create(ctx, entry)
	require.NoError(t, err)
	require.True(t, created)

	mr, adapter := setupTestRedis(t)
	cfg := DefaultIdempotencyConfig()
	cfg.MaxRetries = maxRetries

	sender := new(MockSender)
	job := model.ReminderJob{
		LogID:         entry.ID,
		PolicyID:      p.ID,
		OwnerID:       p.OwnerID,
		ContactNumber: p.ContactNumber,
		Message:       entry.Message,
		ReminderDate:  entry.ReminderDate,
	}
	data, err := json.Marshal(job)
	require.NoError(t, err)

	return &dispatchFixture{
		mr:        mr,
		sender:    sender,
		logs:      logs,
		policies:  policies,
		processor: NewReminderDispatchProcessor(sender, logs, policies, db, NewIdempotencyService(adapter, cfg)),
		job:       job,
		msg:       &queue.Message{ID: "1-0", Data: data},
	}
}

func (f *dispatchFixture) logStatus(t *testing.T) model.ReminderStatus {
	t.Helper()
	entry, err := f.logs.GetByID(context.Background(), f.job.LogID)
	require.NoError(t, err)
	return entry.Status
}

func (f *dispatchFixture) reminderCount(t *testing.T) int {
	t.Helper()
	p, err := f.policies.GetByID(context.Background(), f.job.PolicyID)
	require.NoError(t, err)
	return p.WhatsappReminderCount
}

func TestReminderDispatch_Sent(t *testing.T) {
	f := newDispatchFixture(t, 3)
	ctx := context.Background()

	f.sender.On("SendWhatsApp", mock.Anything, mock.MatchedBy(func(r *gateway.SendRequest) bool {
		return r.To == "+919876543210" && r.Reference == f.job.IdempotencyKey() && r.Text == "Dear Asha"
	})).Return(&gateway.SendResponse{ID: "wa-1", Status: gateway.StatusAccepted, Provider: "primary"}, nil).Once()

	require.NoError(t, f.processor.Process(ctx, f.msg))
	assert.Equal(t, model.ReminderSent, f.logStatus(t))
	assert.Equal(t, 1, f.reminderCount(t))
	assert.True(t, f.mr.Exists("processed:"+f.job.IdempotencyKey()))

	// a redelivered message is acked without sending again
	require.NoError(t, f.processor.Process(ctx, f.msg))
	assert.Equal(t, 1, f.reminderCount(t))
	f.sender.AssertNumberOfCalls(t, "SendWhatsApp", 1)
}

func TestReminderDispatch_RedeliveryAfterMarkerLossDoesNotDoubleCount(t *testing.T) {
	f := newDispatchFixture(t, 3)
	ctx := context.Background()

	f.sender.On("SendWhatsApp", mock.Anything, mock.Anything).
		Return(&gateway.SendResponse{ID: "wa-1", Status: gateway.StatusAccepted}, nil)

	require.NoError(t, f.processor.Process(ctx, f.msg))
	f.mr.Del("processed:" + f.job.IdempotencyKey())
	require.NoError(t, f.processor.Process(ctx, f.msg))

	assert.Equal(t, 1, f.reminderCount(t))
}

func TestReminderDispatch_Rejected(t *testing.T) {
	f := newDispatchFixture(t, 3)

	f.sender.On("SendWhatsApp", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: not on whatsapp", gateway.ErrRejected))

	require.NoError(t, f.processor.Process(context.Background(), f.msg))
	assert.Equal(t, model.ReminderFailed, f.logStatus(t))
	assert.Equal(t, 0, f.reminderCount(t))
	assert.True(t, f.mr.Exists("processed:"+f.job.IdempotencyKey()))
}

func TestReminderDispatch_TransientFailureRetriesThenFails(t *testing.T) {
	f := newDispatchFixture(t, 2)
	ctx := context.Background()

	f.sender.On("SendWhatsApp", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	err := f.processor.Process(ctx, f.msg)
	require.Error(t, err)
	assert.Equal(t, model.ReminderPending, f.logStatus(t))
	assert.False(t, f.mr.Exists("lock:"+f.job.IdempotencyKey()))

	require.NoError(t, f.processor.Process(ctx, f.msg))
	assert.Equal(t, model.ReminderFailed, f.logStatus(t))
	assert.Equal(t, 0, f.reminderCount(t))
}

func TestReminderDispatch_LockHeld(t *testing.T) {
	f := newDispatchFixture(t, 3)
	require.NoError(t, f.mr.Set("lock:"+f.job.IdempotencyKey(), "other"))

	err := f.processor.Process(context.Background(), f.msg)
	assert.ErrorIs(t, err, ErrLockHeld)
	f.sender.AssertNotCalled(t, "SendWhatsApp", mock.Anything, mock.Anything)
}

func TestReminderDispatch_InvalidPayload(t *testing.T) {
	f := newDispatchFixture(t, 3)

	err := f.processor.Process(context.Background(), &queue.Message{ID: "2-0", Data: []byte("{")})
	assert.Error(t, err)
	assert.Equal(t, queue.TypeReminder, f.processor.GetType())
}
