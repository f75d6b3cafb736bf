package receipt

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"support_chat_server/internal/dao/mysql/repository"
	"support_chat_server/internal/infrastructure/mq"
	"support_chat_server/internal/model"
	"support_chat_server/internal/service/message"
	"support_chat_server/internal/testutil"
	"support_chat_server/pkg/errorx"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ana   = model.Identity{Id: "cust-ana", Name: "Ana", Role: model.RoleCustomer}
	carla = model.Identity{Id: "staff-carla", Name: "Carla", Role: model.RoleStaff}
)

type fixture struct {
	repos   *repository.Repositories
	receipt *receiptService
	send    func(sender model.Identity, text string) *model.Message
}

func setup(t *testing.T) *fixture {
	t.Helper()
	repos := repository.NewRepositories(testutil.NewDB(t))
	bus := mq.NewChannelBus()
	go bus.Start()
	t.Cleanup(bus.Close)

	key := ana.Id
	require.NoError(t, repos.Conversation.Create(&model.Conversation{
		Uuid:         "C1",
		CustomerId:   ana.Id,
		CustomerName: ana.Name,
		OpenKey:      &key,
		Status:       model.StatusActive,
		Priority:     model.PriorityMedium,
		Category:     model.CategoryGeneral,
	}))

	msgSvc := message.NewMessageService(repos, bus)
	return &fixture{
		repos:   repos,
		receipt: NewReceiptService(repos, bus, NewLocalThrottle(time.Second), time.Second, time.Second),
		send: func(sender model.Identity, text string) *model.Message {
			msg, err := msgSvc.Send(context.Background(), "C1", sender, model.TextContent{Text: text})
			require.NoError(t, err)
			return msg
		},
	}
}

// assertCounters 会话上的未读数必须等于消息表中的实际未读数
func (f *fixture) assertCounters(t *testing.T) *model.Conversation {
	t.Helper()
	conv, err := f.repos.Conversation.FindByUuid("C1")
	require.NoError(t, err)
	for _, reader := range []model.Role{model.RoleCustomer, model.RoleStaff} {
		n, err := f.repos.Message.CountUnread("C1", reader)
		require.NoError(t, err)
		assert.EqualValues(t, n, conv.UnreadFor(reader), "reader=%s", reader)
	}
	return conv
}

func TestMarkRead_StaffReadsCustomerMessages(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m1 := f.send(ana, "my order is late")
	m2 := f.send(ana, "order O-1001")
	reply := f.send(carla, "checking now")

	conv := f.assertCounters(t)
	assert.Equal(t, 2, conv.UnreadCountForStaff)
	assert.Equal(t, 1, conv.UnreadCountForCustomer)

	// 传入客服自己发的消息不产生影响
	remaining, err := f.receipt.MarkRead(ctx, carla, "C1", []string{m1.Uuid, m2.Uuid, reply.Uuid})
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	conv = f.assertCounters(t)
	assert.Equal(t, 0, conv.UnreadCountForStaff)
	assert.Equal(t, 1, conv.UnreadCountForCustomer)

	// 重复标记结果不变，计数不会变成负数
	remaining, err = f.receipt.MarkRead(ctx, carla, "C1", []string{m1.Uuid, m2.Uuid})
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	conv = f.assertCounters(t)
	assert.Equal(t, 0, conv.UnreadCountForStaff)
}

func TestMarkRead_PartialList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m1 := f.send(ana, "one")
	f.send(ana, "two")
	f.send(ana, "three")

	remaining, err := f.receipt.MarkRead(ctx, carla, "C1", []string{m1.Uuid})
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
	f.assertCounters(t)

	remaining, err = f.receipt.MarkConversationRead(ctx, carla, "C1")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	f.assertCounters(t)
}

func TestMarkRead_Rejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bob := model.Identity{Id: "cust-bob", Name: "Bob", Role: model.RoleCustomer}

	_, err := f.receipt.MarkRead(ctx, model.SystemIdentity, "C1", nil)
	assert.True(t, errorx.HasCode(err, errorx.CodePermissionDenied))

	_, err = f.receipt.MarkRead(ctx, bob, "C1", nil)
	assert.True(t, errorx.HasCode(err, errorx.CodePermissionDenied))

	_, err = f.receipt.MarkRead(ctx, ana, "missing", []string{"x"})
	assert.True(t, errorx.IsNotFound(err))
}

func TestLocalThrottle(t *testing.T) {
	th := NewLocalThrottle(2 * time.Second)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return now }
	ctx := context.Background()

	assert.True(t, th.Allow(ctx, "C1:staff"))
	assert.False(t, th.Allow(ctx, "C1:staff"))
	assert.True(t, th.Allow(ctx, "C1:customer"))

	now = now.Add(1999 * time.Millisecond)
	assert.False(t, th.Allow(ctx, "C1:staff"))
	now = now.Add(time.Millisecond)
	assert.True(t, th.Allow(ctx, "C1:staff"))
}

func TestRedisThrottle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	th := NewThrottle(client, 2*time.Second)
	ctx := context.Background()

	assert.True(t, th.Allow(ctx, "C1:staff"))
	assert.False(t, th.Allow(ctx, "C1:staff"))
	mr.FastForward(2 * time.Second)
	assert.True(t, th.Allow(ctx, "C1:staff"))

	// Redis 不可用时放行
	mr.Close()
	assert.True(t, th.Allow(ctx, "C1:staff"))
}

// countingMarker 记录被动已读的调用次数
type countingMarker struct {
	calls atomic.Int32
	mu    sync.Mutex
	ctxs  []context.Context
}

func (m *countingMarker) MarkConversationRead(ctx context.Context, _ model.Identity, _ string) (int, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.ctxs = append(m.ctxs, ctx)
	m.mu.Unlock()
	return 0, nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) bool { return false }

func TestViewSession_DelayThenThrottle(t *testing.T) {
	marker := &countingMarker{}
	window := 300 * time.Millisecond
	v := NewViewSession(marker, NewLocalThrottle(window), carla, "C1", 50*time.Millisecond, window)
	defer v.Close()

	// 延迟期内的信号被忽略
	v.Signal()
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 0, marker.calls.Load())

	assert.Eventually(t, func() bool { return marker.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// 窗口内的多次信号合并为窗口结束后的一次
	for i := 0; i < 5; i++ {
		v.Signal()
	}
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, marker.calls.Load())

	assert.Eventually(t, func() bool { return marker.calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 2, marker.calls.Load())
}

func TestViewSession_MarkNowBypassesThrottle(t *testing.T) {
	marker := &countingMarker{}
	v := NewViewSession(marker, denyAll{}, carla, "C1", time.Hour, time.Hour)
	defer v.Close()

	_, err := v.MarkNow(context.Background())
	require.NoError(t, err)
	_, err = v.MarkNow(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, marker.calls.Load())
}

func TestViewSession_CloseCancelsPending(t *testing.T) {
	marker := &countingMarker{}
	v := NewViewSession(marker, NewLocalThrottle(time.Second), carla, "C1", 50*time.Millisecond, time.Second)
	v.Close()
	v.Close()

	time.Sleep(120 * time.Millisecond)
	v.Signal()
	assert.EqualValues(t, 0, marker.calls.Load())

	_, err := v.MarkNow(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestViewSession_CloseCancelsInFlightWrite(t *testing.T) {
	marker := &countingMarker{}
	v := NewViewSession(marker, NewLocalThrottle(time.Second), carla, "C1", 0, time.Second)

	assert.Eventually(t, func() bool { return marker.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	v.Close()

	marker.mu.Lock()
	defer marker.mu.Unlock()
	require.Len(t, marker.ctxs, 1)
	assert.ErrorIs(t, marker.ctxs[0].Err(), context.Canceled)
}

// 零延迟时计时器回调可能先于构造函数返回执行
func TestViewSession_ZeroDelayCloseImmediately(t *testing.T) {
	for i := 0; i < 50; i++ {
		marker := &countingMarker{}
		v := NewViewSession(marker, NewLocalThrottle(time.Second), ana, "C1", 0, time.Second)
		v.Close()
		assert.LessOrEqual(t, marker.calls.Load(), int32(1))
	}
}

func TestOpenView_MarksRealConversation(t *testing.T) {
	f := setup(t)
	f.send(ana, "hello")
	f.send(ana, "anyone?")

	svc := NewReceiptService(f.repos, nil, NewLocalThrottle(time.Second), 10*time.Millisecond, time.Second)
	v := svc.OpenView(carla, "C1")
	defer v.Close()

	assert.Eventually(t, func() bool {
		conv, err := f.repos.Conversation.FindByUuid("C1")
		return err == nil && conv.UnreadCountForStaff == 0
	}, 2*time.Second, 10*time.Millisecond)
	f.assertCounters(t)
}
