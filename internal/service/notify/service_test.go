package notify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"support_chat_server/internal/config"
	"support_chat_server/internal/dao/mysql/repository"
	"support_chat_server/internal/infrastructure/mq"
	"support_chat_server/internal/model"
	"support_chat_server/internal/service/conversation"
	"support_chat_server/internal/service/message"
	"support_chat_server/internal/testutil"
	"support_chat_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ana   = model.Identity{Id: "cust-ana", Name: "Ana", Role: model.RoleCustomer}
	bob   = model.Identity{Id: "cust-bob", Name: "Bob", Role: model.RoleCustomer}
	carla = model.Identity{Id: "staff-carla", Name: "Carla", Role: model.RoleStaff}
)

type conversationOps interface {
	GetOrCreate(ctx context.Context, customer model.Identity, opts conversation.OpenOptions) (*model.Conversation, error)
	SetStatus(ctx context.Context, actor model.Identity, conversationId string, status model.ConversationStatus, assign *model.Identity) (*model.Conversation, error)
}

type messageOps interface {
	Send(ctx context.Context, conversationId string, sender model.Identity, content model.MessageContent) (*model.Message, error)
}

type fixture struct {
	notify *notifyService
	conv   conversationOps
	msg    messageOps
}

func setup(t *testing.T) *fixture {
	t.Helper()
	repos := repository.NewRepositories(testutil.NewDB(t))
	bus := mq.NewChannelBus()
	go bus.Start()
	t.Cleanup(bus.Close)
	return &fixture{
		notify: NewNotifyService(repos, bus, time.Second),
		conv:   conversation.NewConversationService(repos, bus, config.ChatConfig{}),
		msg:    message.NewMessageService(repos, bus),
	}
}

// waitFor 读取快照直到满足条件
func waitFor[T any](t *testing.T, sub *Subscription[T], ok func(Snapshot[T]) bool) Snapshot[T] {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case snap, open := <-sub.C():
			require.True(t, open, "订阅被意外关闭")
			if ok(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("等待快照超时")
		}
	}
}

func TestCountUnread(t *testing.T) {
	convs := []model.Conversation{
		{CustomerId: ana.Id, Status: model.StatusActive, UnreadCountForCustomer: 2, UnreadCountForStaff: 1},
		{CustomerId: ana.Id, Status: model.StatusClosed, UnreadCountForCustomer: 1, UnreadCountForStaff: 3},
		{CustomerId: ana.Id, Status: model.StatusWaiting, UnreadCountForCustomer: 0, UnreadCountForStaff: 4},
		{CustomerId: bob.Id, Status: model.StatusWaiting, UnreadCountForCustomer: 1, UnreadCountForStaff: 1},
	}

	tests := []struct {
		name  string
		actor model.Identity
		want  int
	}{
		{"顾客只统计自己的会话", ana, 1},
		{"另一位顾客", bob, 1},
		{"客服统计所有未关闭会话", carla, 3},
		{"没有会话的顾客", model.Identity{Id: "nobody", Role: model.RoleCustomer}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountUnread(convs, tt.actor))
		})
	}
	// 纯计算，不修改输入
	assert.Equal(t, 2, convs[0].UnreadCountForCustomer)
}

func TestSubscribeUnreadCount_FollowsChanges(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	staffSub, err := f.notify.SubscribeUnreadCount(carla)
	require.NoError(t, err)
	defer staffSub.Cancel()
	anaSub, err := f.notify.SubscribeUnreadCount(ana)
	require.NoError(t, err)
	defer anaSub.Cancel()

	isValue := func(v int) func(Snapshot[int]) bool {
		return func(s Snapshot[int]) bool { return s.Err == nil && s.Value == v }
	}
	waitFor(t, staffSub, isValue(0))
	waitFor(t, anaSub, isValue(0))

	// 新会话的欢迎语计入顾客未读
	conv, err := f.conv.GetOrCreate(ctx, ana, conversation.OpenOptions{})
	require.NoError(t, err)
	waitFor(t, anaSub, isValue(1))

	_, err = f.msg.Send(ctx, conv.Uuid, ana, model.TextContent{Text: "where is my food?"})
	require.NoError(t, err)
	waitFor(t, staffSub, isValue(1))

	// 关闭的会话不计入
	_, err = f.conv.SetStatus(ctx, carla, conv.Uuid, model.StatusClosed, nil)
	require.NoError(t, err)
	waitFor(t, staffSub, isValue(0))
	waitFor(t, anaSub, isValue(0))

	n, err := f.notify.UnreadCount(ctx, ana)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSubscribeConversationsAndMessages(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	conv, err := f.conv.GetOrCreate(ctx, ana, conversation.OpenOptions{})
	require.NoError(t, err)

	listSub, err := f.notify.SubscribeConversations(carla)
	require.NoError(t, err)
	defer listSub.Cancel()
	msgSub, err := f.notify.SubscribeMessages(ctx, ana, conv.Uuid)
	require.NoError(t, err)
	defer msgSub.Cancel()

	waitFor(t, listSub, func(s Snapshot[[]model.Conversation]) bool { return len(s.Value) == 1 })
	waitFor(t, msgSub, func(s Snapshot[[]model.Message]) bool { return len(s.Value) == 1 })

	_, err = f.msg.Send(ctx, conv.Uuid, carla, model.TextContent{Text: "hello"})
	require.NoError(t, err)

	snap := waitFor(t, msgSub, func(s Snapshot[[]model.Message]) bool { return len(s.Value) == 2 })
	assert.Equal(t, model.RoleSystem, snap.Value[0].SenderRole)
	assert.Equal(t, "hello", snap.Value[1].Body)

	waitFor(t, listSub, func(s Snapshot[[]model.Conversation]) bool {
		return len(s.Value) == 1 && s.Value[0].Status == model.StatusActive
	})

	_, err = f.notify.SubscribeMessages(ctx, bob, conv.Uuid)
	assert.True(t, errorx.HasCode(err, errorx.CodePermissionDenied))
	_, err = f.notify.SubscribeUnreadCount(model.SystemIdentity)
	assert.True(t, errorx.HasCode(err, errorx.CodePermissionDenied))
}

func TestSubscription_InitialLoadTimeout(t *testing.T) {
	sub := subscribe(nil, func(mq.ChangeEvent) bool { return true }, func(ctx context.Context) ([]model.Conversation, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, 30*time.Millisecond)
	defer sub.Cancel()

	snap := <-sub.C()
	assert.Empty(t, snap.Value)
	assert.Equal(t, errorx.CodeTimeout, errorx.GetCode(snap.Err))
}

func TestSubscription_ConnectivityDegradesToEmpty(t *testing.T) {
	sub := subscribe(nil, func(mq.ChangeEvent) bool { return true }, func(context.Context) (int, error) {
		return 7, errorx.ErrConnectivity
	}, time.Second)
	defer sub.Cancel()

	snap := <-sub.C()
	assert.Equal(t, 0, snap.Value)
	assert.ErrorIs(t, snap.Err, errorx.ErrConnectivity)
	assert.NotEqual(t, errorx.CodeTimeout, errorx.GetCode(snap.Err))
}

func TestSubscription_LatestWinsAndCancel(t *testing.T) {
	bus := mq.NewChannelBus()
	go bus.Start()
	defer bus.Close()

	var loads atomic.Int32
	sub := subscribe(bus, func(e mq.ChangeEvent) bool { return e.CustomerId == ana.Id }, func(context.Context) (int32, error) {
		return loads.Add(1), nil
	}, time.Second)

	first := <-sub.C()
	assert.EqualValues(t, 1, first.Value)

	// 不相关的事件不会触发加载
	require.NoError(t, bus.Publish(context.Background(), mq.ChangeEvent{CustomerId: bob.Id}))
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(context.Background(), mq.ChangeEvent{CustomerId: ana.Id}))
	}

	// 只保留最新的快照
	assert.Eventually(t, func() bool { return loads.Load() >= 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	snap := <-sub.C()
	assert.Equal(t, loads.Load(), snap.Value)

	sub.Cancel()
	sub.Cancel()
	_, open := <-sub.C()
	assert.False(t, open)

	before := loads.Load()
	require.NoError(t, bus.Publish(context.Background(), mq.ChangeEvent{CustomerId: ana.Id}))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, loads.Load())
}
