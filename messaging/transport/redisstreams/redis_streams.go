// Package redisstreams 基于 Redis Streams 消费组实现消息传输
package redisstreams

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pflanzen/logging"
	"pflanzen/messaging"
)

// client 仅包含所需的 go-redis 命令，便于测试替换
type client interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	Close() error
}

// Config Redis Streams 传输配置
type Config struct {
	Client       redis.UniversalClient
	Addr         string
	Username     string
	Password     string
	DB           int
	StreamPrefix string
	GroupName    string
	ConsumerName string
	BlockTimeout time.Duration
	ReadCount    int64
	MaxLen       int64 // 近似裁剪长度，0 表示不裁剪
	Logger       logging.Logger

	MinReadBackoff time.Duration // 读取错误最小退避，默认 100ms
	MaxReadBackoff time.Duration // 读取错误最大退避，默认 5s
}

// Transport 基于 Redis Streams 的 messaging.Transport 实现
type Transport struct {
	cfg       Config
	client    client
	ownClient bool
	logger    logging.Logger
	registry  *messaging.Registry

	mu      sync.Mutex
	readers map[string]bool
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewTransport 创建传输实例；未提供 Client 时按 Addr 自建连接
func NewTransport(cfg Config) (*Transport, error) {
	if cfg.StreamPrefix == "" {
		cfg.StreamPrefix = "pflanzen:"
	}
	if cfg.GroupName == "" {
		cfg.GroupName = "pflanzen"
	}
	if cfg.ConsumerName == "" {
		cfg.ConsumerName = "consumer-" + uuid.NewString()
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ReadCount <= 0 {
		cfg.ReadCount = 10
	}
	if cfg.MinReadBackoff <= 0 {
		cfg.MinReadBackoff = 100 * time.Millisecond
	}
	if cfg.MaxReadBackoff <= 0 {
		cfg.MaxReadBackoff = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "transport.redisstreams"))
	}

	var cl client
	own := false
	if cfg.Client != nil {
		cl = cfg.Client
	} else {
		if cfg.Addr == "" {
			return nil, errors.New("redisstreams: neither client nor addr configured")
		}
		cl = redis.NewClient(&redis.Options{Addr: cfg.Addr, Username: cfg.Username, Password: cfg.Password, DB: cfg.DB})
		own = true
	}

	return &Transport{
		cfg:       cfg,
		client:    cl,
		ownClient: own,
		logger:    cfg.Logger,
		registry:  messaging.NewRegistry(),
		readers:   make(map[string]bool),
	}, nil
}

// Publish 将消息写入对应的 Stream
func (t *Transport) Publish(ctx context.Context, message messaging.IMessage) error {
	data, err := messaging.Encode(message)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: t.streamName(message.GetType()),
		Values: map[string]any{"id": message.GetID(), "type": message.GetType(), "data": string(data)},
	}
	if t.cfg.MaxLen > 0 {
		args.MaxLen = t.cfg.MaxLen
		args.Approx = true
	}
	return t.client.XAdd(ctx, args).Err()
}

// Subscribe 注册处理器；运行中时立即启动该类型的读取协程
func (t *Transport) Subscribe(messageType string, handler messaging.IMessageHandler) error {
	if messageType == messaging.Wildcard {
		return fmt.Errorf("redisstreams: wildcard subscriptions are not supported")
	}
	t.registry.Add(messageType, handler)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.startReaderLocked(messageType)
	}
	return nil
}

// Start 为每个已订阅类型启动消费协程
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return fmt.Errorf("redis streams transport already running")
	}
	t.ctx, t.cancel = context.WithCancel(context.WithoutCancel(ctx))
	t.running = true
	for _, mt := range t.registry.Types() {
		t.startReaderLocked(mt)
	}
	return nil
}

// Close 停止消费协程；自建连接时一并关闭
func (t *Transport) Close() error {
	t.mu.Lock()
	wasRunning := t.running
	t.running = false
	cancel := t.cancel
	t.mu.Unlock()

	if wasRunning && cancel != nil {
		cancel()
		t.wg.Wait()
	}
	if t.ownClient {
		return t.client.Close()
	}
	return nil
}

// Stats 返回处理器/流信息
func (t *Transport) Stats() messaging.TransportStats {
	t.mu.Lock()
	running := t.running
	t.mu.Unlock()
	return messaging.TransportStats{
		Name:         "redis",
		Running:      running,
		HandlerCount: t.registry.Count(),
		MessageTypes: t.registry.Types(),
	}
}

func (t *Transport) startReaderLocked(messageType string) {
	if t.readers[messageType] {
		return
	}
	t.readers[messageType] = true
	t.wg.Add(1)
	go t.readLoop(t.ctx, messageType)
}

func (t *Transport) readLoop(ctx context.Context, messageType string) {
	defer t.wg.Done()
	stream := t.streamName(messageType)
	if err := t.ensureGroup(ctx, stream); err != nil {
		t.logger.Warn(ctx, "ensure group failed", logging.String("stream", stream), logging.Error(err))
	}
	args := &redis.XReadGroupArgs{
		Group:    t.cfg.GroupName,
		Consumer: t.cfg.ConsumerName,
		Streams:  []string{stream, ">"},
		Count:    t.cfg.ReadCount,
		Block:    t.cfg.BlockTimeout,
	}

	backoff := t.cfg.MinReadBackoff
	for ctx.Err() == nil {
		res, err := t.client.XReadGroup(ctx, args).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			t.logger.Warn(ctx, "xreadgroup failed", logging.Duration("backoff", backoff), logging.Error(err))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
			backoff = min(backoff*2, t.cfg.MaxReadBackoff)
			continue
		}
		backoff = t.cfg.MinReadBackoff

		for _, streamRes := range res {
			for _, entry := range streamRes.Messages {
				t.handleEntry(ctx, streamRes.Stream, entry)
			}
		}
	}
}

func (t *Transport) handleEntry(ctx context.Context, stream string, entry redis.XMessage) {
	defer func() {
		if err := t.client.XAck(ctx, stream, t.cfg.GroupName, entry.ID).Err(); err != nil {
			t.logger.Warn(ctx, "xack failed", logging.String("entry", entry.ID), logging.Error(err))
		}
	}()

	msg, err := decodeEntry(entry)
	if err != nil {
		t.logger.Warn(ctx, "decode redis stream entry failed", logging.String("entry", entry.ID), logging.Error(err))
		return
	}
	handlerCtx := ctx
	if id := msg.GetMetadata()[messaging.MetaRequestID]; id != "" {
		handlerCtx = logging.WithRequestID(ctx, id)
	}
	t.registry.Dispatch(handlerCtx, t.logger, msg)
}

func (t *Transport) ensureGroup(ctx context.Context, stream string) error {
	err := t.client.XGroupCreateMkStream(ctx, stream, t.cfg.GroupName, "0").Err()
	if err == nil || strings.Contains(strings.ToUpper(err.Error()), "BUSYGROUP") {
		return nil
	}
	return err
}

func (t *Transport) streamName(messageType string) string {
	return t.cfg.StreamPrefix + messageType
}

func decodeEntry(entry redis.XMessage) (*messaging.Message, error) {
	raw, ok := entry.Values["data"].(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("entry %s has no data field", entry.ID)
	}
	msg, err := messaging.Decode([]byte(raw))
	if err != nil {
		return nil, err
	}
	if msg.ID == "" {
		msg.ID = entry.ID
	}
	return msg, nil
}
