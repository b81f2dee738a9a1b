// Package natsjetstream 基于 NATS JetStream 实现消息传输
package natsjetstream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"pflanzen/logging"
	"pflanzen/messaging"
)

// Config JetStream 传输配置
type Config struct {
	URL           string
	Stream        string
	SubjectPrefix string
	DurablePrefix string
	AckWait       time.Duration
	MaxAckPending int
	MaxDeliver    int
	Logger        logging.Logger
	Conn          *nats.Conn

	// Retention workqueue|limits|interest（默认 workqueue）
	Retention string
	MaxAge    time.Duration
}

// Transport 基于 NATS JetStream 的 messaging.Transport 实现
type Transport struct {
	cfg      Config
	logger   logging.Logger
	registry *messaging.Registry

	mu       sync.Mutex
	conn     *nats.Conn
	js       nats.JetStreamContext
	ownsConn bool
	subs     map[string]*nats.Subscription
	running  bool
}

// NewTransport 创建传输实例，连接在 Start 时建立
func NewTransport(cfg Config) *Transport {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Stream == "" {
		cfg.Stream = "PFLANZEN"
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "pflanzen."
	}
	if cfg.DurablePrefix == "" {
		cfg.DurablePrefix = "pflanzen-"
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = 30 * time.Second
	}
	if cfg.MaxAckPending <= 0 {
		cfg.MaxAckPending = 1024
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "transport.nats"))
	}
	return &Transport{
		cfg:      cfg,
		logger:   cfg.Logger,
		registry: messaging.NewRegistry(),
		subs:     make(map[string]*nats.Subscription),
	}
}

// Publish 发布到 <SubjectPrefix><messageType>
func (t *Transport) Publish(ctx context.Context, message messaging.IMessage) error {
	t.mu.Lock()
	js, running := t.js, t.running
	t.mu.Unlock()
	if !running || js == nil {
		return errors.New("nats transport not running")
	}
	data, err := messaging.Encode(message)
	if err != nil {
		return err
	}
	_, err = js.Publish(t.subjectName(message.GetType()), data, nats.Context(ctx), nats.MsgId(message.GetID()))
	return err
}

// Subscribe 注册处理器；运行中时立即建立订阅
func (t *Transport) Subscribe(messageType string, handler messaging.IMessageHandler) error {
	if messageType == messaging.Wildcard {
		return errors.New("natsjetstream: wildcard subscriptions are not supported")
	}
	t.registry.Add(messageType, handler)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return t.subscribeLocked(messageType)
	}
	return nil
}

// Start 建立连接、确保 Stream 存在并为已注册类型订阅
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return errors.New("nats transport already running")
	}
	if err := t.ensureConnection(); err != nil {
		return err
	}
	if err := t.ensureStream(); err != nil {
		return err
	}
	for _, mt := range t.registry.Types() {
		if err := t.subscribeLocked(mt); err != nil {
			return err
		}
	}
	t.running = true
	return nil
}

// Close 排空订阅并关闭自建连接
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	for mt, sub := range t.subs {
		_ = sub.Drain()
		delete(t.subs, mt)
	}
	if t.ownsConn && t.conn != nil {
		t.conn.Close()
	}
	t.conn = nil
	t.js = nil
	return nil
}

// Stats 返回处理器信息
func (t *Transport) Stats() messaging.TransportStats {
	t.mu.Lock()
	running := t.running
	t.mu.Unlock()
	return messaging.TransportStats{
		Name:         "nats",
		Running:      running,
		HandlerCount: t.registry.Count(),
		MessageTypes: t.registry.Types(),
	}
}

func (t *Transport) ensureConnection() error {
	if t.conn != nil && t.js != nil {
		return nil
	}
	if t.cfg.Conn != nil {
		t.conn = t.cfg.Conn
	} else {
		conn, err := nats.Connect(t.cfg.URL, nats.Name("pflanzen"))
		if err != nil {
			return err
		}
		t.conn = conn
		t.ownsConn = true
	}
	js, err := t.conn.JetStream()
	if err != nil {
		return err
	}
	t.js = js
	return nil
}

func (t *Transport) ensureStream() error {
	_, err := t.js.StreamInfo(t.cfg.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = t.js.AddStream(t.streamConfig())
	return err
}

func (t *Transport) streamConfig() *nats.StreamConfig {
	retention := nats.WorkQueuePolicy
	switch strings.ToLower(t.cfg.Retention) {
	case "limits":
		retention = nats.LimitsPolicy
	case "interest":
		retention = nats.InterestPolicy
	}
	return &nats.StreamConfig{
		Name:      t.cfg.Stream,
		Subjects:  []string{t.cfg.SubjectPrefix + ">"},
		Retention: retention,
		MaxAge:    t.cfg.MaxAge,
	}
}

func (t *Transport) subscribeLocked(messageType string) error {
	if _, exists := t.subs[messageType]; exists {
		return nil
	}
	durable := t.durableName(messageType)
	sub, err := t.js.QueueSubscribe(t.subjectName(messageType), durable, t.handleMessage,
		nats.ManualAck(),
		nats.Durable(durable),
		nats.AckWait(t.cfg.AckWait),
		nats.MaxAckPending(t.cfg.MaxAckPending),
		nats.MaxDeliver(t.cfg.MaxDeliver))
	if err != nil {
		return err
	}
	t.subs[messageType] = sub
	return nil
}

func (t *Transport) handleMessage(msg *nats.Msg) {
	ctx := context.Background()
	decoded, err := messaging.Decode(msg.Data)
	if err != nil {
		t.logger.Warn(ctx, "decode nats message failed", logging.String("subject", msg.Subject), logging.Error(err))
		_ = msg.Term()
		return
	}
	if id := decoded.GetMetadata()[messaging.MetaRequestID]; id != "" {
		ctx = logging.WithRequestID(ctx, id)
	}
	if failed := t.registry.Dispatch(ctx, t.logger, decoded); failed > 0 {
		// 交由 JetStream 按 MaxDeliver 重投
		_ = msg.Nak()
		return
	}
	if err := msg.Ack(); err != nil {
		t.logger.Warn(ctx, "nats ack failed", logging.Error(err))
	}
}

func (t *Transport) subjectName(messageType string) string {
	return t.cfg.SubjectPrefix + messageType
}

// durableName JetStream 的 durable 名不允许包含 "."
func (t *Transport) durableName(messageType string) string {
	return t.cfg.DurablePrefix + strings.ReplaceAll(messageType, ".", "_")
}
