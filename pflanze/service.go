package pflanze

import (
	"context"
	stderrors "errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"pflanzen/errors"
	"pflanzen/logging"
)

// VersionPolicy 更新时版本令牌与存储版本的比较方式
type VersionPolicy int

const (
	// VersionAtLeast 令牌不落后于存储版本即可（并发更新时后写者覆盖）
	VersionAtLeast VersionPolicy = iota
	// VersionExact 令牌必须等于存储版本，替换以存储版本为条件
	VersionExact
)

// ParseVersionPolicy 解析配置中的策略名，未知值返回 VersionAtLeast
func ParseVersionPolicy(s string) VersionPolicy {
	if s == "exact" {
		return VersionExact
	}
	return VersionAtLeast
}

func (p VersionPolicy) String() string {
	if p == VersionExact {
		return "exact"
	}
	return "at-least"
}

// Notifier 创建成功后的通知（尽力而为）
type Notifier interface {
	PflanzeCreated(ctx context.Context, p *Pflanze) error
}

// NotifierFunc 函数适配器
type NotifierFunc func(ctx context.Context, p *Pflanze) error

// PflanzeCreated 实现 Notifier
func (f NotifierFunc) PflanzeCreated(ctx context.Context, p *Pflanze) error { return f(ctx, p) }

// ServiceConfig 服务配置
type ServiceConfig struct {
	// 版本比较策略
	VersionPolicy VersionPolicy

	// 创建后通知，nil 时不通知
	Notifier Notifier

	Logger logging.Logger

	// 时钟，测试可替换
	Now func() time.Time

	// ID 生成器
	NewID func() string
}

// DefaultServiceConfig 默认服务配置
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		VersionPolicy: VersionAtLeast,
		Now:           time.Now,
		NewID:         uuid.NewString,
	}
}

// Service 实体服务，是实体的唯一写入者
type Service struct {
	store    Store
	policy   VersionPolicy
	notifier Notifier
	logger   logging.Logger
	now      func() time.Time
	newID    func() string

	// 进行中的异步通知
	pending sync.WaitGroup
}

// NewService 创建实体服务
func NewService(store Store, config *ServiceConfig) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}
	s := &Service{
		store:    store,
		policy:   config.VersionPolicy,
		notifier: config.Notifier,
		logger:   config.Logger,
		now:      config.Now,
		newID:    config.NewID,
	}
	if s.logger == nil {
		s.logger = logging.GetLogger()
	}
	s.logger = s.logger.WithFields(logging.String("component", "pflanze.service"))
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Policy 返回当前版本策略
func (s *Service) Policy() VersionPolicy { return s.policy }

// FindByID 不存在时返回 (nil, nil)
func (s *Service) FindByID(ctx context.Context, id string) (*Pflanze, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "find pflanze by id")
	}
	s.logger.Debug(ctx, "findById", logging.String("id", id), logging.Bool("found", p != nil))
	return p, nil
}

// Find 按条件查询，结果按名称升序
func (s *Service) Find(ctx context.Context, criteria Criteria) ([]*Pflanze, error) {
	filter := criteria.Filter()
	result, err := s.store.Find(ctx, filter)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "find pflanzen")
	}
	s.logger.Debug(ctx, "find", logging.Int("count", len(result)))
	return result, nil
}

// Create 校验并新建实体；业务失败返回 PflanzeInvalid、NameExists 或 ArtikelnummerExists
func (s *Service) Create(ctx context.Context, candidate *Pflanze) (*Pflanze, error) {
	if msg := Validate(candidate); msg != nil {
		s.logger.Debug(ctx, "create: ungueltig", logging.String("errors", msg.Error()))
		return nil, &PflanzeInvalid{Msg: msg}
	}
	if err := s.checkUnique(ctx, candidate, ""); err != nil {
		return nil, err
	}

	p := candidate.Clone()
	now := s.now().UTC()
	p.ID = s.newID()
	p.Version = 0
	p.CreatedAt = now
	p.UpdatedAt = now

	saved, err := s.store.Insert(ctx, p)
	if err != nil {
		if stderrors.Is(err, ErrUniqueViolation) {
			if conflict := s.checkUnique(ctx, p, p.ID); conflict != nil {
				return nil, conflict
			}
		}
		return nil, errors.WrapDatabaseError(ctx, err, "insert pflanze")
	}

	s.logger.Info(ctx, "Pflanze angelegt", logging.String("id", saved.ID), logging.String("name", saved.Name))
	s.notifyCreated(ctx, saved)
	return saved, nil
}

// Update 按版本令牌整体替换实体
//
// 业务失败依次为 VersionInvalid、PflanzeInvalid、NameExists、ArtikelnummerExists、
// PflanzeNotExists、VersionOutdated。
func (s *Service) Update(ctx context.Context, id string, candidate *Pflanze, versionToken string) (*Pflanze, error) {
	version, err := strconv.ParseInt(versionToken, 10, 64)
	if err != nil {
		return nil, &VersionInvalid{Version: versionToken}
	}

	if msg := Validate(candidate); msg != nil {
		return nil, &PflanzeInvalid{Msg: msg}
	}
	if err := s.checkUnique(ctx, candidate, id); err != nil {
		return nil, err
	}

	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "find pflanze by id")
	}
	if current == nil {
		return nil, &PflanzeNotExists{ID: id}
	}
	if !s.versionAccepted(version, current.Version) {
		s.logger.Debug(ctx, "update: veraltete Version",
			logging.String("id", id), logging.Int64("version", version), logging.Int64("stored", current.Version))
		return nil, &VersionOutdated{ID: id, Version: version}
	}

	p := candidate.Clone()
	p.ID = id
	p.UpdatedAt = s.now().UTC()

	var ifVersion *int64
	if s.policy == VersionExact {
		ifVersion = &version
	}
	updated, err := s.store.ReplaceByID(ctx, p, ifVersion)
	if err != nil {
		if stderrors.Is(err, ErrUniqueViolation) {
			if conflict := s.checkUnique(ctx, p, id); conflict != nil {
				return nil, conflict
			}
		}
		return nil, errors.WrapDatabaseError(ctx, err, "replace pflanze")
	}
	if updated == nil {
		return nil, s.replaceMissed(ctx, id, version, ifVersion != nil)
	}

	s.logger.Info(ctx, "Pflanze aktualisiert", logging.String("id", id), logging.Int64("version", updated.Version))
	return updated, nil
}

// Delete 无条件删除，返回是否确实删除了记录
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return false, errors.WrapDatabaseError(ctx, err, "delete pflanze")
	}
	s.logger.Debug(ctx, "delete", logging.String("id", id), logging.Int64("deleted", n))
	return n > 0, nil
}

// Close 等待进行中的通知结束，或直到 ctx 结束
func (s *Service) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) versionAccepted(supplied, stored int64) bool {
	if s.policy == VersionExact {
		return supplied == stored
	}
	return supplied >= stored
}

// replaceMissed 条件替换未命中时区分实体已删除与版本已变化
func (s *Service) replaceMissed(ctx context.Context, id string, version int64, conditional bool) error {
	if conditional {
		current, err := s.store.FindByID(ctx, id)
		if err != nil {
			return errors.WrapDatabaseError(ctx, err, "find pflanze by id")
		}
		if current != nil {
			return &VersionOutdated{ID: id, Version: version}
		}
	}
	return &PflanzeNotExists{ID: id}
}

// checkUnique 检查名称与商品编号；selfID 命中的记录不算冲突
func (s *Service) checkUnique(ctx context.Context, p *Pflanze, selfID string) error {
	id, found, err := s.store.FindIDByName(ctx, p.Name)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "find pflanze by name")
	}
	if found && id != selfID {
		s.logger.Debug(ctx, "Name existiert bereits", logging.String("name", p.Name), logging.String("id", id))
		return &NameExists{Name: p.Name, ID: id}
	}

	if p.Artikelnummer == nil {
		return nil
	}
	id, found, err = s.store.FindIDByArtikelnummer(ctx, *p.Artikelnummer)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "find pflanze by artikelnummer")
	}
	if found && id != selfID {
		return &ArtikelnummerExists{Artikelnummer: *p.Artikelnummer, ID: id}
	}
	return nil
}

func (s *Service) notifyCreated(ctx context.Context, p *Pflanze) {
	if s.notifier == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	snapshot := p.Clone()

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.notifier.PflanzeCreated(detached, snapshot); err != nil {
			s.logger.Warn(detached, "Benachrichtigung fehlgeschlagen",
				logging.String("id", snapshot.ID), logging.Error(err))
		}
	}()
}
