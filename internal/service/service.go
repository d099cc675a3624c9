// Package service реализует бизнес-логику сервера печати этикеток.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/cache"
	"github.com/mmeshcher/labelprint/internal/catalog"
	"github.com/mmeshcher/labelprint/internal/dashboard"
	"github.com/mmeshcher/labelprint/internal/expiry"
	"github.com/mmeshcher/labelprint/internal/model"
	"github.com/mmeshcher/labelprint/internal/orderstore"
	"github.com/mmeshcher/labelprint/internal/repository"
	"github.com/mmeshcher/labelprint/internal/validation"
)

const catalogCacheKey = "fgcode:all"

// ErrInvalidCredentials возвращается при неверном имени или пароле.
var ErrInvalidCredentials = apperr.New(apperr.KindAuth, "invalid credentials")

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CountUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUserByName(ctx context.Context, name string) (model.User, error)
	GetUserByID(ctx context.Context, id int64) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, u model.User) error
	DeleteUser(ctx context.Context, id int64) error

	ListProductCodes(ctx context.Context) ([]model.ProductCode, error)
	CreateProductCode(ctx context.Context, p model.ProductCode) error
	UpdateProductCode(ctx context.Context, p model.ProductCode) error
	DeleteProductCode(ctx context.Context, id string) error

	CreateOrder(ctx context.Context, o model.Order) (model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, string, error)
	OrderRevision(ctx context.Context) (string, error)
	GetOrder(ctx context.Context, id int64) (model.Order, error)
	UpdateOrder(ctx context.Context, o model.Order) (model.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
}

// TokenIssuer подписывает bearer-токены.
type TokenIssuer interface {
	IssueToken(u model.User) (string, error)
}

// Option настраивает сервис.
type Option func(*Service)

// WithCache включает кэширование справочника продукции.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = store
		s.catalogTTL = ttl
	}
}

// WithLogger задаёт логгер сервиса.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service содержит бизнес-логику сервера печати этикеток.
type Service struct {
	repo   Repository
	tokens TokenIssuer
	calc   *expiry.Calculator
	logger *zap.Logger
	now    func() time.Time

	cache      cache.Store
	catalogTTL time.Duration
}

// NewService создаёт новый сервис с указанным репозиторием и эмитентом токенов.
func NewService(repo Repository, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		tokens: tokens,
		logger: zap.NewNop(),
		now:    time.Now,
		cache:  cache.NoopStore{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.calc = expiry.NewCalculator(s.logger)
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	if s.repo != nil {
		errs = append(errs, s.repo.Close())
	}
	return errors.Join(errs...)
}

func hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// SignIn проверяет имя и пароль и выдаёт токен.
func (s *Service) SignIn(ctx context.Context, name, password string) (string, model.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return "", "", apperr.Missing(missingCredentials(name, password)...)
	}

	u, err := s.repo.GetUserByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	token, err := s.tokens.IssueToken(u)
	if err != nil {
		return "", "", err
	}
	return token, u.Role, nil
}

func missingCredentials(name, password string) []string {
	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	return missing
}

// AdminInfo возвращает профиль пользователя.
func (s *Service) AdminInfo(ctx context.Context, userID int64) (model.Profile, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}
	return model.Profile{Name: u.Name, Role: u.Role, Email: u.Email}, nil
}

// ProfileInput описывает изменение собственного профиля.
type ProfileInput struct {
	Name     string
	Email    string
	Password string
}

// EditProfile изменяет имя, почту и пароль пользователя; роль не меняется.
// Пустой пароль оставляет прежний.
func (s *Service) EditProfile(ctx context.Context, userID int64, in ProfileInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperr.Missing("name")
	}

	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	u.Name = name
	u.Email = strings.TrimSpace(in.Email)
	u.PasswordHash = nil
	if in.Password != "" {
		if u.PasswordHash, err = hashPassword(in.Password); err != nil {
			return err
		}
	}

	return s.repo.UpdateUser(ctx, u)
}

// UserInput описывает создание или изменение пользователя администратором.
type UserInput struct {
	ID       int64
	Name     string
	Email    string
	Password string
	Role     model.Role
}

// ListUsers возвращает всех пользователей.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// CreateUser создаёт пользователя. Без указанной роли создаётся обычный оператор.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (model.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Password == "" {
		return model.User{}, apperr.Missing(missingCredentials(name, in.Password)...)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return model.User{}, err
	}

	role := model.Role(strings.TrimSpace(string(in.Role)))
	if role == "" {
		role = model.RoleUser
	}

	return s.repo.CreateUser(ctx, model.User{
		Name:         name,
		Email:        strings.TrimSpace(in.Email),
		Role:         role,
		PasswordHash: hash,
	})
}

// UpdateUser изменяет пользователя. Пустой пароль оставляет прежний.
func (s *Service) UpdateUser(ctx context.Context, in UserInput) error {
	name := strings.TrimSpace(in.Name)
	if in.ID == 0 || name == "" {
		var missing []string
		if in.ID == 0 {
			missing = append(missing, "id")
		}
		if name == "" {
			missing = append(missing, "name")
		}
		return apperr.Missing(missing...)
	}

	u, err := s.repo.GetUserByID(ctx, in.ID)
	if err != nil {
		return err
	}

	u.Name = name
	u.Email = strings.TrimSpace(in.Email)
	if role := model.Role(strings.TrimSpace(string(in.Role))); role != "" {
		u.Role = role
	}
	u.PasswordHash = nil
	if in.Password != "" {
		if u.PasswordHash, err = hashPassword(in.Password); err != nil {
			return err
		}
	}

	return s.repo.UpdateUser(ctx, u)
}

// DeleteUser удаляет пользователя. Удалить собственную учётную запись нельзя.
func (s *Service) DeleteUser(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return apperr.Validation("cannot delete own account")
	}
	return s.repo.DeleteUser(ctx, id)
}

// EnsureAdmin создаёт администратора, если в базе ещё нет ни одного пользователя.
func (s *Service) EnsureAdmin(ctx context.Context, name, password string) error {
	if name == "" || password == "" {
		return nil
	}

	n, err := s.repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	if _, err := s.CreateUser(ctx, UserInput{Name: name, Password: password, Role: model.RoleAdmin}); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	s.logger.Info("bootstrap admin created", zap.String("name", name))
	return nil
}

// ListProductCodes возвращает справочник продукции, по возможности из кэша.
func (s *Service) ListProductCodes(ctx context.Context) ([]model.ProductCode, error) {
	if data, err := s.cache.Get(ctx, catalogCacheKey); err == nil {
		var codes []model.ProductCode
		if err := json.Unmarshal(data, &codes); err == nil {
			return codes, nil
		}
		s.logger.Warn("drop corrupt catalog cache entry")
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("catalog cache read failed", zap.Error(err))
	}

	codes, err := s.repo.ListProductCodes(ctx)
	if err != nil {
		return nil, err
	}
	if codes == nil {
		codes = []model.ProductCode{}
	}

	if data, err := json.Marshal(codes); err == nil {
		if err := s.cache.Set(ctx, catalogCacheKey, data, s.catalogTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return codes, nil
}

// Catalog возвращает снимок справочника для поиска по коду.
func (s *Service) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	codes, err := s.ListProductCodes(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.New(codes), nil
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

// CreateProductCode добавляет позицию справочника.
func (s *Service) CreateProductCode(ctx context.Context, p model.ProductCode) error {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Exp = strings.TrimSpace(p.Exp)
	if err := validation.ValidateProductCode(p); err != nil {
		return err
	}
	if err := s.repo.CreateProductCode(ctx, p); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

// UpdateProductCode изменяет название и срок годности; код не меняется.
func (s *Service) UpdateProductCode(ctx context.Context, p model.ProductCode) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Exp = strings.TrimSpace(p.Exp)
	if err := validation.ValidateProductCode(p); err != nil {
		return err
	}
	if err := s.repo.UpdateProductCode(ctx, p); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

// DeleteProductCode удаляет позицию справочника.
func (s *Service) DeleteProductCode(ctx context.Context, id string) error {
	if err := s.repo.DeleteProductCode(ctx, id); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

// CreateOrder сохраняет заказ от имени автора. Название и срок годности берутся
// из справочника, если код в нём есть; дата окончания срока всегда пересчитывается.
// Время создания и автора назначает сервер.
func (s *Service) CreateOrder(ctx context.Context, author string, o model.Order) (model.Order, error) {
	if err := validation.ValidateOrder(o); err != nil {
		return model.Order{}, err
	}

	cat, err := s.Catalog(ctx)
	if err != nil {
		return model.Order{}, err
	}
	if p, ok := cat.Lookup(o.ProductID); ok {
		o.ProductName = p.Name
		o.ProductExp = p.Exp
	}
	o.ExpiryDate = s.calc.ComputeDate(o.ProductionDate, o.ProductExp)

	now := s.now()
	if o.OrderDate == "" {
		o.OrderDate = now.Format(model.DateLayout)
		o.OrderTime = now.Format(model.TimeLayout)
	}
	o.ID = 0
	o.CreatedAt = now
	o.CreatedBy = strings.TrimSpace(author)
	o.VerifiedBy, o.VerifiedAt, o.IsVerified = "", nil, false

	created, err := s.repo.CreateOrder(ctx, o)
	if err != nil {
		return model.Order{}, err
	}
	s.logger.Info("order created", zap.Int64("orderID", created.ID), zap.String("lot", created.LotNumber))
	return created, nil
}

// ListOrders возвращает все заказы и ревизию коллекции.
func (s *Service) ListOrders(ctx context.Context) ([]model.Order, string, error) {
	return s.repo.ListOrders(ctx)
}

// OrderRevision возвращает ревизию коллекции заказов.
func (s *Service) OrderRevision(ctx context.Context) (string, error) {
	return s.repo.OrderRevision(ctx)
}

// UpdateOrder применяет патч к заказу с пересчётом производных полей.
func (s *Service) UpdateOrder(ctx context.Context, id int64, patch model.OrderPatch) (model.Order, error) {
	current, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if patch.IsEmpty() {
		return current, nil
	}

	cat, err := s.Catalog(ctx)
	if err != nil {
		return model.Order{}, err
	}

	updated, err := orderstore.ApplyPatch(current, patch, cat, s.calc)
	if err != nil {
		return model.Order{}, err
	}

	return s.repo.UpdateOrder(ctx, updated)
}

// DeleteOrder удаляет заказ.
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	if err := s.repo.DeleteOrder(ctx, id); err != nil {
		return err
	}
	s.logger.Info("order deleted", zap.Int64("orderID", id))
	return nil
}

// DashboardResult содержит заказы, попавшие в фильтр (новые первыми), и сводку по всей коллекции.
type DashboardResult struct {
	Orders  []model.Order     `json:"orders"`
	Summary dashboard.Summary `json:"summary"`
}

// Dashboard отбирает заказы по окну и номеру партии и считает сводку.
func (s *Service) Dashboard(ctx context.Context, w dashboard.Window, term string) (DashboardResult, error) {
	orders, _, err := s.repo.ListOrders(ctx)
	if err != nil {
		return DashboardResult{}, err
	}

	now := s.now()
	visible := dashboard.Filter(orders, w, term, now)
	dashboard.SortNewestFirst(visible)

	return DashboardResult{
		Orders:  visible,
		Summary: dashboard.Aggregate(orders, now),
	}, nil
}
