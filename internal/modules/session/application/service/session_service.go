package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	feedRepository "github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/domain/repository"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/domain/repository"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/kv"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/util/myjwt"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

const TokenKey = "access_token"

// ErrNoToken 配置、存储、钥匙串里都没有可用 token
var ErrNoToken = errors.New("session: no token available")

// Session 当前登录状态
type Session struct {
	LoggedIn  bool       `json:"loggedIn"`
	UserID    string     `json:"userId,omitempty"`
	Username  string     `json:"username,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Connected bool       `json:"connected"`
}

// ReadStatusResetter 登出时清空已读缓存
type ReadStatusResetter interface {
	ClearAllReadStatus()
}

// FeedBinder 登录后把通知列表切到该用户的存储
type FeedBinder interface {
	Rebind(ctx context.Context, repo feedRepository.FeedRepository)
}

// TokenVault 系统钥匙串
type TokenVault interface {
	Token() (string, error)
	SetToken(token string) error
	DeleteToken() error
}

type SessionService interface {
	Login(ctx context.Context, token string) (Session, error)
	Logout(ctx context.Context) error
	// Restore 依次尝试配置、存储、钥匙串中的 token
	Restore(ctx context.Context) (Session, error)
	Current() Session
	// Token 给 REST 客户端用的 token 来源
	Token() string
	Active() bool
}

// Deps 构造参数；Vault 可以为 nil
type Deps struct {
	Store       kv.Store
	Channel     repository.PushChannel
	ReadStatus  ReadStatusResetter
	Feed        FeedBinder
	FeedRepoFor func(userID string) feedRepository.FeedRepository
	Vault       TokenVault
	ConfigToken string
}

type sessionServiceImpl struct {
	deps Deps
	now  func() time.Time

	mu     sync.RWMutex
	token  string
	claims *myjwt.CustomClaims
}

func NewSessionService(deps Deps) SessionService {
	return &sessionServiceImpl{deps: deps, now: time.Now}
}

func (s *sessionServiceImpl) Login(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	claims, err := myjwt.Inspect(token, s.now())
	if err != nil {
		return s.Current(), err
	}

	if err := s.deps.Store.Set(ctx, TokenKey, []byte(token)); err != nil {
		return s.Current(), pkgerrors.Wrap(err, "persisting token")
	}
	if s.deps.Vault != nil {
		if err := s.deps.Vault.SetToken(token); err != nil {
			zlog.Warn("save token to keyring failed", zap.Error(err))
		}
	}

	s.mu.Lock()
	prevUser := s.claims.UserID()
	s.token = token
	s.claims = claims
	s.mu.Unlock()

	userID := claims.UserID()
	if prevUser != "" && prevUser != userID && s.deps.ReadStatus != nil {
		s.deps.ReadStatus.ClearAllReadStatus()
	}
	if s.deps.Feed != nil && s.deps.FeedRepoFor != nil {
		s.deps.Feed.Rebind(ctx, s.deps.FeedRepoFor(userID))
	}

	// 连接失败不影响登录，REST 仍可用；由界面或下次登录触发重连
	if err := s.deps.Channel.Connect(ctx, token); err != nil {
		zlog.Warn("push channel connect failed", zap.String("user", userID), zap.Error(err))
	}
	zlog.Info("session started", zap.String("user", userID), zap.Bool("connected", s.deps.Channel.IsConnected()))
	return s.Current(), nil
}

func (s *sessionServiceImpl) Logout(ctx context.Context) error {
	s.deps.Channel.Disconnect()
	if s.deps.ReadStatus != nil {
		s.deps.ReadStatus.ClearAllReadStatus()
	}

	s.mu.Lock()
	userID := s.claims.UserID()
	s.token = ""
	s.claims = nil
	s.mu.Unlock()

	var firstErr error
	if err := s.deps.Store.Remove(ctx, TokenKey); err != nil && !errors.Is(err, kv.ErrNotFound) {
		firstErr = pkgerrors.Wrap(err, "removing token")
	}
	if s.deps.Vault != nil {
		if err := s.deps.Vault.DeleteToken(); err != nil {
			zlog.Warn("delete token from keyring failed", zap.Error(err))
		}
	}
	zlog.Info("session ended", zap.String("user", userID))
	return firstErr
}

func (s *sessionServiceImpl) Restore(ctx context.Context) (Session, error) {
	for _, c := range s.candidates(ctx) {
		if c.token == "" {
			continue
		}
		if _, err := myjwt.Inspect(c.token, s.now()); err != nil {
			zlog.Info("skip unusable token", zap.String("source", c.source), zap.Error(err))
			continue
		}
		sess, err := s.Login(ctx, c.token)
		if err != nil {
			return sess, err
		}
		zlog.Info("session restored", zap.String("source", c.source))
		return sess, nil
	}
	return s.Current(), ErrNoToken
}

type candidate struct {
	source string
	token  string
}

func (s *sessionServiceImpl) candidates(ctx context.Context) []candidate {
	out := []candidate{{source: "config", token: s.deps.ConfigToken}}

	data, err := s.deps.Store.Get(ctx, TokenKey)
	switch {
	case err == nil:
		out = append(out, candidate{source: "storage", token: string(data)})
	case !errors.Is(err, kv.ErrNotFound):
		zlog.Warn("read stored token failed", zap.Error(err))
	}

	if s.deps.Vault != nil {
		tok, err := s.deps.Vault.Token()
		if err != nil {
			zlog.Warn("read keyring token failed", zap.Error(err))
		}
		out = append(out, candidate{source: "keyring", token: tok})
	}
	return out
}

func (s *sessionServiceImpl) Current() Session {
	s.mu.RLock()
	claims := s.claims
	s.mu.RUnlock()

	sess := Session{Connected: s.deps.Channel.IsConnected()}
	if claims == nil {
		return sess
	}
	sess.LoggedIn = true
	sess.UserID = claims.UserID()
	sess.Username = claims.Username
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		sess.ExpiresAt = &exp
	}
	return sess
}

func (s *sessionServiceImpl) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *sessionServiceImpl) Active() bool {
	return s.Token() != ""
}
