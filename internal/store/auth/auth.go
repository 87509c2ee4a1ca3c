// Package auth はログイン中ユーザーをリモートのセッションと同期して持つストア。
package auth

import (
	"context"
	"errors"
	"sync"

	"storefront/internal/domain/model"
	"storefront/internal/logger"
	"storefront/internal/remote"

	"github.com/sirupsen/logrus"
)

var (
	// ログインしていないのにプロフィールを更新しようとした
	ErrNoUserLoggedIn = errors.New("no user logged in")
	// 成功扱いなのにユーザーが返ってこなかった
	ErrUnknownSignIn = errors.New("sign in returned no user")
	ErrUnknownSignUp = errors.New("sign up returned no user")
)

type Status int

const (
	StatusUnknown Status = iota
	StatusLoading
	StatusAuthenticated
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// IsAuthenticated は User != nil と常に一致する
type State struct {
	User            *model.Identity
	IsLoading       bool
	IsAuthenticated bool
	Status          Status
}

type Store struct {
	auth     remote.Auth
	profiles remote.Profiles
	log      *logrus.Logger

	mu    sync.RWMutex
	state State

	//状態の書き込みと通知を直列にする
	notifyMu sync.Mutex

	subsMu sync.Mutex
	subs   map[int]func(State)
	nextID int
}

// 作成直後はLoading（LoadUserを呼ぶ前提）
func New(authClient remote.Auth, profiles remote.Profiles, log *logrus.Logger) *Store {
	return &Store{
		auth:     authClient,
		profiles: profiles,
		log:      logger.OrDiscard(log),
		state:    State{IsLoading: true, Status: StatusLoading},
		subs:     map[int]func(State){},
	}
}

// セッションとプロフィールを取り直す。どの経路でもIsLoadingはfalseで終わる。
func (s *Store) LoadUser(ctx context.Context) {
	s.set(func(st *State) {
		st.IsLoading = true
		st.Status = StatusLoading
	})

	sess, err := s.auth.GetSession(ctx)
	if err != nil {
		s.log.WithError(err).Warn("session check failed")
		s.setAnonymous()
		return
	}
	if sess == nil {
		s.setAnonymous()
		return
	}

	identity := &model.Identity{ID: sess.User.ID, Email: sess.User.Email}

	//プロフィールは無くてもログイン扱い
	p, err := s.profiles.GetProfile(ctx, sess.User.ID)
	switch {
	case err == nil:
		identity.Profile = p
	case errors.Is(err, remote.ErrNoRows):
	default:
		s.log.WithError(err).WithField("user_id", sess.User.ID).Warn("profile fetch failed")
	}

	s.set(func(st *State) {
		*st = State{User: identity, IsAuthenticated: true, Status: StatusAuthenticated}
	})
}

// 失敗したら状態は変えずにエラーをそのまま返す
func (s *Store) SignIn(ctx context.Context, email string, password string) error {
	res, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return err
	}
	if res == nil || res.User == nil {
		return ErrUnknownSignIn
	}

	s.LoadUser(ctx)
	return nil
}

// 登録後に空のプロフィールを作る（失敗してもサインアップは成功）
func (s *Store) SignUp(ctx context.Context, email string, password string) (*model.Identity, error) {
	res, err := s.auth.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if res == nil || res.User == nil {
		return nil, ErrUnknownSignUp
	}

	if err := s.profiles.InsertProfile(ctx, res.User.ID); err != nil {
		s.log.WithError(err).WithField("user_id", res.User.ID).Warn("failed to create profile")
	}

	s.LoadUser(ctx)
	return &model.Identity{ID: res.User.ID, Email: res.User.Email}, nil
}

// リモートの結果に関わらずAnonymousにする
func (s *Store) SignOut(ctx context.Context) error {
	err := s.auth.SignOut(ctx)
	if err != nil {
		s.log.WithError(err).Warn("remote sign out failed")
	}
	s.setAnonymous()
	return err
}

// 成功したらリモートから取り直す（ローカルでのマージはしない）
func (s *Store) UpdateProfile(ctx context.Context, patch model.ProfilePatch) error {
	user := s.User()
	if user == nil {
		return ErrNoUserLoggedIn
	}

	if err := s.profiles.UpdateProfile(ctx, user.ID, patch); err != nil {
		return err
	}

	s.LoadUser(ctx)
	return nil
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneState(s.state)
}

func (s *Store) User() *model.Identity {
	return s.State().User
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.IsAuthenticated
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.IsLoading
}

// 状態が変わるたびにfnを呼ぶ。戻り値で解除。
// fnの中から状態を変える操作（LoadUserなど）を呼んではいけない。
func (s *Store) Subscribe(fn func(State)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) setAnonymous() {
	s.set(func(st *State) {
		*st = State{Status: StatusAnonymous}
	})
}

func (s *Store) set(fn func(st *State)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	fn(&s.state)
	snapshot := cloneState(s.state)
	s.mu.Unlock()

	s.subsMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, f := range s.subs {
		fns = append(fns, f)
	}
	s.subsMu.Unlock()

	for _, f := range fns {
		f(snapshot)
	}
}

// 呼び出し側がUserを書き換えてもストアに影響しない
func cloneState(st State) State {
	if st.User == nil {
		return st
	}
	u := *st.User
	if u.Profile != nil {
		p := *u.Profile
		if p.Address != nil {
			a := *p.Address
			p.Address = &a
		}
		u.Profile = &p
	}
	st.User = &u
	return st
}
