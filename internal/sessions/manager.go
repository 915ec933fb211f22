package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bluebird-io/portal/internal/i18n"
	"github.com/bluebird-io/portal/internal/models"
	"github.com/bluebird-io/portal/internal/storage"
	"github.com/bluebird-io/portal/internal/v2board"
)

// Keys of the persisted session entries.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// API is the part of the backend client the manager depends on.
type API interface {
	SendEmailCode(ctx context.Context, req models.SendEmailCodeRequest) (*v2board.Response[json.RawMessage], error)
	Register(ctx context.Context, req models.RegisterRequest) (*v2board.Response[models.AuthData], error)
	Login(ctx context.Context, req models.LoginRequest) (*v2board.Response[models.AuthData], error)
	GetUserInfo(ctx context.Context) (*v2board.Response[models.UserInfo], error)
	Logout(ctx context.Context) (*v2board.Response[json.RawMessage], error)
	ResetPassword(ctx context.Context, req models.ResetPasswordRequest) (*v2board.Response[json.RawMessage], error)
	CheckEmail(ctx context.Context, email string) (*v2board.Response[models.CheckEmailData], error)
	SetToken(token string)
	ClearToken()
}

// State is a snapshot of the session. IsAuthenticated is true exactly
// when both Token and User are set.
type State struct {
	User            *models.UserInfo `json:"user"`
	Token           string           `json:"-"`
	IsLoading       bool             `json:"isLoading"`
	IsAuthenticated bool             `json:"isAuthenticated"`
	// Version increases on every transition. Snapshots delivered out of
	// order can be discarded by comparing versions.
	Version uint64 `json:"version"`
}

func (s State) clone() State {
	s.User = s.User.Clone()
	return s
}

type Listener func(State)

type listenerEntry struct {
	id       uuid.UUID
	listener Listener
}

// Manager owns the single session of a process. It is the only writer of
// the session state and the persisted store; every transition is pushed
// to subscribers.
type Manager struct {
	api      API
	store    storage.Store
	messages *i18n.Translator

	lock     sync.Mutex
	state    State
	inFlight int

	listenersLock sync.Mutex
	listeners     []listenerEntry
}

type Option func(*Manager)

func WithTranslator(translator *i18n.Translator) Option {
	return func(m *Manager) {
		m.messages = translator
	}
}

// NewManager builds a manager and hydrates it from the store. A store
// that cannot be read leaves the session unauthenticated.
func NewManager(ctx context.Context, api API, store storage.Store, opts ...Option) *Manager {
	manager := &Manager{
		api:      api,
		store:    store,
		messages: i18n.New(""),
	}

	for _, opt := range opts {
		opt(manager)
	}

	manager.hydrate(ctx)

	return manager
}

func (m *Manager) hydrate(ctx context.Context) {
	token, tokenErr := m.store.Get(ctx, KeyToken)
	encodedUser, userErr := m.store.Get(ctx, KeyUser)

	if errors.Is(tokenErr, storage.ErrNotFound) && errors.Is(userErr, storage.ErrNotFound) {
		logrus.Debugln("No persisted session found")
		return
	}

	if tokenErr != nil && !errors.Is(tokenErr, storage.ErrNotFound) {
		logrus.WithError(tokenErr).Errorln("Failed to read persisted token")
		return
	}
	if userErr != nil && !errors.Is(userErr, storage.ErrNotFound) {
		logrus.WithError(userErr).Errorln("Failed to read persisted user")
		return
	}

	var user models.UserInfo
	if len(token) == 0 || len(encodedUser) == 0 || json.Unmarshal([]byte(encodedUser), &user) != nil {
		logrus.Warnln("Persisted session is incomplete or corrupt, clearing it")
		if err := m.store.Delete(ctx, KeyToken, KeyUser); err != nil {
			logrus.WithError(err).Errorln("Failed to clear persisted session")
		}
		return
	}

	m.api.SetToken(token)

	m.lock.Lock()
	m.state = State{
		User:            &user,
		Token:           token,
		IsAuthenticated: true,
	}
	m.lock.Unlock()

	logrus.WithFields(logrus.Fields{
		"user": user.GetName(),
	}).Debugln("Restored persisted session")
}

// State returns a copy of the current snapshot.
func (m *Manager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state.clone()
}

func (m *Manager) IsAuthenticated() bool {
	return m.State().IsAuthenticated
}

func (m *Manager) GetUser() *models.UserInfo {
	return m.State().User
}

// Subscribe registers a listener called on every transition, in
// subscription order. The returned function removes it and may be called
// more than once.
func (m *Manager) Subscribe(listener Listener) func() {
	id := uuid.New()

	m.listenersLock.Lock()
	m.listeners = append(m.listeners, listenerEntry{
		id:       id,
		listener: listener,
	})
	m.listenersLock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenersLock.Lock()
			defer m.listenersLock.Unlock()

			remaining := make([]listenerEntry, 0, len(m.listeners))
			for _, entry := range m.listeners {
				if entry.id != id {
					remaining = append(remaining, entry)
				}
			}
			m.listeners = remaining
		})
	}
}

// Login authenticates with email and password. Only a response carrying
// both a token and the user is treated as a successful login.
func (m *Manager) Login(ctx context.Context, email string, password string) models.Result {
	m.beginLoading()
	defer m.endLoading()

	resp, err := m.api.Login(ctx, models.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return m.failure(err, i18n.LoginFailed)
	}

	if !resp.Data.HasCredentials() {
		return models.Result{
			Success: false,
			Message: m.messageOr(resp.Message, i18n.LoginFailed),
		}
	}

	if err := m.establish(ctx, resp.Data.Token, resp.Data.AuthData); err != nil {
		return models.Result{Success: false, Message: m.messages.T(i18n.RequestFailed)}
	}

	logrus.WithFields(logrus.Fields{
		"user": resp.Data.AuthData.GetName(),
	}).Infoln("Logged in")

	return models.Result{
		Success:       true,
		Message:       m.messages.T(i18n.LoginSuccess),
		Authenticated: true,
	}
}

// Register creates an account. When the backend answers with credentials
// the user is logged in straight away; otherwise a successful response
// means the account exists and a separate login is needed.
func (m *Manager) Register(ctx context.Context, req models.RegisterRequest) models.Result {
	m.beginLoading()
	defer m.endLoading()

	resp, err := m.api.Register(ctx, req)
	if err != nil {
		return m.failure(err, i18n.RegisterFailed)
	}

	if resp.Data.HasCredentials() {
		if err := m.establish(ctx, resp.Data.Token, resp.Data.AuthData); err != nil {
			return models.Result{Success: false, Message: m.messages.T(i18n.RequestFailed)}
		}

		logrus.WithFields(logrus.Fields{
			"user": resp.Data.AuthData.GetName(),
		}).Infoln("Registered and logged in")

		return models.Result{
			Success:       true,
			Message:       m.messages.T(i18n.RegisterSuccess),
			Authenticated: true,
		}
	}

	if resp.IsSuccess() || len(resp.Data.Token) > 0 {
		logrus.WithFields(logrus.Fields{
			"email": req.Email,
		}).Infoln("Registered, login required")

		return models.Result{
			Success: true,
			Message: m.messages.T(i18n.RegisterSuccessNoLogin),
		}
	}

	return models.Result{
		Success: false,
		Message: m.messageOr(resp.Message, i18n.RegisterFailed),
	}
}

// SendEmailCode asks the backend to email a verification code. Every call
// issues a request; rate limiting is left to the caller.
func (m *Manager) SendEmailCode(ctx context.Context, email string, codeType models.EmailCodeType) models.Result {
	if len(codeType) == 0 {
		codeType = models.EmailCodeRegister
	}

	m.beginLoading()
	defer m.endLoading()

	resp, err := m.api.SendEmailCode(ctx, models.SendEmailCodeRequest{
		Email: email,
		Type:  codeType,
	})
	if err != nil {
		return m.failure(err, i18n.CodeSendFailed)
	}

	if !resp.IsSuccess() {
		return models.Result{
			Success: false,
			Message: m.messageOr(resp.Message, i18n.CodeSendFailed),
		}
	}

	return models.Result{
		Success: true,
		Message: m.messageOr(resp.Message, i18n.CodeSent),
	}
}

// ResetPassword sets a new password using an emailed code. It never
// changes the session.
func (m *Manager) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) models.Result {
	m.beginLoading()
	defer m.endLoading()

	resp, err := m.api.ResetPassword(ctx, req)
	if err != nil {
		return m.failure(err, i18n.ResetFailed)
	}

	if !resp.IsSuccess() {
		return models.Result{
			Success: false,
			Message: m.messageOr(resp.Message, i18n.ResetFailed),
		}
	}

	return models.Result{
		Success: true,
		Message: m.messages.T(i18n.ResetSuccess),
	}
}

// Logout tells the backend, ignoring any failure, then clears the local
// session no matter what. The returned error only reports a store that
// could not be cleared. The store is cleared even when ctx is already
// cancelled, since the in-memory session is dropped regardless.
func (m *Manager) Logout(ctx context.Context) error {
	if _, err := m.api.Logout(ctx); err != nil {
		logrus.WithError(err).Debugln("Backend logout failed, clearing local session anyway")
	}

	m.api.ClearToken()

	storeErr := m.store.Delete(context.WithoutCancel(ctx), KeyToken, KeyUser)
	if storeErr != nil {
		logrus.WithError(storeErr).Errorln("Failed to clear persisted session")
	}

	m.update(func(state *State) {
		state.User = nil
		state.Token = ""
	})

	logrus.Infoln("Logged out")

	if storeErr != nil {
		return fmt.Errorf("failed to clear persisted session: %w", storeErr)
	}
	return nil
}

// RefreshUser re-fetches the cached user. It does nothing at all when no
// one is logged in.
func (m *Manager) RefreshUser(ctx context.Context) error {
	current := m.State()
	if !current.IsAuthenticated {
		return nil
	}

	resp, err := m.api.GetUserInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh user: %w", err)
	}

	if resp.Data.ID == 0 && len(resp.Data.Email) == 0 {
		return fmt.Errorf("failed to refresh user: response carried no user")
	}

	// A logout or new login while the request was in flight wins
	if m.State().Token != current.Token {
		logrus.Debugln("Session changed during refresh, discarding user")
		return nil
	}

	user := resp.Data
	encoded, err := json.Marshal(&user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	if err := m.store.Set(context.WithoutCancel(ctx), map[string]string{KeyUser: string(encoded)}); err != nil {
		return fmt.Errorf("failed to persist user: %w", err)
	}

	m.update(func(state *State) {
		if state.Token == current.Token {
			state.User = &user
		}
	})

	return nil
}

// CheckEmail reports whether an account already uses the address.
func (m *Manager) CheckEmail(ctx context.Context, email string) (bool, error) {
	resp, err := m.api.CheckEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return resp.Data.IsExist, nil
}

// establish persists the credentials first and only then publishes them,
// so subscribers never observe a session the store does not hold. The
// backend already accepted the credentials, so a cancelled ctx must not
// abort the write.
func (m *Manager) establish(ctx context.Context, token string, user *models.UserInfo) error {
	encoded, err := json.Marshal(user)
	if err != nil {
		logrus.WithError(err).Errorln("Failed to encode user")
		return err
	}

	err = m.store.Set(context.WithoutCancel(ctx), map[string]string{
		KeyToken: token,
		KeyUser:  string(encoded),
	})
	if err != nil {
		logrus.WithError(err).Errorln("Failed to persist session")
		return err
	}

	m.api.SetToken(token)

	m.update(func(state *State) {
		state.Token = token
		state.User = user.Clone()
	})

	return nil
}

func (m *Manager) beginLoading() {
	m.update(func(*State) {
		m.inFlight++
	})
}

func (m *Manager) endLoading() {
	m.update(func(*State) {
		if m.inFlight > 0 {
			m.inFlight--
		}
	})
}

// update applies a mutation under the lock, derives the flags and
// notifies subscribers outside of it.
func (m *Manager) update(mutate func(state *State)) State {
	m.lock.Lock()
	mutate(&m.state)
	m.state.IsAuthenticated = len(m.state.Token) > 0 && m.state.User != nil
	m.state.IsLoading = m.inFlight > 0
	m.state.Version++
	snapshot := m.state.clone()
	m.lock.Unlock()

	m.notify(snapshot)

	return snapshot
}

func (m *Manager) notify(snapshot State) {
	m.listenersLock.Lock()
	listeners := make([]listenerEntry, len(m.listeners))
	copy(listeners, m.listeners)
	m.listenersLock.Unlock()

	for _, entry := range listeners {
		entry.listener(snapshot.clone())
	}
}

// failure turns a client error into a result. Backend messages are shown
// as sent; anything without one falls back to a localized message.
func (m *Manager) failure(err error, fallback string) models.Result {
	var requestErr *v2board.RequestError
	var transportErr *v2board.TransportError

	switch {
	case errors.As(err, &requestErr):
		return models.Result{
			Success: false,
			Message: m.messageOr(requestErr.Message, fallback),
		}
	case errors.As(err, &transportErr):
		return models.Result{
			Success: false,
			Message: m.messages.T(i18n.NetworkError),
		}
	default:
		logrus.WithError(err).Warnln("Unexpected backend failure")
		return models.Result{
			Success: false,
			Message: m.messages.T(fallback),
		}
	}
}

func (m *Manager) messageOr(message string, fallback string) string {
	message = strings.TrimSpace(message)
	if len(message) == 0 || strings.EqualFold(message, "ok") {
		return m.messages.T(fallback)
	}
	return message
}
