package usecase

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"strconv"
	"sync"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"
	"app/internal/token"

	"golang.org/x/crypto/bcrypt"
)

var (
	//404 ユーザーなし
	ErrNotFound = errors.New("user not found")
	//409 登録済み
	ErrAlreadyExists = errors.New("user already exists")
	//409 確認済み
	ErrAlreadyVerified = errors.New("email already verified")
	//400 コード不一致
	ErrInvalidCode = errors.New("invalid verification code")
	//403 メール未確認
	ErrNotVerified = errors.New("email not verified")
	//401 認証失敗
	ErrInvalidCredentials = errors.New("invalid credentials")
	//401 保存中のrefresh_tokenと一致しない（新しいログインで置き換え済み）
	ErrStaleToken = errors.New("stale refresh token")
	//401 ブラックリスト入り
	ErrRevoked = errors.New("token revoked")
	//500
	ErrInternal = errors.New("internal error")
)

// accesstokenの有効期限
const AccessTokenTTL = 15 * time.Minute

// refreshtokenの有効期限
const RefreshTokenTTL = 30 * 24 * time.Hour

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidateNewPassword(ctx context.Context, password string) error
}

// トークンの発行・検証の約束
type TokenCodec interface {
	IssueAccess(subject string) (string, error)
	IssueRefresh(subject string) (string, error)
	Verify(tokenString string) (token.Claims, error)
	RemainingTTL(tokenString string) (time.Duration, error)
}

// 失効集合の約束
type Blacklist interface {
	Add(ctx context.Context, tokenString string, ttl time.Duration) error
	Contains(ctx context.Context, tokenString string) (bool, error)
}

// メール送信の約束（失敗はfalse）
type MailSender interface {
	SendCode(email string, code string) bool
}

// 確認完了イベント発行の約束（new-userトピック）
type EventPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type RegisterResponse struct {
	Message string `json:"message"`
	//メール送信に失敗してもアカウントは作る。失敗はここで伝える。
	EmailSent bool `json:"email_sent"`
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
}

type AuthUsecase struct {
	users     repository.UserRepository
	codec     TokenCodec
	blacklist Blacklist
	mail      MailSender
	events    EventPublisher
	validator AuthValidator
	logger    *slog.Logger
	locks     accountLocks
}

// DI
func NewAuthUsecase(
	users repository.UserRepository,
	codec TokenCodec,
	blacklist Blacklist,
	mail MailSender,
	events EventPublisher,
	validator AuthValidator,
	logger *slog.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		codec:     codec,
		blacklist: blacklist,
		mail:      mail,
		events:    events,
		validator: validator,
		logger:    logger,
		locks:     newAccountLocks(),
	}
}

// Registerはアカウントを作成して確認コードを送る。
func (u *AuthUsecase) Register(ctx context.Context, email string, password string) (*RegisterResponse, error) {
	if err := u.validator.ValidateRegister(ctx, email, password); err != nil {
		return nil, err
	}

	unlock := u.locks.lock(email)
	defer unlock()

	existing, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, ErrInternal
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrInternal
	}

	code, err := newVerificationCode()
	if err != nil {
		return nil, ErrInternal
	}

	user := &model.User{
		Email:            email,
		PasswordHash:     string(pwHash),
		Verified:         false,
		VerificationCode: &code,
	}

	//送信失敗でもアカウントは作る（後から再送できるように）
	sent := u.mail.SendCode(email, code)
	if !sent {
		u.logger.Warn("verification mail not sent", slog.String("email", email))
	}

	if err := u.users.Create(ctx, user); err != nil {
		return nil, ErrInternal
	}

	return &RegisterResponse{
		Message:   "registered",
		EmailSent: sent,
	}, nil
}

// VerifyEmailはコードを照合してアカウントを有効化する。
func (u *AuthUsecase) VerifyEmail(ctx context.Context, email string, code string) error {
	unlock := u.locks.lock(email)
	defer unlock()

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return ErrInternal
	}
	if user == nil {
		return ErrNotFound
	}

	if user.Verified {
		return ErrAlreadyVerified
	}

	if user.VerificationCode == nil || *user.VerificationCode != code {
		return ErrInvalidCode
	}

	user.Verified = true
	user.VerificationCode = nil

	if err := u.users.Update(ctx, user); err != nil {
		return mapUpdateError(err)
	}

	//Centralサービスへ「確認済みユーザー」を通知（ベストエフォート）
	payload, err := json.Marshal(map[string]string{"email": email})
	if err == nil {
		if err := u.events.Publish(ctx, email, payload); err != nil {
			u.logger.Warn("new-user event publish failed",
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// Loginはaccess/refreshトークンの組を発行する。
func (u *AuthUsecase) Login(ctx context.Context, email string, password string) (*LoginResult, error) {
	if err := u.validator.ValidateLogin(ctx, email, password); err != nil {
		return nil, err
	}

	unlock := u.locks.lock(email)
	defer unlock()

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, ErrInternal
	}
	if user == nil {
		return nil, ErrNotFound
	}

	if !user.Verified {
		return nil, ErrNotVerified
	}

	//パスワード照合（bcrypt）
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := u.codec.IssueAccess(email)
	if err != nil {
		return nil, ErrInternal
	}
	refreshToken, err := u.codec.IssueRefresh(email)
	if err != nil {
		return nil, ErrInternal
	}

	//refresh_tokenを上書き保存。前のトークンはここで使えなくなる。
	now := time.Now()
	user.RefreshToken = &refreshToken
	user.LastLoginAt = &now

	if err := u.users.Update(ctx, user); err != nil {
		return nil, mapUpdateError(err)
	}

	u.logger.Info("login succeeded", slog.String("email", email))

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refreshは保存中のrefresh_tokenと突き合わせて新しいaccessトークンだけを返す。
// refresh_token自体はここでは回転しない。
func (u *AuthUsecase) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := u.codec.Verify(refreshToken)
	if err != nil {
		return "", err
	}

	if claims.Kind != token.KindRefresh {
		return "", ErrInvalidCredentials
	}

	//失効済みrefreshは署名が正しくても受け付けない
	revoked, err := u.blacklist.Contains(ctx, refreshToken)
	if err != nil {
		u.logger.Warn("blacklist check failed on refresh", slog.String("error", err.Error()))
	} else if revoked {
		return "", ErrRevoked
	}

	user, err := u.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return "", ErrInternal
	}
	if user == nil {
		return "", ErrNotFound
	}

	//保存中の値と文字列一致しなければ古い世代のトークン
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return "", ErrStaleToken
	}

	accessToken, err := u.codec.IssueAccess(claims.Subject)
	if err != nil {
		return "", ErrInternal
	}

	return accessToken, nil
}

// Logoutはaccessと保存中のrefreshを両方ブラックリストに入れる。
// 2つの失効は独立で、片方が失敗してももう片方は取り消されない。
func (u *AuthUsecase) Logout(ctx context.Context, accessToken string) error {
	claims, err := u.codec.Verify(accessToken)
	if err != nil {
		return err
	}

	if err := u.revokeToken(ctx, accessToken); err != nil {
		return err
	}

	unlock := u.locks.lock(claims.Subject)
	defer unlock()

	user, err := u.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return ErrInternal
	}
	if user == nil {
		//accessの失効は既に成立している（取り消せないのは意図どおり）
		return ErrNotFound
	}

	if user.RefreshToken != nil {
		if err := u.revokeToken(ctx, *user.RefreshToken); err != nil {
			u.logger.Warn("refresh token revoke failed",
				slog.String("email", claims.Subject),
				slog.String("error", err.Error()),
			)
		}
		user.RefreshToken = nil
		if err := u.users.Update(ctx, user); err != nil {
			return mapUpdateError(err)
		}
	}

	u.logger.Info("logout done", slog.String("email", claims.Subject))
	return nil
}

// revokeTokenは残り有効期限ぶんだけブラックリストに入れる。
// エントリがトークンより長生きも短命もしないように。
func (u *AuthUsecase) revokeToken(ctx context.Context, tokenString string) error {
	ttl, err := u.codec.RemainingTTL(tokenString)
	if err != nil {
		//期限切れならブラックリスト不要
		if errors.Is(err, token.ErrTokenExpired) {
			return nil
		}
		return err
	}

	in, err := u.blacklist.Contains(ctx, tokenString)
	if err != nil {
		return ErrInternal
	}
	if in {
		return nil
	}

	if err := u.blacklist.Add(ctx, tokenString, ttl); err != nil {
		return ErrInternal
	}
	return nil
}

// ForgotPasswordはアカウントを未確認に戻して新しいコードを送る。
// パスワードはまだ触らない。
func (u *AuthUsecase) ForgotPassword(ctx context.Context, email string) error {
	unlock := u.locks.lock(email)
	defer unlock()

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return ErrInternal
	}
	if user == nil {
		return ErrNotFound
	}

	code, err := newVerificationCode()
	if err != nil {
		return ErrInternal
	}

	user.Verified = false
	user.VerificationCode = &code

	if !u.mail.SendCode(email, code) {
		u.logger.Warn("reset code mail not sent", slog.String("email", email))
	}

	if err := u.users.Update(ctx, user); err != nil {
		return mapUpdateError(err)
	}
	return nil
}

// SetNewPasswordはハッシュを無条件に上書きする。
// 事前のVerifyEmailで守られる前提の設計（順序の強制はしていない）。
func (u *AuthUsecase) SetNewPassword(ctx context.Context, email string, password string) error {
	if err := u.validator.ValidateNewPassword(ctx, password); err != nil {
		return err
	}

	unlock := u.locks.lock(email)
	defer unlock()

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return ErrInternal
	}
	if user == nil {
		return ErrNotFound
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return ErrInternal
	}

	user.PasswordHash = string(pwHash)

	if err := u.users.Update(ctx, user); err != nil {
		return mapUpdateError(err)
	}
	return nil
}

// ValidateAccessはGatewayからの照会に使う。subject（email）を返す。
func (u *AuthUsecase) ValidateAccess(ctx context.Context, accessToken string) (string, error) {
	claims, err := u.codec.Verify(accessToken)
	if err != nil {
		return "", err
	}

	if claims.Kind != token.KindAccess {
		return "", ErrInvalidCredentials
	}

	//ログアウト済みのaccessは署名が正しくても受け付けない
	revoked, err := u.blacklist.Contains(ctx, accessToken)
	if err != nil {
		u.logger.Warn("blacklist check failed on validate", slog.String("error", err.Error()))
	} else if revoked {
		return "", ErrRevoked
	}

	return claims.Subject, nil
}

// Updateの失敗を公開エラーへ写す。0件更新は「対象がいない」。
func mapUpdateError(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrNotFound
	}
	return ErrInternal
}

// 6桁の確認コード（100000〜999999）
func newVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// accountLocksはアカウント単位の直列化。
// 同時ログインやログイン×ログアウトの競合でrefresh_tokenが壊れないように。
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocks() accountLocks {
	return accountLocks{locks: map[string]*accountLock{}}
}

func (l *accountLocks) lock(key string) func() {
	l.mu.Lock()
	e := l.locks[key]
	if e == nil {
		e = &accountLock{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
