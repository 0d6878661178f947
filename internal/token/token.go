package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	//パースできない
	ErrMalformedToken = errors.New("malformed token")
	//署名が一致しない
	ErrBadSignature = errors.New("bad token signature")
	//有効期限切れ
	ErrTokenExpired = errors.New("token expired")
	//署名は正しいがclaimsが使えない（typeなし等）
	ErrInvalidToken = errors.New("invalid token")
)

// Kindはトークン種別（access / refresh）
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// 検証済みトークンの中身
type Claims struct {
	Subject   string
	Kind      Kind
	ExpiresAt time.Time
}

// CodecはHS256でトークンを発行・検証する。状態は持たない。
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// DI
func NewCodec(secret string, accessTTL time.Duration, refreshTTL time.Duration) *Codec {
	return &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issueはclaims {sub, type, exp} を署名して返す
func (c *Codec) Issue(subject string, kind Kind, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"sub":  subject,
		"type": string(kind),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// 短命のaccessトークンを発行
func (c *Codec) IssueAccess(subject string) (string, error) {
	return c.Issue(subject, KindAccess, c.accessTTL)
}

// 長命のrefreshトークンを発行
func (c *Codec) IssueRefresh(subject string) (string, error) {
	return c.Issue(subject, KindRefresh, c.refreshTTL)
}

// Verifyは署名→有効期限の順で検証してclaimsを返す。
// 署名検証より前にclaimsを信用しない（expも含めて）。
func (c *Codec) Verify(tokenString string) (Claims, error) {
	parsed, err := jwt.Parse(tokenString, c.keyFunc, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}

	return extractClaims(parsed)
}

// RemainingTTLは署名検証後、有効期限までの残り時間を返す。
// 残りが0以下なら「有効な0秒」ではなく期限切れとして扱う。
func (c *Codec) RemainingTTL(tokenString string) (time.Duration, error) {
	//期限切れトークンのexpも読みたいのでclaims検証は切る（署名検証はされる）
	parsed, err := jwt.Parse(tokenString, c.keyFunc,
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return 0, mapJWTError(err)
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, ErrInvalidToken
	}

	remaining := time.Until(exp.Time)
	if remaining <= 0 {
		return 0, ErrTokenExpired
	}
	return remaining, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	return c.secret, nil
}

// jwtライブラリのエラーを自前のエラーに揃える
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrInvalidToken
	}
}

func extractClaims(parsed *jwt.Token) (Claims, error) {
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	sub, ok := mc["sub"].(string)
	if !ok || sub == "" {
		return Claims{}, ErrInvalidToken
	}

	kindStr, ok := mc["type"].(string)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	kind := Kind(kindStr)
	if kind != KindAccess && kind != KindRefresh {
		return Claims{}, ErrInvalidToken
	}

	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		Subject:   sub,
		Kind:      kind,
		ExpiresAt: exp.Time,
	}, nil
}
