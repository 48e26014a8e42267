package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/dokan-next/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid 令牌无效或已过期
var ErrTokenInvalid = errors.New("token invalid")

// UserJWTClaims 用户 JWT 声明（由账号服务签发，这里只校验）
type UserJWTClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AdminJWTClaims 管理员 JWT 声明
type AdminJWTClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func registeredClaims(subject string, issuedAt time.Time, expireHours int) jwt.RegisteredClaims {
	if expireHours <= 0 {
		expireHours = 24
	}
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		NotBefore: jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Duration(expireHours) * time.Hour)),
	}
}

// GenerateUserJWT 生成用户 JWT Token
func GenerateUserJWT(secret string, user *models.User, expireHours int) (string, time.Time, error) {
	if secret == "" || user == nil || user.ID == 0 {
		return "", time.Time{}, ErrTokenInvalid
	}
	claims := UserJWTClaims{
		UserID:           user.ID,
		Email:            user.Email,
		RegisteredClaims: registeredClaims(strconv.FormatUint(uint64(user.ID), 10), time.Now(), expireHours),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// GenerateAdminJWT 生成管理员 JWT Token
func GenerateAdminJWT(secret string, adminID uint, username string, expireHours int) (string, time.Time, error) {
	if secret == "" || adminID == 0 {
		return "", time.Time{}, ErrTokenInvalid
	}
	claims := AdminJWTClaims{
		AdminID:          adminID,
		Username:         username,
		RegisteredClaims: registeredClaims(username, time.Now(), expireHours),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

func parseHS256(tokenString, secret string, claims jwt.Claims) error {
	if secret == "" || tokenString == "" {
		return ErrTokenInvalid
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}

// ParseUserJWT 校验用户 Token
func ParseUserJWT(tokenString, secret string) (*UserJWTClaims, error) {
	claims := &UserJWTClaims{}
	if err := parseHS256(tokenString, secret, claims); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseAdminJWT 校验管理员 Token
func ParseAdminJWT(tokenString, secret string) (*AdminJWTClaims, error) {
	claims := &AdminJWTClaims{}
	if err := parseHS256(tokenString, secret, claims); err != nil {
		return nil, err
	}
	if claims.AdminID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
