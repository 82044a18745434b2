package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/hswtrack/compliance-backend/internal/data/repos"
	types "github.com/hswtrack/compliance-backend/internal/domain"
	"github.com/hswtrack/compliance-backend/internal/pkg/ctxutil"
	pkgerrors "github.com/hswtrack/compliance-backend/internal/pkg/errors"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

// JWTClaims is the token shape the auth layer accepts. Subject carries the
// identity-provider subject string, not a local account id.
type JWTClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthService resolves bearer tokens to local accounts. Token issuance
// normally lives with the external identity provider; IssueToken exists for
// service-to-service callers and operational tooling.
type AuthService interface {
	IssueToken(subject string, ttl time.Duration) (string, error)
	// SetContextFromToken verifies the token, loads the matching account, and
	// attaches the caller identity to the context.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	accountRepo  repos.AccountRepo
	jwtSecretKey string
	defaultTTL   time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	accountRepo repos.AccountRepo,
	jwtSecretKey string,
	defaultTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:           db,
		log:          serviceLog,
		accountRepo:  accountRepo,
		jwtSecretKey: jwtSecretKey,
		defaultTTL:   defaultTTL,
	}
}

func (as *authService) IssueToken(subject string, ttl time.Duration) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", pkgerrors.ErrInvalidArgument)
	}
	if ttl <= 0 {
		ttl = as.defaultTTL
	}
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if strings.TrimSpace(tokenString) == "" {
		return ctx, fmt.Errorf("%w: empty token", pkgerrors.ErrInvalidArgument)
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("invalid or expired token")
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return ctx, fmt.Errorf("token has no subject")
	}

	account, err := as.accountRepo.GetBySubject(ctx, nil, subject)
	if err != nil {
		return ctx, fmt.Errorf("no account for subject: %w", err)
	}
	if !account.Active {
		return ctx, fmt.Errorf("account %s is deactivated", subject)
	}

	rd := &ctxutil.RequestData{
		Subject: account.Subject,
		UserID:  account.ID,
		Role:    string(account.Role),
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

// IsAdmin reports whether the context carries an admin caller.
func IsAdmin(ctx context.Context) bool {
	rd := ctxutil.GetRequestData(ctx)
	return rd != nil && rd.Role == string(types.AccountRoleAdmin)
}
