package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/iagoricardo/ainlo-server/internal/config"
	"github.com/iagoricardo/ainlo-server/pkg/models"
)

const uniqueViolation = "23505"

type AuthService struct {
	config      *config.Config
	logger      *logrus.Logger
	db          DatabaseQuerier
	redisClient *redis.Client
	events      EventPublisher
	jwtSecret   []byte
}

func NewAuthService(cfg *config.Config, logger *logrus.Logger, db DatabaseQuerier, redisClient *redis.Client, events EventPublisher) *AuthService {
	return &AuthService{
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		events:      events,
		jwtSecret:   []byte(cfg.Auth.JWTSecret),
	}
}

func (s *AuthService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.Account, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if len(req.Password) < s.config.Auth.MinPasswordLen {
		return nil, models.ErrWeakPassword
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		// Same default the sign-up form uses: the email local part.
		name = strings.SplitN(email, "@", 2)[0]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Plan:         models.PlanFree,
		Confirmed:    !s.config.Auth.RequireConfirmation,
		Role:         models.RoleUser,
		CreatedAt:    time.Now(),
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO accounts (id, email, name, password_hash, plan, confirmed, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.ID, account.Email, account.Name, account.PasswordHash,
		account.Plan, account.Confirmed, account.Role, account.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, models.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"account_id": account.ID,
		"plan":       account.Plan,
	}).Info("Account created")

	if s.config.Auth.RequireConfirmation {
		return account, models.ErrEmailNotConfirmed
	}

	return account, nil
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := s.accountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			// Same category as a wrong password: the caller cannot
			// distinguish unknown emails from bad credentials.
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	if s.config.Auth.RequireConfirmation && !account.Confirmed {
		return nil, models.ErrEmailNotConfirmed
	}

	return account, nil
}

func (s *AuthService) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.scanAccount(s.db.QueryRow(ctx, `
		SELECT id, email, name, password_hash, plan, pro_expires_at, confirmed, role, created_at
		FROM accounts WHERE id = $1`, id))
}

func (s *AuthService) accountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.scanAccount(s.db.QueryRow(ctx, `
		SELECT id, email, name, password_hash, plan, pro_expires_at, confirmed, role, created_at
		FROM accounts WHERE email = $1`, email))
}

func (s *AuthService) scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID, &account.Email, &account.Name, &account.PasswordHash,
		&account.Plan, &account.ProExpiresAt, &account.Confirmed,
		&account.Role, &account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return &account, nil
}

// UpgradePlan moves an account to pro with a fresh expiration window.
// The plan change is remote-first: callers refresh their local view from
// the returned record rather than assuming the update took.
func (s *AuthService) UpgradePlan(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	expires := time.Now().Add(s.config.Plans.ProDuration)

	account, err := s.scanAccount(s.db.QueryRow(ctx, `
		UPDATE accounts SET plan = $1, pro_expires_at = $2 WHERE id = $3
		RETURNING id, email, name, password_hash, plan, pro_expires_at, confirmed, role, created_at`,
		models.PlanPro, expires, id,
	))
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"account_id":     account.ID,
		"pro_expires_at": expires,
	}).Info("Account upgraded to pro")

	s.events.PublishUsageEvent("account.upgraded", account.ID.String(), map[string]interface{}{
		"plan":           models.PlanPro,
		"pro_expires_at": expires.Format(time.RFC3339),
	})

	return account, nil
}

func (s *AuthService) IssueToken(account *models.Account) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.Auth.TokenTTL)

	claims := &models.JWTClaims{
		UserID: account.ID,
		Plan:   account.Plan,
		Role:   account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "github.com/iagoricardo/ainlo-server",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	if err := s.redisClient.Set(context.Background(), sessionKey(account.ID.String()), tokenString, s.config.Auth.TokenTTL).Err(); err != nil {
		s.logger.WithError(err).Warn("Failed to store session in Redis")
		// Token issuance still succeeds when Redis is down.
	}

	return tokenString, expiresAt, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	exists, err := s.redisClient.Exists(context.Background(), sessionKey(claims.UserID.String())).Result()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to check session in Redis")
		// Continue validation even if Redis is down.
	} else if exists == 0 {
		return nil, fmt.Errorf("session not found or expired")
	}

	return claims, nil
}

// SignOut revokes the session and drops every piece of per-account
// session state: the sign-out contract is clear, not hide.
func (s *AuthService) SignOut(ctx context.Context, userID uuid.UUID) error {
	id := userID.String()
	keys := []string{
		sessionKey(id),
		activeArtifactKey(id),
		entitlementKey(id),
		artifactCacheKey(id),
	}

	if err := s.redisClient.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}
