package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"recipebox/internal/domain"
)

// Service регистрирует пользователей и выдаёт токены.
type Service struct {
	users  domain.UserRepo
	tokens *Tokens
	cost   int
}

// NewService создаёт сервис аутентификации. cost <= 0 означает bcrypt.DefaultCost.
func NewService(users domain.UserRepo, tokens *Tokens, cost int) *Service {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{users: users, tokens: tokens, cost: cost}
}

// Register создаёт пользователя и сразу выдаёт токен.
func (s *Service) Register(ctx context.Context, name, email, password string) (domain.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("хеширование пароля: %w", err)
	}
	user, err := s.users.CreateUser(ctx, strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email)), string(hash))
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return domain.User{}, "", domain.NewValidationError("email", domain.ErrEmailTaken.Error())
		}
		return domain.User{}, "", fmt.Errorf("создание пользователя: %w", err)
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("выпуск токена: %w", err)
	}
	return user, token, nil
}

// Login проверяет пароль и выдаёт токен.
func (s *Service) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", fmt.Errorf("поиск пользователя: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("выпуск токена: %w", err)
	}
	return user, token, nil
}

// Logout отзывает все токены пользователя.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	if err := s.users.BumpTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("отзыв токенов: %w", err)
	}
	return nil
}

// Authenticate возвращает владельца действующего токена.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.User, error) {
	userID, version, err := s.tokens.Parse(token)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, ErrInvalidToken
		}
		return domain.User{}, fmt.Errorf("поиск пользователя: %w", err)
	}
	if user.TokenVersion != version {
		return domain.User{}, ErrInvalidToken
	}
	return user, nil
}
