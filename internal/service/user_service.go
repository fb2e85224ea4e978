package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"direct-chat-relay/backend/internal/models"
	"direct-chat-relay/backend/pkg/jwt"
	"direct-chat-relay/backend/pkg/logger"
	"direct-chat-relay/backend/shared/redis"

	"gorm.io/gorm"
)

var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// UserService handles user accounts and presence. It is the durable side of
// the identity story; the websocket hub drives SetPresence as sessions come
// and go. The redis cache is optional and best-effort.
type UserService struct {
	db         *gorm.DB
	jwtService *jwt.Service
	cache      *redis.Client
	cacheTTL   time.Duration
	log        *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, jwtService *jwt.Service, log *logger.Logger) *UserService {
	return &UserService{
		db:         db,
		jwtService: jwtService,
		log:        log,
	}
}

// WithCache attaches a redis read-through cache for user lookups
func (s *UserService) WithCache(cache *redis.Client, ttl time.Duration) *UserService {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// CreateUser creates a new user and returns it with a fresh token
func (s *UserService) CreateUser(req *models.CreateUserRequest) (*models.User, string, error) {
	var existingUser models.User
	result := s.db.Where("email = ?", req.Email).First(&existingUser)
	if result.RowsAffected > 0 {
		return nil, "", ErrUserAlreadyExists
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		LastSeen: time.Now().UTC(),
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, "", err
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

// Login authenticates a user and returns a JWT token
func (s *UserService) Login(req *models.LoginRequest) (*models.User, string, error) {
	var user models.User
	result := s.db.Where("email = ?", req.Email).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", result.Error
	}

	if !models.CheckPasswordHash(req.Password, user.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

// GetUserByID retrieves a user by ID, consulting the cache first
func (s *UserService) GetUserByID(id string) (*models.User, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(context.Background(), userCacheKey(id)); err == nil {
			var user models.User
			if err := json.Unmarshal([]byte(cached), &user); err == nil {
				return &user, nil
			}
		} else if !redis.IsMiss(err) {
			s.log.Warn("User cache read failed", "user_id", id, "error", err.Error())
		}
	}

	var user models.User
	result := s.db.First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	s.cacheUser(&user)

	return &user, nil
}

// ListUsers returns all users with their presence state
func (s *UserService) ListUsers() ([]models.User, error) {
	var users []models.User
	err := s.db.Order("name ASC").Find(&users).Error
	return users, err
}

// SetPresence updates a user's online flag and last-seen timestamp. Called by
// the session lifecycle on identify and disconnect.
func (s *UserService) SetPresence(userID string, online bool, lastSeen time.Time) error {
	err := s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"is_online": online,
			"last_seen": lastSeen,
		}).Error
	if err != nil {
		return err
	}

	// The cached copy is stale now
	if s.cache != nil {
		if err := s.cache.Del(context.Background(), userCacheKey(userID)); err != nil {
			s.log.Warn("User cache invalidation failed", "user_id", userID, "error", err.Error())
		}
	}

	return nil
}

func (s *UserService) cacheUser(user *models.User) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := s.cache.Set(context.Background(), userCacheKey(user.ID), raw, s.cacheTTL); err != nil {
		s.log.Warn("User cache write failed", "user_id", user.ID, "error", err.Error())
	}
}

func userCacheKey(id string) string {
	return "user:" + id
}
