package service

import (
	"context"
	"fmt"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/apperror"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/repository"
	"github.com/aydiegithub/ai-agent-for-social-content/pkg/utils"
	"go.uber.org/zap"
)

const maxApiKeysPerUser = 5

type ApiKeyService interface {
	// Create returns the raw key. Only its digest is stored, so this is the
	// one chance to show it.
	Create(ctx context.Context, userID int64) (string, error)
	List(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	GetUserID(ctx context.Context, apiKey string) (int64, error)
	RemoveAPIKey(ctx context.Context, userID, keyID int64) error
}

type apiKeyService struct {
	k   repository.ApiKeyRepository
	log *zap.Logger
}

func NewApiKeyService(k repository.ApiKeyRepository, log *zap.Logger) ApiKeyService {
	return &apiKeyService{
		k:   k,
		log: log.Named("api_keys"),
	}
}

func (s *apiKeyService) Create(ctx context.Context, userID int64) (string, error) {
	keys, err := s.k.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(keys) >= maxApiKeysPerUser {
		return "", apperror.ValidationFailed("api_key", fmt.Sprintf("Only %d API Keys can be created.", maxApiKeysPerUser))
	}

	key, err := utils.GenerateRandomKey(24)
	if err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}

	apiKey := &models.ApiKey{
		UserID:  userID,
		KeyHash: utils.HashKey(key),
		Prefix:  key[:len(utils.ApiKeyPrefix)+4],
	}
	if _, err := s.k.Create(ctx, apiKey); err != nil {
		return "", err
	}
	s.log.Info("api key created", zap.Int64("user_id", userID), zap.String("prefix", apiKey.Prefix))
	return key, nil
}

func (s *apiKeyService) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	userID, found, err := s.k.GetUserIDByHash(ctx, utils.HashKey(apiKey))
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, &apperror.AppError{Err: apperror.ErrUnauthorized, Message: "Key doesn't exist"}
	}
	return userID, nil
}

func (s *apiKeyService) List(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	keys, err := s.k.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []*models.ApiKey{}
	}
	return keys, nil
}

func (s *apiKeyService) RemoveAPIKey(ctx context.Context, userID, keyID int64) error {
	if keyID == 0 {
		return apperror.ValidationFailed("id", "KeyID is not valid")
	}

	removed, err := s.k.Remove(ctx, keyID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return apperror.NotFound("api key", keyID)
	}
	return nil
}
