package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/associacao-ensino/inscricoes-backend/internal/config"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const tuitionCacheTTL = 5 * time.Minute

type SettingService struct {
	settingRepo *repository.SettingRepository
	rdb         *redis.Client
	defaultFee  float64
	log         zerolog.Logger
}

func NewSettingService(settingRepo *repository.SettingRepository, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *SettingService {
	return &SettingService{
		settingRepo: settingRepo,
		rdb:         rdb,
		defaultFee:  cfg.TuitionFee,
		log:         log.With().Str("component", "setting_service").Logger(),
	}
}

func (s *SettingService) GetAllSettings(ctx context.Context) (map[string]string, error) {
	settingsList, err := s.settingRepo.GetAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get all settings")
		return nil, storeError("setting.list", "Configuração", err)
	}

	settingsMap := make(map[string]string)
	for _, setting := range settingsList {
		settingsMap[setting.Key] = setting.Value
	}
	return settingsMap, nil
}

func (s *SettingService) UpdateSettings(ctx context.Context, caller model.Caller, settingsMap map[string]string) error {
	if raw, ok := settingsMap[model.SettingTuitionFee]; ok {
		if _, err := ParseTuitionFee(raw); err != nil {
			return validationError("setting.update", "O valor da propina deve ser um número positivo.",
				map[string]string{model.SettingTuitionFee: "inválido"})
		}
	}

	if err := s.settingRepo.UpsertMany(ctx, settingsMap); err != nil {
		s.log.Error().Err(err).Msg("failed to update settings")
		return storeError("setting.update", "Configuração", err)
	}
	if _, ok := settingsMap[model.SettingTuitionFee]; ok {
		if err := s.rdb.Del(ctx, config.CacheKey.TuitionFeeKey()).Err(); err != nil {
			s.log.Warn().Err(err).Msg("failed to drop tuition fee cache")
		}
	}
	s.log.Info().Str("user", caller.Email).Int("keys", len(settingsMap)).Msg("settings updated")
	return nil
}

func (s *SettingService) GetSettingByKey(ctx context.Context, key string) (string, error) {
	setting, err := s.settingRepo.GetByKey(ctx, key)
	if err != nil {
		return "", storeError("setting.get", "Configuração", err)
	}
	return setting.Value, nil
}

// TuitionFee implements TuitionSource. It reads the valor_propina setting
// through a short Redis cache and falls back to the configured default.
func (s *SettingService) TuitionFee(ctx context.Context) float64 {
	key := config.CacheKey.TuitionFeeKey()
	if raw, err := s.rdb.Get(ctx, key).Result(); err == nil {
		if fee, err := ParseTuitionFee(raw); err == nil {
			return fee
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("tuition fee cache unavailable")
	}

	value, err := s.GetSettingByKey(ctx, model.SettingTuitionFee)
	if err != nil {
		if KindOf(err) != KindNotFound {
			s.log.Warn().Err(err).Msg("failed to read tuition fee, using default")
		}
		return s.defaultFee
	}
	fee, err := ParseTuitionFee(value)
	if err != nil {
		s.log.Warn().Str("value", value).Msg("invalid tuition fee setting, using default")
		return s.defaultFee
	}
	s.rdb.Set(ctx, key, value, tuitionCacheTTL)
	return fee
}

// ParseTuitionFee parses a positive amount. A comma decimal separator is
// accepted.
func ParseTuitionFee(raw string) (float64, error) {
	fee, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."), 64)
	if err != nil {
		return 0, err
	}
	if fee <= 0 {
		return 0, errors.New("tuition fee must be positive")
	}
	return fee, nil
}
