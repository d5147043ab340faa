package services

import (
	"context"
	"fmt"
	"strings"

	"cleaning-calculator/internal/apperror"
	"cleaning-calculator/internal/config"
	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"
)

// OptionCalculatorSettings: имя настройки калькулятора
const OptionCalculatorSettings = "calculator_settings"

const (
	maxSettingKeyLen   = 191
	maxSettingValueLen = 10000
)

// SettingsService хранит настройки калькулятора и группы произвольных строк
// (оформление, переводы).
type SettingsService struct {
	options  *OptionsService
	activity *ActivityService
	defaults config.CalculatorConfig
	log      *logger.Logger
}

// NewSettingsService создаёт сервис настроек; cfg задаёт значения по умолчанию.
func NewSettingsService(options *OptionsService, activity *ActivityService, cfg *config.CalculatorConfig, log *logger.Logger) *SettingsService {
	s := &SettingsService{
		options:  options,
		activity: activity,
		log:      log,
	}
	if cfg != nil {
		s.defaults = *cfg
	}
	return s
}

// DefaultCalculatorSettings возвращает настройки из конфигурации.
func (s *SettingsService) DefaultCalculatorSettings() *models.CalculatorSettings {
	mode := models.DiscountMode(s.defaults.DiscountMode)
	switch mode {
	case models.DiscountModeFirst, models.DiscountModeBest, models.DiscountModeStack:
	default:
		mode = models.DiscountModeFirst
	}

	position := s.defaults.CurrencyPosition
	if position == "" {
		position = models.CurrencyAfterSpace
	}
	decSep := s.defaults.DecimalSeparator
	if decSep == "" {
		decSep = "."
	}

	return &models.CalculatorSettings{
		CurrencySymbol:    s.defaults.CurrencySymbol,
		CurrencyPosition:  position,
		DecimalSeparator:  decSep,
		ThousandSeparator: s.defaults.ThousandSeparator,
		Decimals:          s.defaults.Decimals,
		DiscountMode:      mode,
	}
}

// CalculatorSettings возвращает сохранённые настройки поверх значений по умолчанию.
func (s *SettingsService) CalculatorSettings(ctx context.Context) (*models.CalculatorSettings, error) {
	settings := s.DefaultCalculatorSettings()
	if _, err := s.options.Get(ctx, OptionCalculatorSettings, settings); err != nil {
		return nil, err
	}
	if settings.DiscountMode == "" {
		settings.DiscountMode = models.DiscountModeFirst
	}
	return settings, nil
}

// SaveCalculatorSettings проверяет и сохраняет настройки калькулятора.
func (s *SettingsService) SaveCalculatorSettings(ctx context.Context, settings *models.CalculatorSettings) (*models.CalculatorSettings, error) {
	if settings == nil {
		return nil, apperror.Validation("settings are required", nil)
	}
	if err := validateStruct(settings); err != nil {
		return nil, err
	}

	if err := s.options.Set(ctx, OptionCalculatorSettings, settings); err != nil {
		return nil, err
	}

	s.activity.record(ctx, models.ActivitySettingsSaved, "settings", OptionCalculatorSettings, settings)
	s.log.WithField("discount_mode", settings.DiscountMode).Info("Calculator settings saved")
	return settings, nil
}

// Group возвращает группу настроек (customization или translations).
func (s *SettingsService) Group(ctx context.Context, group string) (map[string]string, error) {
	if err := checkGroup(group); err != nil {
		return nil, err
	}

	values := map[string]string{}
	if _, err := s.options.Get(ctx, group, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// SaveGroup заменяет значения группы.
func (s *SettingsService) SaveGroup(ctx context.Context, group string, values map[string]string) (map[string]string, error) {
	if err := checkGroup(group); err != nil {
		return nil, err
	}

	clean := make(map[string]string, len(values))
	var fields map[string]string
	for k, v := range values {
		key := strings.TrimSpace(k)
		switch {
		case key == "":
			fields = mergeFields(fields, map[string]string{"key": "must not be empty"}, "")
			continue
		case len(key) > maxSettingKeyLen:
			fields = mergeFields(fields, map[string]string{key: fmt.Sprintf("key must be at most %d characters", maxSettingKeyLen)}, "")
			continue
		case len(v) > maxSettingValueLen:
			fields = mergeFields(fields, map[string]string{key: fmt.Sprintf("must be at most %d characters", maxSettingValueLen)}, "")
			continue
		}
		clean[key] = v
	}
	if len(fields) > 0 {
		return nil, apperror.ValidationFields("invalid settings", fields)
	}

	if err := s.options.Set(ctx, group, clean); err != nil {
		return nil, err
	}

	s.activity.record(ctx, models.ActivitySettingsSaved, "settings", group, map[string]int{"count": len(clean)})
	s.log.WithFields(map[string]interface{}{"group": group, "count": len(clean)}).Info("Settings group saved")
	return clean, nil
}

func checkGroup(group string) error {
	switch group {
	case models.SettingsGroupCustomization, models.SettingsGroupTranslations:
		return nil
	default:
		return apperror.NotFound(fmt.Sprintf("unknown settings group %q", group), nil)
	}
}
