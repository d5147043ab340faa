package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cleaning-calculator/internal/apperror"
	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"

	"github.com/shopspring/decimal"
)

// OptionRoomTypes: имя настройки со списком типов помещений
const OptionRoomTypes = "room_types"

// DefaultRoomTypes: типы помещений, создаваемые при первом запуске
func DefaultRoomTypes() []models.RoomType {
	return []models.RoomType{
		{ID: "bedroom", Name: "Bedroom", PricePerM2: decimal.RequireFromString("5.00"), Active: true, Order: 1},
		{ID: "bathroom", Name: "Bathroom", PricePerM2: decimal.RequireFromString("8.00"), Active: true, Order: 2},
		{ID: "kitchen", Name: "Kitchen", PricePerM2: decimal.RequireFromString("7.00"), Active: true, Order: 3},
		{ID: "living_room", Name: "Living room", PricePerM2: decimal.RequireFromString("4.50"), Active: true, Order: 4},
		{ID: "corridor", Name: "Corridor", PricePerM2: decimal.RequireFromString("3.50"), Active: true, Order: 5},
	}
}

// RoomTypeService управляет списком типов помещений.
type RoomTypeService struct {
	options  *OptionsService
	activity *ActivityService
	log      *logger.Logger
}

// NewRoomTypeService создаёт сервис типов помещений.
func NewRoomTypeService(options *OptionsService, activity *ActivityService, log *logger.Logger) *RoomTypeService {
	return &RoomTypeService{
		options:  options,
		activity: activity,
		log:      log,
	}
}

// ListRoomTypes возвращает типы помещений по порядку, затем по названию.
func (s *RoomTypeService) ListRoomTypes(ctx context.Context, onlyActive bool) ([]models.RoomType, error) {
	var list []models.RoomType
	if _, err := s.options.Get(ctx, OptionRoomTypes, &list); err != nil {
		return nil, err
	}

	result := make([]models.RoomType, 0, len(list))
	for _, rt := range list {
		if onlyActive && !rt.Active {
			continue
		}
		result = append(result, rt)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// LookupRoomType ищет тип по id (включая неактивные).
func (s *RoomTypeService) LookupRoomType(ctx context.Context, id string) (*models.RoomType, error) {
	list, err := s.ListRoomTypes(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, apperror.NotFound("room type not found", nil)
}

// SaveRoomTypes заменяет список целиком после проверки всех записей.
func (s *RoomTypeService) SaveRoomTypes(ctx context.Context, list []models.RoomType) ([]models.RoomType, error) {
	var fields map[string]string
	seen := make(map[string]int, len(list))

	for i := range list {
		list[i].ID = strings.TrimSpace(list[i].ID)
		list[i].Name = strings.TrimSpace(list[i].Name)

		prefix := fmt.Sprintf("room_types[%d].", i)
		fields = mergeFields(fields, list[i].Validate(), prefix)

		if prev, ok := seen[list[i].ID]; ok {
			fields = mergeFields(fields, map[string]string{"id": fmt.Sprintf("duplicates room_types[%d].id", prev)}, prefix)
		}
		seen[list[i].ID] = i
	}
	if len(fields) > 0 {
		return nil, apperror.ValidationFields("invalid room types", fields)
	}

	if list == nil {
		list = []models.RoomType{}
	}
	if err := s.options.Set(ctx, OptionRoomTypes, list); err != nil {
		return nil, err
	}

	s.activity.record(ctx, models.ActivityRoomTypesSaved, "room_types", OptionRoomTypes, map[string]int{"count": len(list)})
	s.log.WithField("count", len(list)).Info("Room types saved")

	return s.ListRoomTypes(ctx, false)
}

// DeleteRoomType удаляет тип помещения.
func (s *RoomTypeService) DeleteRoomType(ctx context.Context, id string) error {
	list, err := s.ListRoomTypes(ctx, false)
	if err != nil {
		return err
	}

	kept := make([]models.RoomType, 0, len(list))
	for _, rt := range list {
		if rt.ID != id {
			kept = append(kept, rt)
		}
	}
	if len(kept) == len(list) {
		return apperror.NotFound("room type not found", nil)
	}

	if err := s.options.Set(ctx, OptionRoomTypes, kept); err != nil {
		return err
	}

	s.activity.record(ctx, models.ActivityRoomTypeDeleted, "room_type", id, nil)
	s.log.WithField("room_type", id).Info("Room type deleted")
	return nil
}

// SeedDefaults сохраняет типы по умолчанию, если список ещё не создан.
func (s *RoomTypeService) SeedDefaults(ctx context.Context) error {
	var existing []models.RoomType
	found, err := s.options.Get(ctx, OptionRoomTypes, &existing)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	if err := s.options.Set(ctx, OptionRoomTypes, DefaultRoomTypes()); err != nil {
		return err
	}
	s.log.Info("Default room types seeded")
	return nil
}
