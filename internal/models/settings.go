package models

// Позиция символа валюты относительно суммы
const (
	CurrencyBefore      = "before"
	CurrencyAfter       = "after"
	CurrencyBeforeSpace = "before_space"
	CurrencyAfterSpace  = "after_space"
)

// CalculatorSettings: настройки калькулятора (валюта, форматирование, режим скидок)
type CalculatorSettings struct {
	CurrencySymbol    string       `json:"currency_symbol" validate:"max=8"`
	CurrencyPosition  string       `json:"currency_position" validate:"required,oneof=before after before_space after_space"`
	DecimalSeparator  string       `json:"decimal_separator" validate:"required,max=3"`
	ThousandSeparator string       `json:"thousand_separator" validate:"max=3,nefield=DecimalSeparator"`
	Decimals          int          `json:"decimals" validate:"min=0,max=4"`
	DiscountMode      DiscountMode `json:"discount_mode" validate:"required,oneof=first best stack"`
}

// Группы произвольных настроек (ключ → значение)
const (
	SettingsGroupCustomization = "customization"
	SettingsGroupTranslations  = "translations"
)
