package advisor

import "site-survey/internal/survey/models"

// Suggest предлагает способ строительства для пары элементов.
// Порядок аргументов не важен; это лишь значение по умолчанию,
// пользователь может переопределить его при ручном соединении.
func Suggest(a, b models.ElementType) models.ConstructionType {
	has := func(t models.ElementType) bool { return a == t || b == t }

	switch {
	case a == models.Handhole && b == models.Handhole:
		return models.Duct
	case a == models.Pole && b == models.Pole:
		return models.AerialRoute
	case has(models.Pole) && has(models.Handhole):
		return models.Duct
	case has(models.Building) && has(models.Handhole):
		return models.Duct
	}
	return models.AerialRoute
}
