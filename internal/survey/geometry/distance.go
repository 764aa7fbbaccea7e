package geometry

import "math"

// Средний радиус Земли для формулы гаверсинусов.
const EarthRadiusMeters = 6371000.0

// Distance возвращает расстояние по большому кругу между двумя точками в метрах.
func Distance(latA, lonA, latB, lonB float64) float64 {
	phi1 := latA * math.Pi / 180
	phi2 := latB * math.Pi / 180
	deltaPhi := (latB - latA) * math.Pi / 180
	deltaLambda := (lonB - lonA) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}
