package quiz

import (
	"fmt"

	"github.com/i474232898/climate-quest/internal/climate"
)

// Factory builds one question kind from a snapshot.
type Factory struct {
	Kind  Kind
	build func(b *builder, id int, snap climate.Snapshot) Question
}

var baseFactories = []Factory{
	{KindTemperature, func(b *builder, id int, s climate.Snapshot) Question {
		return b.numeric(id, KindTemperature,
			"What is the current temperature at this location?",
			s.Temperature, formatTemperature, PointsObservation,
			above(2, 6), below(1, 4), above(4, 10))
	}},
	{KindTemperatureClass, func(b *builder, id int, s climate.Snapshot) Question {
		return b.categorical(id, KindTemperatureClass,
			fmt.Sprintf("With a temperature of %.1f°C, how would you classify the weather?", s.Temperature),
			ClassifyTemperature(s.Temperature), TemperatureClasses, PointsClass)
	}},
	{KindHumidity, func(b *builder, id int, s climate.Snapshot) Question {
		return b.numeric(id, KindHumidity,
			"What is the current relative humidity?",
			s.Humidity, formatHumidity, PointsObservation,
			above(5, 17), below(3, 13), above(10, 28))
	}},
	{KindHumidityClass, func(b *builder, id int, s climate.Snapshot) Question {
		return b.categorical(id, KindHumidityClass,
			fmt.Sprintf("With %.0f%% humidity, the air is considered:", s.Humidity),
			ClassifyHumidity(s.Humidity), HumidityClasses, PointsClass)
	}},
	{KindWindSpeed, func(b *builder, id int, s climate.Snapshot) Question {
		return b.numeric(id, KindWindSpeed,
			"What is the current wind speed?",
			s.WindSpeed, formatWind, PointsObservation,
			above(1, 3), belowFloor(0, 1.5), above(2, 5))
	}},
	{KindWindClass, func(b *builder, id int, s climate.Snapshot) Question {
		return b.categorical(id, KindWindClass,
			fmt.Sprintf("With a wind of %.1f m/s, it is considered:", s.WindSpeed),
			ClassifyWind(s.WindSpeed), WindClasses, PointsClass)
	}},
	{KindTemperatureRange, func(b *builder, id int, s climate.Snapshot) Question {
		return b.numeric(id, KindTemperatureRange,
			"What is the temperature range (difference between maximum and minimum)?",
			s.MaxTemp-s.MinTemp, formatTemperature, PointsDerived,
			above(1, 4), belowFloor(0, 2), above(3, 8))
	}},
	{KindComfortIndex, func(b *builder, id int, s climate.Snapshot) Question {
		return b.categorical(id, KindComfortIndex,
			"Considering temperature and humidity, how is the thermal comfort?",
			ClassifyComfort(s.Temperature, s.Humidity), ComfortClasses, PointsComfort)
	}},
	{KindPressure, func(b *builder, id int, s climate.Snapshot) Question {
		return b.numeric(id, KindPressure,
			"What is the current atmospheric pressure?",
			s.Pressure, formatPressure, PointsObservation,
			above(1, 3), below(0, 1.5), above(2, 6))
	}},
	{KindPressureClass, func(b *builder, id int, s climate.Snapshot) Question {
		return b.categorical(id, KindPressureClass,
			fmt.Sprintf("With %.1f kPa of pressure, what does it indicate?", s.Pressure),
			ClassifyPressure(s.Pressure), PressureClasses, PointsDerived)
	}},
	{KindSolarClass, func(b *builder, id int, s climate.Snapshot) Question {
		return b.categorical(id, KindSolarClass,
			fmt.Sprintf("With %.1f kWh/m²/day of radiation, conditions are:", s.SolarRadiation),
			ClassifySolar(s.SolarRadiation), SolarClasses, PointsSolar)
	}},
	{KindSolarValue, func(b *builder, id int, s climate.Snapshot) Question {
		return b.numeric(id, KindSolarValue,
			"What is the recorded solar radiation level?",
			s.SolarRadiation, formatSolar, PointsSolar,
			above(2, 7), belowFloor(0, 4), above(5, 13))
	}},
}

var temperatureTrendFactory = Factory{KindTemperatureTrend, func(b *builder, id int, s climate.Snapshot) Question {
	series := s.Series[climate.VarTemperature]
	return b.categorical(id, KindTemperatureTrend,
		"What has the temperature trend been over the last few days?",
		ClassifyTrend(series.First().Value, series.Last().Value, TemperatureTrendThreshold, TemperatureTrends),
		TemperatureTrends, PointsDerived)
}}

var humidityTrendFactory = Factory{KindHumidityTrend, func(b *builder, id int, s climate.Snapshot) Question {
	series := s.Series[climate.VarHumidity]
	return b.categorical(id, KindHumidityTrend,
		"How has humidity changed over the last few days?",
		ClassifyTrend(series.First().Value, series.Last().Value, HumidityTrendThreshold, HumidityTrends),
		HumidityTrends, PointsDerived)
}}
