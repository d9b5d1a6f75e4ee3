// Package quiz turns a climate snapshot into a short multiple-choice quiz.
package quiz

// Answer is one selectable option.
type Answer struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// Kind names the factory that built a question.
type Kind string

const (
	KindTemperature      Kind = "temperature"
	KindTemperatureClass Kind = "temperature_class"
	KindHumidity         Kind = "humidity"
	KindHumidityClass    Kind = "humidity_class"
	KindWindSpeed        Kind = "wind_speed"
	KindWindClass        Kind = "wind_class"
	KindTemperatureRange Kind = "temperature_range"
	KindComfortIndex     Kind = "comfort_index"
	KindPressure         Kind = "pressure"
	KindPressureClass    Kind = "pressure_class"
	KindSolarClass       Kind = "solar_class"
	KindSolarValue       Kind = "solar_value"
	KindTemperatureTrend Kind = "temperature_trend"
	KindHumidityTrend    Kind = "humidity_trend"
)

// Point rewards per question family.
const (
	PointsObservation = 10
	PointsClass       = 15
	PointsDerived     = 20
	PointsSolar       = 15
	PointsComfort     = 25
)

// Question is one quiz item. Options holds exactly four answers, one of
// which has CorrectAnswer's ID.
type Question struct {
	ID            int      `json:"id"`
	Kind          Kind     `json:"kind"`
	Prompt        string   `json:"prompt"`
	Options       []Answer `json:"options"`
	CorrectAnswer Answer   `json:"correctAnswer"`
	Points        int      `json:"points"`
}

// HasOption reports whether answerID is one of the question's options.
func (q Question) HasOption(answerID int) bool {
	for _, o := range q.Options {
		if o.ID == answerID {
			return true
		}
	}
	return false
}

// IsCorrect reports whether answerID is the correct option.
func (q Question) IsCorrect(answerID int) bool {
	return answerID == q.CorrectAnswer.ID
}
