package weather

import "fmt"

// FormatSummary renders a successful lookup. It uses the resolved city name.
func FormatSummary(s WeatherSummary) string {
	return fmt.Sprintf("Weather in %s:\nTemperature: %s\nCondition: %s", s.CityName, s.Temperature, s.Condition)
}

// FormatError renders a failed lookup. It echoes the city exactly as the caller sent it,
// since resolution never happened.
func FormatError(inputCity string, err error) string {
	return fmt.Sprintf("Error getting weather for %s: %s", inputCity, err.Error())
}
