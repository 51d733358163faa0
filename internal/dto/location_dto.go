package dto

type SetLocationRequest struct {
	Pool string `json:"pool" label:"Pool name" validate:"required,max=120"`
}

type SituationalContextResponse struct {
	CurrentDate    string `json:"current_date"`
	LocationName   string `json:"location_name"`
	WeatherSummary string `json:"weather_summary"`
}

type SetLocationResponse struct {
	Weather string                     `json:"weather"`
	Context SituationalContextResponse `json:"context"`
}
