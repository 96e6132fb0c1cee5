package dashboard

// IPData wraps the resolved public address of the caller.
type IPData struct {
	IP string `json:"ip"`
}

// GeoData mirrors the geolocation upstream payload field for field.
type GeoData struct {
	Status      string  `json:"status"`
	Message     string  `json:"message,omitempty"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Zip         string  `json:"zip"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
	Org         string  `json:"org"`
	AS          string  `json:"as"`
	Query       string  `json:"query"`
}

// WeatherData is the Open-Meteo forecast payload: one current block plus
// seven days of index-aligned daily series.
type WeatherData struct {
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Timezone  string         `json:"timezone"`
	Current   CurrentWeather `json:"current"`
	Daily     DailyForecast  `json:"daily"`
}

// CurrentWeather holds current conditions under their upstream names.
type CurrentWeather struct {
	Time                string  `json:"time"`
	Temperature2m       float64 `json:"temperature_2m"`
	RelativeHumidity2m  float64 `json:"relative_humidity_2m"`
	ApparentTemperature float64 `json:"apparent_temperature"`
	IsDay               int     `json:"is_day"`
	Precipitation       float64 `json:"precipitation"`
	Rain                float64 `json:"rain"`
	WeatherCode         int     `json:"weather_code"`
	CloudCover          float64 `json:"cloud_cover"`
	WindSpeed10m        float64 `json:"wind_speed_10m"`
	WindDirection10m    float64 `json:"wind_direction_10m"`
	WindGusts10m        float64 `json:"wind_gusts_10m"`
	SurfacePressure     float64 `json:"surface_pressure"`
	Visibility          float64 `json:"visibility"`
	UVIndex             float64 `json:"uv_index"`
}

// DailyForecast carries parallel arrays, one entry per forecast day.
type DailyForecast struct {
	Time             []string  `json:"time"`
	WeatherCode      []int     `json:"weather_code"`
	Temperature2mMax []float64 `json:"temperature_2m_max"`
	Temperature2mMin []float64 `json:"temperature_2m_min"`
	PrecipitationSum []float64 `json:"precipitation_sum"`
	WindSpeed10mMax  []float64 `json:"wind_speed_10m_max"`
	UVIndexMax       []float64 `json:"uv_index_max"`
	Sunrise          []string  `json:"sunrise"`
	Sunset           []string  `json:"sunset"`
	DaylightDuration []float64 `json:"daylight_duration"`
}

// AirQualityData carries the current pollutant block. Either AQI index
// may be missing upstream, hence the pointers.
type AirQualityData struct {
	Current AirQualityCurrent `json:"current"`
}

// AirQualityCurrent lists pollutant concentrations and both AQI scales.
type AirQualityCurrent struct {
	Time            string   `json:"time"`
	PM10            float64  `json:"pm10"`
	PM25            float64  `json:"pm2_5"`
	CarbonMonoxide  float64  `json:"carbon_monoxide"`
	NitrogenDioxide float64  `json:"nitrogen_dioxide"`
	Ozone           float64  `json:"ozone"`
	EuropeanAQI     *float64 `json:"european_aqi"`
	USAQI           *float64 `json:"us_aqi"`
}

// CountryData is the REST-Countries profile keyed by the 2-letter code.
type CountryData struct {
	Name       CountryName         `json:"name"`
	Capital    []string            `json:"capital"`
	Population int64               `json:"population"`
	Area       float64             `json:"area"`
	Currencies map[string]Currency `json:"currencies"`
	Languages  map[string]string   `json:"languages"`
	Flags      CountryFlags        `json:"flags"`
	Timezones  []string            `json:"timezones"`
	Region     string              `json:"region"`
	Subregion  string              `json:"subregion"`
}

// CountryName holds both naming variants.
type CountryName struct {
	Common   string `json:"common"`
	Official string `json:"official"`
}

// Currency describes one entry of the currencies map.
type Currency struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// CountryFlags links flag assets.
type CountryFlags struct {
	PNG string `json:"png"`
	SVG string `json:"svg"`
	Alt string `json:"alt"`
}

// DashboardData is the merged response of /api/all. It is produced
// atomically: callers never see a partially filled value.
type DashboardData struct {
	IP         IPData         `json:"ip"`
	Geo        GeoData        `json:"geo"`
	Weather    WeatherData    `json:"weather"`
	AirQuality AirQualityData `json:"airQuality"`
	Country    CountryData    `json:"country"`
}

// ClientHints are the inbound headers consulted when resolving the
// caller's address.
type ClientHints struct {
	ForwardedFor string
	RealIP       string
}

// Config wires runtime knobs for the aggregation domain.
type Config struct {
	FallbackIP string
}
