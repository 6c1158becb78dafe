package analytics

import "time"

// SpecialtyStats aggregates the active flows of one specialty.
type SpecialtyStats struct {
	SpecialtyID   string
	SpecialtyName string
	FlowCount     int
	TotalSteps    int
	// AvgDuration is the mean flow average_duration in minutes.
	AvgDuration float64
	AvgCost     float64
	// AvgStepCost is the mean node cost_avg.
	AvgStepCost float64
}

// Totals aggregates every active flow that has a valid specialty.
type Totals struct {
	Specialties int
	Flows       int
	Steps       int
	AvgDuration float64
	AvgCost     float64
}

type DemandFactors struct {
	HistoricalAverage float64 `json:"historical_average"`
	SeasonalFactor    float64 `json:"seasonal_factor"`
	GrowthFactor      float64 `json:"growth_factor"`
	Variability       float64 `json:"variability"`
}

type DemandPrediction struct {
	SpecialtyID     string        `json:"specialty_id"`
	SpecialtyName   string        `json:"specialty_name"`
	PredictedDemand int           `json:"predicted_demand"`
	ConfidenceLevel float64       `json:"confidence_level"`
	PredictionDate  time.Time     `json:"prediction_date"`
	TimePeriod      string        `json:"time_period"`
	Factors         DemandFactors `json:"factors"`
}

type TrendAnalysis struct {
	SpecialtyID      string    `json:"specialty_id"`
	SpecialtyName    string    `json:"specialty_name"`
	MetricName       string    `json:"metric_name"`
	CurrentValue     float64   `json:"current_value"`
	PreviousValue    float64   `json:"previous_value"`
	ChangePercentage float64   `json:"change_percentage"`
	TrendStrength    float64   `json:"trend_strength"`
	TrendDirection   string    `json:"trend_direction"`
	DataPoints       int       `json:"data_points"`
	AnalysisDate     time.Time `json:"analysis_date"`
}

type ResourceOptimization struct {
	SpecialtyID            string    `json:"specialty_id"`
	SpecialtyName          string    `json:"specialty_name"`
	ResourceType           string    `json:"resource_type"`
	CurrentUtilization     float64   `json:"current_utilization"`
	OptimalUtilization     float64   `json:"optimal_utilization"`
	PotentialSavings       float64   `json:"potential_savings"`
	ImplementationPriority string    `json:"implementation_priority"`
	Recommendations        []string  `json:"recommendations"`
	FlowCount              int       `json:"flow_count"`
	AvgDuration            float64   `json:"avg_duration"`
	AvgCost                float64   `json:"avg_cost"`
	TotalSteps             int       `json:"total_steps"`
	AnalysisDate           time.Time `json:"analysis_date"`
}

type Dashboard struct {
	TotalSpecialties          int       `json:"total_specialties"`
	TotalPredictions          int       `json:"total_predictions"`
	AverageConfidence         float64   `json:"average_confidence"`
	IncreasingTrends          int       `json:"increasing_trends"`
	HighPriorityOptimizations int       `json:"high_priority_optimizations"`
	TotalFlows                int       `json:"total_flows"`
	TotalSteps                int       `json:"total_steps"`
	AvgDuration               float64   `json:"avg_duration"`
	AvgCost                   float64   `json:"avg_cost"`
	LastUpdated               time.Time `json:"last_updated"`
}

const (
	DirectionIncreasing = "increasing"
	DirectionDecreasing = "decreasing"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"

	periodMonthly    = "monthly"
	metricAvgCost    = "Average Cost per Flow"
	resourceFullFlow = "Complete Care Flow"
)
