package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// SleepTool scores one night of sleep and suggests improvements.
//
// Score (0-100): duration up to 40 points (9h = full marks), efficiency up to
// 40 points, interruptions up to 20 points (minus 5 per interruption). Each
// interruption is assumed to cost 15 minutes of sleep.
type SleepTool struct{}

func (t *SleepTool) Name() string { return "sleep_quality_analyzer" }

func (t *SleepTool) Description() string {
	return "Analyze sleep quality and provide recommendations. Required inputs: sleep_hours (float), bedtime (HH:MM format), wake_time (HH:MM format). Optional interruptions (int), sleep_quality_rating (int 1-10)"
}

func (t *SleepTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{` +
		`"sleep_hours":{"type":"number","description":"Hours spent asleep"},` +
		`"bedtime":{"type":"string","description":"HH:MM, e.g. 22:30"},` +
		`"wake_time":{"type":"string","description":"HH:MM, e.g. 07:00"},` +
		`"interruptions":{"type":"integer","description":"Number of times woken up"},` +
		`"sleep_quality_rating":{"type":"integer","description":"Self rating from 1 to 10"}` +
		`},"required":["sleep_hours","bedtime","wake_time"]}`)
}

// SleepInput are the arguments of the sleep analyzer.
type SleepInput struct {
	SleepHours    float64 `json:"sleep_hours"`
	Bedtime       string  `json:"bedtime"`
	WakeTime      string  `json:"wake_time"`
	Interruptions int     `json:"interruptions"`
	Rating        *int    `json:"sleep_quality_rating,omitempty"`
}

// SleepReport is the analyzer result.
type SleepReport struct {
	Metrics struct {
		TotalHours      float64 `json:"total_hours"`
		ActualSleep     float64 `json:"actual_sleep"`
		SleepEfficiency string  `json:"sleep_efficiency"`
		Interruptions   int     `json:"interruptions"`
		Bedtime         string  `json:"bedtime"`
		WakeTime        string  `json:"wake_time"`
	} `json:"sleep_metrics"`
	Quality struct {
		Score      float64 `json:"score"`
		Category   string  `json:"category"`
		UserRating any     `json:"user_rating"`
	} `json:"sleep_quality"`
	Recommendations []string `json:"recommendations"`
}

type sleepError struct {
	Error           string   `json:"error"`
	Recommendations []string `json:"recommendations"`
}

// Run returns the report as JSON. Invalid input is reported to the model as a
// JSON error object rather than a Go error so it can ask the user again.
func (t *SleepTool) Run(_ context.Context, args string) (string, error) {
	var in SleepInput
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return marshalSleepError(fmt.Errorf("invalid arguments: %w", err))
	}
	report, err := AnalyzeSleep(in)
	if err != nil {
		return marshalSleepError(err)
	}
	b, err := json.Marshal(report)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func marshalSleepError(err error) (string, error) {
	b, merr := json.Marshal(sleepError{
		Error:           "Error analyzing sleep quality: " + err.Error(),
		Recommendations: []string{"Please ensure time format is HH:MM (e.g., '22:30')"},
	})
	if merr != nil {
		return "", merr
	}
	return string(b), nil
}

// AnalyzeSleep computes the sleep report.
func AnalyzeSleep(in SleepInput) (SleepReport, error) {
	var r SleepReport
	bed, err := time.Parse("15:04", in.Bedtime)
	if err != nil {
		return r, fmt.Errorf("bedtime %q: %w", in.Bedtime, err)
	}
	if _, err := time.Parse("15:04", in.WakeTime); err != nil {
		return r, fmt.Errorf("wake_time %q: %w", in.WakeTime, err)
	}
	if in.SleepHours <= 0 || in.SleepHours > 24 {
		return r, fmt.Errorf("sleep_hours must be between 0 and 24, got %v", in.SleepHours)
	}
	if in.Interruptions < 0 {
		return r, fmt.Errorf("interruptions must not be negative")
	}
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 10) {
		return r, fmt.Errorf("sleep_quality_rating must be between 1 and 10")
	}

	actual := math.Max(in.SleepHours-float64(in.Interruptions)*0.25, 0)
	efficiency := actual / in.SleepHours * 100

	recs := []string{}
	idealStart, _ := time.Parse("15:04", "21:00")
	idealEnd, _ := time.Parse("15:04", "23:00")
	if bed.Before(idealStart) || bed.After(idealEnd) {
		recs = append(recs, "Try to go to bed between 9 PM and 11 PM for optimal sleep")
	}
	switch {
	case in.SleepHours < 7:
		recs = append(recs, "Aim for at least 7 hours of sleep per night")
	case in.SleepHours > 9:
		recs = append(recs, "You might be oversleeping. Try reducing sleep time to 7-9 hours")
	}
	if in.Interruptions > 2 {
		recs = append(recs, "Consider these tips to reduce sleep interruptions:\n- Maintain a comfortable room temperature\n- Use white noise or earplugs\n- Avoid liquids 2 hours before bed")
	}

	score := math.Min(in.SleepHours/9*40, 40) +
		efficiency*0.4 +
		math.Max(20-float64(in.Interruptions)*5, 0)

	r.Metrics.TotalHours = in.SleepHours
	r.Metrics.ActualSleep = math.Round(actual*100) / 100
	r.Metrics.SleepEfficiency = fmt.Sprintf("%.1f", efficiency)
	r.Metrics.Interruptions = in.Interruptions
	r.Metrics.Bedtime = in.Bedtime
	r.Metrics.WakeTime = in.WakeTime
	r.Quality.Score = math.Round(score*10) / 10
	r.Quality.Category = SleepCategory(score)
	r.Quality.UserRating = "Not provided"
	if in.Rating != nil {
		r.Quality.UserRating = *in.Rating
	}
	r.Recommendations = recs
	return r, nil
}

// SleepCategory buckets a 0-100 score.
func SleepCategory(score float64) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 80:
		return "Very Good"
	case score >= 70:
		return "Good"
	case score >= 60:
		return "Fair"
	default:
		return "Poor"
	}
}
