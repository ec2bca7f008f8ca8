package insight

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightloop/dataqual/pkg/errors"
	"github.com/insightloop/dataqual/pkg/models"
)

type stubGenerator struct {
	response string
	err      error
	delay    time.Duration
	prompts  []string
}

func (s *stubGenerator) GenerateInsight(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.response, s.err
}

func testRequest() *Request {
	return &Request{
		DatasetName: "churn.csv",
		Columns:     []string{"id", "label"},
		Metrics: &models.DatasetMetrics{
			TotalRows:         200,
			TotalColumns:      2,
			MissingPercentage: 7.5,
			DuplicateRows:     3,
			MissingByColumn:   map[string]int{"label": 30},
		},
		Issues: []models.Issue{
			{
				Type:       models.IssueMissingData,
				Severity:   models.SeverityWarning,
				Message:    "7.50% of values are missing across 1 of 2 columns",
				Suggestion: "Consider imputation strategies or removing columns with high missing rates",
			},
		},
		Score: 82,
	}
}

func TestRequestInsightParsesModelResponse(t *testing.T) {
	gen := &stubGenerator{
		response: "ASSESSMENT:\nThe dataset is largely ready for modeling.\n\n" +
			"RECOMMENDATIONS:\n1. Impute missing labels\n2. Drop duplicate rows\n",
	}
	r := NewRequester(gen, time.Second, logrus.New())

	result := r.RequestInsight(context.Background(), testRequest())
	require.NotNil(t, result)
	assert.Equal(t, models.InsightSourceModel, result.GeneratedBy)
	assert.Equal(t, "The dataset is largely ready for modeling.", result.Assessment)
	assert.Equal(t, []string{"Impute missing labels", "Drop duplicate rows"}, result.Recommendations)
}

func TestRequestInsightFallsBackOnError(t *testing.T) {
	gen := &stubGenerator{err: errors.NewInsightError(errors.CodeInsightFailed, "model unavailable")}
	r := NewRequester(gen, time.Second, logrus.New())

	result := r.RequestInsight(context.Background(), testRequest())
	require.NotNil(t, result)
	assert.Equal(t, models.InsightSourceFallback, result.GeneratedBy)
	assert.Contains(t, result.Assessment, "82/100")
	assert.Equal(t,
		[]string{"Consider imputation strategies or removing columns with high missing rates"},
		result.Recommendations)
}

func TestRequestInsightFallsBackOnTimeout(t *testing.T) {
	gen := &stubGenerator{response: "ASSESSMENT:\nfine", delay: 500 * time.Millisecond}
	r := NewRequester(gen, 20*time.Millisecond, logrus.New())

	start := time.Now()
	result := r.RequestInsight(context.Background(), testRequest())
	require.NotNil(t, result)
	assert.Equal(t, models.InsightSourceFallback, result.GeneratedBy)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestRequestInsightFallsBackOnUnusableResponse(t *testing.T) {
	gen := &stubGenerator{response: "   \n"}
	r := NewRequester(gen, time.Second, logrus.New())

	result := r.RequestInsight(context.Background(), testRequest())
	require.NotNil(t, result)
	assert.Equal(t, models.InsightSourceFallback, result.GeneratedBy)
}

func TestRequestInsightNilGenerator(t *testing.T) {
	r := NewRequester(nil, time.Second, logrus.New())

	result := r.RequestInsight(context.Background(), testRequest())
	require.NotNil(t, result)
	assert.Equal(t, models.InsightSourceFallback, result.GeneratedBy)
}

func TestFallbackIsDeterministic(t *testing.T) {
	req := testRequest()
	first := Fallback(req)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Fallback(req))
	}
}

func TestFallbackWithoutIssues(t *testing.T) {
	req := testRequest()
	req.Issues = nil
	req.Score = 100

	result := Fallback(req)
	assert.Contains(t, result.Assessment, "No quality issues")
	assert.NotEmpty(t, result.Recommendations)
}

func TestBuildPromptContainsFindings(t *testing.T) {
	prompt := BuildPrompt(testRequest())

	assert.Contains(t, prompt, "Dataset: churn.csv")
	assert.Contains(t, prompt, "Total Rows: 200")
	assert.Contains(t, prompt, "Quality Score: 82/100")
	assert.Contains(t, prompt, "WARNING: 7.50% of values are missing")
	assert.Contains(t, prompt, "label: 30 missing")
	assert.Contains(t, prompt, "ASSESSMENT:")
	assert.Contains(t, prompt, "RECOMMENDATIONS:")
}

func TestParseResponseVariants(t *testing.T) {
	tests := []struct {
		name            string
		input           string
		assessment      string
		recommendations []string
	}{
		{
			name:            "numbered list",
			input:           "ASSESSMENT:\nGood shape.\nRECOMMENDATIONS:\n1. Do A\n2) Do B",
			assessment:      "Good shape.",
			recommendations: []string{"Do A", "Do B"},
		},
		{
			name:            "dashed list",
			input:           "ASSESSMENT: Fair.\nRECOMMENDATIONS:\n- first\n- second",
			assessment:      "Fair.",
			recommendations: []string{"first", "second"},
		},
		{
			name:       "no recommendations section",
			input:      "ASSESSMENT: Clean dataset, nothing to do.",
			assessment: "Clean dataset, nothing to do.",
		},
		{
			name:  "empty response",
			input: "",
		},
		{
			name:            "prose between items ignored",
			input:           "ASSESSMENT:\nOk.\nRECOMMENDATIONS:\nHere are my thoughts\n1. Keep it\nsome trailing prose",
			assessment:      "Ok.",
			recommendations: []string{"Keep it"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assessment, recommendations := ParseResponse(tt.input)
			assert.Equal(t, tt.assessment, assessment)
			assert.Equal(t, tt.recommendations, recommendations)
		})
	}
}

func TestParseResponseCapsRecommendations(t *testing.T) {
	input := "ASSESSMENT: x\nRECOMMENDATIONS:\n"
	for i := 1; i <= 15; i++ {
		input += "1. item\n"
	}

	_, recommendations := ParseResponse(input)
	assert.Len(t, recommendations, 10)
}
