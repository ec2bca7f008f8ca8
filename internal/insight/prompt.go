package insight

import (
	"fmt"
	"sort"
	"strings"
)

// BuildPrompt renders the quantitative findings into the prompt sent to the
// external generator. The response format instructions are part of the
// contract with ParseResponse.
func BuildPrompt(req *Request) string {
	var b strings.Builder

	b.WriteString("You are a data quality expert for machine learning. ")
	b.WriteString("Analyze this dataset quality report and provide actionable insights.\n\n")

	fmt.Fprintf(&b, "Dataset: %s\n", req.DatasetName)
	fmt.Fprintf(&b, "Total Rows: %d\n", req.Metrics.TotalRows)
	fmt.Fprintf(&b, "Total Columns: %d\n", req.Metrics.TotalColumns)
	fmt.Fprintf(&b, "Quality Score: %d/100\n\n", req.Score)

	fmt.Fprintf(&b, "Data Quality Issues:\n")
	fmt.Fprintf(&b, "- Missing data: %.2f%%\n", req.Metrics.MissingPercentage)
	fmt.Fprintf(&b, "- Duplicate rows: %d\n", req.Metrics.DuplicateRows)

	if cols := topMissingColumns(req, 5); len(cols) > 0 {
		b.WriteString("\nColumns with missing data:\n")
		for _, col := range cols {
			fmt.Fprintf(&b, "- %s: %d missing\n", col.name, col.count)
		}
	}

	b.WriteString("\nDetected Issues:\n")
	if len(req.Issues) == 0 {
		b.WriteString("No major issues detected\n")
	} else {
		for _, issue := range req.Issues {
			fmt.Fprintf(&b, "- %s: %s\n", strings.ToUpper(string(issue.Severity)), issue.Message)
		}
	}

	b.WriteString("\nProvide a response in this exact format:\n\n")
	b.WriteString("ASSESSMENT:\n")
	b.WriteString("[2-3 sentences overall quality assessment for ML readiness]\n\n")
	b.WriteString("RECOMMENDATIONS:\n")
	b.WriteString("1. [First specific recommendation]\n")
	b.WriteString("2. [Second specific recommendation]\n")
	b.WriteString("3. [Third specific recommendation]\n\n")
	b.WriteString("Keep recommendations concrete and actionable. ")
	b.WriteString("Focus on preprocessing steps to improve ML model performance.")

	return b.String()
}

type missingColumn struct {
	name  string
	count int
}

// topMissingColumns returns the n columns with the highest missing counts,
// highest first, names breaking ties for determinism.
func topMissingColumns(req *Request, n int) []missingColumn {
	cols := make([]missingColumn, 0, len(req.Metrics.MissingByColumn))
	for name, count := range req.Metrics.MissingByColumn {
		if count > 0 {
			cols = append(cols, missingColumn{name: name, count: count})
		}
	}

	sort.Slice(cols, func(i, j int) bool {
		if cols[i].count != cols[j].count {
			return cols[i].count > cols[j].count
		}
		return cols[i].name < cols[j].name
	})

	if len(cols) > n {
		cols = cols[:n]
	}
	return cols
}
