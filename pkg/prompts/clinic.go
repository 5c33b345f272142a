// Package prompts builds the system instructions and user prompts sent to
// the model gateway.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SQLGeneratorSystem instructs the model to answer with a single T-SQL statement.
const SQLGeneratorSystem = `You are a SQL Server expert for dental clinic databases (GELITE practice-management schema).
Write one precise, efficient query for the user's question.

STRICT RULES:
1. Use ONLY tables and columns present in the schema provided.
2. NEVER use SELECT *; list the columns explicitly.
3. Use descriptive aliases.
4. Add appropriate WHERE filters.
5. Add ORDER BY when relevant.
6. For dates use GETDATE() and DATEADD.
7. Use GROUP BY correctly for aggregations.
8. Read-only: never modify data or schema.

RESPONSE FORMAT:
Return ONLY the SQL statement. No explanations, no markdown, no code fences.`

// QueryValidatorSystem instructs the model to audit a statement and answer in JSON.
const QueryValidatorSystem = `You are a SQL auditor who validates queries before they run.

Review the query and answer with JSON only:
{
  "valid": true or false,
  "issues": ["problems found"],
  "risk_level": "low" | "medium" | "high",
  "estimated_rows": estimated number of rows
}

Check:
- Correct syntax
- Tables and columns exist in the schema
- No dangerous operations (DELETE, DROP, UPDATE, ALTER, TRUNCATE)
- JOINs are correct
- Performance is acceptable`

// InsightGeneratorSystem instructs the model to write a business summary.
const InsightGeneratorSystem = `You are a business consultant specialized in dental clinics.
Analyze the data provided and produce actionable insights.

FORMAT:
1. Executive summary (1 line)
2. Key findings (3-5 points)
3. Specific recommendations (3 actions)
4. Expected impact metrics

Be concise, specific and focused on business outcomes. Answer in the language of the question when one is given.`

// BuildSQLPrompt combines the question with the schema excerpt.
func BuildSQLPrompt(question, schemaContext string) string {
	var b strings.Builder
	b.WriteString("Database schema:\n")
	b.WriteString(schemaContext)
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nSQL:")
	return b.String()
}

// BuildValidationPrompt asks for a verdict on sqlQuery.
func BuildValidationPrompt(sqlQuery, schemaContext string) string {
	return fmt.Sprintf("Validate this SQL query:\n\nSQL:\n%s\n\nSchema:\n%s\n\nAnswer in strict JSON.", sqlQuery, schemaContext)
}

// BuildSummaryPrompt asks for insights over a query result. Rows are
// rendered as JSON; at most maxRows are included.
func BuildSummaryPrompt(question string, rows any, rowCount int) string {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf("%v", rows))
	}
	return fmt.Sprintf("Original question: %s\n\nQuery returned %d rows:\n%s\n\nSummarize the answer and give actionable insights:",
		strings.TrimSpace(question), rowCount, string(data))
}

// BuildInsightPrompt asks for insights over an analytics payload.
func BuildInsightPrompt(context string, data any) string {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		payload = []byte(fmt.Sprintf("%v", data))
	}
	return fmt.Sprintf("Context: %s\n\nData:\n%s\n\nGenerate actionable insights:", context, string(payload))
}
