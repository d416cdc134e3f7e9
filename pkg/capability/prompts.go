package capability

import (
	"fmt"
	"strings"
)

const classifierInstruction = `You are a tool routing classifier for a retail assistant.
Determine whether the user query requires database SQL, business policy lookup, or both.
If the query is nonsense, empty, or unrelated, mark it as unknown.

Definitions:
- SQL: direct DB queries, counts, sums, joins, filters.
- Policy: business rules defined in the policy document (VIP rules, return rules, restocking fee, shipping rules).
- Unknown: junk/unrelated/empty input; do not route to SQL or policy.

Return ONLY JSON:
{"requires_sql": true/false, "requires_policy": true/false, "unknown": true/false, "explanation": "brief reasoning"}`

const generateSQLInstruction = `You are a SQLite expert. Generate safe SELECT-only SQL.
Return only the SQL statement with no explanation.
Never include raw email, phone, or address unless needed for joins; prefer aggregated or masked data.
When a business rule is provided, you must encode every constraint from that rule into the SQL (e.g., VIP definition thresholds, date windows, spend minimums).
Do not drop rule constraints even if the user query omits them.
Use only the tables and columns listed in the provided schema.
If the request cannot be satisfied with the available tables, return a harmless placeholder query like SELECT 'no matching table' AS message;`

const correctSQLInstruction = `You are helping fix a SQLite query. Return only corrected SQL.
Do not include explanations.
Use only the tables/columns in the provided schema; if the requested table does not exist, return a safe placeholder like SELECT 'no matching table' AS message;`

const policyContextInstruction = `You extract business policy text.
From the policy document below, return only the sentences or paragraphs relevant to the question.
Never invent content; if nothing is relevant, return nothing.`

const answerFromDocsInstruction = `You are a compliance/policy assistant. Answer the question strictly using the provided policy snippets.
If the policy does not contain the answer, say you do not have that information.`

func buildClassifierPrompt(query string) string {
	var sb strings.Builder
	sb.WriteString(classifierInstruction)
	sb.WriteString("\n\nUser query:\n")
	sb.WriteString(query)
	return sb.String()
}

func buildGenerateSQLPrompt(query, businessRule, schema string) string {
	var sb strings.Builder
	sb.WriteString(generateSQLInstruction)
	if schema != "" {
		sb.WriteString("\nDatabase schema:\n")
		sb.WriteString(schema)
	}
	sb.WriteString(fmt.Sprintf("\n\nUser query: %s\nBusiness rule (must be enforced): %s", query, businessRule))
	return sb.String()
}

func buildCorrectSQLPrompt(sqlText, errorMessage, schema string) string {
	var sb strings.Builder
	sb.WriteString(correctSQLInstruction)
	if schema != "" {
		sb.WriteString("\nDatabase schema:\n")
		sb.WriteString(schema)
	}
	sb.WriteString(fmt.Sprintf("\n\nOriginal SQL:\n%s\n\nError:\n%s", sqlText, errorMessage))
	return sb.String()
}

func buildPolicyContextPrompt(query, document string) string {
	var sb strings.Builder
	sb.WriteString(policyContextInstruction)
	sb.WriteString("\n\nPolicy document:\n")
	sb.WriteString(document)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(query)
	return sb.String()
}

func buildAnswerFromDocsPrompt(query, policyContext string) string {
	var sb strings.Builder
	sb.WriteString(answerFromDocsInstruction)
	sb.WriteString("\n\nPolicy snippets:\n")
	sb.WriteString(policyContext)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(query)
	return sb.String()
}
