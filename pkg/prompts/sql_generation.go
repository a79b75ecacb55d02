// Package prompts builds the LLM prompts used by the ask pipeline:
// SQL generation from a natural-language question and answer synthesis
// from query results.
package prompts

import (
	"fmt"
	"strings"

	"github.com/dbchat-ai/dbchat-engine/pkg/models"
)

// BuildSQLGenerationPrompt creates the prompt that turns a question
// into a single SELECT statement. lastError carries the validation or
// execution failure from the previous attempt; empty on the first try.
func BuildSQLGenerationPrompt(question string, schema *models.SchemaDocument, lastError string) string {
	var prompt strings.Builder

	prompt.WriteString("# SQL Query Generation\n\n")
	prompt.WriteString(fmt.Sprintf("Write a single SQL SELECT statement for the %s database described below that answers the user's question.\n\n", schema.Dialect))

	prompt.WriteString("## Database Schema\n\n")
	prompt.WriteString(schema.Summary())
	prompt.WriteString("\n")

	prompt.WriteString("## Rules\n\n")
	prompt.WriteString("- Respond with ONLY the SQL statement. No explanations, no markdown, no commentary.\n")
	prompt.WriteString("- Only SELECT statements are allowed. Never write INSERT, UPDATE, DELETE, DDL or stored procedure calls.\n")
	prompt.WriteString("- Use only tables and columns that appear in the schema above.\n")
	prompt.WriteString("- Do not select id or surrogate key columns unless the question explicitly asks for identifiers; prefer human-readable columns like names and titles.\n")
	prompt.WriteString(fmt.Sprintf("- Use %s syntax.\n", schema.Dialect))
	prompt.WriteString("- Close every quote and parenthesis you open.\n\n")

	prompt.WriteString("## Examples\n\n")
	prompt.WriteString("Question: how many customers do we have?\n")
	prompt.WriteString("SELECT COUNT(*) AS customer_count FROM customers\n\n")
	prompt.WriteString("Question: which products cost more than 100?\n")
	prompt.WriteString("SELECT name, price FROM products WHERE price > 100 ORDER BY price DESC\n\n")

	if lastError != "" {
		prompt.WriteString("## Previous Attempt Failed\n\n")
		prompt.WriteString(fmt.Sprintf("Your previous query was rejected: %s\n", lastError))
		prompt.WriteString("Write a corrected query that avoids this problem.\n\n")
	}

	prompt.WriteString(fmt.Sprintf("Question: %s\n", question))

	return prompt.String()
}

// SQLGenerationSystemMessage returns the system message for SQL
// generation.
func SQLGenerationSystemMessage() string {
	return "You are an expert SQL developer. You translate questions into safe, read-only SQL queries and respond with nothing but the query itself."
}
