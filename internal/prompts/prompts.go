// Package prompts centralizes the LLM prompt templates used by the
// classification client.
package prompts

// RetentionSystemPrompt instructs the model to answer in strict JSON with
// exactly the five fields the validator requires.
const RetentionSystemPrompt = `You are a data retention classification engine. ` +
	`Always respond in strict JSON with these exact fields:
retention_score (integer 0-100), ` +
	`category (one of: legal, financial, operational, personal, ephemeral, unknown), ` +
	`suggested_action (one of: delete, archive, retain, review), ` +
	`confidence (float 0.0-1.0), ` +
	`reasoning (string with detailed explanation).`
