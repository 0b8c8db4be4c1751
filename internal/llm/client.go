/*-------------------------------------------------------------------------
 *
 * client.go
 *    LLM completion client backed by NeuronDB
 *
 * Provides text completion through NeuronDB SQL functions. The agent
 * layer sees only the completion boundary; model selection and provider
 * routing live inside the database extension.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/llm/client.go
 *
 *-------------------------------------------------------------------------
 */

package llm

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/neurondb/NeuronSupervisor/internal/validation"
)

/* maxPromptLength bounds prompts forwarded to the database extension */
const maxPromptLength = 32768

/* Client handles text completion via NeuronDB */
type Client struct {
	db    *sqlx.DB
	model string
}

/* NewClient creates a new completion client */
func NewClient(db *sqlx.DB, model string) *Client {
	if model == "" {
		model = "default"
	}
	return &Client{db: db, model: model}
}

/* Complete generates a completion for the given prompt */
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := validation.ValidateRequired(prompt, "prompt"); err != nil {
		return "", fmt.Errorf("completion failed: model_name='%s', error=%w", c.model, err)
	}
	if err := validation.ValidateMaxLength(prompt, "prompt", maxPromptLength); err != nil {
		return "", fmt.Errorf("completion failed: model_name='%s', error=%w", c.model, err)
	}

	var completion string
	query := `SELECT neurondb_llm_complete($1, $2) AS completion`

	err := c.db.GetContext(ctx, &completion, query, prompt, c.model)
	if err != nil {
		return "", fmt.Errorf("completion failed via NeuronDB: model_name='%s', prompt_length=%d, function='neurondb_llm_complete', error=%w",
			c.model, len(prompt), err)
	}

	return completion, nil
}
